package sqlschema

import (
	"fmt"
	"sort"
)

// Options is a per-dialect options bag passed to every Visit call. The
// shipped dialects accept and ignore it; a nil or empty bag never fails.
type Options map[string]any

// Result is what a Visitor returns for a node: a canonical type for type
// nodes, or a canonical default for default nodes. Array results wrap the
// element result inside Type.Elem.
type Result struct {
	Type    *Type
	Default *Default
}

// TypeResult wraps a canonical type.
func TypeResult(t *Type) Result {
	return Result{Type: t}
}

// DefaultResult wraps a canonical default.
func DefaultResult(d *Default) Result {
	return Result{Default: d}
}

// Visitor compiles catalog nodes for one database dialect.
//
// Visit must be total over well-formed nodes: unrecognised type names and
// default expressions degrade to unmapped passthroughs. It returns an error
// only for structurally invalid nodes (see ValidateNode), as a
// *StructuralError.
//
// Visitors are stateless and safe for concurrent use.
type Visitor interface {
	// Name returns the dialect identifier (e.g., "postgres", "sqlite").
	Name() string

	// Visit compiles a single node.
	Visit(node Node, opts Options) (Result, error)
}

var dialects = make(map[string]Visitor)

// RegisterDialect registers a dialect visitor by its name.
// Registration happens from init functions; it is not synchronised.
func RegisterDialect(v Visitor) {
	dialects[v.Name()] = v
}

// GetDialect returns the visitor registered for name.
func GetDialect(name string) (Visitor, error) { //nolint:ireturn
	v, ok := dialects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDialect, name)
	}

	return v, nil
}

// RegisteredDialects returns the names of all registered dialects, sorted.
func RegisteredDialects() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// VisitTable compiles node with a type table and a default rule chain.
// Table-driven dialects delegate their Visit to it.
func VisitTable(node Node, types *TypeTable, defaults DefaultRules) (Result, error) {
	if err := ValidateNode(node); err != nil {
		return Result{}, err
	}

	switch n := node.(type) {
	case *TypeNode:
		return TypeResult(types.Resolve(n.RawName())), nil
	case *ArrayTypeNode:
		return TypeResult(types.ResolveArray(n.RawName())), nil
	case *EnumTypeNode:
		return TypeResult(EnumOf(n.Values()...)), nil
	case *DefaultNode:
		return DefaultResult(defaults.Parse(n)), nil
	}

	return Result{}, structuralf(node.Kind(), "", "unsupported node %T", node)
}
