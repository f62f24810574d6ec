package sqlschema

import (
	"database/sql"
	"slices"
	"strings"
)

// NodeKind identifies the active variant of a Node.
type NodeKind string

// Node kinds.
const (
	NodeType      NodeKind = "type"
	NodeArrayType NodeKind = "array_type"
	NodeEnumType  NodeKind = "enum_type"
	NodeDefault   NodeKind = "default"
)

// Node is a single catalog fact to be compiled by a dialect Visitor.
//
// The set of variants is closed: *TypeNode, *ArrayTypeNode, *EnumTypeNode
// and *DefaultNode. Nodes are immutable once constructed.
type Node interface {
	Kind() NodeKind
	sealed()
}

// TypeNode is a scalar type name as emitted by the catalog
// (e.g. "character varying").
type TypeNode struct {
	rawName string
}

// NewTypeNode builds a TypeNode. raw must be a non-empty string.
func NewTypeNode(raw any) (*TypeNode, error) {
	name, err := rawTypeName(NodeType, raw)
	if err != nil {
		return nil, err
	}

	return &TypeNode{rawName: name}, nil
}

// RawName returns the type name exactly as the catalog emitted it.
func (n *TypeNode) RawName() string { return n.rawName }

// Kind implements Node.
func (*TypeNode) Kind() NodeKind { return NodeType }

func (*TypeNode) sealed() {}

// ArrayTypeNode is a type name denoting an array of some base type
// (e.g. "jsonb[]" or the Postgres udt form "_int4").
type ArrayTypeNode struct {
	rawName string
}

// NewArrayTypeNode builds an ArrayTypeNode. raw must be a non-empty string.
func NewArrayTypeNode(raw any) (*ArrayTypeNode, error) {
	name, err := rawTypeName(NodeArrayType, raw)
	if err != nil {
		return nil, err
	}

	return &ArrayTypeNode{rawName: name}, nil
}

// RawName returns the array type name exactly as the catalog emitted it.
func (n *ArrayTypeNode) RawName() string { return n.rawName }

// Kind implements Node.
func (*ArrayTypeNode) Kind() NodeKind { return NodeArrayType }

func (*ArrayTypeNode) sealed() {}

// EnumTypeNode is an enumerated type with its members in declared order.
type EnumTypeNode struct {
	values []string
}

// NewEnumTypeNode builds an EnumTypeNode. values must be a []string, or a
// []any whose elements are all strings. Anything else, including nil, is a
// structural error.
func NewEnumTypeNode(values any) (*EnumTypeNode, error) {
	switch v := values.(type) {
	case []string:
		if v == nil {
			return nil, structuralf(NodeEnumType, "values", "expected a sequence of strings, got nil")
		}

		return &EnumTypeNode{values: slices.Clone(v)}, nil
	case []any:
		if v == nil {
			return nil, structuralf(NodeEnumType, "values", "expected a sequence of strings, got nil")
		}

		out := make([]string, len(v))
		for i, elem := range v {
			s, ok := elem.(string)
			if !ok {
				return nil, structuralf(NodeEnumType, "values", "element %d is %T, want string", i, elem)
			}

			out[i] = s
		}

		return &EnumTypeNode{values: out}, nil
	default:
		return nil, structuralf(NodeEnumType, "values", "expected a sequence of strings, got %T", values)
	}
}

// Values returns a copy of the enum members in declared order.
func (n *EnumTypeNode) Values() []string { return slices.Clone(n.values) }

// Kind implements Node.
func (*EnumTypeNode) Kind() NodeKind { return NodeEnumType }

func (*EnumTypeNode) sealed() {}

// DefaultNode is the raw default-value expression stored in the catalog.
// A nil expression means the column has no default, which is distinct from
// an empty expression.
type DefaultNode struct {
	raw *string
}

// NewDefaultNode builds a DefaultNode from nil, a string, a *string or a
// sql.NullString.
func NewDefaultNode(raw any) (*DefaultNode, error) {
	switch v := raw.(type) {
	case nil:
		return &DefaultNode{}, nil
	case string:
		return &DefaultNode{raw: &v}, nil
	case *string:
		if v == nil {
			return &DefaultNode{}, nil
		}

		s := *v

		return &DefaultNode{raw: &s}, nil
	case sql.NullString:
		if !v.Valid {
			return &DefaultNode{}, nil
		}

		return &DefaultNode{raw: &v.String}, nil
	default:
		return nil, structuralf(NodeDefault, "raw_expression", "expected string or nil, got %T", raw)
	}
}

// RawExpression returns the expression text and whether one is present.
func (n *DefaultNode) RawExpression() (string, bool) {
	if n.raw == nil {
		return "", false
	}

	return *n.raw, true
}

// Kind implements Node.
func (*DefaultNode) Kind() NodeKind { return NodeDefault }

func (*DefaultNode) sealed() {}

// ValidateNode checks that n is a well-formed node. Nodes obtained from the
// constructors always are; nil nodes and zero-value type nodes are not.
func ValidateNode(n Node) error {
	switch v := n.(type) {
	case nil:
		return structuralf("", "", "nil node")
	case *TypeNode:
		if v == nil || v.rawName == "" {
			return structuralf(NodeType, "raw_name", "must be a non-empty string")
		}
	case *ArrayTypeNode:
		if v == nil || v.rawName == "" {
			return structuralf(NodeArrayType, "raw_name", "must be a non-empty string")
		}
	case *EnumTypeNode:
		if v == nil || v.values == nil {
			return structuralf(NodeEnumType, "values", "expected a sequence of strings, got nil")
		}
	case *DefaultNode:
		if v == nil {
			return structuralf(NodeDefault, "", "nil node")
		}
	}

	return nil
}

func rawTypeName(kind NodeKind, raw any) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return "", structuralf(kind, "raw_name", "expected string, got %T", raw)
	}

	if strings.TrimSpace(s) == "" {
		return "", structuralf(kind, "raw_name", "must be a non-empty string")
	}

	return s, nil
}
