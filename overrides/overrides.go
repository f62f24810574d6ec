// Package overrides replaces dialect-compiled column types using configured
// expr-lang rules.
//
// Each rule pairs a boolean expression with a canonical type string:
//
//	overrides:
//	  - match: dialect == "postgres" && raw == "tsrange"
//	    type: string
//	  - match: table == "users" && column == "email"
//	    type: string(ci)
//
// Rules are tried in order; the first whose expression is true wins.
package overrides

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/rlch/sqlschema"
)

// ErrNotBool is returned when a rule's expression yields a non-boolean value.
var ErrNotBool = errors.New("override expression did not return a bool")

// Env is the environment a rule expression is evaluated against.
type Env struct {
	Dialect  string   `expr:"dialect"`
	Table    string   `expr:"table"`
	Column   string   `expr:"column"`
	Raw      string   `expr:"raw"`
	Type     string   `expr:"type"`
	Array    bool     `expr:"array"`
	Enum     []string `expr:"enum"`
	Nullable bool     `expr:"nullable"`
	Identity bool     `expr:"identity"`
	Unmapped bool     `expr:"unmapped"`
}

// NewEnv builds the environment for a column.
func NewEnv(col sqlschema.ColumnContext) Env {
	return Env{
		Dialect:  col.Dialect,
		Table:    col.Table,
		Column:   col.Column.Name,
		Raw:      col.Column.Type,
		Type:     col.Type.String(),
		Array:    col.Column.Array,
		Enum:     col.Column.Enum,
		Nullable: col.Column.Nullable,
		Identity: col.Column.Identity,
		Unmapped: col.Type.IsUnmapped(),
	}
}

// Rule is one compiled override.
type Rule struct {
	Match string
	Type  *sqlschema.Type

	program *vm.Program
}

// Resolver is a sqlschema.TypeResolver backed by override rules.
type Resolver struct {
	rules []Rule
}

var _ sqlschema.TypeResolver = (*Resolver)(nil)

// New compiles the configured overrides. Expressions are type-checked
// against Env and must return a bool.
func New(cfgs []sqlschema.OverrideConfig) (*Resolver, error) {
	r := &Resolver{rules: make([]Rule, 0, len(cfgs))}

	for i, cfg := range cfgs {
		typ, err := sqlschema.ParseTypeString(cfg.Type)
		if err != nil {
			return nil, fmt.Errorf("overrides[%d]: type: %w", i, err)
		}

		program, err := expr.Compile(cfg.Match, expr.Env(Env{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("overrides[%d]: match: %w", i, err)
		}

		r.rules = append(r.rules, Rule{Match: cfg.Match, Type: typ, program: program})
	}

	return r, nil
}

// Rules returns the compiled rules in evaluation order.
func (r *Resolver) Rules() []Rule {
	return r.rules
}

// ResolveType returns the type of the first matching rule, or nil.
func (r *Resolver) ResolveType(col sqlschema.ColumnContext) (*sqlschema.Type, error) {
	if len(r.rules) == 0 {
		return nil, nil //nolint:nilnil // nil type keeps the dialect's type
	}

	env := NewEnv(col)

	for _, rule := range r.rules {
		out, err := expr.Run(rule.program, env)
		if err != nil {
			return nil, fmt.Errorf("override %q: %w", rule.Match, err)
		}

		matched, ok := out.(bool)
		if !ok {
			return nil, fmt.Errorf("override %q: %w", rule.Match, ErrNotBool)
		}

		if matched {
			return rule.Type.Clone(), nil
		}
	}

	return nil, nil //nolint:nilnil // nil type keeps the dialect's type
}
