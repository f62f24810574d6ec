package sqlschema

import (
	"fmt"
	"reflect"
)

// DefaultKind classifies a compiled column default.
type DefaultKind string

// Default kinds.
const (
	DefaultAbsent           DefaultKind = "absent"
	DefaultLiteral          DefaultKind = "literal"
	DefaultAutoIncrement    DefaultKind = "auto_increment"
	DefaultCurrentTimestamp DefaultKind = "current_timestamp"
	DefaultCurrentDate      DefaultKind = "current_date"
	DefaultCurrentTime      DefaultKind = "current_time"
	DefaultFunction         DefaultKind = "function_default"
	DefaultUnmapped         DefaultKind = "unmapped"
)

// Default is a canonical column default: absent, a concrete literal, a
// sentinel whose value is only known at insert time, or an unmapped
// passthrough of the trimmed catalog text.
type Default struct {
	Kind DefaultKind

	// Value holds the literal for DefaultLiteral. It is one of int64,
	// float64, string, bool, map[string]any (always empty) or []any (always
	// empty).
	Value any

	// Raw is the expression text for DefaultFunction and DefaultUnmapped.
	Raw string
}

// Absent returns the default of a column that has none.
func Absent() *Default {
	return &Default{Kind: DefaultAbsent}
}

// Literal returns a literal default.
func Literal(v any) *Default {
	return &Default{Kind: DefaultLiteral, Value: v}
}

// EmptyMap returns the canonical empty map literal.
func EmptyMap() *Default {
	return Literal(map[string]any{})
}

// EmptySequence returns the canonical empty sequence literal.
func EmptySequence() *Default {
	return Literal([]any{})
}

// Sentinel returns a sentinel default of the given kind.
func Sentinel(kind DefaultKind) *Default {
	return &Default{Kind: kind}
}

// FunctionDefault returns a default computed by a non-constant expression.
func FunctionDefault(expr string) *Default {
	return &Default{Kind: DefaultFunction, Raw: expr}
}

// UnmappedDefault returns a passthrough of expression text no rule matched.
func UnmappedDefault(expr string) *Default {
	return &Default{Kind: DefaultUnmapped, Raw: expr}
}

// IsSentinel reports whether d stands in for a value computed on write.
func (d *Default) IsSentinel() bool {
	if d == nil {
		return false
	}

	switch d.Kind {
	case DefaultAutoIncrement, DefaultCurrentTimestamp, DefaultCurrentDate,
		DefaultCurrentTime, DefaultFunction:
		return true
	case DefaultAbsent, DefaultLiteral, DefaultUnmapped:
		return false
	}

	return false
}

// ResolvedOnWrite reports whether the concrete value is resolved when a row
// is written rather than at introspection time.
func (d *Default) ResolvedOnWrite() bool {
	return d.IsSentinel()
}

// Equal reports whether d and o are the same canonical default.
func (d *Default) Equal(o *Default) bool {
	if d == nil || o == nil {
		return d == o
	}

	return d.Kind == o.Kind && d.Raw == o.Raw && reflect.DeepEqual(d.Value, o.Value)
}

func (d *Default) String() string {
	if d == nil {
		return ""
	}

	switch d.Kind {
	case DefaultLiteral:
		return fmt.Sprintf("literal(%#v)", d.Value)
	case DefaultFunction, DefaultUnmapped:
		return fmt.Sprintf("%s(%q)", d.Kind, d.Raw)
	case DefaultAbsent, DefaultAutoIncrement, DefaultCurrentTimestamp,
		DefaultCurrentDate, DefaultCurrentTime:
		return string(d.Kind)
	}

	return string(d.Kind)
}
