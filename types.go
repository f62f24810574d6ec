package sqlschema

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Type parsing errors.
var (
	ErrEmptyTypeString  = errors.New("empty type string")
	ErrInvalidArrayType = errors.New("invalid array type")
	ErrInvalidEnumType  = errors.New("invalid enum type")
	ErrUnrecognizedType = errors.New("unrecognized type")
)

// TypeKind is a canonical, dialect-independent semantic type.
type TypeKind string

// Type kind constants.
const (
	TypeKindString        TypeKind = "string"
	TypeKindInteger       TypeKind = "integer"
	TypeKindFloat         TypeKind = "float"
	TypeKindDecimal       TypeKind = "decimal"
	TypeKindBoolean       TypeKind = "boolean"
	TypeKindDate          TypeKind = "date"
	TypeKindTime          TypeKind = "time"
	TypeKindNaiveDatetime TypeKind = "naive_datetime"
	TypeKindUTCDatetime   TypeKind = "utc_datetime"
	TypeKindUUID          TypeKind = "uuid"
	TypeKindBinary        TypeKind = "binary"
	TypeKindJSON          TypeKind = "json"
	TypeKindJSONB         TypeKind = "jsonb"
	TypeKindEnum          TypeKind = "enum"  // enum(values)
	TypeKindArray         TypeKind = "array" // array(elem)
	TypeKindUnmapped      TypeKind = "unmapped"
)

var scalarKinds = []TypeKind{
	TypeKindString, TypeKindInteger, TypeKindFloat, TypeKindDecimal,
	TypeKindBoolean, TypeKindDate, TypeKindTime, TypeKindNaiveDatetime,
	TypeKindUTCDatetime, TypeKindUUID, TypeKindBinary, TypeKindJSON, TypeKindJSONB,
}

// Type is a canonical semantic type. It is recursive so that arrays of
// arrays and arrays of unmapped types can be represented.
type Type struct {
	// Kind is the category of this type.
	Kind TypeKind

	// CaseInsensitive marks a string type whose comparisons ignore case.
	CaseInsensitive bool

	// Values are the enum members, in declared order. Only set for enums.
	Values []string

	// Elem is the element type of an array.
	Elem *Type

	// Raw is the catalog type name of an unmapped type.
	Raw string
}

// String renders the type in the form accepted by ParseTypeString.
//
//	integer
//	string(ci)
//	array(array(integer))
//	enum("a","b")
//	unmapped("tsrange")
func (t *Type) String() string {
	if t == nil {
		return ""
	}

	switch t.Kind {
	case TypeKindString:
		if t.CaseInsensitive {
			return "string(ci)"
		}

		return "string"
	case TypeKindArray:
		return "array(" + t.Elem.String() + ")"
	case TypeKindEnum:
		quoted := make([]string, len(t.Values))
		for i, v := range t.Values {
			quoted[i] = strconv.Quote(v)
		}

		return "enum(" + strings.Join(quoted, ",") + ")"
	case TypeKindUnmapped:
		return "unmapped(" + strconv.Quote(t.Raw) + ")"
	default:
		return string(t.Kind)
	}
}

// Equal reports whether t and o denote the same canonical type.
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}

	if t.Kind != o.Kind || t.CaseInsensitive != o.CaseInsensitive || t.Raw != o.Raw {
		return false
	}

	if !slices.Equal(t.Values, o.Values) {
		return false
	}

	return t.Elem.Equal(o.Elem)
}

// IsUnmapped reports whether t, or any element type within it, is unmapped.
func (t *Type) IsUnmapped() bool {
	if t == nil {
		return false
	}

	if t.Kind == TypeKindUnmapped {
		return true
	}

	return t.Elem.IsUnmapped()
}

// ParseTypeString parses the textual form produced by Type.String.
func ParseTypeString(s string) (*Type, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyTypeString
	}

	return parseType(s)
}

// parseType recursively parses a type string.
func parseType(s string) (*Type, error) {
	if inner, ok := unwrapCall(s, "array"); ok {
		if strings.TrimSpace(inner) == "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidArrayType, s)
		}

		elem, err := parseType(strings.TrimSpace(inner))
		if err != nil {
			return nil, err
		}

		return ArrayOf(elem), nil
	}

	if inner, ok := unwrapCall(s, "enum"); ok {
		values, err := parseQuotedList(inner)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidEnumType, s, err)
		}

		return EnumOf(values...), nil
	}

	if inner, ok := unwrapCall(s, "unmapped"); ok {
		raw, err := strconv.Unquote(strings.TrimSpace(inner))
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognizedType, s)
		}

		return Unmapped(raw), nil
	}

	if s == "string(ci)" {
		return CaseInsensitiveString(), nil
	}

	for _, kind := range scalarKinds {
		if s == string(kind) {
			return &Type{Kind: kind}, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnrecognizedType, s)
}

// unwrapCall returns the text between "name(" and the final ")".
func unwrapCall(s, name string) (string, bool) {
	if !strings.HasPrefix(s, name+"(") || !strings.HasSuffix(s, ")") {
		return "", false
	}

	return s[len(name)+1 : len(s)-1], true
}

// parseQuotedList parses a comma separated list of Go-quoted strings.
func parseQuotedList(s string) ([]string, error) {
	values := make([]string, 0)

	rest := strings.TrimSpace(s)
	for rest != "" {
		quoted, err := strconv.QuotedPrefix(rest)
		if err != nil {
			return nil, err
		}

		v, err := strconv.Unquote(quoted)
		if err != nil {
			return nil, err
		}

		values = append(values, v)

		rest = strings.TrimSpace(rest[len(quoted):])
		if rest == "" {
			break
		}

		if rest[0] != ',' {
			return nil, fmt.Errorf("expected ',' at %q", rest)
		}

		rest = strings.TrimSpace(rest[1:])
	}

	return values, nil
}

// Scalar type constructors for convenience. Callers must not mutate them.
var (
	TypeString        = &Type{Kind: TypeKindString}
	TypeInteger       = &Type{Kind: TypeKindInteger}
	TypeFloat         = &Type{Kind: TypeKindFloat}
	TypeDecimal       = &Type{Kind: TypeKindDecimal}
	TypeBoolean       = &Type{Kind: TypeKindBoolean}
	TypeDate          = &Type{Kind: TypeKindDate}
	TypeTime          = &Type{Kind: TypeKindTime}
	TypeNaiveDatetime = &Type{Kind: TypeKindNaiveDatetime}
	TypeUTCDatetime   = &Type{Kind: TypeKindUTCDatetime}
	TypeUUID          = &Type{Kind: TypeKindUUID}
	TypeBinary        = &Type{Kind: TypeKindBinary}
	TypeJSON          = &Type{Kind: TypeKindJSON}
	TypeJSONB         = &Type{Kind: TypeKindJSONB}
)

// CaseInsensitiveString creates a string type that compares without case.
func CaseInsensitiveString() *Type {
	return &Type{Kind: TypeKindString, CaseInsensitive: true}
}

// ArrayOf creates an array type.
func ArrayOf(elem *Type) *Type {
	return &Type{Kind: TypeKindArray, Elem: elem}
}

// EnumOf creates an enum type preserving the order of values.
func EnumOf(values ...string) *Type {
	if values == nil {
		values = []string{}
	}

	return &Type{Kind: TypeKindEnum, Values: slices.Clone(values)}
}

// Unmapped creates a passthrough type carrying the raw catalog name.
func Unmapped(raw string) *Type {
	return &Type{Kind: TypeKindUnmapped, Raw: raw}
}

// Clone returns a deep copy of t.
func (t *Type) Clone() *Type {
	if t == nil {
		return nil
	}

	c := *t
	c.Values = slices.Clone(t.Values)
	c.Elem = t.Elem.Clone()

	return &c
}
