package sqlschema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

func marshalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// MarshalText renders the type as by String.
func (t *Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses the form produced by MarshalText.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseTypeString(string(text))
	if err != nil {
		return err
	}

	*t = *parsed

	return nil
}

// defaultDoc is the serialised shape of a Default. Value is a pointer so
// that false, 0 and empty composites survive omitempty.
type defaultDoc struct {
	Kind  DefaultKind `yaml:"kind"            json:"kind"`
	Value *any        `yaml:"value,omitempty" json:"value,omitempty"`
	Raw   string      `yaml:"raw,omitempty"   json:"raw,omitempty"`
}

func (d *Default) doc() defaultDoc {
	doc := defaultDoc{Kind: d.Kind, Raw: d.Raw}
	if d.Kind == DefaultLiteral {
		v := d.Value
		doc.Value = &v
	}

	return doc
}

// MarshalYAML implements yaml.Marshaler. Whole-number floats keep a
// fractional part so that they decode as float64, not int64.
func (d *Default) MarshalYAML() (any, error) {
	doc := d.doc()

	if f, ok := d.Value.(float64); ok && doc.Value != nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
		var v any = &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!float",
			Value: strconv.FormatFloat(f, 'f', 1, 64),
		}
		doc.Value = &v
	}

	return doc, nil
}

// MarshalJSON implements json.Marshaler.
func (d *Default) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.doc())
}

// UnmarshalYAML implements yaml.Unmarshaler. Literal values are normalised
// to the types the dialects produce (int64, float64, string, bool, empty
// map, empty sequence).
func (d *Default) UnmarshalYAML(node *yaml.Node) error {
	var doc defaultDoc
	if err := node.Decode(&doc); err != nil {
		return err
	}

	*d = Default{Kind: doc.Kind, Raw: doc.Raw}

	if doc.Kind != DefaultLiteral {
		return nil
	}

	if doc.Value == nil {
		return fmt.Errorf("literal default without a value at line %d", node.Line)
	}

	v, err := normalizeLiteral(*doc.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}

	d.Value = v

	return nil
}

func normalizeLiteral(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int64, float64, string, bool:
		return x, nil
	case map[string]any:
		if len(x) != 0 {
			return nil, fmt.Errorf("literal default map must be empty, has %d keys", len(x))
		}

		return map[string]any{}, nil
	case []any:
		if len(x) != 0 {
			return nil, fmt.Errorf("literal default sequence must be empty, has %d elements", len(x))
		}

		return []any{}, nil
	default:
		return nil, fmt.Errorf("unsupported literal default %T", v)
	}
}
