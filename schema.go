package sqlschema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Schema is the normalized, dialect-independent description of one table.
// It is built once per compilation pass and must not be mutated afterwards.
type Schema struct {
	// Source is the catalog table name.
	Source string `yaml:"source" json:"source"`

	PrimaryKey  PrimaryKey   `yaml:"primary_key"            json:"primary_key"`
	ForeignKeys []ForeignKey `yaml:"foreign_keys,omitempty" json:"foreign_keys,omitempty"`
	Fields      []*Field     `yaml:"fields"                 json:"fields"`
	Indices     []Index      `yaml:"indices,omitempty"      json:"indices,omitempty"`
}

// Field returns the field with the given name, or nil.
func (s *Schema) Field(name string) *Field {
	for _, f := range s.Fields {
		if f.Name == name {
			return f
		}
	}

	return nil
}

// FieldBySource returns the field compiled from the given catalog column, or nil.
func (s *Schema) FieldBySource(column string) *Field {
	for _, f := range s.Fields {
		if f.Meta.Source == column {
			return f
		}
	}

	return nil
}

// UnmappedFields returns the fields whose type, or element type, is unmapped.
func (s *Schema) UnmappedFields() []*Field {
	var out []*Field

	for _, f := range s.Fields {
		if f.Type.IsUnmapped() {
			out = append(out, f)
		}
	}

	return out
}

// LinkPrimaryKey points the primary key at the schema's own fields. Decoded
// schemas only carry key field names; this restores the shared pointers.
func (s *Schema) LinkPrimaryKey() error {
	linked := make([]*Field, len(s.PrimaryKey.Fields))

	for i, pk := range s.PrimaryKey.Fields {
		f := s.Field(pk.Name)
		if f == nil {
			return fmt.Errorf("%s: primary key field %q: %w", s.Source, pk.Name, ErrUnknownField)
		}

		linked[i] = f
	}

	s.PrimaryKey.Fields = linked

	return nil
}

// PrimaryKey is the ordered list of fields composing a table's key. It may be
// empty for keyless tables.
type PrimaryKey struct {
	Fields []*Field
}

// Names returns the key field names in key order.
func (pk PrimaryKey) Names() []string {
	names := make([]string, len(pk.Fields))
	for i, f := range pk.Fields {
		names[i] = f.Name
	}

	return names
}

// MarshalYAML encodes the key as its field names.
func (pk PrimaryKey) MarshalYAML() (any, error) {
	return pk.Names(), nil
}

// MarshalJSON encodes the key as its field names.
func (pk PrimaryKey) MarshalJSON() ([]byte, error) {
	return marshalJSON(pk.Names())
}

// UnmarshalYAML decodes a list of field names. The fields are placeholders
// until Schema.LinkPrimaryKey is called.
func (pk *PrimaryKey) UnmarshalYAML(node *yaml.Node) error {
	var names []string
	if err := node.Decode(&names); err != nil {
		return err
	}

	pk.Fields = make([]*Field, len(names))
	for i, n := range names {
		pk.Fields[i] = &Field{Name: n}
	}

	return nil
}

// Field is one compiled column.
type Field struct {
	Name string    `yaml:"name" json:"name"`
	Type *Type     `yaml:"type" json:"type"`
	Meta FieldMeta `yaml:"meta" json:"meta"`
}

// FieldMeta carries the per-column facts besides the type.
type FieldMeta struct {
	// Source is the catalog column name.
	Source string `yaml:"source" json:"source"`

	Nullable bool     `yaml:"nullable"         json:"nullable"`
	Default  *Default `yaml:"default"          json:"default"`
	Checks   []string `yaml:"checks,omitempty" json:"checks,omitempty"`

	PrimaryKey bool `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
	ForeignKey bool `yaml:"foreign_key,omitempty" json:"foreign_key,omitempty"`

	// Association marks a column that alone references another table, and
	// so can back a belongs-to association.
	Association bool `yaml:"association,omitempty" json:"association,omitempty"`
}

// ForeignKey is a compiled foreign key. Column names are catalog names.
type ForeignKey struct {
	Name              string   `yaml:"name,omitempty"     json:"name,omitempty"`
	Columns           []string `yaml:"columns"            json:"columns"`
	References        string   `yaml:"references"         json:"references"`
	ReferencedColumns []string `yaml:"referenced_columns" json:"referenced_columns"`
}

// Index is a compiled index. Column names are catalog names.
type Index struct {
	Name    string   `yaml:"name"             json:"name"`
	Columns []string `yaml:"columns"          json:"columns"`
	Unique  bool     `yaml:"unique,omitempty" json:"unique,omitempty"`
}
