package sqlschema

// TableInput is the raw catalog description of one table, exactly as a
// catalog reader emitted it. Nothing in it has been normalised.
type TableInput struct {
	Name        string            `yaml:"name"                   json:"name"`
	Columns     []ColumnInput     `yaml:"columns"                json:"columns"`
	PrimaryKey  []string          `yaml:"primary_key,omitempty"  json:"primary_key,omitempty"`
	ForeignKeys []ForeignKeyInput `yaml:"foreign_keys,omitempty" json:"foreign_keys,omitempty"`
	Indices     []IndexInput      `yaml:"indices,omitempty"      json:"indices,omitempty"`
}

// ColumnInput is one raw catalog column.
type ColumnInput struct {
	Name string `yaml:"name" json:"name"`

	// Type is the raw type name. Ignored when Enum is set.
	Type string `yaml:"type,omitempty" json:"type,omitempty"`

	// Array marks Type as an array type name (e.g. Postgres "_int4" from
	// udt_name, or "ARRAY" resolved to its element).
	Array bool `yaml:"array,omitempty" json:"array,omitempty"`

	// Enum holds the declared members of an enumerated column type.
	Enum []string `yaml:"enum,omitempty" json:"enum,omitempty"`

	// Default is the raw default expression; nil when the column has none.
	Default *string `yaml:"default,omitempty" json:"default,omitempty"`

	Nullable bool     `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	Identity bool     `yaml:"identity,omitempty" json:"identity,omitempty"`
	Checks   []string `yaml:"checks,omitempty"   json:"checks,omitempty"`
}

// ForeignKeyInput is a raw foreign key constraint.
type ForeignKeyInput struct {
	Name              string   `yaml:"name,omitempty"     json:"name,omitempty"`
	Columns           []string `yaml:"columns"            json:"columns"`
	References        string   `yaml:"references"         json:"references"`
	ReferencedColumns []string `yaml:"referenced_columns" json:"referenced_columns"`
}

// IndexInput is a raw index definition.
type IndexInput struct {
	Name    string   `yaml:"name"             json:"name"`
	Columns []string `yaml:"columns"          json:"columns"`
	Unique  bool     `yaml:"unique,omitempty" json:"unique,omitempty"`
}

// ColumnNodes holds the AST nodes built from one column.
type ColumnNodes struct {
	Type    Node
	Default *DefaultNode
}

// Nodes builds the type and default nodes for the column.
func (c ColumnInput) Nodes() (ColumnNodes, error) {
	var (
		typ Node
		err error
	)

	switch {
	case c.Enum != nil && c.Array:
		return ColumnNodes{}, structuralf(NodeEnumType, "values", "column %q is both an enum and an array", c.Name)
	case c.Enum != nil:
		typ, err = NewEnumTypeNode(c.Enum)
	case c.Array:
		typ, err = NewArrayTypeNode(c.Type)
	default:
		typ, err = NewTypeNode(c.Type)
	}

	if err != nil {
		return ColumnNodes{}, err
	}

	def, err := NewDefaultNode(c.Default)
	if err != nil {
		return ColumnNodes{}, err
	}

	return ColumnNodes{Type: typ, Default: def}, nil
}

// Column returns the column with the given name.
func (t TableInput) Column(name string) (ColumnInput, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}

	return ColumnInput{}, false
}
