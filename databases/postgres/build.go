package postgres

import (
	"database/sql"
	"slices"

	"github.com/rlch/sqlschema"
)

// information_schema.columns.data_type values that defer to udt_name.
const (
	dataTypeArray       = "ARRAY"
	dataTypeUserDefined = "USER-DEFINED"
)

type columnRow struct {
	name      string
	dataType  string
	udtSchema string
	udtName   string
	def       sql.NullString
	nullable  bool
	identity  bool
}

// enumKey identifies an enum type. Names are only unique per schema.
type enumKey struct {
	schema string
	name   string
}

type foreignKeyRow struct {
	name             string
	column           string
	references       string
	referencedColumn string
}

type checkRow struct {
	column string
	clause string
}

type indexRow struct {
	name   string
	unique bool
	column string
}

// catalog is everything read for one table.
type catalog struct {
	columns     []columnRow
	enums       map[enumKey][]string
	primaryKey  []string
	foreignKeys []foreignKeyRow
	checks      []checkRow
	indexes     []indexRow
}

// buildTable assembles the raw catalog rows of one table. Rows of one
// constraint or index arrive contiguous and in key order.
func buildTable(name string, c catalog) *sqlschema.TableInput {
	t := &sqlschema.TableInput{
		Name:       name,
		Columns:    make([]sqlschema.ColumnInput, 0, len(c.columns)),
		PrimaryKey: slices.Clone(c.primaryKey),
	}

	checks := make(map[string][]string)
	for _, ch := range c.checks {
		checks[ch.column] = append(checks[ch.column], ch.clause)
	}

	for _, row := range c.columns {
		col := sqlschema.ColumnInput{
			Name:     row.name,
			Nullable: row.nullable,
			Identity: row.identity,
			Checks:   checks[row.name],
		}

		switch row.dataType {
		case dataTypeArray:
			col.Type = row.udtName
			col.Array = true
		case dataTypeUserDefined:
			if values, ok := c.enums[enumKey{schema: row.udtSchema, name: row.udtName}]; ok {
				col.Enum = slices.Clone(values)
			} else {
				col.Type = row.udtName
			}
		default:
			col.Type = row.dataType
		}

		if row.def.Valid {
			def := row.def.String
			col.Default = &def
		}

		t.Columns = append(t.Columns, col)
	}

	for _, r := range c.foreignKeys {
		n := len(t.ForeignKeys)
		if n == 0 || t.ForeignKeys[n-1].Name != r.name {
			t.ForeignKeys = append(t.ForeignKeys, sqlschema.ForeignKeyInput{
				Name:       r.name,
				References: r.references,
			})
			n++
		}

		fk := &t.ForeignKeys[n-1]
		fk.Columns = append(fk.Columns, r.column)
		fk.ReferencedColumns = append(fk.ReferencedColumns, r.referencedColumn)
	}

	for _, r := range c.indexes {
		n := len(t.Indices)
		if n == 0 || t.Indices[n-1].Name != r.name {
			t.Indices = append(t.Indices, sqlschema.IndexInput{Name: r.name, Unique: r.unique})
			n++
		}

		t.Indices[n-1].Columns = append(t.Indices[n-1].Columns, r.column)
	}

	return t
}
