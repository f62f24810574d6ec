package duckdb

import (
	"database/sql"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/rlch/sqlschema"
)

// duckdb_constraints() constraint types.
const (
	constraintPrimaryKey = "PRIMARY KEY"
	constraintForeignKey = "FOREIGN KEY"
	constraintUnique     = "UNIQUE"
	constraintCheck      = "CHECK"
)

type columnRow struct {
	name     string
	dataType string
	def      sql.NullString
	nullable bool
}

type constraintRow struct {
	kind              string
	text              string
	columns           list
	references        sql.NullString
	referencedColumns list
}

// list scans a DuckDB LIST(VARCHAR) value.
type list []string

// Scan implements sql.Scanner.
func (l *list) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
	case []string:
		*l = slices.Clone(v)
	case []any:
		out := make([]string, len(v))
		for i, e := range v {
			out[i] = fmt.Sprint(e)
		}

		*l = out
	default:
		return fmt.Errorf("duckdb: cannot scan %T into a list", src)
	}

	return nil
}

// parseEnum extracts the members of an inline ENUM('a', 'b') type.
func parseEnum(dataType string) ([]string, bool) {
	s := strings.TrimSpace(dataType)
	if len(s) < len("ENUM()") || !strings.EqualFold(s[:5], "ENUM(") || !strings.HasSuffix(s, ")") {
		return nil, false
	}

	var (
		values []string
		cur    strings.Builder
		quoted bool
	)

	body := s[5 : len(s)-1]

	for i := 0; i < len(body); i++ {
		c := body[i]

		switch {
		case quoted && c == '\'' && i+1 < len(body) && body[i+1] == '\'':
			cur.WriteByte('\'')
			i++
		case c == '\'':
			quoted = !quoted
			if !quoted {
				values = append(values, cur.String())
				cur.Reset()
			}
		case quoted:
			cur.WriteByte(c)
		case c == ',' || c == ' ':
			// separator
		default:
			return nil, false
		}
	}

	if quoted {
		return nil, false
	}

	if values == nil {
		values = []string{}
	}

	return values, true
}

var indexTarget = regexp.MustCompile(`(?is)\bON\s+(?:"(?:[^"]|"")*"|[\w.]+)\s*\((.*)\)\s*;?\s*$`)

// indexColumns extracts the plain column members of a CREATE INDEX
// statement. Expression members are dropped.
func indexColumns(ddl string) []string {
	m := indexTarget.FindStringSubmatch(ddl)
	if m == nil {
		return nil
	}

	var cols []string

	for _, member := range splitTopLevel(m[1]) {
		member = strings.TrimSpace(member)

		switch {
		case strings.HasPrefix(member, `"`) && strings.HasSuffix(member, `"`) && len(member) >= 2:
			cols = append(cols, strings.ReplaceAll(member[1:len(member)-1], `""`, `"`))
		case member != "" && !strings.ContainsAny(member, "() '"):
			cols = append(cols, member)
		}
	}

	return cols
}

func splitTopLevel(s string) []string {
	var (
		parts []string
		depth int
		start int
	)

	for i, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}

	return append(parts, s[start:])
}

// buildTable assembles the raw catalog rows of one table. enums holds the
// user-defined enum types keyed by upper-cased name.
func buildTable(
	name string,
	cols []columnRow,
	enums map[string][]string,
	constraints []constraintRow,
	indexes []sqlschema.IndexInput,
) *sqlschema.TableInput {
	t := &sqlschema.TableInput{
		Name:    name,
		Columns: make([]sqlschema.ColumnInput, 0, len(cols)),
		Indices: indexes,
	}

	checks := make(map[string][]string)

	for _, c := range constraints {
		switch c.kind {
		case constraintPrimaryKey:
			if t.PrimaryKey == nil {
				t.PrimaryKey = slices.Clone(c.columns)
			}
		case constraintForeignKey:
			t.ForeignKeys = append(t.ForeignKeys, sqlschema.ForeignKeyInput{
				Name:              fmt.Sprintf("%s_fk_%d", name, len(t.ForeignKeys)),
				Columns:           slices.Clone(c.columns),
				References:        c.references.String,
				ReferencedColumns: slices.Clone(c.referencedColumns),
			})
		case constraintUnique:
			t.Indices = append(t.Indices, sqlschema.IndexInput{
				Name:    name + "_" + strings.Join(c.columns, "_") + "_key",
				Columns: slices.Clone(c.columns),
				Unique:  true,
			})
		case constraintCheck:
			for _, col := range c.columns {
				checks[col] = append(checks[col], c.text)
			}
		}
	}

	for _, c := range cols {
		col := sqlschema.ColumnInput{
			Name:     c.name,
			Nullable: c.nullable,
			Checks:   checks[c.name],
		}

		if values, ok := parseEnum(c.dataType); ok {
			col.Enum = values
		} else if values, ok := enums[strings.ToUpper(c.dataType)]; ok {
			col.Enum = slices.Clone(values)
		} else {
			col.Type = c.dataType
		}

		if c.def.Valid {
			def := c.def.String
			col.Default = &def
		}

		t.Columns = append(t.Columns, col)
	}

	return t
}
