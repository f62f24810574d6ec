// Package sqlite provides a sqlschema dialect for SQLite catalogs.
package sqlite

import (
	"regexp"
	"strings"

	"github.com/rlch/sqlschema"
)

//nolint:gochecknoinits // Dialect self-registration pattern
func init() {
	sqlschema.RegisterDialect(NewDialect())
}

// Dialect implements sqlschema.Visitor for SQLite.
//
// SQLite stores whatever type name a column was declared with, so the exact
// table covers the common spellings and anything else falls back to SQLite's
// own type affinity rules.
type Dialect struct {
	types    *sqlschema.TypeTable
	defaults sqlschema.DefaultRules
}

// NewDialect creates a new SQLite dialect.
func NewDialect() *Dialect {
	return &Dialect{
		types:    TypeTable(),
		defaults: DefaultRules(),
	}
}

// Name returns the dialect identifier.
func (d *Dialect) Name() string {
	return sqlschema.DialectSQLite
}

// Visit compiles a catalog node. The options bag is accepted and ignored.
func (d *Dialect) Visit(node sqlschema.Node, _ sqlschema.Options) (sqlschema.Result, error) {
	return sqlschema.VisitTable(node, d.types, d.defaults)
}

var _ sqlschema.Visitor = (*Dialect)(nil)

var (
	typeModifiers = regexp.MustCompile(`\s*\([^()]*\)`)
	spaces        = regexp.MustCompile(`\s+`)
)

func normalize(raw string) string {
	name := strings.ToUpper(strings.TrimSpace(raw))
	name = typeModifiers.ReplaceAllString(name, "")

	return spaces.ReplaceAllString(name, " ")
}

// TypeTable returns the SQLite type vocabulary.
func TypeTable() *sqlschema.TypeTable {
	exact := map[string]*sqlschema.Type{
		"TEXT":              sqlschema.TypeString,
		"VARCHAR":           sqlschema.TypeString,
		"CHAR":              sqlschema.TypeString,
		"CHARACTER":         sqlschema.TypeString,
		"VARYING CHARACTER": sqlschema.TypeString,
		"NCHAR":             sqlschema.TypeString,
		"NATIVE CHARACTER":  sqlschema.TypeString,
		"NVARCHAR":          sqlschema.TypeString,
		"CLOB":              sqlschema.TypeString,
		"REAL":              sqlschema.TypeFloat,
		"DOUBLE":            sqlschema.TypeFloat,
		"DOUBLE PRECISION":  sqlschema.TypeFloat,
		"FLOAT":             sqlschema.TypeFloat,
		"NUMERIC":           sqlschema.TypeDecimal,
		"DECIMAL":           sqlschema.TypeDecimal,
		"BOOLEAN":           sqlschema.TypeBoolean,
		"BOOL":              sqlschema.TypeBoolean,
		"DATE":              sqlschema.TypeDate,
		"TIME":              sqlschema.TypeTime,
		"DATETIME":          sqlschema.TypeNaiveDatetime,
		"TIMESTAMP":         sqlschema.TypeNaiveDatetime,
		"BLOB":              sqlschema.TypeBinary,
		"JSON":              sqlschema.TypeJSON,
		"JSONB":             sqlschema.TypeJSONB,
		"UUID":              sqlschema.TypeUUID,
	}

	for _, name := range []string{
		"INTEGER", "INT", "TINYINT", "SMALLINT", "MEDIUMINT", "BIGINT",
		"UNSIGNED BIG INT", "INT2", "INT8",
	} {
		exact[name] = sqlschema.TypeInteger
	}

	return &sqlschema.TypeTable{
		Exact:     exact,
		Normalize: normalize,
		Infer:     affinity,
	}
}

// affinity applies SQLite's column affinity rules to an unknown declared
// type. NUMERIC affinity, the final catch-all, is left unmapped.
func affinity(name string) *sqlschema.Type {
	switch {
	case strings.Contains(name, "INT"):
		return sqlschema.TypeInteger.Clone()
	case strings.Contains(name, "CHAR"), strings.Contains(name, "CLOB"), strings.Contains(name, "TEXT"):
		return sqlschema.TypeString.Clone()
	case strings.Contains(name, "BLOB"):
		return sqlschema.TypeBinary.Clone()
	case strings.Contains(name, "REAL"), strings.Contains(name, "FLOA"), strings.Contains(name, "DOUB"):
		return sqlschema.TypeFloat.Clone()
	default:
		return nil
	}
}

// DefaultRules returns the SQLite default-expression rule chain. SQLite
// keeps the parentheses of expression defaults, so a parenthesised default
// is unwrapped and parsed again from the top.
func DefaultRules() sqlschema.DefaultRules {
	var rules sqlschema.DefaultRules

	rules = sqlschema.DefaultRules{
		{
			Name: "parenthesised",
			Match: func(expr string) bool {
				return sqlschema.UnwrapParens(expr) != expr
			},
			Apply: func(expr string) *sqlschema.Default {
				return rules.ParseString(sqlschema.UnwrapParens(expr))
			},
		},
		{
			Name:  "null",
			Match: sqlschema.KeywordFold("NULL"),
			Apply: sqlschema.Yield(sqlschema.Absent),
		},
		{
			Name:  "empty_map",
			Match: sqlschema.KeywordFold("'{}'"),
			Apply: sqlschema.Yield(sqlschema.EmptyMap),
		},
		{
			Name:  "empty_sequence",
			Match: sqlschema.KeywordFold("'[]'"),
			Apply: sqlschema.Yield(sqlschema.EmptySequence),
		},
		{
			Name: "current_timestamp",
			Match: sqlschema.AnyOf(
				sqlschema.KeywordFold("CURRENT_TIMESTAMP"),
				sqlschema.Pattern(`(?i)^(?:datetime|unixepoch|julianday)\(\s*'now'\s*(?:,[^)]*)?\)$`),
			),
			Apply: sqlschema.YieldSentinel(sqlschema.DefaultCurrentTimestamp),
		},
		{
			Name: "current_date",
			Match: sqlschema.AnyOf(
				sqlschema.KeywordFold("CURRENT_DATE"),
				sqlschema.Pattern(`(?i)^date\(\s*'now'\s*(?:,[^)]*)?\)$`),
			),
			Apply: sqlschema.YieldSentinel(sqlschema.DefaultCurrentDate),
		},
		{
			Name: "current_time",
			Match: sqlschema.AnyOf(
				sqlschema.KeywordFold("CURRENT_TIME"),
				sqlschema.Pattern(`(?i)^time\(\s*'now'\s*(?:,[^)]*)?\)$`),
			),
			Apply: sqlschema.YieldSentinel(sqlschema.DefaultCurrentTime),
		},
		sqlschema.FunctionCallRule(),
		sqlschema.QuotedRule(),
		sqlschema.IntegerRule(),
		sqlschema.FloatRule(),
		sqlschema.BooleanRule(),
	}

	return rules
}
