// Package duckdb provides a sqlschema dialect for DuckDB catalogs.
package duckdb

import (
	"regexp"
	"strings"

	"github.com/rlch/sqlschema"
)

//nolint:gochecknoinits // Dialect self-registration pattern
func init() {
	sqlschema.RegisterDialect(NewDialect())
}

// Dialect implements sqlschema.Visitor for DuckDB.
type Dialect struct {
	types    *sqlschema.TypeTable
	defaults sqlschema.DefaultRules
}

// NewDialect creates a new DuckDB dialect.
func NewDialect() *Dialect {
	return &Dialect{
		types:    TypeTable(),
		defaults: DefaultRules(),
	}
}

// Name returns the dialect identifier.
func (d *Dialect) Name() string {
	return sqlschema.DialectDuckDB
}

// Visit compiles a catalog node. The options bag is accepted and ignored.
func (d *Dialect) Visit(node sqlschema.Node, _ sqlschema.Options) (sqlschema.Result, error) {
	return sqlschema.VisitTable(node, d.types, d.defaults)
}

var _ sqlschema.Visitor = (*Dialect)(nil)

var (
	typeModifiers = regexp.MustCompile(`\s*\(\s*\d+(?:\s*,\s*\d+)?\s*\)`)
	spaces        = regexp.MustCompile(`\s+`)
)

func normalize(raw string) string {
	name := strings.ToUpper(strings.TrimSpace(raw))
	name = typeModifiers.ReplaceAllString(name, "")

	return spaces.ReplaceAllString(name, " ")
}

func family(t *sqlschema.Type, names ...string) map[string]*sqlschema.Type {
	m := make(map[string]*sqlschema.Type, len(names))
	for _, n := range names {
		m[n] = t
	}

	return m
}

// TypeTable returns the DuckDB type vocabulary, including the aliases
// DuckDB accepts in DDL.
func TypeTable() *sqlschema.TypeTable {
	exact := make(map[string]*sqlschema.Type)

	for _, f := range []map[string]*sqlschema.Type{
		family(sqlschema.TypeInteger,
			"TINYINT", "SMALLINT", "INTEGER", "BIGINT", "HUGEINT",
			"UTINYINT", "USMALLINT", "UINTEGER", "UBIGINT", "UHUGEINT",
			"INT1", "INT2", "INT4", "INT8", "INT", "SHORT", "LONG", "SIGNED"),
		family(sqlschema.TypeFloat, "FLOAT", "FLOAT4", "REAL", "DOUBLE", "FLOAT8"),
		family(sqlschema.TypeDecimal, "DECIMAL", "NUMERIC"),
		family(sqlschema.TypeBoolean, "BOOLEAN", "BOOL", "LOGICAL"),
		family(sqlschema.TypeDate, "DATE"),
		family(sqlschema.TypeTime, "TIME", "TIME WITH TIME ZONE", "TIMETZ"),
		family(sqlschema.TypeNaiveDatetime,
			"TIMESTAMP", "DATETIME", "TIMESTAMP_S", "TIMESTAMP_MS", "TIMESTAMP_NS", "TIMESTAMP_US"),
		family(sqlschema.TypeUTCDatetime, "TIMESTAMP WITH TIME ZONE", "TIMESTAMPTZ"),
		family(sqlschema.TypeUUID, "UUID"),
		family(sqlschema.TypeJSON, "JSON"),
		family(sqlschema.TypeBinary, "BLOB", "BYTEA", "BINARY", "VARBINARY"),
		family(sqlschema.TypeString, "VARCHAR", "CHAR", "BPCHAR", "TEXT", "STRING", "BIT", "BITSTRING"),
	} {
		for name, t := range f {
			exact[name] = t
		}
	}

	return &sqlschema.TypeTable{
		Exact: exact,
		ArrayShortcuts: map[string]*sqlschema.Type{
			"JSON[]": sqlschema.ArrayOf(sqlschema.TypeJSON),
		},
		ArraySuffix: "[]",
		Normalize:   normalize,
	}
}

// castPattern matches CAST(<expr> AS <type>), allowing one level of type
// parameters such as DECIMAL(10,2).
var castPattern = regexp.MustCompile(`(?is)^CAST\(\s*(.+)\s+AS\s+[^()]*(?:\([^()]*\))?[^()]*\)$`)

// DefaultRules returns the DuckDB default-expression rule chain. DuckDB
// renders literal defaults of non-string columns as CAST expressions, which
// must be tested before the generic function rule.
func DefaultRules() sqlschema.DefaultRules {
	var rules sqlschema.DefaultRules

	rules = sqlschema.DefaultRules{
		{
			Name:  "null",
			Match: sqlschema.KeywordFold("NULL"),
			Apply: sqlschema.Yield(sqlschema.Absent),
		},
		{
			Name:  "empty_map",
			Match: sqlschema.PrefixFold("'{}'", "MAP {}", "MAP()"),
			Apply: sqlschema.Yield(sqlschema.EmptyMap),
		},
		{
			Name:  "empty_sequence",
			Match: sqlschema.AnyOf(sqlschema.KeywordFold("[]"), sqlschema.PrefixFold("'[]'", "[]::")),
			Apply: sqlschema.Yield(sqlschema.EmptySequence),
		},
		{
			Name:  "sequence",
			Match: sqlschema.PrefixFold("nextval("),
			Apply: sqlschema.YieldSentinel(sqlschema.DefaultAutoIncrement),
		},
		{
			Name: "current_timestamp",
			Match: sqlschema.KeywordFold(
				"CURRENT_TIMESTAMP", "now()", "get_current_timestamp()",
				"transaction_timestamp()", "current_localtimestamp()", "LOCALTIMESTAMP"),
			Apply: sqlschema.YieldSentinel(sqlschema.DefaultCurrentTimestamp),
		},
		{
			Name:  "current_date",
			Match: sqlschema.KeywordFold("CURRENT_DATE", "current_date()", "today()"),
			Apply: sqlschema.YieldSentinel(sqlschema.DefaultCurrentDate),
		},
		{
			Name:  "current_time",
			Match: sqlschema.KeywordFold("CURRENT_TIME", "get_current_time()", "LOCALTIME"),
			Apply: sqlschema.YieldSentinel(sqlschema.DefaultCurrentTime),
		},
		{
			Name:  "cast",
			Match: castPattern.MatchString,
			Apply: func(expr string) *sqlschema.Default {
				inner := castPattern.FindStringSubmatch(expr)[1]

				d := rules.ParseString(inner)
				switch d.Kind {
				case sqlschema.DefaultFunction:
					return sqlschema.FunctionDefault(expr)
				case sqlschema.DefaultUnmapped:
					return sqlschema.UnmappedDefault(expr)
				default:
					return d
				}
			},
		},
		sqlschema.FunctionCallRule(),
		sqlschema.QuotedCastRule(),
		sqlschema.QuotedRule(),
		sqlschema.IntegerRule(),
		sqlschema.FloatRule(),
		sqlschema.BooleanRule(),
	}

	return rules
}
