// Package postgres provides a sqlschema dialect for PostgreSQL catalogs.
package postgres

import (
	"regexp"
	"strings"

	"github.com/rlch/sqlschema"
)

//nolint:gochecknoinits // Dialect self-registration pattern
func init() {
	sqlschema.RegisterDialect(NewDialect())
}

// Dialect implements sqlschema.Visitor for PostgreSQL.
type Dialect struct {
	types    *sqlschema.TypeTable
	defaults sqlschema.DefaultRules
}

// NewDialect creates a new PostgreSQL dialect.
func NewDialect() *Dialect {
	return &Dialect{
		types:    TypeTable(),
		defaults: DefaultRules(),
	}
}

// Name returns the dialect identifier.
func (d *Dialect) Name() string {
	return sqlschema.DialectPostgres
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

// normalize lowercases a type name, collapses whitespace and drops length,
// precision and scale modifiers: "NUMERIC(10, 2)" becomes "numeric" and
// "timestamp(3) with time zone" becomes "timestamp with time zone".
func normalize(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
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

// TypeTable returns the PostgreSQL type vocabulary. Names cover both
// information_schema data_type spellings and pg_type (udt) names.
func TypeTable() *sqlschema.TypeTable {
	exact := make(map[string]*sqlschema.Type)

	for _, f := range []map[string]*sqlschema.Type{
		family(sqlschema.TypeInteger,
			"integer", "int", "int2", "int4", "int8", "smallint", "bigint",
			"serial", "serial2", "serial4", "serial8", "smallserial", "bigserial"),
		family(sqlschema.TypeFloat,
			"real", "float4", "float8", "double precision", "float"),
		family(sqlschema.TypeDecimal,
			"numeric", "decimal", "money"),
		family(sqlschema.TypeTime,
			"time", "time without time zone", "timetz", "time with time zone"),
		family(sqlschema.TypeNaiveDatetime,
			"timestamp", "timestamp without time zone"),
		family(sqlschema.TypeUTCDatetime,
			"timestamptz", "timestamp with time zone"),
		family(sqlschema.TypeJSON, "json"),
		family(sqlschema.TypeJSONB, "jsonb"),
		family(sqlschema.TypeUUID, "uuid"),
		family(sqlschema.TypeBoolean, "boolean", "bool"),
		family(sqlschema.TypeDate, "date"),
		family(sqlschema.TypeBinary, "bytea"),
		family(sqlschema.TypeString,
			"text", "varchar", "character varying", "char", "character", "bpchar",
			"name", "inet", "cidr", "macaddr", "macaddr8", "xml",
			"bit", "varbit", "bit varying", "tsvector"),
		family(sqlschema.CaseInsensitiveString(), "citext"),
	} {
		for name, t := range f {
			exact[name] = t
		}
	}

	return &sqlschema.TypeTable{
		Exact: exact,
		ArrayShortcuts: map[string]*sqlschema.Type{
			"json[]":  sqlschema.ArrayOf(sqlschema.TypeJSON),
			"jsonb[]": sqlschema.ArrayOf(sqlschema.TypeJSONB),
			"_json":   sqlschema.ArrayOf(sqlschema.TypeJSON),
			"_jsonb":  sqlschema.ArrayOf(sqlschema.TypeJSONB),
		},
		ArraySuffix: "[]",
		ArrayPrefix: "_",
		Normalize:   normalize,
	}
}

// castSuffix closes a keyword pattern: the keyword may only be followed by
// a type cast. Arithmetic or AT TIME ZONE leaves the default unmapped.
const castSuffix = `(?:\s*::\s*[\w ]+)?$`

// DefaultRules returns the PostgreSQL default-expression rule chain.
//
// Order is load-bearing. Empty composites precede everything because
// '{}'::jsonb would otherwise read as a quoted cast. Sequence and timestamp
// calls precede the generic function rule, which in turn precedes the
// literal rules so that arguments such as nextval('seq'::regclass) are never
// read as standalone literals. CURRENT_TIMESTAMP is tested before the
// shorter CURRENT_TIME.
func DefaultRules() sqlschema.DefaultRules {
	return sqlschema.DefaultRules{
		{
			Name:  "null",
			Match: sqlschema.Pattern(`(?i)^null(?:\s*::\s*[\w" .\[\]]+)?$`),
			Apply: sqlschema.Yield(sqlschema.Absent),
		},
		{
			// '{}'::text[] is an empty array literal, not an empty map.
			Name:  "empty_array_literal",
			Match: sqlschema.Pattern(`^'\{\}'\s*::\s*[^']+\[\]$`),
			Apply: sqlschema.Yield(sqlschema.EmptySequence),
		},
		{
			Name:  "empty_map",
			Match: sqlschema.PrefixFold("'{}'"),
			Apply: sqlschema.Yield(sqlschema.EmptyMap),
		},
		{
			Name:  "empty_sequence",
			Match: sqlschema.PrefixFold("'[]'", "ARRAY[]"),
			Apply: sqlschema.Yield(sqlschema.EmptySequence),
		},
		{
			Name:  "sequence",
			Match: sqlschema.PrefixFold("nextval("),
			Apply: sqlschema.YieldSentinel(sqlschema.DefaultAutoIncrement),
		},
		{
			Name: "current_timestamp",
			Match: sqlschema.AnyOf(
				sqlschema.Pattern(`(?i)^(?:now\(\)|current_timestamp(?:\(\d+\))?|localtimestamp(?:\(\d+\))?|(?:transaction|statement|clock)_timestamp\(\))` + castSuffix),
				sqlschema.Pattern(`(?i)^timezone\(\s*'utc'(?:::text)?\s*,\s*(?:now\(\)|current_timestamp)\s*\)$`),
			),
			Apply: sqlschema.YieldSentinel(sqlschema.DefaultCurrentTimestamp),
		},
		{
			Name:  "current_date",
			Match: sqlschema.Pattern(`(?i)^current_date` + castSuffix),
			Apply: sqlschema.YieldSentinel(sqlschema.DefaultCurrentDate),
		},
		{
			Name:  "current_time",
			Match: sqlschema.Pattern(`(?i)^(?:current_time|localtime)(?:\(\d+\))?` + castSuffix),
			Apply: sqlschema.YieldSentinel(sqlschema.DefaultCurrentTime),
		},
		sqlschema.FunctionCallRule(),
		sqlschema.QuotedCastRule(),
		sqlschema.QuotedRule(),
		sqlschema.IntegerRule(),
		sqlschema.FloatRule(),
		sqlschema.BooleanRule(),
	}
}
