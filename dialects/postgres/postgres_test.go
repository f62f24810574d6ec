package postgres_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/sqlschema"
	"github.com/rlch/sqlschema/dialects/postgres"
)

func TestDialect_Registration(t *testing.T) {
	t.Parallel()

	assert.True(t, slices.Contains(sqlschema.RegisteredDialects(), sqlschema.DialectPostgres))

	v, err := sqlschema.GetDialect(sqlschema.DialectPostgres)
	require.NoError(t, err)
	assert.Equal(t, sqlschema.DialectPostgres, v.Name())
}

func visitType(t *testing.T, node sqlschema.Node) string {
	t.Helper()

	res, err := postgres.NewDialect().Visit(node, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Type)
	assert.Nil(t, res.Default)

	return res.Type.String()
}

func typeNode(t *testing.T, raw string) *sqlschema.TypeNode {
	t.Helper()

	n, err := sqlschema.NewTypeNode(raw)
	require.NoError(t, err)

	return n
}

func arrayNode(t *testing.T, raw string) *sqlschema.ArrayTypeNode {
	t.Helper()

	n, err := sqlschema.NewArrayTypeNode(raw)
	require.NoError(t, err)

	return n
}

func TestVisit_ScalarTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"integer", "integer"},
		{"int4", "integer"},
		{"bigint", "integer"},
		{"smallserial", "integer"},
		{"double precision", "float"},
		{"real", "float"},
		{"numeric", "decimal"},
		{"NUMERIC(10, 2)", "decimal"},
		{"money", "decimal"},
		{"time without time zone", "time"},
		{"timetz", "time"},
		{"timestamp", "naive_datetime"},
		{"timestamp(3) without time zone", "naive_datetime"},
		{"timestamp with time zone", "utc_datetime"},
		{"timestamptz", "utc_datetime"},
		{"json", "json"},
		{"jsonb", "jsonb"},
		{"uuid", "uuid"},
		{"boolean", "boolean"},
		{"bool", "boolean"},
		{"date", "date"},
		{"bytea", "binary"},
		{"text", "string"},
		{"character varying", "string"},
		{"character varying(255)", "string"},
		{"  Character   Varying ", "string"},
		{"bpchar", "string"},
		{"inet", "string"},
		{"citext", "string(ci)"},
		{"tsrange", `unmapped("tsrange")`},
		{"geometry(Point,4326)", `unmapped("geometry(Point,4326)")`},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, visitType(t, typeNode(t, tt.raw)))
		})
	}
}

func TestVisit_ArraySuffix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"integer[]", "array(integer)"},
		{"integer[][]", "array(array(integer))"},
		{"text[][][]", "array(array(array(string)))"},
		{"character varying(255)[]", "array(string)"},
		{"citext[]", "array(string(ci))"},
		{"json[]", "array(json)"},
		{"jsonb[]", "array(jsonb)"},
		{"jsonb[][]", "array(array(jsonb))"},
		{"tsrange[]", `array(unmapped("tsrange"))`},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, visitType(t, typeNode(t, tt.raw)))
		})
	}
}

func TestVisit_ArrayNodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"_int4", "array(integer)"},
		{"_text", "array(string)"},
		{"_json", "array(json)"},
		{"_jsonb", "array(jsonb)"},
		{"_timestamptz", "array(utc_datetime)"},
		{"jsonb[]", "array(jsonb)"},
		{"integer[]", "array(integer)"},
		{"uuid", "array(uuid)"},
		{"_status", `array(unmapped("status"))`},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, visitType(t, arrayNode(t, tt.raw)))
		})
	}
}

func TestVisit_Enum(t *testing.T) {
	t.Parallel()

	n, err := sqlschema.NewEnumTypeNode([]string{"c", "a", "b"})
	require.NoError(t, err)

	res, err := postgres.NewDialect().Visit(n, nil)
	require.NoError(t, err)
	assert.Equal(t, sqlschema.TypeKindEnum, res.Type.Kind)
	assert.Equal(t, []string{"c", "a", "b"}, res.Type.Values)
}

func TestVisit_TypesAreStable(t *testing.T) {
	t.Parallel()

	d := postgres.NewDialect()
	n := typeNode(t, "citext[]")

	first, err := d.Visit(n, nil)
	require.NoError(t, err)

	// Mutating a result must not leak into the table.
	first.Type.Elem.CaseInsensitive = false

	second, err := d.Visit(n, sqlschema.Options{"collation": "C"})
	require.NoError(t, err)
	assert.Equal(t, "array(string(ci))", second.Type.String())
}

func visitDefault(t *testing.T, raw any) *sqlschema.Default {
	t.Helper()

	n, err := sqlschema.NewDefaultNode(raw)
	require.NoError(t, err)

	res, err := postgres.NewDialect().Visit(n, sqlschema.Options{})
	require.NoError(t, err)
	require.NotNil(t, res.Default)
	assert.Nil(t, res.Type)

	return res.Default
}

func TestVisit_Defaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  any
		want *sqlschema.Default
	}{
		{"nil", nil, sqlschema.Absent()},
		{"empty", "", sqlschema.Literal("")},
		{"blank", "   ", sqlschema.Literal("")},
		{"null keyword", "NULL", sqlschema.Absent()},
		{"null lower", "null", sqlschema.Absent()},
		{"null cast", "NULL::character varying", sqlschema.Absent()},
		{"empty map", "'{}'", sqlschema.EmptyMap()},
		{"empty map cast", "'{}'::jsonb", sqlschema.EmptyMap()},
		{"empty array literal", "'{}'::text[]", sqlschema.EmptySequence()},
		{"empty json array", "'[]'", sqlschema.EmptySequence()},
		{"empty json array cast", "'[]'::jsonb", sqlschema.EmptySequence()},
		{"empty array constructor", "ARRAY[]::text[]", sqlschema.EmptySequence()},
		{"nextval", "nextval('users_id_seq'::regclass)", sqlschema.Sentinel(sqlschema.DefaultAutoIncrement)},
		{"nextval plain", "nextval('seq')", sqlschema.Sentinel(sqlschema.DefaultAutoIncrement)},
		{"now", "now()", sqlschema.Sentinel(sqlschema.DefaultCurrentTimestamp)},
		{"now padded", "  now()\n", sqlschema.Sentinel(sqlschema.DefaultCurrentTimestamp)},
		{"now cast", "now()::timestamp without time zone", sqlschema.Sentinel(sqlschema.DefaultCurrentTimestamp)},
		{"current_timestamp", "CURRENT_TIMESTAMP", sqlschema.Sentinel(sqlschema.DefaultCurrentTimestamp)},
		{"current_timestamp precision", "current_timestamp(6)", sqlschema.Sentinel(sqlschema.DefaultCurrentTimestamp)},
		{"localtimestamp", "LOCALTIMESTAMP", sqlschema.Sentinel(sqlschema.DefaultCurrentTimestamp)},
		{"clock_timestamp", "clock_timestamp()", sqlschema.Sentinel(sqlschema.DefaultCurrentTimestamp)},
		{"timezone utc", "timezone('utc'::text, now())", sqlschema.Sentinel(sqlschema.DefaultCurrentTimestamp)},
		{"current_date", "CURRENT_DATE", sqlschema.Sentinel(sqlschema.DefaultCurrentDate)},
		{"current_date cast", "CURRENT_DATE::date", sqlschema.Sentinel(sqlschema.DefaultCurrentDate)},
		{"current_date lookalike", "CURRENT_DATEX", sqlschema.UnmappedDefault("CURRENT_DATEX")},
		{"current_date prefixed function", "current_date_utc()", sqlschema.FunctionDefault("current_date_utc()")},
		{"current_date arithmetic", "CURRENT_DATE + 1", sqlschema.UnmappedDefault("CURRENT_DATE + 1")},
		{"current_timestamp at time zone", "CURRENT_TIMESTAMP AT TIME ZONE 'utc'", sqlschema.UnmappedDefault("CURRENT_TIMESTAMP AT TIME ZONE 'utc'")},
		{"current_time arithmetic", "CURRENT_TIME + interval '1 hour'", sqlschema.UnmappedDefault("CURRENT_TIME + interval '1 hour'")},
		{"current_time", "CURRENT_TIME", sqlschema.Sentinel(sqlschema.DefaultCurrentTime)},
		{"current_time precision", "CURRENT_TIME(3)", sqlschema.Sentinel(sqlschema.DefaultCurrentTime)},
		{"localtime", "LOCALTIME", sqlschema.Sentinel(sqlschema.DefaultCurrentTime)},
		{"function", "gen_random_uuid()", sqlschema.FunctionDefault("gen_random_uuid()")},
		{"qualified function", "public.next_id('orders')", sqlschema.FunctionDefault("public.next_id('orders')")},
		{"quoted cast", "'active'::status", sqlschema.Literal("active")},
		{"quoted cast multiword", "'draft'::character varying", sqlschema.Literal("draft")},
		{"quoted cast escaped", "'it''s'::text", sqlschema.Literal("it's")},
		{"quoted", "'hello'", sqlschema.Literal("hello")},
		{"quoted empty", "''", sqlschema.Literal("")},
		{"integer", "42", sqlschema.Literal(int64(42))},
		{"negative integer", "-7", sqlschema.Literal(int64(-7))},
		{"float", "3.14", sqlschema.Literal(3.14)},
		{"true", "true", sqlschema.Literal(true)},
		{"TRUE", "TRUE", sqlschema.Literal(true)},
		{"false", "false", sqlschema.Literal(false)},
		{"numeric prefix", "42abc", sqlschema.UnmappedDefault("42abc")},
		{"two points", "1.2.3", sqlschema.UnmappedDefault("1.2.3")},
		{"overflow", "99999999999999999999", sqlschema.UnmappedDefault("99999999999999999999")},
		{"expression", "(1 + 2)", sqlschema.UnmappedDefault("(1 + 2)")},
		{"trimmed passthrough", "  1 + 2 ", sqlschema.UnmappedDefault("1 + 2")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, visitDefault(t, tt.raw))
		})
	}
}

// Function calls whose arguments look like literals must stay functions.
func TestVisit_FunctionCallBeforeLiterals(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"lower('A'::text)",
		"f('x'::text)",
		"coalesce(NULL, 'x'::text)",
		"make_date(2024, 1, 1)",
		"to_char(now(), 'YYYY')",
		`"Mixed"('x')`,
	} {
		t.Run(raw, func(t *testing.T) {
			t.Parallel()

			got := visitDefault(t, raw)
			assert.Equal(t, sqlschema.DefaultFunction, got.Kind)
			assert.Equal(t, raw, got.Raw)
			assert.True(t, got.ResolvedOnWrite())
		})
	}
}

func TestVisit_QuotedCallTextIsLiteral(t *testing.T) {
	t.Parallel()

	assert.Equal(t, sqlschema.Literal("f(x)"), visitDefault(t, "'f(x)'::text"))
	assert.Equal(t, sqlschema.Literal("now()"), visitDefault(t, "'now()'"))
}

func TestVisit_SentinelsIgnoreWhitespace(t *testing.T) {
	t.Parallel()

	sentinels := map[string]sqlschema.DefaultKind{
		"now()":          sqlschema.DefaultCurrentTimestamp,
		"CURRENT_DATE":   sqlschema.DefaultCurrentDate,
		"CURRENT_TIME":   sqlschema.DefaultCurrentTime,
		"nextval('seq')": sqlschema.DefaultAutoIncrement,
	}

	for raw, kind := range sentinels {
		for _, padded := range []string{raw, " " + raw, raw + "\t", "\n " + raw + " \n"} {
			got := visitDefault(t, padded)
			assert.Equal(t, kind, got.Kind, "%q", padded)
		}
	}
}

func TestVisit_StructuralErrors(t *testing.T) {
	t.Parallel()

	d := postgres.NewDialect()

	_, err := d.Visit(nil, nil)
	require.ErrorIs(t, err, sqlschema.ErrStructural)

	_, err = d.Visit(&sqlschema.TypeNode{}, nil)
	require.ErrorIs(t, err, sqlschema.ErrStructural)

	_, err = d.Visit(&sqlschema.EnumTypeNode{}, nil)

	var serr *sqlschema.StructuralError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, sqlschema.NodeEnumType, serr.Node)
}

func TestDefaultRules_Order(t *testing.T) {
	t.Parallel()

	rules := postgres.DefaultRules()

	assert.Equal(t, "empty_array_literal", rules.Match("'{}'::integer[]"))
	assert.Equal(t, "empty_map", rules.Match("'{}'::jsonb"))
	assert.Equal(t, "current_timestamp", rules.Match("CURRENT_TIMESTAMP"))
	assert.Equal(t, "current_time", rules.Match("CURRENT_TIME"))
	assert.Equal(t, "current_date", rules.Match("current_date"))
	assert.Equal(t, "function_call", rules.Match("current_date_utc()"))
	assert.Empty(t, rules.Match("CURRENT_DATE + 1"))
	assert.Empty(t, rules.Match("CURRENT_TIMESTAMP AT TIME ZONE 'utc'"))
	assert.Equal(t, "sequence", rules.Match("nextval('a'::regclass)"))
	assert.Equal(t, "function_call", rules.Match("f('x'::text)"))
	assert.Equal(t, "quoted_cast", rules.Match("'x'::text"))
	assert.Empty(t, rules.Match("42abc"))
}
