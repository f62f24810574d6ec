package sqlschema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/sqlschema"
)

func TestType_StringAndParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ  *sqlschema.Type
		want string
	}{
		{sqlschema.TypeInteger, "integer"},
		{sqlschema.TypeUTCDatetime, "utc_datetime"},
		{sqlschema.CaseInsensitiveString(), "string(ci)"},
		{sqlschema.ArrayOf(sqlschema.TypeJSONB), "array(jsonb)"},
		{sqlschema.ArrayOf(sqlschema.ArrayOf(sqlschema.TypeInteger)), "array(array(integer))"},
		{sqlschema.EnumOf("draft", "published"), `enum("draft","published")`},
		{sqlschema.EnumOf(`a"b`, "c,d"), `enum("a\"b","c,d")`},
		{sqlschema.EnumOf(), "enum()"},
		{sqlschema.Unmapped("tsrange"), `unmapped("tsrange")`},
		{sqlschema.ArrayOf(sqlschema.Unmapped("geometry(Point,4326)")), `array(unmapped("geometry(Point,4326)"))`},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.typ.String())

			parsed, err := sqlschema.ParseTypeString(tt.want)
			require.NoError(t, err)
			assert.True(t, tt.typ.Equal(parsed), "parsed %s", parsed)
		})
	}
}

func TestParseTypeString_Errors(t *testing.T) {
	t.Parallel()

	_, err := sqlschema.ParseTypeString("  ")
	require.ErrorIs(t, err, sqlschema.ErrEmptyTypeString)

	_, err = sqlschema.ParseTypeString("array()")
	require.ErrorIs(t, err, sqlschema.ErrInvalidArrayType)

	_, err = sqlschema.ParseTypeString(`enum("a" "b")`)
	require.ErrorIs(t, err, sqlschema.ErrInvalidEnumType)

	_, err = sqlschema.ParseTypeString("varchar")
	require.ErrorIs(t, err, sqlschema.ErrUnrecognizedType)

	_, err = sqlschema.ParseTypeString("unmapped(tsrange)")
	require.ErrorIs(t, err, sqlschema.ErrUnrecognizedType)
}

func TestType_IsUnmapped(t *testing.T) {
	t.Parallel()

	assert.False(t, sqlschema.TypeString.IsUnmapped())
	assert.True(t, sqlschema.Unmapped("x").IsUnmapped())
	assert.True(t, sqlschema.ArrayOf(sqlschema.ArrayOf(sqlschema.Unmapped("x"))).IsUnmapped())
	assert.False(t, sqlschema.ArrayOf(sqlschema.EnumOf("a")).IsUnmapped())
}

func TestType_Clone(t *testing.T) {
	t.Parallel()

	orig := sqlschema.ArrayOf(sqlschema.EnumOf("a", "b"))
	clone := orig.Clone()
	require.True(t, orig.Equal(clone))

	clone.Elem.Values[0] = "z"
	assert.Equal(t, []string{"a", "b"}, orig.Elem.Values)
	assert.False(t, orig.Equal(clone))
}

func TestType_Equal(t *testing.T) {
	t.Parallel()

	assert.True(t, sqlschema.TypeString.Equal(&sqlschema.Type{Kind: sqlschema.TypeKindString}))
	assert.False(t, sqlschema.TypeString.Equal(sqlschema.CaseInsensitiveString()))
	assert.False(t, sqlschema.EnumOf("a", "b").Equal(sqlschema.EnumOf("b", "a")))
	assert.False(t, sqlschema.TypeString.Equal(nil))
	assert.True(t, (*sqlschema.Type)(nil).Equal(nil))
}

func TestType_Text(t *testing.T) {
	t.Parallel()

	text, err := sqlschema.ArrayOf(sqlschema.CaseInsensitiveString()).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "array(string(ci))", string(text))

	var typ sqlschema.Type
	require.NoError(t, typ.UnmarshalText(text))
	assert.Equal(t, "array(string(ci))", typ.String())

	require.Error(t, typ.UnmarshalText([]byte("nope")))
}
