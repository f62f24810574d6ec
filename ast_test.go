package sqlschema_test

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/sqlschema"
)

func TestNewTypeNode(t *testing.T) {
	t.Parallel()

	n, err := sqlschema.NewTypeNode("character varying")
	require.NoError(t, err)
	assert.Equal(t, "character varying", n.RawName())
	assert.Equal(t, sqlschema.NodeType, n.Kind())

	for _, bad := range []any{nil, 42, "", "   ", []string{"text"}} {
		_, err := sqlschema.NewTypeNode(bad)
		require.ErrorIs(t, err, sqlschema.ErrStructural, "%#v", bad)
	}
}

func TestNewArrayTypeNode(t *testing.T) {
	t.Parallel()

	n, err := sqlschema.NewArrayTypeNode("jsonb[]")
	require.NoError(t, err)
	assert.Equal(t, "jsonb[]", n.RawName())
	assert.Equal(t, sqlschema.NodeArrayType, n.Kind())

	_, err = sqlschema.NewArrayTypeNode(3.5)

	var serr *sqlschema.StructuralError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, sqlschema.NodeArrayType, serr.Node)
	assert.Equal(t, "raw_name", serr.Field)
}

func TestNewEnumTypeNode(t *testing.T) {
	t.Parallel()

	t.Run("strings", func(t *testing.T) {
		t.Parallel()

		values := []string{"a", "b", "c"}

		n, err := sqlschema.NewEnumTypeNode(values)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, n.Values())

		// The node keeps its own copy.
		values[0] = "z"
		n.Values()[1] = "y"
		assert.Equal(t, []string{"a", "b", "c"}, n.Values())
	})

	t.Run("any of strings", func(t *testing.T) {
		t.Parallel()

		n, err := sqlschema.NewEnumTypeNode([]any{"x", "y"})
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, n.Values())
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		n, err := sqlschema.NewEnumTypeNode([]string{})
		require.NoError(t, err)
		assert.Empty(t, n.Values())
	})

	t.Run("malformed", func(t *testing.T) {
		t.Parallel()

		for _, bad := range []any{nil, "a,b", 7, []any{"a", 1}, []int{1}, []string(nil), map[string]string{}} {
			_, err := sqlschema.NewEnumTypeNode(bad)
			require.ErrorIs(t, err, sqlschema.ErrStructural, "%#v", bad)
		}
	})
}

func TestNewDefaultNode(t *testing.T) {
	t.Parallel()

	s := "now()"

	tests := []struct {
		name    string
		raw     any
		want    string
		present bool
	}{
		{"nil", nil, "", false},
		{"string", "42", "42", true},
		{"empty string", "", "", true},
		{"pointer", &s, "now()", true},
		{"nil pointer", (*string)(nil), "", false},
		{"null string", sql.NullString{}, "", false},
		{"valid null string", sql.NullString{String: "'x'", Valid: true}, "'x'", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n, err := sqlschema.NewDefaultNode(tt.raw)
			require.NoError(t, err)

			got, ok := n.RawExpression()
			assert.Equal(t, tt.present, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := sqlschema.NewDefaultNode(42)
	require.ErrorIs(t, err, sqlschema.ErrStructural)
}

func TestValidateNode(t *testing.T) {
	t.Parallel()

	ok, err := sqlschema.NewTypeNode("int")
	require.NoError(t, err)
	require.NoError(t, sqlschema.ValidateNode(ok))

	for _, n := range []sqlschema.Node{
		nil,
		&sqlschema.TypeNode{},
		&sqlschema.ArrayTypeNode{},
		&sqlschema.EnumTypeNode{},
		(*sqlschema.DefaultNode)(nil),
	} {
		err := sqlschema.ValidateNode(n)
		assert.True(t, errors.Is(err, sqlschema.ErrStructural), "%#v", n)
	}

	require.NoError(t, sqlschema.ValidateNode(&sqlschema.DefaultNode{}))
}

func TestStructuralError_Message(t *testing.T) {
	t.Parallel()

	_, err := sqlschema.NewEnumTypeNode("a")
	require.Error(t, err)
	assert.Equal(t,
		"sqlschema: structural error: enum_type node: values: expected a sequence of strings, got string",
		err.Error())
}
