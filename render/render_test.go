package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/sqlschema"
	_ "github.com/rlch/sqlschema/dialects/postgres"
)

func ptr[T any](v T) *T {
	return &v
}

func testReport(t *testing.T) *Report {
	t.Helper()

	s, err := sqlschema.NewCompiler().Compile(sqlschema.DialectPostgres, sqlschema.TableInput{
		Name: "posts",
		Columns: []sqlschema.ColumnInput{
			{Name: "id", Type: "uuid", Default: ptr("gen_random_uuid()")},
			{Name: "authorId", Type: "bigint"},
			{Name: "body", Type: "text", Nullable: true},
			{Name: "span", Type: "tsrange"},
		},
		PrimaryKey: []string{"id"},
		ForeignKeys: []sqlschema.ForeignKeyInput{
			{Columns: []string{"authorId"}, References: "users", ReferencedColumns: []string{"id"}},
		},
		Indices: []sqlschema.IndexInput{
			{Name: "posts_author_idx", Columns: []string{"authorId"}},
		},
	})
	require.NoError(t, err)

	return &Report{
		Dialect:  sqlschema.DialectPostgres,
		Schemas:  []*sqlschema.Schema{s},
		Failures: []error{&sqlschema.TableError{Table: "broken", Err: errors.New("bad column")}},
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		want   Formatter
	}{
		{"", &TextFormatter{}},
		{FormatText, &TextFormatter{}},
		{FormatYAML, &YAMLFormatter{}},
		{FormatJSON, &JSONFormatter{}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			f, err := New(tt.format, &bytes.Buffer{})
			require.NoError(t, err)
			assert.IsType(t, tt.want, f)
		})
	}

	_, err := New("xml", &bytes.Buffer{})
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestTextFormatter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, Render(NewTextFormatter(&buf), testReport(t)))

	out := buf.String()
	assert.Contains(t, out, "posts\n")
	assert.Contains(t, out, `default function_default("gen_random_uuid()")`)
	assert.Contains(t, out, `unmapped("tsrange")`)
	assert.Contains(t, out, "fk (authorId) -> users (id)")
	assert.Contains(t, out, "index posts_author_idx (authorId)")
	assert.Contains(t, out, `FAIL table "broken": bad column`)
	assert.Contains(t, out, "postgres: 1 compiled, 1 failed, 1 unmapped fields")

	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "author_id") {
			assert.Contains(t, line, "fk")
			assert.NotContains(t, line, "null")
		}
	}
}

func TestJSONFormatter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, Render(NewJSONFormatter(&buf), testReport(t)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var schema struct {
		Type   string `json:"type"`
		Schema struct {
			Source     string   `json:"source"`
			PrimaryKey []string `json:"primary_key"`
			Fields     []struct {
				Name string `json:"name"`
				Type string `json:"type"`
			} `json:"fields"`
		} `json:"schema"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &schema))
	assert.Equal(t, "schema", schema.Type)
	assert.Equal(t, "posts", schema.Schema.Source)
	assert.Equal(t, []string{"id"}, schema.Schema.PrimaryKey)
	require.Len(t, schema.Schema.Fields, 4)
	assert.Equal(t, "author_id", schema.Schema.Fields[1].Name)
	assert.Equal(t, "integer", schema.Schema.Fields[1].Type)

	var summary jsonSummary
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &summary))
	assert.Equal(t, jsonSummary{
		Type:     "summary",
		Dialect:  sqlschema.DialectPostgres,
		Tables:   1,
		Unmapped: 1,
		Failures: []jsonFailure{{Table: "broken", Error: "bad column"}},
	}, summary)
}

func TestYAMLFormatter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, Render(NewYAMLFormatter(&buf), testReport(t)))

	out := buf.String()
	assert.Contains(t, out, "dialect: postgres")
	assert.Contains(t, out, "source: posts")
	assert.Contains(t, out, "name: author_id")
	assert.NotContains(t, out, "broken")
}
