//nolint:testpackage
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/sqlschema"
	_ "github.com/rlch/sqlschema/dialects/postgres"
)

func TestDatabase_ImplementsInterface(_ *testing.T) {
	var _ sqlschema.Database = (*Database)(nil)
}

func TestDatabase_Registration(t *testing.T) {
	t.Parallel()

	assert.True(t, slices.Contains(sqlschema.RegisteredDatabases(), sqlschema.DatabasePostgres))

	_, err := sqlschema.NewDatabase(sqlschema.DatabasePostgres, &sqlschema.SQLiteConfig{})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func str(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func ptr[T any](v T) *T {
	return &v
}

func TestBuildTable(t *testing.T) {
	t.Parallel()

	got := buildTable("memberships", catalog{
		columns: []columnRow{
			{name: "id", dataType: "bigint", udtName: "int8", identity: true},
			{name: "org_id", dataType: "uuid", udtName: "uuid"},
			{name: "user_id", dataType: "uuid", udtName: "uuid"},
			{name: "role", dataType: "USER-DEFINED", udtSchema: "public", udtName: "member_role", def: str("'member'::member_role")},
			{name: "email", dataType: "USER-DEFINED", udtName: "citext", nullable: true},
			{name: "tags", dataType: "ARRAY", udtName: "_text", def: str("'{}'::text[]")},
			{name: "seats", dataType: "integer", udtName: "int4", def: str("1")},
		},
		enums: map[enumKey][]string{
			{schema: "public", name: "member_role"}:  {"owner", "member"},
			{schema: "billing", name: "member_role"}: {"payer"},
		},
		primaryKey: []string{"org_id", "id"},
		foreignKeys: []foreignKeyRow{
			{name: "memberships_org_fk", column: "org_id", references: "orgs", referencedColumn: "id"},
			{name: "memberships_user_fk", column: "org_id", references: "org_users", referencedColumn: "org_id"},
			{name: "memberships_user_fk", column: "user_id", references: "org_users", referencedColumn: "user_id"},
		},
		checks: []checkRow{
			{column: "seats", clause: "CHECK ((seats > 0))"},
		},
		indexes: []indexRow{
			{name: "memberships_email_idx", unique: true, column: "email"},
			{name: "memberships_org_user_idx", column: "org_id"},
			{name: "memberships_org_user_idx", column: "user_id"},
		},
	})

	want := &sqlschema.TableInput{
		Name: "memberships",
		Columns: []sqlschema.ColumnInput{
			{Name: "id", Type: "bigint", Identity: true},
			{Name: "org_id", Type: "uuid"},
			{Name: "user_id", Type: "uuid"},
			{Name: "role", Enum: []string{"owner", "member"}, Default: ptr("'member'::member_role")},
			{Name: "email", Type: "citext", Nullable: true},
			{Name: "tags", Type: "_text", Array: true, Default: ptr("'{}'::text[]")},
			{Name: "seats", Type: "integer", Default: ptr("1"), Checks: []string{"CHECK ((seats > 0))"}},
		},
		PrimaryKey: []string{"org_id", "id"},
		ForeignKeys: []sqlschema.ForeignKeyInput{
			{Name: "memberships_org_fk", Columns: []string{"org_id"}, References: "orgs", ReferencedColumns: []string{"id"}},
			{
				Name:              "memberships_user_fk",
				Columns:           []string{"org_id", "user_id"},
				References:        "org_users",
				ReferencedColumns: []string{"org_id", "user_id"},
			},
		},
		Indices: []sqlschema.IndexInput{
			{Name: "memberships_email_idx", Columns: []string{"email"}, Unique: true},
			{Name: "memberships_org_user_idx", Columns: []string{"org_id", "user_id"}},
		},
	}

	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("buildTable() mismatch (-want +got):\n%s", diff)
	}

	s, err := sqlschema.NewCompiler().Compile(sqlschema.DialectPostgres, *got)
	require.NoError(t, err)

	assert.Equal(t, []string{"org_id", "id"}, s.PrimaryKey.Names())
	assert.Equal(t, sqlschema.Sentinel(sqlschema.DefaultAutoIncrement), s.Field("id").Meta.Default)
	assert.Equal(t, sqlschema.EnumOf("owner", "member"), s.Field("role").Type)
	assert.Equal(t, sqlschema.Literal("member"), s.Field("role").Meta.Default)
	assert.Equal(t, sqlschema.CaseInsensitiveString(), s.Field("email").Type)
	assert.Equal(t, sqlschema.ArrayOf(sqlschema.TypeString), s.Field("tags").Type)
	assert.Equal(t, sqlschema.EmptySequence(), s.Field("tags").Meta.Default)
	assert.True(t, s.Field("org_id").Meta.Association)
	assert.False(t, s.Field("user_id").Meta.Association)
	assert.True(t, s.Field("user_id").Meta.ForeignKey)
}

func TestBuildTable_ArrayOfEnum(t *testing.T) {
	t.Parallel()

	got := buildTable("t", catalog{
		columns: []columnRow{{name: "roles", dataType: "ARRAY", udtName: "_member_role"}},
		enums:   map[enumKey][]string{{schema: "public", name: "member_role"}: {"owner"}},
	})

	s, err := sqlschema.NewCompiler().Compile(sqlschema.DialectPostgres, *got)
	require.NoError(t, err)
	assert.Equal(t, sqlschema.ArrayOf(sqlschema.Unmapped("member_role")), s.Field("roles").Type)
}

func TestBuildTable_EnumResolvedPerSchema(t *testing.T) {
	t.Parallel()

	got := buildTable("t", catalog{
		columns: []columnRow{
			{name: "a", dataType: "USER-DEFINED", udtSchema: "public", udtName: "status"},
			{name: "b", dataType: "USER-DEFINED", udtSchema: "audit", udtName: "status"},
			{name: "c", dataType: "USER-DEFINED", udtSchema: "other", udtName: "status"},
		},
		enums: map[enumKey][]string{
			{schema: "public", name: "status"}: {"on", "off"},
			{schema: "audit", name: "status"}:  {"open", "closed"},
		},
	})

	assert.Equal(t, []string{"on", "off"}, got.Columns[0].Enum)
	assert.Equal(t, []string{"open", "closed"}, got.Columns[1].Enum)
	assert.Nil(t, got.Columns[2].Enum)
	assert.Equal(t, "status", got.Columns[2].Type)
}

func TestLoadEnums_RetriesAfterFailure(t *testing.T) {
	t.Parallel()

	uri := os.Getenv("SQLSCHEMA_TEST_POSTGRES_URI")
	if uri == "" {
		t.Skip("SQLSCHEMA_TEST_POSTGRES_URI not set, skipping integration test")
	}

	db, err := New(context.Background(), &sqlschema.PostgresConfig{URI: uri})
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = db.loadEnums(cancelled)
	require.Error(t, err)

	enums, err := db.loadEnums(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, enums)
}

func setupIntegrationTest(t *testing.T) (*Database, *sql.DB) {
	t.Helper()

	uri := os.Getenv("SQLSCHEMA_TEST_POSTGRES_URI")
	if uri == "" {
		t.Skip("SQLSCHEMA_TEST_POSTGRES_URI not set, skipping integration test")
	}

	ctx := context.Background()

	admin, err := sql.Open("pgx", uri)
	require.NoError(t, err)

	schema := "sqlschema_" + uuid.NewString()[:8]

	_, err = admin.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA %q`, schema))
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = admin.ExecContext(context.Background(), fmt.Sprintf(`DROP SCHEMA %q CASCADE`, schema))
		_ = admin.Close()
	})

	db, err := New(ctx, &sqlschema.PostgresConfig{URI: uri, Schema: schema})
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	return db, admin
}

func TestDatabase_Integration(t *testing.T) {
	db, admin := setupIntegrationTest(t)
	ctx := context.Background()

	conn, err := admin.Conn(ctx)
	require.NoError(t, err)

	defer func() { _ = conn.Close() }()

	for _, stmt := range []string{
		fmt.Sprintf(`SET search_path TO %q`, db.schema),
		`CREATE TYPE mood AS ENUM ('sad', 'ok', 'happy')`,
		`CREATE TABLE users (
			id bigint GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			email varchar(255) NOT NULL,
			mood mood DEFAULT 'ok',
			tags text[] DEFAULT '{}',
			created_at timestamptz NOT NULL DEFAULT now(),
			score numeric(10, 2) CHECK (score >= 0)
		)`,
		`CREATE TABLE posts (
			id serial PRIMARY KEY,
			author_id bigint REFERENCES users (id),
			body text
		)`,
		`CREATE UNIQUE INDEX users_email_idx ON users (email)`,
	} {
		_, err := conn.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}

	names, err := db.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"posts", "users"}, names)

	tables, err := sqlschema.ReadCatalog(ctx, db, nil, 2)
	require.NoError(t, err)

	schemas, err := sqlschema.NewCompiler().CompileAll(ctx, db.Dialect(), tables)
	require.NoError(t, err)
	require.Len(t, schemas, 2)

	posts, users := schemas[0], schemas[1]

	assert.Equal(t, sqlschema.Sentinel(sqlschema.DefaultAutoIncrement), posts.Field("id").Meta.Default)
	assert.True(t, posts.Field("author_id").Meta.Association)

	assert.Equal(t, []string{"id"}, users.PrimaryKey.Names())
	assert.Equal(t, sqlschema.Sentinel(sqlschema.DefaultAutoIncrement), users.Field("id").Meta.Default)
	assert.Equal(t, sqlschema.TypeString, users.Field("email").Type)
	assert.Equal(t, sqlschema.EnumOf("sad", "ok", "happy"), users.Field("mood").Type)
	assert.Equal(t, sqlschema.Literal("ok"), users.Field("mood").Meta.Default)
	assert.Equal(t, sqlschema.ArrayOf(sqlschema.TypeString), users.Field("tags").Type)
	assert.Equal(t, sqlschema.EmptySequence(), users.Field("tags").Meta.Default)
	assert.Equal(t, sqlschema.TypeUTCDatetime, users.Field("created_at").Type)
	assert.Equal(t, sqlschema.Sentinel(sqlschema.DefaultCurrentTimestamp), users.Field("created_at").Meta.Default)
	assert.Equal(t, sqlschema.TypeDecimal, users.Field("score").Type)
	assert.Len(t, users.Field("score").Meta.Checks, 1)
	require.Len(t, users.Indices, 1)
	assert.True(t, users.Indices[0].Unique)
}
