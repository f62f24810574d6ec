// Package postgres provides a sqlschema Database that reads PostgreSQL
// catalogs through pgx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/rlch/sqlschema"
)

// DefaultSchema is introspected when the config names none.
const DefaultSchema = "public"

// ErrInvalidConfig is returned when an invalid configuration is provided.
var ErrInvalidConfig = errors.New("postgres: expected *sqlschema.PostgresConfig")

//nolint:gochecknoinits // Database self-registration pattern
func init() {
	sqlschema.RegisterDatabase(sqlschema.DatabasePostgres, func(cfg any) (sqlschema.Database, error) {
		pgCfg, ok := cfg.(*sqlschema.PostgresConfig)
		if !ok {
			return nil, fmt.Errorf("%w, got %T", ErrInvalidConfig, cfg)
		}

		return New(context.Background(), pgCfg)
	})
}

// Database implements sqlschema.Database for PostgreSQL.
type Database struct {
	db     *sql.DB
	schema string

	enumsMu sync.Mutex
	enums   map[enumKey][]string
}

var _ sqlschema.Database = (*Database)(nil)

// New opens a connection pool and verifies connectivity.
func New(ctx context.Context, cfg *sqlschema.PostgresConfig) (*Database, error) {
	db, err := sql.Open(sqlschema.DriverForDatabase(sqlschema.DatabasePostgres), cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("postgres: failed to connect: %w", err)
	}

	schema := cfg.Schema
	if schema == "" {
		schema = DefaultSchema
	}

	return &Database{db: db, schema: schema}, nil
}

// Name returns the database identifier.
func (d *Database) Name() string {
	return sqlschema.DatabasePostgres
}

// Dialect returns the dialect compiling PostgreSQL catalogs.
func (d *Database) Dialect() string {
	return sqlschema.DialectPostgres
}

// Close closes the connection pool.
func (d *Database) Close() error {
	return d.db.Close()
}

const tablesQuery = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = $1 AND table_type = 'BASE TABLE'
ORDER BY table_name`

// Tables lists the base tables of the configured schema.
func (d *Database) Tables(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, tablesQuery, d.schema)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing tables: %w", err)
	}
	defer rows.Close()

	var names []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}

		names = append(names, name)
	}

	return names, rows.Err()
}

// Table reads one table's columns, keys, checks and indexes.
func (d *Database) Table(ctx context.Context, name string) (*sqlschema.TableInput, error) {
	enums, err := d.loadEnums(ctx)
	if err != nil {
		return nil, err
	}

	var c catalog

	if c.columns, err = d.columns(ctx, name); err != nil {
		return nil, fmt.Errorf("postgres: columns of %s: %w", name, err)
	}

	if len(c.columns) == 0 {
		return nil, fmt.Errorf("postgres: table %s.%s not found", d.schema, name)
	}

	if c.primaryKey, err = d.columnNames(ctx, primaryKeyQuery, name); err != nil {
		return nil, fmt.Errorf("postgres: primary key of %s: %w", name, err)
	}

	if c.foreignKeys, err = d.foreignKeys(ctx, name); err != nil {
		return nil, fmt.Errorf("postgres: foreign keys of %s: %w", name, err)
	}

	if c.checks, err = d.checks(ctx, name); err != nil {
		return nil, fmt.Errorf("postgres: checks of %s: %w", name, err)
	}

	if c.indexes, err = d.indexes(ctx, name); err != nil {
		return nil, fmt.Errorf("postgres: indexes of %s: %w", name, err)
	}

	c.enums = enums

	return buildTable(name, c), nil
}

const enumsQuery = `
SELECT n.nspname, t.typname, e.enumlabel
FROM pg_enum e
JOIN pg_type t ON t.oid = e.enumtypid
JOIN pg_namespace n ON n.oid = t.typnamespace
ORDER BY n.nspname, t.typname, e.enumsortorder`

// loadEnums reads every enum type, keyed by schema and name. A successful
// read is cached for the life of the Database; a failed one is retried.
func (d *Database) loadEnums(ctx context.Context) (map[enumKey][]string, error) {
	d.enumsMu.Lock()
	defer d.enumsMu.Unlock()

	if d.enums != nil {
		return d.enums, nil
	}

	rows, err := d.db.QueryContext(ctx, enumsQuery)
	if err != nil {
		return nil, fmt.Errorf("postgres: reading enums: %w", err)
	}
	defer rows.Close()

	enums := make(map[enumKey][]string)

	for rows.Next() {
		var key enumKey

		var label string
		if err := rows.Scan(&key.schema, &key.name, &label); err != nil {
			return nil, fmt.Errorf("postgres: reading enums: %w", err)
		}

		enums[key] = append(enums[key], label)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: reading enums: %w", err)
	}

	d.enums = enums

	return enums, nil
}

const columnsQuery = `
SELECT column_name, data_type, udt_schema, udt_name, column_default,
       is_nullable = 'YES', is_identity = 'YES'
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`

func (d *Database) columns(ctx context.Context, table string) ([]columnRow, error) {
	rows, err := d.db.QueryContext(ctx, columnsQuery, d.schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []columnRow

	for rows.Next() {
		var c columnRow
		if err := rows.Scan(&c.name, &c.dataType, &c.udtSchema, &c.udtName, &c.def, &c.nullable, &c.identity); err != nil {
			return nil, err
		}

		cols = append(cols, c)
	}

	return cols, rows.Err()
}

const primaryKeyQuery = `
SELECT kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_schema = tc.constraint_schema
 AND kcu.constraint_name = tc.constraint_name
 AND kcu.table_name = tc.table_name
WHERE tc.constraint_type = 'PRIMARY KEY'
  AND tc.table_schema = $1 AND tc.table_name = $2
ORDER BY kcu.ordinal_position`

func (d *Database) columnNames(ctx context.Context, query, table string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, query, d.schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string

	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}

		out = append(out, s)
	}

	return out, rows.Err()
}

const foreignKeysQuery = `
SELECT con.conname, a.attname, ref.relname, ra.attname
FROM pg_constraint con
JOIN pg_class cl ON cl.oid = con.conrelid
JOIN pg_namespace n ON n.oid = cl.relnamespace
JOIN pg_class ref ON ref.oid = con.confrelid
CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, refnum, ord)
JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
JOIN pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = k.refnum
WHERE con.contype = 'f' AND n.nspname = $1 AND cl.relname = $2
ORDER BY con.conname, k.ord`

func (d *Database) foreignKeys(ctx context.Context, table string) ([]foreignKeyRow, error) {
	rows, err := d.db.QueryContext(ctx, foreignKeysQuery, d.schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []foreignKeyRow

	for rows.Next() {
		var r foreignKeyRow
		if err := rows.Scan(&r.name, &r.column, &r.references, &r.referencedColumn); err != nil {
			return nil, err
		}

		out = append(out, r)
	}

	return out, rows.Err()
}

const checksQuery = `
SELECT a.attname, pg_get_constraintdef(con.oid)
FROM pg_constraint con
JOIN pg_class cl ON cl.oid = con.conrelid
JOIN pg_namespace n ON n.oid = cl.relnamespace
CROSS JOIN LATERAL unnest(con.conkey) AS k(attnum)
JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
WHERE con.contype = 'c' AND n.nspname = $1 AND cl.relname = $2
ORDER BY con.conname`

func (d *Database) checks(ctx context.Context, table string) ([]checkRow, error) {
	rows, err := d.db.QueryContext(ctx, checksQuery, d.schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []checkRow

	for rows.Next() {
		var r checkRow
		if err := rows.Scan(&r.column, &r.clause); err != nil {
			return nil, err
		}

		out = append(out, r)
	}

	return out, rows.Err()
}

// Expression index members have attnum 0 and drop out of the join.
const indexesQuery = `
SELECT i.relname, ix.indisunique, a.attname
FROM pg_index ix
JOIN pg_class t ON t.oid = ix.indrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
JOIN pg_class i ON i.oid = ix.indexrelid
CROSS JOIN LATERAL unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord)
JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
WHERE NOT ix.indisprimary AND n.nspname = $1 AND t.relname = $2
ORDER BY i.relname, k.ord`

func (d *Database) indexes(ctx context.Context, table string) ([]indexRow, error) {
	rows, err := d.db.QueryContext(ctx, indexesQuery, d.schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []indexRow

	for rows.Next() {
		var r indexRow
		if err := rows.Scan(&r.name, &r.unique, &r.column); err != nil {
			return nil, err
		}

		out = append(out, r)
	}

	return out, rows.Err()
}
