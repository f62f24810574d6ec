// Package duckdb provides a sqlschema Database that reads DuckDB catalogs.
package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // registers the "duckdb" database/sql driver

	"github.com/rlch/sqlschema"
)

// DefaultSchema is introspected when the config names none.
const DefaultSchema = "main"

// ErrInvalidConfig is returned when an invalid configuration is provided.
var ErrInvalidConfig = errors.New("duckdb: expected *sqlschema.DuckDBConfig")

//nolint:gochecknoinits // Database self-registration pattern
func init() {
	sqlschema.RegisterDatabase(sqlschema.DatabaseDuckDB, func(cfg any) (sqlschema.Database, error) {
		duckCfg, ok := cfg.(*sqlschema.DuckDBConfig)
		if !ok {
			return nil, fmt.Errorf("%w, got %T", ErrInvalidConfig, cfg)
		}

		return New(context.Background(), duckCfg)
	})
}

// Database implements sqlschema.Database for DuckDB.
type Database struct {
	db     *sql.DB
	schema string
}

var _ sqlschema.Database = (*Database)(nil)

// New opens the database. A file is opened read-only; an empty path opens
// a fresh in-memory database.
func New(ctx context.Context, cfg *sqlschema.DuckDBConfig) (*Database, error) {
	dsn := ""
	if cfg.Path != "" {
		dsn = cfg.Path + "?access_mode=read_only"
	}

	db, err := sql.Open(sqlschema.DriverForDatabase(sqlschema.DatabaseDuckDB), dsn)
	if err != nil {
		return nil, fmt.Errorf("duckdb: failed to open: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("duckdb: failed to ping database: %w", err)
	}

	schema := cfg.Schema
	if schema == "" {
		schema = DefaultSchema
	}

	return &Database{db: db, schema: schema}, nil
}

// Name returns the database identifier.
func (d *Database) Name() string {
	return sqlschema.DatabaseDuckDB
}

// Dialect returns the dialect compiling DuckDB catalogs.
func (d *Database) Dialect() string {
	return sqlschema.DialectDuckDB
}

// Close closes the database.
func (d *Database) Close() error {
	return d.db.Close()
}

const tablesQuery = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = ? AND table_type = 'BASE TABLE'
ORDER BY table_name`

// Tables lists the base tables of the configured schema.
func (d *Database) Tables(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, tablesQuery, d.schema)
	if err != nil {
		return nil, fmt.Errorf("duckdb: listing tables: %w", err)
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

// Table reads one table's columns, constraints and indexes.
func (d *Database) Table(ctx context.Context, name string) (*sqlschema.TableInput, error) {
	cols, err := d.columns(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("duckdb: columns of %s: %w", name, err)
	}

	if len(cols) == 0 {
		return nil, fmt.Errorf("duckdb: table %s.%s not found", d.schema, name)
	}

	enums, err := d.enums(ctx)
	if err != nil {
		return nil, fmt.Errorf("duckdb: enum types: %w", err)
	}

	constraints, err := d.constraints(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("duckdb: constraints of %s: %w", name, err)
	}

	indexes, err := d.indexes(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("duckdb: indexes of %s: %w", name, err)
	}

	return buildTable(name, cols, enums, constraints, indexes), nil
}

const columnsQuery = `
SELECT column_name, data_type, column_default, is_nullable
FROM duckdb_columns()
WHERE schema_name = ? AND table_name = ?
ORDER BY column_index`

func (d *Database) columns(ctx context.Context, table string) ([]columnRow, error) {
	rows, err := d.db.QueryContext(ctx, columnsQuery, d.schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []columnRow

	for rows.Next() {
		var c columnRow
		if err := rows.Scan(&c.name, &c.dataType, &c.def, &c.nullable); err != nil {
			return nil, err
		}

		cols = append(cols, c)
	}

	return cols, rows.Err()
}

const enumTypesQuery = `
SELECT type_name
FROM duckdb_types()
WHERE logical_type = 'ENUM' AND NOT internal AND schema_name = ?`

// enums reads the members of every user-defined enum type, keyed by
// upper-cased type name.
func (d *Database) enums(ctx context.Context) (map[string][]string, error) {
	rows, err := d.db.QueryContext(ctx, enumTypesQuery, d.schema)
	if err != nil {
		return nil, err
	}

	var names []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()

			return nil, err
		}

		names = append(names, name)
	}

	if err := rows.Close(); err != nil {
		return nil, err
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	enums := make(map[string][]string, len(names))

	for _, name := range names {
		var members list

		query := fmt.Sprintf(`SELECT enum_range(NULL::%s)`, quoteIdent(name))
		if err := d.db.QueryRowContext(ctx, query).Scan(&members); err != nil {
			return nil, fmt.Errorf("members of %s: %w", name, err)
		}

		enums[strings.ToUpper(name)] = members
	}

	return enums, nil
}

const constraintsQuery = `
SELECT constraint_type, constraint_text, constraint_column_names,
       referenced_table, referenced_column_names
FROM duckdb_constraints()
WHERE schema_name = ? AND table_name = ?
ORDER BY constraint_index`

func (d *Database) constraints(ctx context.Context, table string) ([]constraintRow, error) {
	rows, err := d.db.QueryContext(ctx, constraintsQuery, d.schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []constraintRow

	for rows.Next() {
		var r constraintRow
		if err := rows.Scan(&r.kind, &r.text, &r.columns, &r.references, &r.referencedColumns); err != nil {
			return nil, err
		}

		out = append(out, r)
	}

	return out, rows.Err()
}

const indexesQuery = `
SELECT index_name, is_unique, sql
FROM duckdb_indexes()
WHERE schema_name = ? AND table_name = ?
ORDER BY index_name`

func (d *Database) indexes(ctx context.Context, table string) ([]sqlschema.IndexInput, error) {
	rows, err := d.db.QueryContext(ctx, indexesQuery, d.schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sqlschema.IndexInput

	for rows.Next() {
		var (
			idx sqlschema.IndexInput
			ddl sql.NullString
		)

		if err := rows.Scan(&idx.Name, &idx.Unique, &ddl); err != nil {
			return nil, err
		}

		idx.Columns = indexColumns(ddl.String)
		out = append(out, idx)
	}

	return out, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
