// Package sqlite provides a sqlschema Database that reads SQLite catalogs
// through the PRAGMA table-valued functions.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" database/sql driver

	"github.com/rlch/sqlschema"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ErrInvalidConfig is returned when an invalid configuration is provided.
var ErrInvalidConfig = errors.New("sqlite: expected *sqlschema.SQLiteConfig")

//nolint:gochecknoinits // Database self-registration pattern
func init() {
	sqlschema.RegisterDatabase(sqlschema.DatabaseSQLite, func(cfg any) (sqlschema.Database, error) {
		sqliteCfg, ok := cfg.(*sqlschema.SQLiteConfig)
		if !ok {
			return nil, fmt.Errorf("%w, got %T", ErrInvalidConfig, cfg)
		}

		return New(context.Background(), sqliteCfg)
	})
}

// Database implements sqlschema.Database for SQLite.
type Database struct {
	db *sql.DB
}

var _ sqlschema.Database = (*Database)(nil)

// New opens the database file read-only.
func New(ctx context.Context, cfg *sqlschema.SQLiteConfig) (*Database, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite: path is required")
	}

	dsn := "file:" + cfg.Path + "?mode=ro"
	if cfg.Path == MemoryPath {
		dsn = MemoryPath
	}

	db, err := sql.Open(sqlschema.DriverForDatabase(sqlschema.DatabaseSQLite), dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open: %w", err)
	}

	// Every connection to :memory: is a distinct database.
	if cfg.Path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("sqlite: failed to open %s: %w", cfg.Path, err)
	}

	return &Database{db: db}, nil
}

// Name returns the database identifier.
func (d *Database) Name() string {
	return sqlschema.DatabaseSQLite
}

// Dialect returns the dialect compiling SQLite catalogs.
func (d *Database) Dialect() string {
	return sqlschema.DialectSQLite
}

// Close closes the database.
func (d *Database) Close() error {
	return d.db.Close()
}

const tablesQuery = `
SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
ORDER BY name`

// Tables lists the user tables.
func (d *Database) Tables(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, tablesQuery)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tables: %w", err)
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

// Table reads one table's columns, keys and indexes.
func (d *Database) Table(ctx context.Context, name string) (*sqlschema.TableInput, error) {
	cols, err := d.columns(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("sqlite: columns of %s: %w", name, err)
	}

	if len(cols) == 0 {
		return nil, fmt.Errorf("sqlite: table %s not found", name)
	}

	fks, err := d.foreignKeys(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("sqlite: foreign keys of %s: %w", name, err)
	}

	idx, err := d.indexes(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("sqlite: indexes of %s: %w", name, err)
	}

	return buildTable(name, cols, fks, idx), nil
}

const columnsQuery = `
SELECT name, type, "notnull", dflt_value, pk
FROM pragma_table_info(?)
ORDER BY cid`

func (d *Database) columns(ctx context.Context, table string) ([]columnRow, error) {
	rows, err := d.db.QueryContext(ctx, columnsQuery, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []columnRow

	for rows.Next() {
		var c columnRow
		if err := rows.Scan(&c.name, &c.declared, &c.notNull, &c.def, &c.pk); err != nil {
			return nil, err
		}

		cols = append(cols, c)
	}

	return cols, rows.Err()
}

const foreignKeysQuery = `
SELECT id, "table", "from", "to"
FROM pragma_foreign_key_list(?)
ORDER BY id, seq`

func (d *Database) foreignKeys(ctx context.Context, table string) ([]foreignKeyRow, error) {
	rows, err := d.db.QueryContext(ctx, foreignKeysQuery, table)
	if err != nil {
		return nil, err
	}

	var fks []foreignKeyRow

	for rows.Next() {
		var r foreignKeyRow
		if err := rows.Scan(&r.id, &r.references, &r.column, &r.referencedColumn); err != nil {
			_ = rows.Close()

			return nil, err
		}

		fks = append(fks, r)
	}

	if err := rows.Close(); err != nil {
		return nil, err
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	// REFERENCES parent without a column list targets the parent's key.
	parents := make(map[string][]string)

	for i, r := range fks {
		if r.referencedColumn.Valid {
			continue
		}

		pk, ok := parents[r.references]
		if !ok {
			if pk, err = d.primaryKey(ctx, r.references); err != nil {
				return nil, err
			}

			parents[r.references] = pk
		}

		seq := 0
		for j := i - 1; j >= 0 && fks[j].id == r.id; j-- {
			seq++
		}

		if seq < len(pk) {
			fks[i].referencedColumn = sql.NullString{String: pk[seq], Valid: true}
		}
	}

	return fks, nil
}

func (d *Database) primaryKey(ctx context.Context, table string) ([]string, error) {
	cols, err := d.columns(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("primary key of %s: %w", table, err)
	}

	return primaryKey(cols), nil
}

const (
	indexListQuery = `SELECT name, "unique", origin FROM pragma_index_list(?) ORDER BY name`
	indexInfoQuery = `SELECT name FROM pragma_index_info(?) ORDER BY seqno`
)

func (d *Database) indexes(ctx context.Context, table string) ([]sqlschema.IndexInput, error) {
	rows, err := d.db.QueryContext(ctx, indexListQuery, table)
	if err != nil {
		return nil, err
	}

	var list []sqlschema.IndexInput

	for rows.Next() {
		var (
			idx    sqlschema.IndexInput
			origin string
		)

		if err := rows.Scan(&idx.Name, &idx.Unique, &origin); err != nil {
			_ = rows.Close()

			return nil, err
		}

		// The primary key is reported on the schema itself.
		if origin == "pk" {
			continue
		}

		list = append(list, idx)
	}

	if err := rows.Close(); err != nil {
		return nil, err
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range list {
		cols, err := d.indexColumns(ctx, list[i].Name)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", list[i].Name, err)
		}

		list[i].Columns = cols
	}

	return list, nil
}

func (d *Database) indexColumns(ctx context.Context, index string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, indexInfoQuery, index)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string

	for rows.Next() {
		// Expression members have no column name.
		var name sql.NullString
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}

		if name.Valid {
			cols = append(cols, name.String)
		}
	}

	return cols, rows.Err()
}

type columnRow struct {
	name     string
	declared string
	notNull  bool
	def      sql.NullString
	pk       int
}

type foreignKeyRow struct {
	id               int
	references       string
	column           string
	referencedColumn sql.NullString
}

// primaryKey returns the key columns in key order.
func primaryKey(cols []columnRow) []string {
	key := make([]columnRow, 0, len(cols))

	for _, c := range cols {
		if c.pk > 0 {
			key = append(key, c)
		}
	}

	sort.Slice(key, func(i, j int) bool { return key[i].pk < key[j].pk })

	names := make([]string, len(key))
	for i, c := range key {
		names[i] = c.name
	}

	return names
}

// buildTable assembles the raw catalog rows of one table.
//
// A column declared exactly INTEGER that alone forms the primary key aliases
// the rowid and is reported as an identity column. A column declared with no
// type has BLOB affinity and is reported as BLOB.
func buildTable(name string, cols []columnRow, fks []foreignKeyRow, indexes []sqlschema.IndexInput) *sqlschema.TableInput {
	pk := primaryKey(cols)

	t := &sqlschema.TableInput{
		Name:       name,
		Columns:    make([]sqlschema.ColumnInput, 0, len(cols)),
		PrimaryKey: pk,
		Indices:    indexes,
	}

	for _, c := range cols {
		col := sqlschema.ColumnInput{
			Name:     c.name,
			Type:     strings.TrimSpace(c.declared),
			Nullable: !c.notNull && c.pk == 0,
		}

		if col.Type == "" {
			col.Type = "BLOB"
		}

		if len(pk) == 1 && c.pk == 1 && strings.EqualFold(col.Type, "INTEGER") {
			col.Identity = true
		}

		if c.def.Valid {
			def := c.def.String
			col.Default = &def
		}

		t.Columns = append(t.Columns, col)
	}

	for i, r := range fks {
		if i == 0 || fks[i-1].id != r.id {
			t.ForeignKeys = append(t.ForeignKeys, sqlschema.ForeignKeyInput{
				Name:       fmt.Sprintf("%s_fk_%d", name, r.id),
				References: r.references,
			})
		}

		fk := &t.ForeignKeys[len(t.ForeignKeys)-1]
		fk.Columns = append(fk.Columns, r.column)
		fk.ReferencedColumns = append(fk.ReferencedColumns, r.referencedColumn.String)
	}

	return t
}
