package sqlschema

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Database is a catalog source: a live database whose tables can be read as
// raw TableInputs. Readers never interpret types or defaults; that is the
// dialect's job.
type Database interface {
	// Name returns the database identifier (e.g., "postgres", "sqlite").
	Name() string

	// Dialect returns the name of the dialect that compiles this database's
	// catalog.
	Dialect() string

	// Tables lists the base tables in catalog order.
	Tables(ctx context.Context) ([]string, error)

	// Table reads the raw catalog description of one table.
	Table(ctx context.Context, name string) (*TableInput, error)

	// Close releases database resources.
	Close() error
}

// DatabaseFactory creates a Database from configuration.
type DatabaseFactory func(cfg any) (Database, error)

var databases = make(map[string]DatabaseFactory)

// RegisterDatabase registers a database factory by name.
func RegisterDatabase(name string, factory DatabaseFactory) {
	databases[name] = factory
}

// NewDatabase creates a database instance by name.
func NewDatabase(name string, cfg any) (Database, error) { //nolint:ireturn
	factory, ok := databases[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDatabase, name)
	}

	return factory(cfg)
}

// RegisteredDatabases returns the names of all registered databases, sorted.
func RegisteredDatabases() []string {
	names := make([]string, 0, len(databases))
	for name := range databases {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// ReadCatalog reads the named tables from db, at most limit at a time
// (limit <= 0 means unbounded). When names is empty every table is read.
// Tables are returned in the order requested; the first error cancels the
// remaining reads.
func ReadCatalog(ctx context.Context, db Database, names []string, limit int) ([]TableInput, error) {
	if len(names) == 0 {
		all, err := db.Tables(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing tables: %w", err)
		}

		names = all
	}

	tables := make([]TableInput, len(names))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, name := range names {
		g.Go(func() error {
			t, err := db.Table(ctx, name)
			if err != nil {
				return &TableError{Table: name, Err: err}
			}

			tables[i] = *t

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return tables, nil
}
