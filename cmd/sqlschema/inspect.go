package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/rlch/sqlschema"
	"github.com/rlch/sqlschema/render"
	"github.com/rlch/sqlschema/schemafile"
)

// Inspect command errors.
var (
	ErrNoDatabase      = errors.New("no database specified (use --database or a database section in .sqlschema.yaml)")
	ErrNoConnectionURI = errors.New("no connection URI specified (use --uri or .sqlschema.yaml)")
	ErrNoPath          = errors.New("no database path specified (use --path or .sqlschema.yaml)")
	ErrCompileFailures = errors.New("some tables failed to compile")
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Read a live database catalog and compile it",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Usage:   "database to read (postgres, sqlite, duckdb); overrides config",
			},
			&cli.StringFlag{
				Name:    "uri",
				Usage:   "postgres connection URI",
				Sources: cli.EnvVars("SQLSCHEMA_URI"),
			},
			&cli.StringFlag{
				Name:  "path",
				Usage: "sqlite or duckdb database file",
			},
			&cli.StringFlag{
				Name:  "schema",
				Usage: "namespace to read (postgres, duckdb)",
			},
			&cli.StringSliceFlag{
				Name:    "table",
				Aliases: []string{"t"},
				Usage:   "only read the named tables (repeatable)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "output format (text, yaml, json)",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "output file (default: stdout)",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "tables read and compiled at once (default: number of CPUs)",
			},
			&cli.BoolFlag{
				Name:  "dump",
				Usage: "write the raw catalog (for offline compile) instead of compiled schemas",
			},
		},
		Action: runInspect,
	}
}

func runInspect(ctx context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := applyDatabaseFlags(cfg, cmd); err != nil {
		return err
	}

	if tables := cmd.StringSlice("table"); len(tables) > 0 {
		cfg.Tables = tables
	}

	if n := cmd.Int("concurrency"); n > 0 {
		cfg.Concurrency = int(n)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	defer func() { _ = logger.Sync() }()

	dbName := cfg.DatabaseName()
	if dbName == "" {
		return ErrNoDatabase
	}

	db, err := sqlschema.NewDatabase(dbName, cfg.DatabaseConfig())
	if err != nil {
		return err
	}

	defer func() { _ = db.Close() }()

	stop := startSpinner(cmd.Root().ErrWriter, "reading "+dbName+" catalog")
	tables, err := sqlschema.ReadCatalog(ctx, db, cfg.Tables, cfg.Concurrency)
	stop()

	if err != nil {
		return err
	}

	logger.Debug("read catalog", zap.String("database", dbName), zap.Int("tables", len(tables)))

	w, closeOut, err := openOutput(firstNonEmpty(cmd.String("out"), cfg.Output.Path), cmd.Root().Writer)
	if err != nil {
		return err
	}

	if cmd.Bool("dump") {
		return multierr.Append(
			schemafile.WriteCatalog(w, &schemafile.Catalog{Dialect: db.Dialect(), Tables: tables}),
			closeOut(),
		)
	}

	compiler, err := newCompiler(cfg, logger)
	if err != nil {
		return multierr.Append(err, closeOut())
	}

	schemas, compileErr := compiler.CompileAll(ctx, db.Dialect(), tables)

	formatter, err := render.New(outputFormat(cmd.String("format"), cfg, w), w)
	if err != nil {
		return multierr.Append(err, closeOut())
	}

	report := &render.Report{
		Dialect:  db.Dialect(),
		Schemas:  schemas,
		Failures: multierr.Errors(compileErr),
	}

	if err := multierr.Append(render.Render(formatter, report), closeOut()); err != nil {
		return err
	}

	if len(report.Failures) > 0 {
		return fmt.Errorf("%w: %d of %d", ErrCompileFailures, len(report.Failures), len(tables))
	}

	return nil
}

// applyDatabaseFlags overlays the connection flags onto the config.
// --database selects a database, discarding the others.
func applyDatabaseFlags(cfg *sqlschema.Config, cmd *cli.Command) error {
	switch name := cmd.String("database"); name {
	case "":
	case sqlschema.DatabasePostgres:
		if cfg.Postgres == nil {
			cfg.Postgres, cfg.SQLite, cfg.DuckDB = &sqlschema.PostgresConfig{}, nil, nil
		}
	case sqlschema.DatabaseSQLite:
		if cfg.SQLite == nil {
			cfg.Postgres, cfg.SQLite, cfg.DuckDB = nil, &sqlschema.SQLiteConfig{}, nil
		}
	case sqlschema.DatabaseDuckDB:
		if cfg.DuckDB == nil {
			cfg.Postgres, cfg.SQLite, cfg.DuckDB = nil, nil, &sqlschema.DuckDBConfig{}
		}
	default:
		return fmt.Errorf("%w: %s", sqlschema.ErrUnknownDatabase, name)
	}

	uri, path, schema := cmd.String("uri"), cmd.String("path"), cmd.String("schema")

	switch {
	case cfg.Postgres != nil:
		cfg.Postgres.URI = firstNonEmpty(uri, cfg.Postgres.URI)
		cfg.Postgres.Schema = firstNonEmpty(schema, cfg.Postgres.Schema)

		if cfg.Postgres.URI == "" {
			return ErrNoConnectionURI
		}
	case cfg.SQLite != nil:
		cfg.SQLite.Path = firstNonEmpty(path, cfg.SQLite.Path)

		if cfg.SQLite.Path == "" {
			return ErrNoPath
		}
	case cfg.DuckDB != nil:
		cfg.DuckDB.Path = firstNonEmpty(path, cfg.DuckDB.Path)
		cfg.DuckDB.Schema = firstNonEmpty(schema, cfg.DuckDB.Schema)
	case uri != "":
		cfg.Postgres = &sqlschema.PostgresConfig{URI: uri, Schema: schema}
	}

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
