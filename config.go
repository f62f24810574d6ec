package sqlschema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "SQLSCHEMA_"

// ErrMultipleDatabases is returned when a config names more than one database.
var ErrMultipleDatabases = errors.New("sqlschema: more than one database configured")

// Config represents the .sqlschema.yaml configuration file.
type Config struct {
	// Database-specific configurations. Only one should be set; its presence
	// determines which database is introspected and implies the dialect.
	Postgres *PostgresConfig `yaml:"postgres,omitempty"`
	SQLite   *SQLiteConfig   `yaml:"sqlite,omitempty"`
	DuckDB   *DuckDBConfig   `yaml:"duckdb,omitempty"`

	// DialectOptions is passed to every Visit call.
	DialectOptions Options `yaml:"dialect_options,omitempty"`

	// Overrides replace compiled column types, first match wins.
	Overrides []OverrideConfig `yaml:"overrides,omitempty"`

	// Tables restricts introspection to the named tables. Empty means all.
	Tables []string `yaml:"tables,omitempty"`

	// Output controls how compiled schemas are written.
	Output OutputConfig `yaml:"output,omitempty"`

	// Concurrency bounds concurrent catalog reads and compilation.
	Concurrency int `yaml:"concurrency,omitempty"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	URI string `yaml:"uri"`

	// Schema is the namespace to introspect. Defaults to "public".
	Schema string `yaml:"schema,omitempty"`
}

// SQLiteConfig holds SQLite settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// DuckDBConfig holds DuckDB settings.
type DuckDBConfig struct {
	// Path is the database file; empty opens an in-memory database.
	Path string `yaml:"path,omitempty"`

	// Schema is the namespace to introspect. Defaults to "main".
	Schema string `yaml:"schema,omitempty"`
}

// OverrideConfig maps columns matching an expression to a canonical type.
//
//	overrides:
//	  - match: column == "tags" && raw == "_text"
//	    type: array(string(ci))
type OverrideConfig struct {
	Match string `yaml:"match"`
	Type  string `yaml:"type"`
}

// OutputConfig holds settings for written schemas.
type OutputConfig struct {
	// Format is one of "yaml", "json" or "text".
	Format string `yaml:"format,omitempty"`

	// Path is the output file; empty writes to stdout.
	Path string `yaml:"path,omitempty"`
}

// DatabaseName returns the configured database name, or empty if none.
func (c *Config) DatabaseName() string {
	switch {
	case c.Postgres != nil:
		return DatabasePostgres
	case c.SQLite != nil:
		return DatabaseSQLite
	case c.DuckDB != nil:
		return DatabaseDuckDB
	default:
		return ""
	}
}

// DialectName returns the dialect implied by the configured database.
func (c *Config) DialectName() string {
	return DialectForDatabase(c.DatabaseName())
}

// DatabaseConfig returns the configuration section of the configured
// database, suitable for NewDatabase.
func (c *Config) DatabaseConfig() any {
	switch {
	case c.Postgres != nil:
		return c.Postgres
	case c.SQLite != nil:
		return c.SQLite
	case c.DuckDB != nil:
		return c.DuckDB
	default:
		return nil
	}
}

// Validate checks the config for contradictions.
func (c *Config) Validate() error {
	n := 0

	for _, set := range []bool{c.Postgres != nil, c.SQLite != nil, c.DuckDB != nil} {
		if set {
			n++
		}
	}

	if n > 1 {
		return ErrMultipleDatabases
	}

	for i, o := range c.Overrides {
		if o.Match == "" {
			return fmt.Errorf("overrides[%d]: match is required", i)
		}

		if _, err := ParseTypeString(o.Type); err != nil {
			return fmt.Errorf("overrides[%d]: %w", i, err)
		}
	}

	switch c.Output.Format {
	case "", "yaml", "json", "text":
	default:
		return fmt.Errorf("output.format: unknown format %q", c.Output.Format)
	}

	return nil
}

// envConfig holds the settings that can come from the environment.
type envConfig struct {
	Database       string `env:"DATABASE"`
	PostgresURI    string `env:"POSTGRES_URI"`
	PostgresSchema string `env:"POSTGRES_SCHEMA"`
	SQLitePath     string `env:"SQLITE_PATH"`
	DuckDBPath     string `env:"DUCKDB_PATH"`
	DuckDBSchema   string `env:"DUCKDB_SCHEMA"`
	OutputFormat   string `env:"OUTPUT_FORMAT"`
	Concurrency    int    `env:"CONCURRENCY"`
}

// ApplyEnv overlays SQLSCHEMA_* environment variables onto c. Setting a
// database's connection variable selects that database, replacing any other
// database section from the file.
func (c *Config) ApplyEnv() error {
	var e envConfig
	if err := env.ParseWithOptions(&e, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}

	switch {
	case e.PostgresURI != "" || e.Database == DatabasePostgres:
		if c.Postgres == nil {
			*c = c.withoutDatabases()
			c.Postgres = &PostgresConfig{}
		}
	case e.SQLitePath != "" || e.Database == DatabaseSQLite:
		if c.SQLite == nil {
			*c = c.withoutDatabases()
			c.SQLite = &SQLiteConfig{}
		}
	case e.DuckDBPath != "" || e.Database == DatabaseDuckDB:
		if c.DuckDB == nil {
			*c = c.withoutDatabases()
			c.DuckDB = &DuckDBConfig{}
		}
	case e.Database != "":
		return fmt.Errorf("%sDATABASE: %w: %s", EnvPrefix, ErrUnknownDatabase, e.Database)
	}

	if c.Postgres != nil {
		c.Postgres.URI = firstNonEmpty(e.PostgresURI, c.Postgres.URI)
		c.Postgres.Schema = firstNonEmpty(e.PostgresSchema, c.Postgres.Schema)
	}

	if c.SQLite != nil {
		c.SQLite.Path = firstNonEmpty(e.SQLitePath, c.SQLite.Path)
	}

	if c.DuckDB != nil {
		c.DuckDB.Path = firstNonEmpty(e.DuckDBPath, c.DuckDB.Path)
		c.DuckDB.Schema = firstNonEmpty(e.DuckDBSchema, c.DuckDB.Schema)
	}

	c.Output.Format = firstNonEmpty(e.OutputFormat, c.Output.Format)

	if e.Concurrency > 0 {
		c.Concurrency = e.Concurrency
	}

	return nil
}

func (c Config) withoutDatabases() Config {
	c.Postgres, c.SQLite, c.DuckDB = nil, nil, nil

	return c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".sqlschema.yaml", ".sqlschema.yml", "sqlschema.yaml", "sqlschema.yml"}

// LoadConfig finds and loads the nearest .sqlschema.yaml walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path. Relative database
// file paths are resolved against the config file's directory.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(path)

	if cfg.SQLite != nil {
		cfg.SQLite.Path = resolvePath(dir, cfg.SQLite.Path)
	}

	if cfg.DuckDB != nil {
		cfg.DuckDB.Path = resolvePath(dir, cfg.DuckDB.Path)
	}

	return &cfg, nil
}

func resolvePath(dir, p string) string {
	if p == "" || p == ":memory:" || filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(dir, p)
}
