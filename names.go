package sqlschema

// Database names.
const (
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
	DatabaseDuckDB   = "duckdb"
)

// Dialect names.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
	DialectDuckDB   = "duckdb"
)

// DatabaseInfo maps database names to their dialect and database/sql driver.
type DatabaseInfo struct {
	Dialect string
	Driver  string
}

// KnownDatabases maps database names to their info.
var KnownDatabases = map[string]DatabaseInfo{
	DatabasePostgres: {Dialect: DialectPostgres, Driver: "pgx"},
	DatabaseSQLite:   {Dialect: DialectSQLite, Driver: "sqlite3"},
	DatabaseDuckDB:   {Dialect: DialectDuckDB, Driver: "duckdb"},
}

// DialectForDatabase returns the dialect name for a database.
func DialectForDatabase(dbName string) string {
	if info, ok := KnownDatabases[dbName]; ok {
		return info.Dialect
	}

	return ""
}

// DriverForDatabase returns the database/sql driver name for a database.
func DriverForDatabase(dbName string) string {
	if info, ok := KnownDatabases[dbName]; ok {
		return info.Driver
	}

	return ""
}
