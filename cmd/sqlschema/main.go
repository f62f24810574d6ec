// Command sqlschema compiles database catalogs into normalized schemas.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	// Register dialects and catalog readers.
	_ "github.com/rlch/sqlschema/databases/duckdb"
	_ "github.com/rlch/sqlschema/databases/postgres"
	_ "github.com/rlch/sqlschema/databases/sqlite"
	_ "github.com/rlch/sqlschema/dialects/duckdb"
	_ "github.com/rlch/sqlschema/dialects/postgres"
	_ "github.com/rlch/sqlschema/dialects/sqlite"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "sqlschema:", err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "sqlschema",
		Usage:     "Compile database catalogs into normalized schemas",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file (default: nearest .sqlschema.yaml)",
				Sources: cli.EnvVars("SQLSCHEMA_CONFIG"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				Sources: cli.EnvVars("SQLSCHEMA_DEBUG"),
			},
		},
		Commands: []*cli.Command{
			inspectCommand(),
			compileCommand(),
			dialectsCommand(),
		},
	}
}
