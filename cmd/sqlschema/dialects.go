package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/rlch/sqlschema"
)

func dialectsCommand() *cli.Command {
	return &cli.Command{
		Name:  "dialects",
		Usage: "List registered dialects and the databases they compile",
		Action: func(_ context.Context, cmd *cli.Command) error {
			return listDialects(cmd)
		},
	}
}

func listDialects(cmd *cli.Command) error {
	w := cmd.Root().Writer
	registered := sqlschema.RegisteredDatabases()

	for _, dialect := range sqlschema.RegisteredDialects() {
		var dbs []string

		for _, db := range registered {
			if sqlschema.DialectForDatabase(db) == dialect {
				dbs = append(dbs, fmt.Sprintf("%s (driver %s)", db, sqlschema.DriverForDatabase(db)))
			}
		}

		slices.Sort(dbs)

		if len(dbs) == 0 {
			dbs = []string{"offline only"}
		}

		if _, err := fmt.Fprintf(w, "%-10s %s\n", dialect, strings.Join(dbs, ", ")); err != nil {
			return err
		}
	}

	return nil
}
