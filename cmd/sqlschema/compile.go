package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/boyter/gocodewalker"
	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/rlch/sqlschema"
	"github.com/rlch/sqlschema/render"
	"github.com/rlch/sqlschema/schemafile"
)

// ErrNoCatalogFiles is returned when compile finds nothing to compile.
var ErrNoCatalogFiles = errors.New("no " + schemafile.CatalogSuffix + " files found")

func compileCommand() *cli.Command {
	return &cli.Command{
		Name:      "compile",
		Usage:     "Compile catalog dumps written by inspect --dump",
		ArgsUsage: "[files or directories...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "output format (text, yaml, json)",
			},
			&cli.StringFlag{
				Name:  "out-dir",
				Usage: "write one schema file per catalog into this directory (default: stdout)",
			},
		},
		Action: runCompile,
	}
}

func runCompile(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		args = []string{"."}
	}

	files, err := collectCatalogFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return ErrNoCatalogFiles
	}

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	defer func() { _ = logger.Sync() }()

	compiler, err := newCompiler(cfg, logger)
	if err != nil {
		return err
	}

	stdout := cmd.Root().Writer
	outDir := cmd.String("out-dir")
	format := outputFormat(cmd.String("format"), cfg, stdout)

	var failed int

	for i, file := range files {
		catalog, err := schemafile.LoadCatalog(file, "")
		if err != nil {
			return err
		}

		logger.Debug("compiling catalog", zap.String("file", file), zap.String("dialect", catalog.Dialect))

		schemas, compileErr := compiler.CompileAll(ctx, catalog.Dialect, catalog.Tables)

		if errors.Is(compileErr, sqlschema.ErrUnknownDialect) {
			return fmt.Errorf("%s: %w", file, compileErr)
		}

		report := &render.Report{
			Dialect:  catalog.Dialect,
			Schemas:  schemas,
			Failures: multierr.Errors(compileErr),
		}
		failed += len(report.Failures)

		w := stdout
		closeOut := func() error { return nil }

		if outDir != "" {
			w, closeOut, err = openOutput(filepath.Join(outDir, schemaFileName(file, format)), stdout)
			if err != nil {
				return err
			}
		} else if i > 0 && format == render.FormatYAML {
			_, _ = fmt.Fprintln(w, "---")
		}

		if err := writeReport(w, format, report); err != nil {
			return multierr.Append(err, closeOut())
		}

		if err := closeOut(); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d", ErrCompileFailures, failed)
	}

	return nil
}

func writeReport(w io.Writer, format string, report *render.Report) error {
	formatter, err := render.New(format, w)
	if err != nil {
		return err
	}

	return render.Render(formatter, report)
}

// schemaFileName maps "app.catalog.yaml" to "app.schema.yaml" (or .json,
// .txt for the other formats).
func schemaFileName(catalogPath, format string) string {
	base := strings.TrimSuffix(filepath.Base(catalogPath), schemafile.CatalogSuffix)

	switch format {
	case render.FormatJSON:
		return base + ".schema.json"
	case render.FormatText:
		return base + ".schema.txt"
	default:
		return base + ".schema.yaml"
	}
}

// collectCatalogFiles expands directories into the catalog dumps they
// contain, respecting .gitignore. The result is sorted.
func collectCatalogFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			files = append(files, arg)

			continue
		}

		var mu sync.Mutex

		if err := walkDir(arg, func(path string) {
			if strings.HasSuffix(path, schemafile.CatalogSuffix) {
				mu.Lock()
				files = append(files, path)
				mu.Unlock()
			}
		}); err != nil {
			return nil, err
		}
	}

	sort.Strings(files)

	return files, nil
}

// walkDir walks a directory for YAML files, respecting .gitignore.
func walkDir(root string, callback func(path string)) error {
	fileListQueue := make(chan *gocodewalker.File, 100)

	fileWalker := gocodewalker.NewFileWalker(root, fileListQueue)
	fileWalker.AllowListExtensions = []string{"yaml", "catalog.yaml"}

	var walkErr error

	fileWalker.SetErrorHandler(func(e error) bool {
		walkErr = e

		return true
	})

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		for f := range fileListQueue {
			callback(f.Location)
		}
	}()

	if err := fileWalker.Start(); err != nil {
		return err
	}

	wg.Wait()

	return walkErr
}
