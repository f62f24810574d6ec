package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rlch/sqlschema"
	"github.com/rlch/sqlschema/overrides"
	"github.com/rlch/sqlschema/render"
)

// loadConfig loads the --config file, or the nearest config walking up from
// the working directory, and overlays the environment. A missing config is
// not an error. The returned directory anchors relative paths.
func loadConfig(cmd *cli.Command) (*sqlschema.Config, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("getting cwd: %w", err)
	}

	path := cmd.String("config")
	if path == "" {
		path, err = sqlschema.FindConfig(cwd)
		if errors.Is(err, sqlschema.ErrConfigNotFound) {
			path = ""
		} else if err != nil {
			return nil, "", err
		}
	}

	cfg := &sqlschema.Config{}
	dir := cwd

	if path != "" {
		if cfg, err = sqlschema.LoadConfigFile(path); err != nil {
			return nil, "", fmt.Errorf("loading config: %w", err)
		}

		dir = filepath.Dir(path)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, "", err
	}

	return cfg, dir, nil
}

// newLogger builds a development logger on stderr; --debug lowers the level.
func newLogger(cmd *cli.Command) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	if cmd.Bool("debug") {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	return config.Build()
}

// newCompiler builds a compiler honouring the config's overrides, dialect
// options and concurrency.
func newCompiler(cfg *sqlschema.Config, logger *zap.Logger) (*sqlschema.Compiler, error) {
	opts := []sqlschema.CompilerOption{
		sqlschema.WithLogger(logger),
		sqlschema.WithOptions(cfg.DialectOptions),
		sqlschema.WithConcurrency(cfg.Concurrency),
	}

	if len(cfg.Overrides) > 0 {
		resolver, err := overrides.New(cfg.Overrides)
		if err != nil {
			return nil, err
		}

		opts = append(opts, sqlschema.WithTypeResolver(resolver))
	}

	return sqlschema.NewCompiler(opts...), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// outputFormat picks the flag, then the config, then text for terminals and
// YAML otherwise.
func outputFormat(flag string, cfg *sqlschema.Config, w io.Writer) string {
	switch {
	case flag != "":
		return flag
	case cfg.Output.Format != "":
		return cfg.Output.Format
	case isTerminal(w):
		return render.FormatText
	default:
		return render.FormatYAML
	}
}

// startSpinner shows progress on w when it is a terminal. The returned
// function stops it.
func startSpinner(w io.Writer, suffix string) func() {
	if !isTerminal(w) {
		return func() {}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
		spinner.WithWriter(w),
		spinner.WithSuffix(" "+suffix))
	s.Start()

	return s.Stop
}

// openOutput opens path for writing, or returns w when path is empty.
func openOutput(path string, w io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return w, func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return nil, nil, err
	}

	return f, f.Close, nil
}
