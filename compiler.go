package sqlschema

import (
	"context"
	"fmt"
	"runtime"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ColumnContext describes a column whose dialect type is being resolved.
type ColumnContext struct {
	Dialect string
	Table   string
	Column  ColumnInput

	// Type is the type the dialect compiled for the column.
	Type *Type
}

// TypeResolver can replace the type a dialect compiled for a column.
// ResolveType returns nil to keep the dialect's type.
type TypeResolver interface {
	ResolveType(col ColumnContext) (*Type, error)
}

// Compiler turns raw catalog tables into Schemas using a dialect Visitor.
// It holds no state between calls and is safe for concurrent use.
type Compiler struct {
	logger      *zap.Logger
	opts        Options
	resolver    TypeResolver
	namer       FieldNamer
	concurrency int
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) CompilerOption {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOptions sets the options bag passed to every Visit call.
func WithOptions(opts Options) CompilerOption {
	return func(c *Compiler) {
		c.opts = opts
	}
}

// WithTypeResolver installs a resolver consulted after the dialect.
func WithTypeResolver(r TypeResolver) CompilerOption {
	return func(c *Compiler) {
		c.resolver = r
	}
}

// WithFieldNamer sets how field names are derived from column names.
// Defaults to SnakeCase.
func WithFieldNamer(n FieldNamer) CompilerOption {
	return func(c *Compiler) {
		if n != nil {
			c.namer = n
		}
	}
}

// WithConcurrency bounds the number of tables CompileAll compiles at once.
// Defaults to GOMAXPROCS.
func WithConcurrency(n int) CompilerOption {
	return func(c *Compiler) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// NewCompiler creates a Compiler with the given options.
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{
		logger:      zap.NewNop(),
		namer:       SnakeCase,
		concurrency: runtime.GOMAXPROCS(0),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Compile compiles one table with the dialect registered under name.
func (c *Compiler) Compile(dialect string, table TableInput) (*Schema, error) {
	v, err := GetDialect(dialect)
	if err != nil {
		return nil, err
	}

	return c.CompileWith(v, table)
}

// CompileWith compiles one table with the given visitor. Only structural
// errors are returned; unrecognised types and defaults degrade to unmapped
// passthroughs.
func (c *Compiler) CompileWith(v Visitor, table TableInput) (*Schema, error) {
	if table.Name == "" {
		return nil, structuralf("", "name", "table name must be non-empty")
	}

	schema := &Schema{
		Source: table.Name,
		Fields: make([]*Field, 0, len(table.Columns)),
	}

	bySource := make(map[string]*Field, len(table.Columns))
	byName := make(map[string]string, len(table.Columns))

	for _, col := range table.Columns {
		if _, dup := bySource[col.Name]; dup {
			return nil, structuralf("", "columns", "duplicate column %q", col.Name)
		}

		f, err := c.compileColumn(v, table.Name, col)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}

		if other, dup := byName[f.Name]; dup {
			return nil, structuralf("", "columns", "columns %q and %q both map to field %q", other, col.Name, f.Name)
		}

		bySource[col.Name] = f
		byName[f.Name] = col.Name
		schema.Fields = append(schema.Fields, f)
	}

	// Key order follows the catalog's key declaration, not column order.
	pk := make([]*Field, 0, len(table.PrimaryKey))

	for _, name := range table.PrimaryKey {
		f, ok := bySource[name]
		if !ok {
			return nil, structuralf("", "primary_key", "unknown column %q", name)
		}

		if f.Meta.PrimaryKey {
			return nil, structuralf("", "primary_key", "column %q listed twice", name)
		}

		f.Meta.PrimaryKey = true
		pk = append(pk, f)
	}

	schema.PrimaryKey = PrimaryKey{Fields: pk}

	for _, fk := range table.ForeignKeys {
		if len(fk.Columns) == 0 || len(fk.Columns) != len(fk.ReferencedColumns) {
			return nil, structuralf("", "foreign_keys", "foreign key %q: %d columns reference %d columns",
				fk.Name, len(fk.Columns), len(fk.ReferencedColumns))
		}

		for _, name := range fk.Columns {
			f, ok := bySource[name]
			if !ok {
				return nil, structuralf("", "foreign_keys", "foreign key %q: unknown column %q", fk.Name, name)
			}

			f.Meta.ForeignKey = true
			if len(fk.Columns) == 1 {
				f.Meta.Association = true
			}
		}

		schema.ForeignKeys = append(schema.ForeignKeys, ForeignKey{
			Name:              fk.Name,
			Columns:           slices.Clone(fk.Columns),
			References:        fk.References,
			ReferencedColumns: slices.Clone(fk.ReferencedColumns),
		})
	}

	for _, idx := range table.Indices {
		for _, name := range idx.Columns {
			if _, ok := bySource[name]; !ok {
				return nil, structuralf("", "indices", "index %q: unknown column %q", idx.Name, name)
			}
		}

		schema.Indices = append(schema.Indices, Index{
			Name:    idx.Name,
			Columns: slices.Clone(idx.Columns),
			Unique:  idx.Unique,
		})
	}

	return schema, nil
}

func (c *Compiler) compileColumn(v Visitor, table string, col ColumnInput) (*Field, error) {
	nodes, err := col.Nodes()
	if err != nil {
		return nil, err
	}

	typeResult, err := v.Visit(nodes.Type, c.opts)
	if err != nil {
		return nil, err
	}

	if typeResult.Type == nil {
		return nil, fmt.Errorf("dialect %s returned no type for %s node", v.Name(), nodes.Type.Kind())
	}

	typ := typeResult.Type

	if c.resolver != nil {
		override, err := c.resolver.ResolveType(ColumnContext{
			Dialect: v.Name(),
			Table:   table,
			Column:  col,
			Type:    typ,
		})
		if err != nil {
			return nil, fmt.Errorf("resolving type: %w", err)
		}

		if override != nil {
			c.logger.Debug("type overridden",
				zap.String("table", table),
				zap.String("column", col.Name),
				zap.Stringer("from", typ),
				zap.Stringer("to", override))

			typ = override
		}
	}

	if typ.IsUnmapped() {
		c.logger.Warn("unmapped type",
			zap.String("dialect", v.Name()),
			zap.String("table", table),
			zap.String("column", col.Name),
			zap.Stringer("type", typ))
	}

	defaultResult, err := v.Visit(nodes.Default, c.opts)
	if err != nil {
		return nil, err
	}

	def := defaultResult.Default
	if def == nil {
		return nil, fmt.Errorf("dialect %s returned no default for %s node", v.Name(), NodeDefault)
	}

	if def.Kind == DefaultAbsent && col.Identity {
		def = Sentinel(DefaultAutoIncrement)
	}

	if def.Kind == DefaultUnmapped {
		c.logger.Debug("unmapped default",
			zap.String("dialect", v.Name()),
			zap.String("table", table),
			zap.String("column", col.Name),
			zap.String("expression", def.Raw))
	}

	return &Field{
		Name: c.namer(col.Name),
		Type: typ,
		Meta: FieldMeta{
			Source:   col.Name,
			Nullable: col.Nullable,
			Default:  def,
			Checks:   slices.Clone(col.Checks),
		},
	}, nil
}

// CompileAll compiles tables concurrently with the dialect registered under
// name. A table that fails to compile does not prevent the others from
// compiling: the returned schemas are the successful ones, in input order,
// and the error combines one *TableError per failed table.
func (c *Compiler) CompileAll(ctx context.Context, dialect string, tables []TableInput) ([]*Schema, error) {
	v, err := GetDialect(dialect)
	if err != nil {
		return nil, err
	}

	log := c.logger.With(
		zap.String("pass", uuid.NewString()),
		zap.String("dialect", v.Name()),
	)
	log.Debug("compiling tables", zap.Int("count", len(tables)))

	results := make([]*Schema, len(tables))
	errs := make([]error, len(tables))

	var g errgroup.Group

	g.SetLimit(c.concurrency)

	for i, table := range tables {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = &TableError{Table: table.Name, Err: err}

				return nil
			}

			s, err := c.CompileWith(v, table)
			if err != nil {
				log.Warn("table failed to compile", zap.String("table", table.Name), zap.Error(err))
				errs[i] = &TableError{Table: table.Name, Err: err}

				return nil
			}

			results[i] = s

			return nil
		})
	}

	_ = g.Wait()

	schemas := make([]*Schema, 0, len(tables))
	for _, s := range results {
		if s != nil {
			schemas = append(schemas, s)
		}
	}

	err = multierr.Combine(errs...)
	log.Debug("compiled tables", zap.Int("ok", len(schemas)), zap.Int("failed", len(multierr.Errors(err))))

	return schemas, err
}
