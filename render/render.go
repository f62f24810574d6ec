// Package render prints compiled schemas for the command line.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rlch/sqlschema"
	"github.com/rlch/sqlschema/schemafile"
)

// Output format names.
const (
	FormatText = "text"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// ErrUnknownFormat is returned by New for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown output format")

// Report is the outcome of one compilation pass.
type Report struct {
	Dialect  string
	Schemas  []*sqlschema.Schema
	Failures []error
}

// Unmapped counts the fields with an unmapped type across all schemas.
func (r *Report) Unmapped() int {
	n := 0
	for _, s := range r.Schemas {
		n += len(s.UnmappedFields())
	}

	return n
}

// Formatter renders schemas and the pass summary.
type Formatter interface {
	Format(schema *sqlschema.Schema) error
	Summary(report *Report) error
}

// New returns the formatter for the named format. An empty name selects text.
//
//nolint:ireturn
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case FormatText, "":
		return NewTextFormatter(w), nil
	case FormatYAML:
		return NewYAMLFormatter(w), nil
	case FormatJSON:
		return NewJSONFormatter(w), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Render formats every schema of the report, then its summary.
func Render(f Formatter, report *Report) error {
	for _, s := range report.Schemas {
		if err := f.Format(s); err != nil {
			return err
		}
	}

	return f.Summary(report)
}

// -----------------------------------------------------------------------------
// YAML Formatter
// -----------------------------------------------------------------------------

// YAMLFormatter writes a schema file document. Failures are not part of the
// document.
type YAMLFormatter struct {
	w       io.Writer
	schemas []*sqlschema.Schema
}

// NewYAMLFormatter creates a YAML formatter.
func NewYAMLFormatter(w io.Writer) *YAMLFormatter {
	return &YAMLFormatter{w: w}
}

// Format buffers the schema until Summary.
func (y *YAMLFormatter) Format(schema *sqlschema.Schema) error {
	y.schemas = append(y.schemas, schema)

	return nil
}

// Summary writes the buffered schemas.
func (y *YAMLFormatter) Summary(report *Report) error {
	return schemafile.WriteSchemas(y.w, report.Dialect, y.schemas)
}

// -----------------------------------------------------------------------------
// JSON Formatter
// -----------------------------------------------------------------------------

// JSONFormatter writes one JSON object per schema followed by a summary
// object.
type JSONFormatter struct {
	enc *json.Encoder
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{enc: json.NewEncoder(w)}
}

type jsonSchema struct {
	Type   string            `json:"type"`
	Schema *sqlschema.Schema `json:"schema"`
}

type jsonFailure struct {
	Table string `json:"table,omitempty"`
	Error string `json:"error"`
}

type jsonSummary struct {
	Type     string        `json:"type"`
	Dialect  string        `json:"dialect"`
	Tables   int           `json:"tables"`
	Unmapped int           `json:"unmapped"`
	Failures []jsonFailure `json:"failures,omitempty"`
}

// Format writes the schema.
func (j *JSONFormatter) Format(schema *sqlschema.Schema) error {
	return j.enc.Encode(jsonSchema{Type: "schema", Schema: schema})
}

// Summary writes the pass summary.
func (j *JSONFormatter) Summary(report *Report) error {
	summary := jsonSummary{
		Type:     "summary",
		Dialect:  report.Dialect,
		Tables:   len(report.Schemas),
		Unmapped: report.Unmapped(),
	}

	for _, err := range report.Failures {
		summary.Failures = append(summary.Failures, failure(err))
	}

	return j.enc.Encode(summary)
}

func failure(err error) jsonFailure {
	var te *sqlschema.TableError
	if errors.As(err, &te) {
		return jsonFailure{Table: te.Table, Error: te.Err.Error()}
	}

	return jsonFailure{Error: err.Error()}
}

// -----------------------------------------------------------------------------
// Text Formatter
// -----------------------------------------------------------------------------

var (
	colorDim    = lipgloss.Color("#8899A6")
	colorGreen  = lipgloss.Color("#00BA7C")
	colorRed    = lipgloss.Color("#F4212E")
	colorYellow = lipgloss.Color("#FFD400")
	colorBlue   = lipgloss.Color("#1D9BF0")
)

// TextFormatter writes a human readable listing. Colours are dropped when w
// is not a terminal.
type TextFormatter struct {
	w io.Writer

	table    lipgloss.Style
	dim      lipgloss.Style
	key      lipgloss.Style
	unmapped lipgloss.Style
	pass     lipgloss.Style
	fail     lipgloss.Style
}

// NewTextFormatter creates a text formatter.
func NewTextFormatter(w io.Writer) *TextFormatter {
	r := lipgloss.NewRenderer(w)

	return &TextFormatter{
		w:        w,
		table:    r.NewStyle().Bold(true).Foreground(colorBlue),
		dim:      r.NewStyle().Foreground(colorDim),
		key:      r.NewStyle().Bold(true),
		unmapped: r.NewStyle().Foreground(colorYellow),
		pass:     r.NewStyle().Bold(true).Foreground(colorGreen),
		fail:     r.NewStyle().Bold(true).Foreground(colorRed),
	}
}

// Format prints one table.
func (t *TextFormatter) Format(schema *sqlschema.Schema) error {
	_, err := fmt.Fprintln(t.w, t.table.Render(schema.Source))
	if err != nil {
		return err
	}

	nameWidth, typeWidth := 0, 0
	for _, f := range schema.Fields {
		nameWidth = max(nameWidth, len(f.Name))
		typeWidth = max(typeWidth, len(f.Type.String()))
	}

	for _, f := range schema.Fields {
		typ := fmt.Sprintf("%-*s", typeWidth, f.Type.String())
		if f.Type.IsUnmapped() {
			typ = t.unmapped.Render(typ)
		}

		line := fmt.Sprintf("  %-*s  %s", nameWidth, f.Name, typ)

		if flags := fieldFlags(f); flags != "" {
			line += "  " + t.key.Render(flags)
		}

		if f.Meta.Default != nil && f.Meta.Default.Kind != sqlschema.DefaultAbsent {
			line += "  " + t.dim.Render("default "+f.Meta.Default.String())
		}

		_, _ = fmt.Fprintln(t.w, strings.TrimRight(line, " "))
	}

	for _, fk := range schema.ForeignKeys {
		_, _ = fmt.Fprintf(t.w, "  %s (%s) -> %s (%s)\n", t.dim.Render("fk"),
			strings.Join(fk.Columns, ", "), fk.References, strings.Join(fk.ReferencedColumns, ", "))
	}

	for _, idx := range schema.Indices {
		kind := "index"
		if idx.Unique {
			kind = "unique"
		}

		_, _ = fmt.Fprintf(t.w, "  %s %s (%s)\n", t.dim.Render(kind), idx.Name, strings.Join(idx.Columns, ", "))
	}

	_, _ = fmt.Fprintln(t.w)

	return nil
}

func fieldFlags(f *sqlschema.Field) string {
	var flags []string

	if f.Meta.PrimaryKey {
		flags = append(flags, "pk")
	}

	if f.Meta.ForeignKey {
		flags = append(flags, "fk")
	}

	if f.Meta.Nullable {
		flags = append(flags, "null")
	}

	return strings.Join(flags, ",")
}

// Summary prints failures and the final counts.
func (t *TextFormatter) Summary(report *Report) error {
	for _, err := range report.Failures {
		_, _ = fmt.Fprintf(t.w, "%s %v\n", t.fail.Render("FAIL"), err)
	}

	status := t.pass.Render("OK")
	if len(report.Failures) > 0 {
		status = t.fail.Render("FAIL")
	}

	_, err := fmt.Fprintf(t.w, "%s %s: %d compiled, %d failed, %d unmapped fields\n",
		status, report.Dialect, len(report.Schemas), len(report.Failures), report.Unmapped())

	return err
}
