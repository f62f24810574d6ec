package sqlschema

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrConfigNotFound is returned when no .sqlschema.yaml is found.
	ErrConfigNotFound = errors.New("sqlschema: no .sqlschema.yaml found")

	// ErrUnknownDialect is returned when an unknown dialect is requested.
	ErrUnknownDialect = errors.New("sqlschema: unknown dialect")

	// ErrUnknownDatabase is returned when an unknown database is requested.
	ErrUnknownDatabase = errors.New("sqlschema: unknown database")

	// ErrUnknownField is returned when a key or index names a column the
	// table does not have.
	ErrUnknownField = errors.New("sqlschema: unknown field")

	// ErrStructural matches every *StructuralError via errors.Is.
	ErrStructural = errors.New("sqlschema: structural error")
)

// StructuralError reports an AST node or catalog input that violates its own
// shape contract. It indicates a bug in the catalog producer, not bad data.
type StructuralError struct {
	// Node is the node kind being built or visited, if any.
	Node NodeKind

	// Field names the offending payload (e.g. "values", "raw_name").
	Field string

	// Reason describes the violation.
	Reason string
}

func (e *StructuralError) Error() string {
	var prefix string
	if e.Node != "" {
		prefix = string(e.Node) + " node: "
	}

	if e.Field != "" {
		return "sqlschema: structural error: " + prefix + e.Field + ": " + e.Reason
	}

	return "sqlschema: structural error: " + prefix + e.Reason
}

// Is reports whether target is ErrStructural.
func (e *StructuralError) Is(target error) bool {
	return target == ErrStructural
}

func structuralf(kind NodeKind, field, format string, args ...any) *StructuralError {
	return &StructuralError{Node: kind, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// TableError attaches the table name to a compilation failure.
type TableError struct {
	Table string
	Err   error
}

func (e *TableError) Error() string {
	return fmt.Sprintf("table %q: %v", e.Table, e.Err)
}

func (e *TableError) Unwrap() error {
	return e.Err
}
