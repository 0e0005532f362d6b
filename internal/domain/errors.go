package domain

import (
	"errors"
	"fmt"
	"strings"
)

// UnknownTableError indicates that none of the plan's candidate tables is
// in the catalog allowlist and no default table is configured.
type UnknownTableError struct {
	Tables []string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("no allowed table among %v and no default table configured", e.Tables)
}

// UnknownColumnError indicates a dimension or filter column that could not
// be resolved against the table schema by any match tier.
type UnknownColumnError struct {
	Column     string
	Table      string
	Candidates []string // closest rejected candidates, best first
}

func (e *UnknownColumnError) Error() string {
	msg := fmt.Sprintf("unknown column %q in table %s", e.Column, e.Table)
	if len(e.Candidates) > 0 {
		msg += fmt.Sprintf(" (closest: %s)", strings.Join(e.Candidates, ", "))
	}
	return msg
}

// UnresolvedMetricError indicates a metric expression referencing a column
// that does not exist in the resolved table's schema.
type UnresolvedMetricError struct {
	Metric     string
	Column     string
	Candidates []string
}

func (e *UnresolvedMetricError) Error() string {
	msg := fmt.Sprintf("metric %q references unknown column %q", e.Metric, e.Column)
	if len(e.Candidates) > 0 {
		msg += fmt.Sprintf(" (closest: %s)", strings.Join(e.Candidates, ", "))
	}
	return msg
}

// InvalidFilterError indicates an unsupported or out-of-range MES filter shape.
type InvalidFilterError struct {
	Message string
}

func (e *InvalidFilterError) Error() string { return e.Message }

// ErrInvalidFilter creates an InvalidFilterError with a formatted message.
func ErrInvalidFilter(format string, args ...any) *InvalidFilterError {
	return &InvalidFilterError{Message: fmt.Sprintf(format, args...)}
}

// InvalidOrderByError indicates an ORDER BY target that is neither a
// resolved dimension nor a metric alias. Ordering by a non-output column
// is rejected, never silently dropped.
type InvalidOrderByError struct {
	By      string
	Allowed []string
}

func (e *InvalidOrderByError) Error() string {
	return fmt.Sprintf("ORDER BY %q does not match any output dimension or metric alias (allowed: %s)",
		e.By, strings.Join(e.Allowed, ", "))
}

// UnsafeStatementError indicates the assembled SQL tripped a guardrail:
// a DML/DDL keyword, a statement separator, or a wildcard select.
type UnsafeStatementError struct {
	Message string
}

func (e *UnsafeStatementError) Error() string { return e.Message }

// ErrUnsafeStatement creates an UnsafeStatementError with a formatted message.
func ErrUnsafeStatement(format string, args ...any) *UnsafeStatementError {
	return &UnsafeStatementError{Message: fmt.Sprintf(format, args...)}
}

// ConfigurationError indicates malformed catalog or metric configuration
// detected at load time.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return e.Message }

// ErrConfiguration creates a ConfigurationError with a formatted message.
func ErrConfiguration(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// ErrorKind returns the stable machine-readable kind for a compiler error,
// used in API payloads and the compile history. Unrecognized errors map to
// "internal".
func ErrorKind(err error) string {
	var (
		unknownTable  *UnknownTableError
		unknownColumn *UnknownColumnError
		unresolved    *UnresolvedMetricError
		invalidFilter *InvalidFilterError
		invalidOrder  *InvalidOrderByError
		unsafeStmt    *UnsafeStatementError
		configErr     *ConfigurationError
	)
	switch {
	case errors.As(err, &unknownTable):
		return "unknown_table"
	case errors.As(err, &unknownColumn):
		return "unknown_column"
	case errors.As(err, &unresolved):
		return "unresolved_metric"
	case errors.As(err, &invalidFilter):
		return "invalid_filter"
	case errors.As(err, &invalidOrder):
		return "invalid_order_by"
	case errors.As(err, &unsafeStmt):
		return "unsafe_statement"
	case errors.As(err, &configErr):
		return "configuration"
	default:
		return "internal"
	}
}

// ErrorCandidates extracts the rejected candidate list from a resolution
// error, if the error carries one.
func ErrorCandidates(err error) []string {
	var unknownColumn *UnknownColumnError
	if errors.As(err, &unknownColumn) {
		return unknownColumn.Candidates
	}
	var unresolved *UnresolvedMetricError
	if errors.As(err, &unresolved) {
		return unresolved.Candidates
	}
	return nil
}
