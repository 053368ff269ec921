// Package errs defines the error taxonomy shared by the synthesis pipeline.
//
// ConfigError marks a missing or contradictory required parameter,
// ConstructionError a failed derivation of filter or encoder artifacts, and
// RuntimeError an input that is incompatible with an already constructed
// component. Optional-parameter ambiguity is never an error: it is resolved by
// randomized defaulting at construction time.
package errs

import "fmt"

// ConfigError reports an invalid required configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Reason
	}
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// Configf builds a ConfigError for the given field.
func Configf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ConstructionError reports a failure while deriving filters, encoders or
// other construction-scoped artifacts.
type ConstructionError struct {
	Stage string
	Err   error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("construct %s: %v", e.Stage, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// Constructionf builds a ConstructionError for the given stage.
func Constructionf(stage, format string, args ...any) error {
	return &ConstructionError{Stage: stage, Err: fmt.Errorf(format, args...)}
}

// RuntimeError reports input that violates the contract of a constructed
// component, such as a symbol outside the configured modulation order.
type RuntimeError struct {
	Op     string
	Reason string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// Runtimef builds a RuntimeError for the given operation.
func Runtimef(op, format string, args ...any) error {
	return &RuntimeError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
