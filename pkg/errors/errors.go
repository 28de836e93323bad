package errors

import (
	"fmt"
)

// ParseError represents a YAML parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures configuration validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PluginError indicates issues within plugin registration or execution.
type PluginError struct {
	Plugin  string
	Message string
	Err     error
}

// NewPluginError constructs a PluginError for the given plugin type.
func NewPluginError(plugin string, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &PluginError{Plugin: plugin, Message: message, Err: err}
}

func (e *PluginError) Error() string {
	if e == nil {
		return ""
	}
	if e.Plugin != "" {
		return fmt.Sprintf("plugin error [%s]: %s", e.Plugin, e.Message)
	}
	return fmt.Sprintf("plugin error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *PluginError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExecutionError represents a runtime failure while executing a step.
type ExecutionError struct {
	StepID string
	Err    error
}

// NewExecutionError constructs an ExecutionError.
func NewExecutionError(stepID string, err error) error {
	return &ExecutionError{StepID: stepID, Err: err}
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.StepID != "" {
		return fmt.Sprintf("execution error on step %s: %v", e.StepID, e.Err)
	}
	return fmt.Sprintf("execution error: %v", e.Err)
}

// Unwrap exposes the root error.
func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExpectationTypeError reports an assertion expectation of an unusable
// shape, or an observed value that cannot be compared against the
// expectation's match value under the requested comparison.
type ExpectationTypeError struct {
	Message string
}

// NewExpectationTypeError constructs an ExpectationTypeError.
func NewExpectationTypeError(format string, args ...any) error {
	return &ExpectationTypeError{Message: fmt.Sprintf(format, args...)}
}

func (e *ExpectationTypeError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("invalid expectation: %s", e.Message)
}

// UnknownComparisonError reports a comparison kind outside the fixed
// vocabulary. This is a configuration bug and is never folded into a
// failed-assertion result.
type UnknownComparisonError struct {
	Kind string
}

// NewUnknownComparisonError constructs an UnknownComparisonError.
func NewUnknownComparisonError(kind string) error {
	return &UnknownComparisonError{Kind: kind}
}

func (e *UnknownComparisonError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("unknown comparison kind: %q", e.Kind)
}

// UnsupportedCapabilityError reports a capability name with no
// registration for the active backend.
type UnsupportedCapabilityError struct {
	Backend    string
	Capability string
}

// NewUnsupportedCapabilityError constructs an UnsupportedCapabilityError.
func NewUnsupportedCapabilityError(backend, capability string) error {
	return &UnsupportedCapabilityError{Backend: backend, Capability: capability}
}

func (e *UnsupportedCapabilityError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("backend %q does not support capability %q", e.Backend, e.Capability)
}

// InvalidArgumentError reports a method capability invoked without its
// required parameter, or with a parameter of the wrong type.
type InvalidArgumentError struct {
	Capability string
	Message    string
}

// NewInvalidArgumentError constructs an InvalidArgumentError.
func NewInvalidArgumentError(capability, message string) error {
	return &InvalidArgumentError{Capability: capability, Message: message}
}

func (e *InvalidArgumentError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("invalid argument for capability %q: %s", e.Capability, e.Message)
}

// FetchError wraps a failure to read observed state from an external
// collaborator.
type FetchError struct {
	Name string
	Err  error
}

// NewFetchError constructs a FetchError.
func NewFetchError(name string, err error) error {
	return &FetchError{Name: name, Err: err}
}

func (e *FetchError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("error checking %s: %v", e.Name, e.Err)
}

// Unwrap exposes the underlying error.
func (e *FetchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ApplyError wraps a collaborator rejection while mutating state.
type ApplyError struct {
	Name string
	Err  error
}

// NewApplyError constructs an ApplyError.
func NewApplyError(name string, err error) error {
	return &ApplyError{Name: name, Err: err}
}

func (e *ApplyError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("error applying %s: %v", e.Name, e.Err)
}

// Unwrap exposes the underlying error.
func (e *ApplyError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
