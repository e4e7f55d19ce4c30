package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur while decoding result metadata.
var (
	// ErrMissingReferenceAttribute indicates that the attribute naming the
	// reference dataset is absent or unusable.
	ErrMissingReferenceAttribute = errors.New("missing reference dataset attribute")

	// ErrMissingAttribute indicates that a required global attribute is absent.
	ErrMissingAttribute = errors.New("missing attribute")

	// ErrUnknownDatasetID indicates that a dataset id cannot be mapped back to
	// any dataset of the registry.
	ErrUnknownDatasetID = errors.New("unknown dataset id")

	// ErrNotAMetricVariable indicates that a variable name does not follow any
	// metric grammar. Callers treat it as a skip signal.
	ErrNotAMetricVariable = errors.New("not a metric variable")

	// ErrInconsistentMetricAttribute indicates that variables grouped under one
	// metric disagree on an attribute they must share.
	ErrInconsistentMetricAttribute = errors.New("inconsistent metric attribute")

	// ErrUnknownMetric indicates that a metric token is not in the catalogue.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrUnknownField indicates that a dataset field name is not recognised.
	ErrUnknownField = errors.New("unknown dataset field")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// AttributeError represents a failed lookup in an AttributeMap.
type AttributeError struct {
	// Key is the attribute key that was requested.
	Key string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for AttributeError.
func (e *AttributeError) Error() string {
	return fmt.Sprintf("attribute error: key=%s, err=%v", e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *AttributeError) Unwrap() error { return e.Err }

// NewAttributeError creates a new AttributeError for key.
func NewAttributeError(key string, err error) *AttributeError {
	return &AttributeError{Key: key, Err: err}
}

// DatasetError represents a dataset id that could not be resolved.
// Index is the attribute index the id was mapped to.
type DatasetError struct {
	ID    int
	Index int
	Err   error
}

// Error implements the error interface for DatasetError.
func (e *DatasetError) Error() string {
	return fmt.Sprintf("dataset error: id=%d, index=%d, err=%v", e.ID, e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *DatasetError) Unwrap() error { return e.Err }

// NewDatasetError creates a new DatasetError.
func NewDatasetError(id, index int, err error) *DatasetError {
	return &DatasetError{ID: id, Index: index, Err: err}
}

// InconsistencyError is returned when two variables of one metric disagree
// on a shared attribute. It always unwraps to ErrInconsistentMetricAttribute.
type InconsistencyError struct {
	// Metric is the name of the metric being aggregated.
	Metric string

	// Attribute names the attribute that differs.
	Attribute string

	// Expected is the value taken from the first variable.
	Expected any

	// Got is the conflicting value.
	Got any
}

// Error implements the error interface for InconsistencyError.
func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%v: metric=%s, attribute=%s, expected=%v, got=%v",
		ErrInconsistentMetricAttribute, e.Metric, e.Attribute, e.Expected, e.Got)
}

// Unwrap returns ErrInconsistentMetricAttribute.
func (e *InconsistencyError) Unwrap() error { return ErrInconsistentMetricAttribute }

// MetricError represents a metric token missing from the catalogue.
// Suggestion holds the closest known metric name, if any.
type MetricError struct {
	Metric     string
	Suggestion string
	Err        error
}

// Error implements the error interface for MetricError.
func (e *MetricError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("metric error: metric=%s, err=%v (did you mean %q?)", e.Metric, e.Err, e.Suggestion)
	}
	return fmt.Sprintf("metric error: metric=%s, err=%v", e.Metric, e.Err)
}

// Unwrap returns the underlying error.
func (e *MetricError) Unwrap() error { return e.Err }

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap returns ErrInvalidConfiguration so validation failures can be
// matched with errors.Is.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// Addf adds a formatted error message to the validation error.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
