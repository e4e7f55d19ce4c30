// Package ports defines the interfaces between the application layer and the
// infrastructure that reads result files, parses names and records metrics.
package ports

import (
	"context"

	"github.com/ahrav/go-qa4sm/internal/domain"
)

// NameParser classifies variable names. Parse never fails; names outside the
// metric grammar come back with Group set to domain.GroupNone.
type NameParser interface {
	Parse(name string) domain.ParsedName
}

// ValuesSource hands out the opaque values handle stored for a variable.
// The handle is threaded through to domain.MetricVariable.Values without
// being inspected.
type ValuesSource interface {
	// Values returns the handle for the named variable. A variable without
	// stored values returns (nil, nil). Errors abort the catalog build.
	Values(ctx context.Context, name string) (any, error)
}

// ValuesSourceFunc adapts a function to ValuesSource.
type ValuesSourceFunc func(ctx context.Context, name string) (any, error)

// Values calls f(ctx, name).
func (f ValuesSourceFunc) Values(ctx context.Context, name string) (any, error) { return f(ctx, name) }
