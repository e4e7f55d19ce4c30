package ports

import (
	"context"
	"time"
)

// Metric names emitted through MetricsCollector by the catalog.
const (
	// MetricBuildLatency is the latency operation of one catalog build.
	MetricBuildLatency = "catalog_build"

	// MetricVariables counts variables by LabelOutcome and LabelGroup.
	MetricVariables = "variables_total"

	// MetricRegistryCache counts registry cache lookups by LabelResult.
	MetricRegistryCache = "registry_cache_total"

	// MetricRegistryCacheSize is the number of cached registries.
	MetricRegistryCacheSize = "registry_cache_size"

	// MetricBuildErrors counts failed builds by LabelKind.
	MetricBuildErrors = "catalog_errors_total"

	// MetricDatasetsPerFile observes the dataset count of each build.
	MetricDatasetsPerFile = "datasets_per_file"

	// MetricVariablesPerFile observes the variable count of each build.
	MetricVariablesPerFile = "variables_per_file"
)

// Label keys and values used with the metric names above.
const (
	LabelGroup   = "group"
	LabelOutcome = "outcome"
	LabelResult  = "result"
	LabelKind    = "kind"

	OutcomeResolved = "resolved"
	OutcomeSkipped  = "skipped"

	ResultHit  = "hit"
	ResultMiss = "miss"
)

// BuildStats summarises one catalog build.
type BuildStats struct {
	Datasets  int
	Variables int
	Resolved  int
	Skipped   int
	Metrics   int
	CacheHit  bool
}

// CatalogObserver is notified around every catalog build. PreBuild may
// return a derived context, for example one carrying a trace span, which is
// used for the rest of the build and handed back to PostBuild.
type CatalogObserver interface {
	PreBuild(ctx context.Context, variables int) context.Context
	PostBuild(ctx context.Context, stats BuildStats, elapsed time.Duration, err error)
}
