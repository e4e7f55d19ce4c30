package ports

import (
	"context"
	"time"
)

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus or OpenTelemetry.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like cache hits/misses, skipped
	// variables and errors.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric, such as the
	// number of cached registries.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like variables per file.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// ConfigLoader defines the interface for loading configuration.
// Implementations could read from files, environment variables or flags.
type ConfigLoader interface {
	// Load reads configuration from the underlying source.
	// It should populate the provided configuration struct.
	// The config parameter should be a pointer to a struct.
	//
	// Example:
	//
	//	var cfg application.Config
	//	err := loader.Load(ctx, &cfg)
	Load(ctx context.Context, config any) error
}

// NoopMetricsCollector discards every measurement.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordLatency(string, time.Duration, map[string]string) {}
func (NoopMetricsCollector) RecordCounter(string, float64, map[string]string)       {}
func (NoopMetricsCollector) RecordGauge(string, float64, map[string]string)         {}
func (NoopMetricsCollector) RecordHistogram(string, float64, map[string]string)     {}
