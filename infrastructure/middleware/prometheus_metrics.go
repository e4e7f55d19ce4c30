// Package middleware provides cross-cutting concerns for the metadata catalog:
// Prometheus metrics and OpenTelemetry tracing.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-qa4sm/internal/ports"
)

// unknownLabel is used for label values the caller did not supply.
const unknownLabel = "unknown"

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It exposes variable classification, registry cache efficiency and build
// latency of the catalog.
type PrometheusMetrics struct {
	variables        *prometheus.CounterVec
	registryCache    *prometheus.CounterVec
	buildErrors      *prometheus.CounterVec
	fileSizes        *prometheus.HistogramVec
	executionLatency *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	systemGauges     *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance and registers its
// collectors with reg. Passing prometheus.DefaultRegisterer exposes them on
// the global registry. The namespace prefixes every metric name.
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		variables: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      ports.MetricVariables,
				Help:      "Variables seen by the catalog, by outcome and metric group.",
			},
			[]string{ports.LabelOutcome, ports.LabelGroup},
		),
		registryCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      ports.MetricRegistryCache,
				Help:      "Dataset registry cache lookups by result.",
			},
			[]string{ports.LabelResult},
		),
		buildErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      ports.MetricBuildErrors,
				Help:      "Failed catalog builds by error kind.",
			},
			[]string{ports.LabelKind},
		),
		fileSizes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "file_size",
				Help:      "Datasets and variables per result file.",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"metric"},
		),

		// General metrics for anything without a dedicated vector.
		executionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "execution_duration_seconds",
				Help:      "Execution time of catalog operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", ports.LabelGroup},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of catalog operations.",
			},
			[]string{"operation", "status"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "system_state",
				Help:      "Current state values of the catalog.",
			},
			[]string{"metric"},
		),
	}
}

// label returns labels[key], or "unknown" when it is missing or empty.
func label(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return unknownLabel
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.executionLatency.WithLabelValues(operation, label(labels, ports.LabelGroup)).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case ports.MetricVariables:
		pm.variables.WithLabelValues(
			label(labels, ports.LabelOutcome),
			label(labels, ports.LabelGroup),
		).Add(value)
	case ports.MetricRegistryCache:
		pm.registryCache.WithLabelValues(label(labels, ports.LabelResult)).Add(value)
	case ports.MetricBuildErrors:
		pm.buildErrors.WithLabelValues(label(labels, ports.LabelKind)).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, "success").Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	pm.systemGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram. File size observations get their own
// histogram; everything else lands in the execution histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case ports.MetricDatasetsPerFile, ports.MetricVariablesPerFile:
		pm.fileSizes.WithLabelValues(metric).Observe(value)
	default:
		pm.executionLatency.WithLabelValues(metric, label(labels, ports.LabelGroup)).Observe(value)
	}
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
