package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-qa4sm/internal/domain"
	"github.com/ahrav/go-qa4sm/internal/ports"
)

var _ ports.CatalogObserver = (*OTelCatalogObserver)(nil)

const tracerName = "github.com/ahrav/go-qa4sm/catalog"

// OTelCatalogObserver traces catalog builds with OpenTelemetry and forwards
// build statistics to a MetricsCollector. The span lives in the context
// returned by PreBuild, so one observer serves concurrent builds.
type OTelCatalogObserver struct {
	metrics ports.MetricsCollector
	tracer  trace.Tracer
}

// NewOTelCatalogObserver creates an observer using the global tracer
// provider. metrics may be nil.
func NewOTelCatalogObserver(metrics ports.MetricsCollector) *OTelCatalogObserver {
	return NewOTelCatalogObserverWithTracer(metrics, otel.Tracer(tracerName))
}

// NewOTelCatalogObserverWithTracer creates an observer with an explicit tracer.
func NewOTelCatalogObserverWithTracer(metrics ports.MetricsCollector, tracer trace.Tracer) *OTelCatalogObserver {
	return &OTelCatalogObserver{metrics: metrics, tracer: tracer}
}

// PreBuild implements ports.CatalogObserver. It starts the build span.
func (o *OTelCatalogObserver) PreBuild(ctx context.Context, variables int) context.Context {
	ctx, span := o.tracer.Start(ctx, "Catalog.Build")
	span.SetAttributes(attribute.Int("catalog.variables", variables))
	return ctx
}

// PostBuild implements ports.CatalogObserver. It finalises the span and
// records latency, sizes and classification counters.
func (o *OTelCatalogObserver) PostBuild(
	ctx context.Context,
	stats ports.BuildStats,
	elapsed time.Duration,
	err error,
) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.SetAttributes(
		attribute.Int("catalog.datasets", stats.Datasets),
		attribute.Int("catalog.resolved", stats.Resolved),
		attribute.Int("catalog.skipped", stats.Skipped),
		attribute.Int("catalog.metrics", stats.Metrics),
		attribute.Bool("catalog.registry_cache_hit", stats.CacheHit),
	)

	if o.metrics != nil {
		o.metrics.RecordLatency(ports.MetricBuildLatency, elapsed, nil)
	}

	if err != nil {
		kind := errorKind(err)
		var ierr *domain.InconsistencyError
		if errors.As(err, &ierr) {
			span.AddEvent("catalog.inconsistent_metric", trace.WithAttributes(
				attribute.String("metric", ierr.Metric),
				attribute.String("attribute", ierr.Attribute),
			))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		if o.metrics != nil {
			o.metrics.RecordCounter(ports.MetricBuildErrors, 1, map[string]string{ports.LabelKind: kind})
		}
		return
	}

	if o.metrics != nil {
		o.metrics.RecordHistogram(ports.MetricDatasetsPerFile, float64(stats.Datasets), nil)
		o.metrics.RecordHistogram(ports.MetricVariablesPerFile, float64(stats.Variables), nil)
	}
	span.SetStatus(codes.Ok, "catalog built")
}

// errorKind maps build failures onto a small, bounded label set.
func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingReferenceAttribute):
		return "missing_reference"
	case errors.Is(err, domain.ErrMissingAttribute):
		return "missing_attribute"
	case errors.Is(err, domain.ErrUnknownDatasetID):
		return "unknown_dataset"
	case errors.Is(err, domain.ErrInconsistentMetricAttribute):
		return "inconsistent_metric"
	case errors.Is(err, domain.ErrUnknownMetric):
		return "unknown_metric"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
