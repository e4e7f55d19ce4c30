package middleware

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ahrav/go-qa4sm/internal/domain"
	"github.com/ahrav/go-qa4sm/internal/ports"
	"github.com/ahrav/go-qa4sm/internal/testutils"
)

func newTestObserver(metrics ports.MetricsCollector) *OTelCatalogObserver {
	return NewOTelCatalogObserverWithTracer(metrics, noop.NewTracerProvider().Tracer("test"))
}

func TestOTelCatalogObserver_Success(t *testing.T) {
	metrics := testutils.NewMockMetricsCollector()
	obs := newTestObserver(metrics)

	ctx := obs.PreBuild(context.Background(), 42)
	assert.NotNil(t, trace.SpanFromContext(ctx))

	obs.PostBuild(ctx, ports.BuildStats{Datasets: 4, Variables: 42, Resolved: 30, Skipped: 12, Metrics: 7},
		25*time.Millisecond, nil)

	assert.Equal(t, []time.Duration{25 * time.Millisecond}, metrics.Latencies(ports.MetricBuildLatency))
	assert.Equal(t, []float64{4}, metrics.Histogram(ports.MetricDatasetsPerFile))
	assert.Equal(t, []float64{42}, metrics.Histogram(ports.MetricVariablesPerFile))
	assert.Zero(t, metrics.Counter(ports.MetricBuildErrors))
}

func TestOTelCatalogObserver_Failure(t *testing.T) {
	metrics := testutils.NewMockMetricsCollector()
	obs := newTestObserver(metrics)

	ctx := obs.PreBuild(context.Background(), 3)
	err := &domain.InconsistencyError{Metric: "R", Attribute: "group", Expected: 2, Got: 3}
	obs.PostBuild(ctx, ports.BuildStats{}, time.Millisecond, fmt.Errorf("aggregate: %w", err))

	assert.Equal(t, 1.0, metrics.Counter(ports.MetricBuildErrors))
	assert.Empty(t, metrics.Histogram(ports.MetricDatasetsPerFile), "sizes are only recorded on success")
	assert.Len(t, metrics.Latencies(ports.MetricBuildLatency), 1)
}

func TestOTelCatalogObserver_NilMetrics(t *testing.T) {
	obs := newTestObserver(nil)
	assert.NotPanics(t, func() {
		ctx := obs.PreBuild(context.Background(), 1)
		obs.PostBuild(ctx, ports.BuildStats{}, time.Millisecond, nil)
		obs.PostBuild(ctx, ports.BuildStats{}, time.Millisecond, errors.New("boom"))
	})
}

func TestOTelCatalogObserver_DefaultTracer(t *testing.T) {
	obs := NewOTelCatalogObserver(nil)
	assert.NotPanics(t, func() {
		ctx := obs.PreBuild(context.Background(), 0)
		obs.PostBuild(ctx, ports.BuildStats{}, 0, nil)
	})
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.NewAttributeError("val_ref", domain.ErrMissingReferenceAttribute), "missing_reference"},
		{domain.NewAttributeError("val_dc_dataset1", domain.ErrMissingAttribute), "missing_attribute"},
		{domain.NewDatasetError(9, 8, domain.ErrUnknownDatasetID), "unknown_dataset"},
		{&domain.InconsistencyError{}, "inconsistent_metric"},
		{&domain.MetricError{Metric: "x", Err: domain.ErrUnknownMetric}, "unknown_metric"},
		{fmt.Errorf("resolve: %w", context.Canceled), "canceled"},
		{context.DeadlineExceeded, "canceled"},
		{errors.New("disk on fire"), "other"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, errorKind(tt.err))
		})
	}
}
