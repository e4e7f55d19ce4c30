package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/ahrav/go-qa4sm/internal/ports"
)

var (
	_ ports.ValuesSource     = (*MapValuesSource)(nil)
	_ ports.MetricsCollector = (*MockMetricsCollector)(nil)
)

// MapValuesSource serves values from an in-memory map. Names without an
// entry return (nil, nil); names listed in Errors fail with that error.
type MapValuesSource struct {
	Data   map[string][]float64
	Errors map[string]error

	mu    sync.Mutex
	calls []string
}

// NewMapValuesSource returns a source serving data.
func NewMapValuesSource(data map[string][]float64) *MapValuesSource {
	return &MapValuesSource{Data: data}
}

// Values implements ports.ValuesSource.
func (s *MapValuesSource) Values(ctx context.Context, name string) (any, error) {
	s.mu.Lock()
	s.calls = append(s.calls, name)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := s.Errors[name]; ok {
		return nil, err
	}
	v, ok := s.Data[name]
	if !ok {
		return nil, nil
	}
	return v, nil
}

// Calls returns the names requested so far.
func (s *MapValuesSource) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// MockMetricsCollector records measurements in memory. It is safe for
// concurrent use.
type MockMetricsCollector struct {
	mu         sync.Mutex
	latencies  map[string][]time.Duration
	counters   map[string]float64
	gauges     map[string]float64
	histograms map[string][]float64
}

// NewMockMetricsCollector returns an empty collector.
func NewMockMetricsCollector() *MockMetricsCollector {
	return &MockMetricsCollector{
		latencies:  make(map[string][]time.Duration),
		counters:   make(map[string]float64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

func (m *MockMetricsCollector) RecordLatency(operation string, d time.Duration, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies[operation] = append(m.latencies[operation], d)
}

func (m *MockMetricsCollector) RecordCounter(metric string, value float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[metric] += value
}

func (m *MockMetricsCollector) RecordGauge(metric string, value float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[metric] = value
}

func (m *MockMetricsCollector) RecordHistogram(metric string, value float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms[metric] = append(m.histograms[metric], value)
}

// Counter returns the summed value of a counter.
func (m *MockMetricsCollector) Counter(metric string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[metric]
}

// Gauge returns the last value of a gauge.
func (m *MockMetricsCollector) Gauge(metric string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gauges[metric]
}

// Latencies returns the durations recorded for operation.
func (m *MockMetricsCollector) Latencies(operation string) []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.latencies[operation]...)
}

// Histogram returns the values recorded for metric.
func (m *MockMetricsCollector) Histogram(metric string) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.histograms[metric]...)
}
