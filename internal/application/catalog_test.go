package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-qa4sm/infrastructure/metadata"
	"github.com/ahrav/go-qa4sm/internal/domain"
	"github.com/ahrav/go-qa4sm/internal/ports"
	"github.com/ahrav/go-qa4sm/internal/testutils"
)

// recordingObserver keeps the arguments of every PostBuild call.
type recordingObserver struct {
	mu     sync.Mutex
	pre    int
	stats  []ports.BuildStats
	errors []error
}

func (o *recordingObserver) PreBuild(ctx context.Context, _ int) context.Context {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pre++
	return ctx
}

func (o *recordingObserver) PostBuild(_ context.Context, stats ports.BuildStats, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stats = append(o.stats, stats)
	o.errors = append(o.errors, err)
}

func newTestCatalog(t *testing.T, cfg CatalogConfig) (*Catalog, *testutils.MockMetricsCollector, *recordingObserver) {
	t.Helper()
	g, err := metadata.Default()
	require.NoError(t, err)

	metrics := testutils.NewMockMetricsCollector()
	obs := &recordingObserver{}
	c, err := NewCatalog(g, cfg, metrics, obs, nil)
	require.NoError(t, err)
	return c, metrics, obs
}

var (
	era5  = testutils.NameRef{ID: 5, ShortName: "ERA5"}
	c3s   = testutils.NameRef{ID: 2, ShortName: "C3S"}
	ascat = testutils.NameRef{ID: 3, ShortName: "ASCAT"}
)

func TestCatalog_Build_ERA5Scenario(t *testing.T) {
	c, metrics, obs := newTestCatalog(t, CatalogConfig{Concurrency: 2, RegistryCacheSize: 4})

	rName := testutils.PairwiseName("R", era5, c3s)
	names := []string{
		"lat",
		"n_obs",
		rName,
		testutils.PairwiseCIName("R", "lower", era5, c3s),
		testutils.PairwiseCIName("R", "upper", era5, c3s),
		"lon",
		testutils.PairwiseName("BIAS", era5, ascat),
		testutils.TCName("snr", c3s, era5, c3s, ascat),
	}
	values := testutils.NewMapValuesSource(map[string][]float64{rName: {0.1, 0.2}})

	res, err := c.Build(context.Background(), testutils.ERA5ScenarioAttributes().Build(), names, values)
	require.NoError(t, err)

	assert.Equal(t, []string{"lat", "lon"}, res.Skipped)
	require.Len(t, res.Variables, 6)
	assert.Equal(t, "n_obs", res.Variables[0].Name)
	assert.Equal(t, rName, res.Variables[1].Name, "variables keep input order")
	assert.Equal(t, []float64{0.1, 0.2}, res.Variables[1].Values)
	assert.False(t, res.Variables[0].HasValues())
	assert.Len(t, values.Calls(), 6, "values are only requested for metric variables")

	assert.Equal(t, 5, res.Registry.Reference().ID)
	assert.Equal(t, "ERA5", res.Registry.Reference().Dataset.ShortName)

	var order []string
	for _, m := range res.Metrics {
		order = append(order, m.Name)
	}
	assert.Equal(t, []string{"n_obs", "R", "BIAS", "snr"}, order)

	r, ok := res.Metric("R")
	require.True(t, ok)
	assert.True(t, r.HasConfidenceIntervals)
	assert.Len(t, r.Variables, 3)
	assert.Equal(t, domain.GroupPairwise, r.Group)

	bias, ok := res.Metric("BIAS")
	require.True(t, ok)
	assert.False(t, bias.HasConfidenceIntervals)

	snr, ok := res.Metric("snr")
	require.True(t, ok)
	require.NotNil(t, snr.Variables[0].Other)
	assert.Equal(t, "ASCAT", snr.Variables[0].Other.Dataset.ShortName)

	_, ok = res.Metric("rho")
	assert.False(t, ok)

	assert.Equal(t, 8.0, metrics.Counter(ports.MetricVariables))
	require.Len(t, obs.stats, 1)
	assert.NoError(t, obs.errors[0])
	assert.Equal(t, ports.BuildStats{
		Datasets: 4, Variables: 8, Resolved: 6, Skipped: 2, Metrics: 4,
	}, obs.stats[0])
}

func TestCatalog_Build_GeneratedFiles(t *testing.T) {
	tests := []struct {
		name        string
		datasets    int
		refIndex    int
		wantMetrics int
	}{
		{"two datasets zero-based", 2, 0, 7},
		{"two datasets one-based", 2, 1, 7},
		{"three datasets reference last", 3, 3, 10},
		{"six datasets reference in the middle", 6, 3, 10},
		{"eleven datasets", 11, 0, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := testutils.GenerateResultFile(tt.datasets, tt.refIndex, 42)
			require.NoError(t, err)

			c, _, _ := newTestCatalog(t, CatalogConfig{Concurrency: 4, RegistryCacheSize: 4})
			res, err := c.Build(context.Background(), f.AttributeMap(), f.Variables, testutils.NewMapValuesSource(f.Values))
			require.NoError(t, err)

			assert.Equal(t, testutils.NonMetricVariables, res.Skipped)
			assert.Len(t, res.Variables, len(f.Variables)-len(testutils.NonMetricVariables))
			assert.Len(t, res.Metrics, tt.wantMetrics)
			assert.Equal(t, tt.datasets, res.Registry.Count())
			assert.Equal(t, f.ID(f.Reference.Index), res.Registry.Reference().ID)

			for _, v := range res.Variables {
				assert.True(t, v.HasValues(), "%s should carry values", v.Name)
				assert.Equal(t, f.Reference.ShortName, v.Reference.Dataset.ShortName)
			}
		})
	}
}

func TestCatalog_RegistryCache(t *testing.T) {
	ctx := context.Background()
	attrs := testutils.ERA5ScenarioAttributes().Build()

	t.Run("equal attributes share a registry", func(t *testing.T) {
		c, metrics, obs := newTestCatalog(t, CatalogConfig{RegistryCacheSize: 4})

		first, err := c.Build(ctx, attrs, []string{"n_obs"}, nil)
		require.NoError(t, err)
		second, err := c.Build(ctx, testutils.ERA5ScenarioAttributes().Build(), []string{"n_obs"}, nil)
		require.NoError(t, err)

		assert.Same(t, first.Registry, second.Registry)
		assert.Equal(t, 1, c.RegistryCacheLen())
		assert.Equal(t, 2.0, metrics.Counter(ports.MetricRegistryCache), "one miss and one hit")
		assert.Equal(t, 1.0, metrics.Gauge(ports.MetricRegistryCacheSize))
		assert.False(t, obs.stats[0].CacheHit)
		assert.True(t, obs.stats[1].CacheHit)

		c.ClearRegistryCache()
		assert.Zero(t, c.RegistryCacheLen())
		assert.Zero(t, metrics.Gauge(ports.MetricRegistryCacheSize))
	})

	t.Run("value type is part of the key", func(t *testing.T) {
		c, _, _ := newTestCatalog(t, CatalogConfig{RegistryCacheSize: 4})
		asText := testutils.ERA5ScenarioAttributes().With("val_extra", "1").Build()
		asNumber := testutils.ERA5ScenarioAttributes().With("val_extra", 1).Build()

		_, err := c.Build(ctx, asText, nil, nil)
		require.NoError(t, err)
		_, err = c.Build(ctx, asNumber, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, c.RegistryCacheLen())
	})

	t.Run("disabled cache", func(t *testing.T) {
		c, metrics, _ := newTestCatalog(t, CatalogConfig{})

		first, err := c.Build(ctx, attrs, nil, nil)
		require.NoError(t, err)
		second, err := c.Build(ctx, attrs, nil, nil)
		require.NoError(t, err)

		assert.NotSame(t, first.Registry, second.Registry)
		assert.Zero(t, c.RegistryCacheLen())
		assert.Zero(t, metrics.Counter(ports.MetricRegistryCache))
	})

	t.Run("full cache evicts", func(t *testing.T) {
		c, _, _ := newTestCatalog(t, CatalogConfig{RegistryCacheSize: 1})
		for i := range 3 {
			a := testutils.ERA5ScenarioAttributes().With("val_run", i).Build()
			_, err := c.Build(ctx, a, nil, nil)
			require.NoError(t, err)
		}
		assert.Equal(t, 1, c.RegistryCacheLen())
	})

	t.Run("failures are not cached", func(t *testing.T) {
		c, _, _ := newTestCatalog(t, CatalogConfig{RegistryCacheSize: 4})
		broken := testutils.ERA5ScenarioAttributes().Without("val_ref").Build()
		_, err := c.Build(ctx, broken, nil, nil)
		require.Error(t, err)
		assert.Zero(t, c.RegistryCacheLen())
	})
}

func TestCatalog_Build_Errors(t *testing.T) {
	sourceErr := errors.New("hdf error")
	rName := testutils.PairwiseName("R", era5, c3s)

	tests := []struct {
		name      string
		attrs     domain.AttributeMap
		names     []string
		values    ports.ValuesSource
		errTarget error
		errMsg    string
	}{
		{
			name:      "missing reference attribute",
			attrs:     testutils.ERA5ScenarioAttributes().Without("val_ref").Build(),
			names:     []string{"n_obs"},
			errTarget: domain.ErrMissingReferenceAttribute,
			errMsg:    "build dataset registry",
		},
		{
			name:      "unknown dataset id",
			attrs:     testutils.ERA5ScenarioAttributes().Build(),
			names:     []string{testutils.PairwiseName("R", era5, testutils.NameRef{ID: 9, ShortName: "GLDAS"})},
			errTarget: domain.ErrUnknownDatasetID,
		},
		{
			name:  "values source failure",
			attrs: testutils.ERA5ScenarioAttributes().Build(),
			names: []string{"n_obs", rName},
			values: &testutils.MapValuesSource{
				Errors: map[string]error{rName: ports.NewSourceError("file.nc", rName, sourceErr)},
			},
			errTarget: sourceErr,
			errMsg:    "read values of",
		},
		{
			name:  "inconsistent reference",
			attrs: testutils.ERA5ScenarioAttributes().Build(),
			names: []string{
				rName,
				testutils.PairwiseName("R", c3s, ascat),
			},
			errTarget: domain.ErrInconsistentMetricAttribute,
			errMsg:    "aggregate R",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, obs := newTestCatalog(t, CatalogConfig{Concurrency: 2})
			res, err := c.Build(context.Background(), tt.attrs, tt.names, tt.values)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.errTarget)
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}

			require.Len(t, obs.errors, 1)
			assert.Equal(t, err, obs.errors[0], "observer sees the returned error")
		})
	}
}

func TestCatalog_Build_CanceledContext(t *testing.T) {
	c, _, obs := newTestCatalog(t, CatalogConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Build(ctx, testutils.ERA5ScenarioAttributes().Build(), []string{"n_obs"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, obs.pre)
	require.Len(t, obs.errors, 1)
	assert.ErrorIs(t, obs.errors[0], context.Canceled)
}

func TestCatalog_ConcurrentBuilds(t *testing.T) {
	c, _, _ := newTestCatalog(t, CatalogConfig{Concurrency: 4, RegistryCacheSize: 8})
	f, err := testutils.GenerateResultFile(5, 2, 7)
	require.NoError(t, err)

	const workers = 12
	results := make([]*Result, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Build(context.Background(), f.AttributeMap(), f.Variables, nil)
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()

	for _, res := range results[1:] {
		require.NotNil(t, res)
		assert.Same(t, results[0].Registry, res.Registry)
		assert.Equal(t, results[0].Variables, res.Variables)
	}
	assert.Equal(t, 1, c.RegistryCacheLen())
}

func TestNewCatalog_Validation(t *testing.T) {
	g, err := metadata.Default()
	require.NoError(t, err)

	_, err = NewCatalog(nil, CatalogConfig{}, nil, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	_, err = NewCatalog(g, CatalogConfig{Concurrency: -1}, nil, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	c, err := NewCatalog(g, CatalogConfigFrom(DefaultConfig()), nil, nil, nil)
	require.NoError(t, err)
	assert.Same(t, g, c.Grammar())
	assert.Equal(t, DefaultConfig().Concurrency, c.concurrency)
	assert.Equal(t, DefaultConfig().RegistryCacheSize, c.cacheSize)
}
