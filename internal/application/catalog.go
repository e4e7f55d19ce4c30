package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ahrav/go-qa4sm/infrastructure/metadata"
	"github.com/ahrav/go-qa4sm/internal/domain"
	"github.com/ahrav/go-qa4sm/internal/ports"
)

// CatalogConfig tunes a Catalog. Zero values fall back to DefaultConfig.
type CatalogConfig struct {
	Concurrency       int
	RegistryCacheSize int
}

// CatalogConfigFrom extracts the catalog settings of cfg.
func CatalogConfigFrom(cfg Config) CatalogConfig {
	return CatalogConfig{Concurrency: cfg.Concurrency, RegistryCacheSize: cfg.RegistryCacheSize}
}

// Result is the decoded metadata of one comparison file.
type Result struct {
	// Registry holds the reference and the other datasets.
	Registry *metadata.Registry

	// Variables are the resolved metric variables in input order.
	Variables []domain.MetricVariable

	// Metrics aggregates Variables by metric name in first-seen order.
	Metrics []domain.Metric

	// Skipped lists the names that are not metric variables.
	Skipped []string
}

// Metric returns the aggregated metric called name.
func (r *Result) Metric(name string) (domain.Metric, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return domain.Metric{}, false
}

// Catalog turns an attribute map and a list of variable names into datasets,
// metric variables and metrics. A Catalog is safe for concurrent use; dataset
// registries are cached across builds keyed by the attribute content.
type Catalog struct {
	grammar  *metadata.Grammar
	parser   ports.NameParser
	resolver *metadata.Resolver
	metrics  ports.MetricsCollector
	observer ports.CatalogObserver
	logger   *slog.Logger

	concurrency int
	cacheSize   int

	regMu      sync.RWMutex
	registries map[string]*metadata.Registry
	sf         singleflight.Group
}

// NewCatalog creates a Catalog over grammar. metrics, observer and logger
// may be nil.
func NewCatalog(
	grammar *metadata.Grammar,
	cfg CatalogConfig,
	metrics ports.MetricsCollector,
	observer ports.CatalogObserver,
	logger *slog.Logger,
) (*Catalog, error) {
	if grammar == nil {
		return nil, fmt.Errorf("%w: grammar is required", domain.ErrInvalidConfiguration)
	}
	if cfg.Concurrency < 0 || cfg.RegistryCacheSize < 0 {
		return nil, fmt.Errorf("%w: negative catalog limits", domain.ErrInvalidConfiguration)
	}

	defaults := DefaultConfig()
	if cfg.Concurrency == 0 {
		cfg.Concurrency = defaults.Concurrency
	}
	if metrics == nil {
		metrics = ports.NoopMetricsCollector{}
	}
	if observer == nil {
		observer = noopObserver{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Catalog{
		grammar:     grammar,
		parser:      metadata.NewParser(grammar),
		resolver:    metadata.NewResolver(grammar),
		metrics:     metrics,
		observer:    observer,
		logger:      logger,
		concurrency: cfg.Concurrency,
		cacheSize:   cfg.RegistryCacheSize,
		registries:  make(map[string]*metadata.Registry),
	}, nil
}

// Grammar returns the grammar the catalog decodes with.
func (c *Catalog) Grammar() *metadata.Grammar { return c.grammar }

// Build decodes one comparison file. values may be nil, in which case no
// variable carries a values handle. Names outside the metric grammar are
// reported in Result.Skipped; every other failure aborts the build.
func (c *Catalog) Build(
	ctx context.Context,
	attrs domain.AttributeMap,
	names []string,
	values ports.ValuesSource,
) (res *Result, err error) {
	start := time.Now()
	ctx = c.observer.PreBuild(ctx, len(names))
	stats := ports.BuildStats{Variables: len(names)}
	defer func() { c.observer.PostBuild(ctx, stats, time.Since(start), err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reg, hit, err := c.registry(attrs)
	if err != nil {
		return nil, fmt.Errorf("build dataset registry: %w", err)
	}
	stats.Datasets = reg.Count()
	stats.CacheHit = hit

	res = &Result{Registry: reg}
	parsed := make([]domain.ParsedName, 0, len(names))
	for _, name := range names {
		p := c.parser.Parse(name)
		if !p.IsMetric() {
			c.logger.DebugContext(ctx, "skipping non-metric variable", "variable", name)
			c.metrics.RecordCounter(ports.MetricVariables, 1, map[string]string{
				ports.LabelOutcome: ports.OutcomeSkipped,
			})
			res.Skipped = append(res.Skipped, name)
			continue
		}
		parsed = append(parsed, p)
	}
	stats.Skipped = len(res.Skipped)

	res.Variables, err = c.resolveAll(ctx, parsed, reg, values)
	if err != nil {
		return nil, err
	}
	stats.Resolved = len(res.Variables)

	res.Metrics, err = c.aggregate(res.Variables)
	if err != nil {
		return nil, err
	}
	stats.Metrics = len(res.Metrics)

	c.logger.DebugContext(ctx, "catalog built",
		"datasets", stats.Datasets,
		"variables", stats.Resolved,
		"skipped", stats.Skipped,
		"metrics", stats.Metrics,
		"registry_cache_hit", hit,
	)
	return res, nil
}

// resolveAll resolves parsed names in parallel, bounded by the configured
// concurrency. Output order follows input order.
func (c *Catalog) resolveAll(
	ctx context.Context,
	parsed []domain.ParsedName,
	reg *metadata.Registry,
	values ports.ValuesSource,
) ([]domain.MetricVariable, error) {
	vars := make([]domain.MetricVariable, len(parsed))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, p := range parsed {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			var handle any
			if values != nil {
				h, err := values.Values(gctx, p.Name)
				if err != nil {
					return fmt.Errorf("read values of %q: %w", p.Name, err)
				}
				handle = h
			}

			v, err := c.resolver.Resolve(p, reg, handle)
			if err != nil {
				return err
			}
			vars[i] = v
			c.metrics.RecordCounter(ports.MetricVariables, 1, map[string]string{
				ports.LabelOutcome: ports.OutcomeResolved,
				ports.LabelGroup:   p.Group.String(),
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vars, nil
}

// aggregate groups variables by metric name, keeping the order in which
// metrics first appear.
func (c *Catalog) aggregate(vars []domain.MetricVariable) ([]domain.Metric, error) {
	var order []string
	byMetric := make(map[string][]domain.MetricVariable)
	for _, v := range vars {
		if _, seen := byMetric[v.Metric]; !seen {
			order = append(order, v.Metric)
		}
		byMetric[v.Metric] = append(byMetric[v.Metric], v)
	}

	metrics := make([]domain.Metric, 0, len(order))
	for _, name := range order {
		m, err := metadata.Aggregate(c.grammar, name, byMetric[name])
		if err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", name, err)
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

// registry returns the registry for attrs, building it on a cache miss.
// Failed builds are not cached.
func (c *Catalog) registry(attrs domain.AttributeMap) (*metadata.Registry, bool, error) {
	if c.cacheSize == 0 {
		reg, err := metadata.NewRegistry(c.grammar, attrs)
		return reg, false, err
	}

	key := attributesKey(attrs)
	if reg, ok := c.cachedRegistry(key); ok {
		c.metrics.RecordCounter(ports.MetricRegistryCache, 1, map[string]string{ports.LabelResult: ports.ResultHit})
		return reg, true, nil
	}
	c.metrics.RecordCounter(ports.MetricRegistryCache, 1, map[string]string{ports.LabelResult: ports.ResultMiss})

	v, err, _ := c.sf.Do(key, func() (any, error) {
		if reg, ok := c.cachedRegistry(key); ok {
			return reg, nil
		}
		reg, err := metadata.NewRegistry(c.grammar, attrs)
		if err != nil {
			return nil, err
		}
		c.storeRegistry(key, reg)
		return reg, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*metadata.Registry), false, nil
}

func (c *Catalog) cachedRegistry(key string) (*metadata.Registry, bool) {
	c.regMu.RLock()
	defer c.regMu.RUnlock()
	reg, ok := c.registries[key]
	return reg, ok
}

// storeRegistry adds reg, evicting an arbitrary entry when the cache is full.
func (c *Catalog) storeRegistry(key string, reg *metadata.Registry) {
	c.regMu.Lock()
	defer c.regMu.Unlock()

	if len(c.registries) >= c.cacheSize {
		for k := range c.registries {
			delete(c.registries, k)
			break
		}
	}
	c.registries[key] = reg
	c.metrics.RecordGauge(ports.MetricRegistryCacheSize, float64(len(c.registries)), nil)
}

// RegistryCacheLen returns the number of cached registries.
func (c *Catalog) RegistryCacheLen() int {
	c.regMu.RLock()
	defer c.regMu.RUnlock()
	return len(c.registries)
}

// ClearRegistryCache drops all cached registries.
func (c *Catalog) ClearRegistryCache() {
	c.regMu.Lock()
	defer c.regMu.Unlock()
	c.registries = make(map[string]*metadata.Registry)
	c.metrics.RecordGauge(ports.MetricRegistryCacheSize, 0, nil)
}

// attributesKey hashes the attribute content in key order. The value type
// is part of the hash so "1" and 1 never share an entry.
func attributesKey(attrs domain.AttributeMap) string {
	h := sha256.New()
	for _, k := range attrs.Keys() {
		v, _ := attrs.Lookup(k)
		fmt.Fprintf(h, "%q=%T:%v\n", k, v, v)
	}
	return hex.EncodeToString(h.Sum(nil))
}

type noopObserver struct{}

func (noopObserver) PreBuild(ctx context.Context, _ int) context.Context               { return ctx }
func (noopObserver) PostBuild(context.Context, ports.BuildStats, time.Duration, error) {}
