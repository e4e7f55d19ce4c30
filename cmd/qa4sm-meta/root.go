package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-qa4sm/infrastructure/metadata"
	"github.com/ahrav/go-qa4sm/infrastructure/middleware"
	"github.com/ahrav/go-qa4sm/infrastructure/resultdoc"
	"github.com/ahrav/go-qa4sm/internal/application"
	"github.com/ahrav/go-qa4sm/internal/ports"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

type options struct {
	configFile  string
	output      string
	noColor     bool
	metricsFile string
}

// app holds what every subcommand shares. It is populated by setup before
// any subcommand runs.
type app struct {
	opts options

	cfg      application.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	grammar  *metadata.Grammar
	catalog  *application.Catalog
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "qa4sm-meta",
		Short: "Inspect the metadata of qa4sm validation results",
		Long: `qa4sm-meta decodes the global attributes and variable names of a qa4sm
validation result dumped to JSON. It lists the compared datasets, the metric
variables with the datasets they refer to and the metrics they belong to.

Settings come from --config, QA4SM_* environment variables and flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.flushMetrics()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.opts.configFile, "config", "", "config file (YAML)")
	pf.StringVarP(&a.opts.output, "output", "o", formatTable, "output format: table or json")
	pf.BoolVar(&a.opts.noColor, "no-color", false, "disable colored output")
	pf.StringVar(&a.opts.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file")
	pf.String("grammar", "", "naming grammar YAML (default: embedded qa4sm convention)")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.Int("concurrency", 0, "variables resolved in parallel")
	pf.String("attributes-path", "", "gjson path of the global attributes object")
	pf.String("variables-path", "", "gjson path of the variable names")
	pf.String("values-path", "", "gjson path of the per-variable values object")

	cmd.AddCommand(
		newDatasetsCmd(a),
		newVariablesCmd(a),
		newMetricsCmd(a),
		newLabelsCmd(a),
		newParseCmd(a),
		newGrammarCmd(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.opts.output != formatTable && a.opts.output != formatJSON {
		return fmt.Errorf("unknown output format %q", a.opts.output)
	}
	ctx := cmd.Context()

	loader, err := newViperLoader(a.opts.configFile, cmd.Flags())
	if err != nil {
		return err
	}
	cfg := application.DefaultConfig()
	if err := loader.Load(ctx, &cfg); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(cmd.ErrOrStderr(), cfg.SlogLevel(), a.opts.noColor)

	a.registry = prometheus.NewRegistry()
	var metrics ports.MetricsCollector = ports.NoopMetricsCollector{}
	if cfg.Metrics.Enabled || a.opts.metricsFile != "" {
		metrics = middleware.NewPrometheusMetrics(a.registry, cfg.Metrics.Namespace)
	}

	a.grammar, err = application.NewGrammarLoader().Load(ctx, cfg)
	if err != nil {
		return fmt.Errorf("load grammar: %w", err)
	}
	a.logger.Debug("grammar loaded", "version", a.grammar.Version(), "path", cfg.GrammarPath)

	a.catalog, err = application.NewCatalog(
		a.grammar,
		application.CatalogConfigFrom(cfg),
		metrics,
		middleware.NewOTelCatalogObserver(metrics),
		a.logger,
	)
	return err
}

func (a *app) flushMetrics() error {
	if a.opts.metricsFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.opts.metricsFile, a.registry); err != nil {
		return ports.NewMetricsError(a.opts.metricsFile, "WriteToTextfile", err)
	}
	return nil
}

// build reads the dump at path and decodes it.
func (a *app) build(ctx context.Context, path string) (*application.Result, error) {
	doc, err := resultdoc.Open(path, resultdoc.Paths{
		Attributes: a.cfg.Document.AttributesPath,
		Variables:  a.cfg.Document.VariablesPath,
		Values:     a.cfg.Document.ValuesPath,
	})
	if err != nil {
		return nil, err
	}
	attrs, err := doc.Attributes()
	if err != nil {
		return nil, err
	}
	names, err := doc.Variables()
	if err != nil {
		return nil, err
	}

	res, err := a.catalog.Build(ctx, attrs, names, doc.ValuesSource())
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", doc.Source(), err)
	}
	a.logger.Info("result decoded",
		"source", doc.Source(),
		"datasets", res.Registry.Count(),
		"variables", len(res.Variables),
		"skipped", len(res.Skipped),
		"metrics", len(res.Metrics),
	)
	return res, nil
}

func (a *app) renderer(cmd *cobra.Command) *renderer {
	return newRenderer(cmd.OutOrStdout(), a.opts.output, a.opts.noColor)
}
