// Package application wires the metadata engine into a usable catalog: it
// loads the naming grammar and runtime configuration and orchestrates
// registry construction, name parsing and metric aggregation.
package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-qa4sm/internal/domain"
)

// Config is the runtime configuration of the catalog and the CLI around it.
// Fields carry yaml tags for file loading and mapstructure tags for viper.
type Config struct {
	// GrammarPath points at a YAML grammar definition. Empty selects the
	// embedded qa4sm naming convention.
	GrammarPath string `yaml:"grammar_path" mapstructure:"grammar_path" validate:"omitempty,yamlfile"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// Concurrency bounds the number of variables resolved in parallel.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency" validate:"min=1,max=256"`

	// RegistryCacheSize bounds the number of dataset registries kept for
	// reuse across builds. Zero disables the cache.
	RegistryCacheSize int `yaml:"registry_cache_size" mapstructure:"registry_cache_size" validate:"min=0,max=4096"`

	// Document selects attributes, variables and values inside a JSON dump.
	Document DocumentConfig `yaml:"document" mapstructure:"document" validate:"required"`

	// Metrics configures the Prometheus collector.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// DocumentConfig holds the gjson paths used to read a result dump.
type DocumentConfig struct {
	AttributesPath string `yaml:"attributes_path" mapstructure:"attributes_path" validate:"required,jsonpath"`
	VariablesPath  string `yaml:"variables_path" mapstructure:"variables_path" validate:"required,jsonpath"`
	// ValuesPath is the object whose members hold per-variable values.
	// Empty disables value lookup.
	ValuesPath string `yaml:"values_path" mapstructure:"values_path" validate:"omitempty,jsonpath"`
}

// MetricsConfig controls Prometheus exposition.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Namespace string `yaml:"namespace" mapstructure:"namespace" validate:"omitempty,promname"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		LogLevel:          "info",
		Concurrency:       8,
		RegistryCacheSize: 64,
		Document: DocumentConfig{
			AttributesPath: "attributes",
			VariablesPath:  "variables",
			ValuesPath:     "values",
		},
		Metrics: MetricsConfig{Namespace: "qa4sm"},
	}
}

// LoadConfig strictly decodes YAML from r on top of DefaultConfig and
// validates the result.
func LoadConfig(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty document keeps the defaults.
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("YAML decode failed: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks struct tags and the custom config rules.
// Failures are reported as a *domain.ValidationError.
func (c Config) Validate() error {
	v, err := NewConfigValidator()
	if err != nil {
		return err
	}

	verr := domain.NewValidationError("config")
	if err := v.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				verr.Addf("%s failed %q", fe.Namespace(), fe.Tag())
			}
		} else {
			verr.AddError(err.Error())
		}
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		verr.AddError("metrics.namespace is required when metrics are enabled")
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog.Level. Unknown values map to info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
