package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ahrav/go-qa4sm/internal/application"
	"github.com/ahrav/go-qa4sm/internal/ports"
)

// envPrefix prefixes every environment override, e.g. QA4SM_LOG_LEVEL.
const envPrefix = "QA4SM"

var _ ports.ConfigLoader = (*viperLoader)(nil)

// viperLoader layers defaults, an optional YAML file, QA4SM_* environment
// variables and command line flags, in increasing precedence.
type viperLoader struct {
	v    *viper.Viper
	file string
}

// newViperLoader binds flags to their config keys. Flag names use dashes
// where keys use underscores.
func newViperLoader(file string, flags *pflag.FlagSet) (*viperLoader, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v, application.DefaultConfig())

	for key, flag := range flagKeys {
		f := flags.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return &viperLoader{v: v, file: file}, nil
}

// flagKeys maps config keys to the flags overriding them.
var flagKeys = map[string]string{
	"grammar_path":             "grammar",
	"log_level":                "log-level",
	"concurrency":              "concurrency",
	"document.attributes_path": "attributes-path",
	"document.variables_path":  "variables-path",
	"document.values_path":     "values-path",
}

func setDefaults(v *viper.Viper, cfg application.Config) {
	v.SetDefault("grammar_path", cfg.GrammarPath)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("concurrency", cfg.Concurrency)
	v.SetDefault("registry_cache_size", cfg.RegistryCacheSize)
	v.SetDefault("document.attributes_path", cfg.Document.AttributesPath)
	v.SetDefault("document.variables_path", cfg.Document.VariablesPath)
	v.SetDefault("document.values_path", cfg.Document.ValuesPath)
	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.namespace", cfg.Metrics.Namespace)
}

// Load implements ports.ConfigLoader. config must be *application.Config.
func (l *viperLoader) Load(_ context.Context, config any) error {
	cfg, ok := config.(*application.Config)
	if !ok {
		return ports.NewConfigError("", fmt.Errorf("unsupported config type %T", config))
	}

	if l.file != "" {
		l.v.SetConfigFile(l.file)
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
				return ports.NewConfigError(l.file, ports.ErrConfigNotFound)
			}
			return ports.NewConfigError(l.file, err)
		}
	}

	if err := l.v.Unmarshal(cfg); err != nil {
		return ports.NewConfigError("", fmt.Errorf("decode: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return ports.NewConfigError("", err)
	}
	return nil
}
