package application

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// promNamePattern is the Prometheus metric name grammar without colons,
	// which are reserved for recording rules.
	promNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

	// jsonPathPattern accepts dotted gjson paths of plain keys, escaped dots
	// and wildcards. Modifiers and queries are not allowed in config.
	jsonPathPattern = regexp.MustCompile(`^([A-Za-z0-9_\-*?]|\\\.)+(\.([A-Za-z0-9_\-*?]|\\\.)+)*$`)
)

// NewConfigValidator returns a validator with the config tags registered.
func NewConfigValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterConfigValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return v, nil
}

// RegisterConfigValidators registers the custom tags used by Config:
// promname, jsonpath and yamlfile.
func RegisterConfigValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("promname", validatePromName); err != nil {
		return fmt.Errorf("failed to register promname validator: %w", err)
	}
	if err := v.RegisterValidation("jsonpath", validateJSONPath); err != nil {
		return fmt.Errorf("failed to register jsonpath validator: %w", err)
	}
	if err := v.RegisterValidation("yamlfile", validateYAMLFile); err != nil {
		return fmt.Errorf("failed to register yamlfile validator: %w", err)
	}
	return nil
}

func validatePromName(fl validator.FieldLevel) bool {
	return promNamePattern.MatchString(fl.Field().String())
}

func validateJSONPath(fl validator.FieldLevel) bool {
	return jsonPathPattern.MatchString(fl.Field().String())
}

// validateYAMLFile checks the extension only; existence is checked when the
// grammar is loaded.
func validateYAMLFile(fl validator.FieldLevel) bool {
	ext := strings.ToLower(filepath.Ext(fl.Field().String()))
	return ext == ".yaml" || ext == ".yml"
}
