// Package testutils provides fixtures and mocks for testing: synthetic
// validation-result files, attribute maps and in-memory collaborators. These
// components are intended for internal use within the project's test suites
// and are not part of the public API.
package testutils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ahrav/go-qa4sm/internal/domain"
)

// ResultFile is the JSON dump of a validation result: its global attributes,
// the names of all stored variables and, optionally, their values.
// It is the document format read by the qa4sm-meta command.
type ResultFile struct {
	// Attributes holds the global attributes of the result file.
	Attributes map[string]any `json:"attributes" validate:"required,min=1"`

	// Variables lists every stored variable name, metric or not.
	Variables []string `json:"variables" validate:"required,min=1,dive,required"`

	// Values maps variable names to their values.
	Values map[string][]float64 `json:"values,omitempty"`
}

// AttributeMap returns the attributes as a domain.AttributeMap.
func (f *ResultFile) AttributeMap() domain.AttributeMap {
	return domain.NewAttributeMap(f.Attributes)
}

// LoadResultFile loads a result file from JSON and validates it.
func LoadResultFile(path string) (*ResultFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}

	var f ResultFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse result file JSON: %w", err)
	}

	if err := ValidateResultFile(&f); err != nil {
		return nil, fmt.Errorf("result file validation failed: %w", err)
	}
	return &f, nil
}

// ValidateResultFile checks the structural requirements of f: attributes and
// variables are present and variable names are unique.
func ValidateResultFile(f *ResultFile) error {
	if f == nil {
		return fmt.Errorf("result file is nil")
	}
	if err := NewTestValidator().Struct(f); err != nil {
		return err
	}

	seen := make(map[string]bool, len(f.Variables))
	for _, name := range f.Variables {
		if seen[name] {
			return fmt.Errorf("duplicate variable name: %s", name)
		}
		seen[name] = true
	}
	for name := range f.Values {
		if !seen[name] {
			return fmt.Errorf("values given for undeclared variable: %s", name)
		}
	}
	return nil
}

// SaveResultFile writes a result file to path as indented JSON.
func SaveResultFile(f *ResultFile, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result file: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write result file: %w", err)
	}
	return nil
}
