// Package metadata decodes qa4sm validation-result metadata: it compiles the
// naming grammar, builds the dataset registry from global attributes, parses
// variable names and resolves them into metric variables and metrics.
//
// Every type in this package is immutable after construction and may be
// shared between goroutines without locking.
package metadata

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Errors returned by the grammar and label helpers.
var (
	// ErrUnknownGroup is returned when a group has no grammar.
	ErrUnknownGroup = errors.New("no grammar for metric group")

	// ErrNoCITemplate is returned when a CI name is requested for a group
	// without a confidence-interval template.
	ErrNoCITemplate = errors.New("group has no confidence interval template")

	// ErrUnknownLabelKind is returned for title or filename kinds outside the
	// lookup tables.
	ErrUnknownLabelKind = errors.New("unknown label kind")

	// ErrLabelDataset is returned when a label needs a dataset role the
	// variable does not carry.
	ErrLabelDataset = errors.New("variable lacks dataset for label")
)

// Package-level validator instance for grammar definitions.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("nametemplate", validateNameTemplate)
	_ = v.RegisterValidation("keytemplate", validateKeyTemplate)
	return v
}

// validateNameTemplate accepts any string that compiles as a Template.
func validateNameTemplate(fl validator.FieldLevel) bool {
	_, err := CompileTemplate(fl.Field().String())
	return err == nil
}

// validateKeyTemplate accepts templates with exactly one integer field named
// "index".
func validateKeyTemplate(fl validator.FieldLevel) bool {
	t, err := CompileTemplate(fl.Field().String())
	if err != nil {
		return false
	}
	return len(t.FieldNames()) == 1 && t.IsIntField(indexField)
}
