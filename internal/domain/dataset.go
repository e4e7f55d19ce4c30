package domain

import "fmt"

// Dataset field names accepted by Dataset.Field.
const (
	FieldShortName     = "short_name"
	FieldPrettyName    = "pretty_name"
	FieldShortVersion  = "short_version"
	FieldPrettyVersion = "pretty_version"
	FieldPrettyTitle   = "pretty_title"
)

// Dataset describes one dataset taking part in a validation. It is derived
// from the global attributes for a single dataset index and never changes
// afterwards.
type Dataset struct {
	// ShortName is the machine name of the dataset, e.g. "ERA5".
	ShortName string `json:"short_name" yaml:"short_name"`

	// PrettyName is the display name of the dataset.
	PrettyName string `json:"pretty_name" yaml:"pretty_name"`

	// ShortVersion is the machine name of the dataset version.
	ShortVersion string `json:"short_version" yaml:"short_version"`

	// PrettyVersion is the display name of the dataset version.
	PrettyVersion string `json:"pretty_version" yaml:"pretty_version"`
}

// PrettyTitle returns the display name followed by the display version in
// parentheses.
func (d Dataset) PrettyTitle() string {
	return d.PrettyName + " (" + d.PrettyVersion + ")"
}

// Field returns a single named field of the dataset. Valid names are the
// Field* constants.
func (d Dataset) Field(name string) (string, error) {
	switch name {
	case FieldShortName:
		return d.ShortName, nil
	case FieldPrettyName:
		return d.PrettyName, nil
	case FieldShortVersion:
		return d.ShortVersion, nil
	case FieldPrettyVersion:
		return d.PrettyVersion, nil
	case FieldPrettyTitle:
		return d.PrettyTitle(), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
}

// DatasetRef pairs a dataset with the id used for it inside variable names.
type DatasetRef struct {
	ID      int     `json:"id"`
	Dataset Dataset `json:"dataset"`
}

// String renders the ref as "<id>-<short_name>", the form used in variable
// names and file names.
func (r DatasetRef) String() string {
	return fmt.Sprintf("%d-%s", r.ID, r.Dataset.ShortName)
}
