package testutils

import (
	"fmt"
	"strconv"

	"github.com/ahrav/go-qa4sm/internal/domain"
)

// Global attribute keys of the qa4sm result format.
const (
	ReferenceKey = "val_ref"

	shortNameKey     = "val_dc_dataset%d"
	prettyNameKey    = "val_dc_dataset_pretty_name%d"
	shortVersionKey  = "val_dc_version%d"
	prettyVersionKey = "val_dc_version_pretty_name%d"
)

// DatasetSpec describes one dataset written into an attribute map.
type DatasetSpec struct {
	Index         int
	ShortName     string
	PrettyName    string
	ShortVersion  string
	PrettyVersion string
}

// Dataset returns the domain view of the spec.
func (d DatasetSpec) Dataset() domain.Dataset {
	return domain.Dataset{
		ShortName:     d.ShortName,
		PrettyName:    d.PrettyName,
		ShortVersion:  d.ShortVersion,
		PrettyVersion: d.PrettyVersion,
	}
}

// NewDatasetSpec fills the pretty and version fields from the short name.
func NewDatasetSpec(index int, shortName string) DatasetSpec {
	return DatasetSpec{
		Index:         index,
		ShortName:     shortName,
		PrettyName:    shortName + " pretty",
		ShortVersion:  shortName + "_v1",
		PrettyVersion: "v1." + strconv.Itoa(index),
	}
}

// AttributeBuilder assembles global attribute maps for tests.
type AttributeBuilder struct {
	attrs map[string]any
}

// NewAttributeBuilder returns an empty builder.
func NewAttributeBuilder() *AttributeBuilder {
	return &AttributeBuilder{attrs: make(map[string]any)}
}

// WithDataset writes the four name attributes of d.
func (b *AttributeBuilder) WithDataset(d DatasetSpec) *AttributeBuilder {
	b.attrs[fmt.Sprintf(shortNameKey, d.Index)] = d.ShortName
	b.attrs[fmt.Sprintf(prettyNameKey, d.Index)] = d.PrettyName
	b.attrs[fmt.Sprintf(shortVersionKey, d.Index)] = d.ShortVersion
	b.attrs[fmt.Sprintf(prettyVersionKey, d.Index)] = d.PrettyVersion
	return b
}

// WithReference marks the dataset at index as the reference.
func (b *AttributeBuilder) WithReference(index int) *AttributeBuilder {
	b.attrs[ReferenceKey] = fmt.Sprintf(shortNameKey, index)
	return b
}

// With sets an arbitrary attribute.
func (b *AttributeBuilder) With(key string, value any) *AttributeBuilder {
	b.attrs[key] = value
	return b
}

// Without removes an attribute.
func (b *AttributeBuilder) Without(key string) *AttributeBuilder {
	delete(b.attrs, key)
	return b
}

// Raw returns a copy of the attributes as a plain map.
func (b *AttributeBuilder) Raw() map[string]any {
	out := make(map[string]any, len(b.attrs))
	for k, v := range b.attrs {
		out[k] = v
	}
	return out
}

// Build returns the attributes as a domain.AttributeMap.
func (b *AttributeBuilder) Build() domain.AttributeMap {
	return domain.NewAttributeMap(b.attrs)
}

// ERA5Scenario returns the datasets of a file whose reference, ERA5, sits at
// index 4 with C3S, ASCAT and SMOS at indices 1 to 3.
func ERA5Scenario() (ref DatasetSpec, others []DatasetSpec) {
	ref = DatasetSpec{Index: 4, ShortName: "ERA5", PrettyName: "ERA5", ShortVersion: "ERA5_test", PrettyVersion: "v20190613"}
	others = []DatasetSpec{
		{Index: 1, ShortName: "C3S", PrettyName: "C3S", ShortVersion: "C3S_V201812", PrettyVersion: "v201812"},
		{Index: 2, ShortName: "ASCAT", PrettyName: "H-SAF ASCAT SSM CDR", ShortVersion: "ASCAT_H113", PrettyVersion: "H113"},
		{Index: 3, ShortName: "SMOS", PrettyName: "SMOS IC", ShortVersion: "SMOS_105_ASC", PrettyVersion: "V.105 Ascending"},
	}
	return ref, others
}

// ERA5ScenarioAttributes builds the attribute map of ERA5Scenario.
func ERA5ScenarioAttributes() *AttributeBuilder {
	ref, others := ERA5Scenario()
	b := NewAttributeBuilder().WithDataset(ref).WithReference(ref.Index)
	for _, o := range others {
		b.WithDataset(o)
	}
	return b
}
