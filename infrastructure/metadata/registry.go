package metadata

import (
	"fmt"
	"slices"

	"github.com/ahrav/go-qa4sm/internal/domain"
)

// Registry holds every dataset of one comparison file: the reference and
// the others, keyed by their attribute index.
//
// Variable names refer to datasets by id rather than attribute index. Files
// whose reference sits at index 0 use the index as id; all other files
// number ids one above the index, so index = id + offset with offset -1.
//
// A Registry is immutable after NewRegistry returns and is safe for
// concurrent readers.
type Registry struct {
	refIndex  int
	offset    int
	reference domain.Dataset
	others    []int
	byIndex   map[int]domain.Dataset
}

// NewRegistry builds the registry from the global attributes of a result
// file. It fails with domain.ErrMissingReferenceAttribute when the attribute
// naming the reference dataset is absent or does not name a dataset key.
func NewRegistry(g *Grammar, attrs domain.AttributeMap) (*Registry, error) {
	refIndex, err := referenceIndex(g, attrs)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		refIndex: refIndex,
		byIndex:  make(map[int]domain.Dataset),
	}
	if refIndex != 0 {
		r.offset = -1
	}

	for _, key := range attrs.Keys() {
		fields, ok := g.keys.shortName.Match(key)
		if !ok {
			continue
		}
		idx, ok := fields.Int(indexField)
		if !ok || idx == refIndex || slices.Contains(r.others, idx) {
			continue
		}
		r.others = append(r.others, idx)
	}
	// Keys sort lexically; datasets are ordered by index.
	slices.Sort(r.others)

	if r.reference, err = datasetAt(g, attrs, refIndex); err != nil {
		return nil, fmt.Errorf("reference dataset: %w", err)
	}
	r.byIndex[refIndex] = r.reference
	for _, idx := range r.others {
		ds, err := datasetAt(g, attrs, idx)
		if err != nil {
			return nil, fmt.Errorf("dataset %d: %w", idx, err)
		}
		r.byIndex[idx] = ds
	}
	return r, nil
}

// referenceIndex reads the reference attribute, whose value is the short
// name key of the reference dataset, and extracts the index from it.
func referenceIndex(g *Grammar, attrs domain.AttributeMap) (int, error) {
	val, err := attrs.String(g.keys.reference)
	if err != nil {
		return 0, domain.NewAttributeError(g.keys.reference, domain.ErrMissingReferenceAttribute)
	}
	fields, ok := g.keys.shortName.Match(val)
	if !ok {
		return 0, domain.NewAttributeError(g.keys.reference,
			fmt.Errorf("%w: value %q does not match %q",
				domain.ErrMissingReferenceAttribute, val, g.keys.shortName))
	}
	idx, ok := fields.Int(indexField)
	if !ok {
		return 0, domain.NewAttributeError(g.keys.reference, domain.ErrMissingReferenceAttribute)
	}
	return idx, nil
}

func datasetAt(g *Grammar, attrs domain.AttributeMap, idx int) (domain.Dataset, error) {
	var (
		ds  domain.Dataset
		err error
	)
	if ds.ShortName, err = attrs.String(datasetKey(g.keys.shortName, idx)); err != nil {
		return ds, err
	}
	if ds.PrettyName, err = attrs.String(datasetKey(g.keys.prettyName, idx)); err != nil {
		return ds, err
	}
	if ds.ShortVersion, err = attrs.String(datasetKey(g.keys.shortVersion, idx)); err != nil {
		return ds, err
	}
	if ds.PrettyVersion, err = attrs.String(datasetKey(g.keys.prettyVersion, idx)); err != nil {
		return ds, err
	}
	return ds, nil
}

// Offset returns the difference between attribute index and dataset id.
func (r *Registry) Offset() int { return r.offset }

// ReferenceIndex returns the attribute index of the reference dataset.
func (r *Registry) ReferenceIndex() int { return r.refIndex }

// IDOf converts an attribute index into the id used in variable names.
func (r *Registry) IDOf(index int) int { return index - r.offset }

// IndexOf converts a variable-name id into an attribute index.
func (r *Registry) IndexOf(id int) int { return id + r.offset }

// Reference returns the reference dataset with its id.
func (r *Registry) Reference() domain.DatasetRef {
	return domain.DatasetRef{ID: r.IDOf(r.refIndex), Dataset: r.reference}
}

// Others returns the non-reference datasets in ascending index order.
func (r *Registry) Others() []domain.DatasetRef {
	out := make([]domain.DatasetRef, len(r.others))
	for i, idx := range r.others {
		out[i] = domain.DatasetRef{ID: r.IDOf(idx), Dataset: r.byIndex[idx]}
	}
	return out
}

// All returns the reference followed by the other datasets.
func (r *Registry) All() []domain.DatasetRef {
	return append([]domain.DatasetRef{r.Reference()}, r.Others()...)
}

// Count returns the number of datasets, reference included.
func (r *Registry) Count() int { return 1 + len(r.others) }

// Lookup returns the dataset a variable-name id refers to. Unknown ids fail
// with a *domain.DatasetError wrapping domain.ErrUnknownDatasetID.
func (r *Registry) Lookup(id int) (domain.Dataset, error) {
	idx := r.IndexOf(id)
	ds, ok := r.byIndex[idx]
	if !ok {
		return domain.Dataset{}, domain.NewDatasetError(id, idx, domain.ErrUnknownDatasetID)
	}
	return ds, nil
}

// Ref is Lookup returning the dataset together with its id.
func (r *Registry) Ref(id int) (domain.DatasetRef, error) {
	ds, err := r.Lookup(id)
	if err != nil {
		return domain.DatasetRef{}, err
	}
	return domain.DatasetRef{ID: id, Dataset: ds}, nil
}

// Field returns one named field of the dataset with the given id.
func (r *Registry) Field(id int, name string) (string, error) {
	ds, err := r.Lookup(id)
	if err != nil {
		return "", err
	}
	return ds.Field(name)
}
