package metadata

import (
	"fmt"

	"github.com/ahrav/go-qa4sm/internal/domain"
)

// Resolver turns parsed names into metric variables by attaching the
// datasets of a registry.
type Resolver struct {
	grammar *Grammar
}

// NewResolver returns a Resolver for g.
func NewResolver(g *Grammar) *Resolver { return &Resolver{grammar: g} }

// Resolve attaches datasets to parsed. values is stored as given.
//
// Common variables get the reference only. Pairwise variables get the
// reference and the metric dataset (the first satellite). Triple
// collocation variables also get an other dataset; when the second
// satellite resolves to the same dataset as the metric dataset, the first
// satellite is used instead, so the two slots never hold the same dataset.
func (r *Resolver) Resolve(parsed domain.ParsedName, reg *Registry, values any) (domain.MetricVariable, error) {
	if !parsed.IsMetric() {
		return domain.MetricVariable{}, fmt.Errorf("%w: %q", domain.ErrNotAMetricVariable, parsed.Name)
	}

	v := domain.MetricVariable{
		Name:   parsed.Name,
		Metric: parsed.Metric,
		Group:  parsed.Group,
		Bound:  parsed.Bound,
		Values: values,
	}

	var err error
	switch parsed.Group {
	case domain.GroupCommon:
		if v.Reference, err = reg.Ref(reg.Reference().ID); err != nil {
			return domain.MetricVariable{}, err
		}

	case domain.GroupPairwise:
		if v.Reference, err = resolveRole(parsed, reg, domain.RoleReference); err != nil {
			return domain.MetricVariable{}, err
		}
		mds, err := resolveRole(parsed, reg, domain.RoleSatellite0)
		if err != nil {
			return domain.MetricVariable{}, err
		}
		v.MetricDataset = &mds

	case domain.GroupTripleCollocation:
		if v.Reference, err = resolveRole(parsed, reg, domain.RoleReference); err != nil {
			return domain.MetricVariable{}, err
		}
		mds, err := resolveRole(parsed, reg, domain.RoleMetric)
		if err != nil {
			return domain.MetricVariable{}, err
		}
		other, err := resolveRole(parsed, reg, domain.RoleSatellite1)
		if err != nil {
			return domain.MetricVariable{}, err
		}
		if other.Dataset == mds.Dataset {
			if other, err = resolveRole(parsed, reg, domain.RoleSatellite0); err != nil {
				return domain.MetricVariable{}, err
			}
		}
		v.MetricDataset = &mds
		v.Other = &other

	default:
		return domain.MetricVariable{}, fmt.Errorf("%w: %s", ErrUnknownGroup, parsed.Group)
	}

	if v.PrettyName, err = r.prettyName(v); err != nil {
		return domain.MetricVariable{}, err
	}
	return v, nil
}

func resolveRole(parsed domain.ParsedName, reg *Registry, role domain.Role) (domain.DatasetRef, error) {
	id, ok := parsed.Ref(role)
	if !ok {
		return domain.DatasetRef{}, fmt.Errorf("%w: %q has no %s dataset", domain.ErrUnknownDatasetID, parsed.Name, role)
	}
	ref, err := reg.Ref(id)
	if err != nil {
		return domain.DatasetRef{}, fmt.Errorf("resolve %s of %q: %w", role, parsed.Name, err)
	}
	return ref, nil
}

// prettyName renders the group's display template for v.
func (r *Resolver) prettyName(v domain.MetricVariable) (string, error) {
	gg, ok := r.grammar.byGroup[v.Group]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownGroup, v.Group)
	}
	metric, err := r.grammar.PrettyName(v.Metric)
	if err != nil {
		return "", err
	}

	values := map[string]any{
		prettyMetricField: metric,
		prettyRefDSField:  v.Reference.Dataset.PrettyTitle(),
	}
	if v.MetricDataset != nil {
		values[prettyMetricDSField] = v.MetricDataset.Dataset.PrettyTitle()
	}
	if v.Other != nil {
		values[prettyOtherDSField] = v.Other.Dataset.PrettyTitle()
	}

	name, err := gg.pretty.Format(values)
	if err != nil {
		return "", err
	}
	if v.IsCI() {
		name = r.grammar.ciPrefix + name
	}
	return name, nil
}
