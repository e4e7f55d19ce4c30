package metadata

import (
	"github.com/ahrav/go-qa4sm/internal/domain"
)

// Attribute names reported by *domain.InconsistencyError.
const (
	attrMetric    = "metric"
	attrGroup     = "group"
	attrReference = "reference"
)

// Aggregate builds the Metric called name from the variables that claim to
// belong to it. The first variable fixes the expected metric token, group
// and reference dataset; every later variable must match them or Aggregate
// fails with a *domain.InconsistencyError naming the first differing
// attribute. Variables may freely mix confidence interval bounds, and
// HasConfidenceIntervals is set when any of them carries one.
//
// An empty vars yields a bare Metric whose group comes from the grammar.
func Aggregate(g *Grammar, name string, vars []domain.MetricVariable) (domain.Metric, error) {
	def, err := g.Catalogue(name)
	if err != nil {
		return domain.Metric{}, err
	}

	m := domain.Metric{
		Name:       name,
		PrettyName: def.PrettyName,
		Group:      g.MetricGroup(name),
		Range:      def.Range,
	}
	if len(vars) == 0 {
		m.Description = def.Description
		return m, nil
	}

	first := vars[0]
	if first.Metric != name {
		return domain.Metric{}, &domain.InconsistencyError{
			Metric: name, Attribute: attrMetric, Expected: name, Got: first.Metric,
		}
	}
	for _, v := range vars[1:] {
		switch {
		case v.Metric != first.Metric:
			return domain.Metric{}, &domain.InconsistencyError{
				Metric: name, Attribute: attrMetric, Expected: first.Metric, Got: v.Metric,
			}
		case v.Group != first.Group:
			return domain.Metric{}, &domain.InconsistencyError{
				Metric: name, Attribute: attrGroup, Expected: first.Group, Got: v.Group,
			}
		case v.Reference != first.Reference:
			return domain.Metric{}, &domain.InconsistencyError{
				Metric: name, Attribute: attrReference, Expected: first.Reference, Got: v.Reference,
			}
		}
	}

	m.Group = first.Group
	m.Variables = vars
	for _, v := range vars {
		if v.IsCI() {
			m.HasConfidenceIntervals = true
			break
		}
	}
	if m.Description, err = g.Description(name, first.Reference.Dataset.ShortName); err != nil {
		return domain.Metric{}, err
	}
	return m, nil
}
