package metadata

import (
	"fmt"

	"github.com/ahrav/go-qa4sm/internal/domain"
)

// LabelKind selects a title or file name layout.
type LabelKind string

// Title kinds.
const (
	BoxplotBasic LabelKind = "boxplot_basic"
	BoxplotTC    LabelKind = "boxplot_tc"
	MapplotBasic LabelKind = "mapplot_basic"
	MapplotTC    LabelKind = "mapplot_tc"
)

// File name kinds, besides BoxplotBasic, BoxplotTC and MapplotTC.
const (
	MapplotCommon LabelKind = "mapplot_common"
	MapplotDouble LabelKind = "mapplot_double"
)

var titleFormats = map[LabelKind]string{
	BoxplotBasic: "Intercomparison of \n%s \nwith %s \nas the reference",
	BoxplotTC:    "Intercomparison of \n%s \nfor %s \nwith %s \nas the reference",
	MapplotBasic: "%s for %s with %s as the reference",
	MapplotTC:    "%s for %s with %s and %s as the references",
}

// Labels renders captions, titles and file names for metric variables.
type Labels struct {
	grammar *Grammar
}

// NewLabels returns Labels using the metric catalogue of g.
func NewLabels(g *Grammar) *Labels { return &Labels{grammar: g} }

// BoxCaption returns the dataset part of a box caption: the metric dataset,
// or with tc the other dataset prefixed by "Other Data:".
func (l *Labels) BoxCaption(v domain.MetricVariable, tc bool) (string, error) {
	ref := v.MetricDataset
	if tc {
		ref = v.Other
	}
	if ref == nil {
		return "", missingRole(v, tc)
	}
	capt := fmt.Sprintf("%d-%s\n(%s)", ref.ID, ref.Dataset.PrettyName, ref.Dataset.PrettyVersion)
	if tc {
		capt = "Other Data:\n" + capt
	}
	return capt, nil
}

// Title returns the plot title of kind for v.
func (l *Labels) Title(v domain.MetricVariable, kind LabelKind) (string, error) {
	format, ok := titleFormats[kind]
	if !ok {
		return "", fmt.Errorf("%w: title %q", ErrUnknownLabelKind, kind)
	}
	metric, err := l.grammar.PrettyName(v.Metric)
	if err != nil {
		return "", err
	}

	parts := []any{metric}
	switch kind {
	case BoxplotBasic:
		parts = append(parts, versioned(v.Reference))
	default:
		if v.MetricDataset == nil {
			return "", missingRole(v, false)
		}
		parts = append(parts, versioned(*v.MetricDataset), versioned(v.Reference))
		if kind == MapplotTC {
			if v.Other == nil {
				return "", missingRole(v, true)
			}
			parts = append(parts, versioned(*v.Other))
		}
	}
	return fmt.Sprintf(format, parts...), nil
}

// Filename returns the file name stem of kind for v.
func (l *Labels) Filename(v domain.MetricVariable, kind LabelKind) (string, error) {
	switch kind {
	case BoxplotBasic:
		return "boxplot_" + v.Metric, nil
	case MapplotCommon:
		return "overview_" + v.Metric, nil
	case BoxplotTC, MapplotDouble, MapplotTC:
	default:
		return "", fmt.Errorf("%w: filename %q", ErrUnknownLabelKind, kind)
	}

	if v.MetricDataset == nil {
		return "", missingRole(v, false)
	}
	mds := v.MetricDataset.String()
	switch kind {
	case BoxplotTC:
		return fmt.Sprintf("boxplot_%s_for_%s", v.Metric, mds), nil
	case MapplotDouble:
		return fmt.Sprintf("overview_%s_%s_and_%s", v.Metric, mds, v.Reference), nil
	}
	if v.Other == nil {
		return "", missingRole(v, true)
	}
	return fmt.Sprintf("overview_%s_for_%s_with_%s_and_%s", v.Metric, mds, v.Reference, v.Other), nil
}

// versioned renders "<id>-<pretty name> (<pretty version>)".
func versioned(r domain.DatasetRef) string {
	return fmt.Sprintf("%d-%s (%s)", r.ID, r.Dataset.PrettyName, r.Dataset.PrettyVersion)
}

func missingRole(v domain.MetricVariable, other bool) error {
	role := domain.RoleMetric
	if other {
		role = domain.RoleSatellite1
	}
	return fmt.Errorf("%w: %s variable %q has no %s dataset", ErrLabelDataset, v.Group, v.Name, role)
}
