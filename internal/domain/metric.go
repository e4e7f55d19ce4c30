package domain

import "strconv"

// Group is the structural shape of a metric: how many datasets a variable
// name refers to. The numeric values match the group ids stored in result
// files.
type Group int

const (
	// GroupNone marks a name that follows no metric grammar.
	GroupNone Group = -1

	// GroupCommon metrics aggregate over all datasets and carry no dataset
	// suffix.
	GroupCommon Group = 0

	// GroupPairwise metrics relate the reference to one other dataset.
	GroupPairwise Group = 2

	// GroupTripleCollocation metrics involve the reference and two other
	// datasets, one of which the value is attributed to.
	GroupTripleCollocation Group = 3
)

// String returns the configuration name of the group.
func (g Group) String() string {
	switch g {
	case GroupNone:
		return "none"
	case GroupCommon:
		return "common"
	case GroupPairwise:
		return "pairwise"
	case GroupTripleCollocation:
		return "triple_collocation"
	default:
		return "group(" + strconv.Itoa(int(g)) + ")"
	}
}

// ParseGroup maps a configuration name back to a Group.
func ParseGroup(s string) (Group, bool) {
	switch s {
	case "common":
		return GroupCommon, true
	case "pairwise":
		return GroupPairwise, true
	case "triple_collocation":
		return GroupTripleCollocation, true
	default:
		return GroupNone, false
	}
}

// Arity returns the number of datasets a name of this group refers to.
func (g Group) Arity() int {
	switch g {
	case GroupPairwise:
		return 2
	case GroupTripleCollocation:
		return 3
	default:
		return 0
	}
}

// Bound identifies which side of a confidence interval a variable holds.
type Bound string

const (
	BoundNone  Bound = ""
	BoundUpper Bound = "upper"
	BoundLower Bound = "lower"
)

// ParseBound accepts "upper" and "lower".
func ParseBound(s string) (Bound, bool) {
	switch Bound(s) {
	case BoundUpper, BoundLower:
		return Bound(s), true
	default:
		return BoundNone, false
	}
}

// Role names the slot a dataset id occupies inside a variable name.
type Role string

const (
	// RoleReference is the reference dataset.
	RoleReference Role = "ref"

	// RoleMetric is the dataset a triple collocation value is attributed to.
	RoleMetric Role = "mds"

	// RoleSatellite0 is the first non-reference dataset.
	RoleSatellite0 Role = "sat0"

	// RoleSatellite1 is the second non-reference dataset (triple collocation).
	RoleSatellite1 Role = "sat1"
)

// ParsedName is the result of matching a variable name against the metric
// grammar. A Group of GroupNone means the name is not a metric variable.
type ParsedName struct {
	Name   string
	Metric string
	Group  Group
	Refs   map[Role]int
	Bound  Bound
}

// IsMetric reports whether the name matched a metric grammar.
func (p ParsedName) IsMetric() bool { return p.Group != GroupNone }

// Ref returns the dataset id captured for role.
func (p ParsedName) Ref(role Role) (int, bool) {
	id, ok := p.Refs[role]
	return id, ok
}

// NotAMetric returns the ParsedName reported for names outside the grammar.
func NotAMetric(name string) ParsedName {
	return ParsedName{Name: name, Group: GroupNone}
}

// MetricVariable is a variable name resolved against a dataset registry.
// MetricDataset is nil for common metrics and Other is nil unless the
// variable belongs to a triple collocation metric.
type MetricVariable struct {
	Name          string      `json:"name"`
	Metric        string      `json:"metric"`
	Group         Group       `json:"group"`
	Bound         Bound       `json:"bound,omitempty"`
	Reference     DatasetRef  `json:"reference"`
	MetricDataset *DatasetRef `json:"metric_dataset,omitempty"`
	Other         *DatasetRef `json:"other_dataset,omitempty"`
	PrettyName    string      `json:"pretty_name"`

	// Values is the caller's handle to the stored values. It is carried
	// through untouched.
	Values any `json:"-"`
}

// IsCI reports whether the variable holds a confidence interval bound.
func (v MetricVariable) IsCI() bool { return v.Bound != BoundNone }

// HasValues reports whether a values handle is attached. Handles that
// implement Empty() bool are asked as well.
func (v MetricVariable) HasValues() bool {
	if v.Values == nil {
		return false
	}
	if e, ok := v.Values.(interface{ Empty() bool }); ok {
		return !e.Empty()
	}
	return true
}

// ValueRange is the expected value domain of a metric. Nil ends are open.
type ValueRange struct {
	Min *float64 `json:"min,omitempty" yaml:"min"`
	Max *float64 `json:"max,omitempty" yaml:"max"`
}

// Metric describes a validation metric and, when built from variables,
// whether any of them carries confidence intervals.
type Metric struct {
	Name                   string           `json:"name"`
	PrettyName             string           `json:"pretty_name"`
	Group                  Group            `json:"group"`
	HasConfidenceIntervals bool             `json:"has_confidence_intervals"`
	Description            string           `json:"description,omitempty"`
	Range                  ValueRange       `json:"range"`
	Variables              []MetricVariable `json:"variables,omitempty"`
}
