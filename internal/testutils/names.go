package testutils

import "fmt"

// NameRef is a dataset as it appears inside a variable name.
type NameRef struct {
	ID        int
	ShortName string
}

func (r NameRef) String() string { return fmt.Sprintf("%d-%s", r.ID, r.ShortName) }

// PairwiseName renders a pairwise metric variable name.
func PairwiseName(metric string, ref, sat NameRef) string {
	return fmt.Sprintf("%s_between_%s_and_%s", metric, ref, sat)
}

// PairwiseCIName renders a pairwise confidence interval variable name.
func PairwiseCIName(metric, bound string, ref, sat NameRef) string {
	return fmt.Sprintf("%s_ci_%s_between_%s_and_%s", metric, bound, ref, sat)
}

// TCName renders a triple collocation variable name attributed to mds.
func TCName(metric string, mds, ref, sat0, sat1 NameRef) string {
	return fmt.Sprintf("%s_%s_between_%s_and_%s_and_%s", metric, mds, ref, sat0, sat1)
}

// TCCIName renders a triple collocation confidence interval variable name.
func TCCIName(metric, bound string, mds, ref, sat0, sat1 NameRef) string {
	return fmt.Sprintf("%s_ci_%s_%s_between_%s_and_%s_and_%s", metric, bound, mds, ref, sat0, sat1)
}
