package testutils

import (
	"fmt"
	"math/rand"
	"time"
)

// Metric tokens written by the generator, per group.
var (
	GeneratedCommonMetrics   = []string{"n_obs"}
	GeneratedPairwiseMetrics = []string{"R", "p_R", "rho", "RMSD", "BIAS", "urmsd"}
	GeneratedCIMetrics       = []string{"R", "BIAS"}
	GeneratedTCMetrics       = []string{"snr", "err_std", "beta"}

	// NonMetricVariables are bookkeeping variables present in every file.
	NonMetricVariables = []string{"lat", "lon", "gpi", "time", "idx"}
)

var datasetPool = []string{
	"ISMN", "C3S", "ERA5", "ERA5_LAND", "ASCAT", "SMOS", "SMAP", "GLDAS",
	"ESA_CCI_SM_combined", "ESA_CCI_SM_active", "ESA_CCI_SM_passive",
}

// GeneratedFile is a synthetic result file together with the layout used to
// produce it.
type GeneratedFile struct {
	*ResultFile

	// Reference and Others are the written datasets.
	Reference DatasetSpec
	Others    []DatasetSpec

	// Offset is the index-to-id offset the file uses.
	Offset int

	// Groups counts the written metric variables per group name.
	Groups map[string]int
}

// ID returns the variable-name id of the dataset at index.
func (g *GeneratedFile) ID(index int) int { return index - g.Offset }

// Ref returns the name ref of d.
func (g *GeneratedFile) Ref(d DatasetSpec) NameRef {
	return NameRef{ID: g.ID(d.Index), ShortName: d.ShortName}
}

// GenerateResultFile builds a synthetic result file with n datasets, the
// reference at refIndex. Files with refIndex 0 use indices 0..n-1, all others
// use 1..n, and refIndex must lie in that range. The seed controls dataset
// names and values; use a fixed value for reproducible tests.
//
// The file carries the non-metric variables, the common metrics, every
// pairwise metric against each other dataset, lower and upper CI bounds for
// GeneratedCIMetrics and, when n >= 3, triple collocation metrics for the
// first two other datasets.
func GenerateResultFile(n, refIndex int, seed int64) (*GeneratedFile, error) {
	first := 1
	if refIndex == 0 {
		first = 0
	}
	if n < 1 || n > len(datasetPool) {
		return nil, fmt.Errorf("dataset count %d out of range [1, %d]", n, len(datasetPool))
	}
	if refIndex < first || refIndex >= first+n {
		return nil, fmt.Errorf("reference index %d outside [%d, %d)", refIndex, first, first+n)
	}

	rng := rand.New(rand.NewSource(seed))
	names := append([]string(nil), datasetPool...)
	rng.Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })

	g := &GeneratedFile{
		ResultFile: &ResultFile{Values: make(map[string][]float64)},
		Groups:     make(map[string]int),
	}
	if refIndex != 0 {
		g.Offset = -1
	}

	b := NewAttributeBuilder().WithReference(refIndex)
	for i := range n {
		d := NewDatasetSpec(first+i, names[i])
		b.WithDataset(d)
		if d.Index == refIndex {
			g.Reference = d
		} else {
			g.Others = append(g.Others, d)
		}
	}
	g.Attributes = b.Raw()

	add := func(name, group string) {
		g.Variables = append(g.Variables, name)
		if group != "" {
			g.Groups[group]++
			g.Values[name] = randomValues(rng, 8)
		}
	}

	for _, v := range NonMetricVariables {
		add(v, "")
	}
	for _, m := range GeneratedCommonMetrics {
		add(m, "common")
	}

	ref := g.Ref(g.Reference)
	for _, o := range g.Others {
		sat := g.Ref(o)
		for _, m := range GeneratedPairwiseMetrics {
			add(PairwiseName(m, ref, sat), "pairwise")
		}
		for _, m := range GeneratedCIMetrics {
			add(PairwiseCIName(m, "lower", ref, sat), "pairwise")
			add(PairwiseCIName(m, "upper", ref, sat), "pairwise")
		}
	}

	if len(g.Others) >= 2 {
		sat0, sat1 := g.Ref(g.Others[0]), g.Ref(g.Others[1])
		for _, m := range GeneratedTCMetrics {
			add(TCName(m, sat0, ref, sat0, sat1), "triple_collocation")
			add(TCName(m, sat1, ref, sat0, sat1), "triple_collocation")
		}
	}
	return g, nil
}

// GenerateResultFileDefault generates a file with a time-based seed.
func GenerateResultFileDefault(n, refIndex int) (*GeneratedFile, error) {
	return GenerateResultFile(n, refIndex, time.Now().UnixNano())
}

func randomValues(rng *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()
	}
	return out
}
