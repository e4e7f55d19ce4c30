// Command generate_result_file writes a synthetic validation result dump for
// exercising qa4sm-meta without a real result file.
package main

import (
	"flag"
	"fmt"
	"log"
	"maps"
	"slices"
	"time"

	"github.com/ahrav/go-qa4sm/internal/testutils"
)

func main() {
	var (
		datasets   = flag.Int("datasets", 4, "Number of datasets, reference included")
		refIndex   = flag.Int("ref-index", 1, "Index of the reference dataset; 0 selects zero-based indices")
		seed       = flag.Int64("seed", 0, "Random seed; 0 uses the current time")
		outputPath = flag.String("output", "testdata/results/sample_result.json", "Output file path")
	)
	flag.Parse()

	s := *seed
	if s == 0 {
		s = time.Now().UnixNano()
	}

	f, err := testutils.GenerateResultFile(*datasets, *refIndex, s)
	if err != nil {
		log.Fatalf("Failed to generate result file: %v", err)
	}
	if err := testutils.ValidateResultFile(f.ResultFile); err != nil {
		log.Fatalf("Generated result file is invalid: %v", err)
	}
	if err := testutils.SaveResultFile(f.ResultFile, *outputPath); err != nil {
		log.Fatalf("Failed to save result file: %v", err)
	}

	fmt.Printf("Generated result file:\n")
	fmt.Printf("- Path: %s\n", *outputPath)
	fmt.Printf("- Seed: %d\n", s)
	fmt.Printf("- Reference: %d-%s (index %d)\n", f.ID(f.Reference.Index), f.Reference.ShortName, f.Reference.Index)
	for _, o := range f.Others {
		fmt.Printf("- Dataset: %s (index %d)\n", f.Ref(o), o.Index)
	}
	fmt.Printf("- Variables: %d (%d without metric)\n", len(f.Variables), len(testutils.NonMetricVariables))
	for _, g := range slices.Sorted(maps.Keys(f.Groups)) {
		fmt.Printf("  - %s: %d\n", g, f.Groups[g])
	}
}
