package crossval

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ferroscan/segeval/internal/stats"
)

// DefaultPrimaryMetric ranks models when CompareOptions leaves the metric
// empty.
const DefaultPrimaryMetric = "iou"

// Candidate is one model definition entering a comparison.
type Candidate struct {
	Name  string
	Train TrainFunc
}

// CompareOptions configures CompareModels. The zero value compares on IoU
// with a paired test at the stats default alpha.
type CompareOptions struct {
	RunOptions

	// PrimaryMetric ranks models and feeds the pairwise tests. Defaults
	// to DefaultPrimaryMetric.
	PrimaryMetric string

	// Unpaired switches the pairwise tests to the independent Student
	// variant. The default is paired: all models run on the same fold
	// partition, so fold results are matched.
	Unpaired bool

	Alpha float64
}

// ModelRun is one candidate's k-fold outcome within a comparison.
type ModelRun struct {
	Name string
	Run  *RunResult

	// Mean is the candidate's mean primary metric over its successful,
	// finite folds. NaN when no fold produced a finite value.
	Mean float64
}

// ModelComparison is the immutable outcome of comparing several candidates
// on one shared fold partition.
type ModelComparison struct {
	PrimaryMetric string
	Folds         []Fold
	Models        []ModelRun
	Pairwise      []*stats.Comparison
	Best          string
}

// FailedFolds returns the total failed-fold count across all candidates, so
// callers can tell a partial comparison from a complete one.
func (mc *ModelComparison) FailedFolds() int {
	total := 0
	for _, m := range mc.Models {
		total += m.Run.FailedFolds
	}
	return total
}

// CompareModels runs k-fold validation for every candidate on a single
// shared fold partition, then compares each pair of candidates on the
// primary metric. The partition is generated once so the pairwise tests are
// genuinely paired.
func CompareModels(ctx context.Context, datasetSize int, candidates []Candidate, eval EvalFunc, k int, opts CompareOptions) (*ModelComparison, error) {
	if len(candidates) < 2 {
		return nil, fmt.Errorf("comparison needs at least 2 candidates, got %d", len(candidates))
	}
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if c.Name == "" {
			return nil, fmt.Errorf("every candidate must be named")
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate candidate name %q", c.Name)
		}
		seen[c.Name] = true
	}
	primary := opts.PrimaryMetric
	if primary == "" {
		primary = DefaultPrimaryMetric
	}

	folds, err := KFolds(datasetSize, k, opts.FoldOptions)
	if err != nil {
		return nil, err
	}

	comparison := &ModelComparison{PrimaryMetric: primary, Folds: folds}
	for _, c := range candidates {
		run, err := RunFolds(ctx, folds, c.Train, eval, opts.RunOptions)
		if err != nil {
			return nil, fmt.Errorf("candidate %s: %w", c.Name, err)
		}
		series, err := run.MetricSeries(primary)
		if err != nil {
			return nil, err
		}
		comparison.Models = append(comparison.Models, ModelRun{
			Name: c.Name,
			Run:  run,
			Mean: meanOrNaN(stats.Finite(series)),
		})
	}

	for i := 0; i < len(comparison.Models); i++ {
		for j := i + 1; j < len(comparison.Models); j++ {
			pair, err := comparePair(comparison.Models[i], comparison.Models[j], primary, opts)
			if err != nil {
				return nil, err
			}
			comparison.Pairwise = append(comparison.Pairwise, pair)
		}
	}

	best := comparison.Models[0]
	for _, m := range comparison.Models[1:] {
		if math.IsNaN(best.Mean) || (!math.IsNaN(m.Mean) && m.Mean > best.Mean) {
			best = m
		}
	}
	comparison.Best = best.Name
	return comparison, nil
}

// comparePair feeds two candidates' per-fold primary metrics into the stats
// layer. For a paired test only folds where both candidates produced a
// finite value are used, keeping the samples matched by fold index.
func comparePair(a, b ModelRun, primary string, opts CompareOptions) (*stats.Comparison, error) {
	var sampleA, sampleB []float64
	for i := range a.Run.Outcomes {
		oa, ob := a.Run.Outcomes[i], b.Run.Outcomes[i]
		if oa.Failed() || ob.Failed() {
			continue
		}
		va, _ := oa.Result.Value(primary)
		vb, _ := ob.Result.Value(primary)
		if math.IsNaN(va) || math.IsNaN(vb) {
			continue
		}
		sampleA = append(sampleA, va)
		sampleB = append(sampleB, vb)
	}

	c, err := stats.CompareModels(a.Name, sampleA, b.Name, sampleB, stats.CompareOptions{
		Paired: !opts.Unpaired,
		Alpha:  opts.Alpha,
	})
	if err != nil {
		return nil, fmt.Errorf("comparing %s and %s on %s: %w", a.Name, b.Name, primary, err)
	}
	return c, nil
}

func meanOrNaN(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	return stat.Mean(data, nil)
}
