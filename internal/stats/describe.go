package stats

import (
	"fmt"
	"math"

	montana "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds the descriptive statistics of one metric sample, as consumed
// by the report layer.
type Summary struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// Describe computes descriptive statistics over data. Fails on an empty
// sample; a single observation yields zero standard deviation.
func Describe(data []float64) (Summary, error) {
	if len(data) == 0 {
		return Summary{}, fmt.Errorf("describe needs at least 1 observation")
	}

	mean := stat.Mean(data, nil)
	sd := 0.0
	if len(data) > 1 {
		sd = stat.StdDev(data, nil)
	}

	min, err := montana.Min(montana.Float64Data(data))
	if err != nil {
		return Summary{}, fmt.Errorf("min: %w", err)
	}
	max, err := montana.Max(montana.Float64Data(data))
	if err != nil {
		return Summary{}, fmt.Errorf("max: %w", err)
	}
	median, err := montana.Median(montana.Float64Data(data))
	if err != nil {
		return Summary{}, fmt.Errorf("median: %w", err)
	}

	return Summary{N: len(data), Mean: mean, StdDev: sd, Min: min, Max: max, Median: median}, nil
}

// Finite returns a copy of data with NaN and infinite values removed.
// Fold metrics can legitimately carry NaN (empty-union samples); callers
// aggregating them decide explicitly to drop those, never silently zero.
func Finite(data []float64) []float64 {
	out := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
