package stats

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// CIMethod selects how ConfidenceInterval derives its bounds.
type CIMethod string

const (
	// CIMethodNormal uses mean +/- z * standard error.
	CIMethodNormal CIMethod = "normal"
	// CIMethodBootstrap resamples with replacement and takes the
	// percentile interval of the resampled means.
	CIMethodBootstrap CIMethod = "bootstrap"
)

// DefaultBootstrapSamples is the resample count used when options leave it
// zero.
const DefaultBootstrapSamples = 1000

// Interval is a two-sided confidence interval.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// CIOptions configures ConfidenceInterval. Zero values select the normal
// method at the 95% level.
type CIOptions struct {
	Level            float64 // confidence level in (0,1); default 0.95
	Method           CIMethod
	BootstrapSamples int   // default DefaultBootstrapSamples
	Seed             int64 // bootstrap rng seed; identical seeds reproduce intervals
}

// ConfidenceInterval computes a two-sided interval for the mean of data.
func ConfidenceInterval(data []float64, opts CIOptions) (Interval, error) {
	if len(data) < 2 {
		return Interval{}, fmt.Errorf("confidence interval needs at least 2 observations, got %d", len(data))
	}
	if opts.Level <= 0 || opts.Level >= 1 {
		opts.Level = 0.95
	}

	switch opts.Method {
	case CIMethodBootstrap:
		return bootstrapInterval(data, opts)
	case CIMethodNormal, "":
		mean, sd := stat.MeanStdDev(data, nil)
		se := sd / math.Sqrt(float64(len(data)))
		z := distuv.UnitNormal.Quantile(1 - (1-opts.Level)/2)
		return Interval{Lower: mean - z*se, Upper: mean + z*se}, nil
	default:
		return Interval{}, fmt.Errorf("unknown confidence interval method %q", opts.Method)
	}
}

func bootstrapInterval(data []float64, opts CIOptions) (Interval, error) {
	b := opts.BootstrapSamples
	if b <= 0 {
		b = DefaultBootstrapSamples
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	means := make([]float64, b)
	resample := make([]float64, len(data))
	for i := 0; i < b; i++ {
		for j := range resample {
			resample[j] = data[rng.Intn(len(data))]
		}
		means[i] = stat.Mean(resample, nil)
	}
	sort.Float64s(means)

	tail := (1 - opts.Level) / 2
	return Interval{
		Lower: stat.Quantile(tail, stat.Empirical, means, nil),
		Upper: stat.Quantile(1-tail, stat.Empirical, means, nil),
	}, nil
}
