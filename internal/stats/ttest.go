// Package stats provides the hypothesis testing, confidence interval and
// model comparison layer consumed by cross-validation runs. Distribution
// functions come from gonum; every randomised procedure takes an explicit
// seed so results are reproducible.
package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultAlpha is the significance level used when options leave it zero.
const DefaultAlpha = 0.05

// TTestVariant selects the flavour of the two-sample t-test.
type TTestVariant int

const (
	// VariantStudent is the independent two-sample test with pooled variance.
	VariantStudent TTestVariant = iota
	// VariantWelch is the independent test without the equal-variance
	// assumption (Welch-Satterthwaite degrees of freedom).
	VariantWelch
	// VariantPaired tests the per-index differences of two matched samples.
	VariantPaired
)

func (v TTestVariant) String() string {
	switch v {
	case VariantStudent:
		return "student"
	case VariantWelch:
		return "welch"
	case VariantPaired:
		return "paired"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// TTestOptions configures TTest. Zero values select the Student variant at
// DefaultAlpha.
type TTestOptions struct {
	Variant TTestVariant
	Alpha   float64
}

// TestResult is the outcome of a two-tailed t-test.
type TestResult struct {
	Statistic        float64
	PValue           float64
	DegreesOfFreedom float64
	Alpha            float64
	Significant      bool
	Variant          TTestVariant

	// ZeroVariance marks the degenerate case where the test statistic's
	// denominator is zero. The result is then a defined sentinel rather
	// than NaN: equal means report p=1/not significant, unequal means
	// report an infinite statistic and p=0.
	ZeroVariance bool
}

// TTest runs a two-tailed t-test between samples a and b.
func TTest(a, b []float64, opts TTestOptions) (TestResult, error) {
	if opts.Alpha <= 0 || opts.Alpha >= 1 {
		opts.Alpha = DefaultAlpha
	}
	if len(a) < 2 || len(b) < 2 {
		return TestResult{}, fmt.Errorf("t-test needs at least 2 observations per sample, got %d and %d", len(a), len(b))
	}

	var statistic, df, meanDiff float64
	switch opts.Variant {
	case VariantPaired:
		if len(a) != len(b) {
			return TestResult{}, fmt.Errorf("paired t-test needs equal sample sizes, got %d and %d", len(a), len(b))
		}
		diffs := make([]float64, len(a))
		for i := range a {
			diffs[i] = a[i] - b[i]
		}
		mean, sd := stat.MeanStdDev(diffs, nil)
		n := float64(len(diffs))
		df = n - 1
		meanDiff = mean
		if sd == 0 {
			return zeroVarianceResult(meanDiff, df, opts), nil
		}
		statistic = mean / (sd / math.Sqrt(n))

	case VariantWelch:
		meanA, varA := stat.MeanVariance(a, nil)
		meanB, varB := stat.MeanVariance(b, nil)
		nA, nB := float64(len(a)), float64(len(b))
		meanDiff = meanA - meanB
		se2 := varA/nA + varB/nB
		if se2 == 0 {
			return zeroVarianceResult(meanDiff, nA+nB-2, opts), nil
		}
		statistic = meanDiff / math.Sqrt(se2)
		// Welch-Satterthwaite approximation.
		df = se2 * se2 / ((varA/nA)*(varA/nA)/(nA-1) + (varB/nB)*(varB/nB)/(nB-1))

	default: // VariantStudent
		meanA, varA := stat.MeanVariance(a, nil)
		meanB, varB := stat.MeanVariance(b, nil)
		nA, nB := float64(len(a)), float64(len(b))
		meanDiff = meanA - meanB
		df = nA + nB - 2
		pooled := ((nA-1)*varA + (nB-1)*varB) / df
		if pooled == 0 {
			return zeroVarianceResult(meanDiff, df, opts), nil
		}
		statistic = meanDiff / (math.Sqrt(pooled) * math.Sqrt(1/nA+1/nB))
	}

	p := twoTailedP(statistic, df)
	return TestResult{
		Statistic:        statistic,
		PValue:           p,
		DegreesOfFreedom: df,
		Alpha:            opts.Alpha,
		Significant:      p < opts.Alpha,
		Variant:          opts.Variant,
	}, nil
}

// zeroVarianceResult returns the defined sentinel for a zero-denominator
// test instead of propagating NaN.
func zeroVarianceResult(meanDiff, df float64, opts TTestOptions) TestResult {
	r := TestResult{
		DegreesOfFreedom: df,
		Alpha:            opts.Alpha,
		Variant:          opts.Variant,
		ZeroVariance:     true,
	}
	if meanDiff == 0 {
		r.Statistic = 0
		r.PValue = 1
		r.Significant = false
		return r
	}
	r.Statistic = math.Inf(sign(meanDiff))
	r.PValue = 0
	r.Significant = true
	return r
}

func sign(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}

func twoTailedP(statistic, df float64) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.CDF(-math.Abs(statistic))
	if p > 1 {
		p = 1
	}
	return p
}
