package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// EffectMagnitude is the qualitative size of a Cohen's d value. Cutoffs
// follow the usual Cohen conventions and are explicit in ClassifyEffectSize.
type EffectMagnitude string

const (
	EffectNegligible EffectMagnitude = "negligible"
	EffectSmall      EffectMagnitude = "small"
	EffectMedium     EffectMagnitude = "medium"
	EffectLarge      EffectMagnitude = "large"
)

// CohenD computes the standardised mean difference (meanA-meanB)/pooledStd.
// Returns 0 when both samples have zero variance.
func CohenD(a, b []float64) float64 {
	meanA, varA := stat.MeanVariance(a, nil)
	meanB, varB := stat.MeanVariance(b, nil)
	nA, nB := float64(len(a)), float64(len(b))
	pooled := ((nA-1)*varA + (nB-1)*varB) / (nA + nB - 2)
	if pooled == 0 {
		if meanA == meanB {
			return 0
		}
		return math.Inf(sign(meanA - meanB))
	}
	return (meanA - meanB) / math.Sqrt(pooled)
}

// ClassifyEffectSize maps |d| to a magnitude: <0.2 negligible, <0.5 small,
// <0.8 medium, otherwise large.
func ClassifyEffectSize(d float64) EffectMagnitude {
	switch abs := math.Abs(d); {
	case abs < 0.2:
		return EffectNegligible
	case abs < 0.5:
		return EffectSmall
	case abs < 0.8:
		return EffectMedium
	default:
		return EffectLarge
	}
}

// SampleSummary describes one model's metric sample within a comparison.
type SampleSummary struct {
	Name   string   `json:"name"`
	N      int      `json:"n"`
	Mean   float64  `json:"mean"`
	StdDev float64  `json:"std_dev"`
	CI     Interval `json:"ci"`
}

// Comparison is the immutable outcome of comparing two models' metric
// samples.
type Comparison struct {
	A SampleSummary `json:"a"`
	B SampleSummary `json:"b"`

	Test           TestResult      `json:"test"`
	EffectSize     float64         `json:"effect_size"`
	Magnitude      EffectMagnitude `json:"magnitude"`
	Best           string          `json:"best"`
	Interpretation string          `json:"interpretation"`
}

// CompareOptions configures CompareModels. Zero values run an unpaired
// Student test at DefaultAlpha with 95% normal intervals.
type CompareOptions struct {
	Paired  bool
	Alpha   float64
	CILevel float64
	CISeed  int64
}

// CompareModels runs the full two-model comparison: t-test, Cohen's d,
// per-sample summaries and the deterministic interpretation text. The
// higher-mean model is designated best regardless of significance; the
// interpretation states whether the difference is significant.
func CompareModels(nameA string, a []float64, nameB string, b []float64, opts CompareOptions) (*Comparison, error) {
	if nameA == "" || nameB == "" {
		return nil, fmt.Errorf("both models must be named")
	}

	variant := VariantStudent
	if opts.Paired {
		variant = VariantPaired
	}
	test, err := TTest(a, b, TTestOptions{Variant: variant, Alpha: opts.Alpha})
	if err != nil {
		return nil, fmt.Errorf("comparing %s and %s: %w", nameA, nameB, err)
	}

	ciOpts := CIOptions{Level: opts.CILevel, Seed: opts.CISeed}
	summaryA, err := summarise(nameA, a, ciOpts)
	if err != nil {
		return nil, err
	}
	summaryB, err := summarise(nameB, b, ciOpts)
	if err != nil {
		return nil, err
	}

	d := CohenD(a, b)
	comparison := &Comparison{
		A:          summaryA,
		B:          summaryB,
		Test:       test,
		EffectSize: d,
		Magnitude:  ClassifyEffectSize(d),
		Best:       nameA,
	}
	if summaryB.Mean > summaryA.Mean {
		comparison.Best = nameB
	}
	comparison.Interpretation = Interpret(comparison)
	return comparison, nil
}

func summarise(name string, data []float64, ciOpts CIOptions) (SampleSummary, error) {
	ci, err := ConfidenceInterval(data, ciOpts)
	if err != nil {
		return SampleSummary{}, fmt.Errorf("summarising %s: %w", name, err)
	}
	mean, sd := stat.MeanStdDev(data, nil)
	return SampleSummary{Name: name, N: len(data), Mean: mean, StdDev: sd, CI: ci}, nil
}

// Interpret renders a deterministic natural-language summary of a
// comparison. Identical inputs always produce identical text.
func Interpret(c *Comparison) string {
	better, worse := c.A, c.B
	if c.Best == c.B.Name {
		better, worse = c.B, c.A
	}

	significance := "not statistically significant"
	if c.Test.Significant {
		significance = "statistically significant"
	}

	if better.Mean == worse.Mean {
		return fmt.Sprintf(
			"%s and %s performed identically (mean %.4f); the difference is %s at alpha=%.2f (p=%.4f).",
			c.A.Name, c.B.Name, better.Mean, significance, c.Test.Alpha, c.Test.PValue,
		)
	}
	return fmt.Sprintf(
		"%s (mean %.4f) outperformed %s (mean %.4f); the difference is %s at alpha=%.2f (p=%.4f) with a %s effect size (d=%.2f).",
		better.Name, better.Mean, worse.Name, worse.Mean,
		significance, c.Test.Alpha, c.Test.PValue,
		c.Magnitude, c.EffectSize,
	)
}
