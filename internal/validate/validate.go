// Package validate sanity-checks computed metrics and label maps against the
// known corruption signatures of the categorical-encoding bug class. Findings
// are advisory: they are returned (and logged) for human review and never
// block computation.
package validate

import (
	"fmt"
	"math"

	"github.com/ferroscan/segeval/internal/labelmap"
	"github.com/ferroscan/segeval/internal/metrics"
	"github.com/ferroscan/segeval/internal/monitoring"
)

// Check names used in findings.
const (
	CheckPerfectMetrics       = "perfect-metric-suspected"
	CheckCategoricalStructure = "categorical-structure-invalid"
	CheckClassAbsent          = "class-absent"
	CheckMetricRange          = "metric-out-of-range"
	CheckDiceIoUInversion     = "dice-iou-inversion"
)

// DefaultPerfectTolerance is the distance from 1.0 within which a value
// counts as perfect for CheckPerfectMetrics.
const DefaultPerfectTolerance = 1e-4

// Finding is one validation observation, keyed by check name.
type Finding struct {
	Check   string `json:"check"`
	Message string `json:"message"`
}

// Report separates hard correctness findings from advisory warnings. Either
// list may be empty.
type Report struct {
	Warnings []Finding `json:"warnings,omitempty"`
	Errors   []Finding `json:"errors,omitempty"`
}

// OK reports whether the report carries no error findings. Warnings do not
// affect OK.
func (r *Report) OK() bool { return len(r.Errors) == 0 }

// Clean reports whether the report carries no findings at all.
func (r *Report) Clean() bool { return len(r.Errors) == 0 && len(r.Warnings) == 0 }

func (r *Report) warn(check, format string, v ...any) {
	r.Warnings = append(r.Warnings, Finding{Check: check, Message: fmt.Sprintf(format, v...)})
}

func (r *Report) fail(check, format string, v ...any) {
	r.Errors = append(r.Errors, Finding{Check: check, Message: fmt.Sprintf(format, v...)})
}

// Validator runs the checks. The zero value logs through monitoring.Logf;
// set Logf to redirect or mute.
type Validator struct {
	Logf func(format string, v ...any)
}

func (v *Validator) logf(format string, args ...any) {
	if v.Logf != nil {
		v.Logf(format, args...)
		return
	}
	monitoring.Logf(format, args...)
}

func (v *Validator) logFindings(r *Report) {
	for _, f := range r.Warnings {
		v.logf("validate: warning [%s]: %s", f.Check, f.Message)
	}
	for _, f := range r.Errors {
		v.logf("validate: error [%s]: %s", f.Check, f.Message)
	}
}

// CheckPerfectMetrics flags metric series where every value sits within
// tolerance of 1.0. A whole-series perfect score is the classic signature of
// the encoding bug; a single perfect sample is normal and never flagged.
// Pass tolerance <= 0 for DefaultPerfectTolerance.
func (v *Validator) CheckPerfectMetrics(iou, dice, accuracy []float64, tolerance float64) []Finding {
	if tolerance <= 0 {
		tolerance = DefaultPerfectTolerance
	}
	report := &Report{}
	series := []struct {
		name   string
		values []float64
	}{
		{"iou", iou},
		{"dice", dice},
		{"accuracy", accuracy},
	}
	for _, s := range series {
		if len(s.values) < 2 {
			continue
		}
		if allWithinOfOne(s.values, tolerance) {
			report.warn(CheckPerfectMetrics,
				"all %d %s values are within %g of 1.0; suspect categorical-encoding corruption rather than genuine performance",
				len(s.values), s.name, tolerance)
		}
	}
	v.logFindings(report)
	return report.Warnings
}

func allWithinOfOne(values []float64, tolerance float64) bool {
	for _, val := range values {
		if math.IsNaN(val) || math.Abs(1-val) > tolerance {
			return false
		}
	}
	return true
}

// ValidateCategoricalStructure checks that a label map holds only the two
// recognised categories under the canonical 0/1 encoding. An entirely absent
// category is a warning, not an error: a frame without any corrosion is
// legitimate.
func (v *Validator) ValidateCategoricalStructure(lm *labelmap.LabelMap) Report {
	report := Report{}
	counts := map[labelmap.Category]int{}
	for i, c := range lm.Cells() {
		if !c.Valid() {
			report.fail(CheckCategoricalStructure,
				"cell %d holds category code %d; only %s (0) and %s (1) are recognised",
				i, uint8(c), labelmap.Background, labelmap.Foreground)
			continue
		}
		counts[c]++
	}
	if lm.Len() > 0 {
		for _, c := range []labelmap.Category{labelmap.Background, labelmap.Foreground} {
			if counts[c] == 0 {
				report.warn(CheckClassAbsent, "category %s does not appear in the map", c)
			}
		}
	}
	v.logFindings(&report)
	return report
}

// ValidateMetrics range-checks a computed result and verifies the Dice >= IoU
// identity. An inversion is a correctness bug in the producer, reported as an
// error.
func (v *Validator) ValidateMetrics(r metrics.Result) Report {
	report := Report{}
	for _, name := range metrics.MetricNames {
		val, _ := r.Value(name)
		if math.IsNaN(val) {
			continue
		}
		if val < 0 || val > 1 {
			report.fail(CheckMetricRange, "%s = %g is outside [0,1]", name, val)
		}
	}
	if !math.IsNaN(r.IoU) && !math.IsNaN(r.Dice) && r.Dice < r.IoU-1e-12 {
		report.fail(CheckDiceIoUInversion,
			"dice (%g) is below iou (%g); this identity cannot fail for correct inputs", r.Dice, r.IoU)
	}
	v.logFindings(&report)
	return report
}
