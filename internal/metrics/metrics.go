// Package metrics computes segmentation quality metrics between predicted and
// ground-truth label maps. All functions are pure: no logging, no I/O, inputs
// are never mutated.
package metrics

import (
	"fmt"
	"math"

	"github.com/ferroscan/segeval/internal/labelmap"
)

// EmptyUnionPolicy controls the value of IoU and Dice when both masks are
// entirely background (empty union). The historical call sites disagreed on
// this, so it is explicit rather than implied.
type EmptyUnionPolicy int

const (
	// EmptyUnionNaN reports NaN for IoU/Dice when the union is empty. This
	// is the default: aggregation layers must see the samples as undefined
	// rather than silently counting them as perfect.
	EmptyUnionNaN EmptyUnionPolicy = iota
	// EmptyUnionPerfect treats "nothing to detect, nothing detected" as
	// perfect agreement and reports 1.0.
	EmptyUnionPerfect
)

// Result holds the metrics for one predicted/ground-truth pair. Values are in
// [0,1] or NaN where undefined. A Result is never mutated after creation.
type Result struct {
	IoU       float64 `json:"iou"`
	Dice      float64 `json:"dice"`
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`

	// Confusion counts the ratios derive from, foreground as positive.
	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	TrueNegatives  int `json:"true_negatives"`
	FalseNegatives int `json:"false_negatives"`
}

// Metric names accepted by Result.Value, in canonical order.
var MetricNames = []string{"iou", "dice", "accuracy", "precision", "recall", "f1"}

// Value returns the named metric, or false if the name is unknown.
func (r Result) Value(name string) (float64, bool) {
	switch name {
	case "iou":
		return r.IoU, true
	case "dice":
		return r.Dice, true
	case "accuracy":
		return r.Accuracy, true
	case "precision":
		return r.Precision, true
	case "recall":
		return r.Recall, true
	case "f1":
		return r.F1, true
	default:
		return 0, false
	}
}

// Calculator computes metrics under a fixed empty-union policy. The zero
// value uses EmptyUnionNaN.
type Calculator struct {
	EmptyUnion EmptyUnionPolicy
}

// NewCalculator returns a Calculator with the default NaN empty-union policy.
func NewCalculator() *Calculator {
	return &Calculator{EmptyUnion: EmptyUnionNaN}
}

// counts tallies the confusion counts in a single pass. Cells are compared
// against the named categories only; the raw codes never enter a comparison.
func (c *Calculator) counts(pred, gt *labelmap.LabelMap) (tp, fp, tn, fn int, err error) {
	if !pred.SameShape(gt) {
		return 0, 0, 0, 0, pred.ShapeErrorAgainst(gt)
	}
	pc := pred.Cells()
	gc := gt.Cells()
	for i := range pc {
		if !pc[i].Valid() {
			return 0, 0, 0, 0, &labelmap.InvalidCategoryError{Index: i, Value: pc[i]}
		}
		if !gc[i].Valid() {
			return 0, 0, 0, 0, &labelmap.InvalidCategoryError{Index: i, Value: gc[i]}
		}
		predFG := pc[i] == labelmap.Foreground
		truthFG := gc[i] == labelmap.Foreground
		switch {
		case predFG && truthFG:
			tp++
		case predFG && !truthFG:
			fp++
		case !predFG && truthFG:
			fn++
		default:
			tn++
		}
	}
	return tp, fp, tn, fn, nil
}

func (c *Calculator) emptyUnionValue() float64 {
	if c.EmptyUnion == EmptyUnionPerfect {
		return 1
	}
	return math.NaN()
}

func (c *Calculator) iouFromCounts(tp, fp, fn int) float64 {
	union := tp + fp + fn
	if union == 0 {
		return c.emptyUnionValue()
	}
	return float64(tp) / float64(union)
}

func (c *Calculator) diceFromCounts(tp, fp, fn int) float64 {
	denom := 2*tp + fp + fn
	if denom == 0 {
		return c.emptyUnionValue()
	}
	return float64(2*tp) / float64(denom)
}

func accuracyFromCounts(tp, fp, tn, fn int) float64 {
	total := tp + fp + tn + fn
	if total == 0 {
		return math.NaN()
	}
	return float64(tp+tn) / float64(total)
}

func precisionFromCounts(tp, fp int) float64 {
	if tp+fp == 0 {
		return math.NaN()
	}
	return float64(tp) / float64(tp+fp)
}

func recallFromCounts(tp, fn int) float64 {
	if tp+fn == 0 {
		return math.NaN()
	}
	return float64(tp) / float64(tp+fn)
}

func f1FromPrecisionRecall(precision, recall float64) float64 {
	if math.IsNaN(precision) || math.IsNaN(recall) {
		return math.NaN()
	}
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// All computes every metric in one pass over the pair.
func (c *Calculator) All(pred, gt *labelmap.LabelMap) (Result, error) {
	tp, fp, tn, fn, err := c.counts(pred, gt)
	if err != nil {
		return Result{}, err
	}
	precision := precisionFromCounts(tp, fp)
	recall := recallFromCounts(tp, fn)
	return Result{
		IoU:            c.iouFromCounts(tp, fp, fn),
		Dice:           c.diceFromCounts(tp, fp, fn),
		Accuracy:       accuracyFromCounts(tp, fp, tn, fn),
		Precision:      precision,
		Recall:         recall,
		F1:             f1FromPrecisionRecall(precision, recall),
		TruePositives:  tp,
		FalsePositives: fp,
		TrueNegatives:  tn,
		FalseNegatives: fn,
	}, nil
}

// IoU computes intersection over union restricted to the foreground class.
func (c *Calculator) IoU(pred, gt *labelmap.LabelMap) (float64, error) {
	tp, fp, _, fn, err := c.counts(pred, gt)
	if err != nil {
		return 0, err
	}
	return c.iouFromCounts(tp, fp, fn), nil
}

// Dice computes the Dice coefficient, 2|P∩G|/(|P|+|G|).
func (c *Calculator) Dice(pred, gt *labelmap.LabelMap) (float64, error) {
	tp, fp, _, fn, err := c.counts(pred, gt)
	if err != nil {
		return 0, err
	}
	return c.diceFromCounts(tp, fp, fn), nil
}

// Accuracy computes the fraction of cells whose categories agree, over both
// categories.
func (c *Calculator) Accuracy(pred, gt *labelmap.LabelMap) (float64, error) {
	tp, fp, tn, fn, err := c.counts(pred, gt)
	if err != nil {
		return 0, err
	}
	return accuracyFromCounts(tp, fp, tn, fn), nil
}

// Precision computes tp/(tp+fp) with foreground as the positive class.
func (c *Calculator) Precision(pred, gt *labelmap.LabelMap) (float64, error) {
	tp, fp, _, _, err := c.counts(pred, gt)
	if err != nil {
		return 0, err
	}
	return precisionFromCounts(tp, fp), nil
}

// Recall computes tp/(tp+fn) with foreground as the positive class.
func (c *Calculator) Recall(pred, gt *labelmap.LabelMap) (float64, error) {
	tp, _, _, fn, err := c.counts(pred, gt)
	if err != nil {
		return 0, err
	}
	return recallFromCounts(tp, fn), nil
}

// F1 computes the harmonic mean of precision and recall.
func (c *Calculator) F1(pred, gt *labelmap.LabelMap) (float64, error) {
	tp, fp, _, fn, err := c.counts(pred, gt)
	if err != nil {
		return 0, err
	}
	return f1FromPrecisionRecall(precisionFromCounts(tp, fp), recallFromCounts(tp, fn)), nil
}

// Batch computes metrics for each predicted/ground-truth pair, preserving
// input order. Any shape mismatch aborts the whole batch; pairs are never
// silently skipped.
func (c *Calculator) Batch(preds, gts []*labelmap.LabelMap) ([]Result, error) {
	if len(preds) != len(gts) {
		return nil, fmt.Errorf("batch length mismatch: %d predictions vs %d ground truths", len(preds), len(gts))
	}
	results := make([]Result, 0, len(preds))
	for i := range preds {
		r, err := c.All(preds[i], gts[i])
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		results = append(results, r)
	}
	return results, nil
}

// PerClass computes one-vs-rest metrics for every class of an N-class pair,
// keyed by class index.
func (c *Calculator) PerClass(pred, gt *labelmap.ClassMap) (map[int]Result, error) {
	if !pred.SameShape(gt) {
		return nil, &labelmap.ShapeError{
			WantWidth: gt.Width(), WantHeight: gt.Height(),
			GotWidth: pred.Width(), GotHeight: pred.Height(),
		}
	}
	results := make(map[int]Result, pred.NumClasses())
	for class := 0; class < pred.NumClasses(); class++ {
		predSlice, err := pred.BinarySlice(class)
		if err != nil {
			return nil, err
		}
		gtSlice, err := gt.BinarySlice(class)
		if err != nil {
			return nil, err
		}
		r, err := c.All(predSlice, gtSlice)
		if err != nil {
			return nil, fmt.Errorf("class %d: %w", class, err)
		}
		results[class] = r
	}
	return results, nil
}
