package metrics

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferroscan/segeval/internal/labelmap"
	"github.com/ferroscan/segeval/internal/testutil"
)

func TestPerfectAgreement(t *testing.T) {
	pred := testutil.MustLabelMap(t, `
		##..
		##..
		....
	`)
	gt := testutil.MustLabelMap(t, `
		##..
		##..
		....
	`)

	r, err := NewCalculator().All(pred, gt)
	require.NoError(t, err)

	assert.Equal(t, 1.0, r.IoU)
	assert.Equal(t, 1.0, r.Dice)
	assert.Equal(t, 1.0, r.Accuracy)
	assert.Equal(t, 1.0, r.Precision)
	assert.Equal(t, 1.0, r.Recall)
	assert.Equal(t, 1.0, r.F1)
	assert.Equal(t, 4, r.TruePositives)
	assert.Equal(t, 8, r.TrueNegatives)
}

func TestDisjointForegrounds(t *testing.T) {
	pred := testutil.MustLabelMap(t, `
		##..
		....
	`)
	gt := testutil.MustLabelMap(t, `
		..##
		....
	`)

	r, err := NewCalculator().All(pred, gt)
	require.NoError(t, err)

	assert.Equal(t, 0.0, r.IoU)
	assert.Equal(t, 0.0, r.Dice)
	assert.Equal(t, 0.5, r.Accuracy)
}

// The all-foreground prediction against a half-foreground truth is the
// reference scenario: IoU 0.5, Dice 2/3, accuracy 0.5.
func TestHalfOverlapScenario(t *testing.T) {
	pred := testutil.UniformLabelMap(t, 10, 10, labelmap.Foreground)

	cells := make([]labelmap.Category, 100)
	for i := 0; i < 50; i++ { // top five rows
		cells[i] = labelmap.Foreground
	}
	gt, err := labelmap.FromCells(10, 10, cells)
	require.NoError(t, err)

	r, err := NewCalculator().All(pred, gt)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, r.IoU, 1e-12)
	assert.InDelta(t, 2.0/3.0, r.Dice, 1e-12)
	assert.InDelta(t, 0.5, r.Accuracy, 1e-12)
	assert.InDelta(t, 0.5, r.Precision, 1e-12)
	assert.InDelta(t, 1.0, r.Recall, 1e-12)
	assert.InDelta(t, 2.0/3.0, r.F1, 1e-12)
}

func TestEmptyUnionPolicy(t *testing.T) {
	pred := testutil.UniformLabelMap(t, 4, 4, labelmap.Background)
	gt := testutil.UniformLabelMap(t, 4, 4, labelmap.Background)

	t.Run("default NaN policy", func(t *testing.T) {
		r, err := NewCalculator().All(pred, gt)
		require.NoError(t, err)
		assert.True(t, math.IsNaN(r.IoU), "IoU should be NaN for empty union")
		assert.True(t, math.IsNaN(r.Dice), "Dice should be NaN for empty union")
		assert.Equal(t, 1.0, r.Accuracy, "accuracy is still defined over all cells")
	})

	t.Run("perfect policy", func(t *testing.T) {
		calc := &Calculator{EmptyUnion: EmptyUnionPerfect}
		r, err := calc.All(pred, gt)
		require.NoError(t, err)
		assert.Equal(t, 1.0, r.IoU)
		assert.Equal(t, 1.0, r.Dice)
	})
}

func TestDiceNeverBelowIoU(t *testing.T) {
	calc := NewCalculator()
	for seed := int64(0); seed < 25; seed++ {
		pred := testutil.RandomLabelMap(t, 16, 16, 0.35, seed)
		gt := testutil.RandomLabelMap(t, 16, 16, 0.35, seed+1000)

		r, err := calc.All(pred, gt)
		require.NoError(t, err)
		if math.IsNaN(r.IoU) {
			continue
		}
		assert.GreaterOrEqual(t, r.Dice, r.IoU, "seed %d: dice %v < iou %v", seed, r.Dice, r.IoU)
	}
}

func TestShapeMismatch(t *testing.T) {
	pred := testutil.UniformLabelMap(t, 4, 4, labelmap.Foreground)
	gt := testutil.UniformLabelMap(t, 4, 5, labelmap.Foreground)

	_, err := NewCalculator().All(pred, gt)
	var se *labelmap.ShapeError
	require.ErrorAs(t, err, &se)
}

func TestIndividualMetricsMatchAll(t *testing.T) {
	calc := NewCalculator()
	pred := testutil.RandomLabelMap(t, 12, 12, 0.4, 7)
	gt := testutil.RandomLabelMap(t, 12, 12, 0.4, 8)

	all, err := calc.All(pred, gt)
	require.NoError(t, err)

	iou, err := calc.IoU(pred, gt)
	require.NoError(t, err)
	dice, err := calc.Dice(pred, gt)
	require.NoError(t, err)
	acc, err := calc.Accuracy(pred, gt)
	require.NoError(t, err)
	precision, err := calc.Precision(pred, gt)
	require.NoError(t, err)
	recall, err := calc.Recall(pred, gt)
	require.NoError(t, err)
	f1, err := calc.F1(pred, gt)
	require.NoError(t, err)

	assert.Equal(t, all.IoU, iou)
	assert.Equal(t, all.Dice, dice)
	assert.Equal(t, all.Accuracy, acc)
	assert.Equal(t, all.Precision, precision)
	assert.Equal(t, all.Recall, recall)
	assert.Equal(t, all.F1, f1)
}

func TestBatch(t *testing.T) {
	calc := NewCalculator()

	t.Run("preserves input order", func(t *testing.T) {
		a := testutil.UniformLabelMap(t, 4, 4, labelmap.Foreground)
		b := testutil.UniformLabelMap(t, 4, 4, labelmap.Background)

		// First pair agrees perfectly, second disagrees everywhere.
		results, err := calc.Batch(
			[]*labelmap.LabelMap{a, a},
			[]*labelmap.LabelMap{a, b},
		)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, 1.0, results[0].Accuracy)
		assert.Equal(t, 0.0, results[1].Accuracy)
	})

	t.Run("fails fast on shape mismatch", func(t *testing.T) {
		a := testutil.UniformLabelMap(t, 4, 4, labelmap.Foreground)
		odd := testutil.UniformLabelMap(t, 3, 4, labelmap.Foreground)

		_, err := calc.Batch(
			[]*labelmap.LabelMap{a, odd},
			[]*labelmap.LabelMap{a, a},
		)
		var se *labelmap.ShapeError
		require.ErrorAs(t, err, &se)
	})

	t.Run("rejects length mismatch", func(t *testing.T) {
		a := testutil.UniformLabelMap(t, 2, 2, labelmap.Foreground)
		_, err := calc.Batch([]*labelmap.LabelMap{a}, nil)
		require.Error(t, err)
	})
}

func TestPerClass(t *testing.T) {
	pred, err := labelmap.NewClassMap(2, 2, 4, []int{0, 1, 2, 3})
	require.NoError(t, err)
	gt, err := labelmap.NewClassMap(2, 2, 4, []int{0, 1, 3, 2})
	require.NoError(t, err)

	results, err := NewCalculator().PerClass(pred, gt)
	require.NoError(t, err)
	require.Len(t, results, 4)

	// Classes 0 and 1 match exactly; 2 and 3 are swapped.
	assert.Equal(t, 1.0, results[0].IoU)
	assert.Equal(t, 1.0, results[1].IoU)
	assert.Equal(t, 0.0, results[2].IoU)
	assert.Equal(t, 0.0, results[3].IoU)
}

func TestPerClassShapeMismatch(t *testing.T) {
	pred, err := labelmap.NewClassMap(2, 2, 3, []int{0, 1, 2, 0})
	require.NoError(t, err)
	gt, err := labelmap.NewClassMap(2, 1, 3, []int{0, 1})
	require.NoError(t, err)

	_, err = NewCalculator().PerClass(pred, gt)
	require.Error(t, err)
	assert.True(t, errors.As(err, new(*labelmap.ShapeError)))
}
