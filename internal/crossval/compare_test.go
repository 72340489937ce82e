package crossval

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferroscan/segeval/internal/metrics"
)

// scoredModel carries the candidate's base score through train to eval.
type scoredModel struct {
	base float64
}

func scoredTrain(base float64) TrainFunc {
	return func(ctx context.Context, _ []int) (Model, error) {
		return &scoredModel{base: base}, nil
	}
}

// scoredEval perturbs the model's base score deterministically per fold so
// the paired test sees matched, non-constant samples.
func scoredEval(ctx context.Context, model Model, validation []int) (metrics.Result, error) {
	m := model.(*scoredModel)
	jitter := float64(validation[0]%7) / 100
	v := m.base + jitter
	return metrics.Result{IoU: v, Dice: v, Accuracy: v}, nil
}

func quietOptions() CompareOptions {
	return CompareOptions{RunOptions: RunOptions{Logf: func(string, ...any) {}}}
}

func TestCompareModelsPicksBest(t *testing.T) {
	candidates := []Candidate{
		{Name: "attention-unet", Train: scoredTrain(0.90)},
		{Name: "unet", Train: scoredTrain(0.80)},
	}

	mc, err := CompareModels(context.Background(), 60, candidates, scoredEval, 5, quietOptions())
	require.NoError(t, err)

	assert.Equal(t, "attention-unet", mc.Best)
	assert.Equal(t, DefaultPrimaryMetric, mc.PrimaryMetric)
	assert.Equal(t, 0, mc.FailedFolds())
	require.Len(t, mc.Models, 2)
	require.Len(t, mc.Pairwise, 1)

	pair := mc.Pairwise[0]
	assert.Equal(t, "attention-unet", pair.Best)
	assert.True(t, pair.Test.Significant, "a 0.10 gap with tiny jitter should be significant")
	assert.Greater(t, mc.Models[0].Mean, mc.Models[1].Mean)
}

func TestCompareModelsSharedPartition(t *testing.T) {
	// Every candidate must see the identical fold partition.
	var mu sync.Mutex
	trainSets := map[string][][]int{}
	record := func(name string, base float64) TrainFunc {
		return func(ctx context.Context, train []int) (Model, error) {
			mu.Lock()
			trainSets[name] = append(trainSets[name], append([]int(nil), train...))
			mu.Unlock()
			return &scoredModel{base: base}, nil
		}
	}

	candidates := []Candidate{
		{Name: "a", Train: record("a", 0.9)},
		{Name: "b", Train: record("b", 0.7)},
		{Name: "c", Train: record("c", 0.8)},
	}
	mc, err := CompareModels(context.Background(), 40, candidates, scoredEval, 4, quietOptions())
	require.NoError(t, err)

	if diff := cmp.Diff(trainSets["a"], trainSets["b"]); diff != "" {
		t.Errorf("candidates a and b saw different folds:\n%s", diff)
	}
	if diff := cmp.Diff(trainSets["a"], trainSets["c"]); diff != "" {
		t.Errorf("candidates a and c saw different folds:\n%s", diff)
	}
	assert.Equal(t, "a", mc.Best)
	assert.Len(t, mc.Pairwise, 3, "three candidates give three pairs")
}

func TestCompareModelsPrimaryMetricOverride(t *testing.T) {
	// Model a wins on IoU, model b wins on accuracy.
	evalSplit := func(ctx context.Context, model Model, validation []int) (metrics.Result, error) {
		m := model.(*scoredModel)
		jitter := float64(validation[0]%5) / 100
		return metrics.Result{
			IoU:      m.base + jitter,
			Accuracy: 1.6 - m.base + jitter,
		}, nil
	}
	candidates := []Candidate{
		{Name: "a", Train: scoredTrain(0.9)},
		{Name: "b", Train: scoredTrain(0.7)},
	}

	opts := quietOptions()
	mc, err := CompareModels(context.Background(), 40, candidates, evalSplit, 4, opts)
	require.NoError(t, err)
	assert.Equal(t, "a", mc.Best)

	opts.PrimaryMetric = "accuracy"
	mc, err = CompareModels(context.Background(), 40, candidates, evalSplit, 4, opts)
	require.NoError(t, err)
	assert.Equal(t, "b", mc.Best)
}

func TestCompareModelsValidation(t *testing.T) {
	eval := scoredEval
	one := []Candidate{{Name: "only", Train: scoredTrain(0.5)}}
	if _, err := CompareModels(context.Background(), 20, one, eval, 4, quietOptions()); err == nil {
		t.Error("expected error for fewer than two candidates")
	}

	dup := []Candidate{
		{Name: "same", Train: scoredTrain(0.5)},
		{Name: "same", Train: scoredTrain(0.6)},
	}
	if _, err := CompareModels(context.Background(), 20, dup, eval, 4, quietOptions()); err == nil {
		t.Error("expected error for duplicate candidate names")
	}

	unnamed := []Candidate{
		{Name: "", Train: scoredTrain(0.5)},
		{Name: "b", Train: scoredTrain(0.6)},
	}
	if _, err := CompareModels(context.Background(), 20, unnamed, eval, 4, quietOptions()); err == nil {
		t.Error("expected error for unnamed candidate")
	}

	if _, err := CompareModels(context.Background(), 20, []Candidate{
		{Name: "a", Train: scoredTrain(0.5)},
		{Name: "b", Train: scoredTrain(0.6)},
	}, eval, 4, CompareOptions{PrimaryMetric: "mcc", RunOptions: RunOptions{Logf: func(string, ...any) {}}}); err == nil {
		t.Error("expected error for unknown primary metric")
	}
}
