// Package crossval partitions datasets into k folds and orchestrates
// repeated train/evaluate cycles over injected model capabilities. The
// package never touches sample data itself; it works purely with index sets
// and the caller's callbacks.
package crossval

import (
	"fmt"
	"math/rand"
	"sort"
)

// Fold is one train/validation split over dataset indices. Validation sets
// are disjoint across a partition and their union covers every index.
type Fold struct {
	Train      []int `json:"train"`
	Validation []int `json:"validation"`
}

// Strategy selects how KFolds assigns indices to folds.
type Strategy string

const (
	// StrategyRandom shuffles indices uniformly before dealing them out.
	StrategyRandom Strategy = "random"
	// StrategyStratified preserves each label's proportion per fold to
	// within one sample. Requires FoldOptions.Labels.
	StrategyStratified Strategy = "stratified"
)

// FoldOptions configures KFolds. The zero value is a random partition with
// seed 0; identical options and dataset size always reproduce the same folds.
type FoldOptions struct {
	Strategy Strategy
	Labels   []int // per-sample class labels, required for StrategyStratified
	Seed     int64
}

// InvalidFoldCountError reports a fold count outside [2, datasetSize].
type InvalidFoldCountError struct {
	K           int
	DatasetSize int
}

func (e *InvalidFoldCountError) Error() string {
	return fmt.Sprintf("invalid fold count %d for dataset of %d samples (need 2 <= k <= size)", e.K, e.DatasetSize)
}

// KFolds partitions [0, datasetSize) into k folds.
func KFolds(datasetSize, k int, opts FoldOptions) ([]Fold, error) {
	if k < 2 || k > datasetSize {
		return nil, &InvalidFoldCountError{K: k, DatasetSize: datasetSize}
	}

	var validation [][]int
	switch opts.Strategy {
	case StrategyStratified:
		if len(opts.Labels) != datasetSize {
			return nil, fmt.Errorf("stratified folds need %d labels, got %d", datasetSize, len(opts.Labels))
		}
		validation = stratifiedValidationSets(datasetSize, k, opts.Labels, opts.Seed)
	case StrategyRandom, "":
		validation = randomValidationSets(datasetSize, k, opts.Seed)
	default:
		return nil, fmt.Errorf("unknown fold strategy %q", opts.Strategy)
	}

	folds := make([]Fold, k)
	inValidation := make([]int, datasetSize) // index -> fold holding it for validation
	for f, set := range validation {
		for _, idx := range set {
			inValidation[idx] = f
		}
	}
	for f := range folds {
		sort.Ints(validation[f])
		train := make([]int, 0, datasetSize-len(validation[f]))
		for idx := 0; idx < datasetSize; idx++ {
			if inValidation[idx] != f {
				train = append(train, idx)
			}
		}
		folds[f] = Fold{Train: train, Validation: validation[f]}
	}
	return folds, nil
}

func randomValidationSets(n, k int, seed int64) [][]int {
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)

	sets := make([][]int, k)
	base, extra := n/k, n%k
	pos := 0
	for f := 0; f < k; f++ {
		size := base
		if f < extra {
			size++
		}
		sets[f] = append([]int(nil), perm[pos:pos+size]...)
		pos += size
	}
	return sets
}

func stratifiedValidationSets(n, k int, labels []int, seed int64) [][]int {
	rng := rand.New(rand.NewSource(seed))

	// Group indices by label, iterating labels in a stable order.
	byLabel := make(map[int][]int)
	var order []int
	for idx, label := range labels {
		if _, seen := byLabel[label]; !seen {
			order = append(order, label)
		}
		byLabel[label] = append(byLabel[label], idx)
	}
	sort.Ints(order)

	// Deal each class round-robin from a cursor that carries across
	// classes, so every class lands within one sample per fold and the
	// remainders do not pile up on fold zero.
	sets := make([][]int, k)
	cursor := 0
	for _, label := range order {
		group := byLabel[label]
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
		for _, idx := range group {
			sets[cursor%k] = append(sets[cursor%k], idx)
			cursor++
		}
	}
	return sets
}
