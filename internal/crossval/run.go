package crossval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ferroscan/segeval/internal/metrics"
	"github.com/ferroscan/segeval/internal/monitoring"
)

// Model is an opaque trained-model handle owned by the caller. The package
// only passes it from TrainFunc to EvalFunc.
type Model any

// TrainFunc trains a model on the given train indices. The context carries
// the per-fold deadline when RunOptions.FoldTimeout is set.
type TrainFunc func(ctx context.Context, train []int) (Model, error)

// EvalFunc evaluates a trained model on the given validation indices.
type EvalFunc func(ctx context.Context, model Model, validation []int) (metrics.Result, error)

// FoldOutcome is the result of one fold's train/evaluate cycle. Err is set
// when the fold failed; Result is only meaningful when Err is nil.
type FoldOutcome struct {
	Index    int
	Fold     Fold
	Result   metrics.Result
	Duration time.Duration
	Err      error
}

// Failed reports whether this fold's cycle errored (including timeout).
func (o FoldOutcome) Failed() bool { return o.Err != nil }

// AllFoldsFailedError is returned when every fold of a run failed.
type AllFoldsFailedError struct {
	Folds int
}

func (e *AllFoldsFailedError) Error() string {
	return fmt.Sprintf("all %d folds failed", e.Folds)
}

// RunOptions configures Run. The zero value runs folds sequentially with a
// random seed-0 partition, no per-fold timeout, and the default logger.
type RunOptions struct {
	FoldOptions

	// Parallel is the maximum number of folds trained concurrently.
	// Values below 2 run sequentially. The fold partition is fixed before
	// fan-out and outcomes are keyed by fold index, never by completion
	// order.
	Parallel int

	// FoldTimeout bounds each fold's combined train+evaluate time. A
	// timeout is recorded as that fold's failure. Zero means no limit.
	FoldTimeout time.Duration

	// Logf receives per-fold failure diagnostics. Defaults to
	// monitoring.Logf.
	Logf func(format string, v ...any)
}

func (o *RunOptions) logf() func(format string, v ...any) {
	if o.Logf != nil {
		return o.Logf
	}
	return monitoring.Logf
}

// RunResult aggregates a k-fold run. Outcomes are ordered by fold index and
// include failed folds, so a partial run is never mistaken for a complete
// one.
type RunResult struct {
	Outcomes    []FoldOutcome
	FailedFolds int
	Elapsed     time.Duration
}

// MetricSeries extracts the named metric from every successful fold, in fold
// order. Unknown names return an error rather than an empty series.
func (r *RunResult) MetricSeries(name string) ([]float64, error) {
	if _, ok := (metrics.Result{}).Value(name); !ok {
		return nil, fmt.Errorf("unknown metric %q", name)
	}
	series := make([]float64, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Failed() {
			continue
		}
		v, _ := o.Result.Value(name)
		series = append(series, v)
	}
	return series, nil
}

// Run generates a k-fold partition over datasetSize samples and executes one
// train/evaluate cycle per fold. Individual fold failures are recorded and
// logged without aborting sibling folds; only a run where every fold failed
// returns *AllFoldsFailedError.
func Run(ctx context.Context, datasetSize int, train TrainFunc, eval EvalFunc, k int, opts RunOptions) (*RunResult, error) {
	folds, err := KFolds(datasetSize, k, opts.FoldOptions)
	if err != nil {
		return nil, err
	}
	return RunFolds(ctx, folds, train, eval, opts)
}

// RunFolds executes one train/evaluate cycle per pre-built fold. Callers
// comparing several models pass the same partition here so every model sees
// identical splits.
func RunFolds(ctx context.Context, folds []Fold, train TrainFunc, eval EvalFunc, opts RunOptions) (*RunResult, error) {
	if train == nil || eval == nil {
		return nil, fmt.Errorf("train and eval functions are required")
	}
	logf := opts.logf()
	started := time.Now()
	outcomes := make([]FoldOutcome, len(folds))

	workers := opts.Parallel
	if workers < 2 {
		for i, fold := range folds {
			outcomes[i] = runFold(ctx, i, fold, train, eval, opts.FoldTimeout)
		}
	} else {
		if workers > len(folds) {
			workers = len(folds)
		}
		var wg sync.WaitGroup
		sem := make(chan struct{}, workers)
		for i, fold := range folds {
			wg.Add(1)
			go func(i int, fold Fold) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				outcomes[i] = runFold(ctx, i, fold, train, eval, opts.FoldTimeout)
			}(i, fold)
		}
		wg.Wait()
	}

	failed := 0
	for _, o := range outcomes {
		if o.Failed() {
			failed++
			logf("crossval: fold %d failed after %v: %v", o.Index, o.Duration.Round(time.Millisecond), o.Err)
		}
	}
	if failed == len(folds) {
		return nil, &AllFoldsFailedError{Folds: len(folds)}
	}

	return &RunResult{
		Outcomes:    outcomes,
		FailedFolds: failed,
		Elapsed:     time.Since(started),
	}, nil
}

func runFold(ctx context.Context, index int, fold Fold, train TrainFunc, eval EvalFunc, timeout time.Duration) FoldOutcome {
	foldCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		foldCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	started := time.Now()
	outcome := FoldOutcome{Index: index, Fold: fold}

	model, err := train(foldCtx, fold.Train)
	if err == nil {
		if ctxErr := foldCtx.Err(); ctxErr != nil {
			err = ctxErr
		}
	}
	if err != nil {
		outcome.Err = fmt.Errorf("train: %w", err)
		outcome.Duration = time.Since(started)
		return outcome
	}

	result, err := eval(foldCtx, model, fold.Validation)
	if err == nil {
		if ctxErr := foldCtx.Err(); ctxErr != nil {
			err = ctxErr
		}
	}
	if err != nil {
		outcome.Err = fmt.Errorf("evaluate: %w", err)
	} else {
		outcome.Result = result
	}
	outcome.Duration = time.Since(started)
	return outcome
}
