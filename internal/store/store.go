// Package store persists cross-validation runs and model comparisons to a
// local sqlite database for later report generation. The evaluation core
// never imports this package; persistence is strictly the caller's choice.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ferroscan/segeval/internal/crossval"
	"github.com/ferroscan/segeval/internal/metrics"
	"github.com/ferroscan/segeval/internal/monitoring"
	"github.com/ferroscan/segeval/internal/stats"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the sqlite connection. Open runs pending migrations.
type Store struct {
	*sql.DB
}

// Open opens (or creates) the database at path and applies pending
// migrations. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	s := &Store{db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("prepare migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("prepare migrations: %w", err)
	}
	// Note: not closing m here because it would close the underlying DB
	// connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// RunMeta carries the partition parameters a saved run was produced with.
type RunMeta struct {
	Model       string
	DatasetSize int
	K           int
	Seed        int64
	Strategy    crossval.Strategy
}

// RunRecord is a persisted run with its per-fold metrics.
type RunRecord struct {
	ID          string
	Model       string
	DatasetSize int
	K           int
	Seed        int64
	Strategy    string
	FailedFolds int
	Elapsed     time.Duration
	CreatedAt   time.Time
	Folds       []FoldRecord
}

// FoldRecord is one persisted fold outcome.
type FoldRecord struct {
	FoldIndex int
	Result    metrics.Result
	Duration  time.Duration
	Failed    bool
	Error     string
}

// SaveRun persists a run and its fold outcomes in one transaction, returning
// the generated run id. NaN metric values are stored as NULL and restored as
// NaN on read.
func (s *Store) SaveRun(ctx context.Context, meta RunMeta, run *crossval.RunResult) (string, error) {
	if meta.Model == "" {
		return "", fmt.Errorf("run must name its model")
	}
	strategy := meta.Strategy
	if strategy == "" {
		strategy = crossval.StrategyRandom
	}

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, model, dataset_size, k, seed, strategy, failed_folds, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, meta.Model, meta.DatasetSize, meta.K, meta.Seed, string(strategy),
		run.FailedFolds, run.Elapsed.Milliseconds())
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for _, o := range run.Outcomes {
		errText := sql.NullString{}
		if o.Err != nil {
			errText = sql.NullString{String: o.Err.Error(), Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO fold_metrics (run_id, fold_index, iou, dice, accuracy, precision, recall, f1, duration_ms, failed, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, o.Index,
			nullIfNaN(o.Result.IoU), nullIfNaN(o.Result.Dice), nullIfNaN(o.Result.Accuracy),
			nullIfNaN(o.Result.Precision), nullIfNaN(o.Result.Recall), nullIfNaN(o.Result.F1),
			o.Duration.Milliseconds(), boolToInt(o.Failed()), errText)
		if err != nil {
			return "", fmt.Errorf("insert fold %d: %w", o.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	monitoring.Logf("store: saved run %s for model %s (%d folds, %d failed)",
		id, meta.Model, len(run.Outcomes), run.FailedFolds)
	return id, nil
}

// GetRun loads one run with its fold metrics, ordered by fold index.
func (s *Store) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	rec := &RunRecord{}
	var elapsedMS int64
	err := s.QueryRowContext(ctx, `
		SELECT id, model, dataset_size, k, seed, strategy, failed_folds, elapsed_ms, created_at
		FROM runs WHERE id = ?`, id).Scan(
		&rec.ID, &rec.Model, &rec.DatasetSize, &rec.K, &rec.Seed, &rec.Strategy,
		&rec.FailedFolds, &elapsedMS, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond

	rows, err := s.QueryContext(ctx, `
		SELECT fold_index, iou, dice, accuracy, precision, recall, f1, duration_ms, failed, error
		FROM fold_metrics WHERE run_id = ? ORDER BY fold_index`, id)
	if err != nil {
		return nil, fmt.Errorf("get fold metrics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f FoldRecord
		var iou, dice, acc, prec, rec2, f1 sql.NullFloat64
		var durationMS int64
		var failed int
		var errText sql.NullString
		if err := rows.Scan(&f.FoldIndex, &iou, &dice, &acc, &prec, &rec2, &f1, &durationMS, &failed, &errText); err != nil {
			return nil, fmt.Errorf("scan fold metrics: %w", err)
		}
		f.Result = metrics.Result{
			IoU:       nanIfNull(iou),
			Dice:      nanIfNull(dice),
			Accuracy:  nanIfNull(acc),
			Precision: nanIfNull(prec),
			Recall:    nanIfNull(rec2),
			F1:        nanIfNull(f1),
		}
		f.Duration = time.Duration(durationMS) * time.Millisecond
		f.Failed = failed != 0
		f.Error = errText.String
		rec.Folds = append(rec.Folds, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fold metrics: %w", err)
	}
	return rec, nil
}

// ListRuns returns run headers (no folds) for a model, newest first. An
// empty model lists every run.
func (s *Store) ListRuns(ctx context.Context, model string) ([]RunRecord, error) {
	query := `SELECT id, model, dataset_size, k, seed, strategy, failed_folds, elapsed_ms, created_at
		FROM runs`
	args := []any{}
	if model != "" {
		query += ` WHERE model = ?`
		args = append(args, model)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var elapsedMS int64
		if err := rows.Scan(&rec.ID, &rec.Model, &rec.DatasetSize, &rec.K, &rec.Seed,
			&rec.Strategy, &rec.FailedFolds, &elapsedMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ComparisonRecord is a persisted two-model comparison.
type ComparisonRecord struct {
	ID             string
	ModelA         string
	ModelB         string
	Metric         string
	PValue         float64
	EffectSize     float64
	Magnitude      string
	Significant    bool
	Best           string
	Interpretation string
	CreatedAt      time.Time
}

// SaveComparison persists the outcome of a stats comparison on the named
// metric, returning the generated id.
func (s *Store) SaveComparison(ctx context.Context, metric string, c *stats.Comparison) (string, error) {
	id := uuid.NewString()
	_, err := s.ExecContext(ctx, `
		INSERT INTO comparisons (id, model_a, model_b, metric, p_value, effect_size, magnitude, significant, best, interpretation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, c.A.Name, c.B.Name, metric, c.Test.PValue, c.EffectSize,
		string(c.Magnitude), boolToInt(c.Test.Significant), c.Best, c.Interpretation)
	if err != nil {
		return "", fmt.Errorf("insert comparison: %w", err)
	}
	return id, nil
}

// ListComparisons returns all persisted comparisons, newest first.
func (s *Store) ListComparisons(ctx context.Context) ([]ComparisonRecord, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT id, model_a, model_b, metric, p_value, effect_size, magnitude, significant, best, interpretation, created_at
		FROM comparisons ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list comparisons: %w", err)
	}
	defer rows.Close()

	var records []ComparisonRecord
	for rows.Next() {
		var rec ComparisonRecord
		var significant int
		if err := rows.Scan(&rec.ID, &rec.ModelA, &rec.ModelB, &rec.Metric, &rec.PValue,
			&rec.EffectSize, &rec.Magnitude, &significant, &rec.Best, &rec.Interpretation,
			&rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comparison: %w", err)
		}
		rec.Significant = significant != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

func nullIfNaN(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func nanIfNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
