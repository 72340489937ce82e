package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ferroscan/segeval/internal/crossval"
	"github.com/ferroscan/segeval/internal/metrics"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eval.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultEvalConfig(t *testing.T) {
	cfg := DefaultEvalConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if got := cfg.GetThreshold(); got != 0.5 {
		t.Errorf("GetThreshold() = %v, want 0.5", got)
	}
	if got := cfg.GetFolds(); got != 5 {
		t.Errorf("GetFolds() = %v, want 5", got)
	}
	if calc := cfg.Calculator(); calc.EmptyUnion != metrics.EmptyUnionNaN {
		t.Error("default empty-union policy should be NaN")
	}
}

func TestLoadEvalConfigPartial(t *testing.T) {
	path := writeConfig(t, `{"folds": 10, "fold_strategy": "stratified", "fold_timeout": "45m"}`)

	cfg, err := LoadEvalConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	if got := cfg.GetFolds(); got != 10 {
		t.Errorf("GetFolds() = %d, want 10", got)
	}
	// Omitted fields keep their defaults.
	if got := cfg.GetThreshold(); got != 0.5 {
		t.Errorf("GetThreshold() = %v, want default 0.5", got)
	}

	opts, err := cfg.RunOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Strategy != crossval.StrategyStratified {
		t.Errorf("Strategy = %q, want stratified", opts.Strategy)
	}
	if opts.FoldTimeout != 45*time.Minute {
		t.Errorf("FoldTimeout = %v, want 45m", opts.FoldTimeout)
	}
}

func TestLoadEvalConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"bad threshold", `{"threshold": 1.5}`},
		{"bad policy", `{"empty_union_policy": "zero"}`},
		{"bad folds", `{"folds": 1}`},
		{"bad strategy", `{"fold_strategy": "leave-one-out"}`},
		{"bad timeout", `{"fold_timeout": "soon"}`},
		{"bad metric", `{"primary_metric": "mcc"}`},
		{"bad alpha", `{"alpha": 0}`},
		{"bad bootstrap", `{"bootstrap_samples": 0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.contents)
			if _, err := LoadEvalConfig(path); err == nil {
				t.Errorf("expected %s to fail validation", tt.contents)
			}
		})
	}
}

func TestLoadEvalConfigRequiresJSONExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eval.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadEvalConfig(path); err == nil {
		t.Error("expected error for non-json extension")
	}
}

func TestPerfectPolicyCalculator(t *testing.T) {
	path := writeConfig(t, `{"empty_union_policy": "perfect"}`)
	cfg, err := LoadEvalConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if calc := cfg.Calculator(); calc.EmptyUnion != metrics.EmptyUnionPerfect {
		t.Error("expected perfect empty-union policy")
	}
}

func TestCompareOptions(t *testing.T) {
	path := writeConfig(t, `{"primary_metric": "dice", "alpha": 0.01}`)
	cfg, err := LoadEvalConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	opts, err := cfg.CompareOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.PrimaryMetric != "dice" {
		t.Errorf("PrimaryMetric = %q, want dice", opts.PrimaryMetric)
	}
	if opts.Alpha != 0.01 {
		t.Errorf("Alpha = %v, want 0.01", opts.Alpha)
	}
}
