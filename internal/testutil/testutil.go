// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/ferroscan/segeval/internal/labelmap"
)

// MustLabelMap builds a LabelMap from mask art: '#' is foreground, '.' is
// background, rows separated by newlines. Fails the test on malformed input.
//
//	testutil.MustLabelMap(t, `
//	##..
//	##..
//	`)
func MustLabelMap(t *testing.T, art string) *labelmap.LabelMap {
	t.Helper()
	rows := strings.Fields(strings.TrimSpace(art))
	if len(rows) == 0 {
		lm, err := labelmap.New(0, 0)
		if err != nil {
			t.Fatalf("empty label map: %v", err)
		}
		return lm
	}
	width := len(rows[0])
	cells := make([]labelmap.Category, 0, width*len(rows))
	for y, row := range rows {
		if len(row) != width {
			t.Fatalf("row %d has width %d, want %d", y, len(row), width)
		}
		for _, ch := range row {
			switch ch {
			case '#':
				cells = append(cells, labelmap.Foreground)
			case '.':
				cells = append(cells, labelmap.Background)
			default:
				t.Fatalf("unknown mask character %q", ch)
			}
		}
	}
	lm, err := labelmap.FromCells(width, len(rows), cells)
	if err != nil {
		t.Fatalf("building label map: %v", err)
	}
	return lm
}

// UniformLabelMap builds a width x height map with every cell set to c.
func UniformLabelMap(t *testing.T, width, height int, c labelmap.Category) *labelmap.LabelMap {
	t.Helper()
	cells := make([]labelmap.Category, width*height)
	for i := range cells {
		cells[i] = c
	}
	lm, err := labelmap.FromCells(width, height, cells)
	if err != nil {
		t.Fatalf("building uniform label map: %v", err)
	}
	return lm
}

// RandomLabelMap builds a seeded random map with the given foreground
// probability. Identical seeds yield identical maps.
func RandomLabelMap(t *testing.T, width, height int, foregroundProb float64, seed int64) *labelmap.LabelMap {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	cells := make([]labelmap.Category, width*height)
	for i := range cells {
		if rng.Float64() < foregroundProb {
			cells[i] = labelmap.Foreground
		}
	}
	lm, err := labelmap.FromCells(width, height, cells)
	if err != nil {
		t.Fatalf("building random label map: %v", err)
	}
	return lm
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
