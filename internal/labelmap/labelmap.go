// Package labelmap provides the canonical two-category label representation
// used by the evaluation pipeline and the single conversion path between
// numeric model output and categorical masks.
//
// Every categorical mask in the system must be constructed through
// FromNumeric or FromBinary so the Background=0 / Foreground=1 encoding is
// identical across every producer and consumer. Code elsewhere must test
// cells by comparing against the named category, never against raw codes.
package labelmap

import (
	"errors"
	"fmt"
)

// Category is a named per-pixel class. The numeric values are fixed and part
// of the wire contract with every consumer: Background is 0, Foreground is 1.
type Category uint8

const (
	Background Category = 0
	Foreground Category = 1
)

// DefaultThreshold is the cut applied by FromNumeric when callers pass a
// negative threshold to request the default.
const DefaultThreshold = 0.5

// Valid reports whether c is one of the two recognised categories.
func (c Category) Valid() bool {
	return c == Background || c == Foreground
}

func (c Category) String() string {
	switch c {
	case Background:
		return "background"
	case Foreground:
		return "foreground"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// CategoryFromString parses a category name as produced by String.
func CategoryFromString(s string) (Category, error) {
	switch s {
	case "background":
		return Background, nil
	case "foreground":
		return Foreground, nil
	default:
		return Background, fmt.Errorf("unknown category %q", s)
	}
}

// ErrAmbiguousEncoding is returned by FromNumeric when a grid holds exactly
// two distinct values that are not {0,1}. Such grids are almost always
// already-encoded categoricals with a foreign code scheme; guessing a mapping
// is how silently-perfect metrics happen, so the conversion refuses.
var ErrAmbiguousEncoding = errors.New("ambiguous numeric encoding: two distinct values that are not {0,1}")

// InvalidCategoryError reports a cell holding neither recognised category.
type InvalidCategoryError struct {
	Index int
	Value Category
}

func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("invalid category %d at cell %d: must be background (0) or foreground (1)", uint8(e.Value), e.Index)
}

// ShapeError reports a dimension mismatch between two grids that must align
// cell-for-cell.
type ShapeError struct {
	WantWidth, WantHeight int
	GotWidth, GotHeight   int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape mismatch: %dx%d vs %dx%d", e.GotWidth, e.GotHeight, e.WantWidth, e.WantHeight)
}

// LabelMap is a 2D grid of Category values, row-major. It is immutable after
// construction; all constructors copy their input.
type LabelMap struct {
	width  int
	height int
	cells  []Category
}

// New returns a width x height map with every cell Background.
func New(width, height int) (*LabelMap, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	return &LabelMap{width: width, height: height, cells: make([]Category, width*height)}, nil
}

// FromCells builds a map from explicit categories. Fails with
// *InvalidCategoryError if any cell is out of range.
func FromCells(width, height int, cells []Category) (*LabelMap, error) {
	if width < 0 || height < 0 || len(cells) != width*height {
		return nil, fmt.Errorf("cell count %d does not match dimensions %dx%d", len(cells), width, height)
	}
	for i, c := range cells {
		if !c.Valid() {
			return nil, &InvalidCategoryError{Index: i, Value: c}
		}
	}
	lm := &LabelMap{width: width, height: height, cells: make([]Category, len(cells))}
	copy(lm.cells, cells)
	return lm, nil
}

// FromBinary builds a map from a boolean mask: true cells become Foreground.
func FromBinary(width, height int, values []bool) (*LabelMap, error) {
	if width < 0 || height < 0 || len(values) != width*height {
		return nil, fmt.Errorf("value count %d does not match dimensions %dx%d", len(values), width, height)
	}
	lm := &LabelMap{width: width, height: height, cells: make([]Category, len(values))}
	for i, v := range values {
		if v {
			lm.cells[i] = Foreground
		}
	}
	return lm, nil
}

// FromNumeric is the canonical construction path for model output: a cell is
// Foreground iff value > threshold. Pass a negative threshold to use
// DefaultThreshold. An empty grid yields an empty map. A grid whose values
// take exactly two distinct values other than {0,1} fails with
// ErrAmbiguousEncoding rather than guessing which value means foreground.
func FromNumeric(width, height int, values []float64, threshold float64) (*LabelMap, error) {
	if width < 0 || height < 0 || len(values) != width*height {
		return nil, fmt.Errorf("value count %d does not match dimensions %dx%d", len(values), width, height)
	}
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	if err := checkEncoding(values); err != nil {
		return nil, err
	}
	lm := &LabelMap{width: width, height: height, cells: make([]Category, len(values))}
	for i, v := range values {
		if v > threshold {
			lm.cells[i] = Foreground
		}
	}
	return lm, nil
}

// checkEncoding rejects grids that look like mis-encoded categoricals: exactly
// two distinct values where at least one is outside {0,1}. Continuous score
// grids (three or more distinct values) pass through to thresholding.
func checkEncoding(values []float64) error {
	var distinct [2]float64
	n := 0
	for _, v := range values {
		switch {
		case n > 0 && v == distinct[0]:
		case n > 1 && v == distinct[1]:
		case n < 2:
			distinct[n] = v
			n++
		default:
			return nil // three or more distinct values: continuous scores
		}
	}
	if n == 2 && !(isZeroOrOne(distinct[0]) && isZeroOrOne(distinct[1])) {
		return fmt.Errorf("values {%g, %g}: %w", distinct[0], distinct[1], ErrAmbiguousEncoding)
	}
	return nil
}

func isZeroOrOne(v float64) bool { return v == 0 || v == 1 }

// Width returns the number of columns.
func (lm *LabelMap) Width() int { return lm.width }

// Height returns the number of rows.
func (lm *LabelMap) Height() int { return lm.height }

// Len returns the total cell count.
func (lm *LabelMap) Len() int { return len(lm.cells) }

// At returns the category at column x, row y. Panics on out-of-range
// coordinates, same as slice indexing.
func (lm *LabelMap) At(x, y int) Category {
	if x < 0 || x >= lm.width || y < 0 || y >= lm.height {
		panic(fmt.Sprintf("labelmap: index (%d,%d) out of range %dx%d", x, y, lm.width, lm.height))
	}
	return lm.cells[y*lm.width+x]
}

// Cells exposes the underlying row-major cell slice for read-only iteration.
// Callers must not modify it.
func (lm *LabelMap) Cells() []Category { return lm.cells }

// SameShape reports whether lm and other have identical dimensions.
func (lm *LabelMap) SameShape(other *LabelMap) bool {
	return lm.width == other.width && lm.height == other.height
}

// ShapeErrorAgainst returns a *ShapeError describing the mismatch between lm
// and other, for callers that have already established the shapes differ.
func (lm *LabelMap) ShapeErrorAgainst(other *LabelMap) error {
	return &ShapeError{
		WantWidth: other.width, WantHeight: other.height,
		GotWidth: lm.width, GotHeight: lm.height,
	}
}

// Equal reports cell-for-cell equality, including dimensions.
func (lm *LabelMap) Equal(other *LabelMap) bool {
	if !lm.SameShape(other) {
		return false
	}
	for i, c := range lm.cells {
		if c != other.cells[i] {
			return false
		}
	}
	return true
}

// ForegroundCount returns the number of Foreground cells.
func (lm *LabelMap) ForegroundCount() int {
	n := 0
	for _, c := range lm.cells {
		if c == Foreground {
			n++
		}
	}
	return n
}

// ToBinary converts to a boolean mask, true iff the cell equals Foreground.
// Any unrecognised category fails with *InvalidCategoryError.
func (lm *LabelMap) ToBinary() ([]bool, error) {
	out := make([]bool, len(lm.cells))
	for i, c := range lm.cells {
		if !c.Valid() {
			return nil, &InvalidCategoryError{Index: i, Value: c}
		}
		out[i] = c == Foreground
	}
	return out, nil
}

// ToNumeric converts to the canonical 0/1 float encoding. Unrecognised
// categories fail with *InvalidCategoryError.
func (lm *LabelMap) ToNumeric() ([]float64, error) {
	out := make([]float64, len(lm.cells))
	for i, c := range lm.cells {
		if !c.Valid() {
			return nil, &InvalidCategoryError{Index: i, Value: c}
		}
		if c == Foreground {
			out[i] = 1
		}
	}
	return out, nil
}
