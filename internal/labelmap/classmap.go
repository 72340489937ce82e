package labelmap

import "fmt"

// ClassMap is an N-class variant of LabelMap used by the severity classifier:
// each cell holds a class index in [0, NumClasses). Binary segmentation
// metrics are obtained per class through BinarySlice (one-vs-rest).
type ClassMap struct {
	width      int
	height     int
	numClasses int
	cells      []int
}

// NewClassMap builds an N-class map from explicit class indices.
func NewClassMap(width, height, numClasses int, cells []int) (*ClassMap, error) {
	if numClasses < 2 {
		return nil, fmt.Errorf("numClasses must be at least 2, got %d", numClasses)
	}
	if width < 0 || height < 0 || len(cells) != width*height {
		return nil, fmt.Errorf("cell count %d does not match dimensions %dx%d", len(cells), width, height)
	}
	for i, c := range cells {
		if c < 0 || c >= numClasses {
			return nil, fmt.Errorf("class index %d at cell %d out of range [0,%d)", c, i, numClasses)
		}
	}
	cm := &ClassMap{width: width, height: height, numClasses: numClasses, cells: make([]int, len(cells))}
	copy(cm.cells, cells)
	return cm, nil
}

// Width returns the number of columns.
func (cm *ClassMap) Width() int { return cm.width }

// Height returns the number of rows.
func (cm *ClassMap) Height() int { return cm.height }

// NumClasses returns the class count N.
func (cm *ClassMap) NumClasses() int { return cm.numClasses }

// At returns the class index at column x, row y.
func (cm *ClassMap) At(x, y int) int {
	if x < 0 || x >= cm.width || y < 0 || y >= cm.height {
		panic(fmt.Sprintf("labelmap: index (%d,%d) out of range %dx%d", x, y, cm.width, cm.height))
	}
	return cm.cells[y*cm.width+x]
}

// SameShape reports whether cm and other have identical dimensions and class
// counts.
func (cm *ClassMap) SameShape(other *ClassMap) bool {
	return cm.width == other.width && cm.height == other.height && cm.numClasses == other.numClasses
}

// BinarySlice reduces the map to a two-category LabelMap for one-vs-rest
// evaluation: cells equal to class become Foreground, all others Background.
func (cm *ClassMap) BinarySlice(class int) (*LabelMap, error) {
	if class < 0 || class >= cm.numClasses {
		return nil, fmt.Errorf("class %d out of range [0,%d)", class, cm.numClasses)
	}
	mask := make([]bool, len(cm.cells))
	for i, c := range cm.cells {
		mask[i] = c == class
	}
	return FromBinary(cm.width, cm.height, mask)
}
