package cv

import "image"

// Region is a screen rectangle in absolute coordinates.
type Region struct {
	X1, Y1, X2, Y2 int
}

// NewRegion creates a new region
func NewRegion(x1, y1, x2, y2 int) Region {
	return Region{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Width returns the width of the region
func (r Region) Width() int {
	return r.X2 - r.X1
}

// Height returns the height of the region
func (r Region) Height() int {
	return r.Y2 - r.Y1
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Contains checks if a point is within the region
func (r Region) Contains(x, y int) bool {
	return x >= r.X1 && x <= r.X2 && y >= r.Y1 && y <= r.Y2
}

// SplitHorizontal partitions the region into n equal-width sub-regions,
// left to right. Remainder pixels are absorbed by the last slot.
func (r Region) SplitHorizontal(n int) []Region {
	if n <= 0 || r.Empty() {
		return nil
	}

	slotWidth := r.Width() / n
	if slotWidth <= 0 {
		return nil
	}

	slots := make([]Region, n)
	for i := 0; i < n; i++ {
		x1 := r.X1 + i*slotWidth
		x2 := x1 + slotWidth
		if i == n-1 {
			x2 = r.X2
		}
		slots[i] = Region{X1: x1, Y1: r.Y1, X2: x2, Y2: r.Y2}
	}

	return slots
}

// ToImageRectangle converts Region to image.Rectangle for CV operations
func (r Region) ToImageRectangle() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}
