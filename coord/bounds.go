package coord

import "math"

// Bounds tracks the running XY extents of a set of points.
//
// The zero value is empty; the first call to Extend initializes it.
type Bounds struct {
	Min, Max Point
	valid    bool
}

// Extend grows b to include p.
func (b *Bounds) Extend(p Point) {
	if !b.valid {
		b.Min, b.Max = p, p
		b.valid = true
		return
	}
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
}

// Empty returns true if no points have been added.
func (b Bounds) Empty() bool { return !b.valid }

func (b Bounds) Width() float64  { return b.Max.X - b.Min.X }
func (b Bounds) Height() float64 { return b.Max.Y - b.Min.Y }
