package octree

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Child octants are numbered by three bits, one per axis: bit 0 is X,
// bit 1 is Y, bit 2 is Z. A set bit means the high side of the center.
const (
	octX = 1 << iota
	octY
	octZ
)

// Bounds is an axis-aligned box given by its center and half-size.
type Bounds struct {
	Center     r3.Vec
	HalfExtent r3.Vec
}

// Cube returns a cube of the given side length around center.
func Cube(center r3.Vec, side float64) Bounds {
	h := side / 2
	return Bounds{Center: center, HalfExtent: r3.Vec{X: h, Y: h, Z: h}}
}

// Contains reports whether p lies inside b, boundary included.
func (b Bounds) Contains(p r3.Vec) bool {
	d := r3.Sub(p, b.Center)
	return math.Abs(d.X) <= b.HalfExtent.X &&
		math.Abs(d.Y) <= b.HalfExtent.Y &&
		math.Abs(d.Z) <= b.HalfExtent.Z
}

// Octant picks the child a point belongs to. Each axis is an independent
// binary decision; a coordinate equal to the center goes high.
func (b Bounds) Octant(p r3.Vec) int {
	oct := 0
	if p.X >= b.Center.X {
		oct |= octX
	}
	if p.Y >= b.Center.Y {
		oct |= octY
	}
	if p.Z >= b.Center.Z {
		oct |= octZ
	}
	return oct
}

// Child returns the bounds of one octant: half the parent's extent, offset
// by a quarter of the parent's width on each axis.
func (b Bounds) Child(oct int) Bounds {
	h := r3.Scale(0.5, b.HalfExtent)
	c := b.Center
	c.X += sign(oct&octX != 0) * h.X
	c.Y += sign(oct&octY != 0) * h.Y
	c.Z += sign(oct&octZ != 0) * h.Z
	return Bounds{Center: c, HalfExtent: h}
}

// Size is the longest full side of the box. It is the s in the s/d
// opening test.
func (b Bounds) Size() float64 {
	return 2 * math.Max(b.HalfExtent.X, math.Max(b.HalfExtent.Y, b.HalfExtent.Z))
}

// expandToFit doubles b about its center until p is inside. It returns the
// number of doublings applied.
func (b *Bounds) expandToFit(p r3.Vec) int {
	n := 0
	for !b.Contains(p) {
		b.HalfExtent = r3.Scale(2, b.HalfExtent)
		n++
	}
	return n
}

func sign(high bool) float64 {
	if high {
		return 1
	}
	return -1
}
