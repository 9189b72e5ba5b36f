package dynamo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Body is a point mass owned by the simulation loop. The engine only reads
// ID, Position and Mass. IDs must be unique within one rebuild; the index
// rejects every repeat after the first.
type Body struct {
	ID       int
	Position r3.Vec
	Velocity r3.Vec
	Mass     float64
}

// Validate reports ErrInvalidBody for positions that are not finite and for
// masses that are not finite and positive.
func (b Body) Validate() error {
	if !finiteVec(b.Position) {
		return fmt.Errorf("%w: id %d: non-finite position %v", ErrInvalidBody, b.ID, b.Position)
	}
	if math.IsNaN(b.Mass) || math.IsInf(b.Mass, 0) || b.Mass <= 0 {
		return fmt.Errorf("%w: id %d: mass %g", ErrInvalidBody, b.ID, b.Mass)
	}
	return nil
}

func finiteVec(v r3.Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// PackState lays out bodies as [x0 y0 z0 x1 ... | vx0 vy0 vz0 vx1 ...].
func PackState(bodies []Body) State {
	n := len(bodies)
	x := make(State, n*6)
	half := n * 3
	for i, b := range bodies {
		x[i*3], x[i*3+1], x[i*3+2] = b.Position.X, b.Position.Y, b.Position.Z
		x[half+i*3], x[half+i*3+1], x[half+i*3+2] = b.Velocity.X, b.Velocity.Y, b.Velocity.Z
	}
	return x
}

// UnpackState writes positions and velocities from x back into bodies.
// IDs and masses are left untouched.
func UnpackState(x State, bodies []Body) error {
	n := len(bodies)
	if len(x) != n*6 {
		return fmt.Errorf("%w: state has %d values for %d bodies", ErrDimensionMismatch, len(x), n)
	}
	half := n * 3
	for i := range bodies {
		bodies[i].Position = r3.Vec{X: x[i*3], Y: x[i*3+1], Z: x[i*3+2]}
		bodies[i].Velocity = r3.Vec{X: x[half+i*3], Y: x[half+i*3+1], Z: x[half+i*3+2]}
	}
	return nil
}

// TotalMass sums body masses.
func TotalMass(bodies []Body) float64 {
	m := 0.0
	for _, b := range bodies {
		m += b.Mass
	}
	return m
}

// CenterOfMass returns the mass-weighted mean position, or the zero vector
// for an empty or massless set.
func CenterOfMass(bodies []Body) r3.Vec {
	var sum r3.Vec
	m := 0.0
	for _, b := range bodies {
		sum = r3.Add(sum, r3.Scale(b.Mass, b.Position))
		m += b.Mass
	}
	if m == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/m, sum)
}
