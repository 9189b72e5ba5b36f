package physics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/octgrav/internal/dynamo"
	"github.com/san-kum/octgrav/internal/octree"
)

const (
	DefaultTheta = 0.5

	// degenerateDistance is the separation below which a pairing
	// contributes nothing instead of dividing by ~zero.
	degenerateDistance = 1e-12

	// minParallelChunk keeps small body sets on one goroutine.
	minParallelChunk = 64
)

// Evaluator walks a built octree to approximate the gravitational force on
// a body. It holds no mutable state, so one value can serve many
// goroutines walking the same tree.
type Evaluator struct {
	// Theta is the opening threshold: an internal node is treated as a
	// point mass when size/distance < Theta. Zero forces an exact walk.
	Theta float64
	G     float64
	// MaxForce caps the magnitude of each pairwise contribution.
	// Zero disables the cap.
	MaxForce float64
	// Softening is the Plummer length added in quadrature to r.
	Softening float64
}

func NewEvaluator(theta, g float64) Evaluator {
	return Evaluator{Theta: theta, G: g}
}

// ComputeForce returns the net force on target from every body in the
// tree except target itself (matched by ID).
func (e Evaluator) ComputeForce(t *octree.Tree, target octree.Occupant) r3.Vec {
	return e.force(t, t.Root(), target)
}

func (e Evaluator) force(t *octree.Tree, h octree.Handle, target octree.Occupant) r3.Vec {
	n := t.Node(h)
	if n.Mass == 0 {
		return r3.Vec{}
	}

	if n.IsLeaf() {
		var f r3.Vec
		for _, o := range n.Occupants() {
			if o.ID == target.ID {
				continue
			}
			f = r3.Add(f, e.pair(target, o.Position, o.Mass))
		}
		return f
	}

	if e.accept(n, target.Position) {
		return e.pair(target, n.CenterOfMass, n.Mass)
	}

	var f r3.Vec
	for oct := 0; oct < 8; oct++ {
		f = r3.Add(f, e.force(t, n.Child(oct), target))
	}
	return f
}

// accept applies the Barnes-Hut criterion to an internal node. A node whose
// region holds the target is always opened: accepting it would fold the
// target's own mass into the aggregate.
func (e Evaluator) accept(n *octree.Node, p r3.Vec) bool {
	if n.Bounds.Contains(p) {
		return false
	}
	d := r3.Norm(r3.Sub(n.CenterOfMass, p))
	return n.Bounds.Size() < e.Theta*d
}

// pair is the force on target from a point mass at pos.
func (e Evaluator) pair(target octree.Occupant, pos r3.Vec, mass float64) r3.Vec {
	dir := r3.Sub(pos, target.Position)
	r2 := r3.Norm2(dir)
	r := math.Sqrt(r2)
	if r <= degenerateDistance {
		return r3.Vec{}
	}

	mag := plummerForce(e.G*mass*target.Mass, r, r2+e.Softening*e.Softening)
	if e.MaxForce > 0 && mag > e.MaxForce {
		mag = e.MaxForce
	}
	return r3.Scale(mag/r, dir)
}

// Potential returns the tree-approximated potential energy of target,
// -G*m*M/r summed over the same nodes ComputeForce would use.
func (e Evaluator) Potential(t *octree.Tree, target octree.Occupant) float64 {
	return e.potential(t, t.Root(), target)
}

func (e Evaluator) potential(t *octree.Tree, h octree.Handle, target octree.Occupant) float64 {
	n := t.Node(h)
	if n.Mass == 0 {
		return 0
	}

	if n.IsLeaf() {
		u := 0.0
		for _, o := range n.Occupants() {
			if o.ID == target.ID {
				continue
			}
			u += e.pairPotential(target, o.Position, o.Mass)
		}
		return u
	}

	if e.accept(n, target.Position) {
		return e.pairPotential(target, n.CenterOfMass, n.Mass)
	}

	u := 0.0
	for oct := 0; oct < 8; oct++ {
		u += e.potential(t, n.Child(oct), target)
	}
	return u
}

// plummerForce is the magnitude of -dU/dr for U = -gmm/sqrt(r^2+eps^2),
// given soft2 = r^2+eps^2. With zero softening it reduces to gmm/r^2.
func plummerForce(gmm, r, soft2 float64) float64 {
	return gmm * r / (soft2 * math.Sqrt(soft2))
}

func (e Evaluator) pairPotential(target octree.Occupant, pos r3.Vec, mass float64) float64 {
	r2 := r3.Norm2(r3.Sub(pos, target.Position))
	if math.Sqrt(r2) <= degenerateDistance {
		return 0
	}
	return -e.G * mass * target.Mass / math.Sqrt(r2+e.Softening*e.Softening)
}

// ComputeAllForces writes the force on bodies[i] into out[i], walking the
// tree once per body across workers goroutines. bodies must be the set the
// tree was last rebuilt from: every body the tree rejected gets a zero
// force, just as it exerts none. The tree must not change during the call.
func (e Evaluator) ComputeAllForces(t *octree.Tree, bodies []dynamo.Body, out []r3.Vec, workers int) {
	accepted := t.Accepted()
	dynamo.ParallelFor(len(bodies), workers, minParallelChunk, func(i int) {
		if !held(accepted, i) {
			out[i] = r3.Vec{}
			return
		}
		out[i] = e.ComputeForce(t, occupant(&bodies[i]))
	})
}

func held(accepted []bool, i int) bool {
	return i < len(accepted) && accepted[i]
}

func occupant(b *dynamo.Body) octree.Occupant {
	return octree.Occupant{ID: b.ID, Position: b.Position, Mass: b.Mass}
}
