package physics

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/octgrav/internal/dynamo"
	"github.com/san-kum/octgrav/internal/octree"
)

// NBody is the gravitational system over a body set, evaluated through an
// Engine. Every Derive call is one tick's rebuild plus force pass.
type NBody struct {
	Theta float64
	G     float64

	engine  *Engine
	bodies  []dynamo.Body
	forces  []r3.Vec
	rebuilt int
}

// NewNBody creates a system for the given bodies. IDs and masses are taken
// from bodies; positions and velocities come from the state passed to
// Derive.
func NewNBody(engine *Engine, bodies []dynamo.Body) *NBody {
	own := make([]dynamo.Body, len(bodies))
	copy(own, bodies)
	return &NBody{
		Theta:  engine.Config().Theta,
		G:      engine.tree.G(),
		engine: engine,
		bodies: own,
		forces: make([]r3.Vec, len(bodies)),
	}
}

func (nb *NBody) StateDim() int { return len(nb.bodies) * 6 }

func (nb *NBody) DefaultState() dynamo.State { return dynamo.PackState(nb.bodies) }

func (nb *NBody) Derive(x dynamo.State, t float64) dynamo.State {
	n := len(nb.bodies)
	dx := make(dynamo.State, len(x))
	if dynamo.UnpackState(x, nb.bodies) != nil {
		return dx
	}

	nb.engine.Rebuild(nb.bodies)
	nb.engine.ComputeForcesInto(nb.Theta, nb.G, nb.forces)
	nb.rebuilt++

	half := n * 3
	copy(dx[:half], x[half:])
	for i, b := range nb.bodies {
		a := r3.Scale(1/b.Mass, nb.forces[i])
		if b.Validate() != nil {
			a = r3.Vec{}
		}
		dx[half+i*3] = a.X
		dx[half+i*3+1] = a.Y
		dx[half+i*3+2] = a.Z
	}

	return dx
}

// Energy is kinetic plus tree-approximated potential energy.
func (nb *NBody) Energy(x dynamo.State) float64 {
	if dynamo.UnpackState(x, nb.bodies) != nil {
		return 0
	}

	ke := 0.0
	for _, b := range nb.bodies {
		ke += 0.5 * b.Mass * r3.Norm2(b.Velocity)
	}

	nb.engine.Rebuild(nb.bodies)
	return ke + nb.engine.PotentialEnergy(nb.Theta, nb.G)
}

func (nb *NBody) Momentum(x dynamo.State) r3.Vec {
	var p r3.Vec
	if dynamo.UnpackState(x, nb.bodies) != nil {
		return p
	}
	for _, b := range nb.bodies {
		p = r3.Add(p, r3.Scale(b.Mass, b.Velocity))
	}
	return p
}

func (nb *NBody) AngularMomentum(x dynamo.State) r3.Vec {
	var l r3.Vec
	if dynamo.UnpackState(x, nb.bodies) != nil {
		return l
	}
	for _, b := range nb.bodies {
		l = r3.Add(l, r3.Scale(b.Mass, r3.Cross(b.Position, b.Velocity)))
	}
	return l
}

// Bodies returns the body set as of the last state the system saw.
func (nb *NBody) Bodies() []dynamo.Body { return nb.bodies }

func (nb *NBody) Engine() *Engine { return nb.engine }

// Diagnostics reports what the most recent rebuild skipped or bucketed.
func (nb *NBody) Diagnostics() octree.Diagnostics { return nb.engine.Diagnostics() }

// Rebuilds counts force passes, i.e. tree rebuilds, since creation.
func (nb *NBody) Rebuilds() int { return nb.rebuilt }

func (nb *NBody) GetParams() map[string]float64 {
	return map[string]float64{"theta": nb.Theta, "g": nb.G}
}

func (nb *NBody) SetParam(name string, value float64) error {
	switch name {
	case "theta":
		if value < 0 {
			return dynamo.ErrParameterBounds
		}
		nb.Theta = value
	case "g":
		if value <= 0 {
			return dynamo.ErrParameterBounds
		}
		nb.G = value
	default:
		return dynamo.ErrParameterBounds
	}
	return nil
}
