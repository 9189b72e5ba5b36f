package physics

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/octgrav/internal/dynamo"
	"github.com/san-kum/octgrav/internal/octree"
)

type EngineConfig struct {
	Tree      octree.Config
	Theta     float64
	MaxForce  float64
	Softening float64
	// Workers bounds the force phase; <= 0 means runtime.NumCPU.
	Workers int
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Tree:  octree.DefaultConfig(),
		Theta: DefaultTheta,
	}
}

// Engine is what a simulation loop talks to each tick: Rebuild with the
// current bodies, then ComputeForces. It is owned by one loop; Rebuild
// must never overlap a force computation.
type Engine struct {
	cfg    EngineConfig
	tree   *octree.Tree
	bodies []dynamo.Body
	diag   octree.Diagnostics
}

func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{
		cfg:  cfg,
		tree: octree.New(cfg.Tree),
	}
}

func (e *Engine) Config() EngineConfig { return e.cfg }

// Rebuild copies bodies and rebuilds the index from scratch. Invalid or
// out-of-bounds bodies are skipped and counted in the result.
func (e *Engine) Rebuild(bodies []dynamo.Body) octree.Diagnostics {
	e.bodies = append(e.bodies[:0], bodies...)
	e.diag = e.tree.Rebuild(e.bodies)
	return e.diag
}

// ComputeForces returns the force on every body of the last Rebuild keyed
// by body ID. A zero g falls back to the constant the tree was built with.
// When an ID repeats, the entry belongs to the body the tree accepted.
func (e *Engine) ComputeForces(theta, g float64) map[int]r3.Vec {
	forces := make([]r3.Vec, len(e.bodies))
	e.ComputeForcesInto(theta, g, forces)

	accepted := e.tree.Accepted()
	out := make(map[int]r3.Vec, len(e.bodies))
	for i, b := range e.bodies {
		if _, seen := out[b.ID]; seen && !held(accepted, i) {
			continue
		}
		out[b.ID] = forces[i]
	}
	return out
}

// ComputeForcesInto is the allocation-free form: out[i] receives the force
// on the i-th body passed to Rebuild.
func (e *Engine) ComputeForcesInto(theta, g float64, out []r3.Vec) {
	e.Evaluator(theta, g).ComputeAllForces(e.tree, e.bodies, out, e.cfg.Workers)
}

// Evaluator returns the walk parameters for one force pass.
func (e *Engine) Evaluator(theta, g float64) Evaluator {
	if g == 0 {
		g = e.tree.G()
	}
	if theta < 0 {
		theta = 0
	}
	return Evaluator{
		Theta:     theta,
		G:         g,
		MaxForce:  e.cfg.MaxForce,
		Softening: e.cfg.Softening,
	}
}

// PotentialEnergy is the tree-approximated total potential energy of the
// last Rebuild. Each pair is seen from both ends, hence the half.
func (e *Engine) PotentialEnergy(theta, g float64) float64 {
	ev := e.Evaluator(theta, g)
	accepted := e.tree.Accepted()
	u := make([]float64, len(e.bodies))
	dynamo.ParallelFor(len(e.bodies), e.cfg.Workers, minParallelChunk, func(i int) {
		if !held(accepted, i) {
			return
		}
		u[i] = ev.Potential(e.tree, occupant(&e.bodies[i]))
	})

	total := 0.0
	for _, v := range u {
		total += v
	}
	return total / 2
}

func (e *Engine) Tree() *octree.Tree              { return e.tree }
func (e *Engine) Bodies() []dynamo.Body           { return e.bodies }
func (e *Engine) Diagnostics() octree.Diagnostics { return e.diag }
