// Package dynamo provides the core types shared by the gravity engine and
// the simulation loop that drives it.
//
// The package defines:
//
//   - [Body]: a point mass with a stable ID, position, velocity and mass
//   - [State]: flat vector form of a body set, positions then velocities
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator]: numerical stepper interface
//   - [Metric] and [Observer]: per-tick instrumentation hooks
//
// # Example
//
//	bodies := experiment.Plummer(experiment.Params{Bodies: 1000, Seed: 1, G: 1, Radius: 50})
//	eng := physics.NewEngine(physics.DefaultEngineConfig())
//	dyn := physics.NewNBody(eng, bodies)
//	s := sim.New(dyn, integrators.NewLeapfrog(), logger)
//	result, _ := s.Run(ctx, dynamo.PackState(bodies), cfg)
//
// # Thread Safety
//
// Nothing in this package is safe for concurrent mutation. [ParallelFor]
// is the only helper that spawns goroutines, and it expects each index to
// write to its own output slot.
package dynamo
