// Package physics evaluates Newtonian gravity over an octree using the
// Barnes-Hut approximation.
//
//   - [Evaluator]: per-body tree walk with the s/d < theta opening test
//   - [Engine]: rebuild-then-compute interface for a simulation loop
//   - [NBody]: the body set as a [dynamo.System] and [dynamo.Hamiltonian]
//   - [DirectForces]: O(n²) reference sum used to measure the approximation
//
// Numerical guards are local and silent: coincident pairs contribute
// nothing, MaxForce clamps single contributions, and invalid bodies are
// skipped by the index and receive a zero force.
//
// # Accuracy
//
// Theta trades accuracy for speed. Zero opens every node and reproduces
// the pairwise sum; 0.5 is the usual default:
//
//	eng := physics.NewEngine(physics.DefaultEngineConfig())
//	eng.Rebuild(bodies)
//	forces := eng.ComputeForces(0.5, 1.0)
package physics
