package integrators

import "github.com/san-kum/octgrav/internal/dynamo"

// Euler is the explicit first-order method. It is here for comparison; it
// does not conserve energy on orbits.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	return x.Add(dyn.Derive(x, t).Scale(dt))
}
