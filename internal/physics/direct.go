package physics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/octgrav/internal/dynamo"
)

// DirectForces is the O(n²) pairwise sum. It is the yardstick for the
// tree approximation, not a simulation mode.
func DirectForces(bodies []dynamo.Body, g, softening float64) []r3.Vec {
	n := len(bodies)
	f := make([]r3.Vec, n)
	eps2 := softening * softening

	for i := 0; i < n; i++ {
		if bodies[i].Validate() != nil {
			continue
		}
		pi := bodies[i].Position

		for j := i + 1; j < n; j++ {
			if bodies[j].Validate() != nil {
				continue
			}

			d := r3.Sub(bodies[j].Position, pi)
			r2 := r3.Norm2(d)
			r := math.Sqrt(r2)
			if r <= degenerateDistance {
				continue
			}

			mag := plummerForce(g*bodies[i].Mass*bodies[j].Mass, r, r2+eps2)
			fij := r3.Scale(mag/r, d)
			f[i] = r3.Add(f[i], fij)
			f[j] = r3.Sub(f[j], fij)
		}
	}

	return f
}

// DirectPotentialEnergy is the exact total potential energy of the set.
func DirectPotentialEnergy(bodies []dynamo.Body, g, softening float64) float64 {
	pe := 0.0
	eps2 := softening * softening
	for i := range bodies {
		for j := i + 1; j < len(bodies); j++ {
			r2 := r3.Norm2(r3.Sub(bodies[j].Position, bodies[i].Position))
			if math.Sqrt(r2) <= degenerateDistance {
				continue
			}
			pe -= g * bodies[i].Mass * bodies[j].Mass / math.Sqrt(r2+eps2)
		}
	}
	return pe
}

// RelativeError is Σ|approx-exact| / Σ|exact|, the figure the accuracy
// report tracks against theta.
func RelativeError(approx, exact []r3.Vec) float64 {
	num, den := 0.0, 0.0
	for i := range exact {
		if i >= len(approx) {
			break
		}
		num += r3.Norm(r3.Sub(approx[i], exact[i]))
		den += r3.Norm(exact[i])
	}
	if den == 0 {
		return num
	}
	return num / den
}
