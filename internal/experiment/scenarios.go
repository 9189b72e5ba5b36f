package experiment

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/san-kum/octgrav/internal/dynamo"
)

// Params drives a scenario generator. Radius is the characteristic size
// of the initial distribution; generators keep bodies within it.
type Params struct {
	Bodies int
	Seed   uint64
	G      float64
	Radius float64
}

// Scenario builds an initial body set. The same Params always yield the
// same bodies.
type Scenario func(p Params) []dynamo.Body

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// isotropic returns a uniformly distributed unit vector.
func isotropic(n distuv.Normal) r3.Vec {
	for {
		v := r3.Vec{X: n.Rand(), Y: n.Rand(), Z: n.Rand()}
		if norm := r3.Norm(v); norm > 1e-9 {
			return r3.Scale(1/norm, v)
		}
	}
}

// Binary is two equal masses on a circular orbit about their common
// center. Bodies and Seed are ignored.
func Binary(p Params) []dynamo.Body {
	const m = 1.0
	d := p.Radius
	v := math.Sqrt(p.G * m / (2 * d))
	return []dynamo.Body{
		{ID: 0, Position: r3.Vec{X: -d / 2}, Velocity: r3.Vec{Y: -v}, Mass: m},
		{ID: 1, Position: r3.Vec{X: d / 2}, Velocity: r3.Vec{Y: v}, Mass: m},
	}
}

// Uniform scatters bodies of unit total mass at rest in a cube of side
// 2*Radius.
func Uniform(p Params) []dynamo.Body {
	src := newRand(p.Seed)
	u := distuv.Uniform{Min: -p.Radius, Max: p.Radius, Src: src}

	bodies := make([]dynamo.Body, p.Bodies)
	for i := range bodies {
		bodies[i] = dynamo.Body{
			ID:       i,
			Position: r3.Vec{X: u.Rand(), Y: u.Rand(), Z: u.Rand()},
			Mass:     1 / float64(p.Bodies),
		}
	}
	return bodies
}

// Plummer samples a Plummer sphere of unit total mass with scale length
// Radius/4, truncated at Radius. Velocities are drawn from the local
// isotropic dispersion sigma^2 = GM / (6 sqrt(r^2 + a^2)).
func Plummer(p Params) []dynamo.Body {
	src := newRand(p.Seed)
	unit := distuv.Uniform{Min: 1e-6, Max: 1, Src: src}
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	a := p.Radius / 4
	const total = 1.0

	bodies := make([]dynamo.Body, p.Bodies)
	for i := range bodies {
		var r float64
		for {
			r = a / math.Sqrt(math.Pow(unit.Rand(), -2.0/3.0)-1)
			if r <= p.Radius {
				break
			}
		}

		sigma := math.Sqrt(p.G * total / (6 * math.Sqrt(r*r+a*a)))
		bodies[i] = dynamo.Body{
			ID:       i,
			Position: r3.Scale(r, isotropic(normal)),
			Velocity: r3.Vec{X: sigma * normal.Rand(), Y: sigma * normal.Rand(), Z: sigma * normal.Rand()},
			Mass:     total / float64(p.Bodies),
		}
	}
	return bodies
}

// Disk puts a heavy central body at the origin and the rest on circular
// orbits in a thin disk out to Radius.
func Disk(p Params) []dynamo.Body {
	if p.Bodies == 0 {
		return nil
	}
	src := newRand(p.Seed)
	radius := distuv.Uniform{Min: 0.1 * p.Radius, Max: p.Radius, Src: src}
	angle := distuv.Uniform{Min: 0, Max: 2 * math.Pi, Src: src}
	height := distuv.Normal{Mu: 0, Sigma: 0.01 * p.Radius, Src: src}

	const central = 1.0
	light := 1e-4 * central

	bodies := make([]dynamo.Body, p.Bodies)
	bodies[0] = dynamo.Body{ID: 0, Mass: central}
	for i := 1; i < p.Bodies; i++ {
		r := radius.Rand()
		sin, cos := math.Sincos(angle.Rand())
		v := math.Sqrt(p.G * central / r)
		bodies[i] = dynamo.Body{
			ID:       i,
			Position: r3.Vec{X: r * cos, Y: r * sin, Z: height.Rand()},
			Velocity: r3.Vec{X: -v * sin, Y: v * cos},
			Mass:     light,
		}
	}
	return bodies
}

// Cluster stacks every body on the same point. It exists to exercise the
// depth cap: the index must terminate and bucket them.
func Cluster(p Params) []dynamo.Body {
	at := r3.Vec{X: 0.1 * p.Radius, Y: 0.1 * p.Radius, Z: 0.1 * p.Radius}
	bodies := make([]dynamo.Body, p.Bodies)
	for i := range bodies {
		bodies[i] = dynamo.Body{ID: i, Position: at, Mass: 1}
	}
	return bodies
}
