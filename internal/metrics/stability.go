package metrics

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/octgrav/internal/dynamo"
	"github.com/san-kum/octgrav/internal/octree"
)

// Containment is the lowest fraction of bodies found inside a region over
// the run. Bodies that escape the world cube force root expansions.
type Containment struct {
	name    string
	region  octree.Bounds
	n       int
	worst   float64
	samples int
}

// NewContainment watches n bodies laid out positions-first in the state.
func NewContainment(region octree.Bounds, n int) *Containment {
	return &Containment{
		name:   "containment",
		region: region,
		n:      n,
		worst:  1,
	}
}

func (c *Containment) Name() string { return c.name }

func (c *Containment) Observe(x dynamo.State, t float64) {
	if c.n == 0 || len(x) < c.n*3 {
		return
	}
	inside := 0
	for i := 0; i < c.n; i++ {
		p := r3.Vec{X: x[i*3], Y: x[i*3+1], Z: x[i*3+2]}
		if c.region.Contains(p) {
			inside++
		}
	}
	c.samples++
	if frac := float64(inside) / float64(c.n); frac < c.worst {
		c.worst = frac
	}
}

func (c *Containment) Value() float64 { return c.worst }

func (c *Containment) Reset() {
	c.worst = 1
	c.samples = 0
}
