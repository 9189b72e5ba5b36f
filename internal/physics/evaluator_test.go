package physics_test

import (
	"math"
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/octgrav/internal/dynamo"
	"github.com/san-kum/octgrav/internal/octree"
	"github.com/san-kum/octgrav/internal/physics"
)

func cloud(n int, seed uint64) []dynamo.Body {
	rnd := rand.New(rand.NewPCG(seed, seed+1))
	bodies := make([]dynamo.Body, n)
	for i := range bodies {
		bodies[i] = dynamo.Body{
			ID: i,
			Position: r3.Vec{
				X: rnd.NormFloat64() * 20,
				Y: rnd.NormFloat64() * 20,
				Z: rnd.NormFloat64() * 20,
			},
			Mass: 1 + rnd.Float64()*4,
		}
	}
	return bodies
}

func newEngine() *physics.Engine {
	cfg := physics.DefaultEngineConfig()
	cfg.Tree.WorldSize = 200
	return physics.NewEngine(cfg)
}

var _ = Describe("Engine", func() {
	var eng *physics.Engine

	BeforeEach(func() {
		eng = newEngine()
	})

	It("returns an empty mapping for an empty body set", func() {
		diag := eng.Rebuild(nil)
		Expect(diag.Inserted).To(BeZero())
		Expect(eng.ComputeForces(0.5, 1)).To(BeEmpty())
	})

	It("returns a zero force for a single body", func() {
		eng.Rebuild([]dynamo.Body{{ID: 42, Position: r3.Vec{X: 3, Y: -1}, Mass: 7}})
		forces := eng.ComputeForces(0.5, 1)
		Expect(forces).To(HaveLen(1))
		Expect(forces).To(HaveKeyWithValue(42, r3.Vec{}))
	})

	It("matches the two-body scenario", func() {
		eng.Rebuild([]dynamo.Body{
			{ID: 10, Position: r3.Vec{X: -10}, Mass: 100},
			{ID: 20, Position: r3.Vec{X: 10}, Mass: 100},
		})
		forces := eng.ComputeForces(0.5, 1)
		Expect(forces).To(HaveLen(2))

		a, b := forces[10], forces[20]
		Expect(r3.Norm(a)).To(BeNumerically("~", 25, 1e-9))
		Expect(a.X).To(BeNumerically("~", 25, 1e-9))
		Expect(a.Y).To(BeNumerically("~", 0, 1e-12))
		Expect(a.Z).To(BeNumerically("~", 0, 1e-12))
		Expect(b.X).To(BeNumerically("~", -25, 1e-9))
	})

	It("falls back to the tree's G when none is given", func() {
		cfg := physics.DefaultEngineConfig()
		cfg.Tree.G = 2
		eng = physics.NewEngine(cfg)
		eng.Rebuild([]dynamo.Body{
			{ID: 0, Position: r3.Vec{X: -10}, Mass: 100},
			{ID: 1, Position: r3.Vec{X: 10}, Mass: 100},
		})
		Expect(eng.ComputeForces(0.5, 0)[0].X).To(BeNumerically("~", 50, 1e-9))
	})

	It("obeys Newton's third law for an exact two-body walk", func() {
		eng.Rebuild([]dynamo.Body{
			{ID: 0, Position: r3.Vec{X: 1, Y: 2, Z: 3}, Mass: 3},
			{ID: 1, Position: r3.Vec{X: -4, Y: 7, Z: 0.5}, Mass: 11},
		})
		forces := eng.ComputeForces(0, 1)
		sum := r3.Add(forces[0], forces[1])
		Expect(r3.Norm(sum)).To(BeNumerically("<", 1e-12))
		Expect(r3.Norm(forces[0])).To(BeNumerically("~", r3.Norm(forces[1]), 1e-12))
	})

	It("gives zero self-force when the tree holds only the target", func() {
		eng.Rebuild([]dynamo.Body{{ID: 3, Position: r3.Vec{X: 5}, Mass: 1}})
		ev := eng.Evaluator(0.5, 1)
		f := ev.ComputeForce(eng.Tree(), octree.Occupant{ID: 3, Position: r3.Vec{X: 5}, Mass: 1})
		Expect(f).To(Equal(r3.Vec{}))
	})

	It("treats coincident bodies as exerting no force on each other", func() {
		eng.Rebuild([]dynamo.Body{
			{ID: 0, Position: r3.Vec{X: 1}, Mass: 5},
			{ID: 1, Position: r3.Vec{X: 1}, Mass: 5},
		})
		for _, f := range eng.ComputeForces(0.5, 1) {
			Expect(f).To(Equal(r3.Vec{}))
		}
	})

	It("gives rejected bodies a zero force and keeps others finite", func() {
		diag := eng.Rebuild([]dynamo.Body{
			{ID: 0, Position: r3.Vec{X: -1}, Mass: 1},
			{ID: 1, Position: r3.Vec{X: math.NaN()}, Mass: 1},
			{ID: 2, Position: r3.Vec{X: 1}, Mass: -1},
			{ID: 3, Position: r3.Vec{X: 1}, Mass: 1},
		})
		Expect(diag.Rejected).To(Equal(2))

		forces := eng.ComputeForces(0.5, 1)
		Expect(forces[1]).To(Equal(r3.Vec{}))
		Expect(forces[2]).To(Equal(r3.Vec{}))
		Expect(forces[0].X).To(BeNumerically("~", 0.25, 1e-12))
		Expect(forces[3].X).To(BeNumerically("~", -0.25, 1e-12))
	})

	It("clamps pathological force magnitudes", func() {
		cfg := physics.DefaultEngineConfig()
		cfg.MaxForce = 10
		eng = physics.NewEngine(cfg)
		eng.Rebuild([]dynamo.Body{
			{ID: 0, Position: r3.Vec{}, Mass: 1e6},
			{ID: 1, Position: r3.Vec{Y: 1e-3}, Mass: 1e6},
		})
		forces := eng.ComputeForces(0.5, 1)
		Expect(r3.Norm(forces[0])).To(BeNumerically("~", 10, 1e-9))
		Expect(forces[0].Y).To(BeNumerically(">", 0))
	})

	It("softens close encounters", func() {
		bodies := []dynamo.Body{
			{ID: 0, Position: r3.Vec{}, Mass: 1},
			{ID: 1, Position: r3.Vec{Z: 1}, Mass: 1},
		}
		eng.Rebuild(bodies)
		hard := eng.ComputeForces(0.5, 1)[0]
		Expect(hard.Z).To(BeNumerically("~", 1, 1e-12))

		cfg := physics.DefaultEngineConfig()
		cfg.Softening = 1
		soft := physics.NewEngine(cfg)
		soft.Rebuild(bodies)

		// z / (z^2 + eps^2)^(3/2) at z = eps = 1
		Expect(soft.ComputeForces(0.5, 1)[0].Z).To(BeNumerically("~", 1/math.Pow(2, 1.5), 1e-12))
	})

	It("derives softened forces from the softened potential", func() {
		const softening, h = 0.5, 1e-4
		bodies := cloud(30, 21)
		direct := physics.DirectForces(bodies, 1, softening)

		cfg := physics.DefaultEngineConfig()
		cfg.Tree.WorldSize = 200
		cfg.Softening = softening
		soft := physics.NewEngine(cfg)
		soft.Rebuild(bodies)
		tree := soft.ComputeForces(0, 1)

		energyAt := func(i int, d r3.Vec) float64 {
			moved := append([]dynamo.Body(nil), bodies...)
			moved[i].Position = r3.Add(moved[i].Position, d)
			return physics.DirectPotentialEnergy(moved, 1, softening)
		}

		for i := 0; i < 5; i++ {
			grad := r3.Vec{
				X: (energyAt(i, r3.Vec{X: h}) - energyAt(i, r3.Vec{X: -h})) / (2 * h),
				Y: (energyAt(i, r3.Vec{Y: h}) - energyAt(i, r3.Vec{Y: -h})) / (2 * h),
				Z: (energyAt(i, r3.Vec{Z: h}) - energyAt(i, r3.Vec{Z: -h})) / (2 * h),
			}
			want := r3.Scale(-1, grad)
			Expect(r3.Norm(r3.Sub(direct[i], want))).To(BeNumerically("<", 1e-6), "direct body %d", i)
			Expect(r3.Norm(r3.Sub(tree[i], want))).To(BeNumerically("<", 1e-6), "tree body %d", i)
		}
	})

	It("gives bodies outside a fixed world a zero force and no pull", func() {
		cfg := physics.DefaultEngineConfig()
		cfg.Tree.WorldSize = 10
		cfg.Tree.AutoExpand = false
		eng = physics.NewEngine(cfg)

		diag := eng.Rebuild([]dynamo.Body{
			{ID: 0, Position: r3.Vec{X: -1}, Mass: 1},
			{ID: 1, Position: r3.Vec{X: 1}, Mass: 1},
			{ID: 2, Position: r3.Vec{X: 50}, Mass: 1000},
		})
		Expect(diag.Rejected).To(Equal(1))

		forces := eng.ComputeForces(0.5, 1)
		Expect(forces[2]).To(Equal(r3.Vec{}))
		Expect(forces[0].X).To(BeNumerically("~", 0.25, 1e-12))
		Expect(forces[1].X).To(BeNumerically("~", -0.25, 1e-12))
	})

	It("keeps the first body of a repeated ID and rejects the rest", func() {
		diag := eng.Rebuild([]dynamo.Body{
			{ID: 7, Position: r3.Vec{X: -1}, Mass: 1},
			{ID: 8, Position: r3.Vec{X: 1}, Mass: 1},
			{ID: 7, Position: r3.Vec{X: 3}, Mass: 1},
		})
		Expect(diag.Inserted).To(Equal(2))
		Expect(diag.Duplicates).To(Equal(1))
		Expect(diag.Rejected).To(Equal(1))

		forces := eng.ComputeForces(0.5, 1)
		Expect(forces).To(HaveLen(2))
		Expect(forces[7].X).To(BeNumerically("~", 0.25, 1e-12))
		Expect(forces[8].X).To(BeNumerically("~", -0.25, 1e-12))

		out := make([]r3.Vec, 3)
		eng.ComputeForcesInto(0.5, 1, out)
		Expect(out[2]).To(Equal(r3.Vec{}))
	})

	Context("against the direct sum", func() {
		var bodies []dynamo.Body
		var exact []r3.Vec

		BeforeEach(func() {
			bodies = cloud(400, 11)
			exact = physics.DirectForces(bodies, 1, 0)
			eng.Rebuild(bodies)
		})

		It("is exact when theta is zero", func() {
			approx := make([]r3.Vec, len(bodies))
			eng.ComputeForcesInto(0, 1, approx)
			Expect(physics.RelativeError(approx, exact)).To(BeNumerically("<", 1e-10))
		})

		It("gets monotonically closer as theta decreases", func() {
			thetas := []float64{1.2, 0.8, 0.4, 0.2, 0.1, 0}
			prev := math.Inf(1)
			for _, theta := range thetas {
				approx := make([]r3.Vec, len(bodies))
				eng.ComputeForcesInto(theta, 1, approx)
				err := physics.RelativeError(approx, exact)
				Expect(err).To(BeNumerically("<=", prev), "theta %.2f", theta)
				prev = err
			}
		})

		It("stays within a few percent at the default theta", func() {
			approx := make([]r3.Vec, len(bodies))
			eng.ComputeForcesInto(physics.DefaultTheta, 1, approx)
			Expect(physics.RelativeError(approx, exact)).To(BeNumerically("<", 0.05))
		})

		It("agrees between serial and parallel force passes", func() {
			serialCfg := physics.DefaultEngineConfig()
			serialCfg.Tree.WorldSize = 200
			serialCfg.Workers = 1
			serial := physics.NewEngine(serialCfg)
			serial.Rebuild(bodies)

			parallelCfg := serialCfg
			parallelCfg.Workers = 8
			par := physics.NewEngine(parallelCfg)
			par.Rebuild(bodies)

			Expect(par.ComputeForces(0.5, 1)).To(Equal(serial.ComputeForces(0.5, 1)))
		})

		It("approximates the total potential energy", func() {
			exactPE := physics.DirectPotentialEnergy(bodies, 1, 0)
			Expect(eng.PotentialEnergy(0, 1)).To(BeNumerically("~", exactPE, 1e-9*math.Abs(exactPE)))
			Expect(eng.PotentialEnergy(0.5, 1)).To(BeNumerically("~", exactPE, 0.02*math.Abs(exactPE)))
		})
	})
})
