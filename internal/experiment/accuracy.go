package experiment

import (
	"context"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/octgrav/internal/dynamo"
	"github.com/san-kum/octgrav/internal/octree"
	"github.com/san-kum/octgrav/internal/optim"
	"github.com/san-kum/octgrav/internal/physics"
)

type AccuracyPoint struct {
	Theta     float64
	RelError  float64
	ForceTime time.Duration
}

// AccuracySweep measures the tree forces against the direct sum at each
// theta. The direct sum runs once; every point reuses a single rebuild.
func AccuracySweep(bodies []dynamo.Body, cfg physics.EngineConfig, thetas []float64) []AccuracyPoint {
	g := gravityOf(cfg)
	exact := physics.DirectForces(bodies, g, cfg.Softening)

	engine := physics.NewEngine(cfg)
	engine.Rebuild(bodies)

	approx := make([]r3.Vec, len(bodies))
	points := make([]AccuracyPoint, 0, len(thetas))
	for _, theta := range thetas {
		start := time.Now()
		engine.ComputeForcesInto(theta, g, approx)
		elapsed := time.Since(start)

		points = append(points, AccuracyPoint{
			Theta:     theta,
			RelError:  physics.RelativeError(approx, exact),
			ForceTime: elapsed,
		})
	}
	return points
}

// TuneTheta picks, among thetas, the one with the fastest force pass whose
// error against the direct sum stays within maxError.
func TuneTheta(ctx context.Context, bodies []dynamo.Body, cfg physics.EngineConfig, thetas []float64, maxError float64) (float64, optim.Evaluation, error) {
	g := gravityOf(cfg)
	exact := physics.DirectForces(bodies, g, cfg.Softening)

	engine := physics.NewEngine(cfg)
	engine.Rebuild(bodies)
	approx := make([]r3.Vec, len(bodies))

	gs := optim.NewGridSearch([]string{"theta"}, [][]float64{thetas})
	best, eval, err := gs.Search(ctx, func(ctx context.Context, p map[string]float64) (optim.Evaluation, error) {
		start := time.Now()
		engine.ComputeForcesInto(p["theta"], g, approx)
		return optim.Evaluation{
			Cost:  time.Since(start).Seconds(),
			Error: physics.RelativeError(approx, exact),
		}, nil
	}, maxError)
	if err != nil {
		return 0, optim.Evaluation{}, err
	}
	return best["theta"], eval, nil
}

func gravityOf(cfg physics.EngineConfig) float64 {
	if cfg.Tree.G == 0 {
		return 1
	}
	return cfg.Tree.G
}

type BenchPoint struct {
	Bodies      int
	RebuildTime time.Duration
	ForceTime   time.Duration
	Stats       octree.Stats
	Diagnostics octree.Diagnostics
}

// Bench times one rebuild and one force pass per body count, averaged
// over reps.
func Bench(scenario Scenario, params Params, counts []int, cfg physics.EngineConfig, reps int) []BenchPoint {
	if reps < 1 {
		reps = 1
	}
	points := make([]BenchPoint, 0, len(counts))
	for _, n := range counts {
		p := params
		p.Bodies = n
		bodies := scenario(p)

		engine := physics.NewEngine(cfg)
		out := make([]r3.Vec, len(bodies))

		var rebuild, force time.Duration
		for i := 0; i < reps; i++ {
			start := time.Now()
			engine.Rebuild(bodies)
			rebuild += time.Since(start)

			start = time.Now()
			engine.ComputeForcesInto(cfg.Theta, 0, out)
			force += time.Since(start)
		}

		points = append(points, BenchPoint{
			Bodies:      n,
			RebuildTime: rebuild / time.Duration(reps),
			ForceTime:   force / time.Duration(reps),
			Stats:       engine.Tree().Stats(),
			Diagnostics: engine.Diagnostics(),
		})
	}
	return points
}
