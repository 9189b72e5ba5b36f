package experiment

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/san-kum/octgrav/internal/config"
	"github.com/san-kum/octgrav/internal/dynamo"
	"github.com/san-kum/octgrav/internal/octree"
	"github.com/san-kum/octgrav/internal/physics"
	"github.com/san-kum/octgrav/internal/sim"
)

// Experiment wires one run together: scenario bodies, an engine of its
// own, the N-body system, an integrator and a simulator.
type Experiment struct {
	cfg      config.Config
	registry *Registry
	logger   *log.Logger

	bodies    []dynamo.Body
	system    *physics.NBody
	simulator *sim.Simulator
}

func New(cfg *config.Config, logger *log.Logger) *Experiment {
	return &Experiment{
		cfg:      *cfg,
		registry: NewRegistry(),
		logger:   logger,
	}
}

// Setup validates the configuration and builds every collaborator.
func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	scenario, err := e.registry.GetScenario(e.cfg.Scenario)
	if err != nil {
		return err
	}
	integ, err := e.registry.GetIntegrator(e.cfg.Integrator)
	if err != nil {
		return err
	}

	e.bodies = scenario(Params{
		Bodies: e.cfg.Bodies,
		Seed:   e.cfg.Seed,
		G:      e.cfg.Engine.G,
		Radius: e.cfg.Engine.WorldSize / 4,
	})

	engine := physics.NewEngine(e.cfg.EngineConfig())
	e.system = physics.NewNBody(engine, e.bodies)

	logger := e.logger
	if logger != nil {
		logger = logger.With("scenario", e.cfg.Scenario, "seed", e.cfg.Seed)
	}
	e.simulator = sim.New(e.system, integ, logger)

	world := octree.Cube(engine.Tree().Config().Center, e.cfg.Engine.WorldSize)
	for _, m := range e.registry.DefaultMetrics(e.system, world) {
		e.simulator.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.system.DefaultState(), e.cfg.SimConfig())
}

func (e *Experiment) Config() config.Config { return e.cfg }

func (e *Experiment) Bodies() []dynamo.Body { return e.bodies }

func (e *Experiment) System() *physics.NBody { return e.system }

// GetSimulator returns the underlying simulator for adding observers.
func (e *Experiment) GetSimulator() *sim.Simulator { return e.simulator }

// RunEnsemble runs cfg over runs consecutive seeds starting at cfg.Seed,
// each with its own engine.
func RunEnsemble(ctx context.Context, cfg *config.Config, runs int, logger *log.Logger) ([]*dynamo.Result, error) {
	ens := sim.NewEnsemble(func(ctx context.Context, seed uint64) (*dynamo.Result, error) {
		member := *cfg
		member.Seed = seed
		exp := New(&member, logger)
		if err := exp.Setup(); err != nil {
			return nil, err
		}
		return exp.Run(ctx)
	}, runs, cfg.Seed)
	return ens.Run(ctx)
}
