package sim

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/san-kum/octgrav/internal/dynamo"
	"github.com/san-kum/octgrav/internal/octree"
)

// Diagnosable is implemented by systems backed by a spatial index.
type Diagnosable interface {
	Diagnostics() octree.Diagnostics
}

type Simulator struct {
	sys        dynamo.System
	integrator dynamo.Integrator
	logger     *log.Logger
	metrics    []dynamo.Metric
	observers  []dynamo.Observer

	lastDiag octree.Diagnostics
}

// New creates a simulator. A nil logger discards output.
func New(sys dynamo.System, integrator dynamo.Integrator, logger *log.Logger) *Simulator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Simulator{
		sys:        sys,
		integrator: integrator,
		logger:     logger,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) System() dynamo.System { return s.sys }

// Run advances x0 by cfg.Steps ticks. The context is checked between
// ticks only; a tick in progress always completes. An invalid state stops
// the run and is returned as a *dynamo.SimulationError together with the
// partial result.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	sampleEvery := cfg.SampleEvery
	if sampleEvery <= 0 {
		sampleEvery = 1
	}

	samples := cfg.Steps/sampleEvery + 1
	result := &dynamo.Result{
		States:  make([]dynamo.State, 0, samples),
		Times:   make([]float64, 0, samples),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}
	s.lastDiag = octree.Diagnostics{}

	x := x0.Clone()
	t := 0.0
	start := time.Now()

	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)

	initialEnergy := s.energy(x)

	var runErr error
	for i := 0; i < cfg.Steps; i++ {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err)
			break
		}

		newX, err := s.step(x, t, cfg.Dt, cfg.ValidateState)
		if err != nil {
			simErr := &dynamo.SimulationError{Step: i, Time: t, Wrapped: err}
			result.Errors = append(result.Errors, simErr)
			s.logger.Error("simulation stopped", "step", i, "t", t, "err", err)
			runErr = simErr
			break
		}

		x = newX
		t += cfg.Dt
		result.StepsTaken++

		if result.StepsTaken%sampleEvery == 0 {
			result.States = append(result.States, x.Clone())
			result.Times = append(result.Times, t)
		}
	}

	if last := result.Times[len(result.Times)-1]; last != t {
		result.States = append(result.States, x.Clone())
		result.Times = append(result.Times, t)
	}

	if initialEnergy != 0 {
		result.EnergyDrift = math.Abs(s.energy(x)-initialEnergy) / math.Abs(initialEnergy)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	s.logger.Info("run complete",
		"steps", result.StepsTaken,
		"energy_drift", result.EnergyDrift,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return result, runErr
}

// Step advances x by a single tick and always validates the result.
func (s *Simulator) Step(x dynamo.State, t, dt float64) (dynamo.State, error) {
	return s.step(x, t, dt, true)
}

func (s *Simulator) step(x dynamo.State, t, dt float64, validate bool) (dynamo.State, error) {
	for _, m := range s.metrics {
		m.Observe(x, t)
	}
	for _, obs := range s.observers {
		obs.OnStep(x, t)
	}

	newX := s.integrator.Step(s.sys, x, t, dt)
	s.reportDiagnostics()

	if validate && !newX.IsValid() {
		return x, dynamo.ErrInvalidState
	}
	return newX, nil
}

// reportDiagnostics logs index problems when they change, not every tick.
func (s *Simulator) reportDiagnostics() {
	d, ok := s.sys.(Diagnosable)
	if !ok {
		return
	}

	diag := d.Diagnostics()
	if diag.Rejected != s.lastDiag.Rejected {
		s.logger.Warn("bodies rejected by index", "rejected", diag.Rejected, "inserted", diag.Inserted)
	}
	if diag.Bucketed != s.lastDiag.Bucketed {
		s.logger.Debug("bodies bucketed at depth cap", "bucketed", diag.Bucketed)
	}
	if diag.Expansions != s.lastDiag.Expansions {
		s.logger.Debug("root region expanded", "doublings", diag.Expansions)
	}
	s.lastDiag = diag
}

func (s *Simulator) energy(x dynamo.State) float64 {
	if h, ok := s.sys.(dynamo.Hamiltonian); ok {
		return h.Energy(x)
	}
	return 0
}

func validateConfig(cfg dynamo.Config) error {
	if cfg.Dt <= 0 || math.IsNaN(cfg.Dt) || math.IsInf(cfg.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive, got %f", dynamo.ErrParameterBounds, cfg.Dt)
	}
	if cfg.Steps <= 0 {
		return fmt.Errorf("%w: steps must be positive, got %d", dynamo.ErrParameterBounds, cfg.Steps)
	}
	return nil
}
