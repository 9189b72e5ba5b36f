package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/octgrav/internal/dynamo"
	"github.com/san-kum/octgrav/internal/integrators"
	"github.com/san-kum/octgrav/internal/metrics"
	"github.com/san-kum/octgrav/internal/octree"
	"github.com/san-kum/octgrav/internal/physics"
)

type Registry struct {
	scenarios   map[string]Scenario
	integrators map[string]func() dynamo.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		scenarios:   make(map[string]Scenario),
		integrators: make(map[string]func() dynamo.Integrator),
	}

	r.scenarios["binary"] = Binary
	r.scenarios["uniform"] = Uniform
	r.scenarios["plummer"] = Plummer
	r.scenarios["disk"] = Disk
	r.scenarios["cluster"] = Cluster

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["verlet"] = func() dynamo.Integrator { return integrators.NewVerlet() }
	r.integrators["leapfrog"] = func() dynamo.Integrator { return integrators.NewLeapfrog() }

	return r
}

func (r *Registry) GetScenario(name string) (Scenario, error) {
	fn, ok := r.scenarios[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario: %s", name)
	}
	return fn, nil
}

// GetIntegrator returns a fresh integrator. Integrators keep scratch
// buffers, so each run needs its own.
func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListScenarios() []string { return sortedKeys(r.scenarios) }

func (r *Registry) ListIntegrators() []string { return sortedKeys(r.integrators) }

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics are the conservation and containment checks every
// gravity run reports.
func (r *Registry) DefaultMetrics(nb *physics.NBody, world octree.Bounds) []dynamo.Metric {
	return []dynamo.Metric{
		metrics.NewEnergyDrift(nb),
		metrics.NewMomentumDrift(nb),
		metrics.NewContainment(world, len(nb.Bodies())),
	}
}
