package config

import "sort"

var Presets = map[string]map[string]*Config{
	"binary": {
		"circular": {
			Scenario: "binary", Bodies: 2, Integrator: "leapfrog", Dt: 0.001, Steps: 20000, SampleEvery: 100,
			Engine: EngineConfig{Theta: 0.5, G: 1, WorldSize: 10, MaxDepth: 32, AutoExpand: true},
		},
	},
	"plummer": {
		"small": {
			Scenario: "plummer", Bodies: 200, Seed: 1, Integrator: "leapfrog", Dt: 0.005, Steps: 2000, SampleEvery: 20,
			Engine: EngineConfig{Theta: 0.5, G: 1, WorldSize: 20, MaxDepth: 32, Softening: 0.05, AutoExpand: true},
		},
		"large": {
			Scenario: "plummer", Bodies: 5000, Seed: 1, Integrator: "leapfrog", Dt: 0.005, Steps: 500, SampleEvery: 10,
			Engine: EngineConfig{Theta: 0.7, G: 1, WorldSize: 20, MaxDepth: 32, Softening: 0.05, AutoExpand: true},
		},
	},
	"disk": {
		"galaxy": {
			Scenario: "disk", Bodies: 1000, Seed: 7, Integrator: "leapfrog", Dt: 0.01, Steps: 2000, SampleEvery: 20,
			Engine: EngineConfig{Theta: 0.6, G: 1, WorldSize: 200, MaxDepth: 32, Softening: 0.1, AutoExpand: true},
		},
	},
	"uniform": {
		"collapse": {
			Scenario: "uniform", Bodies: 1000, Seed: 3, Integrator: "verlet", Dt: 0.01, Steps: 500, SampleEvery: 10,
			Engine: EngineConfig{Theta: 0.5, G: 1, WorldSize: 100, MaxDepth: 32, Softening: 0.5, AutoExpand: true},
		},
	},
	"cluster": {
		"degenerate": {
			Scenario: "cluster", Bodies: 64, Seed: 1, Integrator: "leapfrog", Dt: 0.01, Steps: 100, SampleEvery: 10,
			Engine: EngineConfig{Theta: 0.5, G: 1, WorldSize: 10, MaxDepth: 12, MaxForce: 1e4, Softening: 0.01, AutoExpand: true},
		},
	},
}

func GetPreset(scenario, preset string) *Config {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	cfg, ok := scenarioPresets[preset]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets(scenario string) []string {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenarioPresets))
	for name := range scenarioPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
