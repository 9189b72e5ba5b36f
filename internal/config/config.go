package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/octgrav/internal/dynamo"
	"github.com/san-kum/octgrav/internal/octree"
	"github.com/san-kum/octgrav/internal/physics"
)

const (
	DefaultScenario    = "plummer"
	DefaultBodies      = 500
	DefaultIntegrator  = "leapfrog"
	DefaultDt          = 0.01
	DefaultSteps       = 1000
	DefaultSampleEvery = 10
	DefaultTheta       = physics.DefaultTheta
	DefaultG           = 1.0
	DefaultWorldSize   = octree.DefaultWorldSize

	MaxTheta    = 1.5
	MaxMaxDepth = 64
)

type Config struct {
	Scenario    string       `yaml:"scenario"`
	Bodies      int          `yaml:"bodies"`
	Seed        uint64       `yaml:"seed"`
	Integrator  string       `yaml:"integrator"`
	Dt          float64      `yaml:"dt"`
	Steps       int          `yaml:"steps"`
	SampleEvery int          `yaml:"sample_every"`
	Workers     int          `yaml:"workers"`
	Engine      EngineConfig `yaml:"engine"`
}

type EngineConfig struct {
	Theta      float64 `yaml:"theta"`
	G          float64 `yaml:"g"`
	WorldSize  float64 `yaml:"world_size"`
	MaxDepth   int     `yaml:"max_depth"`
	MaxForce   float64 `yaml:"max_force"`
	Softening  float64 `yaml:"softening"`
	AutoExpand bool    `yaml:"auto_expand"`
}

func DefaultConfig() *Config {
	return &Config{
		Scenario:    DefaultScenario,
		Bodies:      DefaultBodies,
		Seed:        1,
		Integrator:  DefaultIntegrator,
		Dt:          DefaultDt,
		Steps:       DefaultSteps,
		SampleEvery: DefaultSampleEvery,
		Engine: EngineConfig{
			Theta:      DefaultTheta,
			G:          DefaultG,
			WorldSize:  DefaultWorldSize,
			MaxDepth:   octree.DefaultMaxDepth,
			AutoExpand: true,
		},
	}
}

// Load reads a YAML file over the defaults, so omitted keys keep their
// default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto overlays a YAML file on cfg. Keys absent from the file leave
// cfg untouched.
func LoadInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports every out-of-range field at once. Each error wraps
// dynamo.ErrParameterBounds.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{dynamo.ErrParameterBounds}, args...)...))
	}

	if !(c.Engine.Theta > 0 && c.Engine.Theta <= MaxTheta) {
		bad("theta must be in (0, %.1f], got %g", MaxTheta, c.Engine.Theta)
	}
	if !positive(c.Engine.G) {
		bad("g must be positive, got %g", c.Engine.G)
	}
	if !positive(c.Engine.WorldSize) {
		bad("world_size must be positive, got %g", c.Engine.WorldSize)
	}
	if c.Engine.MaxDepth < 1 || c.Engine.MaxDepth > MaxMaxDepth {
		bad("max_depth must be in [1, %d], got %d", MaxMaxDepth, c.Engine.MaxDepth)
	}
	if c.Engine.MaxForce < 0 || c.Engine.Softening < 0 {
		bad("max_force and softening must not be negative")
	}
	if !positive(c.Dt) {
		bad("dt must be positive, got %g", c.Dt)
	}
	if c.Steps <= 0 {
		bad("steps must be positive, got %d", c.Steps)
	}
	if c.Bodies < 0 {
		bad("bodies must not be negative, got %d", c.Bodies)
	}

	return errors.Join(errs...)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// EngineConfig translates the file form into what physics.NewEngine takes.
func (c *Config) EngineConfig() physics.EngineConfig {
	tree := octree.DefaultConfig()
	tree.WorldSize = c.Engine.WorldSize
	tree.G = c.Engine.G
	tree.MaxDepth = c.Engine.MaxDepth
	tree.AutoExpand = c.Engine.AutoExpand

	return physics.EngineConfig{
		Tree:      tree,
		Theta:     c.Engine.Theta,
		MaxForce:  c.Engine.MaxForce,
		Softening: c.Engine.Softening,
		Workers:   c.Workers,
	}
}

func (c *Config) SimConfig() dynamo.Config {
	return dynamo.Config{
		Dt:            c.Dt,
		Steps:         c.Steps,
		SampleEvery:   c.SampleEvery,
		ValidateState: true,
	}
}
