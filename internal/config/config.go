package config

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/san-kum/clothfield/internal/cloth"
	"github.com/san-kum/clothfield/internal/dynamo"
	"github.com/san-kum/clothfield/internal/field"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSpacing     = 1.0
	DefaultFixedDt     = 0.02
	DefaultFrameDt     = 1.0 / 60.0
	DefaultDuration    = 10.0
	DefaultMaxSubsteps = 16
)

type Config struct {
	Name   string       `yaml:"name,omitempty"`
	Cloth  ClothConfig  `yaml:"cloth"`
	Field  FieldConfig  `yaml:"field"`
	Sim    SimConfig    `yaml:"sim"`
	Logger LoggerConfig `yaml:"logger"`
}

type ClothConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Spacing    float64 `yaml:"spacing"`
	Origin     r3.Vec  `yaml:"origin"`
	Elasticity float64 `yaml:"elasticity"`
	Stiffness  float64 `yaml:"stiffness"`
	Gravity    r3.Vec  `yaml:"gravity"`
}

type FieldConfig struct {
	Enabled   bool    `yaml:"enabled"`
	CellsX    int     `yaml:"cells_x"`
	CellsY    int     `yaml:"cells_y"`
	CellsZ    int     `yaml:"cells_z"`
	Scale     float64 `yaml:"scale"`
	Speed     float64 `yaml:"speed"`
	Seed      int64   `yaml:"seed"`
	NoiseSeed int64   `yaml:"noise_seed"`
}

type SimConfig struct {
	FixedDt       float64 `yaml:"fixed_dt"`
	FrameDt       float64 `yaml:"frame_dt"`
	Duration      float64 `yaml:"duration"`
	MaxSubsteps   int     `yaml:"max_substeps"`
	RecordEvery   int     `yaml:"record_every"`
	FrameJitter   float64 `yaml:"frame_jitter"`
	ValidateState bool    `yaml:"validate_state"`
}

type LoggerConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	LogFile    string `yaml:"log_file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
	AddSource  bool   `yaml:"add_source"`
}

func DefaultConfig() *Config {
	return &Config{
		Cloth: ClothConfig{
			Width:      cloth.DefaultWidth,
			Height:     cloth.DefaultHeight,
			Spacing:    DefaultSpacing,
			Elasticity: cloth.DefaultElasticity,
			Stiffness:  cloth.DefaultStiffness,
			Gravity:    cloth.DefaultGravity,
		},
		Field: FieldConfig{
			Enabled: true,
			CellsX:  field.DefaultCells,
			CellsY:  field.DefaultCells,
			CellsZ:  field.DefaultCells,
			Scale:   field.DefaultScale,
			Speed:   field.DefaultSpeed,
		},
		Sim: SimConfig{
			FixedDt:       DefaultFixedDt,
			FrameDt:       DefaultFrameDt,
			Duration:      DefaultDuration,
			MaxSubsteps:   DefaultMaxSubsteps,
			RecordEvery:   1,
			ValidateState: true,
		},
		Logger: LoggerConfig{
			Level:      "info",
			Format:     "console",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

// Load reads a yaml file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, DefaultConfig())
}

// Parse decodes yaml data on top of base, which is modified and returned.
func Parse(data []byte, base *Config) (*Config, error) {
	if err := yaml.Unmarshal(data, base); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return base, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

func (c *Config) Validate() error {
	cl := c.Cloth
	if cl.Width < 2 || cl.Height < 2 {
		return fmt.Errorf("%w: cloth is %dx%d", dynamo.ErrGridTooSmall, cl.Width, cl.Height)
	}
	if !positive(cl.Spacing) {
		return invalid("cloth.spacing must be positive, got %v", cl.Spacing)
	}
	if !positive(cl.Elasticity) {
		return invalid("cloth.elasticity must be positive, got %v", cl.Elasticity)
	}
	if !finite(cl.Stiffness) || cl.Stiffness < 0 {
		return invalid("cloth.stiffness must be finite and non-negative, got %v", cl.Stiffness)
	}
	if !dynamo.IsFinite(cl.Gravity) || !dynamo.IsFinite(cl.Origin) {
		return invalid("cloth.gravity and cloth.origin must be finite")
	}

	if c.Field.Enabled {
		if err := c.FieldConfig().Validate(); err != nil {
			return err
		}
	}

	s := c.Sim
	if !positive(s.FixedDt) || !positive(s.FrameDt) {
		return invalid("sim.fixed_dt and sim.frame_dt must be positive")
	}
	if !positive(s.Duration) {
		return invalid("sim.duration must be positive, got %v", s.Duration)
	}
	if s.MaxSubsteps < 1 {
		return invalid("sim.max_substeps must be at least 1, got %d", s.MaxSubsteps)
	}
	if s.RecordEvery < 0 {
		return invalid("sim.record_every must not be negative, got %d", s.RecordEvery)
	}
	if s.FrameJitter < 0 || s.FrameJitter >= 1 {
		return invalid("sim.frame_jitter must be in [0, 1), got %v", s.FrameJitter)
	}

	switch c.Logger.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return invalid("logger.level %q is not one of debug, info, warn, error", c.Logger.Level)
	}
	switch c.Logger.Format {
	case "", "console", "json":
	default:
		return invalid("logger.format %q is not one of console, json", c.Logger.Format)
	}
	return nil
}

func (c *Config) ClothParams() cloth.Params {
	return cloth.Params{
		Width:      c.Cloth.Width,
		Height:     c.Cloth.Height,
		Elasticity: c.Cloth.Elasticity,
		Stiffness:  c.Cloth.Stiffness,
		Gravity:    c.Cloth.Gravity,
	}
}

// Positions returns the initial row-major layout of the cloth.
func (c *Config) Positions() []r3.Vec {
	return cloth.PlaneLayout(c.Cloth.Width, c.Cloth.Height, c.Cloth.Spacing, c.Cloth.Origin)
}

func (c *Config) FieldConfig() field.Config {
	return field.Config{
		CellsX:    c.Field.CellsX,
		CellsY:    c.Field.CellsY,
		CellsZ:    c.Field.CellsZ,
		Scale:     c.Field.Scale,
		Speed:     c.Field.Speed,
		Seed:      c.Field.Seed,
		NoiseSeed: c.Field.NoiseSeed,
	}
}

func (c *Config) SimConfig() dynamo.Config {
	return dynamo.Config{
		FixedDt:       c.Sim.FixedDt,
		FrameDt:       c.Sim.FrameDt,
		Duration:      c.Sim.Duration,
		MaxSubsteps:   c.Sim.MaxSubsteps,
		RecordEvery:   c.Sim.RecordEvery,
		FrameJitter:   c.Sim.FrameJitter,
		Seed:          c.Field.Seed,
		ValidateState: c.Sim.ValidateState,
	}
}

type param struct {
	get func(*Config) float64
	set func(*Config, float64)
}

var params = map[string]param{
	"cloth.width": {
		func(c *Config) float64 { return float64(c.Cloth.Width) },
		func(c *Config, v float64) { c.Cloth.Width = int(v) },
	},
	"cloth.height": {
		func(c *Config) float64 { return float64(c.Cloth.Height) },
		func(c *Config, v float64) { c.Cloth.Height = int(v) },
	},
	"cloth.spacing": {
		func(c *Config) float64 { return c.Cloth.Spacing },
		func(c *Config, v float64) { c.Cloth.Spacing = v },
	},
	"cloth.elasticity": {
		func(c *Config) float64 { return c.Cloth.Elasticity },
		func(c *Config, v float64) { c.Cloth.Elasticity = v },
	},
	"cloth.stiffness": {
		func(c *Config) float64 { return c.Cloth.Stiffness },
		func(c *Config, v float64) { c.Cloth.Stiffness = v },
	},
	"cloth.gravity_y": {
		func(c *Config) float64 { return c.Cloth.Gravity.Y },
		func(c *Config, v float64) { c.Cloth.Gravity.Y = v },
	},
	"field.cells": {
		func(c *Config) float64 { return float64(c.Field.CellsX) },
		func(c *Config, v float64) {
			c.Field.CellsX, c.Field.CellsY, c.Field.CellsZ = int(v), int(v), int(v)
		},
	},
	"field.cells_x": {
		func(c *Config) float64 { return float64(c.Field.CellsX) },
		func(c *Config, v float64) { c.Field.CellsX = int(v) },
	},
	"field.cells_y": {
		func(c *Config) float64 { return float64(c.Field.CellsY) },
		func(c *Config, v float64) { c.Field.CellsY = int(v) },
	},
	"field.cells_z": {
		func(c *Config) float64 { return float64(c.Field.CellsZ) },
		func(c *Config, v float64) { c.Field.CellsZ = int(v) },
	},
	"field.scale": {
		func(c *Config) float64 { return c.Field.Scale },
		func(c *Config, v float64) { c.Field.Scale = v },
	},
	"field.speed": {
		func(c *Config) float64 { return c.Field.Speed },
		func(c *Config, v float64) { c.Field.Speed = v },
	},
	"field.seed": {
		func(c *Config) float64 { return float64(c.Field.Seed) },
		func(c *Config, v float64) { c.Field.Seed = int64(v) },
	},
	"sim.fixed_dt": {
		func(c *Config) float64 { return c.Sim.FixedDt },
		func(c *Config, v float64) { c.Sim.FixedDt = v },
	},
	"sim.frame_dt": {
		func(c *Config) float64 { return c.Sim.FrameDt },
		func(c *Config, v float64) { c.Sim.FrameDt = v },
	},
	"sim.duration": {
		func(c *Config) float64 { return c.Sim.Duration },
		func(c *Config, v float64) { c.Sim.Duration = v },
	},
	"sim.max_substeps": {
		func(c *Config) float64 { return float64(c.Sim.MaxSubsteps) },
		func(c *Config, v float64) { c.Sim.MaxSubsteps = int(v) },
	},
	"sim.record_every": {
		func(c *Config) float64 { return float64(c.Sim.RecordEvery) },
		func(c *Config, v float64) { c.Sim.RecordEvery = int(v) },
	},
	"sim.frame_jitter": {
		func(c *Config) float64 { return c.Sim.FrameJitter },
		func(c *Config, v float64) { c.Sim.FrameJitter = v },
	},
}

// ParamNames lists the keys accepted by SetParam, sorted.
func ParamNames() []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) GetParams() map[string]float64 {
	out := make(map[string]float64, len(params))
	for name, p := range params {
		out[name] = p.get(c)
	}
	return out
}

func (c *Config) SetParam(name string, value float64) error {
	p, ok := params[name]
	if !ok {
		return fmt.Errorf("%w: unknown parameter %q", dynamo.ErrInvalidConfig, name)
	}
	if !finite(value) {
		return invalid("%s must be finite, got %v", name, value)
	}
	p.set(c, value)
	return nil
}

var _ dynamo.Configurable = (*Config)(nil)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{dynamo.ErrInvalidConfig}, args...)...)
}

func positive(v float64) bool { return v > 0 && finite(v) }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
