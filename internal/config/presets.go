package config

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

type Preset struct {
	Description string
	apply       func(*Config)
}

var Presets = map[string]Preset{
	"calm": {
		Description: "slow, broad field drift",
		apply: func(c *Config) {
			c.Field.Speed = 0.2
			c.Field.Scale = 0.5
		},
	},
	"breeze": {
		Description: "default field on a softly sprung cloth",
		apply: func(c *Config) {
			c.Cloth.Elasticity = 1.1
			c.Cloth.Stiffness = 4
		},
	},
	"gale": {
		Description: "fast, fine-grained field on a dense lattice",
		apply: func(c *Config) {
			c.Field.Speed = 3
			c.Field.Scale = 2
			c.Field.CellsX, c.Field.CellsY, c.Field.CellsZ = 6, 6, 6
			c.Cloth.Elasticity = 1.2
			c.Cloth.Stiffness = 10
		},
	},
	"frozen": {
		Description: "field vectors fixed in time",
		apply: func(c *Config) {
			c.Field.Speed = 0
		},
	},
	"gravity_only": {
		Description: "no field, the cloth hangs under gravity",
		apply: func(c *Config) {
			c.Field.Enabled = false
		},
	},
	"flag": {
		Description: "wide, stiff 16x10 cloth pinned along one edge",
		apply: func(c *Config) {
			c.Cloth.Width, c.Cloth.Height = 16, 10
			c.Cloth.Spacing = 0.25
			c.Cloth.Origin = r3.Vec{Y: 1}
			c.Cloth.Elasticity = 1.05
			c.Cloth.Stiffness = 40
			c.Field.CellsX, c.Field.CellsY, c.Field.CellsZ = 5, 3, 3
			c.Sim.FixedDt = 0.005
			c.Sim.MaxSubsteps = 32
		},
	},
}

// GetPreset returns a fresh config for the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Name = name
	p.apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
