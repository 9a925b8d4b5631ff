package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/clothfield/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Cloth.Width)
	assert.Equal(t, 10, cfg.Cloth.Height)
	assert.Equal(t, r3.Vec{Y: -9.81}, cfg.Cloth.Gravity)
	assert.True(t, cfg.Field.Enabled)
	assert.Equal(t, 3, cfg.Field.CellsX)
	assert.Len(t, cfg.Positions(), 100)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := GetPreset("flag")
	cfg.Field.Seed = 42
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := []byte("cloth:\n  stiffness: 12\n  gravity:\n    y: -1.62\nfield:\n  speed: 0.5\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12.0, cfg.Cloth.Stiffness)
	assert.Equal(t, -1.62, cfg.Cloth.Gravity.Y)
	assert.Equal(t, 0.5, cfg.Field.Speed)
	assert.Equal(t, 10, cfg.Cloth.Width)
	assert.Equal(t, DefaultFixedDt, cfg.Sim.FixedDt)
	assert.True(t, cfg.Field.Enabled)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cloth: [1, 2"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"narrow cloth", func(c *Config) { c.Cloth.Width = 1 }, dynamo.ErrGridTooSmall},
		{"zero spacing", func(c *Config) { c.Cloth.Spacing = 0 }, dynamo.ErrInvalidConfig},
		{"zero elasticity", func(c *Config) { c.Cloth.Elasticity = 0 }, dynamo.ErrInvalidConfig},
		{"negative stiffness", func(c *Config) { c.Cloth.Stiffness = -1 }, dynamo.ErrInvalidConfig},
		{"NaN gravity", func(c *Config) { c.Cloth.Gravity.X = math.NaN() }, dynamo.ErrInvalidConfig},
		{"empty lattice", func(c *Config) { c.Field.CellsY = 0 }, dynamo.ErrEmptyLattice},
		{"negative speed", func(c *Config) { c.Field.Speed = -1 }, dynamo.ErrInvalidConfig},
		{"zero fixed dt", func(c *Config) { c.Sim.FixedDt = 0 }, dynamo.ErrInvalidConfig},
		{"zero duration", func(c *Config) { c.Sim.Duration = 0 }, dynamo.ErrInvalidConfig},
		{"no substeps", func(c *Config) { c.Sim.MaxSubsteps = 0 }, dynamo.ErrInvalidConfig},
		{"jitter too large", func(c *Config) { c.Sim.FrameJitter = 1.5 }, dynamo.ErrInvalidConfig},
		{"unknown log level", func(c *Config) { c.Logger.Level = "verbose" }, dynamo.ErrInvalidConfig},
		{"unknown log format", func(c *Config) { c.Logger.Format = "xml" }, dynamo.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestValidateIgnoresDisabledField(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Field.Enabled = false
	cfg.Field.CellsX = 0
	assert.NoError(t, cfg.Validate())
}

func TestSetParam(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.SetParam("cloth.stiffness", 25))
	require.NoError(t, cfg.SetParam("field.cells", 5))
	require.NoError(t, cfg.SetParam("sim.max_substeps", 8))

	assert.Equal(t, 25.0, cfg.Cloth.Stiffness)
	assert.Equal(t, [3]int{5, 5, 5}, [3]int{cfg.Field.CellsX, cfg.Field.CellsY, cfg.Field.CellsZ})
	assert.Equal(t, 8, cfg.Sim.MaxSubsteps)

	params := cfg.GetParams()
	assert.Equal(t, 25.0, params["cloth.stiffness"])
	assert.Equal(t, 5.0, params["field.cells_z"])
	assert.Len(t, params, len(ParamNames()))

	assert.ErrorIs(t, cfg.SetParam("cloth.colour", 1), dynamo.ErrInvalidConfig)
	assert.ErrorIs(t, cfg.SetParam("field.scale", math.Inf(1)), dynamo.ErrInvalidConfig)
}

func TestPresets(t *testing.T) {
	names := ListPresets()
	assert.Equal(t, []string{"breeze", "calm", "flag", "frozen", "gale", "gravity_only"}, names)

	for _, name := range names {
		cfg := GetPreset(name)
		require.NotNil(t, cfg, name)
		assert.Equal(t, name, cfg.Name)
		assert.NoError(t, cfg.Validate(), name)
	}

	assert.False(t, GetPreset("gravity_only").Field.Enabled)
	assert.Zero(t, GetPreset("frozen").Field.Speed)
	assert.Nil(t, GetPreset("hurricane"))
}

func TestGetPresetReturnsCopies(t *testing.T) {
	a := GetPreset("gale")
	a.Cloth.Stiffness = 999

	b := GetPreset("gale")
	assert.Equal(t, 10.0, b.Cloth.Stiffness)
}

func TestConversions(t *testing.T) {
	cfg := GetPreset("flag")
	cfg.Field.Seed = 9

	p := cfg.ClothParams()
	assert.Equal(t, 16, p.Width)
	assert.Equal(t, 40.0, p.Stiffness)

	fc := cfg.FieldConfig()
	assert.Equal(t, 5, fc.CellsX)
	assert.Equal(t, int64(9), fc.Seed)

	sc := cfg.SimConfig()
	assert.Equal(t, 0.005, sc.FixedDt)
	assert.Equal(t, 32, sc.MaxSubsteps)
	assert.Equal(t, int64(9), sc.Seed)

	pos := cfg.Positions()
	require.Len(t, pos, 160)
	assert.InDelta(t, 1.0, pos[0].Y, 1e-12)
}
