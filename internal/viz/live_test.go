package viz

import (
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/clothfield/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func newLive(t *testing.T, preset string) *Model {
	t.Helper()
	cfg := config.GetPreset(preset)
	cfg.Field.Seed = 3
	m, err := NewModel(cfg, nil, WithSize(40, 16), WithTheme("retro"))
	require.NoError(t, err)
	return m
}

func TestModelAdvancesByWallClock(t *testing.T) {
	m := newLive(t, "breeze")
	d := m.exp.Driver()
	t0 := time.Unix(100, 0)

	_, cmd := m.Update(TickMsg(t0))
	assert.NotNil(t, cmd)
	assert.Equal(t, 0, d.Frames(), "the first tick only starts the clock")

	m.Update(TickMsg(t0.Add(100 * time.Millisecond)))
	assert.Equal(t, 1, d.Frames())
	assert.InDelta(t, 0.1, d.Time(), 1e-9)
	assert.Len(t, m.energy, 1)
	assert.Len(t, m.strain, 1)
	assert.Greater(t, m.fps, 0.0)
}

func TestModelPauseAndStep(t *testing.T) {
	m := newLive(t, "gravity_only")
	d := m.exp.Driver()

	m.Update(tea.KeyMsg{Type: tea.KeySpace})
	assert.False(t, m.running)

	t0 := time.Unix(100, 0)
	m.Update(TickMsg(t0))
	m.Update(TickMsg(t0.Add(time.Second)))
	assert.Equal(t, 0, d.Frames(), "paused models ignore ticks")

	m.Update(runes("."))
	assert.Equal(t, 1, d.Frames())
	assert.InDelta(t, m.cfg.Sim.FrameDt, d.Time(), 1e-12)

	m.Update(runes("r"))
	assert.Equal(t, 0, m.exp.Driver().Frames())
	assert.Empty(t, m.energy)
}

func TestModelTune(t *testing.T) {
	m := newLive(t, "calm")
	before := m.cfg.Cloth.Stiffness

	m.Update(runes("k"))
	assert.InDelta(t, before*tuneFactor, m.cfg.Cloth.Stiffness, 1e-12)
	assert.NoError(t, m.err)

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "cloth.elasticity", LiveParams[m.selected])
	m.Update(runes("j"))
	assert.InDelta(t, 1/tuneFactor, m.cfg.Cloth.Elasticity, 1e-12)

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m.cfg.Cloth.Gravity.Y = -math.MaxFloat64
	m.Update(runes("k"))
	assert.Error(t, m.err, "overflowing values are rejected")
	assert.Equal(t, -math.MaxFloat64, m.cfg.Cloth.Gravity.Y)
}

func TestModelToggles(t *testing.T) {
	m := newLive(t, "breeze")
	assert.NotZero(t, m.layers&LayerField)
	m.Update(runes("f"))
	assert.Zero(t, m.layers&LayerField)
	m.Update(runes("s"))
	assert.NotZero(t, m.layers&LayerShear)

	m.Update(runes("t"))
	assert.Equal(t, NextTheme("retro").Name, m.theme.Name)

	yaw := m.camera.Yaw
	m.Update(runes("y"))
	assert.InDelta(t, yaw+rotateStep, m.camera.Yaw, 1e-12)
}

func TestModelView(t *testing.T) {
	m := newLive(t, "breeze")
	t0 := time.Unix(100, 0)
	m.Update(TickMsg(t0))
	m.Update(TickMsg(t0.Add(50 * time.Millisecond)))
	m.Update(TickMsg(t0.Add(100 * time.Millisecond)))

	view := m.View()
	assert.Contains(t, view, "BREEZE")
	assert.Contains(t, view, "RUNNING")
	assert.Greater(t, m.canvas.Count(), 0)

	m.Update(runes("?"))
	assert.True(t, strings.HasPrefix(m.View(), helpText))
}

func TestModelQuit(t *testing.T) {
	m := newLive(t, "calm")
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestModelResize(t *testing.T) {
	m := newLive(t, "calm")
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120-statsWidth-6, m.canvas.Width)
	assert.Equal(t, 36, m.canvas.Height)
}

func TestAppFlow(t *testing.T) {
	a := NewApp(nil)
	assert.Contains(t, a.View(), "calm")

	a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, stateConfig, a.state)
	assert.Equal(t, config.ListPresets()[0], a.cfg.Name)

	// Edit cloth.width to 5.
	a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, a.editing)
	for range a.editBuf {
		a.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	}
	a.Update(runes("5"))
	a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, 5, a.cfg.Cloth.Width)
	assert.NoError(t, a.err)

	_, cmd := a.Update(runes("s"))
	assert.NotNil(t, cmd)
	require.Equal(t, stateSim, a.state)
	assert.Len(t, a.live.frame.Positions, 5*a.cfg.Cloth.Height)

	a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, stateConfig, a.state)
	assert.Nil(t, a.live)
}
