package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/clothfield/internal/cloth"
	"github.com/san-kum/clothfield/internal/config"
	"github.com/san-kum/clothfield/internal/dynamo"
	"github.com/san-kum/clothfield/internal/experiment"
	"github.com/san-kum/clothfield/internal/metrics"
	"go.uber.org/zap"
)

const (
	historyCapacity = 120
	tickRate        = time.Second / 60
	rotateStep      = 0.1
	tuneFactor      = 1.1
	arrowLength     = 0.5
)

// LiveParams are the parameters that can be tuned from the live view. A
// change rebuilds the simulation.
var LiveParams = []string{
	"cloth.stiffness",
	"cloth.elasticity",
	"cloth.gravity_y",
	"field.scale",
	"field.speed",
}

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model is the bubbletea model of a running cloth. Every tick advances the
// driver by the wall-clock time since the previous tick, scaled by speed.
type Model struct {
	cfg *config.Config
	log *zap.Logger

	exp     *experiment.Experiment
	springs []cloth.Spring
	frame   *dynamo.Frame

	camera *Camera
	canvas *Canvas
	wire   *Wireframe
	theme  Theme
	styles Styles
	layers Layer

	width, height int
	running       bool
	showHelp      bool
	speed         float64
	selected      int
	last          time.Time
	fps           float64

	energy []float64
	strain []float64
	err    error
}

type Option func(*Model)

func WithTheme(name string) Option {
	return func(m *Model) {
		if t, ok := GetTheme(name); ok {
			m.theme = t
		}
	}
}

// WithLayers selects which wireframe layers are drawn initially.
func WithLayers(l Layer) Option {
	return func(m *Model) { m.layers = l }
}

func WithSize(w, h int) Option {
	return func(m *Model) { m.width, m.height = w, h }
}

func NewModel(cfg *config.Config, log *zap.Logger, opts ...Option) (*Model, error) {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Model{
		cfg:     cfg.Clone(),
		log:     log,
		camera:  NewCamera(),
		wire:    NewWireframe(),
		theme:   Themes[0],
		layers:  LayerStructural | LayerField | LayerPinned,
		width:   60,
		height:  24,
		running: true,
		speed:   1,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.styles = NewStyles(m.theme)
	m.canvas = NewCanvas(m.width, m.height)
	m.camera.RotateX(0.3)

	if err := m.reset(); err != nil {
		return nil, err
	}
	m.fit()
	return m, nil
}

// reset rebuilds the experiment from the current config.
func (m *Model) reset() error {
	exp := experiment.New(m.cfg.Clone(), m.log)
	if err := exp.Setup("max_strain"); err != nil {
		return err
	}
	m.exp = exp
	m.springs = exp.Cloth().Network().Springs()
	m.frame = exp.Driver().Current()
	m.energy = m.energy[:0]
	m.strain = m.strain[:0]
	m.last = time.Time{}
	m.err = nil
	m.log.Debug("live view reset", zap.String("name", m.cfg.Name))
	return nil
}

// fit points the camera at the cloth and the field together.
func (m *Model) fit() {
	m.buildWireframe()
	m.camera.Fit(m.wire.Bounds())
}

func (m *Model) buildWireframe() {
	m.wire.Clear()
	m.wire.AddCloth(m.frame.Positions, m.springs, m.cfg.Cloth.Width)
	if f := m.exp.Field(); f != nil {
		m.wire.AddField(f.Cells(), arrowLength*m.cfg.Cloth.Spacing)
	}
}

func (m *Model) Init() tea.Cmd { return tick() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case TickMsg:
		now := time.Time(msg)
		if m.running && !m.last.IsZero() {
			wall := now.Sub(m.last).Seconds()
			if wall > 0 {
				m.fps = 0.9*m.fps + 0.1/wall
			}
			m.advance(wall * m.speed)
		}
		m.last = now
		return m, tick()
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return tea.Quit
	case " ":
		m.running = !m.running
		m.last = time.Time{}
	case "r":
		if err := m.reset(); err != nil {
			m.err = err
		}
	case ".":
		if !m.running {
			m.advance(m.cfg.Sim.FrameDt)
		}
	case "tab":
		m.selected = (m.selected + 1) % len(LiveParams)
	case "up", "k":
		m.tune(tuneFactor)
	case "down", "j":
		m.tune(1 / tuneFactor)
	case ">":
		m.speed = math.Min(m.speed*2, 8)
	case "<":
		m.speed = math.Max(m.speed/2, 0.125)
	case "f":
		m.layers ^= LayerField
	case "s":
		m.layers ^= LayerShear
	case "t":
		m.theme = NextTheme(m.theme.Name)
		m.styles = NewStyles(m.theme)
	case "?":
		m.showHelp = !m.showHelp
	case "x":
		m.camera.RotateX(rotateStep)
	case "X":
		m.camera.RotateX(-rotateStep)
	case "y":
		m.camera.RotateY(rotateStep)
	case "Y":
		m.camera.RotateY(-rotateStep)
	case "z":
		m.camera.RotateZ(rotateStep)
	case "Z":
		m.camera.RotateZ(-rotateStep)
	case "+", "=":
		m.camera.ZoomIn()
	case "-":
		m.camera.ZoomOut()
	case "c":
		m.fit()
	}
	return nil
}

// advance steps the driver by one frame of dt seconds.
func (m *Model) advance(dt float64) {
	frame, err := m.exp.Driver().Frame(dt)
	if err != nil {
		m.err = err
		m.running = false
		return
	}
	m.frame = frame
	if !frame.IsValid() {
		m.err = &dynamo.SimulationError{Frame: frame.Index, Time: frame.Time, Wrapped: dynamo.ErrInvalidState}
		m.running = false
		m.log.Warn("live simulation diverged", zap.Int("frame", frame.Index))
		return
	}
	m.energy = pushHistory(m.energy, metrics.FrameEnergy(frame))
	m.strain = pushHistory(m.strain, metrics.FrameStrain(frame, m.springs))
}

func pushHistory(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyCapacity {
		h = h[len(h)-historyCapacity:]
	}
	return h
}

// tune scales the selected parameter and rebuilds the simulation. Invalid
// values are rolled back.
func (m *Model) tune(factor float64) {
	key := LiveParams[m.selected]
	prev := m.cfg.Clone()
	value := m.cfg.GetParams()[key] * factor
	if err := m.cfg.SetParam(key, value); err != nil {
		m.err = err
		return
	}
	if err := m.reset(); err != nil {
		m.cfg = prev
		_ = m.reset()
		m.err = err
		return
	}
	m.log.Info("parameter tuned", zap.String("param", key), zap.Float64("value", value))
}

// resize fits the canvas into the window next to the stats panel.
func (m *Model) resize(w, h int) {
	m.width = max(w-statsWidth-6, 10)
	m.height = max(h-4, 5)
	m.canvas = NewCanvas(m.width, m.height)
}

const statsWidth = 36

func (m *Model) draw() {
	m.canvas.Clear()
	m.buildWireframe()
	Render3D(m.canvas, m.wire, m.camera, m.layers)
}

func (m *Model) View() string {
	m.draw()
	canvas := m.styles.Canvas.Render(m.canvas.String())
	main := lipgloss.JoinHorizontal(lipgloss.Top, canvas, m.styles.Panel.Width(statsWidth).Render(m.stats()))
	if m.showHelp {
		return helpText + "\n" + main
	}
	return main
}

func (m *Model) stats() string {
	st := m.styles
	var s strings.Builder

	title := m.cfg.Name
	if title == "" {
		title = "cloth"
	}
	s.WriteString(st.Header.Render(strings.ToUpper(title)) + "\n")

	switch {
	case m.err != nil:
		s.WriteString(st.Error.Render("ERROR") + " " + m.err.Error() + "\n\n")
	case m.running:
		s.WriteString(st.Running.Render(fmt.Sprintf("RUNNING x%.3g", m.speed)) + "\n\n")
	default:
		s.WriteString(st.Paused.Render("PAUSED") + "\n\n")
	}

	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy, asciigraph.Height(4), asciigraph.Width(statsWidth-10), asciigraph.Caption("kinetic energy"))
		s.WriteString(st.Graph.Render(chart) + "\n\n")
	}

	d := m.exp.Driver()
	row := func(label, value string) {
		s.WriteString(st.Label.Render(label) + st.Value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", d.Time()))
	row("Physics", fmt.Sprintf("%.2fs", d.PhysicsTime()))
	row("Ticks", fmt.Sprintf("%d (%d last)", d.Ticks(), m.frame.Ticks))
	row("Dropped", fmt.Sprintf("%.3fs", d.DroppedTime()))
	row("FPS", fmt.Sprintf("%.0f", m.fps))
	row("Points", fmt.Sprintf("%d", len(m.frame.Positions)))
	if f := m.exp.Field(); f != nil {
		row("Cells", fmt.Sprintf("%d", f.Len()))
	} else {
		row("Cells", "off")
	}
	if len(m.energy) > 0 {
		row("Energy", fmt.Sprintf("%.3f", m.energy[len(m.energy)-1]))
	}

	limit := m.cfg.Cloth.Elasticity - 1
	s.WriteString(st.Label.Render("Strain") + st.Sparkline(m.strain, 16, limit) + "\n")
	if peak, ok := m.exp.Metric("max_strain"); ok {
		row("Peak", fmt.Sprintf("%.4f", peak.Value()))
	}

	s.WriteString("\n" + Separator(statsWidth-4) + "\n")
	params := m.cfg.GetParams()
	for i, key := range LiveParams {
		line := fmt.Sprintf("%-17s %8.3f", key, params[key])
		if i == m.selected {
			s.WriteString(st.Active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + st.Label.UnsetWidth().Render(line) + "\n")
		}
	}

	s.WriteString(st.Help.Render("\nSP:Pause R:Reset Q:Quit ?:Help\nTab/↑↓:Tune F:Field S:Shear"))
	return s.String()
}

const helpText = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  .        - Single frame when paused ║
║  R        - Reset simulation         ║
║  Q        - Quit                     ║
║  Tab      - Cycle parameters         ║
║  Up/K     - Increase parameter (10%) ║
║  Down/J   - Decrease parameter (10%) ║
║  < >      - Slow down / speed up     ║
║  F        - Toggle field arrows      ║
║  S        - Toggle shear springs     ║
║  x y z    - Rotate (shift reverses)  ║
║  + -      - Zoom                     ║
║  C        - Recenter camera          ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
`
