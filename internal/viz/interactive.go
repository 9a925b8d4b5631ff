package viz

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/clothfield/internal/config"
	"go.uber.org/zap"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// SetupParams are offered for editing before a preset starts.
var SetupParams = []string{
	"cloth.width",
	"cloth.height",
	"cloth.stiffness",
	"cloth.elasticity",
	"field.cells",
	"field.seed",
	"field.scale",
	"field.speed",
}

const (
	stateMenu = iota
	stateConfig
	stateSim
)

// App is the interactive entry point: pick a preset, adjust it, then watch
// it run in a live Model.
type App struct {
	log   *zap.Logger
	state int

	presets []string
	cursor  int

	cfg         *config.Config
	paramCursor int
	editing     bool
	editBuf     string
	err         error

	width, height int
	live          *Model
}

func NewApp(log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{
		log:     log,
		state:   stateMenu,
		presets: config.ListPresets(),
		width:   100,
		height:  30,
	}
}

func (a *App) Init() tea.Cmd { return nil }

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		a.width, a.height = ws.Width, ws.Height
	}
	if a.state == stateSim {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			a.state, a.live = stateConfig, nil
			return a, nil
		}
		_, cmd := a.live.Update(msg)
		return a, cmd
	}
	if k, ok := msg.(tea.KeyMsg); ok {
		switch a.state {
		case stateMenu:
			return a, a.menuKey(k)
		case stateConfig:
			return a, a.configKey(k)
		}
	}
	return a, nil
}

func (a *App) menuKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(a.presets)-1 {
			a.cursor++
		}
	case "enter", " ":
		a.cfg = config.GetPreset(a.presets[a.cursor])
		a.state, a.paramCursor, a.err = stateConfig, 0, nil
	}
	return nil
}

func (a *App) configKey(msg tea.KeyMsg) tea.Cmd {
	key := SetupParams[a.paramCursor]
	if a.editing {
		switch msg.String() {
		case "enter":
			a.editing = false
			v, err := strconv.ParseFloat(a.editBuf, 64)
			if err != nil {
				a.err = fmt.Errorf("%s: %w", key, err)
				return nil
			}
			a.set(key, v)
		case "esc":
			a.editing, a.editBuf = false, ""
		case "backspace":
			if len(a.editBuf) > 0 {
				a.editBuf = a.editBuf[:len(a.editBuf)-1]
			}
		default:
			if s := msg.String(); len(s) == 1 && strings.ContainsAny(s, "0123456789.-e") {
				a.editBuf += s
			}
		}
		return nil
	}

	switch msg.String() {
	case "ctrl+c":
		return tea.Quit
	case "q", "esc":
		a.state = stateMenu
	case "up", "k":
		if a.paramCursor > 0 {
			a.paramCursor--
		}
	case "down", "j":
		if a.paramCursor < len(SetupParams)-1 {
			a.paramCursor++
		}
	case "enter", " ":
		a.editing = true
		a.editBuf = strconv.FormatFloat(a.cfg.GetParams()[key], 'g', -1, 64)
	case "s":
		return a.start()
	}
	return nil
}

func (a *App) set(key string, v float64) {
	if err := a.cfg.SetParam(key, v); err != nil {
		a.err = err
		return
	}
	a.err = a.cfg.Validate()
}

func (a *App) start() tea.Cmd {
	if err := a.cfg.Validate(); err != nil {
		a.err = err
		return nil
	}
	live, err := NewModel(a.cfg, a.log, WithSize(max(a.width-statsWidth-6, 10), max(a.height-4, 5)))
	if err != nil {
		a.err = err
		return nil
	}
	a.live, a.state = live, stateSim
	a.log.Info("starting live view", zap.String("preset", a.cfg.Name))
	return live.Init()
}

func (a *App) View() string {
	switch a.state {
	case stateSim:
		return a.live.View()
	case stateConfig:
		return a.configView()
	}
	return a.menuView()
}

func (a *App) menuView() string {
	var s strings.Builder
	s.WriteString(cyan.Render("CLOTHFIELD") + dim.Render("  choose a preset") + "\n\n")
	for i, name := range a.presets {
		line := fmt.Sprintf("%-14s %s", name, dim.Render(config.Presets[name].Description))
		if i == a.cursor {
			s.WriteString(yellow.Render("> ") + white.Render(line) + "\n")
		} else {
			s.WriteString("  " + line + "\n")
		}
	}
	s.WriteString(dim.Render("\n↑↓ select  enter choose  q quit"))
	return s.String()
}

func (a *App) configView() string {
	var s strings.Builder
	s.WriteString(cyan.Render(strings.ToUpper(a.cfg.Name)) + dim.Render("  "+config.Presets[a.cfg.Name].Description) + "\n\n")
	params := a.cfg.GetParams()
	for i, key := range SetupParams {
		value := strconv.FormatFloat(params[key], 'g', 6, 64)
		if i == a.paramCursor && a.editing {
			value = a.editBuf + "_"
		}
		line := fmt.Sprintf("%-18s %s", key, value)
		if i == a.paramCursor {
			s.WriteString(yellow.Render("> ") + white.Render(line) + "\n")
		} else {
			s.WriteString("  " + dim.Render(line) + "\n")
		}
	}
	if a.err != nil {
		s.WriteString("\n" + red.Render(a.err.Error()) + "\n")
	}
	s.WriteString(dim.Render("\n↑↓ select  enter edit  s start  esc back"))
	return s.String()
}
