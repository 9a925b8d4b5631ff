package main

import (
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/clothfield/internal/config"
	"github.com/san-kum/clothfield/internal/observability"
	"github.com/san-kum/clothfield/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLiveCmd() *cobra.Command {
	var (
		theme string
		shear bool
	)
	cmd := &cobra.Command{
		Use:   "live",
		Short: "run the cloth interactively in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := currentConfig()
			if err != nil {
				return err
			}
			log := tuiLogger(cfg.Logger)
			defer observability.Sync(log)

			layers := viz.LayerStructural | viz.LayerField | viz.LayerPinned
			if shear {
				layers |= viz.LayerShear
			}
			m, err := viz.NewModel(cfg, log, viz.WithTheme(theme), viz.WithLayers(layers))
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
	addConfigFlags(cmd)
	cmd.Flags().StringVar(&theme, "theme", "cyberpunk", "color theme: "+strings.Join(viz.ThemeNames(), ", "))
	cmd.Flags().BoolVar(&shear, "shear", false, "draw shear springs")
	return cmd
}

// runApp opens the preset browser.
func runApp() error {
	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	log := tuiLogger(cfg.Logger)
	defer observability.Sync(log)

	_, err = tea.NewProgram(viz.NewApp(log), tea.WithAltScreen()).Run()
	return err
}

// tuiLogger keeps log output off the terminal while a program owns it; only
// the log file, if any, receives entries.
func tuiLogger(cfg config.LoggerConfig) *zap.Logger {
	if cfg.LogFile == "" {
		return zap.NewNop()
	}
	return observability.New(cfg, zapcore.AddSync(io.Discard))
}
