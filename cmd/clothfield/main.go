package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/san-kum/clothfield/internal/config"
	"github.com/san-kum/clothfield/internal/dynamo"
	"github.com/san-kum/clothfield/internal/observability"
	"github.com/san-kum/clothfield/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "CLOTHFIELD"

var (
	v      = newViper()
	logger = zap.NewNop()
)

// configFlag maps a command line flag onto a dotted config parameter.
type configFlag struct {
	key, flag, usage string
}

var configFlags = []configFlag{
	{"cloth.width", "width", "particles per row"},
	{"cloth.height", "height", "particle rows"},
	{"cloth.spacing", "spacing", "initial distance between grid nodes"},
	{"cloth.elasticity", "elasticity", "spring max-length factor"},
	{"cloth.stiffness", "stiffness", "spring force per unit stretch"},
	{"cloth.gravity_y", "gravity-y", "vertical gravity"},
	{"field.cells", "cells", "field cells along each axis"},
	{"field.scale", "scale", "noise spatial frequency"},
	{"field.speed", "speed", "noise temporal frequency"},
	{"field.seed", "seed", "cell seed (0 = time)"},
	{"sim.fixed_dt", "fixed-dt", "physics step"},
	{"sim.frame_dt", "frame-dt", "render frame time"},
	{"sim.duration", "time", "simulated duration"},
	{"sim.max_substeps", "max-substeps", "fixed ticks allowed per frame"},
	{"sim.record_every", "record-every", "record every n-th frame (0 = none)"},
	{"sim.frame_jitter", "jitter", "frame time jitter fraction in [0, 1)"},
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		observability.Sync(logger)
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "clothfield",
		Short:         "cloth simulation in a noise force field",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			observability.Sync(logger)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp()
		},
	}

	pf := root.PersistentFlags()
	pf.String("data", ".clothfield", "data directory")
	pf.String("config", "", "config file path (yaml)")
	pf.String("preset", "", "start from a named preset")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: console, json")
	pf.String("log-file", "", "also write JSON logs to this file")
	for key, flag := range map[string]string{
		"data":           "data",
		"config":         "config",
		"preset":         "preset",
		"logger.level":   "log-level",
		"logger.format":  "log-format",
		"logger.logfile": "log-file",
	} {
		_ = v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		newRunCmd(),
		newListCmd(),
		newPlotCmd(),
		newAnalyzeCmd(),
		newExportCmd(),
		newExportCSVCmd(),
		newExportJSONCmd(),
		newSVGCmd(),
		newLiveCmd(),
		newBenchCmd(),
		newPresetsCmd(),
		newScenarioCmd(),
		newSweepCmd(),
		newMonteCarloCmd(),
		newConfigCmd(),
	)
	return root
}

// addConfigFlags registers the simulation flags on cmd. They are bound to
// viper only when cmd runs, since a key can be bound to one flag at a time.
func addConfigFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	for _, f := range configFlags {
		fs.Float64(f.flag, 0, f.usage)
	}
	fs.Bool("no-field", false, "disable field forces (gravity only)")
}

func setup(cmd *cobra.Command) error {
	fs := cmd.Flags()
	for _, f := range configFlags {
		if fl := fs.Lookup(f.flag); fl != nil {
			if err := v.BindPFlag(f.key, fl); err != nil {
				return err
			}
		}
	}
	if fl := fs.Lookup("no-field"); fl != nil {
		if err := v.BindPFlag("no-field", fl); err != nil {
			return err
		}
	}

	cfg, err := resolveConfig(v)
	if err != nil {
		return err
	}
	logger = observability.NewStderr(cfg.Logger)
	return nil
}

// resolveConfig layers defaults, the preset, the config file, then
// environment variables and flags, each overriding the one before.
func resolveConfig(v *viper.Viper) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if name := v.GetString("preset"); name != "" {
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, fmt.Errorf("%w: unknown preset %q (available: %s)",
				dynamo.ErrInvalidConfig, name, strings.Join(config.ListPresets(), ", "))
		}
	}

	if path := v.GetString("config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if cfg, err = config.Parse(data, cfg); err != nil {
			return nil, err
		}
	}

	// Sorted, so field.cells is applied before field.cells_x and friends.
	for _, key := range config.ParamNames() {
		if !v.IsSet(key) {
			continue
		}
		if err := cfg.SetParam(key, v.GetFloat64(key)); err != nil {
			return nil, err
		}
	}
	if v.IsSet("field.enabled") {
		cfg.Field.Enabled = v.GetBool("field.enabled")
	}
	if v.GetBool("no-field") {
		cfg.Field.Enabled = false
	}

	if v.IsSet("logger.level") {
		cfg.Logger.Level = v.GetString("logger.level")
	}
	if v.IsSet("logger.format") {
		cfg.Logger.Format = v.GetString("logger.format")
	}
	if v.IsSet("logger.logfile") {
		cfg.Logger.LogFile = v.GetString("logger.logfile")
	}
	return cfg, nil
}

func currentConfig() (*config.Config, error) {
	cfg, err := resolveConfig(v)
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func openStore() (*storage.Store, error) {
	st := storage.New(v.GetString("data"))
	return st, st.Init()
}

// signalContext is cancelled on interrupt so long runs stop between frames.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// output opens path for writing, or stdout when path is empty or "-".
func output(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}
