package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/clothfield/internal/automation"
	"github.com/san-kum/clothfield/internal/config"
	"github.com/san-kum/clothfield/internal/dynamo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [name]",
		Short: "list presets, or print one as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg := config.GetPreset(args[0])
				if cfg == nil {
					return fmt.Errorf("%w: unknown preset %q", dynamo.ErrInvalidConfig, args[0])
				}
				enc := yaml.NewEncoder(os.Stdout)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(cfg)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDESCRIPTION")
			for _, name := range config.ListPresets() {
				fmt.Fprintf(w, "%s\t%s\n", name, config.Presets[name].Description)
			}
			return w.Flush()
		},
	}
}

func newScenarioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenario [file]",
		Short: "run the steps of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, err := automation.LoadScenario(args[0])
			if err != nil {
				return err
			}
			st, err := openStore()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			fmt.Printf("scenario: %s (%d steps)\n", scenario.Name, len(scenario.Steps))
			if scenario.Description != "" {
				fmt.Println(scenario.Description)
			}
			fmt.Println()

			results, err := automation.RunScenario(ctx, scenario, st, logger.Named("scenario"))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STEP\tPRESET\tFRAMES\tMEAN HEIGHT\tMAX STRAIN\tRUN ID")
			for _, r := range results {
				runID := r.RunID
				if runID == "" {
					runID = "-"
				}
				fmt.Fprintf(w, "%d\t%s\t%d\t%.4f\t%.4f\t%s\n",
					r.Step,
					displayName(r.Config.Name),
					r.Result.FramesRun,
					r.Result.Metrics["mean_height"],
					r.Result.Metrics["max_strain"],
					runID,
				)
			}
			if ferr := w.Flush(); ferr != nil && err == nil {
				err = ferr
			}
			return err
		},
	}
}

func newSweepCmd() *cobra.Command {
	var (
		param  string
		lo, hi float64
		steps  int
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "run once per value of a parameter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := currentConfig()
			if err != nil {
				return err
			}
			if _, ok := base.GetParams()[param]; !ok {
				return fmt.Errorf("%w: unknown parameter %q", dynamo.ErrInvalidConfig, param)
			}

			ctx, cancel := signalContext()
			defer cancel()

			fmt.Printf("sweeping %s from %g to %g in %d steps\n\n", param, lo, hi, steps)
			results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
				Base:      base,
				ParamName: param,
				ParamMin:  lo,
				ParamMax:  hi,
				NumSteps:  steps,
			}, logger.Named("sweep"))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\tMEAN ENERGY\tMAX STRAIN\tMEAN HEIGHT\tSTABLE\n", param)
			heights := make([]float64, 0, len(results))
			for _, r := range results {
				fmt.Fprintf(w, "%.4g\t%.4f\t%.4f\t%.4f\t%v\n",
					r.ParamValue, r.MeanEnergy, r.MaxStrain, r.MeanHeight, r.Stable)
				heights = append(heights, r.MeanHeight)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if len(heights) > 1 {
				fmt.Println()
				fmt.Println(asciigraph.Plot(heights,
					asciigraph.Height(10),
					asciigraph.Width(60),
					asciigraph.Caption("mean height vs "+param),
				))
			}
			return nil
		},
	}
	addConfigFlags(cmd)
	cmd.Flags().StringVar(&param, "param", "cloth.stiffness", "parameter to sweep")
	cmd.Flags().Float64Var(&lo, "min", 20, "first value")
	cmd.Flags().Float64Var(&hi, "max", 100, "last value")
	cmd.Flags().IntVar(&steps, "steps", 5, "number of values")
	return cmd
}

func newMonteCarloCmd() *cobra.Command {
	var (
		trials int
		seed   int64
	)
	cmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "repeat a run with random field seeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := currentConfig()
			if err != nil {
				return err
			}
			if !base.Field.Enabled {
				logger.Warn("field is disabled, every trial will be identical")
			}

			ctx, cancel := signalContext()
			defer cancel()

			fmt.Printf("running %d trials of %s\n", trials, displayName(base.Name))
			results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
				Base:      base,
				NumTrials: trials,
				Seed:      seed,
			}, logger.Named("montecarlo"))
			if err != nil {
				return err
			}

			stable, unstable := automation.MonteCarloStats(results)
			heights := make([]float64, len(results))
			for i, r := range results {
				heights[i] = r.MeanHeight
			}
			fmt.Printf("stable: %d, unstable: %d\n", stable, unstable)
			if len(heights) > 1 {
				fmt.Println(asciigraph.Plot(heights,
					asciigraph.Height(8),
					asciigraph.Width(60),
					asciigraph.Caption("mean height per trial"),
				))
			}
			logger.Info("monte carlo done", zap.Int("stable", stable), zap.Int("unstable", unstable))
			return nil
		},
	}
	addConfigFlags(cmd)
	cmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	cmd.Flags().Int64Var(&seed, "mc-seed", 0, "seed for the trial seeds (0 = time)")
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "work with config files",
	}
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the resolved config to a yaml file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := currentConfig()
			if err != nil {
				return err
			}
			path := "clothfield.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	addConfigFlags(initCmd)
	cmd.AddCommand(initCmd)
	return cmd
}
