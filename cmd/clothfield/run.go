package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/san-kum/clothfield/internal/dynamo"
	"github.com/san-kum/clothfield/internal/experiment"
	"github.com/san-kum/clothfield/internal/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd() *cobra.Command {
	var (
		metricNames []string
		noSave      bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and store its frames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := currentConfig()
			if err != nil {
				return err
			}

			exp := experiment.New(cfg, logger.Named("experiment"))
			if err := exp.Setup(metricNames...); err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			fmt.Printf("running %s (%dx%d cloth, %.2fs)...\n",
				displayName(cfg.Name), cfg.Cloth.Width, cfg.Cloth.Height, cfg.Sim.Duration)
			start := time.Now()
			result, err := exp.Run(ctx)
			if result == nil {
				return err
			}
			if err != nil {
				logger.Warn("run stopped early", zap.Error(err))
			}
			elapsed := time.Since(start)

			fmt.Printf("completed in %v\n", elapsed.Round(time.Millisecond))
			fmt.Printf("frames: %d, fixed ticks: %d, dropped: %.3fs\n",
				result.FramesRun, result.FixedTicks, result.DroppedTime)

			if !noSave {
				st, err := openStore()
				if err != nil {
					return err
				}
				runID, err := st.Save(cfg, result)
				if err != nil {
					return err
				}
				fmt.Printf("run id: %s\n", runID)
			}

			printMetrics(result)
			if m, ok := exp.Metric("stability"); ok {
				if st, ok := m.(*metrics.Stability); ok && st.FirstUnstable() >= 0 {
					fmt.Printf("\nfirst unstable frame: %d\n", st.FirstUnstable())
				}
			}
			return err
		},
	}
	addConfigFlags(cmd)
	cmd.Flags().StringSliceVar(&metricNames, "metrics", nil, "metrics to compute (default all)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	return cmd
}

func printMetrics(result *dynamo.Result) {
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}
}

func displayName(name string) string {
	if name == "" {
		return "default"
	}
	return name
}

func newBenchCmd() *cobra.Command {
	var sizes []int
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark the physics step over grid sizes and step lengths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := currentConfig()
			if err != nil {
				return err
			}
			fixedDts := []float64{0.02, 0.01, 0.005}

			ctx, cancel := signalContext()
			defer cancel()

			fmt.Printf("benchmarking %s over %.1fs simulated\n\n", displayName(base.Name), base.Sim.Duration)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "GRID\tSPRINGS\tFIXED DT\tTICKS\tTIME\tTICKS/SEC")

			for _, n := range sizes {
				for _, dt := range fixedDts {
					cfg := base.Clone()
					cfg.Cloth.Width, cfg.Cloth.Height = n, n
					cfg.Sim.FixedDt = dt
					cfg.Sim.RecordEvery = 0
					cfg.Sim.MaxSubsteps = max(cfg.Sim.MaxSubsteps, int(cfg.Sim.FrameDt/dt)+1)

					exp := experiment.New(cfg, nil)
					if err := exp.Setup("stability"); err != nil {
						return err
					}

					start := time.Now()
					result, err := exp.Run(ctx)
					if err != nil {
						return err
					}
					elapsed := time.Since(start)

					fmt.Fprintf(w, "%dx%d\t%d\t%.4fs\t%d\t%v\t%.0f\n",
						n, n, exp.Cloth().Network().Len(), dt, result.FixedTicks,
						elapsed.Round(time.Microsecond), float64(result.FixedTicks)/elapsed.Seconds())
				}
			}
			return w.Flush()
		},
	}
	addConfigFlags(cmd)
	cmd.Flags().IntSliceVar(&sizes, "sizes", []int{10, 20, 40}, "grid sizes to benchmark")
	return cmd
}
