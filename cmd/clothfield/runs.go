package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	jsoniter "github.com/json-iterator/go"
	"github.com/san-kum/clothfield/internal/analysis"
	"github.com/san-kum/clothfield/internal/cloth"
	"github.com/san-kum/clothfield/internal/config"
	"github.com/san-kum/clothfield/internal/dynamo"
	"github.com/san-kum/clothfield/internal/export"
	"github.com/san-kum/clothfield/internal/field"
	"github.com/san-kum/clothfield/internal/metrics"
	"github.com/san-kum/clothfield/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// loadedRun is a stored run read back from disk.
type loadedRun struct {
	meta   *storage.RunMetadata
	cfg    *config.Config
	frames []dynamo.Frame
}

func loadRun(runID string) (*loadedRun, error) {
	st := storage.New(v.GetString("data"))
	meta, err := st.Load(runID)
	if err != nil {
		return nil, err
	}
	cfg, err := st.LoadConfig(runID)
	if err != nil {
		return nil, err
	}
	frames, err := st.LoadFrames(runID)
	if err != nil {
		return nil, err
	}
	return &loadedRun{meta: meta, cfg: cfg, frames: frames}, nil
}

func (r *loadedRun) result() *dynamo.Result {
	return &dynamo.Result{
		Frames:      r.frames,
		Metrics:     r.meta.Metrics,
		FramesRun:   r.meta.Frames,
		FixedTicks:  r.meta.FixedTicks,
		DroppedTime: r.meta.DroppedTime,
	}
}

// point resolves a point index; negative values count from the end, so -1
// is the free corner of the last row.
func (r *loadedRun) point(i int) (int, error) {
	n := r.cfg.Cloth.Width * r.cfg.Cloth.Height
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("%w: point %d outside a %d point cloth", dynamo.ErrInvalidConfig, i, n)
	}
	return i, nil
}

func (r *loadedRun) requireFrames() error {
	if len(r.frames) == 0 {
		return fmt.Errorf("run %s has no recorded frames", r.meta.ID)
	}
	return nil
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(v.GetString("data"))
			runs, err := st.List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTIME\tGRID\tCELLS\tDURATION\tFRAMES\tTICKS")
			for _, run := range runs {
				cells := "off"
				if run.FieldOn {
					cells = fmt.Sprintf("%dx%dx%d", run.Cells[0], run.Cells[1], run.Cells[2])
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%dx%d\t%s\t%.2fs\t%d\t%d\n",
					run.ID,
					displayName(run.Name),
					run.Timestamp.Format("2006-01-02 15:04:05"),
					run.Width, run.Height,
					cells,
					run.Duration,
					run.Frames,
					run.FixedTicks,
				)
			}
			return w.Flush()
		},
	}
}

func newPlotCmd() *cobra.Command {
	var (
		point int
		axis  string
	)
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a point trajectory, kinetic energy and mean height",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := loadRun(args[0])
			if err != nil {
				return err
			}
			if err := run.requireFrames(); err != nil {
				return err
			}
			p, err := run.point(point)
			if err != nil {
				return err
			}
			ax, ok := analysis.ParseAxis(axis)
			if !ok {
				return fmt.Errorf("%w: unknown axis %q", dynamo.ErrInvalidConfig, axis)
			}

			fmt.Printf("run: %s\n", run.meta.ID)
			fmt.Printf("frames: %d\n\n", len(run.frames))

			series := []struct {
				caption string
				data    []float64
			}{
				{fmt.Sprintf("point %d %s", p, axis), analysis.Series(run.frames, analysis.PointAxis(p, ax))},
				{"kinetic energy", analysis.Series(run.frames, metrics.FrameEnergy)},
				{"mean height", analysis.Series(run.frames, meanHeight)},
			}
			for _, s := range series {
				fmt.Println(asciigraph.Plot(s.data,
					asciigraph.Height(10),
					asciigraph.Width(80),
					asciigraph.Caption(s.caption),
				))
				fmt.Println()
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&point, "point", -1, "point index (negative counts from the end)")
	cmd.Flags().StringVar(&axis, "axis", "y", "coordinate to plot: x, y or z")
	return cmd
}

func meanHeight(f *dynamo.Frame) float64 {
	m := metrics.NewMeanHeight()
	m.Observe(f)
	return m.Value()
}

func newAnalyzeCmd() *cobra.Command {
	var (
		point int
		axis  string
		phase bool
	)
	cmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of a point trajectory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := loadRun(args[0])
			if err != nil {
				return err
			}
			if err := run.requireFrames(); err != nil {
				return err
			}
			p, err := run.point(point)
			if err != nil {
				return err
			}
			ax, ok := analysis.ParseAxis(axis)
			if !ok {
				return fmt.Errorf("%w: unknown axis %q", dynamo.ErrInvalidConfig, axis)
			}

			data := analysis.Series(run.frames, analysis.PointAxis(p, ax))
			dt := analysis.SampleInterval(run.frames)

			fmt.Printf("frequency analysis: %s\n", run.meta.ID)
			fmt.Printf("point %d, axis %s, %d samples every %.4fs\n\n", p, axis, len(data), dt)

			ps := analysis.PowerSpectrum(data)
			if len(ps) > 1 {
				fmt.Println(asciigraph.Plot(ps,
					asciigraph.Height(15),
					asciigraph.Width(80),
					asciigraph.Caption("power spectrum"),
				))
				fmt.Println()
			}

			freq, power := analysis.DominantFrequency(data, dt)
			fmt.Printf("dominant frequency: %.3f hz (power %.4g)\n", freq, power)
			if freq > 0 {
				fmt.Printf("period: %.3f s\n", 1/freq)
			}

			if phase {
				portrait := analysis.NewPhasePortrait(run.frames, p, ax)
				fmt.Printf("\nphase portrait (position vs velocity, %s):\n", axis)
				fmt.Println(portrait.ToASCII(70, 20))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&point, "point", -1, "point index (negative counts from the end)")
	cmd.Flags().StringVar(&axis, "axis", "y", "coordinate to analyze: x, y or z")
	cmd.Flags().BoolVar(&phase, "phase", false, "also print the phase portrait")
	return cmd
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(v.GetString("data"))
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(meta)
		},
	}
}

func newExportCSVCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export recorded frames as CSV, one row per point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := loadRun(args[0])
			if err != nil {
				return err
			}
			w, err := output(out)
			if err != nil {
				return err
			}
			defer w.Close()
			if err := storage.WriteFrames(w, run.frames); err != nil {
				return err
			}
			logger.Info("exported csv", zap.String("run", run.meta.ID), zap.Int("frames", len(run.frames)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newExportJSONCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run with its frames as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := loadRun(args[0])
			if err != nil {
				return err
			}
			w, err := output(out)
			if err != nil {
				return err
			}
			defer w.Close()
			return storage.ExportJSON(w, run.cfg, run.result())
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newSVGCmd() *cobra.Command {
	var (
		out         string
		frame       int
		trajectory  bool
		point       int
		axis        string
		hideSprings bool
		hideField   bool
	)
	opts := export.DefaultSVGOptions()
	cmd := &cobra.Command{
		Use:   "svg [run_id]",
		Short: "render a recorded frame, or a phase portrait, as SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := loadRun(args[0])
			if err != nil {
				return err
			}
			if err := run.requireFrames(); err != nil {
				return err
			}

			var doc string
			if trajectory {
				p, err := run.point(point)
				if err != nil {
					return err
				}
				ax, ok := analysis.ParseAxis(axis)
				if !ok {
					return fmt.Errorf("%w: unknown axis %q", dynamo.ErrInvalidConfig, axis)
				}
				portrait := analysis.NewPhasePortrait(run.frames, p, ax)
				doc = export.TrajectoryToSVG(portrait.Points, opts.Width, opts.Height, opts.Arrow)
			} else {
				scene, err := run.scene(frame)
				if err != nil {
					return err
				}
				opts.Springs = !hideSprings
				opts.Field = !hideField && len(scene.Cells) > 0
				doc = export.FrameSVG(scene, opts)
			}

			w, err := output(out)
			if err != nil {
				return err
			}
			defer w.Close()
			_, err = fmt.Fprint(w, doc)
			return err
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&out, "output", "o", "", "output file (default stdout)")
	fs.IntVar(&frame, "frame", -1, "recorded frame to draw (negative counts from the end)")
	fs.BoolVar(&trajectory, "trajectory", false, "draw the phase portrait of one point instead")
	fs.IntVar(&point, "point", -1, "point for --trajectory")
	fs.StringVar(&axis, "axis", "y", "axis for --trajectory")
	fs.IntVar(&opts.Width, "svg-width", opts.Width, "image width")
	fs.IntVar(&opts.Height, "svg-height", opts.Height, "image height")
	fs.Float64Var(&opts.Yaw, "yaw", opts.Yaw, "camera yaw in radians")
	fs.Float64Var(&opts.Pitch, "pitch", opts.Pitch, "camera pitch in radians")
	fs.Float64Var(&opts.Zoom, "zoom", opts.Zoom, "camera zoom")
	fs.BoolVar(&hideSprings, "no-springs", false, "do not draw spring lines")
	fs.BoolVar(&hideField, "no-arrows", false, "do not draw field arrows")
	return cmd
}

// scene rebuilds the spring network and the field lattice of a stored run
// around one recorded frame. Field vectors are regenerated at the frame's
// physics time; they match the run only when its field seed was fixed.
func (r *loadedRun) scene(index int) (export.Scene, error) {
	if index < 0 {
		index += len(r.frames)
	}
	if index < 0 || index >= len(r.frames) {
		return export.Scene{}, fmt.Errorf("%w: frame %d of %d", dynamo.ErrInvalidConfig, index, len(r.frames))
	}
	f := r.frames[index]

	c, err := cloth.New(r.cfg.ClothParams(), r.cfg.Positions(), nil)
	if err != nil {
		return export.Scene{}, err
	}
	scene := export.Scene{
		Positions: f.Positions,
		Springs:   c.Network().Springs(),
		Width:     r.cfg.Cloth.Width,
		Height:    r.cfg.Cloth.Height,
	}

	if r.cfg.Field.Enabled {
		fl, err := field.New(r.cfg.FieldConfig(), nil)
		if err != nil {
			return export.Scene{}, err
		}
		if r.cfg.Field.Seed == 0 {
			logger.Warn("field seed was time based, arrows will not match the run", zap.String("run", r.meta.ID))
		}
		fl.Update(f.PhysicsTime)
		scene.Cells = fl.Cells()
	}
	return scene, nil
}
