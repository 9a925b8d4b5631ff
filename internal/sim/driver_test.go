package sim_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/clothfield/internal/cloth"
	"github.com/san-kum/clothfield/internal/dynamo"
	"github.com/san-kum/clothfield/internal/field"
	"github.com/san-kum/clothfield/internal/sim"
	"gonum.org/v1/gonum/spatial/r3"
)

// recorder logs every call made by the driver in order.
type recorder struct {
	calls []string
}

type fakeCloth struct {
	rec       *recorder
	positions []r3.Vec
}

func (c *fakeCloth) AdvancePhysics(dt float64) {
	c.rec.calls = append(c.rec.calls, fmt.Sprintf("physics(%g)", dt))
}

func (c *fakeCloth) AdvanceRender(dt float64) {
	c.rec.calls = append(c.rec.calls, fmt.Sprintf("render(%g)", dt))
}

func (c *fakeCloth) PositionsInto(dst []r3.Vec) []r3.Vec {
	return append(dst[:0], c.positions...)
}

func (c *fakeCloth) VelocitiesInto(dst []r3.Vec) []r3.Vec {
	return append(dst[:0], make([]r3.Vec, len(c.positions))...)
}

type fakeField struct{ rec *recorder }

func (f *fakeField) Update(elapsed float64) {
	f.rec.calls = append(f.rec.calls, fmt.Sprintf("update(%g)", elapsed))
}

type countingObserver struct {
	frames []int
	ticks  []int
}

func (o *countingObserver) OnFrame(f *dynamo.Frame) {
	o.frames = append(o.frames, f.Index)
	o.ticks = append(o.ticks, f.Ticks)
}

type frameCounter struct{ n int }

func (m *frameCounter) Name() string            { return "frames" }
func (m *frameCounter) Observe(f *dynamo.Frame) { m.n++ }
func (m *frameCounter) Value() float64          { return float64(m.n) }
func (m *frameCounter) Reset()                  { m.n = 0 }

func testConfig() dynamo.Config {
	cfg := dynamo.DefaultConfig()
	cfg.FixedDt = 0.25
	cfg.FrameDt = 0.5
	cfg.Duration = 2
	cfg.MaxSubsteps = 4
	return cfg
}

var _ = Describe("Driver", func() {
	var (
		rec *recorder
		cl  *fakeCloth
		fd  *fakeField
	)

	BeforeEach(func() {
		rec = &recorder{}
		cl = &fakeCloth{rec: rec, positions: []r3.Vec{{X: 1}, {Y: 2}}}
		fd = &fakeField{rec: rec}
	})

	newDriver := func(cfg dynamo.Config) *sim.Driver {
		d, err := sim.New(cl, fd, cfg)
		Expect(err).NotTo(HaveOccurred())
		return d
	}

	Describe("construction", func() {
		DescribeTable("rejects invalid scheduling",
			func(modify func(*dynamo.Config)) {
				cfg := testConfig()
				modify(&cfg)
				_, err := sim.New(cl, fd, cfg)
				Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
			},
			Entry("zero fixed dt", func(c *dynamo.Config) { c.FixedDt = 0 }),
			Entry("NaN fixed dt", func(c *dynamo.Config) { c.FixedDt = math.NaN() }),
			Entry("negative frame dt", func(c *dynamo.Config) { c.FrameDt = -1 }),
			Entry("no substeps", func(c *dynamo.Config) { c.MaxSubsteps = 0 }),
			Entry("negative record interval", func(c *dynamo.Config) { c.RecordEvery = -1 }),
			Entry("jitter of one", func(c *dynamo.Config) { c.FrameJitter = 1 }),
		)
	})

	Describe("Frame", func() {
		It("runs no physics tick when the frame is shorter than the fixed step", func() {
			d := newDriver(testConfig())

			f, err := d.Frame(0.125)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.Ticks).To(Equal(0))
			Expect(rec.calls).To(Equal([]string{"render(0.125)"}))

			f, err = d.Frame(0.125)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.Ticks).To(Equal(1))
			Expect(rec.calls[1:]).To(Equal([]string{"update(0)", "physics(0.25)", "render(0.125)"}))
		})

		It("runs several ticks for a long frame and renders once", func() {
			d := newDriver(testConfig())

			f, err := d.Frame(0.75)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.Ticks).To(Equal(3))
			Expect(rec.calls).To(Equal([]string{
				"update(0)", "physics(0.25)",
				"update(0.25)", "physics(0.25)",
				"update(0.5)", "physics(0.25)",
				"render(0.75)",
			}))
			Expect(d.PhysicsTime()).To(Equal(0.75))
			Expect(d.Time()).To(Equal(0.75))
		})

		It("regenerates the field before each force accumulation", func() {
			d := newDriver(testConfig())
			for i := 0; i < 5; i++ {
				_, err := d.Frame(0.375)
				Expect(err).NotTo(HaveOccurred())
			}

			for i, c := range rec.calls {
				if len(c) > 7 && c[:7] == "physics" {
					Expect(rec.calls[i-1]).To(HavePrefix("update("))
				}
			}
		})

		It("caps ticks per frame and drops the excess", func() {
			d := newDriver(testConfig())

			f, err := d.Frame(2.125)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.Ticks).To(Equal(4))
			Expect(d.DroppedTime()).To(Equal(1.0))

			// The fractional remainder is kept.
			f, err = d.Frame(0.125)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.Ticks).To(Equal(1))
			Expect(d.Ticks()).To(Equal(5))
		})

		It("runs without a field", func() {
			d, err := sim.New(cl, nil, testConfig())
			Expect(err).NotTo(HaveOccurred())

			_, err = d.Frame(0.5)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.calls).To(Equal([]string{"physics(0.25)", "physics(0.25)", "render(0.5)"}))
		})

		It("rejects a negative frame time", func() {
			d := newDriver(testConfig())
			_, err := d.Frame(-0.1)
			Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
			Expect(rec.calls).To(BeEmpty())
		})

		It("publishes a snapshot of the cloth to observers", func() {
			d := newDriver(testConfig())
			obs := &countingObserver{}
			d.AddObserver(obs)

			for _, dt := range []float64{0.125, 0.5, 0.25} {
				_, err := d.Frame(dt)
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(obs.frames).To(Equal([]int{1, 2, 3}))
			Expect(obs.ticks).To(Equal([]int{0, 2, 1}))
			Expect(d.Current().Positions).To(Equal(cl.positions))
		})
	})

	Describe("Run", func() {
		It("drives duration / frame dt frames", func() {
			d := newDriver(testConfig())
			counter := &frameCounter{}
			d.AddMetric(counter)

			result, err := d.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(result.FramesRun).To(Equal(4))
			Expect(result.FixedTicks).To(Equal(8))
			Expect(result.Frames).To(HaveLen(5))
			Expect(result.Times()).To(Equal([]float64{0, 0.5, 1, 1.5, 2}))
			Expect(result.Metrics).To(HaveKeyWithValue("frames", 5.0))
		})

		It("records every n-th frame", func() {
			cfg := testConfig()
			cfg.RecordEvery = 2
			d := newDriver(cfg)

			result, err := d.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Times()).To(Equal([]float64{0, 1, 2}))
		})

		It("records nothing with a zero interval", func() {
			cfg := testConfig()
			cfg.RecordEvery = 0
			d := newDriver(cfg)

			result, err := d.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Frames).To(BeEmpty())
			Expect(result.FramesRun).To(Equal(4))
		})

		It("stops when the context is cancelled", func() {
			d := newDriver(testConfig())
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			result, err := d.Run(ctx)
			Expect(err).To(MatchError(context.Canceled))
			Expect(result.FramesRun).To(Equal(0))
		})

		It("stops on an invalid state", func() {
			cl.positions[1] = r3.Vec{X: math.NaN()}
			d := newDriver(testConfig())

			result, err := d.Run(context.Background())
			var simErr *dynamo.SimulationError
			Expect(errors.As(err, &simErr)).To(BeTrue())
			Expect(simErr.Frame).To(Equal(1))
			Expect(err).To(MatchError(dynamo.ErrInvalidState))
			Expect(result.Errors).To(HaveLen(1))
			Expect(result.FramesRun).To(Equal(0))
		})

		It("ignores an invalid state when validation is off", func() {
			cl.positions[1] = r3.Vec{X: math.Inf(1)}
			cfg := testConfig()
			cfg.ValidateState = false
			d := newDriver(cfg)

			result, err := d.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(result.FramesRun).To(Equal(4))
		})

		It("jitters frame times deterministically", func() {
			cfg := testConfig()
			cfg.FrameJitter = 0.9
			cfg.Seed = 7

			times := func() []float64 {
				rec.calls = nil
				d := newDriver(cfg)
				result, err := d.Run(context.Background())
				Expect(err).NotTo(HaveOccurred())
				return result.Times()
			}

			first := times()
			Expect(times()).To(Equal(first))
			Expect(first[1]).NotTo(Equal(0.5))
		})

		It("rejects a non-positive duration", func() {
			cfg := testConfig()
			cfg.Duration = 0
			d := newDriver(cfg)
			_, err := d.Run(context.Background())
			Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
		})
	})

	Describe("with a real cloth and field", func() {
		It("keeps the pinned row in place and lets the rest fall", func() {
			fcfg := field.DefaultConfig()
			f, err := field.New(fcfg, rand.New(rand.NewSource(3)))
			Expect(err).NotTo(HaveOccurred())

			p := cloth.DefaultParams()
			p.Width, p.Height = 4, 4
			initial := cloth.PlaneLayout(p.Width, p.Height, 0.5, r3.Vec{})
			c, err := cloth.New(p, initial, f)
			Expect(err).NotTo(HaveOccurred())

			cfg := dynamo.DefaultConfig()
			cfg.Duration = 1
			d, err := sim.New(c, f, cfg)
			Expect(err).NotTo(HaveOccurred())

			result, err := d.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(result.FixedTicks).To(BeNumerically(">=", 49))

			final := result.Frames[len(result.Frames)-1].Positions
			for i := 0; i < p.Width; i++ {
				Expect(final[i]).To(Equal(initial[i]))
			}
			Expect(final[len(final)-1].Y).To(BeNumerically("<", initial[len(initial)-1].Y))
		})
	})
})
