package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/clothfield/internal/dynamo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Cloth is the part of a cloth simulator the driver steps.
type Cloth interface {
	AdvancePhysics(dt float64)
	AdvanceRender(dt float64)
	PositionsInto(dst []r3.Vec) []r3.Vec
	VelocitiesInto(dst []r3.Vec) []r3.Vec
}

// Field is a force source regenerated once per physics tick.
type Field interface {
	Update(elapsed float64)
}

type Option func(*Driver)

func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.log = l
		}
	}
}

type Driver struct {
	cloth     Cloth
	field     Field
	cfg       dynamo.Config
	log       *zap.Logger
	metrics   []dynamo.Metric
	observers []dynamo.Observer

	acc         float64
	time        float64
	physicsTime float64
	frames      int
	ticks       int
	dropped     float64
	frame       dynamo.Frame
}

// New creates a driver for cloth. field may be nil for a gravity-only run.
func New(cloth Cloth, field Field, cfg dynamo.Config, opts ...Option) (*Driver, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	d := &Driver{
		cloth:     cloth,
		field:     field,
		cfg:       cfg,
		log:       zap.NewNop(),
		metrics:   make([]dynamo.Metric, 0),
		observers: make([]dynamo.Observer, 0),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.snapshot(0)
	return d, nil
}

func (d *Driver) AddMetric(m dynamo.Metric)     { d.metrics = append(d.metrics, m) }
func (d *Driver) AddObserver(o dynamo.Observer) { d.observers = append(d.observers, o) }

func (d *Driver) Config() dynamo.Config { return d.cfg }
func (d *Driver) Time() float64         { return d.time }
func (d *Driver) PhysicsTime() float64  { return d.physicsTime }
func (d *Driver) Ticks() int            { return d.ticks }
func (d *Driver) Frames() int           { return d.frames }
func (d *Driver) DroppedTime() float64  { return d.dropped }

// Current returns the most recent frame. It is overwritten by the next call
// to Frame.
func (d *Driver) Current() *dynamo.Frame { return &d.frame }

// Frame advances the simulation by one render frame of frameDt seconds and
// returns the published frame, which stays valid until the next call.
func (d *Driver) Frame(frameDt float64) (*dynamo.Frame, error) {
	if frameDt < 0 || math.IsNaN(frameDt) || math.IsInf(frameDt, 0) {
		return nil, fmt.Errorf("%w: frame dt must be finite and non-negative, got %f", dynamo.ErrInvalidConfig, frameDt)
	}

	fixed := d.cfg.FixedDt
	d.acc += frameDt

	ticks := 0
	for d.acc >= fixed && ticks < d.cfg.MaxSubsteps {
		if d.field != nil {
			d.field.Update(d.physicsTime)
		}
		d.cloth.AdvancePhysics(fixed)
		d.physicsTime += fixed
		d.acc -= fixed
		ticks++
	}

	if d.acc >= fixed {
		over := math.Floor(d.acc/fixed) * fixed
		d.dropped += over
		d.acc -= over
		d.log.Debug("substep limit reached, dropping time",
			zap.Int("frame", d.frames+1),
			zap.Int("max_substeps", d.cfg.MaxSubsteps),
			zap.Float64("dropped", over))
	}

	d.cloth.AdvanceRender(frameDt)
	d.time += frameDt
	d.frames++
	d.ticks += ticks

	d.snapshot(ticks)
	d.publish()
	return &d.frame, nil
}

// Run drives Duration/FrameDt frames on a simulated clock. Frame times are
// jittered by up to FrameJitter*FrameDt using a source seeded from Seed.
func (d *Driver) Run(ctx context.Context) (*dynamo.Result, error) {
	if d.cfg.Duration <= 0 || math.IsNaN(d.cfg.Duration) || math.IsInf(d.cfg.Duration, 0) {
		return nil, fmt.Errorf("%w: duration must be positive, got %f", dynamo.ErrInvalidConfig, d.cfg.Duration)
	}

	n := int(d.cfg.Duration/d.cfg.FrameDt + 1e-9)
	result := &dynamo.Result{
		Frames:  make([]dynamo.Frame, 0, n/max(d.cfg.RecordEvery, 1)+1),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range d.metrics {
		m.Reset()
	}

	jitter := rand.New(rand.NewSource(d.cfg.Seed))
	startTicks := d.ticks

	d.log.Info("run started",
		zap.Int("frames", n),
		zap.Float64("fixed_dt", d.cfg.FixedDt),
		zap.Float64("frame_dt", d.cfg.FrameDt))

	d.observe()
	d.record(result)

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			d.finish(result, startTicks)
			return result, ctx.Err()
		default:
		}

		dt := d.cfg.FrameDt
		if d.cfg.FrameJitter > 0 {
			dt *= 1 + d.cfg.FrameJitter*(2*jitter.Float64()-1)
		}

		f, err := d.Frame(dt)
		if err != nil {
			d.finish(result, startTicks)
			return result, err
		}

		if d.cfg.ValidateState && !f.IsValid() {
			simErr := &dynamo.SimulationError{Frame: f.Index, Time: f.Time, Wrapped: dynamo.ErrInvalidState}
			result.Errors = append(result.Errors, simErr)
			d.log.Warn("invalid state", zap.Int("frame", f.Index), zap.Float64("time", f.Time))
			d.finish(result, startTicks)
			return result, simErr
		}

		result.FramesRun++
		d.record(result)
	}

	d.finish(result, startTicks)
	d.log.Info("run finished",
		zap.Int("frames", result.FramesRun),
		zap.Int("ticks", result.FixedTicks),
		zap.Float64("dropped", result.DroppedTime))
	return result, nil
}

func (d *Driver) snapshot(ticks int) {
	d.frame.Index = d.frames
	d.frame.Time = d.time
	d.frame.PhysicsTime = d.physicsTime
	d.frame.Ticks = ticks
	d.frame.Positions = d.cloth.PositionsInto(d.frame.Positions)
	d.frame.Velocities = d.cloth.VelocitiesInto(d.frame.Velocities)
}

func (d *Driver) publish() {
	for _, m := range d.metrics {
		m.Observe(&d.frame)
	}
	for _, o := range d.observers {
		o.OnFrame(&d.frame)
	}
}

// observe feeds the current frame to metrics only, so a run's initial state
// counts without re-notifying observers.
func (d *Driver) observe() {
	for _, m := range d.metrics {
		m.Observe(&d.frame)
	}
}

func (d *Driver) record(r *dynamo.Result) {
	if d.cfg.RecordEvery > 0 && d.frame.Index%d.cfg.RecordEvery == 0 {
		r.Frames = append(r.Frames, d.frame.Clone())
	}
}

func (d *Driver) finish(r *dynamo.Result, startTicks int) {
	r.FixedTicks = d.ticks - startTicks
	r.DroppedTime = d.dropped
	for _, m := range d.metrics {
		r.Metrics[m.Name()] = m.Value()
	}
}

func validateConfig(cfg dynamo.Config) error {
	if !(cfg.FixedDt > 0) || math.IsInf(cfg.FixedDt, 0) {
		return fmt.Errorf("%w: fixed dt must be positive, got %f", dynamo.ErrInvalidConfig, cfg.FixedDt)
	}
	if !(cfg.FrameDt > 0) || math.IsInf(cfg.FrameDt, 0) {
		return fmt.Errorf("%w: frame dt must be positive, got %f", dynamo.ErrInvalidConfig, cfg.FrameDt)
	}
	if cfg.MaxSubsteps < 1 {
		return fmt.Errorf("%w: max substeps must be at least 1, got %d", dynamo.ErrInvalidConfig, cfg.MaxSubsteps)
	}
	if cfg.RecordEvery < 0 {
		return fmt.Errorf("%w: record interval must not be negative, got %d", dynamo.ErrInvalidConfig, cfg.RecordEvery)
	}
	if cfg.FrameJitter < 0 || cfg.FrameJitter >= 1 {
		return fmt.Errorf("%w: frame jitter must be in [0, 1), got %f", dynamo.ErrInvalidConfig, cfg.FrameJitter)
	}
	return nil
}
