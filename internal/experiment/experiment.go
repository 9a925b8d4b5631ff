package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/clothfield/internal/cloth"
	"github.com/san-kum/clothfield/internal/config"
	"github.com/san-kum/clothfield/internal/dynamo"
	"github.com/san-kum/clothfield/internal/field"
	"github.com/san-kum/clothfield/internal/sim"
	"go.uber.org/zap"
)

// Experiment assembles a field, a cloth and a driver from one config.
type Experiment struct {
	cfg    *config.Config
	log    *zap.Logger
	field  *field.Field
	cloth  *cloth.Simulator
	driver *sim.Driver

	metrics []dynamo.Metric
}

func New(cfg *config.Config, log *zap.Logger) *Experiment {
	if log == nil {
		log = zap.NewNop()
	}
	return &Experiment{cfg: cfg, log: log}
}

// Setup builds the simulation and attaches the metrics named in metricNames,
// or every applicable metric when none are given.
func (e *Experiment) Setup(metricNames ...string) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	var force cloth.ForceField
	if e.cfg.Field.Enabled {
		fc := e.cfg.FieldConfig()
		f, err := field.New(fc, nil)
		if err != nil {
			return fmt.Errorf("building field: %w", err)
		}
		e.field = f
		force = f
		e.log.Info("field built",
			zap.Int("cells", f.Len()),
			zap.Float64("scale", fc.Scale),
			zap.Float64("speed", fc.Speed))
	}

	c, err := cloth.New(e.cfg.ClothParams(), e.cfg.Positions(), force)
	if err != nil {
		return fmt.Errorf("building cloth: %w", err)
	}
	e.cloth = c
	e.log.Info("cloth built",
		zap.Int("points", c.Store().Len()),
		zap.Int("springs", c.Network().Len()))

	// A nil *field.Field must not reach the driver as a non-nil interface.
	var updater sim.Field
	if e.field != nil {
		updater = e.field
	}
	d, err := sim.New(c, updater, e.cfg.SimConfig(), sim.WithLogger(e.log.Named("driver")))
	if err != nil {
		return err
	}
	e.driver = d

	metrics, err := NewRegistry().Build(e, metricNames...)
	if err != nil {
		return err
	}
	for _, m := range metrics {
		d.AddMetric(m)
	}
	e.metrics = metrics
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.driver == nil {
		return nil, dynamo.ErrNotSetup
	}
	return e.driver.Run(ctx)
}

func (e *Experiment) Config() *config.Config  { return e.cfg }
func (e *Experiment) Field() *field.Field     { return e.field }
func (e *Experiment) Cloth() *cloth.Simulator { return e.cloth }

// Metric returns the attached metric with the given name.
func (e *Experiment) Metric(name string) (dynamo.Metric, bool) {
	for _, m := range e.metrics {
		if m.Name() == name {
			return m, true
		}
	}
	return nil, false
}

// Driver returns the underlying driver for adding observers or stepping
// frames directly.
func (e *Experiment) Driver() *sim.Driver { return e.driver }
