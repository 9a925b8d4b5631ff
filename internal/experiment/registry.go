package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/clothfield/internal/dynamo"
	"github.com/san-kum/clothfield/internal/metrics"
)

// StabilityRadius is the distance from the origin beyond which a frame
// counts as unstable.
const StabilityRadius = 1000.0

type metricFactory func(e *Experiment) dynamo.Metric

type Registry struct {
	metrics map[string]metricFactory
}

func NewRegistry() *Registry {
	r := &Registry{metrics: make(map[string]metricFactory)}

	r.metrics["kinetic_energy"] = func(*Experiment) dynamo.Metric { return metrics.NewKineticEnergy() }
	r.metrics["travel"] = func(*Experiment) dynamo.Metric { return metrics.NewTravel() }
	r.metrics["stability"] = func(*Experiment) dynamo.Metric { return metrics.NewStability(StabilityRadius) }
	r.metrics["mean_height"] = func(*Experiment) dynamo.Metric { return metrics.NewMeanHeight() }
	r.metrics["max_strain"] = func(e *Experiment) dynamo.Metric {
		return metrics.NewMaxStrain(e.cloth.Network().Springs())
	}
	r.metrics["field_exposure"] = func(e *Experiment) dynamo.Metric {
		if e.field == nil {
			return nil
		}
		return metrics.NewFieldExposure(e.field)
	}

	return r
}

func (r *Registry) ListMetrics() []string {
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build instantiates the named metrics for e, or all of them when names is
// empty. Metrics that do not apply to e, such as field exposure without a
// field, are skipped.
func (r *Registry) Build(e *Experiment, names ...string) ([]dynamo.Metric, error) {
	if len(names) == 0 {
		names = r.ListMetrics()
	}

	out := make([]dynamo.Metric, 0, len(names))
	for _, name := range names {
		fn, ok := r.metrics[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown metric: %s", dynamo.ErrInvalidConfig, name)
		}
		if m := fn(e); m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}
