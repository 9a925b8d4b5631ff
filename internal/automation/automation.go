package automation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/san-kum/clothfield/internal/config"
	"github.com/san-kum/clothfield/internal/dynamo"
	"github.com/san-kum/clothfield/internal/experiment"
	"github.com/san-kum/clothfield/internal/storage"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a preset (or the defaults) and overrides
// individual parameters by their dotted config key.
type ScenarioStep struct {
	Preset   string             `yaml:"preset"`
	Duration float64            `yaml:"duration"`
	Params   map[string]float64 `yaml:"params"`
	SaveAs   string             `yaml:"save_as"`
}

type StepResult struct {
	Step   int
	Config *config.Config
	Result *dynamo.Result
	RunID  string
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%w: scenario %q has no steps", dynamo.ErrInvalidConfig, scenario.Name)
	}
	return &scenario, nil
}

// Config resolves the run configuration of a step.
func (s ScenarioStep) Config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("%w: unknown preset %q", dynamo.ErrInvalidConfig, s.Preset)
		}
	}
	if s.Duration > 0 {
		cfg.Sim.Duration = s.Duration
	}
	for k, v := range s.Params {
		if err := cfg.SetParam(k, v); err != nil {
			return nil, err
		}
	}
	if s.SaveAs != "" {
		cfg.Name = s.SaveAs
	}
	return cfg, nil
}

// RunScenario executes every step in order. Steps with SaveAs set are
// persisted to store when it is not nil.
func RunScenario(ctx context.Context, scenario *Scenario, store *storage.Store, log *zap.Logger) ([]StepResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		log.Info("running scenario step",
			zap.String("scenario", scenario.Name),
			zap.Int("step", i+1),
			zap.Int("steps", len(scenario.Steps)),
			zap.String("preset", step.Preset))

		cfg, err := step.Config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		exp := experiment.New(cfg, log)
		if err := exp.Setup(); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Step: i + 1, Config: cfg, Result: result}
		if step.SaveAs != "" && store != nil {
			id, err := store.Save(cfg, result)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
			sr.RunID = id
		}
		results = append(results, sr)
	}

	return results, nil
}

// ParameterSweep runs Base once per evenly spaced value of one parameter.
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

type SweepResult struct {
	ParamValue float64
	MeanEnergy float64
	MaxStrain  float64
	MeanHeight float64
	Stable     bool
}

func RunSweep(ctx context.Context, sweep *ParameterSweep, log *zap.Logger) ([]SweepResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("%w: sweep needs at least one step", dynamo.ErrInvalidConfig)
	}

	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.ParamMin + float64(i)*paramStep

		cfg := sweep.Base.Clone()
		if err := cfg.SetParam(sweep.ParamName, paramVal); err != nil {
			return nil, err
		}

		exp := experiment.New(cfg, nil)
		if err := exp.Setup("kinetic_energy", "max_strain", "mean_height", "stability"); err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.ParamName, paramVal, err)
		}

		result, err := exp.Run(ctx)
		diverged, err := divergence(err)
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.ParamName, paramVal, err)
		}
		if diverged {
			log.Warn("sweep step diverged", zap.String("param", sweep.ParamName), zap.Float64("value", paramVal))
		}

		results = append(results, SweepResult{
			ParamValue: paramVal,
			MeanEnergy: result.Metrics["kinetic_energy"],
			MaxStrain:  result.Metrics["max_strain"],
			MeanHeight: result.Metrics["mean_height"],
			Stable:     !diverged && result.Metrics["stability"] == 1.0,
		})

		log.Info("sweep step done",
			zap.Int("step", i+1),
			zap.Int("steps", sweep.NumSteps),
			zap.String("param", sweep.ParamName),
			zap.Float64("value", paramVal))
	}

	return results, nil
}

// MonteCarloConfig repeats Base with a fresh field seed per trial.
type MonteCarloConfig struct {
	Base      *config.Config
	NumTrials int
	Seed      int64
}

type MonteCarloResult struct {
	TrialID    int
	FieldSeed  int64
	MeanHeight float64
	Stable     bool
}

func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, log *zap.Logger) ([]MonteCarloResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	results := make([]MonteCarloResult, 0, cfg.NumTrials)

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	for trial := 0; trial < cfg.NumTrials; trial++ {
		run := cfg.Base.Clone()
		// Zero would mean a time-seeded field.
		run.Field.Seed = rng.Int63n(math.MaxInt64) + 1

		exp := experiment.New(run, nil)
		if err := exp.Setup("mean_height", "stability"); err != nil {
			return results, err
		}

		result, err := exp.Run(ctx)
		diverged, err := divergence(err)
		if err != nil {
			return results, fmt.Errorf("trial %d: %w", trial, err)
		}
		if diverged {
			log.Debug("trial diverged", zap.Int("trial", trial), zap.Int64("field_seed", run.Field.Seed))
		}

		results = append(results, MonteCarloResult{
			TrialID:    trial,
			FieldSeed:  run.Field.Seed,
			MeanHeight: result.Metrics["mean_height"],
			Stable:     !diverged && result.Metrics["stability"] == 1.0,
		})

		if (trial+1)%10 == 0 {
			log.Info("monte carlo progress", zap.Int("done", trial+1), zap.Int("trials", cfg.NumTrials))
		}
	}

	return results, nil
}

func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}

// divergence reports whether err only says the run blew up to NaN or Inf.
// Such a run still returns its partial result and counts as unstable; any
// other error is passed through.
func divergence(err error) (bool, error) {
	if err == nil {
		return false, nil
	}
	if errors.Is(err, dynamo.ErrInvalidState) {
		return true, nil
	}
	return false, err
}
