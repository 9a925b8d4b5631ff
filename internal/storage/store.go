package storage

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/san-kum/clothfield/internal/config"
	"github.com/san-kum/clothfield/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	metadataFile = "metadata.json"
	framesFile   = "frames.csv"
	configFile   = "config.yaml"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Width       int                `json:"width"`
	Height      int                `json:"height"`
	Cells       [3]int             `json:"cells"`
	FieldOn     bool               `json:"field_enabled"`
	FixedDt     float64            `json:"fixed_dt"`
	FrameDt     float64            `json:"frame_dt"`
	Duration    float64            `json:"duration"`
	Frames      int                `json:"frames"`
	FixedTicks  int                `json:"fixed_ticks"`
	DroppedTime float64            `json:"dropped_time"`
	Metrics     map[string]float64 `json:"metrics"`

	// InvalidMetrics names metrics whose value was NaN or Inf when the run
	// stopped.
	InvalidMetrics []string `json:"invalid_metrics,omitempty"`
}

// PointRecord is one row of a frames file: the state of one point in one
// recorded frame.
type PointRecord struct {
	Frame       int     `csv:"frame"`
	Time        float64 `csv:"time"`
	PhysicsTime float64 `csv:"physics_time"`
	Ticks       int     `csv:"ticks"`
	Point       int     `csv:"point"`
	X           float64 `csv:"x"`
	Y           float64 `csv:"y"`
	Z           float64 `csv:"z"`
	VX          float64 `csv:"vx"`
	VY          float64 `csv:"vy"`
	VZ          float64 `csv:"vz"`
}

// Save writes a run's config, metadata and recorded frames under a new run
// directory and returns its id. A run directory is either complete or
// removed.
func (s *Store) Save(cfg *config.Config, result *dynamo.Result) (id string, err error) {
	name := cfg.Name
	if name == "" {
		name = "run"
	}
	now := time.Now()
	runID := fmt.Sprintf("%s_%d_%s", name, now.Unix(), uuid.NewString()[:8])
	runDir := filepath.Join(s.baseDir, runID)

	finite, invalid := splitMetrics(result.Metrics)
	meta := RunMetadata{
		ID:             runID,
		Name:           name,
		Timestamp:      now,
		Seed:           cfg.Field.Seed,
		Width:          cfg.Cloth.Width,
		Height:         cfg.Cloth.Height,
		Cells:          [3]int{cfg.Field.CellsX, cfg.Field.CellsY, cfg.Field.CellsZ},
		FieldOn:        cfg.Field.Enabled,
		FixedDt:        cfg.Sim.FixedDt,
		FrameDt:        cfg.Sim.FrameDt,
		Duration:       cfg.Sim.Duration,
		Frames:         result.FramesRun,
		FixedTicks:     result.FixedTicks,
		DroppedTime:    result.DroppedTime,
		Metrics:        finite,
		InvalidMetrics: invalid,
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			os.RemoveAll(runDir)
		}
	}()

	if err := os.WriteFile(filepath.Join(runDir, metadataFile), data, 0644); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, configFile), cfg); err != nil {
		return "", err
	}
	if err := writeFramesFile(filepath.Join(runDir, framesFile), result.Frames); err != nil {
		return "", fmt.Errorf("writing frames: %w", err)
	}
	return runID, nil
}

func writeFramesFile(path string, frames []dynamo.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteFrames(f, frames); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// splitMetrics separates the metrics JSON can hold from the names of those
// that diverged to NaN or Inf.
func splitMetrics(m map[string]float64) (map[string]float64, []string) {
	finite := make(map[string]float64, len(m))
	var invalid []string
	for name, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			invalid = append(invalid, name)
			continue
		}
		finite[name] = v
	}
	sort.Strings(invalid)
	return finite, invalid
}

// List returns the metadata of every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, configFile))
}

func (s *Store) LoadFrames(runID string) ([]dynamo.Frame, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, framesFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadFrames(f)
}

// WriteFrames writes frames as point records with a header row.
func WriteFrames(w io.Writer, frames []dynamo.Frame) error {
	records := make([]PointRecord, 0)
	for _, fr := range frames {
		for i, p := range fr.Positions {
			var v r3.Vec
			if i < len(fr.Velocities) {
				v = fr.Velocities[i]
			}
			records = append(records, PointRecord{
				Frame:       fr.Index,
				Time:        fr.Time,
				PhysicsTime: fr.PhysicsTime,
				Ticks:       fr.Ticks,
				Point:       i,
				X:           p.X,
				Y:           p.Y,
				Z:           p.Z,
				VX:          v.X,
				VY:          v.Y,
				VZ:          v.Z,
			})
		}
	}
	return gocsv.Marshal(records, w)
}

// ReadFrames rebuilds frames from point records. Records of one frame must
// be contiguous.
func ReadFrames(r io.Reader) ([]dynamo.Frame, error) {
	var records []PointRecord
	if err := gocsv.Unmarshal(r, &records); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return []dynamo.Frame{}, nil
		}
		return nil, err
	}

	frames := make([]dynamo.Frame, 0)
	for _, rec := range records {
		if len(frames) == 0 || frames[len(frames)-1].Index != rec.Frame {
			frames = append(frames, dynamo.Frame{
				Index:       rec.Frame,
				Time:        rec.Time,
				PhysicsTime: rec.PhysicsTime,
				Ticks:       rec.Ticks,
			})
		}
		fr := &frames[len(frames)-1]
		if rec.Point != len(fr.Positions) {
			return nil, fmt.Errorf("frame %d: point %d out of order", rec.Frame, rec.Point)
		}
		fr.Positions = append(fr.Positions, r3.Vec{X: rec.X, Y: rec.Y, Z: rec.Z})
		fr.Velocities = append(fr.Velocities, r3.Vec{X: rec.VX, Y: rec.VY, Z: rec.VZ})
	}
	return frames, nil
}
