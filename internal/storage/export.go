package storage

import (
	"io"

	"github.com/san-kum/clothfield/internal/config"
	"github.com/san-kum/clothfield/internal/dynamo"
)

type ExportFrame struct {
	Index       int          `json:"index"`
	Time        float64      `json:"time"`
	PhysicsTime float64      `json:"physics_time"`
	Ticks       int          `json:"ticks"`
	Positions   [][3]float64 `json:"positions"`
	Velocities  [][3]float64 `json:"velocities"`
}

type ExportData struct {
	Name        string             `json:"name"`
	Width       int                `json:"width"`
	Height      int                `json:"height"`
	FixedDt     float64            `json:"fixed_dt"`
	FrameDt     float64            `json:"frame_dt"`
	Duration    float64            `json:"duration"`
	FramesRun   int                `json:"frames_run"`
	FixedTicks  int                `json:"fixed_ticks"`
	DroppedTime float64            `json:"dropped_time"`
	Frames      []ExportFrame      `json:"frames"`
	Metrics     map[string]float64 `json:"metrics"`

	// InvalidMetrics names metrics left out of Metrics for being NaN or Inf.
	InvalidMetrics []string `json:"invalid_metrics,omitempty"`
}

func NewExportData(cfg *config.Config, result *dynamo.Result) ExportData {
	data := ExportData{
		Name:        cfg.Name,
		Width:       cfg.Cloth.Width,
		Height:      cfg.Cloth.Height,
		FixedDt:     cfg.Sim.FixedDt,
		FrameDt:     cfg.Sim.FrameDt,
		Duration:    cfg.Sim.Duration,
		FramesRun:   result.FramesRun,
		FixedTicks:  result.FixedTicks,
		DroppedTime: result.DroppedTime,
		Frames:      make([]ExportFrame, len(result.Frames)),
	}
	data.Metrics, data.InvalidMetrics = splitMetrics(result.Metrics)

	for i, f := range result.Frames {
		ef := ExportFrame{
			Index:       f.Index,
			Time:        f.Time,
			PhysicsTime: f.PhysicsTime,
			Ticks:       f.Ticks,
			Positions:   make([][3]float64, len(f.Positions)),
			Velocities:  make([][3]float64, len(f.Velocities)),
		}
		for j, p := range f.Positions {
			ef.Positions[j] = [3]float64{p.X, p.Y, p.Z}
		}
		for j, v := range f.Velocities {
			ef.Velocities[j] = [3]float64{v.X, v.Y, v.Z}
		}
		data.Frames[i] = ef
	}
	return data
}

// ExportJSON writes a run as indented JSON.
func ExportJSON(w io.Writer, cfg *config.Config, result *dynamo.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewExportData(cfg, result))
}
