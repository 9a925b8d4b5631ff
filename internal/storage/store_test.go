package storage

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/clothfield/internal/config"
	"github.com/san-kum/clothfield/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func testResult() *dynamo.Result {
	return &dynamo.Result{
		Frames: []dynamo.Frame{
			{
				Index:      0,
				Positions:  []r3.Vec{{X: -1, Z: -1}, {X: 0, Z: -1}},
				Velocities: []r3.Vec{{}, {}},
			},
			{
				Index:       1,
				Time:        1.0 / 60,
				PhysicsTime: 0.02,
				Ticks:       1,
				Positions:   []r3.Vec{{X: -1, Z: -1}, {X: 0, Y: -0.00327, Z: -1}},
				Velocities:  []r3.Vec{{Y: -0.1962}, {Y: -0.1962}},
			},
		},
		Metrics:    map[string]float64{"kinetic_energy": 1.5},
		FramesRun:  1,
		FixedTicks: 1,
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	cfg := config.GetPreset("calm")
	cfg.Field.Seed = 42
	result := testResult()

	runID, err := st.Save(cfg, result)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(runID, "calm_"), runID)

	meta, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, runID, meta.ID)
	assert.Equal(t, "calm", meta.Name)
	assert.Equal(t, int64(42), meta.Seed)
	assert.Equal(t, [3]int{3, 3, 3}, meta.Cells)
	assert.True(t, meta.FieldOn)
	assert.Equal(t, 1, meta.Frames)
	assert.Equal(t, 1.5, meta.Metrics["kinetic_energy"])

	frames, err := st.LoadFrames(runID)
	require.NoError(t, err)
	assert.Equal(t, result.Frames, frames)

	loaded, err := st.LoadConfig(runID)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestStoreSaveDivergedMetrics(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	result := testResult()
	result.Metrics = map[string]float64{
		"kinetic_energy": math.Inf(1),
		"mean_height":    -0.5,
		"travel":         math.NaN(),
	}

	runID, err := st.Save(config.DefaultConfig(), result)
	require.NoError(t, err)

	meta, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"mean_height": -0.5}, meta.Metrics)
	assert.Equal(t, []string{"kinetic_energy", "travel"}, meta.InvalidMetrics)

	frames, err := st.LoadFrames(runID)
	require.NoError(t, err)
	assert.Len(t, frames, 2)
}

func TestStoreSaveFailureLeavesNoRun(t *testing.T) {
	base := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(base, nil, 0644))

	st := New(filepath.Join(base, "runs"))
	_, err := st.Save(config.DefaultConfig(), testResult())
	require.Error(t, err)

	entries, err := os.ReadDir(filepath.Dir(base))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFramesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frames.csv")
	require.NoError(t, writeFramesFile(path, testResult().Frames))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	frames, err := ReadFrames(f)
	require.NoError(t, err)
	assert.Len(t, frames, 2)

	assert.Error(t, writeFramesFile(filepath.Join(dir, "missing", "frames.csv"), nil))
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	cfg := config.DefaultConfig()
	id1, err := st.Save(cfg, testResult())
	require.NoError(t, err)
	id2, err := st.Save(cfg, testResult())
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	require.NoError(t, os.MkdirAll(filepath.Join(st.Dir(), "not-a-run"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(st.Dir(), "stray.txt"), nil, 0644))

	runs, err := st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run", runs[0].Name)
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "missing"))
	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStoreLoadMissing(t *testing.T) {
	st := New(t.TempDir())
	_, err := st.Load("nope")
	assert.Error(t, err)
	_, err = st.LoadFrames("nope")
	assert.Error(t, err)
}

func TestFramesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrames(&buf, testResult().Frames))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "frame,time,physics_time,ticks,point,x,y,z,vx,vy,vz", lines[0])

	frames, err := ReadFrames(&buf)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, 1, frames[1].Ticks)
	assert.Equal(t, -0.00327, frames[1].Positions[1].Y)
}

func TestFramesCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrames(&buf, nil))

	frames, err := ReadFrames(&buf)
	require.NoError(t, err)
	assert.Empty(t, frames)

	frames, err = ReadFrames(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, frames)
}

func TestReadFramesOutOfOrder(t *testing.T) {
	data := "frame,time,physics_time,ticks,point,x,y,z,vx,vy,vz\n0,0,0,0,1,0,0,0,0,0,0\n"
	_, err := ReadFrames(strings.NewReader(data))
	assert.Error(t, err)
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.DefaultConfig()
	cfg.Name = "export"
	require.NoError(t, ExportJSON(&buf, cfg, testResult()))

	var data ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, "export", data.Name)
	assert.Equal(t, 10, data.Width)
	require.Len(t, data.Frames, 2)
	assert.Equal(t, [3]float64{0, -0.00327, -1}, data.Frames[1].Positions[1])
	assert.Equal(t, 1.5, data.Metrics["kinetic_energy"])
}

func TestExportJSONDivergedMetrics(t *testing.T) {
	result := testResult()
	result.Metrics["max_strain"] = math.Inf(1)

	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, config.DefaultConfig(), result))

	var data ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, map[string]float64{"kinetic_energy": 1.5}, data.Metrics)
	assert.Equal(t, []string{"max_strain"}, data.InvalidMetrics)
}
