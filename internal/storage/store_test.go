package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/cgsim/internal/sim"
)

func newTestStore(t *testing.T) *Store {
	st := New(t.TempDir())
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	st.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Minute)
	}
	return st
}

func writeFrames(t *testing.T, run *Run, frames ...sim.Frame) {
	r, err := sim.NewStateDataReporter(run.DataPath())
	require.NoError(t, err)
	for _, f := range frames {
		require.NoError(t, r.Report(f))
	}
	require.NoError(t, r.Close())
}

func TestCreateAndFinish(t *testing.T) {
	st := newTestStore(t)
	run, err := st.Create(RunMetadata{Name: "h1_prota", Particles: 260, Platform: "CUDA", Steps: 400000000, Interval: 20000, Seed: 1})
	require.NoError(t, err)

	assert.Len(t, run.ID, 36)
	assert.Equal(t, StatusRunning, run.Status)
	assert.DirExists(t, run.Dir())
	assert.FileExists(t, run.Path("metadata.json"))

	require.NoError(t, st.Finish(run, 400000000, map[string]float64{"mean_potential": -812.5}, nil))

	loaded, err := st.Load(run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, loaded.Status)
	assert.Equal(t, int64(400000000), loaded.Completed)
	assert.Equal(t, -812.5, loaded.Metrics["mean_potential"])
	require.NotNil(t, loaded.FinishedAt)
	assert.True(t, loaded.FinishedAt.After(loaded.CreatedAt))
	assert.Equal(t, run.Dir(), loaded.Dir())
}

func TestFinishStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Status
	}{
		{"completed", nil, StatusCompleted},
		{"cancelled", fmt.Errorf("step: %w", context.Canceled), StatusCancelled},
		{"failed", errors.New("worker exited"), StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newTestStore(t)
			run, err := st.Create(RunMetadata{Name: tt.name})
			require.NoError(t, err)
			require.NoError(t, st.Finish(run, 10, nil, tt.err))

			loaded, err := st.Load(run.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, loaded.Status)
			if tt.err != nil {
				assert.Equal(t, tt.err.Error(), loaded.Error)
			}
		})
	}
}

func TestListNewestFirst(t *testing.T) {
	st := newTestStore(t)
	for _, name := range []string{"first", "second", "third"} {
		_, err := st.Create(RunMetadata{Name: name})
		require.NoError(t, err)
	}
	require.NoError(t, os.Mkdir(st.baseDir+"/not-a-run", 0755))

	runs, err := st.List()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "third", runs[0].Name)
	assert.Equal(t, "first", runs[2].Name)

	empty, err := New(t.TempDir() + "/missing").List()
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLoadByPrefix(t *testing.T) {
	st := newTestStore(t)
	run, err := st.Create(RunMetadata{Name: "a"})
	require.NoError(t, err)

	loaded, err := st.Load(run.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, run.ID, loaded.ID)

	_, err = st.Load("zzzz")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = st.Load("")
	assert.ErrorIs(t, err, ErrRunNotFound)

	for _, id := range []string{"abc10000", "abc20000"} {
		r := &Run{RunMetadata: RunMetadata{ID: id}, dir: st.baseDir + "/" + id}
		require.NoError(t, os.Mkdir(r.dir, 0755))
		require.NoError(t, st.write(r))
	}
	_, err = st.Load("abc")
	assert.ErrorIs(t, err, ErrAmbiguousRun)
	loaded, err = st.Load("abc2")
	require.NoError(t, err)
	assert.Equal(t, "abc20000", loaded.ID)
}

func TestLoadFrames(t *testing.T) {
	st := newTestStore(t)
	run, err := st.Create(RunMetadata{Name: "frames"})
	require.NoError(t, err)

	frames, err := st.LoadFrames(run.ID)
	require.NoError(t, err)
	assert.Empty(t, frames)

	writeFrames(t, run,
		sim.Frame{Step: 20000, Time: 100, PotentialEnergy: -500, Temperature: 300},
		sim.Frame{Step: 40000, Time: 200, PotentialEnergy: -520, Temperature: 298},
	)
	frames, err = st.LoadFrames(run.ID)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, int64(40000), frames[1].Step)
	assert.Equal(t, -520.0, frames[1].PotentialEnergy)
}

func TestExportJSON(t *testing.T) {
	st := newTestStore(t)
	run, err := st.Create(RunMetadata{Name: "export", Platform: "CPU"})
	require.NoError(t, err)
	writeFrames(t, run, sim.Frame{Step: 100, Time: 0.5, PotentialEnergy: -1, Elapsed: 1500 * time.Millisecond})

	var buf bytes.Buffer
	require.NoError(t, st.ExportJSON(&buf, run.ID))

	var doc struct {
		ID       string `json:"id"`
		Platform string `json:"platform"`
		Frames   []struct {
			Step    int64   `json:"step"`
			Elapsed float64 `json:"elapsed_s"`
		} `json:"frames"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, run.ID, doc.ID)
	assert.Equal(t, "CPU", doc.Platform)
	require.Len(t, doc.Frames, 1)
	assert.Equal(t, int64(100), doc.Frames[0].Step)
	assert.Equal(t, 1.5, doc.Frames[0].Elapsed)
}
