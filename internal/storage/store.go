// Package storage keeps a registry of simulation runs on disk. Each run owns
// a directory holding metadata.json and the scalar log data.csv.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/cgsim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	DataFile     = "data.csv"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var (
	ErrRunNotFound  = errors.New("storage: run not found")
	ErrAmbiguousRun = errors.New("storage: run prefix matches several runs")
)

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Status     Status             `json:"status"`
	CreatedAt  time.Time          `json:"created_at"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
	System     string             `json:"system,omitempty"`
	Particles  int                `json:"particles"`
	Platform   string             `json:"platform"`
	Seed       int64              `json:"seed"`
	Timestep   float64            `json:"timestep_ps"`
	Steps      int64              `json:"steps"`
	Completed  int64              `json:"completed_steps"`
	Interval   int                `json:"interval"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Run is a registered run directory.
type Run struct {
	RunMetadata
	dir string
}

func (r *Run) Dir() string { return r.dir }

// Path returns name inside the run directory.
func (r *Run) Path(name string) string { return filepath.Join(r.dir, name) }

func (r *Run) DataPath() string { return r.Path(DataFile) }

// Create registers a new run in the running state and returns it with a
// fresh ID.
func (s *Store) Create(meta RunMetadata) (*Run, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	meta.ID = uuid.NewString()
	meta.Status = StatusRunning
	meta.CreatedAt = s.now().UTC()
	meta.FinishedAt = nil

	run := &Run{RunMetadata: meta, dir: filepath.Join(s.baseDir, meta.ID)}
	if err := os.Mkdir(run.dir, 0755); err != nil {
		return nil, err
	}
	if err := s.write(run); err != nil {
		return nil, err
	}
	return run, nil
}

// Finish records the outcome of run. A nil runErr completes it; a context
// cancellation marks it cancelled.
func (s *Store) Finish(run *Run, completed int64, metrics map[string]float64, runErr error) error {
	now := s.now().UTC()
	run.FinishedAt = &now
	run.Completed = completed
	run.Metrics = metrics
	switch {
	case runErr == nil:
		run.Status = StatusCompleted
	case errors.Is(runErr, context.Canceled):
		run.Status = StatusCancelled
		run.Error = runErr.Error()
	default:
		run.Status = StatusFailed
		run.Error = runErr.Error()
	}
	return s.write(run)
}

func (s *Store) write(run *Run) error {
	data, err := json.MarshalIndent(run.RunMetadata, "", "  ")
	if err != nil {
		return err
	}
	tmp := run.Path(metadataFile + ".tmp")
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, run.Path(metadataFile))
}

// List returns every readable run, newest first.
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
		meta, err := s.readMeta(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

func (s *Store) readMeta(dir string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, dir, metadataFile))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Load finds a run by its ID or a unique ID prefix.
func (s *Store) Load(id string) (*Run, error) {
	if id == "" {
		return nil, ErrRunNotFound
	}
	if meta, err := s.readMeta(id); err == nil {
		return &Run{RunMetadata: *meta, dir: filepath.Join(s.baseDir, id)}, nil
	}
	runs, err := s.List()
	if err != nil {
		return nil, err
	}
	var match *RunMetadata
	for i := range runs {
		if strings.HasPrefix(runs[i].ID, id) {
			if match != nil {
				return nil, fmt.Errorf("%w: %q", ErrAmbiguousRun, id)
			}
			match = &runs[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %q", ErrRunNotFound, id)
	}
	return &Run{RunMetadata: *match, dir: filepath.Join(s.baseDir, match.ID)}, nil
}

// LoadFrames reads the scalar log of a run.
func (s *Store) LoadFrames(id string) ([]sim.Frame, error) {
	run, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(run.DataPath())
	if err != nil {
		if os.IsNotExist(err) {
			return []sim.Frame{}, nil
		}
		return nil, err
	}
	defer f.Close()
	return sim.ReadStateData(f)
}

type exportFrame struct {
	Step            int64   `json:"step"`
	Time            float64 `json:"time_ps"`
	PotentialEnergy float64 `json:"potential_energy"`
	Temperature     float64 `json:"temperature"`
	Volume          float64 `json:"volume"`
	Density         float64 `json:"density"`
	Speed           float64 `json:"speed"`
	Elapsed         float64 `json:"elapsed_s"`
}

type exportData struct {
	RunMetadata
	Frames []exportFrame `json:"frames"`
}

// ExportJSON writes the metadata and scalar log of a run as one JSON
// document.
func (s *Store) ExportJSON(w io.Writer, id string) error {
	run, err := s.Load(id)
	if err != nil {
		return err
	}
	frames, err := s.LoadFrames(run.ID)
	if err != nil {
		return err
	}
	data := exportData{RunMetadata: run.RunMetadata, Frames: make([]exportFrame, len(frames))}
	for i, f := range frames {
		data.Frames[i] = exportFrame{
			Step:            f.Step,
			Time:            f.Time,
			PotentialEnergy: f.PotentialEnergy,
			Temperature:     f.Temperature,
			Volume:          f.Volume,
			Density:         f.Density,
			Speed:           f.Speed,
			Elapsed:         f.Elapsed.Seconds(),
		}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
