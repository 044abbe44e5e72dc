package sim

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/san-kum/cgsim/internal/logging"
)

// StateDataColumns is the header of the scalar log.
var StateDataColumns = []string{
	"Step",
	"Time (ps)",
	"Potential Energy (kJ/mole)",
	"Temperature (K)",
	"Box Volume (nm^3)",
	"Density (g/mL)",
	"Speed (ns/day)",
	"Elapsed Time (s)",
}

// StateDataReporter writes one CSV row per frame. Rows are flushed as they
// are written so the log can be followed while a run is in progress.
type StateDataReporter struct {
	w      *csv.Writer
	closer io.Closer
	header bool
}

func NewStateDataReporter(path string) (*StateDataReporter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	r := NewStateDataWriter(f)
	r.closer = f
	return r, nil
}

func NewStateDataWriter(w io.Writer) *StateDataReporter {
	return &StateDataReporter{w: csv.NewWriter(w)}
}

func (r *StateDataReporter) Report(f Frame) error {
	if !r.header {
		if err := r.w.Write(StateDataColumns); err != nil {
			return err
		}
		r.header = true
	}
	row := []string{
		strconv.FormatInt(f.Step, 10),
		formatFloat(f.Time),
		formatFloat(f.PotentialEnergy),
		formatFloat(f.Temperature),
		formatFloat(f.Volume),
		formatFloat(f.Density),
		formatFloat(f.Speed),
		formatFloat(f.Elapsed.Seconds()),
	}
	if err := r.w.Write(row); err != nil {
		return err
	}
	r.w.Flush()
	return r.w.Error()
}

func (r *StateDataReporter) Close() error {
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		return err
	}
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

// ReadStateData parses a scalar log written by StateDataReporter. Kinetic
// energy is not part of the log and is left zero.
func ReadStateData(r io.Reader) ([]Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(StateDataColumns)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if rows[0][0] == StateDataColumns[0] {
		rows = rows[1:]
	}
	frames := make([]Frame, 0, len(rows))
	for i, row := range rows {
		step, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		var v [7]float64
		for j := range v {
			if v[j], err = strconv.ParseFloat(row[j+1], 64); err != nil {
				return nil, fmt.Errorf("row %d, %s: %w", i+1, StateDataColumns[j+1], err)
			}
		}
		frames = append(frames, Frame{
			Step:            step,
			Time:            v[0],
			PotentialEnergy: v[1],
			Temperature:     v[2],
			Volume:          v[3],
			Density:         v[4],
			Speed:           v[5],
			Elapsed:         time.Duration(v[6] * float64(time.Second)),
		})
	}
	return frames, nil
}

// LogReporter logs every frame at info level.
type LogReporter struct {
	Logger logging.Logger
}

func (r LogReporter) Report(f Frame) error {
	logging.OrNop(r.Logger).Info("frame",
		logging.Int64("step", f.Step),
		logging.Float64("time_ps", f.Time),
		logging.Float64("potential_kj_mol", f.PotentialEnergy),
		logging.Float64("temperature_k", f.Temperature),
		logging.Float64("speed_ns_day", f.Speed))
	return nil
}
