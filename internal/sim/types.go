package sim

import (
	"math"
	"time"
)

// Frame is the simulation state at a report interval, with the scalars the
// engine leaves out derived from the system.
type Frame struct {
	Step            int64
	Time            float64 // ps
	PotentialEnergy float64 // kJ/mol
	KineticEnergy   float64 // kJ/mol
	Temperature     float64 // K
	Volume          float64 // nm^3
	Density         float64 // g/mL
	Speed           float64 // ns/day
	Elapsed         time.Duration
}

func (f Frame) TotalEnergy() float64 {
	return f.PotentialEnergy + f.KineticEnergy
}

// IsValid reports whether the energies are finite.
func (f Frame) IsValid() bool {
	for _, v := range []float64{f.PotentialEnergy, f.KineticEnergy} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Reporter receives every frame. A returned error stops the run.
type Reporter interface {
	Report(f Frame) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Frame) error

func (fn ReporterFunc) Report(f Frame) error { return fn(f) }

// Metric accumulates one scalar over the frames of a run.
type Metric interface {
	Name() string
	Observe(f Frame)
	Value() float64
	Reset()
}
