package metrics

import (
	"math"

	"github.com/san-kum/cgsim/internal/sim"
)

// Thermalization is the fraction of frames whose temperature lies within
// tolerance of the thermostat target.
type Thermalization struct {
	name       string
	target     float64
	tolerance  float64
	violations int
	samples    int
}

func NewThermalization(target, tolerance float64) *Thermalization {
	return &Thermalization{
		name:      "thermalized",
		target:    target,
		tolerance: tolerance,
	}
}

func (s *Thermalization) Name() string {
	return s.name
}

func (s *Thermalization) Observe(f sim.Frame) {
	s.samples++
	if math.Abs(f.Temperature-s.target) > s.tolerance {
		s.violations++
	}
}

func (s *Thermalization) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Thermalization) Reset() {
	s.violations = 0
	s.samples = 0
}

// MeanSpeed is the mean throughput in ns/day, ignoring frames without a
// speed estimate.
type MeanSpeed struct {
	sum     float64
	samples int
}

func (m *MeanSpeed) Name() string { return "mean_speed" }

func (m *MeanSpeed) Observe(f sim.Frame) {
	if f.Speed <= 0 {
		return
	}
	m.sum += f.Speed
	m.samples++
}

func (m *MeanSpeed) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanSpeed) Reset() { *m = MeanSpeed{} }

// Standard returns the metrics attached to every production run.
func Standard(temperature float64) []sim.Metric {
	return []sim.Metric{
		NewMeanPotential(),
		NewEnergyDrift(),
		NewThermalization(temperature, 0.1*temperature),
		&MeanSpeed{},
	}
}
