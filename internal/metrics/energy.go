package metrics

import (
	"math"

	"github.com/san-kum/cgsim/internal/sim"
)

// MeanPotential is the running mean of the potential energy in kJ/mol.
type MeanPotential struct {
	name    string
	sum     float64
	samples int
}

func NewMeanPotential() *MeanPotential {
	return &MeanPotential{name: "mean_potential"}
}

func (e *MeanPotential) Name() string { return e.name }

func (e *MeanPotential) Observe(f sim.Frame) {
	e.sum += f.PotentialEnergy
	e.samples++
}

func (e *MeanPotential) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.sum / float64(e.samples)
}

func (e *MeanPotential) Reset() {
	e.sum = 0
	e.samples = 0
}

// EnergyDrift is the largest relative deviation of the total energy from the
// first observed frame. Under a thermostat it bounds fluctuations rather
// than measuring conservation.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(f sim.Frame) {
	energy := f.TotalEnergy()
	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
