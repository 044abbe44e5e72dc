package engine

import (
	"context"

	"github.com/san-kum/cgsim/internal/forcefield"
	"github.com/san-kum/cgsim/internal/structure"
)

// BindSpec is everything an engine needs to create a simulation context.
// Paths take precedence; otherwise the engine serializes System and
// Positions itself.
type BindSpec struct {
	System        *forcefield.System
	SystemPath    string
	Positions     *structure.Configuration
	PositionsPath string
	Integrator    Integrator
	Platform      Platform
}

// Frame is the engine state at a report interval. Step and Time count from
// the start of the Step call that produced it.
type Frame struct {
	Step            int64   `json:"step"`
	Time            float64 `json:"time"`             // ps
	PotentialEnergy float64 `json:"potential_energy"` // kJ/mol
	KineticEnergy   float64 `json:"kinetic_energy"`   // kJ/mol
	// Temperature and Volume are optional; zero means not reported.
	Temperature float64 `json:"temperature,omitempty"` // K
	Volume      float64 `json:"volume,omitempty"`      // nm^3
}

// OutputSpec configures files the engine writes itself.
type OutputSpec struct {
	Trajectory string `json:"trajectory,omitempty"`
	Checkpoint string `json:"checkpoint,omitempty"`
	Interval   int    `json:"interval"`
}

type Engine interface {
	Bind(ctx context.Context, spec BindSpec) (Context, error)
}

// Context is a bound simulation. Its methods must not be called
// concurrently.
type Context interface {
	// MinimizeEnergy relaxes positions; zero tolerance and iterations use
	// the engine defaults.
	MinimizeEnergy(ctx context.Context, tolerance float64, maxIterations int) error
	SetVelocitiesToTemperature(ctx context.Context, temperature float64, seed int64) error
	ConfigureOutput(ctx context.Context, out OutputSpec) error
	// Step advances n steps, calling onFrame every interval steps. A
	// non-nil error from onFrame stops the run.
	Step(ctx context.Context, n int64, interval int, onFrame func(Frame) error) error
	Close() error
}
