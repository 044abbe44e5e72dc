package engine

import (
	"fmt"

	"github.com/san-kum/cgsim/internal/dynamo"
)

const LangevinMiddle = "langevin_middle"

// Integrator describes the thermostatted integrator the engine should use.
type Integrator struct {
	Kind        string  `json:"kind"`
	Friction    float64 `json:"friction"`    // 1/ps
	Timestep    float64 `json:"timestep"`    // ps
	Temperature float64 `json:"temperature"` // K
}

func NewLangevinMiddle(temperature, friction, timestep float64) Integrator {
	return Integrator{
		Kind:        LangevinMiddle,
		Friction:    friction,
		Timestep:    timestep,
		Temperature: temperature,
	}
}

func (i Integrator) Validate() error {
	if i.Kind != LangevinMiddle {
		return fmt.Errorf("engine: unsupported integrator %q", i.Kind)
	}
	if err := dynamo.RequirePositive("friction", i.Friction); err != nil {
		return err
	}
	if err := dynamo.RequirePositive("timestep", i.Timestep); err != nil {
		return err
	}
	return dynamo.RequirePositive("temperature", i.Temperature)
}

// SimulatedTime returns the simulated time in ps after steps.
func (i Integrator) SimulatedTime(steps int64) float64 {
	return float64(steps) * i.Timestep
}
