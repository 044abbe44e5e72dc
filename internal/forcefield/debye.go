package forcefield

import (
	"math"

	"github.com/san-kum/cgsim/internal/dynamo"
)

// CODATA constants, SI units.
const (
	vacuumPermittivity = 8.8541878128e-12 // F/m
	boltzmann          = 1.380649e-23     // J/K
	avogadro           = 6.02214076e23    // 1/mol
	elementaryCharge   = 1.602176634e-19  // C
)

// DebyeLength returns the screening length in nm for a 1:1 salt of the given
// ionic strength (mol/L) at temperature (K) in a medium of relative
// permittivity dielectric.
func DebyeLength(ionicStrength, temperature, dielectric float64) (float64, error) {
	if err := dynamo.RequirePositive("ionic strength", ionicStrength); err != nil {
		return 0, err
	}
	if err := dynamo.RequirePositive("temperature", temperature); err != nil {
		return 0, err
	}
	if err := dynamo.RequirePositive("dielectric", dielectric); err != nil {
		return 0, err
	}
	// ionic strength in mol/m^3
	i := ionicStrength * 1000
	l := math.Sqrt(vacuumPermittivity * dielectric * boltzmann * temperature /
		(2 * avogadro * elementaryCharge * elementaryCharge * i))
	return l * 1e9, nil
}
