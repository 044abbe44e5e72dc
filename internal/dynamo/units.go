package dynamo

// Molar gas constant in kJ/(mol*K).
const GasConstant = 0.00831446261815324

// gramsPerDalton converts atomic mass units to grams.
const gramsPerDalton = 1.66053906660e-24

// KineticTemperature returns the instantaneous temperature in K for a
// kinetic energy in kJ/mol spread over dof degrees of freedom.
func KineticTemperature(kineticEnergy float64, dof int) float64 {
	if dof <= 0 {
		return 0
	}
	return 2 * kineticEnergy / (float64(dof) * GasConstant)
}

// Density returns the mass density in g/mL of massDa daltons in volumeNm3.
func Density(massDa, volumeNm3 float64) float64 {
	if volumeNm3 <= 0 {
		return 0
	}
	// 1 nm^3 = 1e-21 mL
	return massDa * gramsPerDalton / (volumeNm3 * 1e-21)
}
