package forcefield

import (
	"math"

	"github.com/san-kum/cgsim/internal/structure"
)

// coulombConstant is 1/(4*pi*eps0) in kJ*nm/(mol*e^2).
const coulombConstant = 138.935456

// Force kinds as written to system files.
const (
	KindHarmonicBond    = "HarmonicBondForce"
	KindHarmonicAngle   = "HarmonicAngleForce"
	KindPeriodicTorsion = "PeriodicTorsionForce"
	KindNativePair      = "NativePairForce"
	KindContact         = "ContactForce"
	KindDebyeHuckel     = "DebyeHuckelForce"
)

// Force is one energy term over global particle indices.
type Force interface {
	Kind() string
	ForceGroup() int
	// NumTerms counts explicit interactions; nonbonded forces count
	// their particles.
	NumTerms() int
}

type BondTerm struct {
	P1, P2 int
	Length float64 // nm
	K      float64 // kJ/mol/nm^2
}

// HarmonicBondForce is 0.5*K*(r-Length)^2 per bond.
type HarmonicBondForce struct {
	Group int
	Bonds []BondTerm
}

func (f *HarmonicBondForce) Kind() string    { return KindHarmonicBond }
func (f *HarmonicBondForce) ForceGroup() int { return f.Group }
func (f *HarmonicBondForce) NumTerms() int   { return len(f.Bonds) }

type AngleTerm struct {
	P1, P2, P3 int
	Angle      float64 // rad
	K          float64 // kJ/mol/rad^2
}

// HarmonicAngleForce is 0.5*K*(theta-Angle)^2 per angle.
type HarmonicAngleForce struct {
	Group  int
	Angles []AngleTerm
}

func (f *HarmonicAngleForce) Kind() string    { return KindHarmonicAngle }
func (f *HarmonicAngleForce) ForceGroup() int { return f.Group }
func (f *HarmonicAngleForce) NumTerms() int   { return len(f.Angles) }

type TorsionTerm struct {
	P1, P2, P3, P4 int
	Periodicity    int
	Phase          float64 // rad
	K              float64 // kJ/mol
}

// PeriodicTorsionForce is K*(1+cos(n*phi-Phase)) per torsion.
type PeriodicTorsionForce struct {
	Group    int
	Torsions []TorsionTerm
}

func (f *PeriodicTorsionForce) Kind() string    { return KindPeriodicTorsion }
func (f *PeriodicTorsionForce) ForceGroup() int { return f.Group }
func (f *PeriodicTorsionForce) NumTerms() int   { return len(f.Torsions) }

type NativePairTerm struct {
	P1, P2  int
	Mu      float64 // nm
	Epsilon float64 // kJ/mol
}

// NativePairForce is the 12-10 well epsilon*(5*(mu/r)^12 - 6*(mu/r)^10),
// with minimum -epsilon at r = mu.
type NativePairForce struct {
	Group int
	Pairs []NativePairTerm
}

const NativePairEnergy = "epsilon*(5*(mu/r)^12-6*(mu/r)^10)"

func (f *NativePairForce) Kind() string    { return KindNativePair }
func (f *NativePairForce) ForceGroup() int { return f.Group }
func (f *NativePairForce) NumTerms() int   { return len(f.Pairs) }

func (t NativePairTerm) Energy(r float64) float64 {
	x := t.Mu / r
	x2 := x * x
	x10 := x2 * x2 * x2 * x2 * x2
	return t.Epsilon * (5*x10*x2 - 6*x10)
}

type ContactParticle struct {
	Sigma  float64 // nm
	Lambda float64
}

// ContactForce is the Ashbaugh-Hatch hydropathy potential between all
// non-excluded particle pairs within Cutoff. Pair parameters are arithmetic
// means of the particle parameters. The energy is shifted to zero at the
// cutoff.
type ContactForce struct {
	Group      int
	Epsilon    float64 // kJ/mol
	Cutoff     float64 // nm
	Particles  []ContactParticle
	Exclusions []structure.Pair
}

func (f *ContactForce) Kind() string    { return KindContact }
func (f *ContactForce) ForceGroup() int { return f.Group }
func (f *ContactForce) NumTerms() int   { return len(f.Particles) }

// PairEnergy evaluates the contact energy between particles i and j at r.
func (f *ContactForce) PairEnergy(i, j int, r float64) float64 {
	if r >= f.Cutoff {
		return 0
	}
	sigma := 0.5 * (f.Particles[i].Sigma + f.Particles[j].Sigma)
	lambda := 0.5 * (f.Particles[i].Lambda + f.Particles[j].Lambda)
	lj := func(r float64) float64 {
		s6 := math.Pow(sigma/r, 6)
		return 4 * f.Epsilon * (s6*s6 - s6)
	}
	shift := lambda * lj(f.Cutoff)
	if r <= math.Pow(2, 1.0/6)*sigma {
		return lj(r) + (1-lambda)*f.Epsilon - shift
	}
	return lambda*lj(r) - shift
}

// DebyeHuckelForce is screened Coulomb between all non-excluded charged
// pairs, smoothly switched off between SwitchDistance and Cutoff.
type DebyeHuckelForce struct {
	Group          int
	Dielectric     float64
	DebyeLength    float64 // nm
	Cutoff         float64 // nm
	SwitchDistance float64 // nm
	Charges        []float64
	Exclusions     []structure.Pair
}

func (f *DebyeHuckelForce) Kind() string    { return KindDebyeHuckel }
func (f *DebyeHuckelForce) ForceGroup() int { return f.Group }
func (f *DebyeHuckelForce) NumTerms() int   { return len(f.Charges) }

func (f *DebyeHuckelForce) PairEnergy(i, j int, r float64) float64 {
	if r >= f.Cutoff {
		return 0
	}
	e := coulombConstant * f.Charges[i] * f.Charges[j] / (f.Dielectric * r) * math.Exp(-r/f.DebyeLength)
	if r > f.SwitchDistance {
		x := (r - f.SwitchDistance) / (f.Cutoff - f.SwitchDistance)
		e *= 1 - x*x*x*(10-15*x+6*x*x)
	}
	return e
}
