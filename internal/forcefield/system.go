package forcefield

import (
	"fmt"
	"sort"
	"sync"

	"github.com/san-kum/cgsim/internal/dynamo"
	"github.com/san-kum/cgsim/internal/structure"
)

const MaxForceGroup = 31

// Defaults of the nonbonded terms.
const (
	DefaultContactEpsilon     = 0.8368 // kJ/mol
	DefaultContactCutoff      = 2.0    // nm
	DefaultDielectric         = 80.0
	DefaultElecCutoff         = 3.5 // nm
	DefaultElecSwitchFraction = 0.9
)

type Particle struct {
	Name     string
	Residue  string
	Molecule string
	Mass     float64 // Da
	Charge   float64 // e
	Sigma    float64 // nm
	Lambda   float64
}

// stage is the next term a system accepts.
type stage int

const (
	stageBonds stage = iota
	stageAngles
	stageDihedrals
	stageNativePairs
	stageContacts
	stageElectrostatics
	stageDone
)

func (s stage) String() string {
	switch s {
	case stageBonds:
		return "bonds"
	case stageAngles:
		return "angles"
	case stageDihedrals:
		return "dihedrals"
	case stageNativePairs:
		return "native pairs"
	case stageContacts:
		return "contacts"
	case stageElectrostatics:
		return "electrostatics"
	default:
		return "none"
	}
}

type block struct {
	mol    *structure.Molecule
	offset int
}

// System is the assembled model: particles, periodic box and energy terms.
// Terms are added in the order bonds, angles, dihedrals, native pairs,
// contacts, electrostatics. A frozen system rejects further changes.
type System struct {
	Box            dynamo.Box
	RemoveCMMotion bool

	mu         sync.RWMutex
	particles  []Particle
	forces     []Force
	exclusions []structure.Pair
	blocks     []block
	next       stage
	frozen     bool
}

func (s *System) NumParticles() int {
	return len(s.particles)
}

func (s *System) Particle(i int) Particle {
	return s.particles[i]
}

func (s *System) Particles() []Particle {
	return append([]Particle(nil), s.particles...)
}

func (s *System) Forces() []Force {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Force(nil), s.forces...)
}

// Exclusions returns the global exclusion list, set by AddNativePairs.
func (s *System) Exclusions() []structure.Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]structure.Pair(nil), s.exclusions...)
}

func (s *System) TotalMass() float64 {
	var m float64
	for _, p := range s.particles {
		m += p.Mass
	}
	return m
}

// DegreesOfFreedom is 3N, less three when centre-of-mass motion is removed.
func (s *System) DegreesOfFreedom() int {
	dof := 3 * len(s.particles)
	if s.RemoveCMMotion && dof > 0 {
		dof -= 3
	}
	return dof
}

// Freeze makes the system read-only.
func (s *System) Freeze() {
	s.mu.Lock()
	s.frozen = true
	s.mu.Unlock()
}

func (s *System) Frozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen
}

// begin checks that want is the next accepted term and group is valid.
// The caller must hold s.mu.
func (s *System) begin(want stage, group int) error {
	if s.frozen {
		return dynamo.ErrSystemFrozen
	}
	if s.next != want {
		return fmt.Errorf("%w: cannot add %s, next term is %s", dynamo.ErrTermOrder, want, s.next)
	}
	if group < 0 || group > MaxForceGroup {
		return dynamo.ParameterError{Name: want.String() + " force group", Value: float64(group), Want: "in [0, 31]"}
	}
	return nil
}

func (s *System) commit(f Force) {
	s.forces = append(s.forces, f)
	s.next++
}

func (s *System) AddBonds(group int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(stageBonds, group); err != nil {
		return err
	}
	f := &HarmonicBondForce{Group: group}
	for _, b := range s.blocks {
		for _, t := range b.mol.Bonds {
			f.Bonds = append(f.Bonds, BondTerm{P1: b.offset + t.A1, P2: b.offset + t.A2, Length: t.R0, K: t.K})
		}
	}
	s.commit(f)
	return nil
}

func (s *System) AddAngles(group int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(stageAngles, group); err != nil {
		return err
	}
	f := &HarmonicAngleForce{Group: group}
	for _, b := range s.blocks {
		for _, t := range b.mol.Angles {
			f.Angles = append(f.Angles, AngleTerm{
				P1: b.offset + t.A1, P2: b.offset + t.A2, P3: b.offset + t.A3,
				Angle: t.Theta0, K: t.K,
			})
		}
	}
	s.commit(f)
	return nil
}

func (s *System) AddDihedrals(group int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(stageDihedrals, group); err != nil {
		return err
	}
	f := &PeriodicTorsionForce{Group: group}
	for _, b := range s.blocks {
		for _, t := range b.mol.Dihedrals {
			f.Torsions = append(f.Torsions, TorsionTerm{
				P1: b.offset + t.A1, P2: b.offset + t.A2, P3: b.offset + t.A3, P4: b.offset + t.A4,
				Periodicity: t.Periodicity, Phase: t.Phase, K: t.K,
			})
		}
	}
	s.commit(f)
	return nil
}

// AddNativePairs adds the native contacts of every molecule and fixes the
// global exclusion list used by the nonbonded terms.
func (s *System) AddNativePairs(group int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(stageNativePairs, group); err != nil {
		return err
	}
	f := &NativePairForce{Group: group}
	var excl []structure.Pair
	for _, b := range s.blocks {
		for _, r := range b.mol.NativePairs().Rows() {
			f.Pairs = append(f.Pairs, NativePairTerm{
				P1: b.offset + r.A1, P2: b.offset + r.A2, Mu: r.Mu, Epsilon: r.Epsilon,
			})
		}
		for _, p := range b.mol.Exclusions() {
			excl = append(excl, structure.Pair{b.offset + p[0], b.offset + p[1]})
		}
	}
	sort.Slice(excl, func(i, j int) bool {
		if excl[i][0] != excl[j][0] {
			return excl[i][0] < excl[j][0]
		}
		return excl[i][1] < excl[j][1]
	})
	s.exclusions = excl
	s.commit(f)
	return nil
}

type ContactOptions struct {
	Epsilon float64 // kJ/mol; default 0.8368
	Cutoff  float64 // nm; default 2.0
}

func (o ContactOptions) withDefaults() ContactOptions {
	if o.Epsilon == 0 {
		o.Epsilon = DefaultContactEpsilon
	}
	if o.Cutoff == 0 {
		o.Cutoff = DefaultContactCutoff
	}
	return o
}

func (s *System) AddContacts(group int, opts ContactOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(stageContacts, group); err != nil {
		return err
	}
	opts = opts.withDefaults()
	if err := dynamo.RequirePositive("contact epsilon", opts.Epsilon); err != nil {
		return err
	}
	if err := s.checkCutoff("contact cutoff", opts.Cutoff); err != nil {
		return err
	}
	f := &ContactForce{
		Group:      group,
		Epsilon:    opts.Epsilon,
		Cutoff:     opts.Cutoff,
		Particles:  make([]ContactParticle, len(s.particles)),
		Exclusions: append([]structure.Pair(nil), s.exclusions...),
	}
	for i, p := range s.particles {
		f.Particles[i] = ContactParticle{Sigma: p.Sigma, Lambda: p.Lambda}
	}
	s.commit(f)
	return nil
}

type ElectrostaticsOptions struct {
	Dielectric     float64 // default 80
	Cutoff         float64 // nm; default 3.5
	SwitchFraction float64 // switch start as a fraction of the cutoff; default 0.9
}

func (o ElectrostaticsOptions) withDefaults() ElectrostaticsOptions {
	if o.Dielectric == 0 {
		o.Dielectric = DefaultDielectric
	}
	if o.Cutoff == 0 {
		o.Cutoff = DefaultElecCutoff
	}
	if o.SwitchFraction == 0 {
		o.SwitchFraction = DefaultElecSwitchFraction
	}
	return o
}

// AddElectrostatics adds Debye-Hückel screened electrostatics for a salt of
// ionicStrength (mol/L) at temperature (K).
func (s *System) AddElectrostatics(group int, ionicStrength, temperature float64, opts ElectrostaticsOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(stageElectrostatics, group); err != nil {
		return err
	}
	opts = opts.withDefaults()
	debye, err := DebyeLength(ionicStrength, temperature, opts.Dielectric)
	if err != nil {
		return err
	}
	if err := s.checkCutoff("electrostatics cutoff", opts.Cutoff); err != nil {
		return err
	}
	if opts.SwitchFraction <= 0 || opts.SwitchFraction >= 1 {
		return dynamo.ParameterError{Name: "switch fraction", Value: opts.SwitchFraction, Want: "in (0, 1)"}
	}
	f := &DebyeHuckelForce{
		Group:          group,
		Dielectric:     opts.Dielectric,
		DebyeLength:    debye,
		Cutoff:         opts.Cutoff,
		SwitchDistance: opts.SwitchFraction * opts.Cutoff,
		Charges:        make([]float64, len(s.particles)),
		Exclusions:     append([]structure.Pair(nil), s.exclusions...),
	}
	for i, p := range s.particles {
		f.Charges[i] = p.Charge
	}
	s.commit(f)
	return nil
}

// checkCutoff requires a positive cutoff no longer than half the shortest
// box edge.
func (s *System) checkCutoff(name string, rc float64) error {
	if err := dynamo.RequirePositive(name, rc); err != nil {
		return err
	}
	l := s.Box.Lengths()
	half := 0.5 * min(l[0], l[1], l[2])
	if rc > half {
		return dynamo.ParameterError{Name: name, Value: rc, Want: fmt.Sprintf("at most half the box edge (%g nm)", half)}
	}
	return nil
}

// Complete reports whether every term has been added.
func (s *System) Complete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.next == stageDone
}

// Summary counts particles and terms per force group.
type Summary struct {
	Particles  int
	Exclusions int
	TotalMass  float64
	NetCharge  float64
	Groups     map[int]int
	Kinds      map[string]int
}

func (s *System) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := Summary{
		Particles:  len(s.particles),
		Exclusions: len(s.exclusions),
		Groups:     make(map[int]int),
		Kinds:      make(map[string]int),
	}
	for _, p := range s.particles {
		sum.TotalMass += p.Mass
		sum.NetCharge += p.Charge
	}
	for _, f := range s.forces {
		sum.Groups[f.ForceGroup()] += f.NumTerms()
		sum.Kinds[f.Kind()] += f.NumTerms()
	}
	return sum
}
