package structure

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/san-kum/cgsim/internal/dynamo"
)

// ParseOptions controls topology and native contact derivation.
type ParseOptions struct {
	// Name labels the molecule; defaults to the coarse-grained file stem.
	Name string

	// ContactCutoff is the heavy-atom distance defining a native contact, nm.
	ContactCutoff float64
	// MinSeparation is the smallest index separation of an intra-chain contact.
	MinSeparation int
	NativeEpsilon float64

	BondK      float64
	AngleK     float64
	DihedralK1 float64
	DihedralK3 float64
}

func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		ContactCutoff: 0.45,
		MinSeparation: 4,
		NativeEpsilon: 3.0,
		BondK:         1000,
		AngleK:        120,
		DihedralK1:    3.0,
		DihedralK3:    1.5,
	}
}

// ParseAtomistic builds a molecule whose beads come from the coarse-grained
// file and whose native contacts come from the atomistic file.
func ParseAtomistic(aaPath, cgPath string, opts ParseOptions) (*Molecule, error) {
	aa, err := ReadPDB(aaPath)
	if err != nil {
		return nil, err
	}
	cg, err := ReadPDB(cgPath)
	if err != nil {
		return nil, err
	}
	if opts.Name == "" {
		opts.Name = strings.TrimSuffix(filepath.Base(cgPath), filepath.Ext(cgPath))
	}

	residues := groupResidues(aa)
	mismatch := func(detail string) error {
		return &dynamo.StructureError{
			Atomistic: aaPath,
			Coarse:    cgPath,
			Residues:  len(residues),
			Beads:     cg.Len(),
			Detail:    detail,
		}
	}
	if len(residues) != cg.Len() {
		return nil, mismatch("")
	}
	for i, r := range residues {
		if canonicalResName(r.name) != canonicalResName(cg.Beads[i].ResName) {
			return nil, mismatch(fmt.Sprintf("bead %d is %s, residue is %s", i, cg.Beads[i].ResName, r.name))
		}
	}

	mol, err := NewMolecule(cg, opts)
	if err != nil {
		var se *dynamo.StructureError
		if errors.As(err, &se) {
			se.Atomistic, se.Residues = aaPath, len(residues)
		}
		return nil, err
	}
	mol.natives = findNativePairs(residues, cg.Beads, opts)
	mol.exclusions = computeExclusions(mol)
	return mol, nil
}

// NewMolecule builds the bonded topology of a coarse-grained configuration.
// The returned molecule has an empty native contact table.
func NewMolecule(cg *Configuration, opts ParseOptions) (*Molecule, error) {
	beads := cg.Clone().Beads
	mol := &Molecule{
		Name:   opts.Name,
		Beads:  beads,
		params: make([]ResidueParams, len(beads)),
	}
	for i, b := range beads {
		p, ok := LookupResidue(b.ResName)
		if !ok {
			return nil, &dynamo.StructureError{
				Coarse: opts.Name,
				Beads:  len(beads),
				Detail: fmt.Sprintf("unknown residue %q at bead %d", b.ResName, i),
			}
		}
		mol.params[i] = p
	}

	for i := range beads {
		if sameChain(beads, i, i+1) {
			mol.Bonds = append(mol.Bonds, Bond{
				A1: i, A2: i + 1,
				R0: beads[i].Pos.Dist(beads[i+1].Pos),
				K:  opts.BondK,
			})
		}
		if sameChain(beads, i, i+2) {
			mol.Angles = append(mol.Angles, Angle{
				A1: i, A2: i + 1, A3: i + 2,
				Theta0: bondAngle(beads[i].Pos, beads[i+1].Pos, beads[i+2].Pos),
				K:      opts.AngleK,
			})
		}
		if sameChain(beads, i, i+3) {
			phi := dihedralAngle(beads[i].Pos, beads[i+1].Pos, beads[i+2].Pos, beads[i+3].Pos)
			for _, t := range []struct {
				n int
				k float64
			}{{1, opts.DihedralK1}, {3, opts.DihedralK3}} {
				mol.Dihedrals = append(mol.Dihedrals, Dihedral{
					A1: i, A2: i + 1, A3: i + 2, A4: i + 3,
					Periodicity: t.n,
					Phase:       wrapAngle(float64(t.n)*phi - math.Pi),
					K:           t.k,
				})
			}
		}
	}
	mol.exclusions = computeExclusions(mol)
	return mol, nil
}

type residue struct {
	name   string
	chain  string
	id     int
	heavy  []dynamo.Vec3
	center dynamo.Vec3
	radius float64
}

// groupResidues collects heavy atoms of protein records by (chain, residue id)
// in file order.
func groupResidues(aa *Configuration) []residue {
	var out []residue
	for _, b := range aa.Beads {
		if b.Het || isHydrogen(b) {
			continue
		}
		n := len(out)
		if n == 0 || out[n-1].chain != b.Chain || out[n-1].id != b.ResID {
			out = append(out, residue{name: b.ResName, chain: b.Chain, id: b.ResID})
			n++
		}
		out[n-1].heavy = append(out[n-1].heavy, b.Pos)
	}
	for i := range out {
		r := &out[i]
		var sum dynamo.Vec3
		for _, p := range r.heavy {
			sum = sum.Add(p)
		}
		r.center = sum.Scale(1 / float64(len(r.heavy)))
		for _, p := range r.heavy {
			r.radius = math.Max(r.radius, p.Dist(r.center))
		}
	}
	return out
}

func findNativePairs(residues []residue, beads []Bead, opts ParseOptions) NativePairTable {
	var rows []NativePair
	for i := range residues {
		for j := i + 1; j < len(residues); j++ {
			if residues[i].chain == residues[j].chain && j-i < opts.MinSeparation {
				continue
			}
			if !inContact(&residues[i], &residues[j], opts.ContactCutoff) {
				continue
			}
			rows = append(rows, NativePair{
				A1:      i,
				A2:      j,
				Mu:      beads[i].Pos.Dist(beads[j].Pos),
				Epsilon: opts.NativeEpsilon,
			})
		}
	}
	return NewNativePairTable(rows...)
}

func inContact(a, b *residue, cutoff float64) bool {
	if a.center.Dist(b.center)-a.radius-b.radius > cutoff {
		return false
	}
	for _, p := range a.heavy {
		for _, q := range b.heavy {
			if p.Dist(q) <= cutoff {
				return true
			}
		}
	}
	return false
}

func isHydrogen(b Bead) bool {
	switch strings.ToUpper(b.Element) {
	case "H", "D":
		return true
	case "":
		return strings.HasPrefix(strings.ToUpper(b.Name), "H")
	}
	return false
}

func canonicalResName(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	if alias, ok := residueAliases[name]; ok {
		return alias
	}
	return name
}

func bondAngle(a, b, c dynamo.Vec3) float64 {
	u, v := a.Sub(b), c.Sub(b)
	cos := u.Dot(v) / (u.Norm() * v.Norm())
	return math.Acos(math.Max(-1, math.Min(1, cos)))
}

func dihedralAngle(a, b, c, d dynamo.Vec3) float64 {
	b1, b2, b3 := b.Sub(a), c.Sub(b), d.Sub(c)
	n1, n2 := b1.Cross(b2), b2.Cross(b3)
	return math.Atan2(b2.Norm()*b1.Dot(n2), n1.Dot(n2))
}

// wrapAngle maps x into (-pi, pi].
func wrapAngle(x float64) float64 {
	x = math.Mod(x+math.Pi, 2*math.Pi)
	if x <= 0 {
		x += 2 * math.Pi
	}
	return x - math.Pi
}
