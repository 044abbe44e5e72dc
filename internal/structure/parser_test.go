package structure

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/cgsim/internal/dynamo"
)

func parseHairpin(t *testing.T) *Molecule {
	t.Helper()
	mol, err := ParseAtomistic(writeHairpin(t), writeCoarse(t, hairpinResidues), DefaultParseOptions())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return mol
}

func TestParseAtomistic_Topology(t *testing.T) {
	mol := parseHairpin(t)

	if mol.Len() != 8 {
		t.Fatalf("expected 8 beads, got %d", mol.Len())
	}
	if mol.Name != "hairpin_ca" {
		t.Errorf("expected name from file stem, got %q", mol.Name)
	}
	if len(mol.Bonds) != 7 {
		t.Errorf("expected 7 bonds, got %d", len(mol.Bonds))
	}
	if len(mol.Angles) != 6 {
		t.Errorf("expected 6 angles, got %d", len(mol.Angles))
	}
	if len(mol.Dihedrals) != 10 {
		t.Errorf("expected 10 dihedral terms, got %d", len(mol.Dihedrals))
	}
	if math.Abs(mol.Bonds[0].R0-0.38) > 1e-3 {
		t.Errorf("expected bond length 0.38, got %f", mol.Bonds[0].R0)
	}
	if math.Abs(mol.Angles[0].Theta0-math.Pi) > 1e-3 {
		t.Errorf("expected straight angle, got %f", mol.Angles[0].Theta0)
	}
	if mol.Params(1).Charge != 1 || mol.Params(2).Charge != -1 {
		t.Errorf("unexpected charges %v %v", mol.Params(1).Charge, mol.Params(2).Charge)
	}
}

func TestParseAtomistic_NativePairs(t *testing.T) {
	mol := parseHairpin(t)
	natives := mol.NativePairs()

	if natives.Len() != 2 {
		t.Fatalf("expected 2 native pairs, got %d: %v", natives.Len(), natives.Rows())
	}
	want := map[Pair]bool{{0, 7}: true, {1, 6}: true}
	for _, r := range natives.Rows() {
		if !want[r.Pair()] {
			t.Errorf("unexpected native pair %v", r.Pair())
		}
		if math.Abs(r.Mu-0.6) > 1e-3 {
			t.Errorf("expected mu 0.6, got %f", r.Mu)
		}
		if r.Epsilon != 3.0 {
			t.Errorf("expected epsilon 3.0, got %f", r.Epsilon)
		}
	}
}

func TestParseAtomistic_Exclusions(t *testing.T) {
	mol := parseHairpin(t)
	excl := mol.Exclusions()

	// 7 bonds + 6 angles + 5 torsion endpoints + 2 native pairs
	if len(excl) != 20 {
		t.Fatalf("expected 20 exclusions, got %d", len(excl))
	}
	for i := 1; i < len(excl); i++ {
		prev, cur := excl[i-1], excl[i]
		if prev[0] > cur[0] || (prev[0] == cur[0] && prev[1] >= cur[1]) {
			t.Fatalf("exclusions not sorted and unique at %d: %v %v", i, prev, cur)
		}
	}
}

func TestParseAtomistic_Mismatch(t *testing.T) {
	tests := []struct {
		name  string
		names []string
	}{
		{"fewer beads", hairpinResidues[:7]},
		{"renamed residue", append(append([]string{}, hairpinResidues[:7]...), "TRP")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAtomistic(writeHairpin(t), writeCoarse(t, tt.names), DefaultParseOptions())
			if !errors.Is(err, dynamo.ErrStructureMismatch) {
				t.Fatalf("expected structure mismatch, got %v", err)
			}
			var se *dynamo.StructureError
			if !errors.As(err, &se) || se.Residues != 8 {
				t.Errorf("expected structure error with 8 residues, got %v", err)
			}
		})
	}
}

func TestNewMolecule_UnknownResidue(t *testing.T) {
	cfg := &Configuration{Beads: []Bead{{Name: "CA", ResName: "XYZ", Chain: "A"}}}
	if _, err := NewMolecule(cfg, DefaultParseOptions()); !errors.Is(err, dynamo.ErrStructureMismatch) {
		t.Errorf("expected structure mismatch, got %v", err)
	}
}

func TestNewMolecule_ChainBreak(t *testing.T) {
	cfg := &Configuration{}
	for i := 0; i < 6; i++ {
		chain := "A"
		if i >= 3 {
			chain = "B"
		}
		cfg.Beads = append(cfg.Beads, Bead{Name: "CA", ResName: "GLY", ResID: i + 1, Chain: chain, Pos: dynamo.Vec3{float64(i), 0, 0}})
	}
	mol, err := NewMolecule(cfg, DefaultParseOptions())
	if err != nil {
		t.Fatalf("new molecule: %v", err)
	}
	if len(mol.Bonds) != 4 {
		t.Errorf("expected 4 bonds across two chains, got %d", len(mol.Bonds))
	}
	if len(mol.Angles) != 2 {
		t.Errorf("expected 2 angles, got %d", len(mol.Angles))
	}
	if len(mol.Dihedrals) != 0 {
		t.Errorf("expected no dihedrals, got %d", len(mol.Dihedrals))
	}
}

func TestDihedralAngle(t *testing.T) {
	a := dynamo.Vec3{1, 0, 0}
	b := dynamo.Vec3{0, 0, 0}
	c := dynamo.Vec3{0, 1, 0}

	tests := []struct {
		d    dynamo.Vec3
		want float64
	}{
		{dynamo.Vec3{1, 1, 0}, 0},
		{dynamo.Vec3{-1, 1, 0}, math.Pi},
		{dynamo.Vec3{0, 1, 1}, -math.Pi / 2},
	}
	for _, tt := range tests {
		got := dihedralAngle(a, b, c, tt.d)
		if diff := math.Abs(got - tt.want); diff > 1e-9 && math.Abs(diff-2*math.Pi) > 1e-9 {
			t.Errorf("dihedral(%v) = %f, want %f", tt.d, got, tt.want)
		}
	}
}

func TestWrapAngle(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi / 2, -math.Pi / 2},
	}
	for _, tt := range tests {
		if got := wrapAngle(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("wrapAngle(%f) = %f, want %f", tt.in, got, tt.want)
		}
	}
}
