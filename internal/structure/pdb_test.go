package structure

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/san-kum/cgsim/internal/dynamo"
)

func TestPDBRoundTrip(t *testing.T) {
	path := writeHairpin(t)

	cfg, err := ReadPDB(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if cfg.Len() != 24 {
		t.Fatalf("expected 24 records, got %d", cfg.Len())
	}

	b := cfg.Beads[3]
	if b.Name != "CA" || b.ResName != "LYS" || b.ResID != 2 || b.Chain != "A" {
		t.Errorf("unexpected record %+v", b)
	}
	if math.Abs(b.Pos[0]-0.38) > 1e-3 {
		t.Errorf("expected x=0.38 nm, got %f", b.Pos[0])
	}
	if cfg.Beads[2].Element != "H" {
		t.Errorf("expected hydrogen element, got %q", cfg.Beads[2].Element)
	}
}

func TestDeriveCoarseGrained(t *testing.T) {
	aa := writeHairpin(t)
	cgPath := filepath.Join(t.TempDir(), "ca.pdb")

	if err := DeriveCoarseGrained(aa, cgPath); err != nil {
		t.Fatalf("derive failed: %v", err)
	}

	cg, err := ReadPDB(cgPath)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if cg.Len() != len(hairpinResidues) {
		t.Fatalf("expected %d beads, got %d", len(hairpinResidues), cg.Len())
	}
	for i, b := range cg.Beads {
		if b.Name != "CA" || b.ResName != hairpinResidues[i] {
			t.Errorf("bead %d: got %s %s", i, b.Name, b.ResName)
		}
	}
}

func TestDeriveCoarseGrained_AltLoc(t *testing.T) {
	aa, err := ReadPDB(writeHairpin(t))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var beads []Bead
	for _, b := range aa.Beads {
		beads = append(beads, b)
		if b.Name == "CA" {
			alt := b
			alt.Pos = b.Pos.Add(dynamo.Vec3{0.05, 0, 0})
			beads = append(beads, alt)
		}
	}
	dir := t.TempDir()
	aaPath := filepath.Join(dir, "altloc_aa.pdb")
	if err := WritePDB(aaPath, &Configuration{Beads: beads}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	cgPath := filepath.Join(dir, "ca.pdb")
	if err := DeriveCoarseGrained(aaPath, cgPath); err != nil {
		t.Fatalf("derive failed: %v", err)
	}

	cg, err := ReadPDB(cgPath)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if cg.Len() != len(hairpinResidues) {
		t.Fatalf("expected %d beads, got %d", len(hairpinResidues), cg.Len())
	}
	for i, b := range cg.Beads {
		want, _ := hairpinCA(i)
		if b.Pos.Sub(want).Norm() > 1e-3 {
			t.Errorf("bead %d at %v, want first location %v", i, b.Pos, want)
		}
	}
}

func TestReadPDB_Missing(t *testing.T) {
	if _, err := ReadPDB(filepath.Join(t.TempDir(), "nope.pdb")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWritePDB_Empty(t *testing.T) {
	if err := WritePDB(filepath.Join(t.TempDir(), "empty.pdb"), &Configuration{}); err == nil {
		t.Error("expected error for empty configuration")
	}
}

func TestConfigurationCentroid(t *testing.T) {
	cfg := &Configuration{Beads: []Bead{{Pos: [3]float64{0, 0, 0}}, {Pos: [3]float64{2, 4, 6}}}}
	c := cfg.Centroid()
	if c[0] != 1 || c[1] != 2 || c[2] != 3 {
		t.Errorf("expected centroid (1,2,3), got %v", c)
	}
}
