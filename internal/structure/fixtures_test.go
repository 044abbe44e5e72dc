package structure

import (
	"path/filepath"
	"testing"

	"github.com/san-kum/cgsim/internal/dynamo"
)

var hairpinResidues = []string{"ALA", "LYS", "GLU", "GLY", "SER", "ASP", "ARG", "VAL"}

// hairpinCA places eight residues as two antiparallel strands 0.6 nm apart so
// that residues i and 7-i face each other.
func hairpinCA(i int) (dynamo.Vec3, float64) {
	const rise = 0.38
	if i < 4 {
		return dynamo.Vec3{rise * float64(i), 0, 0}, 1
	}
	return dynamo.Vec3{rise * float64(7-i), 0.6, 0}, -1
}

// writeHairpin writes an atomistic hairpin with CA, CB and one hydrogen per
// residue and returns its path.
func writeHairpin(t *testing.T) string {
	t.Helper()
	cfg := &Configuration{}
	for i, name := range hairpinResidues {
		ca, dir := hairpinCA(i)
		cb := ca.Add(dynamo.Vec3{0, 0.15 * dir, 0})
		h := ca.Add(dynamo.Vec3{0, 0, 0.1})
		for _, at := range []struct {
			name, element string
			pos           dynamo.Vec3
		}{{"CA", "C", ca}, {"CB", "C", cb}, {"HA", "H", h}} {
			cfg.Beads = append(cfg.Beads, Bead{
				Name: at.name, ResName: name, ResID: i + 1, Chain: "A",
				Element: at.element, Pos: at.pos,
			})
		}
	}
	path := filepath.Join(t.TempDir(), "hairpin_aa.pdb")
	if err := WritePDB(path, cfg); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func writeCoarse(t *testing.T, names []string) string {
	t.Helper()
	cfg := &Configuration{}
	for i, name := range names {
		ca, _ := hairpinCA(i)
		cfg.Beads = append(cfg.Beads, Bead{Name: "CA", ResName: name, ResID: i + 1, Chain: "A", Element: "C", Pos: ca})
	}
	path := filepath.Join(t.TempDir(), "hairpin_ca.pdb")
	if err := WritePDB(path, cfg); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}
