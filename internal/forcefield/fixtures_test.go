package forcefield

import (
	"github.com/san-kum/cgsim/internal/dynamo"
	"github.com/san-kum/cgsim/internal/structure"
)

// zigzag builds a single-chain molecule with one bead per residue name and
// the given native pairs.
func zigzag(name string, residues []string, pairs ...[2]int) *structure.Molecule {
	cfg := &structure.Configuration{}
	for i, r := range residues {
		cfg.Beads = append(cfg.Beads, structure.Bead{
			Name: "CA", ResName: r, ResID: i + 1, Chain: "A",
			Pos: dynamo.Vec3{0.33 * float64(i), 0.1 * float64(i%2), 0.05 * float64(i%3)},
		})
	}
	opts := structure.DefaultParseOptions()
	opts.Name = name
	mol, err := structure.NewMolecule(cfg, opts)
	if err != nil {
		panic(err)
	}
	rows := make([]structure.NativePair, len(pairs))
	for i, p := range pairs {
		rows[i] = structure.NativePair{A1: p[0], A2: p[1], Mu: 0.8, Epsilon: 3}
	}
	return mol.WithNativePairs(structure.NewNativePairTable(rows...))
}

// molA has 6 beads and one native pair; molB has 4 beads and none.
func molA() *structure.Molecule {
	return zigzag("A", []string{"LYS", "ALA", "GLU", "GLY", "ARG", "ASP"}, [2]int{0, 5})
}

func molB() *structure.Molecule {
	return zigzag("B", []string{"SER", "LYS", "LYS", "GLU"})
}

type beadCount int

func (n beadCount) Len() int { return int(n) }

// assembled returns a complete system of molA followed by molB.
func assembled() (*System, error) {
	b := NewBuilder()
	b.Append(molA())
	b.Append(molB())
	sys, err := b.CreateSystem(beadCount(10), dynamo.Cube(14), true)
	if err != nil {
		return nil, err
	}
	steps := []func() error{
		func() error { return sys.AddBonds(1) },
		func() error { return sys.AddAngles(2) },
		func() error { return sys.AddDihedrals(3) },
		func() error { return sys.AddNativePairs(4) },
		func() error { return sys.AddContacts(5, ContactOptions{}) },
		func() error { return sys.AddElectrostatics(6, 0.165, 300, ElectrostaticsOptions{}) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return sys, nil
}
