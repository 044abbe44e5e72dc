package structure

import (
	"fmt"
	"os"
	"strings"

	chem "github.com/rmera/gochem"
	v3 "github.com/rmera/gochem/v3"
	"github.com/san-kum/cgsim/internal/dynamo"
)

// angstromPerNm converts between PDB coordinates and model units.
const angstromPerNm = 10.0

// Bead is one ATOM/HETATM record. In coarse-grained files there is one bead
// per residue.
type Bead struct {
	Name    string
	ResName string
	ResID   int
	Chain   string
	Element string
	Het     bool
	Pos     dynamo.Vec3
}

// Configuration is an ordered list of beads, as read from or written to a
// structure file.
type Configuration struct {
	Beads []Bead
}

func (c *Configuration) Len() int {
	return len(c.Beads)
}

func (c *Configuration) Positions() []dynamo.Vec3 {
	out := make([]dynamo.Vec3, len(c.Beads))
	for i, b := range c.Beads {
		out[i] = b.Pos
	}
	return out
}

func (c *Configuration) Clone() *Configuration {
	out := &Configuration{Beads: make([]Bead, len(c.Beads))}
	copy(out.Beads, c.Beads)
	return out
}

// Centroid returns the unweighted mean bead position.
func (c *Configuration) Centroid() dynamo.Vec3 {
	var sum dynamo.Vec3
	if len(c.Beads) == 0 {
		return sum
	}
	for _, b := range c.Beads {
		sum = sum.Add(b.Pos)
	}
	return sum.Scale(1 / float64(len(c.Beads)))
}

// Append adds all beads of o after the receiver's beads.
func (c *Configuration) Append(o *Configuration) {
	c.Beads = append(c.Beads, o.Beads...)
}

// ReadPDB reads every ATOM/HETATM record of the first model in path.
func ReadPDB(path string) (*Configuration, error) {
	mol, err := chem.PDBFileRead(path, true)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if mol.Len() == 0 || len(mol.Coords) == 0 {
		return nil, fmt.Errorf("read %s: no atom records", path)
	}
	coords := mol.Coords[0]
	cfg := &Configuration{Beads: make([]Bead, mol.Len())}
	for i := 0; i < mol.Len(); i++ {
		at := mol.Atom(i)
		cfg.Beads[i] = Bead{
			Name:    at.Name,
			ResName: strings.TrimSpace(at.MolName),
			ResID:   at.MolID,
			Chain:   at.Chain,
			Element: at.Symbol,
			Het:     at.Het,
			Pos: dynamo.Vec3{
				coords.At(i, 0) / angstromPerNm,
				coords.At(i, 1) / angstromPerNm,
				coords.At(i, 2) / angstromPerNm,
			},
		}
	}
	return cfg, nil
}

// WritePDB writes cfg to path. The file is written next to path and renamed
// into place so readers never observe a partial file.
func WritePDB(path string, cfg *Configuration) error {
	if cfg.Len() == 0 {
		return fmt.Errorf("write %s: empty configuration", path)
	}
	top := chem.NewTopology(0, 1)
	coords := v3.Zeros(cfg.Len())
	for i, b := range cfg.Beads {
		chain := b.Chain
		if len(chain) != 1 {
			chain = "A"
		}
		element := b.Element
		if element == "" {
			element = "C"
		}
		top.AppendAtom(&chem.Atom{
			Name:    b.Name,
			ID:      i%99999 + 1,
			MolName: b.ResName,
			MolID:   b.ResID,
			Chain:   chain,
			Symbol:  element,
			Het:     b.Het,
		})
		for k := 0; k < 3; k++ {
			coords.Set(i, k, b.Pos[k]*angstromPerNm)
		}
	}
	tmp := path + ".tmp"
	if err := chem.PDBFileWrite(tmp, coords, top, nil); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

// DeriveCoarseGrained writes the alpha-carbon beads of the atomistic
// structure at aaPath to cgPath, one per chain and residue id.
func DeriveCoarseGrained(aaPath, cgPath string) error {
	aa, err := ReadPDB(aaPath)
	if err != nil {
		return err
	}
	type residueKey struct {
		chain string
		id    int
	}
	seen := make(map[residueKey]bool)
	cg := &Configuration{}
	for _, b := range aa.Beads {
		if b.Het || b.Name != "CA" {
			continue
		}
		// alternate locations repeat CA; the first one wins
		k := residueKey{b.Chain, b.ResID}
		if seen[k] {
			continue
		}
		seen[k] = true
		cg.Beads = append(cg.Beads, b)
	}
	if cg.Len() == 0 {
		return fmt.Errorf("derive %s: no CA atoms in %s", cgPath, aaPath)
	}
	return WritePDB(cgPath, cg)
}
