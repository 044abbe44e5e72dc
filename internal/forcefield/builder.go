// Package forcefield assembles parsed molecules into one periodic system and
// adds its energy terms in a fixed order.
package forcefield

import (
	"fmt"

	"github.com/san-kum/cgsim/internal/dynamo"
	"github.com/san-kum/cgsim/internal/structure"
)

// Topology is the externally parsed bead list the system is bound to.
type Topology interface {
	Len() int
}

// Builder collects molecules and assigns them contiguous global index
// blocks in append order.
type Builder struct {
	mols    []*structure.Molecule
	offsets []int
	n       int
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Append adds mol and returns the global index of its first bead.
func (b *Builder) Append(mol *structure.Molecule) int {
	off := b.n
	b.mols = append(b.mols, mol)
	b.offsets = append(b.offsets, off)
	b.n += mol.Len()
	return off
}

// Len is the total bead count of the appended molecules.
func (b *Builder) Len() int {
	return b.n
}

func (b *Builder) NumMolecules() int {
	return len(b.mols)
}

// CreateSystem binds the appended molecules to top in box. The bead count of
// top must equal Len. The builder is left unchanged.
func (b *Builder) CreateSystem(top Topology, box dynamo.Box, removeCMMotion bool) (*System, error) {
	if len(b.mols) == 0 {
		return nil, fmt.Errorf("%w: no molecules appended", dynamo.ErrTopologyMismatch)
	}
	if top == nil || top.Len() != b.n {
		got := 0
		if top != nil {
			got = top.Len()
		}
		return nil, fmt.Errorf("%w: topology has %d beads, appended molecules have %d",
			dynamo.ErrTopologyMismatch, got, b.n)
	}
	if err := box.Validate(); err != nil {
		return nil, err
	}

	sys := &System{
		Box:            box,
		RemoveCMMotion: removeCMMotion,
		particles:      make([]Particle, 0, b.n),
	}
	for k, mol := range b.mols {
		sys.blocks = append(sys.blocks, block{mol: mol, offset: b.offsets[k]})
		for i, bead := range mol.Beads {
			p := mol.Params(i)
			sys.particles = append(sys.particles, Particle{
				Name:     bead.Name,
				Residue:  bead.ResName,
				Molecule: mol.Name,
				Mass:     p.Mass,
				Charge:   p.Charge,
				Sigma:    p.Sigma,
				Lambda:   p.Lambda,
			})
		}
	}
	return sys, nil
}
