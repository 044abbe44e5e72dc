package forcefield

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/cgsim/internal/dynamo"
	"github.com/san-kum/cgsim/internal/structure"
)

var _ = Describe("Builder", func() {
	var b *Builder

	BeforeEach(func() {
		b = NewBuilder()
	})

	It("assigns contiguous index blocks in append order", func() {
		Expect(b.Append(molA())).To(Equal(0))
		Expect(b.Append(molB())).To(Equal(6))
		Expect(b.Len()).To(Equal(10))
	})

	It("rejects a topology whose bead count differs", func() {
		b.Append(molA())
		b.Append(molB())

		_, err := b.CreateSystem(beadCount(9), dynamo.Cube(14), true)
		Expect(err).To(MatchError(dynamo.ErrTopologyMismatch))

		_, err = b.CreateSystem(beadCount(11), dynamo.Cube(14), true)
		Expect(err).To(MatchError(dynamo.ErrTopologyMismatch))
	})

	It("rejects an empty builder", func() {
		_, err := b.CreateSystem(beadCount(0), dynamo.Cube(14), true)
		Expect(err).To(MatchError(dynamo.ErrTopologyMismatch))
	})

	It("rejects a degenerate box", func() {
		b.Append(molB())
		_, err := b.CreateSystem(beadCount(4), dynamo.Box{A: 14, B: 14}, true)
		Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
	})

	It("copies particle parameters in global order", func() {
		b.Append(molA())
		b.Append(molB())
		sys, err := b.CreateSystem(beadCount(10), dynamo.Cube(14), true)
		Expect(err).NotTo(HaveOccurred())

		Expect(sys.NumParticles()).To(Equal(10))
		Expect(sys.Particle(0).Residue).To(Equal("LYS"))
		Expect(sys.Particle(0).Charge).To(Equal(1.0))
		Expect(sys.Particle(6).Molecule).To(Equal("B"))
		Expect(sys.Particle(9).Charge).To(Equal(-1.0))
		Expect(sys.DegreesOfFreedom()).To(Equal(27))
	})
})

var _ = Describe("System", func() {
	var sys *System

	BeforeEach(func() {
		b := NewBuilder()
		b.Append(molA())
		b.Append(molB())
		var err error
		sys, err = b.CreateSystem(beadCount(10), dynamo.Cube(14), true)
		Expect(err).NotTo(HaveOccurred())
	})

	Context("term order", func() {
		It("rejects a term added before its predecessors", func() {
			Expect(sys.AddContacts(5, ContactOptions{})).To(MatchError(dynamo.ErrTermOrder))
			Expect(sys.AddAngles(2)).To(MatchError(dynamo.ErrTermOrder))
			Expect(sys.Forces()).To(BeEmpty())
		})

		It("rejects a repeated term", func() {
			Expect(sys.AddBonds(1)).To(Succeed())
			Expect(sys.AddBonds(1)).To(MatchError(dynamo.ErrTermOrder))
		})

		It("rejects force groups outside 0..31", func() {
			Expect(sys.AddBonds(32)).To(MatchError(dynamo.ErrInvalidParameter))
			Expect(sys.AddBonds(-1)).To(MatchError(dynamo.ErrInvalidParameter))
			Expect(sys.AddBonds(31)).To(Succeed())
		})
	})

	Context("bonded terms", func() {
		BeforeEach(func() {
			Expect(sys.AddBonds(1)).To(Succeed())
			Expect(sys.AddAngles(2)).To(Succeed())
			Expect(sys.AddDihedrals(3)).To(Succeed())
		})

		It("offsets the second molecule's indices", func() {
			bonds := sys.Forces()[0].(*HarmonicBondForce)
			Expect(bonds.Bonds).To(HaveLen(5 + 3))
			Expect(bonds.Bonds[5].P1).To(Equal(6))
			Expect(bonds.Bonds[5].P2).To(Equal(7))
			Expect(bonds.Group).To(Equal(1))

			torsions := sys.Forces()[2].(*PeriodicTorsionForce)
			Expect(torsions.Torsions).To(HaveLen(2 * (3 + 1)))
		})

		It("builds global exclusions from native pairs", func() {
			Expect(sys.AddNativePairs(4)).To(Succeed())
			natives := sys.Forces()[3].(*NativePairForce)
			Expect(natives.Pairs).To(ConsistOf(NativePairTerm{P1: 0, P2: 5, Mu: 0.8, Epsilon: 3}))

			excl := sys.Exclusions()
			Expect(excl).To(ContainElement(structure.Pair{0, 5}))
			Expect(excl).To(ContainElement(structure.Pair{6, 7}))
			Expect(excl).NotTo(ContainElement(structure.Pair{5, 6}))
			// A: 5+4+3 bonded + 1 native, B: 3+2+1 bonded.
			Expect(excl).To(HaveLen(13 + 6))
		})
	})

	Context("electrostatics", func() {
		BeforeEach(func() {
			Expect(sys.AddBonds(1)).To(Succeed())
			Expect(sys.AddAngles(2)).To(Succeed())
			Expect(sys.AddDihedrals(3)).To(Succeed())
			Expect(sys.AddNativePairs(4)).To(Succeed())
			Expect(sys.AddContacts(5, ContactOptions{})).To(Succeed())
		})

		DescribeTable("rejects non-positive thermodynamic parameters",
			func(ionic, temp float64) {
				err := sys.AddElectrostatics(6, ionic, temp, ElectrostaticsOptions{})
				Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
				Expect(sys.Forces()).To(HaveLen(5))
				Expect(sys.Complete()).To(BeFalse())
			},
			Entry("zero ionic strength", 0.0, 300.0),
			Entry("negative ionic strength", -0.1, 300.0),
			Entry("zero temperature", 0.165, 0.0),
			Entry("negative temperature", 0.165, -5.0),
		)

		It("copies charges and the exclusion list", func() {
			Expect(sys.AddElectrostatics(6, 0.165, 300, ElectrostaticsOptions{})).To(Succeed())
			dh := sys.Forces()[5].(*DebyeHuckelForce)
			Expect(dh.Charges).To(HaveLen(10))
			Expect(dh.Charges[0]).To(Equal(1.0))
			Expect(dh.DebyeLength).To(BeNumerically("~", 0.7584, 1e-3))
			Expect(dh.SwitchDistance).To(BeNumerically("~", 3.15, 1e-12))
			Expect(dh.Exclusions).To(Equal(sys.Exclusions()))
			Expect(sys.Complete()).To(BeTrue())
		})

		It("rejects a cutoff beyond half the box", func() {
			err := sys.AddElectrostatics(6, 0.165, 300, ElectrostaticsOptions{Cutoff: 8})
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		})
	})

	It("is read-only once frozen", func() {
		sys.Freeze()
		Expect(sys.AddBonds(1)).To(MatchError(dynamo.ErrSystemFrozen))
	})

	It("summarizes terms per group", func() {
		full, err := assembled()
		Expect(err).NotTo(HaveOccurred())
		sum := full.Summary()
		Expect(sum.Particles).To(Equal(10))
		Expect(sum.Groups).To(HaveKeyWithValue(1, 8))
		Expect(sum.Groups).To(HaveKeyWithValue(4, 1))
		Expect(sum.Groups).To(HaveKeyWithValue(6, 10))
		Expect(sum.NetCharge).To(BeNumerically("~", 1.0, 1e-12))
	})
})
