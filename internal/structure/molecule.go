package structure

import "sort"

// Pair is an unordered bead-index pair stored lower index first.
type Pair [2]int

// Canonical returns the pair with the lower index first.
func (p Pair) Canonical() Pair {
	if p[0] > p[1] {
		return Pair{p[1], p[0]}
	}
	return p
}

type Bond struct {
	A1, A2 int
	R0     float64 // nm
	K      float64 // kJ/mol/nm^2
}

type Angle struct {
	A1, A2, A3 int
	Theta0     float64 // rad
	K          float64 // kJ/mol/rad^2
}

type Dihedral struct {
	A1, A2, A3, A4 int
	Periodicity    int
	Phase          float64 // rad
	K              float64 // kJ/mol
}

// NativePair is one row of a native contact table.
type NativePair struct {
	A1, A2  int
	Mu      float64 // equilibrium distance, nm
	Epsilon float64 // well depth, kJ/mol
}

func (p NativePair) Pair() Pair {
	return Pair{p.A1, p.A2}
}

// nativePairColumns is the fixed schema of every native contact table.
var nativePairColumns = []string{"a1", "a2", "mu", "epsilon"}

// NativePairTable is a set of native contacts with unique canonical pairs.
// The zero value is an empty table.
type NativePairTable struct {
	rows []NativePair
}

// NewNativePairTable canonicalizes rows and drops self pairs and repeated
// pairs, keeping the first occurrence.
func NewNativePairTable(rows ...NativePair) NativePairTable {
	seen := make(map[Pair]bool, len(rows))
	out := make([]NativePair, 0, len(rows))
	for _, r := range rows {
		if r.A1 > r.A2 {
			r.A1, r.A2 = r.A2, r.A1
		}
		if r.A1 == r.A2 || seen[r.Pair()] {
			continue
		}
		seen[r.Pair()] = true
		out = append(out, r)
	}
	return NativePairTable{rows: out}
}

// Columns returns the column schema, identical for empty tables.
func (t NativePairTable) Columns() []string {
	return append([]string(nil), nativePairColumns...)
}

func (t NativePairTable) Len() int {
	return len(t.rows)
}

func (t NativePairTable) Row(i int) NativePair {
	return t.rows[i]
}

// Rows returns a copy of the table rows.
func (t NativePairTable) Rows() []NativePair {
	return append([]NativePair(nil), t.rows...)
}

// Select returns the rows for which keep reports true.
func (t NativePairTable) Select(keep func(NativePair) bool) NativePairTable {
	out := make([]NativePair, 0, len(t.rows))
	for _, r := range t.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return NativePairTable{rows: out}
}

// Molecule is one parsed chain set in the one-bead-per-residue model. The
// native contact table and the exclusions derived from it are only replaced
// together, through WithNativePairs; FilterNativePairs is built on it.
type Molecule struct {
	Name      string
	Beads     []Bead
	Bonds     []Bond
	Angles    []Angle
	Dihedrals []Dihedral

	params     []ResidueParams
	natives    NativePairTable
	exclusions []Pair
}

func (m *Molecule) Len() int {
	return len(m.Beads)
}

// Params returns the residue parameters of bead i.
func (m *Molecule) Params(i int) ResidueParams {
	return m.params[i]
}

func (m *Molecule) NativePairs() NativePairTable {
	return m.natives
}

// Exclusions returns the canonical, sorted pairs excluded from generic
// short-range interactions.
func (m *Molecule) Exclusions() []Pair {
	return append([]Pair(nil), m.exclusions...)
}

// Configuration returns the molecule's beads as a standalone configuration.
func (m *Molecule) Configuration() *Configuration {
	return (&Configuration{Beads: m.Beads}).Clone()
}

// WithNativePairs returns a copy of m carrying table as its native contacts,
// with exclusions recomputed from the new table.
func (m *Molecule) WithNativePairs(table NativePairTable) *Molecule {
	out := *m
	out.natives = table
	out.exclusions = computeExclusions(&out)
	return &out
}

// FilterNativePairs keeps only the native pairs for which keep reports true.
func (m *Molecule) FilterNativePairs(keep func(NativePair) bool) *Molecule {
	return m.WithNativePairs(m.natives.Select(keep))
}

// computeExclusions collects 1-2, 1-3 and 1-4 neighbours and native pairs.
func computeExclusions(m *Molecule) []Pair {
	set := make(map[Pair]bool)
	add := func(i, j int) {
		if i != j {
			set[Pair{i, j}.Canonical()] = true
		}
	}
	for _, b := range m.Bonds {
		add(b.A1, b.A2)
	}
	for _, a := range m.Angles {
		add(a.A1, a.A3)
	}
	for _, d := range m.Dihedrals {
		add(d.A1, d.A4)
	}
	for _, r := range m.natives.rows {
		add(r.A1, r.A2)
	}
	out := make([]Pair, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

// sameChain reports whether beads i..j all belong to one chain.
func sameChain(beads []Bead, i, j int) bool {
	if i < 0 || j >= len(beads) {
		return false
	}
	for k := i + 1; k <= j; k++ {
		if beads[k].Chain != beads[i].Chain {
			return false
		}
	}
	return true
}
