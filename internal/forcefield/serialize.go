package forcefield

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/cgsim/internal/dynamo"
	"github.com/san-kum/cgsim/internal/structure"
)

const documentVersion = 1

// document is the serialized form of a System shared by the XML, YAML and
// JSON encodings.
type document struct {
	XMLName        xml.Name      `xml:"System" yaml:"-" json:"-"`
	Version        int           `xml:"version,attr" yaml:"version" json:"version"`
	RemoveCMMotion bool          `xml:"removeCMMotion,attr" yaml:"remove_cm_motion" json:"remove_cm_motion"`
	Box            boxDoc        `xml:"PeriodicBoxVectors" yaml:"box" json:"box"`
	Particles      []particleDoc `xml:"Particles>Particle" yaml:"particles" json:"particles"`
	Exclusions     []pairDoc     `xml:"Exclusions>Exclusion" yaml:"exclusions,omitempty" json:"exclusions,omitempty"`
	Forces         []forceDoc    `xml:"Forces>Force" yaml:"forces" json:"forces"`
}

type vecDoc struct {
	X float64 `xml:"x,attr" yaml:"x" json:"x"`
	Y float64 `xml:"y,attr" yaml:"y" json:"y"`
	Z float64 `xml:"z,attr" yaml:"z" json:"z"`
}

type boxDoc struct {
	A vecDoc `xml:"A" yaml:"a" json:"a"`
	B vecDoc `xml:"B" yaml:"b" json:"b"`
	C vecDoc `xml:"C" yaml:"c" json:"c"`
}

type particleDoc struct {
	Mass     float64 `xml:"mass,attr" yaml:"mass" json:"mass"`
	Charge   float64 `xml:"charge,attr" yaml:"charge" json:"charge"`
	Sigma    float64 `xml:"sigma,attr" yaml:"sigma" json:"sigma"`
	Lambda   float64 `xml:"lambda,attr" yaml:"lambda" json:"lambda"`
	Name     string  `xml:"name,attr,omitempty" yaml:"name,omitempty" json:"name,omitempty"`
	Residue  string  `xml:"residue,attr,omitempty" yaml:"residue,omitempty" json:"residue,omitempty"`
	Molecule string  `xml:"molecule,attr,omitempty" yaml:"molecule,omitempty" json:"molecule,omitempty"`
}

type pairDoc struct {
	P1 int `xml:"p1,attr" yaml:"p1" json:"p1"`
	P2 int `xml:"p2,attr" yaml:"p2" json:"p2"`
}

type termDoc struct {
	P1          int     `xml:"p1,attr" yaml:"p1" json:"p1"`
	P2          int     `xml:"p2,attr" yaml:"p2" json:"p2"`
	P3          int     `xml:"p3,attr,omitempty" yaml:"p3,omitempty" json:"p3,omitempty"`
	P4          int     `xml:"p4,attr,omitempty" yaml:"p4,omitempty" json:"p4,omitempty"`
	Length      float64 `xml:"d,attr,omitempty" yaml:"d,omitempty" json:"d,omitempty"`
	Angle       float64 `xml:"a,attr,omitempty" yaml:"a,omitempty" json:"a,omitempty"`
	Periodicity int     `xml:"periodicity,attr,omitempty" yaml:"periodicity,omitempty" json:"periodicity,omitempty"`
	Phase       float64 `xml:"phase,attr,omitempty" yaml:"phase,omitempty" json:"phase,omitempty"`
	K           float64 `xml:"k,attr,omitempty" yaml:"k,omitempty" json:"k,omitempty"`
	Mu          float64 `xml:"mu,attr,omitempty" yaml:"mu,omitempty" json:"mu,omitempty"`
	Epsilon     float64 `xml:"epsilon,attr,omitempty" yaml:"epsilon,omitempty" json:"epsilon,omitempty"`
}

type perParticleDoc struct {
	Sigma  float64 `xml:"sigma,attr,omitempty" yaml:"sigma,omitempty" json:"sigma,omitempty"`
	Lambda float64 `xml:"lambda,attr,omitempty" yaml:"lambda,omitempty" json:"lambda,omitempty"`
	Q      float64 `xml:"q,attr,omitempty" yaml:"q,omitempty" json:"q,omitempty"`
}

type forceDoc struct {
	Type           string           `xml:"type,attr" yaml:"type" json:"type"`
	Group          int              `xml:"forceGroup,attr" yaml:"group" json:"group"`
	Energy         string           `xml:"energy,attr,omitempty" yaml:"energy,omitempty" json:"energy,omitempty"`
	Epsilon        float64          `xml:"epsilon,attr,omitempty" yaml:"epsilon,omitempty" json:"epsilon,omitempty"`
	Cutoff         float64          `xml:"cutoff,attr,omitempty" yaml:"cutoff,omitempty" json:"cutoff,omitempty"`
	SwitchDistance float64          `xml:"switchDistance,attr,omitempty" yaml:"switch_distance,omitempty" json:"switch_distance,omitempty"`
	Dielectric     float64          `xml:"dielectric,attr,omitempty" yaml:"dielectric,omitempty" json:"dielectric,omitempty"`
	DebyeLength    float64          `xml:"debyeLength,attr,omitempty" yaml:"debye_length,omitempty" json:"debye_length,omitempty"`
	Terms          []termDoc        `xml:"Terms>Term" yaml:"terms,omitempty" json:"terms,omitempty"`
	Particles      []perParticleDoc `xml:"Particles>Particle" yaml:"particles,omitempty" json:"particles,omitempty"`
	Exclusions     []pairDoc        `xml:"Exclusions>Exclusion" yaml:"exclusions,omitempty" json:"exclusions,omitempty"`
}

func pairDocs(pairs []structure.Pair) []pairDoc {
	out := make([]pairDoc, len(pairs))
	for i, p := range pairs {
		out[i] = pairDoc{P1: p[0], P2: p[1]}
	}
	return out
}

func pairsFromDocs(docs []pairDoc) []structure.Pair {
	out := make([]structure.Pair, len(docs))
	for i, d := range docs {
		out[i] = structure.Pair{d.P1, d.P2}
	}
	return out
}

func encodeForce(f Force) (forceDoc, error) {
	d := forceDoc{Type: f.Kind(), Group: f.ForceGroup()}
	switch f := f.(type) {
	case *HarmonicBondForce:
		for _, t := range f.Bonds {
			d.Terms = append(d.Terms, termDoc{P1: t.P1, P2: t.P2, Length: t.Length, K: t.K})
		}
	case *HarmonicAngleForce:
		for _, t := range f.Angles {
			d.Terms = append(d.Terms, termDoc{P1: t.P1, P2: t.P2, P3: t.P3, Angle: t.Angle, K: t.K})
		}
	case *PeriodicTorsionForce:
		for _, t := range f.Torsions {
			d.Terms = append(d.Terms, termDoc{
				P1: t.P1, P2: t.P2, P3: t.P3, P4: t.P4,
				Periodicity: t.Periodicity, Phase: t.Phase, K: t.K,
			})
		}
	case *NativePairForce:
		d.Energy = NativePairEnergy
		for _, t := range f.Pairs {
			d.Terms = append(d.Terms, termDoc{P1: t.P1, P2: t.P2, Mu: t.Mu, Epsilon: t.Epsilon})
		}
	case *ContactForce:
		d.Epsilon, d.Cutoff = f.Epsilon, f.Cutoff
		for _, p := range f.Particles {
			d.Particles = append(d.Particles, perParticleDoc{Sigma: p.Sigma, Lambda: p.Lambda})
		}
		d.Exclusions = pairDocs(f.Exclusions)
	case *DebyeHuckelForce:
		d.Dielectric, d.DebyeLength = f.Dielectric, f.DebyeLength
		d.Cutoff, d.SwitchDistance = f.Cutoff, f.SwitchDistance
		for _, q := range f.Charges {
			d.Particles = append(d.Particles, perParticleDoc{Q: q})
		}
		d.Exclusions = pairDocs(f.Exclusions)
	default:
		return d, fmt.Errorf("forcefield: cannot encode %s", f.Kind())
	}
	return d, nil
}

func decodeForce(d forceDoc) (Force, error) {
	switch d.Type {
	case KindHarmonicBond:
		f := &HarmonicBondForce{Group: d.Group}
		for _, t := range d.Terms {
			f.Bonds = append(f.Bonds, BondTerm{P1: t.P1, P2: t.P2, Length: t.Length, K: t.K})
		}
		return f, nil
	case KindHarmonicAngle:
		f := &HarmonicAngleForce{Group: d.Group}
		for _, t := range d.Terms {
			f.Angles = append(f.Angles, AngleTerm{P1: t.P1, P2: t.P2, P3: t.P3, Angle: t.Angle, K: t.K})
		}
		return f, nil
	case KindPeriodicTorsion:
		f := &PeriodicTorsionForce{Group: d.Group}
		for _, t := range d.Terms {
			f.Torsions = append(f.Torsions, TorsionTerm{
				P1: t.P1, P2: t.P2, P3: t.P3, P4: t.P4,
				Periodicity: t.Periodicity, Phase: t.Phase, K: t.K,
			})
		}
		return f, nil
	case KindNativePair:
		f := &NativePairForce{Group: d.Group}
		for _, t := range d.Terms {
			f.Pairs = append(f.Pairs, NativePairTerm{P1: t.P1, P2: t.P2, Mu: t.Mu, Epsilon: t.Epsilon})
		}
		return f, nil
	case KindContact:
		f := &ContactForce{Group: d.Group, Epsilon: d.Epsilon, Cutoff: d.Cutoff, Exclusions: pairsFromDocs(d.Exclusions)}
		for _, p := range d.Particles {
			f.Particles = append(f.Particles, ContactParticle{Sigma: p.Sigma, Lambda: p.Lambda})
		}
		return f, nil
	case KindDebyeHuckel:
		f := &DebyeHuckelForce{
			Group: d.Group, Dielectric: d.Dielectric, DebyeLength: d.DebyeLength,
			Cutoff: d.Cutoff, SwitchDistance: d.SwitchDistance,
			Exclusions: pairsFromDocs(d.Exclusions),
		}
		for _, p := range d.Particles {
			f.Charges = append(f.Charges, p.Q)
		}
		return f, nil
	}
	return nil, fmt.Errorf("forcefield: unknown force type %q", d.Type)
}

func (s *System) document() (*document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := s.Box.Vectors()
	doc := &document{
		Version:        documentVersion,
		RemoveCMMotion: s.RemoveCMMotion,
		Box: boxDoc{
			A: vecDoc{v[0][0], v[0][1], v[0][2]},
			B: vecDoc{v[1][0], v[1][1], v[1][2]},
			C: vecDoc{v[2][0], v[2][1], v[2][2]},
		},
		Particles:  make([]particleDoc, len(s.particles)),
		Exclusions: pairDocs(s.exclusions),
	}
	for i, p := range s.particles {
		doc.Particles[i] = particleDoc{
			Mass: p.Mass, Charge: p.Charge, Sigma: p.Sigma, Lambda: p.Lambda,
			Name: p.Name, Residue: p.Residue, Molecule: p.Molecule,
		}
	}
	for _, f := range s.forces {
		fd, err := encodeForce(f)
		if err != nil {
			return nil, err
		}
		doc.Forces = append(doc.Forces, fd)
	}
	return doc, nil
}

func fromDocument(doc *document) (*System, error) {
	if doc.Version != documentVersion {
		return nil, fmt.Errorf("forcefield: unsupported system version %d", doc.Version)
	}
	sys := &System{
		Box:            dynamo.Box{A: doc.Box.A.X, B: doc.Box.B.Y, C: doc.Box.C.Z},
		RemoveCMMotion: doc.RemoveCMMotion,
		particles:      make([]Particle, len(doc.Particles)),
		exclusions:     pairsFromDocs(doc.Exclusions),
		next:           stageDone,
	}
	for i, p := range doc.Particles {
		sys.particles[i] = Particle{
			Name: p.Name, Residue: p.Residue, Molecule: p.Molecule,
			Mass: p.Mass, Charge: p.Charge, Sigma: p.Sigma, Lambda: p.Lambda,
		}
	}
	for _, fd := range doc.Forces {
		f, err := decodeForce(fd)
		if err != nil {
			return nil, err
		}
		sys.forces = append(sys.forces, f)
	}
	return sys, nil
}

type format int

const (
	formatXML format = iota
	formatYAML
	formatJSON
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return formatXML, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".json":
		return formatJSON, nil
	}
	return 0, fmt.Errorf("forcefield: unsupported system file %q", path)
}

// Marshal encodes the system in the format chosen by the file extension
// of name.
func Marshal(sys *System, name string) ([]byte, error) {
	ft, err := formatOf(name)
	if err != nil {
		return nil, err
	}
	doc, err := sys.document()
	if err != nil {
		return nil, err
	}
	switch ft {
	case formatYAML:
		return yaml.Marshal(doc)
	case formatJSON:
		return json.MarshalIndent(doc, "", "  ")
	default:
		data, err := xml.MarshalIndent(doc, "", "\t")
		if err != nil {
			return nil, err
		}
		return append([]byte(xml.Header), append(data, '\n')...), nil
	}
}

func Unmarshal(data []byte, name string) (*System, error) {
	ft, err := formatOf(name)
	if err != nil {
		return nil, err
	}
	doc := &document{}
	switch ft {
	case formatYAML:
		err = yaml.Unmarshal(data, doc)
	case formatJSON:
		err = json.Unmarshal(data, doc)
	default:
		err = xml.Unmarshal(data, doc)
	}
	if err != nil {
		return nil, fmt.Errorf("forcefield: decode %s: %w", name, err)
	}
	return fromDocument(doc)
}

// Save writes the system to path. The format follows the extension: .xml,
// .yaml/.yml or .json.
func Save(path string, sys *System) error {
	data, err := Marshal(sys, path)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads a system written by Save. The loaded system accepts no further
// terms.
func Load(path string) (*System, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data, path)
}
