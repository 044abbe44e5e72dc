// Package experiment wires the pipeline stages into the two commands a user
// runs: Prepare builds the packed start structure and the serialized system,
// Launch hands them to an engine and records the run.
package experiment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/cgsim/internal/config"
	"github.com/san-kum/cgsim/internal/contacts"
	"github.com/san-kum/cgsim/internal/dynamo"
	"github.com/san-kum/cgsim/internal/forcefield"
	"github.com/san-kum/cgsim/internal/logging"
	"github.com/san-kum/cgsim/internal/packing"
	"github.com/san-kum/cgsim/internal/structure"
)

// ErrStartExists is returned when a start structure from a different packing
// is already in place and repacking was not requested.
var ErrStartExists = errors.New("experiment: start structure belongs to a different packing")

type Option func(*Pipeline)

// WithBaseDir resolves relative paths in the configuration against dir.
func WithBaseDir(dir string) Option {
	return func(p *Pipeline) { p.baseDir = dir }
}

func WithLogger(log logging.Logger) Option {
	return func(p *Pipeline) { p.log = logging.OrNop(log) }
}

func WithPacker(pk packing.Packer) Option {
	return func(p *Pipeline) { p.packer = pk }
}

// WithRepack allows Pack to replace a start structure that does not match
// the current packing request.
func WithRepack(repack bool) Option {
	return func(p *Pipeline) { p.repack = repack }
}

type Pipeline struct {
	cfg     *config.Config
	baseDir string
	log     logging.Logger
	packer  packing.Packer
	repack  bool
}

func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, baseDir: ".", log: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	if p.packer == nil {
		p.packer = packing.NewRandomPacker(p.log.Named("packing"))
	}
	return p
}

func (p *Pipeline) Config() *config.Config { return p.cfg }

func (p *Pipeline) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.baseDir, path)
}

// OutputPath resolves name inside the configured output directory.
func (p *Pipeline) OutputPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.resolve(p.cfg.Output.Dir), name)
}

// Species is a parsed molecule with its native table filtered and the number
// of copies requested.
type Species struct {
	Molecule *structure.Molecule
	Count    int
	// Parsed is the native pair count before filtering.
	Parsed int
}

// Prepared is everything the engine needs for a run.
type Prepared struct {
	Species    []Species
	Start      *structure.Configuration
	StartPath  string
	CacheHit   bool
	System     *forcefield.System
	SystemPath string
}

// ParseMolecules reads every configured molecule and applies its native
// contact filter.
func (p *Pipeline) ParseMolecules(ctx context.Context) ([]Species, error) {
	out := make([]Species, 0, len(p.cfg.Molecules))
	for _, mc := range p.cfg.Molecules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mol, err := p.parse(mc)
		if err != nil {
			return nil, fmt.Errorf("molecule %s: %w", mc.Name, err)
		}
		pred, err := contacts.FromSpec(mc.Native)
		if err != nil {
			return nil, fmt.Errorf("molecule %s: %w", mc.Name, err)
		}
		parsed := mol.NativePairs().Len()
		mol = contacts.Filter(mol, pred)
		p.log.Info("molecule parsed",
			logging.String("molecule", mc.Name),
			logging.Int("beads", mol.Len()),
			logging.Int("native_pairs", parsed),
			logging.Int("kept", mol.NativePairs().Len()),
			logging.String("filter", contacts.Describe(mc.Native)))
		out = append(out, Species{Molecule: mol, Count: mc.Count, Parsed: parsed})
	}
	return out, nil
}

func (p *Pipeline) parse(mc config.MoleculeConfig) (*structure.Molecule, error) {
	opts := structure.DefaultParseOptions()
	opts.Name = mc.Name
	cg := p.resolve(mc.Coarse)

	if mc.Atomistic == "" {
		cfg, err := structure.ReadPDB(cg)
		if err != nil {
			return nil, err
		}
		return structure.NewMolecule(cfg, opts)
	}

	aa := p.resolve(mc.Atomistic)
	if _, err := os.Stat(cg); errors.Is(err, os.ErrNotExist) {
		p.log.Info("deriving coarse-grained structure",
			logging.String("atomistic", aa),
			logging.String("coarse", cg))
		if err := structure.DeriveCoarseGrained(aa, cg); err != nil {
			return nil, err
		}
	}
	return structure.ParseAtomistic(aa, cg, opts)
}

// Pack places the species in the box, reusing a cached packing for the same
// request, and copies the result to the start structure path. An existing
// start structure is left untouched when it matches the packing and is an
// error otherwise, unless the pipeline was built WithRepack.
func (p *Pipeline) Pack(ctx context.Context, species []Species) (*structure.Configuration, string, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", false, err
	}
	req := packing.Request{
		Box:           p.cfg.Box,
		MinSeparation: p.cfg.Packing.MinSeparation,
		MaxAttempts:   p.cfg.Packing.MaxAttempts,
		Seed:          p.cfg.Packing.Seed,
	}
	for _, s := range species {
		if s.Count == 0 {
			continue
		}
		req.Species = append(req.Species, packing.Species{
			Name:      s.Molecule.Name,
			Structure: s.Molecule.Configuration(),
			Count:     s.Count,
		})
	}

	startPath := p.OutputPath(p.cfg.Output.StartStructure)
	if err := os.MkdirAll(filepath.Dir(startPath), 0755); err != nil {
		return nil, "", false, err
	}
	cacheDir := p.OutputPath(p.cfg.Packing.CacheDir)
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, "", false, err
	}
	stem := strings.TrimSuffix(filepath.Base(startPath), filepath.Ext(startPath))
	cache := packing.FileCache{Dir: cacheDir, Prefix: stem}

	existing, err := os.ReadFile(startPath)
	present := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", false, err
	}
	if present && !p.repack {
		want := cache.Path(packing.Key(req))
		cached, err := os.ReadFile(want)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, "", false, err
		}
		if err != nil || !bytes.Equal(existing, cached) {
			return nil, "", false, fmt.Errorf("%w: %s does not match %s; remove it or repack", ErrStartExists, startPath, want)
		}
	}

	cached, hit, err := packing.PackCached(p.packer, cache, req)
	if err != nil {
		return nil, "", false, err
	}
	data, err := os.ReadFile(cached)
	if err != nil {
		return nil, "", false, err
	}
	if !present || !bytes.Equal(existing, data) {
		if err := writeFileAtomic(startPath, data); err != nil {
			return nil, "", false, err
		}
	}
	start, err := structure.ReadPDB(startPath)
	if err != nil {
		return nil, "", false, err
	}
	p.log.Info("box packed",
		logging.String("start", startPath),
		logging.Int("beads", start.Len()),
		logging.Bool("cache_hit", hit),
		logging.String("box", p.cfg.Box.String()))
	return start, startPath, hit, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Assemble builds the composite model over top, appending every copy of
// every species in packing order.
func (p *Pipeline) Assemble(species []Species, top forcefield.Topology) (*forcefield.System, error) {
	b := forcefield.NewBuilder()
	for _, s := range species {
		for i := 0; i < s.Count; i++ {
			b.Append(s.Molecule)
		}
	}
	ff := p.cfg.ForceField
	sys, err := b.CreateSystem(top, p.cfg.Box, ff.RemoveCMMotion)
	if err != nil {
		return nil, err
	}
	g := ff.Groups
	steps := []struct {
		name string
		add  func() error
	}{
		{"bonds", func() error { return sys.AddBonds(g.Bonds) }},
		{"angles", func() error { return sys.AddAngles(g.Angles) }},
		{"dihedrals", func() error { return sys.AddDihedrals(g.Dihedrals) }},
		{"native pairs", func() error { return sys.AddNativePairs(g.NativePairs) }},
		{"contacts", func() error { return sys.AddContacts(g.Contacts, forcefield.ContactOptions{}) }},
		{"electrostatics", func() error {
			return sys.AddElectrostatics(g.Electrostatics, ff.IonicStrength/1000, p.cfg.Integrator.Temperature,
				forcefield.ElectrostaticsOptions{Dielectric: ff.Dielectric})
		}},
	}
	for _, st := range steps {
		if err := st.add(); err != nil {
			return nil, fmt.Errorf("add %s: %w", st.name, err)
		}
	}
	sum := sys.Summary()
	p.log.Info("system assembled",
		logging.Int("molecules", b.NumMolecules()),
		logging.Int("particles", sum.Particles),
		logging.Int("exclusions", sum.Exclusions),
		logging.Float64("net_charge", sum.NetCharge))
	return sys, nil
}

// Prepare runs parsing, filtering, packing and assembly and saves the
// system file.
func (p *Pipeline) Prepare(ctx context.Context) (*Prepared, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	species, err := p.ParseMolecules(ctx)
	if err != nil {
		return nil, err
	}
	start, startPath, hit, err := p.Pack(ctx, species)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sys, err := p.Assemble(species, start)
	if err != nil {
		return nil, err
	}
	sysPath := p.OutputPath(p.cfg.Output.System)
	if err := forcefield.Save(sysPath, sys); err != nil {
		return nil, err
	}
	p.log.Info("system saved", logging.String("path", sysPath))
	return &Prepared{
		Species:    species,
		Start:      start,
		StartPath:  startPath,
		CacheHit:   hit,
		System:     sys,
		SystemPath: sysPath,
	}, nil
}

// LoadSystem reads the system file written by an earlier Prepare.
func (p *Pipeline) LoadSystem() (*forcefield.System, error) {
	return forcefield.Load(p.OutputPath(p.cfg.Output.System))
}

// LoadPrepared reads the start structure and system written by an earlier
// Prepare. Species are not re-parsed.
func (p *Pipeline) LoadPrepared() (*Prepared, error) {
	sys, err := p.LoadSystem()
	if err != nil {
		return nil, err
	}
	startPath := p.OutputPath(p.cfg.Output.StartStructure)
	start, err := structure.ReadPDB(startPath)
	if err != nil {
		return nil, err
	}
	if start.Len() != sys.NumParticles() {
		return nil, fmt.Errorf("%w: %s has %d beads, system has %d particles",
			dynamo.ErrTopologyMismatch, startPath, start.Len(), sys.NumParticles())
	}
	return &Prepared{
		Start:      start,
		StartPath:  startPath,
		CacheHit:   true,
		System:     sys,
		SystemPath: p.OutputPath(p.cfg.Output.System),
	}, nil
}
