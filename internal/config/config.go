package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/cgsim/internal/dynamo"
)

const (
	DefaultBoxEdge        = 14.0
	DefaultMinSeparation  = 0.5
	DefaultMaxAttempts    = 10000
	DefaultIonicStrength  = 165.0 // mM
	DefaultTemperature    = 300.0
	DefaultFriction       = 1.0
	DefaultTimestep       = 0.005
	DefaultReportInterval = 20000
	DefaultSteps          = 400000000
	DefaultPlatform       = "CUDA"
)

// Native filter modes.
const (
	KeepAll    = "all"
	KeepNone   = "none"
	KeepRanges = "ranges"
)

type Config struct {
	Name       string           `yaml:"name"`
	Molecules  []MoleculeConfig `yaml:"molecules"`
	Box        dynamo.Box       `yaml:"box"`
	Packing    PackingConfig    `yaml:"packing"`
	ForceField ForceFieldConfig `yaml:"forcefield"`
	Integrator IntegratorConfig `yaml:"integrator"`
	Platform   string           `yaml:"platform"`
	Engine     EngineConfig     `yaml:"engine"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// MoleculeConfig names one species: its atomistic and coarse-grained
// structure files, how many copies to pack and which native pairs to keep.
type MoleculeConfig struct {
	Name      string       `yaml:"name"`
	Atomistic string       `yaml:"atomistic"`
	Coarse    string       `yaml:"coarse"`
	Count     int          `yaml:"count"`
	Native    NativeFilter `yaml:"native"`
}

// NativeFilter selects native pairs. With Keep set to "ranges" a pair is kept
// when both of its beads fall in the same half-open range.
type NativeFilter struct {
	Keep   string  `yaml:"keep"`
	Ranges []Range `yaml:"ranges,omitempty"`
}

// Range is the half-open bead index interval [Lo, Hi).
type Range struct {
	Lo int `yaml:"lo"`
	Hi int `yaml:"hi"`
}

type PackingConfig struct {
	MinSeparation float64 `yaml:"min_separation"`
	MaxAttempts   int     `yaml:"max_attempts"`
	Seed          int64   `yaml:"seed"`
	CacheDir      string  `yaml:"cache_dir"`
}

type ForceFieldConfig struct {
	Groups         GroupConfig `yaml:"groups"`
	IonicStrength  float64     `yaml:"ionic_strength_mm"`
	Dielectric     float64     `yaml:"dielectric"`
	RemoveCMMotion bool        `yaml:"remove_cm_motion"`
}

// GroupConfig assigns each force term its force group.
type GroupConfig struct {
	Bonds          int `yaml:"bonds"`
	Angles         int `yaml:"angles"`
	Dihedrals      int `yaml:"dihedrals"`
	NativePairs    int `yaml:"native_pairs"`
	Contacts       int `yaml:"contacts"`
	Electrostatics int `yaml:"electrostatics"`
}

type IntegratorConfig struct {
	Friction    float64 `yaml:"friction"`
	Timestep    float64 `yaml:"timestep"`
	Temperature float64 `yaml:"temperature"`
}

// EngineConfig selects the engine backend. The exec backend runs Command as
// a worker process.
type EngineConfig struct {
	Kind    string   `yaml:"kind"`
	Command []string `yaml:"command,omitempty"`
}

type OutputConfig struct {
	Dir            string `yaml:"dir"`
	StartStructure string `yaml:"start_structure"`
	System         string `yaml:"system"`
	Trajectory     string `yaml:"trajectory"`
	Checkpoint     string `yaml:"checkpoint"`
	DataLog        string `yaml:"data_log"`
	ReportInterval int    `yaml:"report_interval"`
	Steps          int64  `yaml:"steps"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func DefaultConfig() *Config {
	return &Config{
		Name: "h1_prota",
		Molecules: []MoleculeConfig{
			{
				Name: "H1", Atomistic: "H1_AF.pdb", Coarse: "H1_CA.pdb", Count: 1,
				Native: NativeFilter{Keep: KeepRanges, Ranges: []Range{{Lo: 23, Hi: 96}}},
			},
			{
				Name: "ProTa", Atomistic: "ProTa_AF.pdb", Coarse: "ProTa_CA.pdb", Count: 1,
				Native: NativeFilter{Keep: KeepNone},
			},
		},
		Box: dynamo.Cube(DefaultBoxEdge),
		Packing: PackingConfig{
			MinSeparation: DefaultMinSeparation,
			MaxAttempts:   DefaultMaxAttempts,
			Seed:          1,
			CacheDir:      ".",
		},
		ForceField: ForceFieldConfig{
			Groups:         GroupConfig{Bonds: 1, Angles: 2, Dihedrals: 3, NativePairs: 4, Contacts: 5, Electrostatics: 6},
			IonicStrength:  DefaultIonicStrength,
			Dielectric:     80,
			RemoveCMMotion: true,
		},
		Integrator: IntegratorConfig{
			Friction:    DefaultFriction,
			Timestep:    DefaultTimestep,
			Temperature: DefaultTemperature,
		},
		Platform: DefaultPlatform,
		Engine:   EngineConfig{Kind: "exec"},
		Output: OutputConfig{
			Dir:            ".",
			StartStructure: "start.pdb",
			System:         "H1_Prota_system.xml",
			Trajectory:     "output.dcd",
			Checkpoint:     "checkpoint.cpt",
			DataLog:        "data.csv",
			ReportInterval: DefaultReportInterval,
			Steps:          DefaultSteps,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if len(c.Molecules) == 0 {
		return fmt.Errorf("config: no molecules")
	}
	seen := make(map[string]bool, len(c.Molecules))
	for i, m := range c.Molecules {
		if m.Name == "" {
			return fmt.Errorf("config: molecule %d has no name", i)
		}
		if seen[m.Name] {
			return fmt.Errorf("config: duplicate molecule %q", m.Name)
		}
		seen[m.Name] = true
		if m.Coarse == "" {
			return fmt.Errorf("config: molecule %q has no coarse-grained structure", m.Name)
		}
		if m.Count < 0 {
			return dynamo.ParameterError{Name: m.Name + ".count", Value: float64(m.Count), Want: "non-negative"}
		}
		if err := m.Native.Validate(); err != nil {
			return fmt.Errorf("config: molecule %q: %w", m.Name, err)
		}
	}
	if err := c.Box.Validate(); err != nil {
		return err
	}
	checks := []struct {
		name string
		v    float64
	}{
		{"packing.min_separation", c.Packing.MinSeparation},
		{"packing.max_attempts", float64(c.Packing.MaxAttempts)},
		{"forcefield.ionic_strength_mm", c.ForceField.IonicStrength},
		{"forcefield.dielectric", c.ForceField.Dielectric},
		{"integrator.friction", c.Integrator.Friction},
		{"integrator.timestep", c.Integrator.Timestep},
		{"integrator.temperature", c.Integrator.Temperature},
		{"output.report_interval", float64(c.Output.ReportInterval)},
	}
	for _, ch := range checks {
		if err := dynamo.RequirePositive(ch.name, ch.v); err != nil {
			return err
		}
	}
	if c.Output.Steps < 0 {
		return dynamo.ParameterError{Name: "output.steps", Value: float64(c.Output.Steps), Want: "non-negative"}
	}
	g := c.ForceField.Groups
	for _, v := range []int{g.Bonds, g.Angles, g.Dihedrals, g.NativePairs, g.Contacts, g.Electrostatics} {
		if v < 0 || v > 31 {
			return dynamo.ParameterError{Name: "forcefield.groups", Value: float64(v), Want: "in [0, 31]"}
		}
	}
	return nil
}

func (f NativeFilter) Validate() error {
	switch strings.ToLower(f.Keep) {
	case "", KeepAll, KeepNone:
		return nil
	case KeepRanges:
		if len(f.Ranges) == 0 {
			return fmt.Errorf("native filter: keep=ranges without ranges")
		}
		for _, r := range f.Ranges {
			if r.Lo < 0 || r.Hi <= r.Lo {
				return fmt.Errorf("native filter: invalid range [%d,%d)", r.Lo, r.Hi)
			}
		}
		return nil
	default:
		return fmt.Errorf("native filter: unknown mode %q", f.Keep)
	}
}

// Molecule returns the molecule entry with the given name.
func (c *Config) Molecule(name string) (MoleculeConfig, bool) {
	for _, m := range c.Molecules {
		if m.Name == name {
			return m, true
		}
	}
	return MoleculeConfig{}, false
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Molecules = make([]MoleculeConfig, len(c.Molecules))
	for i, m := range c.Molecules {
		m.Native.Ranges = append([]Range(nil), m.Native.Ranges...)
		out.Molecules[i] = m
	}
	out.Engine.Command = append([]string(nil), c.Engine.Command...)
	return &out
}
