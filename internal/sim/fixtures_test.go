package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/san-kum/cgsim/internal/dynamo"
	"github.com/san-kum/cgsim/internal/engine"
	"github.com/san-kum/cgsim/internal/forcefield"
	"github.com/san-kum/cgsim/internal/structure"
)

// peptide returns a complete five bead system and its positions.
func peptide(t *testing.T) (*forcefield.System, *structure.Configuration) {
	t.Helper()
	cfg := &structure.Configuration{}
	for i, r := range []string{"LYS", "ALA", "GLU", "GLY", "ARG"} {
		cfg.Beads = append(cfg.Beads, structure.Bead{
			Name: "CA", ResName: r, ResID: i + 1, Chain: "A",
			Pos: dynamo.Vec3{0.38 * float64(i), 0.1 * float64(i%2), 0},
		})
	}
	mol, err := structure.NewMolecule(cfg, structure.DefaultParseOptions())
	if err != nil {
		t.Fatal(err)
	}
	b := forcefield.NewBuilder()
	b.Append(mol)
	sys, err := b.CreateSystem(cfg, dynamo.Cube(14), true)
	if err != nil {
		t.Fatal(err)
	}
	for _, add := range []func() error{
		func() error { return sys.AddBonds(1) },
		func() error { return sys.AddAngles(2) },
		func() error { return sys.AddDihedrals(3) },
		func() error { return sys.AddNativePairs(4) },
		func() error { return sys.AddContacts(5, forcefield.ContactOptions{}) },
		func() error { return sys.AddElectrostatics(6, 0.165, 300, forcefield.ElectrostaticsOptions{}) },
	} {
		if err := add(); err != nil {
			t.Fatal(err)
		}
	}
	return sys, cfg
}

// fakeEngine emits one frame per interval with a fixed kinetic energy and a
// potential energy that falls by one per step.
type fakeEngine struct {
	mu      sync.Mutex
	kinetic float64
	bound   engine.BindSpec
	calls   []string
	out     engine.OutputSpec
	seed    int64
	gate    chan struct{} // if set, Step waits on it before every frame
	failOn  string
}

func (e *fakeEngine) Bind(ctx context.Context, spec engine.BindSpec) (engine.Context, error) {
	e.bound = spec
	if e.failOn == "bind" {
		return nil, dynamo.ErrEngine
	}
	return e, nil
}

func (e *fakeEngine) record(op string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, op)
	if e.failOn == op {
		return dynamo.ErrEngine
	}
	return nil
}

func (e *fakeEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func (e *fakeEngine) MinimizeEnergy(ctx context.Context, tol float64, maxIter int) error {
	return e.record("minimize")
}

func (e *fakeEngine) SetVelocitiesToTemperature(ctx context.Context, temp float64, seed int64) error {
	e.seed = seed
	return e.record("velocities")
}

func (e *fakeEngine) ConfigureOutput(ctx context.Context, out engine.OutputSpec) error {
	e.out = out
	return e.record("output")
}

func (e *fakeEngine) Step(ctx context.Context, n int64, interval int, onFrame func(engine.Frame) error) error {
	if err := e.record("step"); err != nil {
		return err
	}
	for s := int64(interval); s <= n; s += int64(interval) {
		if e.gate != nil {
			select {
			case <-e.gate:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := onFrame(engine.Frame{Step: s, PotentialEnergy: -float64(s), KineticEnergy: e.kinetic}); err != nil {
			return err
		}
	}
	return nil
}

func (e *fakeEngine) Close() error { return e.record("close") }

// tick is a clock that advances one second per reading.
func tick() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newSim(t *testing.T, eng *fakeEngine) *Simulator {
	t.Helper()
	sys, pos := peptide(t)
	s, err := New(context.Background(), eng, sys,
		engine.NewLangevinMiddle(300, 1, 0.005), engine.CPU, pos,
		Options{Seed: 7, Now: tick()})
	if err != nil {
		t.Fatal(err)
	}
	return s
}
