package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/san-kum/cgsim/internal/dynamo"
	"github.com/san-kum/cgsim/internal/engine"
	"github.com/san-kum/cgsim/internal/forcefield"
	"github.com/san-kum/cgsim/internal/logging"
	"github.com/san-kum/cgsim/internal/structure"
)

// ErrBusy is returned when a run is started while another is in progress.
var ErrBusy = errors.New("sim: a run is already in progress")

type Options struct {
	// SystemPath and PositionsPath point the engine at files already on
	// disk instead of serializing the system and positions again.
	SystemPath    string
	PositionsPath string
	// Seed for the initial velocities.
	Seed   int64
	Logger logging.Logger
	// Now is the wall clock used for speed and elapsed time.
	Now func() time.Time
}

// Simulator owns a bound engine context and fans its frames out to reporters
// and metrics.
type Simulator struct {
	sys      *forcefield.System
	integ    engine.Integrator
	platform engine.Platform
	ectx     engine.Context
	log      logging.Logger
	now      func() time.Time
	seed     int64

	mu        sync.Mutex
	running   bool
	out       engine.OutputSpec
	reporters []Reporter
	metrics   []Metric

	step  atomic.Int64
	start time.Time
	last  struct {
		wall time.Time
		time float64
	}
}

// New freezes sys and binds it with positions to eng.
func New(ctx context.Context, eng engine.Engine, sys *forcefield.System, integ engine.Integrator,
	platform engine.Platform, positions *structure.Configuration, opts Options) (*Simulator, error) {
	if err := integ.Validate(); err != nil {
		return nil, err
	}
	if positions == nil && opts.PositionsPath == "" {
		return nil, fmt.Errorf("sim: no initial positions")
	}
	if positions != nil && positions.Len() != sys.NumParticles() {
		return nil, fmt.Errorf("%w: %d positions for %d particles",
			dynamo.ErrTopologyMismatch, positions.Len(), sys.NumParticles())
	}
	if !sys.Complete() {
		return nil, fmt.Errorf("sim: system is missing energy terms")
	}

	s := &Simulator{
		sys:      sys,
		integ:    integ,
		platform: platform,
		log:      logging.OrNop(opts.Logger).Named("sim"),
		now:      opts.Now,
		seed:     opts.Seed,
	}
	if s.now == nil {
		s.now = time.Now
	}

	sys.Freeze()
	ectx, err := eng.Bind(ctx, engine.BindSpec{
		System:        sys,
		SystemPath:    opts.SystemPath,
		Positions:     positions,
		PositionsPath: opts.PositionsPath,
		Integrator:    integ,
		Platform:      platform,
	})
	if err != nil {
		return nil, err
	}
	s.ectx = ectx
	s.log.Info("simulation bound",
		logging.Int("particles", sys.NumParticles()),
		logging.String("platform", platform.String()),
		logging.Float64("timestep_ps", integ.Timestep),
		logging.Float64("temperature_k", integ.Temperature))
	return s, nil
}

func (s *Simulator) System() *forcefield.System    { return s.sys }
func (s *Simulator) Integrator() engine.Integrator { return s.integ }

// CurrentStep is the number of steps completed so far.
func (s *Simulator) CurrentStep() int64 { return s.step.Load() }

func (s *Simulator) MinimizeEnergy(ctx context.Context) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()
	start := s.now()
	if err := s.ectx.MinimizeEnergy(ctx, 0, 0); err != nil {
		return err
	}
	s.log.Info("energy minimized", logging.Duration("took", s.now().Sub(start)))
	return nil
}

func (s *Simulator) SetVelocitiesToTemperature(ctx context.Context, temperature float64) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()
	return s.ectx.SetVelocitiesToTemperature(ctx, temperature, s.seed)
}

// AddReporters sets the report interval and the trajectory the engine
// writes at that interval.
func (s *Simulator) AddReporters(ctx context.Context, interval int, trajectory string) error {
	return s.configure(ctx, func(out *engine.OutputSpec) {
		out.Interval = interval
		out.Trajectory = trajectory
	})
}

// AddCheckpointReporter makes the engine write a checkpoint at every report
// interval.
func (s *Simulator) AddCheckpointReporter(ctx context.Context, path string) error {
	return s.configure(ctx, func(out *engine.OutputSpec) {
		out.Checkpoint = path
	})
}

func (s *Simulator) configure(ctx context.Context, edit func(*engine.OutputSpec)) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()
	out := s.out
	edit(&out)
	if err := dynamo.RequirePositive("report interval", float64(out.Interval)); err != nil {
		return err
	}
	if err := s.ectx.ConfigureOutput(ctx, out); err != nil {
		return err
	}
	s.out = out
	return nil
}

// Interval is the configured report interval, zero before AddReporters.
func (s *Simulator) Interval() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Interval
}

func (s *Simulator) AddReporter(r Reporter) {
	s.mu.Lock()
	s.reporters = append(s.reporters, r)
	s.mu.Unlock()
}

func (s *Simulator) AddMetric(m Metric) {
	s.mu.Lock()
	s.metrics = append(s.metrics, m)
	s.mu.Unlock()
}

// Metrics returns the current value of every metric.
func (s *Simulator) Metrics() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// Step advances n steps and blocks until they complete, ctx is cancelled or
// a reporter fails.
func (s *Simulator) Step(ctx context.Context, n int64) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()
	return s.run(ctx, n, nil)
}

// Start runs n steps in the background.
func (s *Simulator) Start(ctx context.Context, n int64) (*Task, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{total: n, cancel: cancel, done: make(chan struct{})}
	t.started.Store(s.step.Load())
	go func() {
		err := s.run(ctx, n, t)
		s.release()
		t.finish(err)
	}()
	return t, nil
}

func (s *Simulator) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrBusy
	}
	s.running = true
	return nil
}

func (s *Simulator) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Simulator) run(ctx context.Context, n int64, task *Task) error {
	s.mu.Lock()
	interval := s.out.Interval
	reporters := append([]Reporter(nil), s.reporters...)
	metrics := append([]Metric(nil), s.metrics...)
	s.mu.Unlock()

	if interval <= 0 {
		if len(reporters) > 0 {
			return fmt.Errorf("sim: reporters added without a report interval")
		}
		interval = int(min(n, 1<<31-1))
		if interval == 0 {
			interval = 1
		}
	}

	base := s.step.Load()
	s.start = s.now()
	s.last.wall, s.last.time = s.start, s.integ.SimulatedTime(base)
	s.log.Info("run started",
		logging.Int64("steps", n),
		logging.Int("interval", interval),
		logging.Int64("from_step", base))

	err := s.ectx.Step(ctx, n, interval, func(ef engine.Frame) error {
		f := s.derive(base, ef)
		if !f.IsValid() {
			return &dynamo.SimError{Step: f.Step, Time: f.Time, Message: "non-finite energy"}
		}
		s.step.Store(f.Step)
		if task != nil {
			task.progress.Store(f.Step)
		}
		s.mu.Lock()
		for _, m := range metrics {
			m.Observe(f)
		}
		s.mu.Unlock()
		for _, r := range reporters {
			if err := r.Report(f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("run stopped", logging.Int64("step", s.step.Load()), logging.Err(err))
		return err
	}
	s.step.Store(base + n)
	if task != nil {
		task.progress.Store(base + n)
	}
	s.log.Info("run finished",
		logging.Int64("step", base+n),
		logging.Duration("elapsed", s.now().Sub(s.start)))
	return nil
}

// derive fills in the frame scalars the engine did not report and rebases
// the step onto the total across runs.
func (s *Simulator) derive(base int64, ef engine.Frame) Frame {
	wall := s.now()
	f := Frame{
		Step:            base + ef.Step,
		Time:            s.integ.SimulatedTime(base + ef.Step),
		PotentialEnergy: ef.PotentialEnergy,
		KineticEnergy:   ef.KineticEnergy,
		Temperature:     ef.Temperature,
		Volume:          ef.Volume,
		Elapsed:         wall.Sub(s.start),
	}
	if f.Temperature == 0 {
		f.Temperature = dynamo.KineticTemperature(f.KineticEnergy, s.sys.DegreesOfFreedom())
	}
	if f.Volume == 0 {
		f.Volume = s.sys.Box.Volume()
	}
	f.Density = dynamo.Density(s.sys.TotalMass(), f.Volume)
	if dt := wall.Sub(s.last.wall); dt > 0 {
		// ps per second of wall time, scaled to ns per day
		f.Speed = (f.Time - s.last.time) / dt.Seconds() * 86400 / 1000
	}
	s.last.wall, s.last.time = wall, f.Time
	return f
}

// Close releases the engine context.
func (s *Simulator) Close() error {
	return s.ectx.Close()
}
