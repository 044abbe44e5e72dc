package experiment

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/cgsim/internal/engine"
	"github.com/san-kum/cgsim/internal/logging"
	"github.com/san-kum/cgsim/internal/metrics"
	"github.com/san-kum/cgsim/internal/sim"
	"github.com/san-kum/cgsim/internal/storage"
)

type LaunchOptions struct {
	Engine engine.Engine
	// Store registers the run when set; its scalar log is copied into the
	// run directory.
	Store     *storage.Store
	Reporters []sim.Reporter
}

// Run is a launched production run.
type Run struct {
	Sim    *sim.Simulator
	Task   *sim.Task
	Record *storage.Run

	store   *storage.Store
	closers []func() error
	stop    context.CancelFunc
	served  chan error
	log     logging.Logger
}

// Integrator returns the configured Langevin integrator.
func (p *Pipeline) Integrator() engine.Integrator {
	ic := p.cfg.Integrator
	return engine.NewLangevinMiddle(ic.Temperature, ic.Friction, ic.Timestep)
}

// Launch binds the prepared system, minimizes it, attaches the reporters,
// draws velocities and starts stepping in the background.
func (p *Pipeline) Launch(ctx context.Context, prep *Prepared, opts LaunchOptions) (_ *Run, err error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("experiment: no engine")
	}
	platform, err := engine.ParsePlatform(p.cfg.Platform)
	if err != nil {
		return nil, err
	}
	integ := p.Integrator()
	out := p.cfg.Output

	s, err := sim.New(ctx, opts.Engine, prep.System, integ, platform, prep.Start, sim.Options{
		SystemPath:    prep.SystemPath,
		PositionsPath: prep.StartPath,
		Seed:          p.cfg.Packing.Seed,
		Logger:        p.log,
	})
	if err != nil {
		return nil, err
	}
	run := &Run{Sim: s, store: opts.Store, log: p.log}
	defer func() {
		if err != nil {
			if run.Record != nil {
				opts.Store.Finish(run.Record, 0, nil, err)
			}
			run.close()
		}
	}()

	if err := s.MinimizeEnergy(ctx); err != nil {
		return nil, err
	}
	if err := s.AddReporters(ctx, out.ReportInterval, p.OutputPath(out.Trajectory)); err != nil {
		return nil, err
	}
	if err := s.AddCheckpointReporter(ctx, p.OutputPath(out.Checkpoint)); err != nil {
		return nil, err
	}
	if err := run.addDataLog(p.OutputPath(out.DataLog)); err != nil {
		return nil, err
	}

	label := p.cfg.Name
	if opts.Store != nil {
		rec, err := opts.Store.Create(storage.RunMetadata{
			Name:      p.cfg.Name,
			System:    prep.SystemPath,
			Particles: prep.System.NumParticles(),
			Platform:  platform.String(),
			Seed:      p.cfg.Packing.Seed,
			Timestep:  integ.Timestep,
			Steps:     out.Steps,
			Interval:  out.ReportInterval,
		})
		if err != nil {
			return nil, err
		}
		run.Record = rec
		label = rec.ID
		if err := run.addDataLog(rec.DataPath()); err != nil {
			return nil, err
		}
	}

	for _, m := range metrics.Standard(integ.Temperature) {
		s.AddMetric(m)
	}
	for _, r := range opts.Reporters {
		s.AddReporter(r)
	}
	if addr := p.cfg.Metrics.Addr; addr != "" {
		exp := metrics.NewExporter(label, p.log)
		s.AddReporter(exp)
		mctx, stop := context.WithCancel(context.Background())
		run.stop = stop
		run.served = make(chan error, 1)
		go func() { run.served <- exp.Serve(mctx, addr) }()
	}

	if err := s.SetVelocitiesToTemperature(ctx, integ.Temperature); err != nil {
		return nil, err
	}
	task, err := s.Start(ctx, out.Steps)
	if err != nil {
		return nil, err
	}
	run.Task = task
	return run, nil
}

func (r *Run) addDataLog(path string) error {
	rep, err := sim.NewStateDataReporter(path)
	if err != nil {
		return err
	}
	r.Sim.AddReporter(rep)
	r.closers = append(r.closers, rep.Close)
	return nil
}

// Wait blocks until stepping ends, then closes the logs, records the outcome
// and releases the engine.
func (r *Run) Wait() error {
	runErr := r.Task.Wait()
	errs := []error{runErr}
	if r.Record != nil {
		errs = append(errs, r.store.Finish(r.Record, r.Sim.CurrentStep(), r.Sim.Metrics(), runErr))
	}
	errs = append(errs, r.close())
	if runErr == nil {
		r.log.Info("run complete",
			logging.Int64("steps", r.Sim.CurrentStep()),
			logging.Any("metrics", r.Sim.Metrics()))
	}
	return errors.Join(errs...)
}

func (r *Run) close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c())
	}
	r.closers = nil
	if r.stop != nil {
		r.stop()
		errs = append(errs, <-r.served)
		r.stop = nil
	}
	errs = append(errs, r.Sim.Close())
	return errors.Join(errs...)
}
