package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/san-kum/cgsim/internal/logging"
	"github.com/san-kum/cgsim/internal/sim"
)

const namespace = "cgsim"

// Exporter publishes the latest frame of a run as Prometheus gauges. It is a
// sim.Reporter.
type Exporter struct {
	registry    *prometheus.Registry
	step        prometheus.Gauge
	simTime     prometheus.Gauge
	potential   prometheus.Gauge
	temperature prometheus.Gauge
	density     prometheus.Gauge
	speed       prometheus.Gauge
	frames      prometheus.Counter
	log         logging.Logger
}

// NewExporter registers the run gauges on a fresh registry. run labels every
// series.
func NewExporter(run string, logger logging.Logger) *Exporter {
	labels := prometheus.Labels{"run": run}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "sim", Name: name, Help: help, ConstLabels: labels,
		})
	}
	e := &Exporter{
		registry:    prometheus.NewRegistry(),
		step:        gauge("step", "Steps completed."),
		simTime:     gauge("time_picoseconds", "Simulated time."),
		potential:   gauge("potential_energy_kj_per_mol", "Potential energy at the last frame."),
		temperature: gauge("temperature_kelvin", "Instantaneous temperature at the last frame."),
		density:     gauge("density_grams_per_ml", "System density."),
		speed:       gauge("speed_ns_per_day", "Simulation throughput."),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sim", Name: "frames_total", Help: "Frames reported.", ConstLabels: labels,
		}),
		log: logging.OrNop(logger).Named("metrics"),
	}
	e.registry.MustRegister(e.step, e.simTime, e.potential, e.temperature, e.density, e.speed, e.frames)
	return e
}

func (e *Exporter) Report(f sim.Frame) error {
	e.step.Set(float64(f.Step))
	e.simTime.Set(f.Time)
	e.potential.Set(f.PotentialEnergy)
	e.temperature.Set(f.Temperature)
	e.density.Set(f.Density)
	e.speed.Set(f.Speed)
	e.frames.Inc()
	return nil
}

func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Serve exposes /metrics on addr until ctx is done.
func (e *Exporter) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	e.log.Info("metrics listening", logging.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
