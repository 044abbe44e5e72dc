package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/cgsim/internal/config"
	"github.com/san-kum/cgsim/internal/engine"
	"github.com/san-kum/cgsim/internal/logging"
)

// EngineFactory builds an engine from the engine section of a configuration.
type EngineFactory func(cfg config.EngineConfig, workDir string, log logging.Logger) (engine.Engine, error)

// Registry maps engine kinds to factories.
type Registry struct {
	engines map[string]EngineFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		engines: make(map[string]EngineFactory),
	}

	r.engines["exec"] = func(cfg config.EngineConfig, workDir string, log logging.Logger) (engine.Engine, error) {
		if len(cfg.Command) == 0 {
			return nil, fmt.Errorf("engine: exec backend needs engine.command")
		}
		return &engine.ExecEngine{
			Command: append([]string(nil), cfg.Command...),
			WorkDir: workDir,
			Logger:  log,
		}, nil
	}

	return r
}

// Register adds or replaces the factory for kind.
func (r *Registry) Register(kind string, fn EngineFactory) {
	r.engines[kind] = fn
}

func (r *Registry) GetEngine(cfg config.EngineConfig, workDir string, log logging.Logger) (engine.Engine, error) {
	kind := cfg.Kind
	if kind == "" {
		kind = "exec"
	}
	fn, ok := r.engines[kind]
	if !ok {
		return nil, fmt.Errorf("unknown engine: %s", kind)
	}
	return fn(cfg, workDir, log)
}

func (r *Registry) ListEngines() []string {
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
