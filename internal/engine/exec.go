package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/san-kum/cgsim/internal/dynamo"
	"github.com/san-kum/cgsim/internal/forcefield"
	"github.com/san-kum/cgsim/internal/logging"
	"github.com/san-kum/cgsim/internal/structure"
)

// ExecEngine runs the engine as a worker process speaking the JSON-lines
// protocol described in the package documentation.
type ExecEngine struct {
	// Command is the worker executable followed by its arguments.
	Command []string
	// Env is appended to the current environment.
	Env []string
	// WorkDir holds serialized inputs when BindSpec has no paths; defaults
	// to a fresh temporary directory.
	WorkDir string
	Logger  logging.Logger
}

type request struct {
	Op          string      `json:"op"`
	System      string      `json:"system,omitempty"`
	Positions   string      `json:"positions,omitempty"`
	Integrator  *Integrator `json:"integrator,omitempty"`
	Platform    Platform    `json:"platform,omitempty"`
	Tolerance   float64     `json:"tolerance,omitempty"`
	MaxIter     int         `json:"max_iterations,omitempty"`
	Temperature float64     `json:"temperature,omitempty"`
	Seed        int64       `json:"seed,omitempty"`
	Output      *OutputSpec `json:"output,omitempty"`
	Steps       int64       `json:"steps,omitempty"`
	Interval    int         `json:"interval,omitempty"`
}

type event struct {
	Event   string `json:"event"`
	Message string `json:"message,omitempty"`
	Frame   *Frame `json:"frame,omitempty"`
}

func (e *ExecEngine) Bind(ctx context.Context, spec BindSpec) (Context, error) {
	if len(e.Command) == 0 {
		return nil, fmt.Errorf("engine: no worker command configured")
	}
	if err := spec.Integrator.Validate(); err != nil {
		return nil, err
	}
	if _, err := ParsePlatform(string(spec.Platform)); err != nil {
		return nil, err
	}
	log := logging.OrNop(e.Logger).Named("engine")

	systemPath, positionsPath, cleanup, err := e.materialize(spec)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(e.Command[0], e.Command[1:]...)
	cmd.Env = append(os.Environ(), e.Env...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		cleanup()
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cleanup()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: start worker: %v", dynamo.ErrEngine, err)
	}
	log.Info("worker started",
		logging.String("command", e.Command[0]),
		logging.Int("pid", cmd.Process.Pid),
		logging.String("platform", string(spec.Platform)))

	c := &execContext{
		cmd:     cmd,
		stdin:   stdin,
		scanner: bufio.NewScanner(stdout),
		cleanup: cleanup,
		log:     log,
	}
	c.scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	integ := spec.Integrator
	err = c.call(ctx, request{
		Op:         "bind",
		System:     systemPath,
		Positions:  positionsPath,
		Integrator: &integ,
		Platform:   spec.Platform,
	}, nil)
	if err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// materialize writes the system and positions to disk when the BindSpec gives
// only in-memory values.
func (e *ExecEngine) materialize(spec BindSpec) (systemPath, positionsPath string, cleanup func(), err error) {
	cleanup = func() {}
	systemPath, positionsPath = spec.SystemPath, spec.PositionsPath
	if systemPath != "" && positionsPath != "" {
		return systemPath, positionsPath, cleanup, nil
	}

	dir := e.WorkDir
	if dir == "" {
		dir, err = os.MkdirTemp("", "cgsim-engine-")
		if err != nil {
			return "", "", cleanup, err
		}
		cleanup = func() { os.RemoveAll(dir) }
	}
	if systemPath == "" {
		if spec.System == nil {
			cleanup()
			return "", "", func() {}, fmt.Errorf("engine: bind needs a system")
		}
		systemPath = filepath.Join(dir, "system.xml")
		if err := forcefield.Save(systemPath, spec.System); err != nil {
			cleanup()
			return "", "", func() {}, err
		}
	}
	if positionsPath == "" {
		if spec.Positions == nil {
			cleanup()
			return "", "", func() {}, fmt.Errorf("engine: bind needs positions")
		}
		positionsPath = filepath.Join(dir, "positions.pdb")
		if err := structure.WritePDB(positionsPath, spec.Positions); err != nil {
			cleanup()
			return "", "", func() {}, err
		}
	}
	return systemPath, positionsPath, cleanup, nil
}

type execContext struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	scanner *bufio.Scanner
	cleanup func()
	log     logging.Logger

	closeOnce sync.Once
	closeErr  error
}

// call sends req and consumes events until the worker acknowledges it.
// Cancelling ctx kills the worker.
func (c *execContext) call(ctx context.Context, req request, onFrame func(Frame) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		c.cmd.Process.Kill()
	})
	defer stop()

	line, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if _, err := c.stdin.Write(append(line, '\n')); err != nil {
		return c.failure(ctx, req.Op, err)
	}

	for c.scanner.Scan() {
		var ev event
		if err := json.Unmarshal(c.scanner.Bytes(), &ev); err != nil {
			return fmt.Errorf("%w: %s: malformed worker output: %v", dynamo.ErrEngine, req.Op, err)
		}
		switch ev.Event {
		case "ok", "done":
			return nil
		case "error":
			return fmt.Errorf("%w: %s: %s", dynamo.ErrEngine, req.Op, ev.Message)
		case "frame":
			if ev.Frame == nil || onFrame == nil {
				continue
			}
			if err := onFrame(*ev.Frame); err != nil {
				c.cmd.Process.Kill()
				return err
			}
		default:
			c.log.Warn("unknown worker event", logging.String("event", ev.Event))
		}
	}
	err = c.scanner.Err()
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return c.failure(ctx, req.Op, err)
}

func (c *execContext) failure(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %s: worker exited: %v", dynamo.ErrEngine, op, err)
}

func (c *execContext) MinimizeEnergy(ctx context.Context, tolerance float64, maxIterations int) error {
	return c.call(ctx, request{Op: "minimize", Tolerance: tolerance, MaxIter: maxIterations}, nil)
}

func (c *execContext) SetVelocitiesToTemperature(ctx context.Context, temperature float64, seed int64) error {
	if err := dynamo.RequirePositive("temperature", temperature); err != nil {
		return err
	}
	return c.call(ctx, request{Op: "velocities", Temperature: temperature, Seed: seed}, nil)
}

func (c *execContext) ConfigureOutput(ctx context.Context, out OutputSpec) error {
	if out.Interval <= 0 {
		return dynamo.ParameterError{Name: "report interval", Value: float64(out.Interval)}
	}
	return c.call(ctx, request{Op: "reporters", Output: &out}, nil)
}

func (c *execContext) Step(ctx context.Context, n int64, interval int, onFrame func(Frame) error) error {
	if n < 0 {
		return dynamo.ParameterError{Name: "steps", Value: float64(n), Want: "non-negative"}
	}
	if interval <= 0 {
		return dynamo.ParameterError{Name: "report interval", Value: float64(interval)}
	}
	return c.call(ctx, request{Op: "step", Steps: n, Interval: interval}, onFrame)
}

// Close asks the worker to exit and waits for it.
func (c *execContext) Close() error {
	c.closeOnce.Do(func() {
		line, _ := json.Marshal(request{Op: "close"})
		c.stdin.Write(append(line, '\n'))
		c.stdin.Close()
		err := c.cmd.Wait()
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			c.closeErr = err
		}
		c.cleanup()
		c.log.Info("worker stopped")
	})
	return c.closeErr
}
