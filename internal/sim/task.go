package sim

import (
	"context"
	"sync/atomic"
)

// Task is a run executing in the background.
type Task struct {
	total    int64
	started  atomic.Int64
	progress atomic.Int64
	cancel   context.CancelFunc
	done     chan struct{}
	err      error
}

func (t *Task) finish(err error) {
	t.err = err
	t.cancel()
	close(t.done)
}

// Done is closed when the run ends.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the run ends and returns its error.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Cancel stops the run; Wait then returns context.Canceled.
func (t *Task) Cancel() {
	t.cancel()
}

// Progress returns the steps completed by this run and the steps requested.
func (t *Task) Progress() (done, total int64) {
	p := t.progress.Load()
	if p == 0 {
		return 0, t.total
	}
	return p - t.started.Load(), t.total
}
