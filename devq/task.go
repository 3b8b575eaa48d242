package devq

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benchkit/go-devq/logger"
)

// taskFunc performs one iteration of a task within a goroutine managed by the
// taskRunner. It returns true to keep running, or false to stop the goroutine.
type taskFunc func() bool

// taskRunner manages the lifecycle of the goroutines a manager owns: the
// processing worker and the optional health-check interval task.
//
// It uses a context.Context to signal termination and a sync.WaitGroup to let
// wait() block until every goroutine has exited. Task bodies run with panic
// protection so a misbehaving adapter cannot kill the worker silently.
type taskRunner struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  logger.Logger
	count   atomic.Int32
	tickers sync.Map // map[string]*time.Ticker
}

func newTaskRunner(ctx context.Context, l logger.Logger) *taskRunner {
	r := &taskRunner{logger: l}
	r.ctx, r.cancel = context.WithCancel(ctx)

	return r
}

// start launches a named goroutine that invokes fn repeatedly until fn returns
// false or the runner is stopped. It waits for the goroutine to be scheduled
// before returning.
func (r *taskRunner) start(name string, fn taskFunc) error {
	select {
	case <-r.ctx.Done():
		return fmt.Errorf("task runner already stopped")
	default:
	}

	r.logger.Debug("start task", "name", name)

	started := make(chan struct{})
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		defer func() {
			r.count.Add(-1)
			r.logger.Debug(fmt.Sprintf("%s task terminated", name), "task_count", r.taskCount())
		}()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("panic in task", "name", name, "panic", rec)
			}
		}()

		r.count.Add(1)
		close(started)

		for {
			select {
			case <-r.ctx.Done():
				return
			default:
				if !r.callWithRecover(name, fn) {
					return
				}
			}
		}
	}()

	select {
	case <-started:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for %s to start", name)
	}
}

// startInterval launches a named goroutine that invokes fn at the given
// interval until fn returns false or the runner is stopped.
func (r *taskRunner) startInterval(name string, fn taskFunc, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval: %v", interval)
	}

	ticker := time.NewTicker(interval)
	if _, loaded := r.tickers.LoadOrStore(name, ticker); loaded {
		ticker.Stop()
		return fmt.Errorf("interval task %s already exists", name)
	}

	cleanup := func() {
		ticker.Stop()
		r.tickers.Delete(name)
	}

	started := make(chan struct{})
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		defer cleanup()
		defer r.count.Add(-1)

		r.count.Add(1)
		close(started)

		for {
			select {
			case <-r.ctx.Done():
				return
			case <-ticker.C:
				if !r.callWithRecover(name, fn) {
					return
				}
			}
		}
	}()

	select {
	case <-started:
		return nil
	case <-time.After(5 * time.Second):
		cleanup()
		return fmt.Errorf("timeout waiting for %s to start", name)
	}
}

// callWithRecover calls a task function with panic protection.
// A panicking iteration is treated as "continue running".
func (r *taskRunner) callWithRecover(name string, fn taskFunc) (cont bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic in task", "name", name, "panic", rec)
			cont = true
		}
	}()

	return fn()
}

// stop signals all running goroutines to terminate.
func (r *taskRunner) stop() {
	r.tickers.Range(func(key, value any) bool {
		if ticker, ok := value.(*time.Ticker); ok {
			ticker.Stop()
		}
		return true
	})

	r.cancel()
}

// wait blocks until all goroutines have terminated.
func (r *taskRunner) wait() {
	r.wg.Wait()
}

// taskCount returns the number of currently running goroutines.
func (r *taskRunner) taskCount() int {
	return int(r.count.Load())
}
