package devq

import (
	"sync"
	"time"

	"github.com/benchkit/go-devq/internal/pool"
)

// Priority is the scheduling class of a command. Priorities are strictly
// ordered: the worker drains every High command before looking at Normal, and
// every Normal command before looking at Low. There is no aging; sustained
// High traffic starves Low by design, so user-initiated commands always
// outrank background polling.
type Priority int8

const (
	// PriorityHigh is for user-initiated commands and committed transactions.
	PriorityHigh Priority = iota
	// PriorityNormal is the default scheduling class.
	PriorityNormal
	// PriorityLow is for background polling that may be deferred indefinitely.
	PriorityLow

	numPriorities = 3
)

// String returns the priority name.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return "invalid"
	}
}

func (p Priority) valid() bool {
	return p >= PriorityHigh && p <= PriorityLow
}

// CommandCallback is the completion callback of an async command.
// It is invoked exactly once, always on the manager's worker goroutine and
// never on the submitter's goroutine.
type CommandCallback func(cmdID uint32, cmdType int, result any, err error, userData any)

// Command is one unit of queued work for a device.
//
// A command is created on submission with adapter-cloned parameters and is
// notified of its outcome exactly once over its lifetime, whether it was
// executed, cancelled or the manager shut down.
type Command struct {
	id         uint32
	cmdType    int
	priority   Priority
	enqueuedAt time.Time
	params     any
	txnID      uint32

	// completion mode: either callback (+userData) or comp, never both
	callback CommandCallback
	userData any
	comp     *completion

	notifyOnce sync.Once
}

// ID returns the process-wide unique command id.
func (c *Command) ID() uint32 { return c.id }

// Type returns the adapter-defined command type tag.
func (c *Command) Type() int { return c.cmdType }

// Priority returns the command's scheduling class.
func (c *Command) Priority() Priority { return c.priority }

// TransactionID returns the owning transaction id, or 0 for a standalone command.
func (c *Command) TransactionID() uint32 { return c.txnID }

// Age returns the time elapsed since the command was submitted.
func (c *Command) Age() time.Duration { return time.Since(c.enqueuedAt) }

// notify delivers the command's single completion notification.
// Subsequent calls are no-ops.
func (c *Command) notify(result any, err error) {
	c.notifyOnce.Do(func() {
		switch {
		case c.comp != nil:
			c.comp.complete(result, err)
		case c.callback != nil:
			c.callback(c.id, c.cmdType, result, err, c.userData)
		}
	})
}

// completion is the private signal of a blocking command.
//
// It is heap-owned and reachable from both the command and the blocked
// caller, so a worker that finishes after the caller has already timed out
// writes into live memory and the result is simply dropped.
type completion struct {
	done   chan struct{}
	result any
	err    error
}

func newCompletion() *completion {
	return &completion{done: make(chan struct{})}
}

// complete stores the outcome and releases the waiter. It must be called at
// most once; Command.notify guarantees that.
func (c *completion) complete(result any, err error) {
	c.result = result
	c.err = err
	close(c.done)
}

// wait blocks until the completion fires or the timeout elapses.
// It returns ErrTimeout when the deadline is reached first.
func (c *completion) wait(timeout time.Duration) error {
	timer := pool.GetTimer(timeout)
	defer pool.PutTimer(timer)

	select {
	case <-c.done:
		return nil
	case <-timer.C:
		return ErrTimeout
	}
}
