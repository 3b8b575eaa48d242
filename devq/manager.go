package devq

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/benchkit/go-devq/internal/queue"
	"github.com/benchkit/go-devq/logger"
)

// Manager owns the command queues and the dedicated processing worker of one
// physical device. Independent devices run fully in parallel with no shared
// state between their managers; any number of goroutines may submit commands
// concurrently, interacting with the engine only through the bounded queues
// and, for blocking calls, a private per-call completion signal.
type Manager struct {
	ctx     context.Context
	cfg     *Config
	logger  logger.Logger
	adapter Adapter
	device  any

	queues [numPriorities]*queue.Bounded[*Command]
	txns   *xsync.MapOf[uint32, *Transaction]

	connected atomic.Bool
	closed    atomic.Bool
	tasks     *taskRunner

	metrics Metrics
}

// New creates a Manager for one device and starts its processing worker.
//
// It attempts one synchronous connect through the adapter; a connect failure
// does not fail construction — the manager starts disconnected and the worker
// retries with exponential backoff. Construction fails only on invalid
// arguments or when the worker cannot be started.
func New(ctx context.Context, adapter Adapter, device any, cfg *Config) (*Manager, error) {
	if adapter == nil {
		return nil, ErrNilAdapter
	}
	if cfg == nil {
		var err error
		cfg, err = NewConfig()
		if err != nil {
			return nil, err
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	m := &Manager{
		ctx:     ctx,
		cfg:     cfg,
		logger:  cfg.logger,
		adapter: adapter,
		device:  device,
		txns:    xsync.NewMapOf[uint32, *Transaction](),
		tasks:   newTaskRunner(ctx, cfg.logger),
	}
	for i := range m.queues {
		m.queues[i] = queue.NewBounded[*Command](cfg.queueSize)
	}

	connCtx, cancel := context.WithTimeout(ctx, cfg.connectTimeout)
	err := adapter.Connect(connCtx, device)
	cancel()
	if err != nil {
		m.logger.Warn("initial connect failed, worker will retry", "error", err)
	} else {
		m.connected.Store(true)
	}

	if err := m.tasks.start("procLoop", m.procLoopFunc()); err != nil {
		if m.connected.Load() {
			_ = adapter.Disconnect(device)
			m.connected.Store(false)
		}
		return nil, fmt.Errorf("failed to start processing worker: %w", err)
	}

	if cfg.healthCheckInterval > 0 {
		if err := m.tasks.startInterval("healthCheck", m.healthCheckFunc(), cfg.healthCheckInterval); err != nil {
			m.tasks.stop()
			m.tasks.wait()
			if m.connected.Load() {
				_ = adapter.Disconnect(device)
				m.connected.Store(false)
			}
			return nil, fmt.Errorf("failed to start health check: %w", err)
		}
	}

	return m, nil
}

// Close shuts the manager down: it stops and joins the worker, disconnects
// the adapter, fails every still-queued command with ErrCancelled and
// finalizes pending transactions. Close is idempotent.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}

	m.logger.Debug("closing manager")

	m.tasks.stop()
	m.tasks.wait()

	if m.connected.Load() {
		if err := m.adapter.Disconnect(m.device); err != nil {
			m.logger.Warn("disconnect failed during close", "error", err)
		}
		m.connected.Store(false)
	}

	// everything still queued resolves as cancelled
	m.sweepQueues(func(*Command) bool { return true })

	// committed transactions finalize with whatever counts they accumulated;
	// uncommitted ones are silently discarded, nothing of theirs was enqueued
	m.txns.Range(func(id uint32, txn *Transaction) bool {
		if txn.isCommitted() {
			m.finalizeTransaction(txn)
		} else {
			m.txns.Delete(id)
		}
		return true
	})

	return nil
}

// Exec submits a command and blocks until it completes or timeout elapses.
//
// Params are deep-copied through the adapter before enqueueing, so the caller
// may reuse them immediately. On success the adapter's deep-copied result and
// execution error are returned. On timeout ErrTimeout is returned; the
// command is not removed from the queue and may still execute later, its
// result is then dropped. ErrQueueFull is returned when the bounded queue
// rejects the enqueue.
func (m *Manager) Exec(cmdType int, params any, priority Priority, timeout time.Duration) (any, error) {
	cmd, err := m.newCommand(cmdType, params, priority)
	if err != nil {
		return nil, err
	}
	cmd.comp = newCompletion()

	if err := m.enqueue(cmd); err != nil {
		return nil, err
	}

	if err := cmd.comp.wait(timeout); err != nil {
		m.metrics.incTimeoutCount()
		m.logger.Debug("blocking command timed out",
			"id", cmd.id, "type", m.adapter.CommandName(cmd.cmdType), "timeout", timeout)
		return nil, err
	}

	return cmd.comp.result, cmd.comp.err
}

// Submit enqueues a command and returns its id immediately. The callback, if
// non-nil, is invoked exactly once on the worker goroutine with the command's
// outcome; it is never invoked on the caller's goroutine.
//
// On failure the returned id is 0.
func (m *Manager) Submit(cmdType int, params any, priority Priority, callback CommandCallback, userData any) (uint32, error) {
	cmd, err := m.newCommand(cmdType, params, priority)
	if err != nil {
		return 0, err
	}
	cmd.callback = callback
	cmd.userData = userData

	if err := m.enqueue(cmd); err != nil {
		return 0, err
	}

	return cmd.id, nil
}

// Stats returns a non-blocking snapshot of the manager's state.
func (m *Manager) Stats() Stats {
	return Stats{
		HighQueued:        m.queues[PriorityHigh].Len(),
		NormalQueued:      m.queues[PriorityNormal].Len(),
		LowQueued:         m.queues[PriorityLow].Len(),
		TotalProcessed:    m.metrics.ProcessedCount.Load(),
		TotalErrors:       m.metrics.ErrorCount.Load(),
		ReconnectAttempts: m.metrics.ConnRetryGauge.Load(),
		Connected:         m.connected.Load(),
		WorkerRunning:     m.tasks.taskCount() > 0,
	}
}

// GetMetrics returns the metrics associated with the manager.
func (m *Manager) GetMetrics() *Metrics {
	return &m.metrics
}

// IsConnected reports whether the manager currently believes the device is
// connected.
func (m *Manager) IsConnected() bool {
	return m.connected.Load()
}

// newCommand validates the submission and builds a Command with
// adapter-cloned parameters.
func (m *Manager) newCommand(cmdType int, params any, priority Priority) (*Command, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}
	if !priority.valid() {
		return nil, ErrInvalidPriority
	}

	var cloned any
	if params != nil {
		var err error
		cloned, err = m.adapter.CloneParams(cmdType, params)
		if err != nil {
			return nil, fmt.Errorf("clone params: %w", err)
		}
	}

	return &Command{
		id:         nextCommandID(),
		cmdType:    cmdType,
		priority:   priority,
		enqueuedAt: time.Now(),
		params:     cloned,
	}, nil
}

func (m *Manager) enqueue(cmd *Command) error {
	if !m.queues[cmd.priority].TryEnqueue(cmd) {
		return ErrQueueFull
	}

	return nil
}
