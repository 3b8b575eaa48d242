package devq

import (
	"context"
	"fmt"
	"time"
)

const (
	retryDelayFactor = 2

	// backoffShiftCap bounds the exponent of the reconnect backoff so the
	// shift can never overflow regardless of the attempt count.
	backoffShiftCap = 8
)

// procState is the worker-local connection retry state. It is owned by the
// processing goroutine and never shared.
type procState struct {
	attempts  uint32
	nextRetry time.Time
}

// backoffDelay returns the delay preceding reconnect attempt number attempt
// (1-based): base * 2^min(attempt-1, backoffShiftCap), clamped to max.
func backoffDelay(base time.Duration, attempt uint32, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := attempt - 1
	if shift > backoffShiftCap {
		shift = backoffShiftCap
	}

	delay := base << shift
	if delay <= 0 || delay > max {
		delay = max
	}

	return delay
}

// procLoopFunc returns the worker's iteration function.
//
// Each iteration advances a small state machine: while disconnected the worker
// only services the reconnect schedule; while connected it drains the queues
// in strict priority order, executing one command per iteration, or idles for
// one poll interval when every queue is empty.
func (m *Manager) procLoopFunc() taskFunc {
	ps := &procState{}
	if !m.connected.Load() {
		// initial connect already failed in New; first retry after the base delay
		ps.nextRetry = time.Now().Add(backoffDelay(m.cfg.retryDelay, 1, m.cfg.maxRetryDelay))
	}

	return func() bool {
		if !m.connected.Load() {
			m.serviceReconnect(ps)
			return true
		}

		cmd, ok := m.dequeue()
		if !ok {
			time.Sleep(m.cfg.pollInterval)
			return true
		}

		m.execute(cmd, ps)

		return true
	}
}

// dequeue polls the queues in strict priority order: High, then Normal, then
// Low. FIFO within a level, no aging, no starvation guard.
func (m *Manager) dequeue() (*Command, bool) {
	for _, q := range m.queues {
		if cmd, ok := q.TryDequeue(); ok {
			return cmd, true
		}
	}

	return nil, false
}

// serviceReconnect attempts one reconnect when the retry deadline has been
// reached, otherwise sleeps until the deadline or for one poll interval,
// whichever is shorter. Queued commands are left untouched while
// disconnected; they execute once the device comes back.
func (m *Manager) serviceReconnect(ps *procState) {
	until := time.Until(ps.nextRetry)
	if until > 0 {
		if until > m.cfg.pollInterval {
			until = m.cfg.pollInterval
		}
		time.Sleep(until)

		return
	}

	connCtx, cancel := context.WithTimeout(m.ctx, m.cfg.connectTimeout)
	err := m.adapter.Connect(connCtx, m.device)
	cancel()

	if err == nil {
		m.connected.Store(true)
		ps.attempts = 0
		m.metrics.resetConnRetryGauge()
		m.logger.Info("device connected")

		return
	}

	ps.attempts++
	m.metrics.incConnRetryGauge()

	delay := backoffDelay(m.cfg.retryDelay, ps.attempts+1, m.cfg.maxRetryDelay)
	ps.nextRetry = time.Now().Add(delay)

	m.logger.Debug("reconnect failed, schedule retry",
		"attempts", ps.attempts, "next_delay", delay, "error", err)
}

// execute runs one command through the adapter, delivers its single
// completion notification, applies the settle delay and updates transaction
// accounting.
func (m *Manager) execute(cmd *Command, ps *procState) {
	m.metrics.incInflightGauge()
	result, err := m.adapter.Execute(m.device, cmd.cmdType, cmd.params)
	m.metrics.decInflightGauge()

	m.metrics.incProcessedCount()
	if err != nil {
		m.metrics.incErrorCount()
		m.logger.Debug("command failed",
			"id", cmd.id, "type", m.adapter.CommandName(cmd.cmdType), "error", err)

		if isCommError(err) {
			m.markDisconnected(ps, err)
		}
	}

	m.notifyExecuted(cmd, result, err)

	// settle delay, enforced unconditionally so the device gets its recovery
	// time between any two transport operations
	if delay := m.adapter.CommandDelay(cmd.cmdType); delay > 0 {
		time.Sleep(delay)
	}

	if cmd.txnID != 0 {
		m.recordTransactionResult(cmd.txnID, err)
	}
}

// markDisconnected transitions the manager to the disconnected state and
// schedules the first reconnect attempt after the base delay.
func (m *Manager) markDisconnected(ps *procState, cause error) {
	m.connected.Store(false)
	ps.attempts = 0
	ps.nextRetry = time.Now().Add(backoffDelay(m.cfg.retryDelay, 1, m.cfg.maxRetryDelay))

	m.logger.Warn("device disconnected", "cause", cause)
}

// notifyExecuted delivers an executed command's outcome. Results handed to a
// blocking caller cross a goroutine boundary and are deep-copied through the
// adapter first; async callbacks run on this goroutine and receive the
// adapter's result directly.
func (m *Manager) notifyExecuted(cmd *Command, result any, err error) {
	if cmd.comp != nil && err == nil && result != nil {
		cloned, cerr := m.adapter.CloneResult(cmd.cmdType, result)
		if cerr != nil {
			result = nil
			err = fmt.Errorf("clone result: %w", cerr)
		} else {
			result = cloned
		}
	}

	cmd.notify(result, err)
}

// healthCheckFunc returns the periodic idle connection test. It only probes
// when the manager believes it is connected and has nothing queued, so it
// never competes with real traffic for the transport.
func (m *Manager) healthCheckFunc() taskFunc {
	return func() bool {
		if m.closed.Load() {
			return false
		}
		if !m.connected.Load() {
			return true
		}
		if m.metrics.InflightGauge.Load() > 0 {
			return true
		}
		for _, q := range m.queues {
			if !q.IsEmpty() {
				return true
			}
		}

		if err := m.adapter.TestConnection(m.device); err != nil {
			m.logger.Warn("connection test failed", "error", err)
			m.connected.Store(false)
		}

		return true
	}
}
