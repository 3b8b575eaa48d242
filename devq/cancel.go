package devq

import "time"

// CancelCommand cancels one queued command by id. The command receives its
// single ErrCancelled notification. ErrCommandNotFound is returned when no
// queued command has that id — including when the command is already
// executing, since a command handed to the adapter cannot be aborted
// mid-flight.
func (m *Manager) CancelCommand(id uint32) error {
	if n := m.sweepQueues(func(c *Command) bool { return c.id == id }); n == 0 {
		return ErrCommandNotFound
	}

	return nil
}

// CancelByType cancels every queued command of the given type and returns the
// number of commands cancelled.
func (m *Manager) CancelByType(cmdType int) int {
	return m.sweepQueues(func(c *Command) bool { return c.cmdType == cmdType })
}

// CancelByAge cancels every queued command that has been waiting for at least
// olderThan and returns the number of commands cancelled.
func (m *Manager) CancelByAge(olderThan time.Duration) int {
	return m.sweepQueues(func(c *Command) bool { return c.Age() >= olderThan })
}

// CancelAll cancels every queued command and returns the number of commands
// cancelled.
func (m *Manager) CancelAll() int {
	return m.sweepQueues(func(*Command) bool { return true })
}

// sweepQueues is the single mechanism behind every cancellation operation:
// each queue is drained entirely, the predicate picks the victims, victims
// are notified with ErrCancelled and survivors are put back at the head of
// their queue in their original order. Other goroutines observe the queue as
// briefly empty during the sweep, which is harmless because producers and the
// worker only interact with the queue through its own push/pop.
func (m *Manager) sweepQueues(match func(*Command) bool) int {
	cancelled := 0

	for _, q := range m.queues {
		drained := q.Drain()
		if len(drained) == 0 {
			continue
		}

		survivors := drained[:0]
		for _, cmd := range drained {
			if match(cmd) {
				m.cancelQueued(cmd)
				cancelled++
			} else {
				survivors = append(survivors, cmd)
			}
		}
		q.Requeue(survivors)
	}

	return cancelled
}

// cancelQueued resolves a swept command: one ErrCancelled notification, plus
// transaction accounting when the command was a committed member.
func (m *Manager) cancelQueued(cmd *Command) {
	cmd.notify(nil, ErrCancelled)
	m.metrics.incCancelledCount()

	if cmd.txnID != 0 {
		m.recordTransactionResult(cmd.txnID, ErrCancelled)
	}
}
