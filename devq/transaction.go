package devq

import (
	"sync"
	"time"
)

// TransactionCallback is the aggregate completion callback of a committed
// transaction. It is invoked exactly once, after every member has been
// notified (executed or cancelled), with successCount+failureCount equal to
// the member count.
type TransactionCallback func(txnID uint32, successCount, failureCount int, userData any)

// Transaction is a named, capacity-bounded batch of commands with aggregate
// completion accounting. Members accumulate before commit and are enqueued as
// one atomic unit at commit time; the batch therefore executes contiguously,
// with no foreign command interleaved between members of the same priority.
type Transaction struct {
	id       uint32
	priority Priority

	mu        sync.Mutex
	members   []*Command
	committed bool
	callback  TransactionCallback
	userData  any

	// aggregate accounting, guarded by mu
	notified  int
	succeeded int

	finalizeOnce sync.Once
}

// ID returns the transaction id.
func (t *Transaction) ID() uint32 { return t.id }

// Priority returns the scheduling class the members inherit at commit time.
func (t *Transaction) Priority() Priority { return t.priority }

func (t *Transaction) isCommitted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.committed
}

// recordResult accounts one member notification. It returns true when the
// transaction is committed and every member has now been notified.
func (t *Transaction) recordResult(err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.notified++
	if err == nil {
		t.succeeded++
	}

	return t.committed && t.notified >= len(t.members)
}

// counts returns the aggregate (success, failure) tally.
func (t *Transaction) counts() (int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.succeeded, t.notified - t.succeeded
}

// BeginTransaction allocates and registers an empty transaction and returns
// its id. Members inherit the transaction's priority at commit time, which is
// PriorityHigh. Returns 0 when the manager is closed.
func (m *Manager) BeginTransaction() uint32 {
	if m.closed.Load() {
		return 0
	}

	txn := &Transaction{
		id:       nextTransactionID(),
		priority: PriorityHigh,
	}
	m.txns.Store(txn.id, txn)

	m.logger.Debug("transaction begun", "txn_id", txn.id)

	return txn.id
}

// AddToTransaction appends a command to an uncommitted transaction. Params
// are deep-copied through the adapter immediately, so the caller may reuse
// them. Nothing is enqueued until CommitTransaction.
func (m *Manager) AddToTransaction(txnID uint32, cmdType int, params any) error {
	txn, ok := m.txns.Load(txnID)
	if !ok {
		return ErrTxnNotFound
	}

	var cloned any
	if params != nil {
		var err error
		cloned, err = m.adapter.CloneParams(cmdType, params)
		if err != nil {
			return err
		}
	}

	txn.mu.Lock()
	defer txn.mu.Unlock()

	if txn.committed {
		return ErrTxnCommitted
	}
	if len(txn.members) >= m.cfg.txnCapacity {
		return ErrTxnFull
	}

	txn.members = append(txn.members, &Command{
		id:         nextCommandID(),
		cmdType:    cmdType,
		priority:   txn.priority,
		enqueuedAt: time.Now(),
		params:     cloned,
		txnID:      txnID,
	})

	return nil
}

// CommitTransaction enqueues every member of the transaction as one atomic
// batch into the transaction's priority queue and arms the aggregate
// callback. The batch is admitted all-or-nothing: when the queue cannot hold
// every member, ErrQueueFull is returned and the transaction stays
// uncommitted, so the caller can retry or cancel it.
func (m *Manager) CommitTransaction(txnID uint32, callback TransactionCallback, userData any) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}

	txn, ok := m.txns.Load(txnID)
	if !ok {
		return ErrTxnNotFound
	}

	txn.mu.Lock()
	defer txn.mu.Unlock()

	if txn.committed {
		return ErrTxnCommitted
	}
	if len(txn.members) == 0 {
		return ErrTxnEmpty
	}

	if !m.queues[txn.priority].TryEnqueueBatch(txn.members) {
		return ErrQueueFull
	}

	txn.committed = true
	txn.callback = callback
	txn.userData = userData
	m.metrics.incTxnCommittedCount()

	m.logger.Debug("transaction committed",
		"txn_id", txnID, "members", len(txn.members), "priority", txn.priority)

	return nil
}

// CancelTransaction cancels a transaction.
//
// Before commit, the accumulated members are discarded and the transaction is
// unregistered; nothing was ever enqueued, so the adapter is never invoked
// and no callbacks fire. After commit, every still-queued member is swept out
// and notified with ErrCancelled, then the aggregate callback fires with the
// resulting counts and the transaction is unregistered.
func (m *Manager) CancelTransaction(txnID uint32) error {
	txn, ok := m.txns.Load(txnID)
	if !ok {
		return ErrTxnNotFound
	}

	if !txn.isCommitted() {
		m.txns.Delete(txnID)
		m.logger.Debug("uncommitted transaction cancelled", "txn_id", txnID)

		return nil
	}

	m.sweepQueues(func(c *Command) bool { return c.txnID == txnID })

	// members that were already executing are accounted by the worker; the
	// sweep accounted the rest, so finalize with whatever tally resulted
	m.finalizeTransaction(txn)

	return nil
}

// recordTransactionResult accounts a member outcome and finalizes the
// transaction when it was the last outstanding member.
func (m *Manager) recordTransactionResult(txnID uint32, err error) {
	txn, ok := m.txns.Load(txnID)
	if !ok {
		return
	}

	if txn.recordResult(err) {
		m.finalizeTransaction(txn)
	}
}

// finalizeTransaction unregisters the transaction and fires its aggregate
// callback exactly once.
func (m *Manager) finalizeTransaction(txn *Transaction) {
	txn.finalizeOnce.Do(func() {
		m.txns.Delete(txn.id)
		m.metrics.incTxnFinalizedCount()

		success, failure := txn.counts()
		m.logger.Debug("transaction finalized",
			"txn_id", txn.id, "success", success, "failure", failure)

		if txn.callback != nil {
			txn.callback(txn.id, success, failure, txn.userData)
		}
	})
}
