package devq

import (
	"sync/atomic"
)

// Metrics contains atomic counters for a manager.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// ProcessedCount indicates the number of commands executed through the adapter.
	ProcessedCount atomic.Uint64
	// ErrorCount indicates the number of commands whose execution returned an error.
	ErrorCount atomic.Uint64
	// CancelledCount indicates the number of commands cancelled before execution.
	CancelledCount atomic.Uint64
	// TimeoutCount indicates the number of blocking calls that timed out waiting.
	TimeoutCount atomic.Uint64

	// TxnCommittedCount indicates the number of committed transactions.
	TxnCommittedCount atomic.Uint64
	// TxnFinalizedCount indicates the number of finalized transactions.
	TxnFinalizedCount atomic.Uint64

	// InflightGauge indicates whether a command is currently executing (0 or 1).
	InflightGauge atomic.Int32

	// ConnRetryGauge indicates the number of reconnect attempts since the last
	// successful connect.
	ConnRetryGauge atomic.Uint32
}

func (m *Metrics) incProcessedCount() {
	m.ProcessedCount.Add(1)
}

func (m *Metrics) incErrorCount() {
	m.ErrorCount.Add(1)
}

func (m *Metrics) incCancelledCount() {
	m.CancelledCount.Add(1)
}

func (m *Metrics) incTimeoutCount() {
	m.TimeoutCount.Add(1)
}

func (m *Metrics) incTxnCommittedCount() {
	m.TxnCommittedCount.Add(1)
}

func (m *Metrics) incTxnFinalizedCount() {
	m.TxnFinalizedCount.Add(1)
}

func (m *Metrics) incInflightGauge() {
	m.InflightGauge.Add(1)
}

func (m *Metrics) decInflightGauge() {
	m.InflightGauge.Add(-1)
}

func (m *Metrics) incConnRetryGauge() {
	m.ConnRetryGauge.Add(1)
}

func (m *Metrics) resetConnRetryGauge() {
	m.ConnRetryGauge.Store(0)
}

// Stats is a non-blocking snapshot of a manager's observable state.
type Stats struct {
	// HighQueued, NormalQueued and LowQueued are the current queue depths.
	HighQueued   int
	NormalQueued int
	LowQueued    int

	// TotalProcessed is the number of commands executed through the adapter.
	TotalProcessed uint64
	// TotalErrors is the number of command executions that returned an error.
	TotalErrors uint64

	// ReconnectAttempts is the number of reconnect attempts since the last
	// successful connect.
	ReconnectAttempts uint32

	// Connected reports whether the manager currently believes the device is
	// connected.
	Connected bool
	// WorkerRunning reports whether the processing worker is alive.
	WorkerRunning bool
}
