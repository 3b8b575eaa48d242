package devq

import "errors"

var (
	// ErrNilAdapter indicates that a nil Adapter was provided to New.
	ErrNilAdapter = errors.New("adapter is nil")

	// ErrConfigNil indicates that a nil Config was provided.
	ErrConfigNil = errors.New("config is nil")

	// ErrManagerClosed indicates that the manager has been closed and no longer
	// accepts submissions.
	ErrManagerClosed = errors.New("manager is closed")

	// ErrInvalidPriority indicates that an unknown priority value was provided.
	// Valid priorities are PriorityHigh, PriorityNormal and PriorityLow.
	ErrInvalidPriority = errors.New("invalid priority")
)

var (
	// ErrQueueFull indicates that the bounded queue for the requested priority
	// rejected the enqueue.
	ErrQueueFull = errors.New("command queue is full")

	// ErrTimeout indicates that a blocking call's deadline elapsed, or that the
	// adapter reported a transport timeout.
	ErrTimeout = errors.New("command timeout")

	// ErrCancelled indicates that the command was cancelled before execution,
	// either explicitly or by a cancellation sweep.
	ErrCancelled = errors.New("command cancelled")

	// ErrCommandNotFound indicates that no queued command matched the given id.
	ErrCommandNotFound = errors.New("command not found")
)

var (
	// ErrNotConnected indicates that the device is not connected.
	// The manager recovers by scheduling reconnection; it is not fatal.
	ErrNotConnected = errors.New("device not connected")

	// ErrCommFailed indicates a device communication failure.
	// The manager recovers by scheduling reconnection; it is not fatal.
	ErrCommFailed = errors.New("device communication failed")
)

var (
	// ErrTxnNotFound indicates that the transaction id is unknown.
	ErrTxnNotFound = errors.New("transaction not found")

	// ErrTxnCommitted indicates that the transaction has already been committed.
	ErrTxnCommitted = errors.New("transaction already committed")

	// ErrTxnEmpty indicates an attempt to commit a transaction with no commands.
	ErrTxnEmpty = errors.New("transaction has no commands")

	// ErrTxnFull indicates that the transaction is at its member capacity.
	ErrTxnFull = errors.New("transaction is at capacity")
)

// isCommError reports whether err is a communication/timeout-class error that
// should transition the manager into the disconnected state.
func isCommError(err error) bool {
	return errors.Is(err, ErrNotConnected) ||
		errors.Is(err, ErrCommFailed) ||
		errors.Is(err, ErrTimeout)
}
