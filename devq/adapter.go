package devq

import (
	"context"
	"time"
)

// Adapter is the capability set implemented once per instrument family.
// It is the only seam where device-specific protocol code plugs into the
// engine; the engine never depends on any instrument's wire format.
//
// The device argument passed to every method is the opaque device context
// given to New. It is owned by the adapter and its caller; the engine never
// interprets it and, with the exception of the construction-time connect
// attempt and the Connect/Disconnect/TestConnection/Execute calls issued by
// the worker, never touches it.
//
// Connect, Disconnect and Execute run on the manager's worker goroutine (or
// during New/Close). CloneParams and CloneResult run on submitter goroutines
// and must be safe to call concurrently with the rest. TestConnection runs on
// the health-check goroutine while the engine is idle and should tolerate an
// occasional overlap with a freshly dequeued Execute.
type Adapter interface {
	// Connect establishes the device transport. The context carries the
	// configured connect timeout. A failure leaves the manager disconnected
	// and subject to reconnection backoff.
	Connect(ctx context.Context, device any) error

	// Disconnect tears down the device transport.
	Disconnect(device any) error

	// TestConnection verifies that the device still responds. It is called by
	// the optional periodic health check while the manager is idle.
	TestConnection(device any) error

	// IsConnected reports the adapter's view of the transport state.
	IsConnected(device any) bool

	// Execute performs one command against the device and returns its result.
	// Returning an error that matches ErrNotConnected, ErrCommFailed or
	// ErrTimeout (per errors.Is) transitions the manager into the
	// disconnected state and starts reconnection backoff; any other error is
	// delivered to the command without affecting the connection state.
	Execute(device any, cmdType int, params any) (any, error)

	// CloneParams deep-copies command parameters at submission time.
	// Parameters cross the submitter/worker boundary and must never be shared
	// by reference.
	CloneParams(cmdType int, params any) (any, error)

	// CloneResult deep-copies an execution result before it is handed to a
	// blocking caller on another goroutine.
	CloneResult(cmdType int, result any) (any, error)

	// CommandName returns a human-readable name for a command type, used in logs.
	CommandName(cmdType int) string

	// CommandDelay returns the settle delay enforced after executing a command
	// of the given type, respecting the device's recovery timing. The worker
	// applies it unconditionally, making execution single-device-serial
	// regardless of priority.
	CommandDelay(cmdType int) time.Duration
}
