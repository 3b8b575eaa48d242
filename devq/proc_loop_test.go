package devq

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelay(t *testing.T) {
	assert := assert.New(t)

	base := 100 * time.Millisecond
	max := 30 * time.Second

	tests := []struct {
		name    string
		attempt uint32
		want    time.Duration
	}{
		{"attempt 1", 1, base},
		{"attempt 2", 2, 2 * base},
		{"attempt 3", 3, 4 * base},
		{"attempt 4", 4, 8 * base},
		{"attempt 0 treated as 1", 0, base},
		{"shift cap reached", backoffShiftCap + 1, base << backoffShiftCap},
		{"beyond shift cap", backoffShiftCap + 10, base << backoffShiftCap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(tt.want, backoffDelay(base, tt.attempt, max))
		})
	}

	t.Run("clamped to max", func(t *testing.T) {
		assert.Equal(time.Second, backoffDelay(500*time.Millisecond, 4, time.Second))
	})
}

func TestManager_PriorityOrdering(t *testing.T) {
	require := require.New(t)

	// start disconnected so all three commands queue before the worker drains
	adapter := newFakeAdapter()
	adapter.connectScript = []error{ErrNotConnected}

	mgr, err := New(context.Background(), adapter, nil, testConfig(t, WithRetryDelay(50*time.Millisecond)))
	require.NoError(err)
	defer mgr.Close()

	var mu sync.Mutex
	var order []Priority

	record := func(p Priority) CommandCallback {
		return func(cmdID uint32, cmdType int, result any, cbErr error, userData any) {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, p)
		}
	}

	// deliberately submitted lowest-first
	_, err = mgr.Submit(1, nil, PriorityLow, record(PriorityLow), nil)
	require.NoError(err)
	_, err = mgr.Submit(1, nil, PriorityNormal, record(PriorityNormal), nil)
	require.NoError(err)
	_, err = mgr.Submit(1, nil, PriorityHigh, record(PriorityHigh), nil)
	require.NoError(err)

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, "all three commands should complete after reconnect")

	mu.Lock()
	defer mu.Unlock()
	require.Equal([]Priority{PriorityHigh, PriorityNormal, PriorityLow}, order)
}

func TestManager_SettleDelayOrdering(t *testing.T) {
	require := require.New(t)

	// nonzero settle delay keeps execution single-device-serial; completion
	// order must follow priority even though all three are submitted back to back
	adapter := newFakeAdapter()
	adapter.connectScript = []error{ErrNotConnected}
	adapter.settleDelay = 10 * time.Millisecond

	mgr, err := New(context.Background(), adapter, nil, testConfig(t, WithRetryDelay(50*time.Millisecond)))
	require.NoError(err)
	defer mgr.Close()

	var mu sync.Mutex
	var order []int

	cb := func(cmdID uint32, cmdType int, result any, cbErr error, userData any) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, cmdType)
	}

	_, err = mgr.Submit(101, nil, PriorityHigh, cb, nil)
	require.NoError(err)
	_, err = mgr.Submit(102, nil, PriorityNormal, cb, nil)
	require.NoError(err)
	_, err = mgr.Submit(103, nil, PriorityLow, cb, nil)
	require.NoError(err)

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, "all three commands should complete")

	mu.Lock()
	defer mu.Unlock()
	require.Equal([]int{101, 102, 103}, order)
}

func TestManager_ReconnectBackoff(t *testing.T) {
	require := require.New(t)

	adapter := newFakeAdapter()
	adapter.connectErr = ErrNotConnected

	mgr, err := New(context.Background(), adapter, nil, testConfig(t, WithRetryDelay(20*time.Millisecond)))
	require.NoError(err)
	defer mgr.Close()

	// retries accumulate while the device is unreachable
	waitFor(t, 2*time.Second, func() bool {
		return mgr.GetMetrics().ConnRetryGauge.Load() >= 2
	}, "reconnect attempts should accumulate")
	require.False(mgr.IsConnected())

	// device comes back; attempt counter resets on success
	adapter.allowConnect()
	waitFor(t, 2*time.Second, func() bool { return mgr.IsConnected() }, "manager should reconnect")
	require.Equal(uint32(0), mgr.GetMetrics().ConnRetryGauge.Load())

	// queued work now flows
	result, err := mgr.Exec(5, "hello", PriorityNormal, time.Second)
	require.NoError(err)
	require.Equal("hello", result)
}

func TestManager_DisconnectOnCommError(t *testing.T) {
	require := require.New(t)

	adapter := newFakeAdapter()
	fail := true
	adapter.execFunc = func(cmdType int, params any) (any, error) {
		if fail {
			fail = false
			return nil, ErrCommFailed
		}
		return params, nil
	}

	mgr, err := New(context.Background(), adapter, nil, testConfig(t))
	require.NoError(err)
	defer mgr.Close()

	_, err = mgr.Exec(1, "a", PriorityNormal, time.Second)
	require.ErrorIs(err, ErrCommFailed)

	// the comm failure flips the manager into reconnection; it recovers and
	// keeps processing
	waitFor(t, 2*time.Second, func() bool { return mgr.IsConnected() }, "manager should reconnect")

	result, err := mgr.Exec(2, "b", PriorityNormal, time.Second)
	require.NoError(err)
	require.Equal("b", result)

	require.Equal(uint64(1), mgr.GetMetrics().ErrorCount.Load())
}

func TestManager_AdapterErrorKeepsConnection(t *testing.T) {
	require := require.New(t)

	// a device-level error that is not comm-class must not trigger reconnection
	adapter := newFakeAdapter()
	adapter.execFunc = func(cmdType int, params any) (any, error) {
		return nil, assert.AnError
	}

	mgr, err := New(context.Background(), adapter, nil, testConfig(t))
	require.NoError(err)
	defer mgr.Close()

	_, err = mgr.Exec(1, nil, PriorityNormal, time.Second)
	require.ErrorIs(err, assert.AnError)
	require.True(mgr.IsConnected())
}

func TestManager_ExecWhileDisconnected(t *testing.T) {
	require := require.New(t)

	adapter := newFakeAdapter()
	adapter.connectErr = ErrNotConnected

	mgr, err := New(context.Background(), adapter, nil, testConfig(t))
	require.NoError(err)
	defer mgr.Close()

	// commands are not auto-failed while disconnected; the blocking caller
	// simply times out and the command stays queued
	begin := time.Now()
	_, err = mgr.Exec(1, nil, PriorityNormal, 200*time.Millisecond)
	elapsed := time.Since(begin)

	require.ErrorIs(err, ErrTimeout)
	require.Less(elapsed, 400*time.Millisecond)
	require.Equal(1, mgr.Stats().NormalQueued)
}

func TestManager_HealthCheck(t *testing.T) {
	require := require.New(t)

	adapter := newFakeAdapter()
	mgr, err := New(context.Background(), adapter, nil,
		testConfig(t, WithHealthCheckInterval(100*time.Millisecond)))
	require.NoError(err)
	defer mgr.Close()

	require.True(mgr.IsConnected())

	adapter.mu.Lock()
	adapter.testErr = ErrCommFailed
	adapter.connectErr = ErrNotConnected
	adapter.mu.Unlock()

	waitFor(t, 2*time.Second, func() bool { return !mgr.IsConnected() },
		"failed connection test should mark the manager disconnected")
}
