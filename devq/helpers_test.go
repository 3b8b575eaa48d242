package devq

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeDevice is the opaque device context used by the fake adapter.
type fakeDevice struct {
	name string
}

type execRecord struct {
	cmdType int
	params  any
}

// fakeAdapter is a scriptable in-memory Adapter for behavior tests.
// By default Execute echoes the command params back as the result.
type fakeAdapter struct {
	mu sync.Mutex

	connected     bool
	connectScript []error // popped per Connect call; nil entry = success
	connectErr    error   // returned by Connect when the script is empty
	connectCalls  int

	execRecords []execRecord
	execFunc    func(cmdType int, params any) (any, error)
	execStall   time.Duration

	settleDelay time.Duration
	testErr     error

	cloneParamCalls  int
	cloneResultCalls int
}

var _ Adapter = (*fakeAdapter)(nil)

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{}
}

func (f *fakeAdapter) Connect(ctx context.Context, device any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.connectCalls++

	if len(f.connectScript) > 0 {
		err := f.connectScript[0]
		f.connectScript = f.connectScript[1:]
		if err != nil {
			return err
		}
		f.connected = true
		return nil
	}

	if f.connectErr != nil {
		return f.connectErr
	}

	f.connected = true

	return nil
}

func (f *fakeAdapter) Disconnect(device any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.connected = false

	return nil
}

func (f *fakeAdapter) TestConnection(device any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.testErr
}

func (f *fakeAdapter) IsConnected(device any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.connected
}

func (f *fakeAdapter) Execute(device any, cmdType int, params any) (any, error) {
	f.mu.Lock()
	stall := f.execStall
	execFn := f.execFunc
	f.execRecords = append(f.execRecords, execRecord{cmdType: cmdType, params: params})
	f.mu.Unlock()

	if stall > 0 {
		time.Sleep(stall)
	}

	if execFn != nil {
		return execFn(cmdType, params)
	}

	return params, nil
}

func (f *fakeAdapter) CloneParams(cmdType int, params any) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cloneParamCalls++

	return params, nil
}

func (f *fakeAdapter) CloneResult(cmdType int, result any) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cloneResultCalls++

	return result, nil
}

func (f *fakeAdapter) CommandName(cmdType int) string {
	return fmt.Sprintf("cmd-%d", cmdType)
}

func (f *fakeAdapter) CommandDelay(cmdType int) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.settleDelay
}

func (f *fakeAdapter) execCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.execRecords)
}

func (f *fakeAdapter) records() []execRecord {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]execRecord, len(f.execRecords))
	copy(out, f.execRecords)

	return out
}

func (f *fakeAdapter) allowConnect() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.connectScript = nil
	f.connectErr = nil
}

// testConfig builds a config with fast timings for tests.
func testConfig(t *testing.T, extra ...Option) *Config {
	t.Helper()

	opts := []Option{
		WithPollInterval(time.Millisecond),
		WithRetryDelay(20 * time.Millisecond),
		WithMaxRetryDelay(time.Second),
		WithConnectTimeout(100 * time.Millisecond),
	}
	opts = append(opts, extra...)

	cfg, err := NewConfig(opts...)
	if err != nil {
		t.Fatalf("test config: %v", err)
	}

	return cfg
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
