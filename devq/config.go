package devq

import (
	"errors"
	"time"

	"github.com/benchkit/go-devq/logger"
)

// Config represents the configuration parameters for a device command queue
// manager.
type Config struct {
	// queueSize defines the capacity of each of the three priority queues.
	// Defaults to 64.
	queueSize int

	// pollInterval defines how long the worker sleeps when every queue is
	// empty, and the granularity of reconnect-deadline checks.
	// Defaults to 5 milliseconds.
	pollInterval time.Duration

	// retryDelay defines the delay before the first reconnect attempt after a
	// disconnect. Subsequent attempts back off exponentially from this base.
	// Defaults to 100 milliseconds.
	retryDelay time.Duration

	// maxRetryDelay clamps the exponential reconnect backoff.
	// Defaults to 30 seconds.
	maxRetryDelay time.Duration

	// connectTimeout bounds each adapter Connect call.
	// Defaults to 3 seconds.
	connectTimeout time.Duration

	// txnCapacity defines the maximum number of commands per transaction.
	// Defaults to 32.
	txnCapacity int

	// healthCheckInterval defines the interval of the periodic idle
	// connection test. Zero disables the health check.
	// Defaults to 0 (disabled).
	healthCheckInterval time.Duration

	// logger provides a logger instance for engine events and errors.
	logger logger.Logger
}

// NewConfig creates a manager configuration with default values, customized
// by the given functional options.
//
// Returns a pointer to the initialized Config and an error if any option
// fails validation.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		queueSize:           64,
		pollInterval:        5 * time.Millisecond,
		retryDelay:          100 * time.Millisecond,
		maxRetryDelay:       30 * time.Second,
		connectTimeout:      3 * time.Second,
		txnCapacity:         32,
		healthCheckInterval: 0,
		logger:              logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// QueueSize returns the per-priority queue capacity.
func (cfg *Config) QueueSize() int { return cfg.queueSize }

// PollInterval returns the worker idle-poll interval.
func (cfg *Config) PollInterval() time.Duration { return cfg.pollInterval }

// RetryDelay returns the base reconnect delay.
func (cfg *Config) RetryDelay() time.Duration { return cfg.retryDelay }

// MaxRetryDelay returns the reconnect backoff clamp.
func (cfg *Config) MaxRetryDelay() time.Duration { return cfg.maxRetryDelay }

// ConnectTimeout returns the per-attempt connect timeout.
func (cfg *Config) ConnectTimeout() time.Duration { return cfg.connectTimeout }

// TransactionCapacity returns the maximum member count per transaction.
func (cfg *Config) TransactionCapacity() int { return cfg.txnCapacity }

// HealthCheckInterval returns the idle connection-test interval, 0 when disabled.
func (cfg *Config) HealthCheckInterval() time.Duration { return cfg.healthCheckInterval }

// Option represents a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc struct {
	name      string
	applyFunc func(*Config) error
}

func (o *optFunc) apply(cfg *Config) error { return o.applyFunc(cfg) }

func newOptFunc(name string, f func(*Config) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

// WithQueueSize sets the capacity of each of the three priority queues.
//
// The capacity must be within the range of 1 to 4096.
// An error is returned if the capacity is invalid or if the Config is nil.
//
// The default value is 64.
func WithQueueSize(size int) Option {
	return newOptFunc("WithQueueSize", func(cfg *Config) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if size < 1 || size > 4096 {
			return errors.New("queue size out of range [1, 4096]")
		}
		cfg.queueSize = size

		return nil
	})
}

// WithPollInterval sets how long the worker sleeps when all queues are empty.
// It also bounds how promptly the worker notices a reached reconnect deadline.
//
// The interval must be within the range of 1 millisecond to 1 second.
// An error is returned if the interval is invalid or if the Config is nil.
//
// The default value is 5 milliseconds.
func WithPollInterval(interval time.Duration) Option {
	return newOptFunc("WithPollInterval", func(cfg *Config) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if interval < time.Millisecond || interval > time.Second {
			return errors.New("poll interval out of range [1ms, 1s]")
		}
		cfg.pollInterval = interval

		return nil
	})
}

// WithRetryDelay sets the delay before the first reconnect attempt after a
// disconnect. Subsequent attempts double this delay up to the maximum set by
// WithMaxRetryDelay.
//
// The delay must be within the range of 10 milliseconds to 10 seconds.
// An error is returned if the delay is invalid or if the Config is nil.
//
// The default value is 100 milliseconds.
func WithRetryDelay(delay time.Duration) Option {
	return newOptFunc("WithRetryDelay", func(cfg *Config) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if delay < 10*time.Millisecond || delay > 10*time.Second {
			return errors.New("retry delay out of range [10ms, 10s]")
		}
		cfg.retryDelay = delay

		return nil
	})
}

// WithMaxRetryDelay sets the upper clamp of the exponential reconnect backoff.
//
// The value must be within the range of 100 milliseconds to 5 minutes.
// An error is returned if the value is invalid or if the Config is nil.
//
// The default value is 30 seconds.
func WithMaxRetryDelay(delay time.Duration) Option {
	return newOptFunc("WithMaxRetryDelay", func(cfg *Config) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if delay < 100*time.Millisecond || delay > 5*time.Minute {
			return errors.New("max retry delay out of range [100ms, 5m]")
		}
		cfg.maxRetryDelay = delay

		return nil
	})
}

// WithConnectTimeout sets the timeout applied to each adapter Connect call.
//
// The timeout must be within the range of 100 milliseconds to 30 seconds.
// An error is returned if the timeout is invalid or if the Config is nil.
//
// The default value is 3 seconds.
func WithConnectTimeout(timeout time.Duration) Option {
	return newOptFunc("WithConnectTimeout", func(cfg *Config) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if timeout < 100*time.Millisecond || timeout > 30*time.Second {
			return errors.New("connect timeout out of range [100ms, 30s]")
		}
		cfg.connectTimeout = timeout

		return nil
	})
}

// WithTransactionCapacity sets the maximum number of commands per transaction.
//
// The capacity must be within the range of 1 to 256 and must not exceed the
// per-priority queue size, otherwise a committed batch could never fit.
// An error is returned if the capacity is invalid or if the Config is nil.
//
// The default value is 32.
func WithTransactionCapacity(capacity int) Option {
	return newOptFunc("WithTransactionCapacity", func(cfg *Config) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if capacity < 1 || capacity > 256 {
			return errors.New("transaction capacity out of range [1, 256]")
		}
		cfg.txnCapacity = capacity

		return nil
	})
}

// WithHealthCheckInterval enables the periodic idle connection test and sets
// its interval. While the manager is connected and all queues are empty, the
// worker-adjacent health task calls the adapter's TestConnection; a failure
// marks the manager disconnected and starts reconnection backoff.
//
// The interval must be within the range of 100 milliseconds to 10 minutes.
// An error is returned if the interval is invalid or if the Config is nil.
//
// The default is disabled.
func WithHealthCheckInterval(interval time.Duration) Option {
	return newOptFunc("WithHealthCheckInterval", func(cfg *Config) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if interval < 100*time.Millisecond || interval > 10*time.Minute {
			return errors.New("health check interval out of range [100ms, 10m]")
		}
		cfg.healthCheckInterval = interval

		return nil
	})
}

// WithLogger sets the logger for the manager.
//
// The default logger is the package-level default logger instance.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(cfg *Config) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
