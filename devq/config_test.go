package devq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/benchkit/go-devq/logger"
)

func TestNewConfig(t *testing.T) {
	require := require.New(t)

	t.Run("Defaults", func(t *testing.T) {
		cfg, err := NewConfig()
		require.NoError(err)
		require.Equal(64, cfg.QueueSize())
		require.Equal(5*time.Millisecond, cfg.PollInterval())
		require.Equal(100*time.Millisecond, cfg.RetryDelay())
		require.Equal(30*time.Second, cfg.MaxRetryDelay())
		require.Equal(3*time.Second, cfg.ConnectTimeout())
		require.Equal(32, cfg.TransactionCapacity())
		require.Zero(cfg.HealthCheckInterval())
	})

	t.Run("Valid Configuration", func(t *testing.T) {
		cfg, err := NewConfig(
			WithQueueSize(128),
			WithPollInterval(10*time.Millisecond),
			WithRetryDelay(50*time.Millisecond),
			WithMaxRetryDelay(10*time.Second),
			WithConnectTimeout(time.Second),
			WithTransactionCapacity(16),
			WithHealthCheckInterval(30*time.Second),
			WithLogger(logger.GetLogger()),
		)
		require.NoError(err)
		require.Equal(128, cfg.QueueSize())
		require.Equal(10*time.Millisecond, cfg.PollInterval())
		require.Equal(50*time.Millisecond, cfg.RetryDelay())
		require.Equal(10*time.Second, cfg.MaxRetryDelay())
		require.Equal(time.Second, cfg.ConnectTimeout())
		require.Equal(16, cfg.TransactionCapacity())
		require.Equal(30*time.Second, cfg.HealthCheckInterval())
	})

	t.Run("Invalid Queue Size", func(t *testing.T) {
		_, err := NewConfig(WithQueueSize(0))
		require.EqualError(err, "queue size out of range [1, 4096]")

		_, err = NewConfig(WithQueueSize(4097))
		require.EqualError(err, "queue size out of range [1, 4096]")

		require.ErrorIs(WithQueueSize(10).apply(nil), ErrConfigNil)
	})

	t.Run("Invalid Poll Interval", func(t *testing.T) {
		_, err := NewConfig(WithPollInterval(0))
		require.EqualError(err, "poll interval out of range [1ms, 1s]")

		_, err = NewConfig(WithPollInterval(2 * time.Second))
		require.EqualError(err, "poll interval out of range [1ms, 1s]")

		require.ErrorIs(WithPollInterval(time.Millisecond).apply(nil), ErrConfigNil)
	})

	t.Run("Invalid Retry Delay", func(t *testing.T) {
		_, err := NewConfig(WithRetryDelay(time.Millisecond))
		require.EqualError(err, "retry delay out of range [10ms, 10s]")

		_, err = NewConfig(WithRetryDelay(time.Minute))
		require.EqualError(err, "retry delay out of range [10ms, 10s]")

		require.ErrorIs(WithRetryDelay(time.Second).apply(nil), ErrConfigNil)
	})

	t.Run("Invalid Max Retry Delay", func(t *testing.T) {
		_, err := NewConfig(WithMaxRetryDelay(10 * time.Millisecond))
		require.EqualError(err, "max retry delay out of range [100ms, 5m]")

		_, err = NewConfig(WithMaxRetryDelay(10 * time.Minute))
		require.EqualError(err, "max retry delay out of range [100ms, 5m]")

		require.ErrorIs(WithMaxRetryDelay(time.Second).apply(nil), ErrConfigNil)
	})

	t.Run("Invalid Connect Timeout", func(t *testing.T) {
		_, err := NewConfig(WithConnectTimeout(10 * time.Millisecond))
		require.EqualError(err, "connect timeout out of range [100ms, 30s]")

		_, err = NewConfig(WithConnectTimeout(time.Minute))
		require.EqualError(err, "connect timeout out of range [100ms, 30s]")

		require.ErrorIs(WithConnectTimeout(time.Second).apply(nil), ErrConfigNil)
	})

	t.Run("Invalid Transaction Capacity", func(t *testing.T) {
		_, err := NewConfig(WithTransactionCapacity(0))
		require.EqualError(err, "transaction capacity out of range [1, 256]")

		_, err = NewConfig(WithTransactionCapacity(257))
		require.EqualError(err, "transaction capacity out of range [1, 256]")

		require.ErrorIs(WithTransactionCapacity(8).apply(nil), ErrConfigNil)
	})

	t.Run("Invalid Health Check Interval", func(t *testing.T) {
		_, err := NewConfig(WithHealthCheckInterval(10 * time.Millisecond))
		require.EqualError(err, "health check interval out of range [100ms, 10m]")

		_, err = NewConfig(WithHealthCheckInterval(time.Hour))
		require.EqualError(err, "health check interval out of range [100ms, 10m]")

		require.ErrorIs(WithHealthCheckInterval(time.Second).apply(nil), ErrConfigNil)
	})

	t.Run("Nil Logger", func(t *testing.T) {
		_, err := NewConfig(WithLogger(nil))
		require.EqualError(err, "logger is nil")
	})
}
