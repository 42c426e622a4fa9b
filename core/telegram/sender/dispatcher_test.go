package sender

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
	tele "gopkg.in/telebot.v4"
)

func TestDispatcherDoRetriesTransientErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	defer d.Close()

	var calls atomic.Int32
	err := d.Do(context.Background(), "send.photo", "sendPhoto", func() error {
		if calls.Add(1) < 3 {
			return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, int32(3), calls.Load())
	require.Zero(t, d.ErrorCount())
}

func TestDispatcherRetriesWithDefaultOptions(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := NewDispatcher(Options{})
	defer d.Close()

	var calls atomic.Int32
	err := d.Do(context.Background(), "send.text", "sendMessage", func() error {
		if calls.Add(1) == 1 {
			return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, int32(2), calls.Load())
}

func TestOptionsRetryDefaults(t *testing.T) {
	require.Equal(t, DefaultMaxRetries, Options{}.withDefaults().MaxRetries)
	require.Equal(t, 5, Options{MaxRetries: 5}.withDefaults().MaxRetries)
	require.Zero(t, Options{MaxRetries: -1}.withDefaults().MaxRetries)
}

func TestDispatcherNegativeRetriesFailFast(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := NewDispatcher(Options{Workers: 1, MaxRetries: -1, RetryBackoff: time.Millisecond})
	defer d.Close()

	var calls atomic.Int32
	err := d.Do(context.Background(), "send.text", "sendMessage", func() error {
		calls.Add(1)
		return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	})
	require.Error(t, err)
	require.Equal(t, int32(1), calls.Load())
}

func TestDispatcherDoReturnsPermanentError(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := NewDispatcher(Options{Workers: 2, MaxRetries: 3, RetryBackoff: time.Millisecond})
	defer d.Close()

	boom := errors.New("telegram: bad request (400)")
	var calls atomic.Int32
	err := d.Do(context.Background(), "send.text", "sendMessage", func() error {
		calls.Add(1)
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, uint64(1), d.ErrorCount())
}

func TestDispatcherCloseWaitsForQueuedJobs(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := NewDispatcher(Options{Workers: 2, QueueSize: 8})
	var (
		done atomic.Int32
		g    errgroup.Group
	)
	for range 8 {
		g.Go(func() error {
			return d.Do(context.Background(), "send.text", "sendMessage", func() error {
				done.Add(1)
				return nil
			})
		})
	}
	require.NoError(t, g.Wait())
	d.Close()
	require.Equal(t, int32(8), done.Load())
}

func TestDispatcherDoHonoursCancelledContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := NewDispatcher(Options{Workers: 1, MaxRetries: 5, RetryBackoff: time.Millisecond})
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	err := d.Do(ctx, "send.text", "sendMessage", func() error {
		cancel()
		return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDispatcherDoRunsInlineAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := NewDispatcher(Options{Workers: 1})
	d.Close()

	ran := false
	require.NoError(t, d.Do(context.Background(), "send.text", "sendMessage", func() error {
		ran = true
		return nil
	}))
	require.True(t, ran)
}

func TestRetryDelay(t *testing.T) {
	delay, ok := retryDelay(tele.FloodError{RetryAfter: 3}, 1, time.Second)
	require.True(t, ok)
	require.Equal(t, 3*time.Second, delay)

	delay, ok = retryDelay(&net.OpError{Op: "dial", Err: errors.New("refused")}, 2, time.Second)
	require.True(t, ok)
	require.Equal(t, 2*time.Second, delay)

	_, ok = retryDelay(errors.New("telegram: bad request (400)"), 1, time.Second)
	require.False(t, ok)
}

func TestClassifyError(t *testing.T) {
	require.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	require.Equal(t, "dial", classifyError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	require.Equal(t, "http_4xx", classifyError(errors.New("telegram: chat not found (400)")))
	require.Equal(t, "http_5xx", classifyError(errors.New("telegram: internal error (502)")))
	require.Equal(t, "unknown", classifyError(errors.New("boom")))
	require.Equal(t, "unknown", classifyError(errors.New("done (soon)")))
}
