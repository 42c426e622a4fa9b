package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/storybot/core/logger"
)

const component = "tg.sender"

var (
	// ErrQueueClosed is returned after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull means every worker is busy and the queue has no room.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// DefaultMaxRetries is how often a transient failure is retried when Options leave it unset.
const DefaultMaxRetries = 3

// Options controls the outbound dispatcher. Zero values pick defaults.
type Options struct {
	QueueSize int
	Workers   int
	// MaxRetries is the number of retries after the first attempt. Zero means
	// DefaultMaxRetries, a negative value disables retries.
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds one job including its retries and flood waits.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	switch {
	case o.MaxRetries == 0:
		o.MaxRetries = DefaultMaxRetries
	case o.MaxRetries < 0:
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
	done     chan error
}

// attrs returns the log attributes identifying j; the rest comes from the context.
func (j job) attrs(extra ...slog.Attr) []slog.Attr {
	attrs := append(make([]slog.Attr, 0, 2+len(extra)), slog.String("operation", j.action))
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return append(attrs, extra...)
}

// Dispatcher runs outbound Telegram calls on a bounded worker pool and retries
// transient failures.
type Dispatcher struct {
	opts Options
	jobs chan job

	// mu guards closed so that no send races with close(jobs).
	mu     sync.RWMutex
	closed bool

	once sync.Once
	wg   sync.WaitGroup
	errs atomic.Uint64
}

func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{
		opts: opts,
		jobs: make(chan job, opts.QueueSize),
	}
	d.wg.Add(opts.Workers)
	for range opts.Workers {
		go d.worker()
	}
	return d
}

// Do runs the call on the worker pool and waits for its final result, so callers keep
// their message order while still getting retries. When the queue cannot take the job
// it runs inline, once.
func (d *Dispatcher) Do(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	j := job{ctx: ctx, action: action, endpoint: endpoint, run: run, done: make(chan error, 1)}
	if err := d.submit(j); err != nil {
		logger.Warn(ctx, component, "queue.fallback", j.attrs(
			slog.String("status", "skip"),
			slog.Any("err", err),
		)...)
		return run()
	}
	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) submit(j job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.jobs <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

// ErrorCount returns the number of jobs that failed for good.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close stops accepting jobs and waits for the queued ones to finish.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.jobs)
		d.mu.Unlock()
		d.wg.Wait()
	})
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		err := d.execute(j)
		if err != nil {
			d.errs.Add(1)
		}
		j.done <- err
	}
}

func (d *Dispatcher) execute(j job) error {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := d.opts.MaxRetries + 1
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return d.fail(ctx, j, err, attempt-1, start)
		}
		err := j.run()
		if err == nil {
			logger.Debug(ctx, component, "send.success", j.attrs(
				slog.String("status", "ok"),
				slog.Int("attempts", attempt),
				slog.Duration("duration", time.Since(start)),
			)...)
			return nil
		}

		delay, retry := retryDelay(err, attempt, d.opts.RetryBackoff)
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < delay {
			retry = false
		}
		if !retry || attempt == attempts {
			return d.fail(ctx, j, err, attempt, start)
		}

		logger.Debug(ctx, component, "send.retry", j.attrs(
			slog.String("status", "retry"),
			slog.Int("attempts", attempt),
			slog.Duration("backoff", delay),
			slog.String("error_kind", classifyError(err)),
		)...)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return d.fail(ctx, j, ctx.Err(), attempt, start)
		case <-timer.C:
		}
	}
}

func (d *Dispatcher) fail(ctx context.Context, j job, err error, attempts int, start time.Time) error {
	kind := classifyError(err)
	status := logger.Status(err)
	if kind == "flood" {
		status = "rate_limited"
	}
	logger.Error(ctx, component, "send.fail", j.attrs(
		slog.String("status", status),
		slog.Int("attempts", attempts),
		slog.Duration("duration", time.Since(start)),
		slog.String("error_kind", kind),
		slog.Any("err", err),
	)...)
	return err
}
