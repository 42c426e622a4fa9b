package telegram

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/storybot/core/logger"
	"github.com/m3rciful/storybot/core/telegram/netutil"
)

const (
	defaultClientTimeout = 30 * time.Second
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 500 * time.Millisecond

	// getUpdates holds the request open for the long-poll timeout, so the client
	// deadline must outlast it.
	longPollSlack = 10 * time.Second
)

// HTTPClientOptions tunes the Bot API client. Zero values pick defaults.
type HTTPClientOptions struct {
	LongPollTimeout time.Duration
	Retries         int
	Backoff         time.Duration
	// Base overrides the underlying transport; tests use it.
	Base http.RoundTripper
}

// BuildHTTPClient returns a client for Bot API calls. Requests that failed before
// reaching Telegram are repeated with a linear backoff.
func BuildHTTPClient(opts HTTPClientOptions) *http.Client {
	base := opts.Base
	if base == nil {
		base = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: time.Second,
		}
	}
	retries := opts.Retries
	if retries == 0 {
		retries = defaultRetryAttempts
	}
	backoff := opts.Backoff
	if backoff == 0 {
		backoff = defaultRetryBackoff
	}

	timeout := defaultClientTimeout
	if lp := opts.LongPollTimeout + longPollSlack; lp > timeout {
		timeout = lp
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: &retryTransport{base: base, retries: max(retries, 0), backoff: backoff},
	}
}

type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	for attempt := 1; err != nil && attempt <= t.retries; attempt++ {
		// A resent sendMessage would show the same prompt twice.
		if !netutil.NotDelivered(err) {
			return nil, err
		}
		next, rerr := rewind(req)
		if rerr != nil {
			return nil, err
		}

		delay := t.backoff * time.Duration(attempt)
		logger.TG.Debug("bot api retry",
			slog.String("event", "tg.http.retry"),
			slog.String("status", "retry"),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.Any("err", err),
		)
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-req.Context().Done():
				timer.Stop()
				return nil, req.Context().Err()
			case <-timer.C:
			}
		}
		resp, err = t.base.RoundTrip(next)
	}
	return resp, err
}

// rewind clones req with a fresh body for another attempt.
func rewind(req *http.Request) (*http.Request, error) {
	next := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return next, nil
	}
	if req.GetBody == nil {
		return nil, http.ErrBodyReadAfterClose
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	next.Body = body
	return next, nil
}
