package telegram

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type scriptedTransport struct {
	errs   []error
	calls  int
	bodies []string
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls++
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		s.bodies = append(s.bodies, string(data))
	}
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: req}, nil
}

func dialErr() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
}

func TestBuildHTTPClientTimeoutCoversLongPoll(t *testing.T) {
	require.Equal(t, defaultClientTimeout, BuildHTTPClient(HTTPClientOptions{}).Timeout)

	c := BuildHTTPClient(HTTPClientOptions{LongPollTimeout: 60 * time.Second})
	require.Equal(t, 70*time.Second, c.Timeout)
}

func TestRetryTransportRepeatsUndeliveredRequests(t *testing.T) {
	base := &scriptedTransport{errs: []error{dialErr(), dialErr()}}
	client := BuildHTTPClient(HTTPClientOptions{Base: base, Backoff: time.Nanosecond})

	resp, err := client.Post("https://api.telegram.org/bot1:x/sendMessage", "application/json", strings.NewReader(`{"text":"hi"}`))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, 3, base.calls)
	require.Equal(t, []string{`{"text":"hi"}`, `{"text":"hi"}`, `{"text":"hi"}`}, base.bodies)
}

func TestRetryTransportStopsOnDeliveredFailure(t *testing.T) {
	read := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset")}
	base := &scriptedTransport{errs: []error{read}}
	client := BuildHTTPClient(HTTPClientOptions{Base: base, Backoff: time.Nanosecond})

	_, err := client.Get("https://api.telegram.org/bot1:x/getMe")
	require.Error(t, err)
	require.Equal(t, 1, base.calls)
}

func TestRetryTransportGivesUp(t *testing.T) {
	base := &scriptedTransport{errs: []error{dialErr(), dialErr()}}
	client := BuildHTTPClient(HTTPClientOptions{Base: base, Retries: 1, Backoff: time.Nanosecond})

	_, err := client.Get("https://api.telegram.org/bot1:x/getMe")
	require.Error(t, err)
	require.Equal(t, 2, base.calls)
}
