package logger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"go.uber.org/goleak"
)

type failingSink struct{}

func (failingSink) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestAsyncWriterFansOut(t *testing.T) {
	defer goleak.VerifyNone(t)

	a, b := &bytes.Buffer{}, &bytes.Buffer{}
	w := newAsyncWriter([]io.Writer{a, nil, b}, 16)
	for i := range 100 {
		if err := w.Write(fmt.Appendf(nil, "line %d\n", i)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got, want := a.Len(), b.Len(); got != want || got == 0 {
		t.Fatalf("sinks diverged: %d vs %d bytes", got, want)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestAsyncWriterAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	w := newAsyncWriter([]io.Writer{&bytes.Buffer{}}, 0)
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := w.Write([]byte("late\n")); !errors.Is(err, errWriterClosed) {
		t.Fatalf("write after close = %v, want errWriterClosed", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush after close: %v", err)
	}
}

func TestAsyncWriterReportsSinkError(t *testing.T) {
	defer goleak.VerifyNone(t)

	w := newAsyncWriter([]io.Writer{failingSink{}}, 1)
	_ = w.Write([]byte("x\n"))
	if err := w.Close(); err == nil {
		t.Fatal("expected sink error on close")
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{errors.New("boom"), "fail"},
		{fmt.Errorf("load: %w", context.Canceled), "cancelled"},
		{context.DeadlineExceeded, "cancelled"},
	}
	for _, tt := range tests {
		if got := Status(tt.err); got != tt.want {
			t.Fatalf("Status(%v) = %q, want %q", tt.err, got, tt.want)
		}
		if _, ok := normalizeStatus(Status(tt.err)); !ok {
			t.Fatalf("Status(%v) is outside the schema", tt.err)
		}
	}
}
