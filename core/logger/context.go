package logger

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
)

type ctxKey int

const (
	updateKey ctxKey = iota
	loggerKey
)

// Update identifies the Telegram update a log line belongs to. The handler adds its
// fields to every record logged with a context carrying one.
type Update struct {
	ID      int
	ChatID  int64
	UserID  int64
	Handler string
}

// RID is the correlation id of the update, "update:chat:user".
func (u Update) RID() string {
	return BuildRID(u.ID, u.ChatID, u.UserID)
}

// WithUpdate attaches u to ctx.
func WithUpdate(ctx context.Context, u Update) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, updateKey, u)
}

// UpdateFrom returns the update attached to ctx.
func UpdateFrom(ctx context.Context) (Update, bool) {
	if ctx == nil {
		return Update{}, false
	}
	u, ok := ctx.Value(updateKey).(Update)
	return u, ok
}

// WithHandler names the handler serving the update in ctx. Without an update it is a no-op.
func WithHandler(ctx context.Context, handler string) context.Context {
	u, ok := UpdateFrom(ctx)
	if !ok || handler == "" {
		return ctx
	}
	u.Handler = handler
	return WithUpdate(ctx, u)
}

// WithLogger makes log the logger LogEvent falls back to for ctx.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext returns the logger stored in ctx, or L.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
			return l
		}
	}
	return L
}

// Sanitize drops control and format runes from s, keeping newlines and tabs.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			return -1
		}
		return r
	}, s)
}

// SanitizeLimit sanitizes s and cuts it to at most limit runes.
func SanitizeLimit(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = Sanitize(s)
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

// BuildRID formats a correlation id as updateID:chatID:userID.
func BuildRID(updateID int, chatID, userID int64) string {
	b := make([]byte, 0, 32)
	b = strconv.AppendInt(b, int64(updateID), 10)
	b = append(b, ':')
	b = strconv.AppendInt(b, chatID, 10)
	b = append(b, ':')
	b = strconv.AppendInt(b, userID, 10)
	return string(b)
}

// CompactRID rewrites a BuildRID id as dot-separated base36 numbers. Anything else is
// returned as is.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	parts := strings.Split(rid, ":")
	if len(parts) != 3 {
		return rid
	}
	b := make([]byte, 0, len(rid))
	for i, part := range parts {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return rid
		}
		if i > 0 {
			b = append(b, '.')
		}
		b = strconv.AppendInt(b, n, 36)
	}
	return string(b)
}
