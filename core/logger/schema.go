package logger

import (
	"slices"
	"strings"
)

// Level names written to the "level" field.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelFatal = "FATAL"
)

// statuses is the closed set of values for the "status" field. Outcomes are the
// terminal subset.
var (
	statuses = []string{"ok", "fail", "skip", "retry", "rate_limited", "cancelled"}
	outcomes = []string{"ok", "fail", "cancelled", "rate_limited"}
)

func normalizeLevel(level string) string {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "", LevelInfo:
		return LevelInfo
	case LevelDebug:
		return LevelDebug
	case LevelWarn, "WARNING":
		return LevelWarn
	case LevelError:
		return LevelError
	case LevelFatal:
		return LevelFatal
	default:
		// slog renders custom levels as "INFO+2" and the like.
		return strings.ToUpper(level)
	}
}

// normalizeStatus lower-cases s and reports whether it belongs to the status set.
// Unknown statuses are still returned so they stay visible.
func normalizeStatus(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	return s, s != "" && slices.Contains(statuses, s)
}

func normalizeOutcome(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	return s, s != "" && slices.Contains(outcomes, s)
}

// defaultKeyOrder fixes the leading columns of every line; remaining keys follow sorted.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano", "update_id", "user_id", "chat_id", "chat_type",
	"handler", "operation", "cb_key", "outcome", "duration_ms", "messages", "kb",
	// routing and content
	"intents", "intent", "mode", "term", "terms", "count",
	// story
	"stage", "target", "token", "playing", "message_id",
	"payload", "lang", "username",
	"listen", "public_url", "driver", "db", "host", "port",
	"err", "err_code", "cause", "attempts", "backoff_ms",
}
