package middleware

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/m3rciful/storybot/core/logger"
	tghelpers "github.com/m3rciful/storybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// intervalLimiter remembers when each user was last let through.
type intervalLimiter struct {
	interval time.Duration

	mu       sync.Mutex
	lastSeen map[int64]time.Time
	sweptAt  time.Time
}

func newIntervalLimiter(interval time.Duration) *intervalLimiter {
	return &intervalLimiter{interval: interval, lastSeen: make(map[int64]time.Time)}
}

func (l *intervalLimiter) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.lastSeen[userID]; ok && now.Sub(last) < l.interval {
		return false
	}
	l.lastSeen[userID] = now
	if now.Sub(l.sweptAt) > time.Minute {
		for id, ts := range l.lastSeen {
			if now.Sub(ts) >= l.interval {
				delete(l.lastSeen, id)
			}
		}
		l.lastSeen[userID] = now
		l.sweptAt = now
	}
	return true
}

func updateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	default:
		return "other"
	}
}

// RateLimitMiddleware lets at most one update per interval through for each user and
// silently drops the rest. Update kinds listed in exclude ("message", "callback") are
// never limited.
func RateLimitMiddleware(interval time.Duration, exclude ...string) tele.MiddlewareFunc {
	limiter := newIntervalLimiter(interval)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || interval <= 0 {
				return next(c)
			}
			kind := updateKind(c.Update())
			if slices.Contains(exclude, kind) || limiter.allow(user.ID, time.Now()) {
				return next(c)
			}
			logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelWarn, "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("operation", kind),
			)
			return nil
		}
	}
}
