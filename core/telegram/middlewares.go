package telegram

import (
	"time"

	coreconfig "github.com/m3rciful/storybot/core/config"
	"github.com/m3rciful/storybot/core/telegram/middleware"
	"github.com/m3rciful/storybot/core/telegram/state"
)

// DefaultMiddlewares is the chain every bot update passes through, outermost first.
// The rate limit joins when cfg sets an interval, the chat lock when locker is non-nil.
func DefaultMiddlewares(cfg *coreconfig.Config, locker *state.ChatLocker) []Middleware {
	chain := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
	}
	if cfg != nil && cfg.RateLimit.IntervalMS > 0 {
		interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
		chain = append(chain, Middleware{
			Name: "rate_limit",
			Use:  middleware.RateLimitMiddleware(interval, cfg.RateLimit.ExcludeUpdates...),
		})
	}
	if locker != nil {
		chain = append(chain, Middleware{Name: "chat_lock", Use: state.Serialize(locker)})
	}
	return append(chain, Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware})
}
