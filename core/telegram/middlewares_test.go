package telegram

import (
	"testing"

	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/storybot/core/config"
	"github.com/m3rciful/storybot/core/telegram/state"
)

func middlewareNames(mws []Middleware) []string {
	out := make([]string, 0, len(mws))
	for _, mw := range mws {
		out = append(out, mw.Name)
	}
	return out
}

func TestDefaultMiddlewaresOrder(t *testing.T) {
	cfg := &coreconfig.Config{RateLimit: coreconfig.RateLimitConfig{IntervalMS: 500}}
	mws := DefaultMiddlewares(cfg, state.NewChatLocker())
	require.Equal(t, []string{"recover", "logger", "rate_limit", "chat_lock", "metrics"}, middlewareNames(mws))
}

func TestDefaultMiddlewaresWithoutLimitOrLocker(t *testing.T) {
	mws := DefaultMiddlewares(&coreconfig.Config{}, nil)
	require.Equal(t, []string{"recover", "logger", "metrics"}, middlewareNames(mws))
}
