package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestIntervalLimiter(t *testing.T) {
	l := newIntervalLimiter(time.Second)
	now := time.Unix(1_700_000_000, 0)

	require.True(t, l.allow(1, now))
	require.False(t, l.allow(1, now.Add(500*time.Millisecond)))
	require.True(t, l.allow(2, now.Add(500*time.Millisecond)))
	require.True(t, l.allow(1, now.Add(time.Second)))
}

func TestIntervalLimiterSweepsStaleUsers(t *testing.T) {
	l := newIntervalLimiter(time.Second)
	now := time.Unix(1_700_000_000, 0)
	for id := int64(1); id <= 10; id++ {
		require.True(t, l.allow(id, now))
	}
	require.True(t, l.allow(99, now.Add(2*time.Minute)))
	require.Len(t, l.lastSeen, 1)
}

func TestUpdateKind(t *testing.T) {
	require.Equal(t, "callback", updateKind(tele.Update{Callback: &tele.Callback{}}))
	require.Equal(t, "message", updateKind(tele.Update{Message: &tele.Message{}}))
	require.Equal(t, "other", updateKind(tele.Update{}))
}

func TestRateLimitMiddlewareDropsBurstsButNotExcludedKinds(t *testing.T) {
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	user := &tele.User{ID: 42}

	var handled []string
	h := RateLimitMiddleware(time.Hour, "callback")(func(c tele.Context) error {
		handled = append(handled, updateKind(c.Update()))
		return nil
	})

	msg := tele.Update{Message: &tele.Message{Sender: user, Chat: &tele.Chat{ID: 42}}}
	cb := tele.Update{Callback: &tele.Callback{Sender: user}}
	for _, upd := range []tele.Update{msg, msg, cb, cb} {
		require.NoError(t, h(bot.NewContext(upd)))
	}
	require.Equal(t, []string{"message", "callback", "callback"}, handled)
}
