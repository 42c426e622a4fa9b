package helpers

import (
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/storybot/core/logger"
)

func newContext(t *testing.T) tele.Context {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return bot.NewContext(tele.Update{
		ID: 7,
		Message: &tele.Message{
			Chat:   &tele.Chat{ID: 100},
			Sender: &tele.User{ID: 200},
			Text:   "мем",
		},
	})
}

func TestBuildContextIsStoredOnce(t *testing.T) {
	c := newContext(t)

	ctx := BuildContext(c)
	u, ok := logger.UpdateFrom(ctx)
	require.True(t, ok)
	require.Equal(t, logger.Update{ID: 7, ChatID: 100, UserID: 200}, u)
	require.Equal(t, "7:100:200", u.RID())
	require.Equal(t, ctx, BuildContext(c))
}

func TestWithHandlerUpdatesStoredContext(t *testing.T) {
	c := newContext(t)

	ctx := WithHandler(c, "/meme")
	u, _ := logger.UpdateFrom(ctx)
	require.Equal(t, "/meme", u.Handler)
	u, _ = logger.UpdateFrom(BuildContext(c))
	require.Equal(t, "/meme", u.Handler)
}

func TestUpdateIDsWithoutChat(t *testing.T) {
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)

	updateID, chatID, userID := UpdateIDs(bot.NewContext(tele.Update{ID: 3}))
	require.Equal(t, 3, updateID)
	require.Zero(t, chatID)
	require.Zero(t, userID)
}
