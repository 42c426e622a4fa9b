package helpers

import (
	"context"

	"github.com/m3rciful/storybot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// updateCtxKey is the tele.Context slot holding the per-update context.Context.
const updateCtxKey = "storybot.update_ctx"

// StoreContext replaces the per-update context kept on c.
func StoreContext(c tele.Context, ctx context.Context) {
	if c != nil && ctx != nil {
		c.Set(updateCtxKey, ctx)
	}
}

// BuildContext returns the per-update context, creating and storing it on first use.
// It carries the rid, update/chat/user ids and the tg component logger.
func BuildContext(c tele.Context) context.Context {
	if c == nil {
		return logger.Background()
	}
	if ctx, ok := c.Get(updateCtxKey).(context.Context); ok {
		return ctx
	}

	updateID, chatID, userID := UpdateIDs(c)
	ctx := logger.WithUpdate(logger.Background(), logger.Update{ID: updateID, ChatID: chatID, UserID: userID})
	ctx = logger.WithLogger(ctx, logger.TG)
	StoreContext(c, ctx)
	return ctx
}

// WithHandler tags the per-update context with the handler name.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler != "" {
		ctx = logger.WithHandler(ctx, handler)
		StoreContext(c, ctx)
	}
	return ctx
}

// UpdateIDs extracts the update, chat and sender ids; missing parts are zero.
func UpdateIDs(c tele.Context) (updateID int, chatID, userID int64) {
	updateID = c.Update().ID
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		userID = user.ID
	}
	return updateID, chatID, userID
}
