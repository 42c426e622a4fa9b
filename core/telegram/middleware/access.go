package middleware

import (
	"context"
	"log/slog"

	"github.com/m3rciful/storybot/core/logger"
	tghelpers "github.com/m3rciful/storybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminChecker decides whether a Telegram user may run admin-only commands.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}

// AdminOnly passes the update on only when checker confirms the sender is an admin.
// Everyone else, and every update where the check itself fails, is dropped without a
// reply. A nil checker lets everything through.
func AdminOnly(checker AdminChecker) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if checker == nil {
			return next
		}
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				return nil
			}
			ctx := tghelpers.BuildContext(c)
			ok, err := checker.IsAdmin(ctx, user.ID)
			switch {
			case err != nil:
				logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "access.check",
					slog.String("status", logger.Status(err)),
					slog.Any("err", err),
				)
				return nil
			case !ok:
				logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "access.denied", slog.String("status", "skip"))
				return nil
			}
			return next(c)
		}
	}
}
