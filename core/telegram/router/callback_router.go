package router

import (
	"log/slog"

	tg "github.com/m3rciful/storybot/core/telegram"
	"github.com/m3rciful/storybot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackRoute dispatches every callback query by its unique key through reg.
// Unknown keys go to reg.CallbackNotFound.
func CallbackRoute(reg *tg.Registry) tg.Route {
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler: func(c tele.Context) error {
			cb := c.Callback()
			if cb == nil {
				return nil
			}
			key, _ := callbacks.ParseCallbackData(cb)
			name := "callback." + handlerName(key)
			keyAttr := slog.String("cb_key", key)

			if h, ok := reg.GetCallback(key); ok {
				// Stop the client-side spinner; replies are separate messages.
				_ = c.Respond()
				return summarized(name, h, keyAttr)(c)
			}
			if notFound := reg.CallbackNotFound(); notFound != nil {
				// notFound answers the query itself, usually with an alert text.
				err := notFound(c)
				skipped(c, name, keyAttr)
				return err
			}
			_ = c.Respond()
			skipped(c, name, keyAttr)
			return nil
		},
	}
}
