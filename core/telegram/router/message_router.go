package router

import (
	"strings"

	tg "github.com/m3rciful/storybot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// TextRoute handles every text telebot did not match to a command endpoint.
// Slash texts are looked up in reg (aliases, other case, "@bot" suffix); admin-only
// commands are never reached this way. Unknown commands are skipped. Any other text
// goes to reg.TextFallback.
func TextRoute(reg *tg.Registry) tg.Route {
	return tg.Route{
		Endpoint: tele.OnText,
		Handler: func(c tele.Context) error {
			text := strings.TrimSpace(c.Text())
			if strings.HasPrefix(text, "/") {
				head, _, _ := strings.Cut(text, " ")
				key, cmd, ok := reg.LookupCommand(head)
				if !ok || cmd.AdminOnly {
					skipped(c, "unknown_command")
					return nil
				}
				return summarized(handlerName(key), cmd.Handler)(c)
			}

			fallback := reg.TextFallback()
			if fallback == nil {
				skipped(c, "unknown_text")
				return nil
			}
			return summarized("text", fallback)(c)
		},
	}
}
