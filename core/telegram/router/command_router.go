package router

import (
	"log/slog"

	"github.com/m3rciful/storybot/core/logger"
	tg "github.com/m3rciful/storybot/core/telegram"
	"github.com/m3rciful/storybot/core/telegram/middleware"
)

// CommandRoutes binds every registered command to its endpoint. Admin-only commands
// are guarded by admin; all handlers get summary logging.
func CommandRoutes(reg *tg.Registry, admin middleware.AdminChecker) []tg.Route {
	guard := middleware.AdminOnly(admin)
	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for endpoint, def := range cmds {
		h := def.Handler
		if def.AdminOnly {
			h = guard(h)
		}
		routes = append(routes, tg.Route{
			Endpoint: endpoint,
			Handler:  summarized(handlerName(endpoint), h),
		})
	}

	logger.TWire.Info("routes wired",
		slog.String("event", "tg.wire"),
		slog.String("status", "ok"),
		slog.Int("commands", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}
