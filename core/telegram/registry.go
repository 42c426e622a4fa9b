package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/storybot/core/logger"
	"github.com/m3rciful/storybot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// ErrInvalidRegistration is returned for malformed command or callback registrations.
var ErrInvalidRegistration = errors.New("telegram: invalid registration")

// Registry holds bot commands and callbacks. Command names are stored lower-case
// with a leading slash; aliases resolve to the same entry.
type Registry struct {
	mu               sync.RWMutex
	commands         map[string]commands.Command
	aliases          map[string]string
	callbacks        map[string]tele.HandlerFunc
	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
		},
	}
}

// RegisterCommand adds cmd under name, which must start with a slash.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	if !strings.HasPrefix(name, "/") || len(name) < 2 || cmd.Handler == nil || cmd.Description == "" {
		warnSkip("register.command.skip", name)
		return fmt.Errorf("%w: command %q", ErrInvalidRegistration, name)
	}
	key := strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.resolveLocked(key); taken {
		warnSkip("register.command.duplicate", name)
		return fmt.Errorf("%w: command %q already registered", ErrInvalidRegistration, name)
	}
	r.commands[key] = cmd
	for _, alias := range cmd.Aliases {
		a := "/" + strings.TrimPrefix(strings.ToLower(alias), "/")
		if _, taken := r.resolveLocked(a); taken {
			warnSkip("register.alias.duplicate", alias)
			continue
		}
		r.aliases[a] = key
	}
	return nil
}

// ListCommands returns commands sorted by name. visibleOnly drops hidden commands;
// admin-only ones are kept only when withAdmin is set.
func (r *Registry) ListCommands(visibleOnly, withAdmin bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]tele.Command, 0, len(r.commands))
	for _, key := range slices.Sorted(maps.Keys(r.commands)) {
		meta := r.commands[key]
		if (visibleOnly && meta.Hidden) || (meta.AdminOnly && !withAdmin) {
			continue
		}
		list = append(list, tele.Command{Text: key, Description: meta.Description})
	}
	return list
}

// LookupCommand resolves a command token as typed by a user: case-insensitive, with
// or without the slash, optionally suffixed with "@botname", or an alias.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	name, _, _ = strings.Cut(name, "@")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return "", commands.Command{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.resolveLocked("/" + name)
	if !ok {
		return "", commands.Command{}, false
	}
	return key, r.commands[key], true
}

func (r *Registry) resolveLocked(name string) (string, bool) {
	if _, ok := r.commands[name]; ok {
		return name, true
	}
	key, ok := r.aliases[name]
	return key, ok
}

// Commands returns a snapshot of the registered commands keyed by canonical name.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.commands)
}

// RegisterCallback maps a callback unique key to its handler.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		warnSkip("register.callback.skip", key)
		return fmt.Errorf("%w: callback %q", ErrInvalidRegistration, key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		warnSkip("register.callback.duplicate", key)
		return fmt.Errorf("%w: callback %q already registered", ErrInvalidRegistration, key)
	}
	r.callbacks[key] = handler
	return nil
}

func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the registered callback keys, sorted.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.callbacks))
}

// SetCallbackNotFound replaces the handler for callbacks with no registered key.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.callbackNotFound = h
	r.mu.Unlock()
}

func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// SetTextFallback sets the handler for text that is not a known command.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.mu.Lock()
	r.textFallback = h
	r.mu.Unlock()
}

func (r *Registry) TextFallback() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.textFallback
}

// InitBotCommands publishes the public commands to the Telegram command menu.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	cmds := reg.ListCommands(true, false)
	for i := range cmds {
		cmds[i].Text = strings.TrimPrefix(cmds[i].Text, "/")
	}
	ctx := context.Background()
	if err := bot.SetCommands(cmds); err != nil {
		logger.TWire.LogAttrs(ctx, slog.LevelError, "register.commands.set_failed",
			slog.String("status", logger.Status(err)),
			slog.Any("err", err),
		)
		return
	}
	logger.TWire.LogAttrs(ctx, slog.LevelInfo, "register.commands.set",
		slog.String("status", "ok"),
		slog.Int("count", len(cmds)),
	)
}

func warnSkip(event, name string) {
	logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, event, slog.String("name", name))
}
