// Package users keeps track of chats that started the bot and of their admin role.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/storybot/core/logger"
	"github.com/m3rciful/storybot/internal/apperr"
)

// User is a chat that has talked to the bot. In private chats the chat id equals the user id.
type User struct {
	ChatID   int64
	Username string
	IsAdmin  bool
}

// Store persists users.
type Store interface {
	// EnsureUser inserts the user unless present and reports whether it was created.
	EnsureUser(ctx context.Context, chatID int64, username string) (bool, error)
	GetUser(ctx context.Context, chatID int64) (User, bool, error)
	SetAdmin(ctx context.Context, chatID int64, admin bool) error
}

// Texts holds the replies of the admin commands. Placeholders take the id.
type Texts struct {
	Granted      string
	NotActivated string
	Revoked      string
	NotAdmin     string
	BadID        string
	Failure      string
}

// DefaultTexts returns the Russian replies used by the bot.
func DefaultTexts() Texts {
	return Texts{
		Granted:      `Пользователь "%s" назначен админом.`,
		NotActivated: `Пользователь "%s" не активизировал бота. Его невозможно назначить админом.`,
		Revoked:      `С пользователя "%s" сняты права админа.`,
		NotAdmin:     `Пользователь %s не являлся админом.`,
		BadID:        `Некорректный идентификатор "%s"`,
		Failure:      "Что-то пошло не так, попробуйте позже.",
	}
}

// Service registers users and manages admin rights.
type Service struct {
	store   Store
	ownerID int64
	timeout time.Duration
	texts   Texts
}

// NewService builds a service over store. ownerID is always an admin; 0 disables it.
func NewService(store Store, ownerID int64, timeout time.Duration) (*Service, error) {
	if store == nil {
		return nil, errors.New("users: nil store")
	}
	return &Service{store: store, ownerID: ownerID, timeout: timeout, texts: DefaultTexts()}, nil
}

// Register records a chat on its first contact.
func (s *Service) Register(ctx context.Context, chatID int64, username string) error {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	created, err := s.store.EnsureUser(ctx, chatID, username)
	if err != nil {
		return apperr.New(apperr.StoreUnavailable, "users.register", err)
	}
	if created {
		logger.LogEvent(ctx, logger.SVCUsers, slog.LevelInfo, "users.register",
			slog.String("status", "ok"),
		)
	}
	return nil
}

// IsAdmin reports whether userID may run admin-only commands.
func (s *Service) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	if s.ownerID != 0 && userID == s.ownerID {
		return true, nil
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	u, ok, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return false, apperr.New(apperr.StoreUnavailable, "users.is_admin", err)
	}
	return ok && u.IsAdmin, nil
}

// Grant makes every listed chat an admin and returns one reply per distinct id.
// A store failure stops processing; the replies gathered so far end with the failure text.
func (s *Service) Grant(ctx context.Context, ids []string) ([]string, error) {
	return s.apply(ctx, "users.grant", ids, func(ctx context.Context, id int64, raw string) (string, error) {
		u, ok, err := s.store.GetUser(ctx, id)
		if err != nil {
			return "", err
		}
		if !ok {
			return fmt.Sprintf(s.texts.NotActivated, raw), nil
		}
		if !u.IsAdmin {
			if err := s.store.SetAdmin(ctx, id, true); err != nil {
				return "", err
			}
		}
		return fmt.Sprintf(s.texts.Granted, raw), nil
	})
}

// Revoke removes admin rights from every listed chat and returns one reply per distinct id.
func (s *Service) Revoke(ctx context.Context, ids []string) ([]string, error) {
	return s.apply(ctx, "users.revoke", ids, func(ctx context.Context, id int64, raw string) (string, error) {
		u, ok, err := s.store.GetUser(ctx, id)
		if err != nil {
			return "", err
		}
		if !ok || !u.IsAdmin {
			return fmt.Sprintf(s.texts.NotAdmin, raw), nil
		}
		if err := s.store.SetAdmin(ctx, id, false); err != nil {
			return "", err
		}
		return fmt.Sprintf(s.texts.Revoked, raw), nil
	})
}

func (s *Service) apply(ctx context.Context, op string, ids []string, fn func(context.Context, int64, string) (string, error)) ([]string, error) {
	seen := make(map[int64]struct{}, len(ids))
	var replies []string
	changed := 0
	for _, raw := range ids {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			replies = append(replies, fmt.Sprintf(s.texts.BadID, raw))
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		sctx, cancel := s.storeContext(ctx)
		reply, err := fn(sctx, id, strconv.FormatInt(id, 10))
		cancel()
		if err != nil {
			logger.LogEvent(ctx, logger.SVCUsers, slog.LevelWarn, op,
				slog.String("status", logger.Status(err)),
				slog.String("err", err.Error()),
			)
			return append(replies, s.texts.Failure), apperr.New(apperr.StoreUnavailable, op, err)
		}
		replies = append(replies, reply)
		changed++
	}
	logger.LogEvent(ctx, logger.SVCUsers, slog.LevelInfo, op,
		slog.String("status", "ok"),
		slog.Int("count", changed),
	)
	return replies, nil
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
