// Package sqlstore implements the bot's stores on top of sqlx. Queries are written
// with "?" placeholders and rebound for the connected driver (Postgres or SQLite).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/storybot/internal/story"
	"github.com/m3rciful/storybot/internal/users"
)

// Store persists sessions, users and the content catalog.
type Store struct {
	db *sqlx.DB
}

// New wraps an open, migrated database.
func New(db *sqlx.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlstore: nil db")
	}
	return &Store{db: db}, nil
}

type sessionRow struct {
	ChatID              int64  `db:"chat_id"`
	IsPlaying           bool   `db:"is_playing"`
	CurrentStage        string `db:"current_stage"`
	LastPromptMessageID int64  `db:"last_prompt_message_id"`
}

// Load returns the session of chatID, creating the default row on first access.
func (s *Store) Load(ctx context.Context, chatID int64) (story.Session, error) {
	if err := ctx.Err(); err != nil {
		return story.Session{}, err
	}
	var row sessionRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(
		`SELECT chat_id, is_playing, current_stage, last_prompt_message_id
		   FROM game_sessions WHERE chat_id = ?`), chatID)
	switch {
	case err == nil:
		return story.Session{
			ChatID:              row.ChatID,
			IsPlaying:           row.IsPlaying,
			CurrentStageID:      row.CurrentStage,
			LastPromptMessageID: int(row.LastPromptMessageID),
		}, nil
	case errors.Is(err, sql.ErrNoRows):
	default:
		return story.Session{}, fmt.Errorf("load session %d: %w", chatID, err)
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO game_sessions (chat_id) VALUES (?) ON CONFLICT (chat_id) DO NOTHING`), chatID); err != nil {
		return story.Session{}, fmt.Errorf("create session %d: %w", chatID, err)
	}
	return story.NewSession(chatID), nil
}

// Save writes the whole session in one statement.
func (s *Store) Save(ctx context.Context, sess story.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO game_sessions (chat_id, is_playing, current_stage, last_prompt_message_id, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (chat_id) DO UPDATE SET
		   is_playing = excluded.is_playing,
		   current_stage = excluded.current_stage,
		   last_prompt_message_id = excluded.last_prompt_message_id,
		   updated_at = excluded.updated_at`),
		sess.ChatID, sess.IsPlaying, sess.CurrentStageID, int64(sess.LastPromptMessageID))
	if err != nil {
		return fmt.Errorf("save session %d: %w", sess.ChatID, err)
	}
	return nil
}

type userRow struct {
	ChatID   int64  `db:"chat_id"`
	Username string `db:"username"`
	IsAdmin  bool   `db:"is_admin"`
}

// EnsureUser inserts the user unless present and reports whether a row was created.
func (s *Store) EnsureUser(ctx context.Context, chatID int64, username string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO users (chat_id, username) VALUES (?, ?) ON CONFLICT (chat_id) DO NOTHING`),
		chatID, strings.TrimSpace(username))
	if err != nil {
		return false, fmt.Errorf("ensure user %d: %w", chatID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensure user %d: %w", chatID, err)
	}
	return n > 0, nil
}

// GetUser returns the user of chatID, if known.
func (s *Store) GetUser(ctx context.Context, chatID int64) (users.User, bool, error) {
	if err := ctx.Err(); err != nil {
		return users.User{}, false, err
	}
	var row userRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(
		`SELECT chat_id, username, is_admin FROM users WHERE chat_id = ?`), chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return users.User{}, false, nil
	}
	if err != nil {
		return users.User{}, false, fmt.Errorf("get user %d: %w", chatID, err)
	}
	return users.User{ChatID: row.ChatID, Username: row.Username, IsAdmin: row.IsAdmin}, true, nil
}

// SetAdmin updates the admin flag of an existing user.
func (s *Store) SetAdmin(ctx context.Context, chatID int64, admin bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE users SET is_admin = ? WHERE chat_id = ?`), admin, chatID); err != nil {
		return fmt.Errorf("set admin %d: %w", chatID, err)
	}
	return nil
}
