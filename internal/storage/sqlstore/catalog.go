package sqlstore

import (
	"context"
	"fmt"
)

// ListTopics returns the distinct meme topics in alphabetical order.
func (s *Store) ListTopics(ctx context.Context) ([]string, error) {
	return s.listStrings(ctx, "list topics", `SELECT DISTINCT topic FROM memes ORDER BY topic`)
}

// LinksForTopic returns the links stored for topic in insertion order.
func (s *Store) LinksForTopic(ctx context.Context, topic string) ([]string, error) {
	return s.listStrings(ctx, "links for topic", `SELECT link FROM memes WHERE topic = ? ORDER BY id`, topic)
}

// ListSingers returns the distinct singers in alphabetical order.
func (s *Store) ListSingers(ctx context.Context) ([]string, error) {
	return s.listStrings(ctx, "list singers", `SELECT DISTINCT singer FROM music ORDER BY singer`)
}

// LinksForSinger returns the links stored for singer in insertion order.
func (s *Store) LinksForSinger(ctx context.Context, singer string) ([]string, error) {
	return s.listStrings(ctx, "links for singer", `SELECT link FROM music WHERE singer = ? ORDER BY id`, singer)
}

// MemePool returns every meme link.
func (s *Store) MemePool(ctx context.Context) ([]string, error) {
	return s.listStrings(ctx, "meme pool", `SELECT link FROM memes ORDER BY id`)
}

// MusicPool returns every music link.
func (s *Store) MusicPool(ctx context.Context) ([]string, error) {
	return s.listStrings(ctx, "music pool", `SELECT link FROM music ORDER BY id`)
}

// AddMeme stores a meme link; an existing pair is left as is.
func (s *Store) AddMeme(ctx context.Context, topic, link string) error {
	return s.exec(ctx, "add meme", `INSERT INTO memes (topic, link) VALUES (?, ?) ON CONFLICT (topic, link) DO NOTHING`, topic, link)
}

// AddMusic stores a music link; an existing pair is left as is.
func (s *Store) AddMusic(ctx context.Context, singer, link string) error {
	return s.exec(ctx, "add music", `INSERT INTO music (singer, link) VALUES (?, ?) ON CONFLICT (singer, link) DO NOTHING`, singer, link)
}

func (s *Store) listStrings(ctx context.Context, op, query string, args ...any) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []string
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *Store) exec(ctx context.Context, op, query string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
