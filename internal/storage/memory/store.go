// Package memory keeps sessions, users and the content catalog in process memory.
// Nothing survives a restart; it backs the "memory" database driver and local runs.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/storybot/internal/story"
	"github.com/m3rciful/storybot/internal/users"
)

// Store is a mutex-guarded in-memory implementation of the bot's stores.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]story.Session
	users    map[int64]users.User
	memes    *linkTable
	music    *linkTable
}

// New returns an empty store.
func New() *Store {
	return &Store{
		sessions: make(map[int64]story.Session),
		users:    make(map[int64]users.User),
		memes:    newLinkTable(),
		music:    newLinkTable(),
	}
}

// Load returns the session of chatID, creating the default one on first access.
func (s *Store) Load(ctx context.Context, chatID int64) (story.Session, error) {
	if err := ctx.Err(); err != nil {
		return story.Session{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[chatID]
	if !ok {
		sess = story.NewSession(chatID)
		s.sessions[chatID] = sess
	}
	return sess, nil
}

// Save overwrites the session.
func (s *Store) Save(ctx context.Context, sess story.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ChatID] = sess
	return nil
}

// EnsureUser inserts the user unless present.
func (s *Store) EnsureUser(ctx context.Context, chatID int64, username string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[chatID]; ok {
		return false, nil
	}
	s.users[chatID] = users.User{ChatID: chatID, Username: strings.TrimSpace(username)}
	return true, nil
}

// GetUser returns the user of chatID, if known.
func (s *Store) GetUser(ctx context.Context, chatID int64) (users.User, bool, error) {
	if err := ctx.Err(); err != nil {
		return users.User{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[chatID]
	return u, ok, nil
}

// SetAdmin updates the admin flag of an existing user; unknown ids are ignored.
func (s *Store) SetAdmin(ctx context.Context, chatID int64, admin bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[chatID]; ok {
		u.IsAdmin = admin
		s.users[chatID] = u
	}
	return nil
}

func (s *Store) ListTopics(ctx context.Context) ([]string, error) {
	return s.read(ctx, s.memes.terms)
}

func (s *Store) LinksForTopic(ctx context.Context, topic string) ([]string, error) {
	return s.read(ctx, func() []string { return s.memes.links(topic) })
}

func (s *Store) ListSingers(ctx context.Context) ([]string, error) {
	return s.read(ctx, s.music.terms)
}

func (s *Store) LinksForSinger(ctx context.Context, singer string) ([]string, error) {
	return s.read(ctx, func() []string { return s.music.links(singer) })
}

func (s *Store) MemePool(ctx context.Context) ([]string, error) {
	return s.read(ctx, s.memes.all)
}

func (s *Store) MusicPool(ctx context.Context) ([]string, error) {
	return s.read(ctx, s.music.all)
}

// AddMeme stores a meme link; an existing pair is left as is.
func (s *Store) AddMeme(ctx context.Context, topic, link string) error {
	return s.write(ctx, func() { s.memes.add(topic, link) })
}

// AddMusic stores a music link; an existing pair is left as is.
func (s *Store) AddMusic(ctx context.Context, singer, link string) error {
	return s.write(ctx, func() { s.music.add(singer, link) })
}

func (s *Store) read(ctx context.Context, fn func() []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(), nil
}

func (s *Store) write(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	return nil
}

// linkTable keeps links per term in insertion order.
type linkTable struct {
	byTerm map[string][]string
	order  []string
}

func newLinkTable() *linkTable {
	return &linkTable{byTerm: make(map[string][]string)}
}

func (t *linkTable) add(term, link string) {
	links := t.byTerm[term]
	if slices.Contains(links, link) {
		return
	}
	t.byTerm[term] = append(links, link)
	t.order = append(t.order, link)
}

func (t *linkTable) terms() []string {
	out := make([]string, 0, len(t.byTerm))
	for term := range t.byTerm {
		out = append(out, term)
	}
	slices.Sort(out)
	return out
}

func (t *linkTable) links(term string) []string {
	return slices.Clone(t.byTerm[term])
}

func (t *linkTable) all() []string {
	return slices.Clone(t.order)
}
