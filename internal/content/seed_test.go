package content

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type pair struct{ kind, term, link string }

type recordingWriter struct {
	got  []pair
	fail error
}

func (w *recordingWriter) AddMeme(_ context.Context, topic, link string) error {
	w.got = append(w.got, pair{"meme", topic, link})
	return w.fail
}

func (w *recordingWriter) AddMusic(_ context.Context, singer, link string) error {
	w.got = append(w.got, pair{"music", singer, link})
	return w.fail
}

const seedYAML = `
memes:
  Собака:
    - https://img.example/dog.jpg
  кот:
    - https://img.example/cat1.jpg
    - "  "
music:
  queen:
    - https://music.example/queen
  "  ": [https://music.example/nobody]
`

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "content.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))
	return path
}

func TestSeedApplyWritesFoldedEntriesInOrder(t *testing.T) {
	s, err := LoadSeed(writeSeed(t))
	require.NoError(t, err)

	w := &recordingWriter{}
	n, err := s.Apply(context.Background(), w)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []pair{
		{"meme", "кот", "https://img.example/cat1.jpg"},
		{"meme", "собака", "https://img.example/dog.jpg"},
		{"music", "queen", "https://music.example/queen"},
	}, w.got)
}

func TestSeedApplyStopsOnWriteError(t *testing.T) {
	s := Seed{Memes: map[string][]string{"кот": {"a", "b"}}}
	w := &recordingWriter{fail: errors.New("readonly")}

	n, err := s.Apply(context.Background(), w)
	require.ErrorIs(t, err, w.fail)
	require.Zero(t, n)
	require.Len(t, w.got, 1)
}

func TestSeeder(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, Seeder("").Seed(ctx, nil))
	require.Error(t, Seeder(writeSeed(t)).Seed(ctx, struct{}{}))
	require.Error(t, Seeder(filepath.Join(t.TempDir(), "missing.yaml")).Seed(ctx, &recordingWriter{}))

	w := &recordingWriter{}
	require.NoError(t, Seeder(writeSeed(t)).Seed(ctx, w))
	require.Len(t, w.got, 3)
}
