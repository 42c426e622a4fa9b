package intent

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/storybot/internal/lemma"
)

func newRouter(t *testing.T) (*Router, *lemma.Snowball) {
	t.Helper()
	n, err := lemma.NewSnowball(nil)
	require.NoError(t, err)
	table, err := LoadTable("", n)
	require.NoError(t, err)
	return NewRouter(table), n
}

func TestRouteMatchesEveryIntent(t *testing.T) {
	r, n := newRouter(t)

	tests := []struct {
		text string
		want []Intent
	}{
		{"скинь мем", []Intent{Meme}},
		{"Хочу мемы и поиграть", []Intent{Meme, Game}},
		{"давай сыграем в игру", []Intent{Game}},
		{"включи песню или трек", []Intent{Music}},
		{"посоветуй фильм", []Intent{Movie}},
		{"бочка", []Intent{Bochka}},
		{"рофл, музло, фильмец, игра, бочка", []Intent{Meme, Music, Movie, Game, Bochka}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := r.Route(n.Normalize(tt.text))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("intents mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRouteNoMatch(t *testing.T) {
	r, n := newRouter(t)

	got, err := r.Route(n.Normalize("как дела?"))
	require.True(t, errors.Is(err, ErrNoMatch))
	require.Empty(t, got)

	_, err = r.Route(lemma.NewSet())
	require.ErrorIs(t, err, ErrNoMatch)
}

func TestRouteIsOrderIndependentOfTokens(t *testing.T) {
	r, n := newRouter(t)

	a, err := r.Route(n.Normalize("игра мем"))
	require.NoError(t, err)
	b, err := r.Route(n.Normalize("мем игра"))
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestParseTableValidation(t *testing.T) {
	n, err := lemma.NewSnowball(nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "intents: []"},
		{"unknown intent", "intents:\n  - name: weather\n    keywords: [погода]\n"},
		{"duplicate", "intents:\n  - name: meme\n    keywords: [мем]\n  - name: meme\n    keywords: [рофл]\n"},
		{"no keywords", "intents:\n  - name: meme\n    keywords: []\n"},
		{"broken yaml", "intents: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTable([]byte(tt.yaml), n)
			require.Error(t, err)
		})
	}

	_, err = ParseTable([]byte("intents:\n  - name: meme\n    keywords: [мем]\n"), nil)
	require.Error(t, err)
}

func TestCustomTableOrder(t *testing.T) {
	n, err := lemma.NewSnowball(nil)
	require.NoError(t, err)
	table, err := ParseTable([]byte("intents:\n  - name: game\n    keywords: [игра]\n  - name: meme\n    keywords: [мем]\n"), n)
	require.NoError(t, err)

	got, err := NewRouter(table).Route(n.Normalize("мем игра"))
	require.NoError(t, err)
	require.Equal(t, []Intent{Game, Meme}, got)
}
