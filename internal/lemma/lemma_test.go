package lemma

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func newNormalizer(t *testing.T) *Snowball {
	t.Helper()
	n, err := NewSnowball(nil)
	require.NoError(t, err)
	return n
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Скинь мем, пожалуйста!!! /meme 2024")
	want := []string{"Скинь", "мем", "пожалуйста", "meme", "2024"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestWordFoldsInflections(t *testing.T) {
	n := newNormalizer(t)

	require.Equal(t, n.Word("мем"), n.Word("Мемы"))
	require.Equal(t, n.Word("песня"), n.Word("песни"))
	require.Equal(t, n.Word("игра"), n.Word("игру"))
	require.Equal(t, n.Word("ёлка"), n.Word("елка"))
	require.Equal(t, "мем", n.Word("мемы"))
}

func TestWordUsesLexicon(t *testing.T) {
	n := newNormalizer(t)

	require.Equal(t, n.Word("игра"), n.Word("сыграть"))
	require.Equal(t, n.Word("игра"), n.Word("Играть"))
	require.Equal(t, n.Word("фильм"), n.Word("кино"))
}

func TestExtraLexiconOverrides(t *testing.T) {
	n, err := NewSnowball(map[string]string{"Бочонок": "бочка"})
	require.NoError(t, err)
	require.Equal(t, n.Word("бочка"), n.Word("бочонок"))
}

func TestNormalizeBuildsSet(t *testing.T) {
	n := newNormalizer(t)

	got := n.Normalize("Мем и мемы, и ещё мем!")
	require.True(t, got.Has(n.Word("мем")))
	require.Len(t, got, 3)
	require.Empty(t, n.Normalize("  ,,, !!! "))
}

func TestWordKeepsNonAlphabetic(t *testing.T) {
	n := newNormalizer(t)
	require.Equal(t, "2024", n.Word("2024"))
	require.Empty(t, n.Word("   "))
}

func TestParseLexiconRejectsGarbage(t *testing.T) {
	_, err := ParseLexicon([]byte("- not\n- a map\n"))
	require.Error(t, err)
}

func TestSetOperations(t *testing.T) {
	a := NewSet("мем", "игр", "")
	b := NewSet("игр")
	require.True(t, a.Intersects(b))
	require.False(t, a.Intersects(NewSet("бочк")))
	require.Equal(t, []string{"игр", "мем"}, a.Slice())
}
