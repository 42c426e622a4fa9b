// Package lemma reduces words to a normal form so that inflected forms of one word compare equal.
package lemma

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
	"github.com/kljensen/snowball/russian"
	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

// Normalizer maps raw text to the set of its lemmas.
type Normalizer interface {
	Normalize(text string) Set
	Word(word string) string
}

// Snowball normalizes words with the Snowball stemmers (Russian for Cyrillic words,
// English for Latin ones). A lexicon maps irregular or slang forms to a dictionary
// word before stemming.
type Snowball struct {
	lexicon map[string]string
}

// NewSnowball builds a normalizer from the embedded lexicon, extended by extra entries.
func NewSnowball(extra map[string]string) (*Snowball, error) {
	base, err := ParseLexicon(defaultLexicon)
	if err != nil {
		return nil, fmt.Errorf("lemma: embedded lexicon: %w", err)
	}
	for k, v := range extra {
		base[fold(k)] = fold(v)
	}
	return &Snowball{lexicon: base}, nil
}

// LoadLexicon reads lexicon entries from a YAML file of "form: dictionary word" pairs.
// An empty path yields no entries.
func LoadLexicon(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lemma: read lexicon: %w", err)
	}
	return ParseLexicon(data)
}

// ParseLexicon decodes YAML lexicon entries; keys and values are case-folded.
func ParseLexicon(data []byte) (map[string]string, error) {
	raw := map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("lemma: parse lexicon: %w", err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		k, v = fold(k), fold(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out, nil
}

// Normalize splits text into words and returns the set of their lemmas.
func (s *Snowball) Normalize(text string) Set {
	words := Tokenize(text)
	out := make(Set, len(words))
	for _, w := range words {
		if l := s.Word(w); l != "" {
			out[l] = struct{}{}
		}
	}
	return out
}

// Word returns the lemma of a single word.
func (s *Snowball) Word(word string) string {
	w := fold(word)
	if w == "" {
		return ""
	}
	if mapped, ok := s.lexicon[w]; ok {
		w = mapped
	}
	switch script(w) {
	case scriptCyrillic:
		return russian.Stem(w, false)
	case scriptLatin:
		return english.Stem(w, false)
	default:
		return w
	}
}

// Tokenize splits text on everything that is not a letter or digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, "ё", "е")
}

type scriptKind int

const (
	scriptOther scriptKind = iota
	scriptCyrillic
	scriptLatin
)

func script(word string) scriptKind {
	for _, r := range word {
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			return scriptCyrillic
		case unicode.Is(unicode.Latin, r):
			return scriptLatin
		}
	}
	return scriptOther
}
