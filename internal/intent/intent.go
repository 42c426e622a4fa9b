// Package intent classifies normalized message lemmas into the bot's intents.
package intent

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/m3rciful/storybot/core/logger"
	"github.com/m3rciful/storybot/internal/lemma"
)

// Intent names a category of free-text trigger.
type Intent string

const (
	Meme   Intent = "meme"
	Music  Intent = "music"
	Movie  Intent = "movie"
	Game   Intent = "game"
	Bochka Intent = "bochka"
)

// ErrNoMatch is returned by Route when no intent matches.
var ErrNoMatch = errors.New("intent: no match")

var known = map[Intent]struct{}{Meme: {}, Music: {}, Movie: {}, Game: {}, Bochka: {}}

//go:embed keywords.yaml
var defaultKeywords []byte

// Entry binds an intent to its trigger lemmas.
type Entry struct {
	Intent   Intent
	Keywords lemma.Set
}

// Table is the ordered keyword table. Route reports matches in table order.
type Table []Entry

type fileEntry struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type fileTable struct {
	Intents []fileEntry `yaml:"intents"`
}

// LoadTable reads the keyword table from path, or the embedded default when path is empty.
// Keywords are passed through n so they compare equal to normalized message lemmas.
func LoadTable(path string, n lemma.Normalizer) (Table, error) {
	data := defaultKeywords
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("intent: read keywords: %w", err)
		}
		data = raw
	}
	return ParseTable(data, n)
}

// ParseTable decodes and validates a YAML keyword table.
func ParseTable(data []byte, n lemma.Normalizer) (Table, error) {
	if n == nil {
		return nil, errors.New("intent: nil normalizer")
	}
	var ft fileTable
	if err := yaml.Unmarshal(data, &ft); err != nil {
		return nil, fmt.Errorf("intent: parse keywords: %w", err)
	}
	if len(ft.Intents) == 0 {
		return nil, errors.New("intent: keyword table is empty")
	}
	seen := make(map[Intent]struct{}, len(ft.Intents))
	table := make(Table, 0, len(ft.Intents))
	for _, fe := range ft.Intents {
		name := Intent(strings.ToLower(strings.TrimSpace(fe.Name)))
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("intent: unknown intent %q", fe.Name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("intent: duplicate intent %q", name)
		}
		seen[name] = struct{}{}

		kw := make(lemma.Set, len(fe.Keywords))
		for _, k := range fe.Keywords {
			if l := n.Word(k); l != "" {
				kw[l] = struct{}{}
			}
		}
		if len(kw) == 0 {
			return nil, fmt.Errorf("intent: %q has no keywords", name)
		}
		table = append(table, Entry{Intent: name, Keywords: kw})
	}
	return table, nil
}

// Router matches lemma sets against a keyword table.
type Router struct {
	table Table
}

// NewRouter returns a router over table. The table must not be modified afterwards.
func NewRouter(table Table) *Router {
	return &Router{table: table}
}

// Route returns every intent whose keywords intersect tokens, in table order,
// or ErrNoMatch when there is none.
func (r *Router) Route(tokens lemma.Set) ([]Intent, error) {
	var out []Intent
	for _, e := range r.table {
		if e.Keywords.Intersects(tokens) {
			out = append(out, e.Intent)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoMatch
	}
	return out, nil
}

// LogRoute writes the routing decision at debug level.
func LogRoute(ctx context.Context, tokens lemma.Set, intents []Intent, err error) {
	if !logger.ShouldSampleDebug() {
		return
	}
	names := make([]string, 0, len(intents))
	for _, in := range intents {
		names = append(names, string(in))
	}
	status := "ok"
	if err != nil {
		status = "skip"
	}
	logger.LogEvent(ctx, logger.SVCIntent, slog.LevelDebug, "intent.route",
		slog.String("status", status),
		slog.String("intents", strings.Join(names, ",")),
		slog.Int("count", len(tokens)),
	)
}
