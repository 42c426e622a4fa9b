// Package content picks meme and music links for a request, either for explicitly
// named terms or for terms implied by the message text.
package content

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/m3rciful/storybot/core/logger"
	"github.com/m3rciful/storybot/internal/apperr"
	"github.com/m3rciful/storybot/internal/intent"
	"github.com/m3rciful/storybot/internal/lemma"
)

// Kind tells the transport how to deliver an Outbound body.
type Kind int

const (
	// Text is delivered as a plain text message.
	Text Kind = iota
	// Photo is delivered as a photo referenced by URL.
	Photo
)

func (k Kind) String() string {
	if k == Photo {
		return "photo"
	}
	return "text"
}

// Outbound is one message produced by Resolve.
type Outbound struct {
	Kind Kind
	Body string
	// Term is the topic or singer the link was picked for; empty for pool picks and notices.
	Term string
}

// Catalog is the read-only query side of the content store.
// Topics and singers are stored case-folded.
type Catalog interface {
	ListTopics(ctx context.Context) ([]string, error)
	LinksForTopic(ctx context.Context, topic string) ([]string, error)
	ListSingers(ctx context.Context) ([]string, error)
	LinksForSinger(ctx context.Context, singer string) ([]string, error)
	MemePool(ctx context.Context) ([]string, error)
	MusicPool(ctx context.Context) ([]string, error)
}

// Request carries the message lemmas and the explicit filter terms (command arguments).
// An empty Filters list selects inferred mode.
type Request struct {
	Tokens  lemma.Set
	Filters []string
}

// Texts holds the replies Resolve emits besides links. Placeholders take the term.
type Texts struct {
	NoTopic    string
	NoSinger   string
	EmptyMemes string
	EmptyMusic string
}

// DefaultTexts returns the Russian replies used by the bot.
func DefaultTexts() Texts {
	return Texts{
		NoTopic:    `Мемов на тему "%s" у меня нет`,
		NoSinger:   `Музыки исполнителя "%s" у меня нет`,
		EmptyMemes: "Мемов у меня пока нет",
		EmptyMusic: "Музыки у меня пока нет",
	}
}

// Picker returns a uniformly random index in [0, n).
type Picker func(n int) int

// Resolver selects links for the meme and music intents.
type Resolver struct {
	catalog    Catalog
	normalizer lemma.Normalizer
	pick       Picker
	texts      Texts
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithPicker replaces the random index source.
func WithPicker(p Picker) Option {
	return func(r *Resolver) {
		if p != nil {
			r.pick = p
		}
	}
}

// WithTexts replaces the reply texts.
func WithTexts(t Texts) Option {
	return func(r *Resolver) { r.texts = t }
}

// NewResolver builds a resolver over catalog. Term names are normalized with n
// when matched against message lemmas.
func NewResolver(catalog Catalog, n lemma.Normalizer, opts ...Option) *Resolver {
	r := &Resolver{
		catalog:    catalog,
		normalizer: n,
		pick:       rand.IntN,
		texts:      DefaultTexts(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// source binds an intent to its catalog queries and reply texts.
type source struct {
	kind     Kind
	list     func(context.Context) ([]string, error)
	links    func(context.Context, string) ([]string, error)
	pool     func(context.Context) ([]string, error)
	notFound string
	empty    string
}

func (r *Resolver) sourceFor(in intent.Intent) (source, error) {
	switch in {
	case intent.Meme:
		return source{
			kind:     Photo,
			list:     r.catalog.ListTopics,
			links:    r.catalog.LinksForTopic,
			pool:     r.catalog.MemePool,
			notFound: r.texts.NoTopic,
			empty:    r.texts.EmptyMemes,
		}, nil
	case intent.Music:
		return source{
			kind:     Text,
			list:     r.catalog.ListSingers,
			links:    r.catalog.LinksForSinger,
			pool:     r.catalog.MusicPool,
			notFound: r.texts.NoSinger,
			empty:    r.texts.EmptyMusic,
		}, nil
	default:
		return source{}, fmt.Errorf("content: intent %q has no content", in)
	}
}

// Resolve returns the messages to send for in. Store failures are reported as
// apperr.StoreUnavailable and no messages are returned.
func (r *Resolver) Resolve(ctx context.Context, in intent.Intent, req Request) ([]Outbound, error) {
	const op = "content.resolve"
	start := time.Now()

	src, err := r.sourceFor(in)
	if err != nil {
		return nil, err
	}

	var out []Outbound
	mode := "inferred"
	if len(req.Filters) > 0 {
		mode = "explicit"
		out, err = r.explicit(ctx, src, req.Filters)
	} else {
		out, err = r.inferred(ctx, src, req.Tokens)
	}
	if err != nil {
		logger.LogEvent(ctx, logger.SVCContent, slog.LevelWarn, op,
			slog.String("status", logger.Status(err)),
			slog.String("intent", string(in)),
			slog.String("mode", mode),
			slog.String("err", err.Error()),
		)
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}

	logger.LogEvent(ctx, logger.SVCContent, slog.LevelDebug, op,
		slog.String("status", "ok"),
		slog.String("intent", string(in)),
		slog.String("mode", mode),
		slog.Int("count", len(out)),
		slog.Duration("duration", logger.Took(start)),
	)
	return out, nil
}

func (r *Resolver) explicit(ctx context.Context, src source, filters []string) ([]Outbound, error) {
	known, err := src.list(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]string, len(known))
	byLemma := make(map[string]string, len(known))
	for _, t := range known {
		byName[fold(t)] = t
		if r.normalizer != nil {
			if l := r.normalizer.Word(t); l != "" {
				if _, taken := byLemma[l]; !taken {
					byLemma[l] = t
				}
			}
		}
	}

	seen := make(map[string]struct{}, len(filters))
	var out []Outbound
	for _, raw := range filters {
		term := fold(raw)
		if term == "" {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}

		name, ok := byName[term]
		if !ok && r.normalizer != nil {
			name, ok = byLemma[r.normalizer.Word(term)]
		}
		if !ok {
			out = append(out, Outbound{Kind: Text, Body: fmt.Sprintf(src.notFound, term)})
			continue
		}
		msg, found, err := r.pickFor(ctx, src, name)
		if err != nil {
			return nil, err
		}
		if !found {
			out = append(out, Outbound{Kind: Text, Body: fmt.Sprintf(src.notFound, term)})
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (r *Resolver) inferred(ctx context.Context, src source, tokens lemma.Set) ([]Outbound, error) {
	known, err := src.list(ctx)
	if err != nil {
		return nil, err
	}
	known = slices.Clone(known)
	slices.Sort(known)

	var out []Outbound
	for _, t := range known {
		if !r.implied(t, tokens) {
			continue
		}
		msg, found, err := r.pickFor(ctx, src, t)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, msg)
		}
	}
	if len(out) > 0 {
		return out, nil
	}

	pool, err := src.pool(ctx)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return []Outbound{{Kind: Text, Body: src.empty}}, nil
	}
	return []Outbound{{Kind: src.kind, Body: pool[r.pick(len(pool))]}}, nil
}

// implied reports whether every word of term occurs among the message lemmas.
func (r *Resolver) implied(term string, tokens lemma.Set) bool {
	if len(tokens) == 0 {
		return false
	}
	if r.normalizer == nil {
		return tokens.Has(fold(term))
	}
	words := r.normalizer.Normalize(term)
	if len(words) == 0 {
		return false
	}
	for w := range words {
		if !tokens.Has(w) {
			return false
		}
	}
	return true
}

func (r *Resolver) pickFor(ctx context.Context, src source, term string) (Outbound, bool, error) {
	links, err := src.links(ctx, term)
	if err != nil {
		return Outbound{}, false, err
	}
	if len(links) == 0 {
		logger.LogEvent(ctx, logger.SVCContent, slog.LevelWarn, "content.empty_pool",
			slog.String("status", "skip"),
			slog.String("term", term),
			slog.String("err_code", string(apperr.EmptyContentPool)),
		)
		return Outbound{}, false, nil
	}
	return Outbound{Kind: src.kind, Body: links[r.pick(len(links))], Term: term}, true, nil
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
