package content

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/m3rciful/storybot/core/bootstrap"
)

// Writer adds catalog entries. Adding an existing (term, link) pair is a no-op.
type Writer interface {
	AddMeme(ctx context.Context, topic, link string) error
	AddMusic(ctx context.Context, singer, link string) error
}

// Seed is the content file layout: term -> links.
type Seed struct {
	Memes map[string][]string `yaml:"memes"`
	Music map[string][]string `yaml:"music"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("content: read seed: %w", err)
	}
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("content: parse seed: %w", err)
	}
	return s, nil
}

// Apply writes every entry to w in a stable order and returns how many pairs it wrote.
// Terms are case-folded; blank terms and links are skipped.
func (s Seed) Apply(ctx context.Context, w Writer) (int, error) {
	n := 0
	add := func(entries map[string][]string, put func(context.Context, string, string) error) error {
		byTerm := make(map[string][]string, len(entries))
		for t, links := range entries {
			if term := fold(t); term != "" {
				byTerm[term] = append(byTerm[term], links...)
			}
		}
		terms := make([]string, 0, len(byTerm))
		for t := range byTerm {
			terms = append(terms, t)
		}
		slices.Sort(terms)
		for _, term := range terms {
			for _, link := range byTerm[term] {
				link = strings.TrimSpace(link)
				if link == "" {
					continue
				}
				if err := put(ctx, term, link); err != nil {
					return fmt.Errorf("content: seed %q: %w", term, err)
				}
				n++
			}
		}
		return nil
	}
	if err := add(s.Memes, w.AddMeme); err != nil {
		return n, err
	}
	if err := add(s.Music, w.AddMusic); err != nil {
		return n, err
	}
	return n, nil
}

// Seeder loads the seed file at path into the storage passed by bootstrap.RunSeeders,
// which must implement Writer. An empty path seeds nothing.
func Seeder(path string) bootstrap.Seeder {
	return bootstrap.SeederFunc(func(ctx context.Context, storage bootstrap.Storage) error {
		if strings.TrimSpace(path) == "" {
			return nil
		}
		w, ok := storage.(Writer)
		if !ok {
			return fmt.Errorf("content: storage %T cannot store content", storage)
		}
		s, err := LoadSeed(path)
		if err != nil {
			return err
		}
		_, err = s.Apply(ctx, w)
		return err
	})
}
