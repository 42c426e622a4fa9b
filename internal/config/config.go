// Package config holds the story bot configuration: the shared core settings plus
// storage, game and content options.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/storybot/core/config"
	coredatabase "github.com/m3rciful/storybot/core/database"
)

// StorageConfig bounds store calls and sizes the catalog cache.
type StorageConfig struct {
	TimeoutMS         int `yaml:"timeout_ms" envconfig:"STORAGE_TIMEOUT_MS"`
	CatalogTTLSeconds int `yaml:"catalog_ttl_seconds" envconfig:"CATALOG_TTL_SECONDS"`
	CatalogCapacity   int `yaml:"catalog_capacity" envconfig:"CATALOG_CAPACITY"`
}

// Timeout returns the per-call store deadline.
func (s StorageConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// CatalogTTL returns how long catalog reads stay cached.
func (s StorageConfig) CatalogTTL() time.Duration {
	return time.Duration(s.CatalogTTLSeconds) * time.Second
}

// StoryConfig points at the story graph; empty uses the built-in plot.
type StoryConfig struct {
	Path string `yaml:"path" envconfig:"STORY_PATH"`
}

// ContactConfig is the support contact sent with the movie reply.
type ContactConfig struct {
	Phone     string `yaml:"phone" envconfig:"MOVIE_CONTACT_PHONE"`
	FirstName string `yaml:"first_name" envconfig:"MOVIE_CONTACT_FIRST_NAME"`
	LastName  string `yaml:"last_name" envconfig:"MOVIE_CONTACT_LAST_NAME"`
}

// ContentConfig locates the language resources and the catalog seed.
type ContentConfig struct {
	IntentsPath string        `yaml:"intents_path" envconfig:"INTENTS_PATH"`
	LexiconPath string        `yaml:"lexicon_path" envconfig:"LEXICON_PATH"`
	SeedPath    string        `yaml:"seed_path" envconfig:"CONTENT_SEED_PATH"`
	Contact     ContactConfig `yaml:"contact"`
}

// Config is the full story bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Storage  StorageConfig       `yaml:"storage"`
	Story    StoryConfig         `yaml:"story"`
	Content  ContentConfig       `yaml:"content"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads the YAML file at path, overlays the environment and normalizes the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}

	switch {
	case c.Storage.TimeoutMS < 0:
		return fmt.Errorf("storage.timeout_ms must be >= 0")
	case c.Storage.TimeoutMS == 0:
		c.Storage.TimeoutMS = 3000
	}
	switch {
	case c.Storage.CatalogTTLSeconds < 0:
		return fmt.Errorf("storage.catalog_ttl_seconds must be >= 0")
	case c.Storage.CatalogTTLSeconds == 0:
		c.Storage.CatalogTTLSeconds = 300
	}
	if c.Storage.CatalogCapacity < 0 {
		return fmt.Errorf("storage.catalog_capacity must be >= 0")
	}

	c.Story.Path = strings.TrimSpace(c.Story.Path)
	c.Content.IntentsPath = strings.TrimSpace(c.Content.IntentsPath)
	c.Content.LexiconPath = strings.TrimSpace(c.Content.LexiconPath)
	c.Content.SeedPath = strings.TrimSpace(c.Content.SeedPath)

	ct := &c.Content.Contact
	ct.Phone = strings.TrimSpace(ct.Phone)
	if ct.Phone != "" && strings.TrimSpace(ct.FirstName) == "" {
		return fmt.Errorf("content.contact.first_name is required when a phone is set")
	}
	return nil
}
