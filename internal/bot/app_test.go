package bot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/storybot/core/bootstrap"
	coreconfig "github.com/m3rciful/storybot/core/config"
	coredatabase "github.com/m3rciful/storybot/core/database"
	"github.com/m3rciful/storybot/internal/config"
	"github.com/m3rciful/storybot/internal/story"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	seed := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte("memes:\n  кот: [cat.jpg]\n"), 0o600))

	cfg := &config.Config{
		Config:   coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "t", AdminID: 1, SendRetries: 2}},
		Database: coredatabase.Config{Driver: coredatabase.DriverMemory},
		Content:  config.ContentConfig{SeedPath: seed},
	}
	require.NoError(t, cfg.Normalize())
	return cfg
}

func buildApp(t *testing.T) *App {
	t.Helper()
	app, err := build(context.Background(), testConfig(t), &bootstrap.Result{})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, app.Close()) })
	return app
}

func TestBuildSeedsCatalog(t *testing.T) {
	app := buildApp(t)

	topics, err := app.catalog.ListTopics(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"кот"}, topics)
}

func TestTelegramRunOptionsRegistersHandlers(t *testing.T) {
	app := buildApp(t)

	opts, err := app.TelegramRunOptions()
	require.NoError(t, err)
	require.Same(t, &app.cfg.Config, opts.Config)
	require.Equal(t, 2, opts.DispatcherOptions.MaxRetries)
	require.Equal(t, []string{storyUnique}, opts.Registry.ListCallbacks())
	require.NotNil(t, opts.Registry.TextFallback())
	// Commands, the text route and the callback route.
	require.Len(t, opts.Routes, len(opts.Registry.Commands())+2)

	names := make([]string, 0, len(opts.Middlewares))
	for _, mw := range opts.Middlewares {
		names = append(names, mw.Name)
	}
	require.Contains(t, names, "chat_lock")

	_, cmd, ok := opts.Registry.LookupCommand("/ADD_ADMINS")
	require.True(t, ok)
	require.True(t, cmd.AdminOnly)
}

func TestRegistryHelp(t *testing.T) {
	app := buildApp(t)
	opts, err := app.TelegramRunOptions()
	require.NoError(t, err)

	user := registryHelp{reg: opts.Registry}
	require.NotContains(t, user.Names(), "add_admins")
	require.NotContains(t, user.Names(), "bochka")
	require.Contains(t, user.Names(), "start_game")

	admin := registryHelp{reg: opts.Registry, admin: true}
	require.Contains(t, admin.Names(), "add_admins")

	text, ok := user.HelpFor("movie")
	require.True(t, ok)
	require.Equal(t, "Посоветовать фильм", text)
	_, ok = user.HelpFor("dance")
	require.False(t, ok)
}

func TestPromptMarkup(t *testing.T) {
	markup := promptMarkup(story.Keyboard{
		{{Label: "Начать заново", Token: story.TokenRestart}, {Label: "Продолжить", Token: story.TokenResume}},
		{{Label: "Выход", Token: story.TokenExit}},
	})

	require.Len(t, markup.InlineKeyboard, 2)
	require.Len(t, markup.InlineKeyboard[0], 2)
	btn := markup.InlineKeyboard[0][1]
	require.Equal(t, "Продолжить", btn.Text)
	require.Equal(t, storyUnique, btn.Unique)
	require.Equal(t, story.TokenResume, btn.Data)
}
