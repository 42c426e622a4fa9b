// Package bot wires the story bot services into the Telegram runtime.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/storybot/core/bootstrap"
	"github.com/m3rciful/storybot/core/logger"
	tg "github.com/m3rciful/storybot/core/telegram"
	"github.com/m3rciful/storybot/core/telegram/router"
	tgsender "github.com/m3rciful/storybot/core/telegram/sender"
	"github.com/m3rciful/storybot/core/telegram/state"
	"github.com/m3rciful/storybot/internal/chat"
	"github.com/m3rciful/storybot/internal/config"
	"github.com/m3rciful/storybot/internal/content"
	"github.com/m3rciful/storybot/internal/intent"
	"github.com/m3rciful/storybot/internal/lemma"
	"github.com/m3rciful/storybot/internal/storage/memory"
	"github.com/m3rciful/storybot/internal/storage/sqlstore"
	"github.com/m3rciful/storybot/internal/storage/sqlstore/migrations"
	"github.com/m3rciful/storybot/internal/story"
	"github.com/m3rciful/storybot/internal/users"
)

// Backend is everything the bot persists: game sessions, users and the content catalog.
type Backend interface {
	story.SessionStore
	users.Store
	content.Catalog
	content.Writer
}

// App owns the bot's services and the infrastructure they run on.
type App struct {
	cfg     *config.Config
	infra   *bootstrap.Result
	catalog *content.CachedCatalog
	chat    *chat.Service
	users   *users.Service
	locker  *state.ChatLocker
	texts   story.Texts
}

// New runs the bootstrap pipeline (logger, migrations, database), seeds the catalog
// and builds the services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("bot: nil config")
	}
	infra, err := bootstrap.Run(bootstrap.Options{
		Config:     &cfg.Config,
		Database:   cfg.Database,
		Migrations: migrations.FS,
	})
	if err != nil {
		return nil, err
	}

	app, err := build(ctx, cfg, infra)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	return app, nil
}

func build(ctx context.Context, cfg *config.Config, infra *bootstrap.Result) (*App, error) {
	var backend Backend
	if infra.DB == nil {
		backend = memory.New()
	} else {
		s, err := sqlstore.New(infra.DB)
		if err != nil {
			return nil, err
		}
		backend = s
	}
	if err := bootstrap.RunSeeders(ctx, backend, content.Seeder(cfg.Content.SeedPath)); err != nil {
		return nil, err
	}

	lexicon, err := lemma.LoadLexicon(cfg.Content.LexiconPath)
	if err != nil {
		return nil, err
	}
	normalizer, err := lemma.NewSnowball(lexicon)
	if err != nil {
		return nil, err
	}
	table, err := intent.LoadTable(cfg.Content.IntentsPath, normalizer)
	if err != nil {
		return nil, err
	}
	graph, err := story.LoadGraph(cfg.Story.Path)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Storage.Timeout()
	engine, err := story.NewEngine(graph, backend, story.WithStoreTimeout(timeout))
	if err != nil {
		return nil, err
	}
	usersSvc, err := users.NewService(backend, cfg.Telegram.AdminID, timeout)
	if err != nil {
		return nil, err
	}
	catalog, err := content.NewCachedCatalog(backend, cfg.Storage.CatalogCapacity, cfg.Storage.CatalogTTL(),
		content.WithFetchTimeout(timeout))
	if err != nil {
		return nil, err
	}

	ct := cfg.Content.Contact
	chatSvc, err := chat.NewService(chat.Deps{
		Normalizer: normalizer,
		Router:     intent.NewRouter(table),
		Resolver:   content.NewResolver(catalog, normalizer),
		Catalog:    catalog,
		Engine:     engine,
		Users:      usersSvc,
		Contact: chat.Contact{
			Phone:     ct.Phone,
			FirstName: ct.FirstName,
			LastName:  ct.LastName,
		},
		StoreTimeout: timeout,
	})
	if err != nil {
		catalog.Close()
		return nil, err
	}

	logger.SVCStory.Info("story loaded",
		slog.String("event", "story.load"),
		slog.Int("count", graph.Len()),
		slog.String("stage", graph.Start()),
	)

	return &App{
		cfg:     cfg,
		infra:   infra,
		catalog: catalog,
		chat:    chatSvc,
		users:   usersSvc,
		locker:  state.NewChatLocker(),
		texts:   story.DefaultTexts(),
	}, nil
}

// TelegramRunOptions registers handlers and assembles the runtime options.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	h := &handlers{chat: a.chat, users: a.users, reg: reg, invalid: a.texts.InvalidAction}
	if err := h.register(); err != nil {
		return tg.RunOptions{}, fmt.Errorf("bot: register handlers: %w", err)
	}

	routes := router.CommandRoutes(reg, a.users)
	routes = append(routes, router.TextRoute(reg), router.CallbackRoute(reg))

	return tg.RunOptions{
		Config:            &a.cfg.Config,
		Registry:          reg,
		DispatcherOptions: tgsender.Options{MaxRetries: a.cfg.Telegram.SendRetries},
		Middlewares:       tg.DefaultMiddlewares(&a.cfg.Config, a.locker),
		Routes:            routes,
	}, nil
}

// Close releases the catalog cache and the database handle.
func (a *App) Close() error {
	if a.catalog != nil {
		a.catalog.Close()
	}
	return a.infra.Close()
}
