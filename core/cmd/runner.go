// Package cmd runs a configured Telegram application until SIGINT or SIGTERM.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/storybot/core/config"
	"github.com/m3rciful/storybot/core/logger"
	coretelegram "github.com/m3rciful/storybot/core/telegram"
)

const defaultConfigEnv = "CONFIG_PATH"

// ConfigCarrier is an application config that embeds the core configuration.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp is a bootstrapped application. Close runs after the bot stops.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
	Close() error
}

// Options wires Run to an application.
type Options struct {
	// ConfigPath wins over ConfigEnvVar and DefaultConfigPath when set (e.g. from a flag).
	ConfigPath        string
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(cfg ConfigCarrier) (TelegramApp, error)

	// Overridable for tests.
	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

// Run loads the config, bootstraps the app and serves until a termination signal.
func Run(opts Options) error {
	if opts.LoadConfig == nil || opts.Bootstrap == nil {
		return errors.New("cmd: LoadConfig and Bootstrap are required")
	}
	if opts.ShutdownLogger == nil {
		opts.ShutdownLogger = logger.Shutdown
	}
	if opts.RunTelegram == nil {
		opts.RunTelegram = coretelegram.RunTelegram
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return run(ctx, opts)
}

func run(ctx context.Context, opts Options) (err error) {
	path, err := ResolveConfigPath(opts.ConfigPath, opts.ConfigEnvVar, opts.DefaultConfigPath)
	if err != nil {
		return err
	}
	cfg, err := opts.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("cmd: load config %s: %w", path, err)
	}
	if cfg == nil || cfg.CoreConfig() == nil {
		return errors.New("cmd: loaded config is missing core configuration")
	}

	startedAt := time.Now()
	app, err := opts.Bootstrap(cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap: %w", err)
	}
	appLog := logger.Component("app")
	defer func() {
		if cerr := app.Close(); cerr != nil {
			appLog.Warn("close failed", slog.String("event", "shutdown"), slog.Any("err", cerr))
		}
		// Logger goes last so the close failure above is still written.
		err = errors.Join(err, opts.ShutdownLogger())
	}()

	runOpts, err := app.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options: %w", err)
	}
	runOpts.OnStart = chain(runOpts.OnStart, func(context.Context, coretelegram.Runtime) error {
		appLog.Info("app ready",
			slog.String("event", "ready"),
			slog.String("status", "ok"),
			slog.Duration("startup_duration", time.Since(startedAt)),
		)
		return nil
	})
	runOpts.OnStop = chain(func(context.Context, coretelegram.Runtime) error {
		appLog.Info("shutting down", slog.String("event", "shutdown"))
		return nil
	}, runOpts.OnStop)

	return opts.RunTelegram(ctx, runOpts)
}

// chain runs first and then second, stopping at the first error. Either may be nil.
func chain(first, second func(context.Context, coretelegram.Runtime) error) func(context.Context, coretelegram.Runtime) error {
	return func(ctx context.Context, rt coretelegram.Runtime) error {
		for _, hook := range []func(context.Context, coretelegram.Runtime) error{first, second} {
			if hook == nil {
				continue
			}
			if err := hook(ctx, rt); err != nil {
				return err
			}
		}
		return nil
	}
}

// ResolveConfigPath picks the config file: explicit path, then the environment
// variable (CONFIG_PATH by default), then the fallback.
func ResolveConfigPath(explicit, envVar, fallback string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if envVar == "" {
		envVar = defaultConfigEnv
	}
	if p := os.Getenv(envVar); p != "" {
		return p, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("cmd: config path not provided via flag, %s or default", envVar)
}
