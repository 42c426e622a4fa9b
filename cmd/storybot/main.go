// Command storybot runs the story chat bot and its maintenance tasks.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/m3rciful/storybot/core/buildinfo"
	corecmd "github.com/m3rciful/storybot/core/cmd"
	coredatabase "github.com/m3rciful/storybot/core/database"
	"github.com/m3rciful/storybot/internal/bot"
	"github.com/m3rciful/storybot/internal/config"
	"github.com/m3rciful/storybot/internal/storage/sqlstore/migrations"
	"github.com/m3rciful/storybot/internal/story"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("skip .env: %v", err)
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "storybot",
		Short:         "Telegram chat bot with memes, music and a text adventure",
		Version:       buildinfo.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $CONFIG_PATH or "+defaultConfigPath+")")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the bot until interrupted",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(configPath)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return migrate(cmd, configPath)
			},
		},
		newStoryCmd(),
	)
	return root
}

func serve(configPath string) error {
	return corecmd.Run(corecmd.Options{
		ConfigPath:        configPath,
		DefaultConfigPath: defaultConfigPath,
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := config.Load(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Bootstrap: func(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			cfg, ok := carrier.(*config.Config)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", carrier)
			}
			app, err := bot.New(context.Background(), cfg)
			if err != nil {
				return nil, err
			}
			return app, nil
		},
	})
}

func migrate(cmd *cobra.Command, configPath string) error {
	path, err := corecmd.ResolveConfigPath(configPath, "", defaultConfigPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if cfg.Database.Driver == coredatabase.DriverMemory {
		cmd.Println("memory driver: nothing to migrate")
		return nil
	}
	if err := coredatabase.RunMigrations(cfg.Database, migrations.FS); err != nil {
		return err
	}
	cmd.Printf("%s: migrations applied\n", cfg.Database.Driver)
	return nil
}

func newStoryCmd() *cobra.Command {
	storyCmd := &cobra.Command{
		Use:   "story",
		Short: "Story graph tools",
	}
	storyCmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate a story graph; without a path checks the built-in plot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			graph, err := story.LoadGraph(path)
			if err != nil {
				return err
			}
			return reportGraph(cmd, graph)
		},
	})
	return storyCmd
}

func reportGraph(cmd *cobra.Command, g *story.Graph) error {
	reachable := make(map[string]struct{}, g.Len())
	for _, id := range g.Reachable() {
		reachable[id] = struct{}{}
	}
	cmd.Printf("stages: %d, start: %s, reachable: %d\n", g.Len(), g.Start(), len(reachable))
	var orphans int
	for _, id := range g.IDs() {
		if _, ok := reachable[id]; !ok {
			cmd.Printf("unreachable: %s\n", id)
			orphans++
		}
	}
	if orphans > 0 {
		return fmt.Errorf("%d unreachable stage(s)", orphans)
	}
	return nil
}
