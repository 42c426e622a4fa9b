package database

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/storybot/core/logger"
)

// RunMigrations applies every pending up migration from the driver's directory in
// migrations ("postgres/", "sqlite/"). The memory driver has nothing to migrate.
func RunMigrations(cfg Config, migrations fs.FS) error {
	if migrations == nil {
		return errors.New("migrations filesystem is required")
	}
	switch cfg.Driver {
	case DriverMemory:
		return nil
	case "":
		cfg.Driver = DriverPostgres
	}
	if cfg.Driver == DriverPostgres {
		// golang-migrate fails at once on a refused connection.
		ctx, cancel := context.WithTimeout(context.Background(), postgresReadyTimeout)
		db, _, err := openWhenReady(ctx, DriverPostgres, cfg.PostgresDSN())
		cancel()
		if err != nil {
			return fmt.Errorf("database not ready: %w", err)
		}
		_ = db.Close()
	}

	files := upMigrations(migrations, cfg.Driver)
	src, err := iofs.New(migrations, cfg.Driver)
	if err != nil {
		return fmt.Errorf("open migrations source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.MigrateURL())
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer func() {
		if err := errors.Join(m.Close()); err != nil {
			logger.MIG.Warn("close failed", slog.String("event", "db.migrate"), slog.Any("err", err))
		}
	}()

	from, _, _ := m.Version()
	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.MIG.Error("migration failed",
			slog.String("event", "db.migrate"),
			slog.String("status", "fail"),
			slog.String("driver", cfg.Driver),
			slog.Duration("duration", time.Since(start)),
			slog.Any("err", err),
		)
		return fmt.Errorf("apply migrations: %w", err)
	}
	to, _, _ := m.Version()

	applied := appliedBetween(files, uint64(from), uint64(to))
	preview, truncated := logger.SummarizeStrings(applied, 6)
	logger.MIG.Info("migrations applied",
		slog.String("event", "db.migrate"),
		slog.String("status", "ok"),
		slog.String("driver", cfg.Driver),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("count", len(applied)),
		slog.String("files", preview),
		slog.Bool("files_truncated", truncated),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// upMigrations lists the *.up.sql files of dir in version order.
func upMigrations(migrations fs.FS, dir string) []string {
	names, err := fs.Glob(migrations, dir+"/*.up.sql")
	if err != nil {
		return nil
	}
	for i, n := range names {
		names[i] = strings.TrimPrefix(n, dir+"/")
	}
	slices.SortFunc(names, func(a, b string) int {
		return cmp.Compare(migrationVersion(a), migrationVersion(b))
	})
	return names
}

func migrationVersion(name string) uint64 {
	head, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(head, 10, 64)
	return v
}

func appliedBetween(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if v := migrationVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
