package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/m3rciful/storybot/core/logger"
)

const (
	// Postgres in a freshly started compose stack needs a few seconds.
	postgresReadyTimeout = 30 * time.Second
	sqliteReadyTimeout   = 5 * time.Second
	readyPollInterval    = time.Second
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Connect opens and pings the configured database, waiting for Postgres to come up,
// and sizes the pool from cfg.MaxConnections.
func Connect(cfg Config) (*sqlx.DB, error) {
	driver, dsn, err := driverDSN(cfg)
	if err != nil {
		return nil, err
	}
	timeout := sqliteReadyTimeout
	if driver == DriverPostgres {
		timeout = postgresReadyTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	db, attempts, err := openWhenReady(ctx, driver, dsn)
	attrs := []slog.Attr{
		slog.String("event", "db.connect"),
		slog.String("driver", driver),
		slog.String("host", cfg.Host),
		slog.String("db", dbLabel(cfg)),
		slog.Int("attempts", attempts),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		logger.DB.LogAttrs(ctx, slog.LevelError, "db connect failed",
			append(attrs, slog.String("status", logger.Status(err)), slog.Any("err", err))...)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)
	logger.DB.LogAttrs(ctx, slog.LevelInfo, "db connected",
		append(attrs, slog.String("status", "ok"), slog.Int("pool_open", cfg.MaxConnections))...)
	return db, nil
}

// openWhenReady retries connect-and-ping until it succeeds or ctx expires, returning
// the last connection error in the latter case.
func openWhenReady(ctx context.Context, driver, dsn string) (*sqlx.DB, int, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		db, err := sqlx.ConnectContext(ctx, driver, dsn)
		if err == nil {
			return db, attempt, nil
		}
		lastErr = err

		timer := time.NewTimer(readyPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, attempt, fmt.Errorf("%w (gave up: %w)", lastErr, ctx.Err())
		case <-timer.C:
		}
	}
}

// OpenSQLite opens a SQLite file with the same pragmas as Connect, without logging.
func OpenSQLite(path string) (*sqlx.DB, error) {
	db, err := sqlx.Connect(DriverSQLite, sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func driverDSN(cfg Config) (string, string, error) {
	switch cfg.Driver {
	case DriverPostgres, "":
		return DriverPostgres, cfg.PostgresDSN(), nil
	case DriverSQLite:
		return DriverSQLite, sqliteDSN(cfg.Path), nil
	default:
		return "", "", fmt.Errorf("db connect: driver %q has no SQL connection", cfg.Driver)
	}
}

func sqliteDSN(path string) string {
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func dbLabel(cfg Config) string {
	if cfg.Driver == DriverSQLite {
		return cfg.Path
	}
	return cfg.Name
}
