// Package bootstrap brings up the infrastructure shared by every bot: the logger,
// schema migrations and the database handle, then runs content seeders.
package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/storybot/core/config"
	coredatabase "github.com/m3rciful/storybot/core/database"
	"github.com/m3rciful/storybot/core/logger"
)

// Options configure Run. The function fields default to the real implementations.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config
	// Migrations holds one directory of migrations per SQL driver.
	Migrations fs.FS

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config, fs.FS) error
}

// Result is the infrastructure produced by Run.
type Result struct {
	// DB is nil for the memory driver.
	DB *sqlx.DB
}

// Close releases the database handle, if any.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

type step struct {
	name string
	run  func() error
}

// Run initializes the logger, migrates and connects. The memory driver skips the
// database steps.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}
	if opts.LoggerInit == nil {
		opts.LoggerInit = logger.InitLogger
	}
	if opts.Migrate == nil {
		opts.Migrate = coredatabase.RunMigrations
	}
	if opts.Connect == nil {
		opts.Connect = coredatabase.Connect
	}

	res := &Result{}
	steps := []step{{"logger", func() error { return opts.LoggerInit(opts.Config) }}}
	if opts.Database.Driver != coredatabase.DriverMemory {
		steps = append(steps,
			step{"migrate", func() error { return opts.Migrate(opts.Database, opts.Migrations) }},
			step{"connect", func() (err error) {
				res.DB, err = opts.Connect(opts.Database)
				return err
			}},
		)
	}

	if opts.Database.Driver == coredatabase.DriverMemory {
		steps = append(steps, step{"memory", func() error {
			logger.DB.Warn("memory driver keeps state in process; sessions are lost on restart",
				slog.String("event", "db.driver"),
				slog.String("status", "skip"),
				slog.String("driver", opts.Database.Driver),
			)
			return nil
		}})
	}

	for _, s := range steps {
		start := time.Now()
		if err := s.run(); err != nil {
			return nil, errors.Join(fmt.Errorf("bootstrap: %s: %w", s.name, err), res.Close())
		}
		logger.L.Debug("bootstrap step",
			slog.String("event", "bootstrap."+s.name),
			slog.String("status", "ok"),
			slog.String("driver", opts.Database.Driver),
			slog.Duration("duration", time.Since(start)),
		)
	}
	return res, nil
}
