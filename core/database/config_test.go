package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
		check   func(t *testing.T, c Config)
	}{
		{
			name: "postgres defaults",
			cfg:  Config{Host: "db", Name: "story"},
			check: func(t *testing.T, c Config) {
				require.Equal(t, DriverPostgres, c.Driver)
				require.Equal(t, "5432", c.Port)
				require.Equal(t, "disable", c.SSLMode)
				require.Equal(t, 10, c.MaxConnections)
			},
		},
		{name: "postgres without host", cfg: Config{Driver: "postgres", Name: "story"}, wantErr: true},
		{
			name: "sqlite single connection",
			cfg:  Config{Driver: " SQLite ", Path: "story.db", MaxConnections: 8},
			check: func(t *testing.T, c Config) {
				require.Equal(t, DriverSQLite, c.Driver)
				require.Equal(t, 1, c.MaxConnections)
			},
		},
		{name: "sqlite without path", cfg: Config{Driver: "sqlite"}, wantErr: true},
		{name: "memory", cfg: Config{Driver: "memory"}},
		{name: "unknown driver", cfg: Config{Driver: "mongo"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := cfg.Normalize()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestMigrateURL(t *testing.T) {
	pg := Config{Driver: DriverPostgres, User: "bot", Password: "p@ss", Host: "db", Port: "5432", Name: "story", SSLMode: "disable"}
	require.Equal(t, "postgres://bot:p%40ss@db:5432/story?sslmode=disable", pg.MigrateURL())

	lite := Config{Driver: DriverSQLite, Path: "/tmp/story.db"}
	require.Equal(t, "sqlite:///tmp/story.db", lite.MigrateURL())
}

func TestAppliedBetween(t *testing.T) {
	files := []string{"0001_init.up.sql", "0002_users.up.sql", "0003_content.up.sql"}
	require.Equal(t, []string{"0002_users.up.sql", "0003_content.up.sql"}, appliedBetween(files, 1, 3))
	require.Nil(t, appliedBetween(files, 3, 3))
	require.Equal(t, uint64(2), migrationVersion("0002_users.up.sql"))
}

func TestUpMigrationsOrdersByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"sqlite/10_late.up.sql":   {},
		"sqlite/2_users.up.sql":   {},
		"sqlite/2_users.down.sql": {},
		"postgres/1_init.up.sql":  {},
	}
	require.Equal(t, []string{"2_users.up.sql", "10_late.up.sql"}, upMigrations(fsys, "sqlite"))
}

func TestPostgresDSNQuotesValues(t *testing.T) {
	cfg := Config{User: "bot", Password: `it's secret`, Host: "db", Port: "5432", Name: "story", SSLMode: "disable"}
	require.Equal(t, `user=bot password='it\'s secret' host=db port=5432 dbname=story sslmode=disable`, cfg.PostgresDSN())

	cfg.Password = ""
	require.Equal(t, "user=bot host=db port=5432 dbname=story sslmode=disable", cfg.PostgresDSN())
}
