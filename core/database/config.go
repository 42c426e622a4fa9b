package database

import (
	"cmp"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

const (
	// DriverPostgres selects the lib/pq backed Postgres store.
	DriverPostgres = "postgres"
	// DriverSQLite selects the pure-Go SQLite store; Path names the database file.
	DriverSQLite = "sqlite"
	// DriverMemory keeps all state in process memory; nothing is persisted.
	DriverMemory = "memory"
)

// Config holds database connection settings shared across bots.
type Config struct {
	Driver         string `yaml:"driver" envconfig:"DB_DRIVER"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	Path           string `yaml:"path" envconfig:"DB_PATH"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// Normalize lower-cases the driver, checks its required fields and fills defaults.
// An empty driver means postgres.
func (c *Config) Normalize() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	switch c.Driver {
	case "", DriverPostgres:
		c.Driver = DriverPostgres
		if c.Host == "" || c.Name == "" {
			return errors.New("database.host and database.name are required for the postgres driver")
		}
		c.Port = cmp.Or(c.Port, "5432")
		c.SSLMode = cmp.Or(c.SSLMode, "disable")
	case DriverSQLite:
		c.Path = strings.TrimSpace(c.Path)
		if c.Path == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
		// One writer at a time.
		c.MaxConnections = 1
	case DriverMemory:
	default:
		return fmt.Errorf("invalid database.driver %q; allowed: %s, %s, %s", c.Driver, DriverPostgres, DriverSQLite, DriverMemory)
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 10
	}
	return nil
}

// PostgresDSN renders the key=value connection string understood by lib/pq.
func (c Config) PostgresDSN() string {
	pairs := [][2]string{
		{"user", c.User},
		{"password", c.Password},
		{"host", c.Host},
		{"port", c.Port},
		{"dbname", c.Name},
		{"sslmode", c.SSLMode},
	}
	parts := make([]string, 0, len(pairs))
	for _, kv := range pairs {
		if kv[1] != "" {
			parts = append(parts, kv[0]+"="+dsnQuote(kv[1]))
		}
	}
	return strings.Join(parts, " ")
}

// dsnQuote quotes v when lib/pq would otherwise split or misread it.
func dsnQuote(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// MigrateURL renders the golang-migrate database URL for the configured driver.
func (c Config) MigrateURL() string {
	if c.Driver == DriverSQLite {
		return "sqlite://" + c.Path
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}
