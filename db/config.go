package db

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/teranos/hmis/errors"
)

// Backend identifies the active ConnectionConfig variant.
type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendMySQL    Backend = "mysql"
)

// Backend defaults, matching the desktop installation.
const (
	DefaultSQLitePath   = "hmis.sqlite3"
	DefaultHost         = "127.0.0.1"
	DefaultPostgresPort = 5432
	DefaultMySQLPort    = 3306
)

// ParseBackend maps a config string to a Backend.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendSQLite, BackendPostgres, BackendMySQL:
		return b, nil
	case "sqlite3":
		return BackendSQLite, nil
	case "postgresql", "pgx":
		return BackendPostgres, nil
	default:
		return "", errors.WithHint(
			errors.Newk(errors.ErrConfiguration, "unsupported backend %q", s),
			"use one of: sqlite, postgres, mysql")
	}
}

// SQLiteOptions configures the embedded-file backend.
type SQLiteOptions struct {
	Path string
}

// NetworkOptions configures a client/server backend.
type NetworkOptions struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ConnectionConfig is a tagged union over the three backends.
// Exactly one variant is active; the zero value is an sqlite config with an
// empty path, which does not validate.
type ConnectionConfig struct {
	backend Backend
	sqlite  SQLiteOptions
	network NetworkOptions
}

// SQLite returns a config with the embedded-file variant active.
func SQLite(opts SQLiteOptions) ConnectionConfig {
	var c ConnectionConfig
	c.UseSQLite(opts)
	return c
}

// Postgres returns a config with the PostgreSQL variant active.
func Postgres(opts NetworkOptions) ConnectionConfig {
	var c ConnectionConfig
	c.UsePostgres(opts)
	return c
}

// MySQL returns a config with the MySQL variant active.
func MySQL(opts NetworkOptions) ConnectionConfig {
	var c ConnectionConfig
	c.UseMySQL(opts)
	return c
}

// UseSQLite switches the active variant to sqlite, discarding network options.
func (c *ConnectionConfig) UseSQLite(opts SQLiteOptions) {
	*c = ConnectionConfig{backend: BackendSQLite, sqlite: opts}
}

// UsePostgres switches the active variant to PostgreSQL.
func (c *ConnectionConfig) UsePostgres(opts NetworkOptions) {
	*c = ConnectionConfig{backend: BackendPostgres, network: opts}
}

// UseMySQL switches the active variant to MySQL.
func (c *ConnectionConfig) UseMySQL(opts NetworkOptions) {
	*c = ConnectionConfig{backend: BackendMySQL, network: opts}
}

// Backend reports the active variant.
func (c ConnectionConfig) Backend() Backend {
	if c.backend == "" {
		return BackendSQLite
	}
	return c.backend
}

// SQLiteOptions returns the sqlite payload and whether it is the active variant.
func (c ConnectionConfig) SQLiteOptions() (SQLiteOptions, bool) {
	return c.sqlite, c.Backend() == BackendSQLite
}

// NetworkOptions returns the network payload and whether a network variant is active.
func (c ConnectionConfig) NetworkOptions() (NetworkOptions, bool) {
	return c.network, c.Backend() != BackendSQLite
}

// Validate checks that every field of the active variant is set.
// Errors are marked errors.ErrConfiguration.
func (c ConnectionConfig) Validate() error {
	switch c.Backend() {
	case BackendSQLite:
		if strings.TrimSpace(c.sqlite.Path) == "" {
			return errors.Newk(errors.ErrConfiguration, "sqlite: path is empty")
		}
		return nil
	case BackendPostgres, BackendMySQL:
		n := c.network
		for _, f := range []struct{ name, value string }{
			{"host", n.Host},
			{"database", n.Database},
			{"user", n.User},
			{"password", n.Password},
		} {
			if strings.TrimSpace(f.value) == "" {
				return errors.Newk(errors.ErrConfiguration, "%s: %s is empty", c.Backend(), f.name)
			}
		}
		if n.Port <= 0 {
			return errors.Newk(errors.ErrConfiguration, "%s: port must be > 0, got %d", c.Backend(), n.Port)
		}
		return nil
	default:
		return errors.Newk(errors.ErrConfiguration, "unsupported backend %q", c.backend)
	}
}

// Valid is the boolean form of Validate.
func (c ConnectionConfig) Valid() bool {
	return c.Validate() == nil
}

// DriverName is the database/sql driver registered for the active variant.
func (c ConnectionConfig) DriverName() string {
	switch c.Backend() {
	case BackendPostgres:
		return "pgx"
	case BackendMySQL:
		return "mysql"
	default:
		return "sqlite3"
	}
}

// DSN renders the connection string for DriverName.
func (c ConnectionConfig) DSN() string {
	switch c.Backend() {
	case BackendPostgres:
		return c.postgresURL(c.network.Password).String()
	case BackendMySQL:
		return c.mysqlConfig(c.network.Password).FormatDSN()
	default:
		return sqliteDSN(c.sqlite.Path)
	}
}

// sqliteDSN carries the connection PRAGMAs as go-sqlite3 parameters so every
// connection the pool opens gets them, not only the first.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_journal_mode=WAL&_foreign_keys=on&_busy_timeout=%d", path, sep, SQLiteBusyTimeoutMS)
}

// Redacted is DSN with the password masked, safe for logs.
func (c ConnectionConfig) Redacted() string {
	switch c.Backend() {
	case BackendPostgres:
		return c.postgresURL("xxxxx").String()
	case BackendMySQL:
		return c.mysqlConfig("xxxxx").FormatDSN()
	default:
		return c.sqlite.Path
	}
}

// String implements fmt.Stringer without exposing the password.
func (c ConnectionConfig) String() string {
	return fmt.Sprintf("%s(%s)", c.Backend(), c.Redacted())
}

func (c ConnectionConfig) postgresURL(password string) *url.URL {
	n := c.network
	return &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(n.User, password),
		Host:   net.JoinHostPort(n.Host, strconv.Itoa(n.Port)),
		Path:   "/" + n.Database,
	}
}

func (c ConnectionConfig) mysqlConfig(password string) *mysql.Config {
	n := c.network
	cfg := mysql.NewConfig()
	cfg.User = n.User
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(n.Host, strconv.Itoa(n.Port))
	cfg.DBName = n.Database
	cfg.ParseTime = true
	// Report matched rather than changed rows so an update that rewrites
	// identical values is not mistaken for a missing row
	cfg.ClientFoundRows = true
	return cfg
}
