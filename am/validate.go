package am

import (
	"strings"

	"github.com/teranos/hmis/db"
	"github.com/teranos/hmis/errors"
	"github.com/teranos/hmis/report"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Only the selected backend has to be complete
	if _, err := c.ConnectionConfig(); err != nil {
		return err
	}

	// Backup keep: 0 = keep everything, negative = invalid
	if c.Backup.Keep < 0 {
		return errors.Newk(errors.ErrConfiguration, "backup.keep must be >= 0, got %d", c.Backup.Keep)
	}

	format := c.GetReportFormat()
	known := false
	for _, f := range report.Formats {
		if f == format {
			known = true
		}
	}
	if !known {
		return errors.WithHintf(
			errors.Newk(errors.ErrConfiguration, "report.format %q is not supported", format),
			"use one of %v", report.Formats)
	}

	if c.Report.Top < 0 {
		return errors.Newk(errors.ErrConfiguration, "report.top must be >= 0, got %d", c.Report.Top)
	}
	if c.Report.DebounceMS < 0 {
		return errors.Newk(errors.ErrConfiguration, "report.debounce_ms must be >= 0, got %d", c.Report.DebounceMS)
	}

	return nil
}

// ConnectionConfig builds the connection for the selected backend and validates it.
func (c *Config) ConnectionConfig() (db.ConnectionConfig, error) {
	name := c.Database.Backend
	if strings.TrimSpace(name) == "" {
		name = string(db.BackendSQLite)
	}
	backend, err := db.ParseBackend(name)
	if err != nil {
		return db.ConnectionConfig{}, errors.Wrap(err, "database.backend")
	}

	var cfg db.ConnectionConfig
	switch backend {
	case db.BackendPostgres:
		cfg = db.Postgres(c.Database.Postgres.options())
	case db.BackendMySQL:
		cfg = db.MySQL(c.Database.MySQL.options())
	default:
		cfg = db.SQLite(db.SQLiteOptions{Path: c.GetDatabasePath()})
	}

	if err := cfg.Validate(); err != nil {
		return db.ConnectionConfig{}, errors.WithHintf(err,
			"set it under [database.%s] in am.toml or via HMIS_DATABASE_%s_* variables",
			backend, strings.ToUpper(string(backend)))
	}
	return cfg, nil
}

func (n NetworkConfig) options() db.NetworkOptions {
	return db.NetworkOptions{
		Host:     n.Host,
		Port:     n.Port,
		Database: n.Database,
		User:     n.User,
		Password: n.Password,
	}
}
