package am

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/teranos/hmis/db"
	"github.com/teranos/hmis/report"
)

// Defaults that are not database settings
const (
	DefaultBackupDir  = "backups"
	DefaultBackupKeep = 10
	DefaultReportTop  = 10
	DefaultDebounceMS = 500
	DefaultDatabase   = "hmis" // database and user name on network backends
	EnvPrefix         = "HMIS"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.backend", string(db.BackendSQLite))
	v.SetDefault("database.sqlite.path", db.DefaultSQLitePath)

	v.SetDefault("database.postgres.host", db.DefaultHost)
	v.SetDefault("database.postgres.port", db.DefaultPostgresPort)
	v.SetDefault("database.postgres.database", DefaultDatabase)
	v.SetDefault("database.postgres.user", DefaultDatabase)
	v.SetDefault("database.postgres.password", "")

	v.SetDefault("database.mysql.host", db.DefaultHost)
	v.SetDefault("database.mysql.port", db.DefaultMySQLPort)
	v.SetDefault("database.mysql.database", DefaultDatabase)
	v.SetDefault("database.mysql.user", DefaultDatabase)
	v.SetDefault("database.mysql.password", "")

	// Vocabulary defaults
	v.SetDefault("vocabulary.file", "")   // built-in list
	v.SetDefault("vocabulary.seed", true) // seed on db init

	// Backup defaults
	v.SetDefault("backup.dir", DefaultBackupDir)
	v.SetDefault("backup.keep", DefaultBackupKeep)

	// Report defaults
	v.SetDefault("report.format", report.FormatTable)
	v.SetDefault("report.hide_empty", false)
	v.SetDefault("report.top", DefaultReportTop)
	v.SetDefault("report.debounce_ms", DefaultDebounceMS)
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	// Passwords get short names so they are easy to inject from a secret store
	v.BindEnv("database.postgres.password", "HMIS_POSTGRES_PASSWORD", "HMIS_DATABASE_POSTGRES_PASSWORD")
	v.BindEnv("database.mysql.password", "HMIS_MYSQL_PASSWORD", "HMIS_DATABASE_MYSQL_PASSWORD")

	// Database path and backend
	v.BindEnv("database.sqlite.path", "HMIS_DATABASE_PATH", "HMIS_DATABASE_SQLITE_PATH")
	v.BindEnv("database.backend", "HMIS_BACKEND", "HMIS_DATABASE_BACKEND")
}

// GetDatabasePath returns the sqlite path, falling back to the default
func (c *Config) GetDatabasePath() string {
	if c.Database.SQLite.Path == "" {
		return db.DefaultSQLitePath
	}
	return c.Database.SQLite.Path
}

// GetBackupDir returns the snapshot directory (default: backups)
func (c *Config) GetBackupDir() string {
	if c.Backup.Dir == "" {
		return DefaultBackupDir
	}
	return c.Backup.Dir
}

// GetReportFormat returns the report format (default: table)
func (c *Config) GetReportFormat() string {
	if c.Report.Format == "" {
		return report.FormatTable
	}
	return c.Report.Format
}

// GetDebounceMS returns the watch debounce, applying the default for zero
func (c *Config) GetDebounceMS() int {
	if c.Report.DebounceMS == 0 {
		return DefaultDebounceMS
	}
	return c.Report.DebounceMS
}

// Redacted returns a copy with passwords masked, for display
func (c *Config) Redacted() *Config {
	out := *c
	if out.Database.Postgres.Password != "" {
		out.Database.Postgres.Password = "xxxxx"
	}
	if out.Database.MySQL.Password != "" {
		out.Database.MySQL.Password = "xxxxx"
	}
	return &out
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: {Backend: %s, Path: %s}, Backup: {Dir: %s, Keep: %d}, Report: {Format: %s}}",
		c.Database.Backend, c.Database.SQLite.Path, c.Backup.Dir, c.Backup.Keep, c.Report.Format)
}
