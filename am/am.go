// Package am loads the hmis configuration from defaults, TOML files and
// HMIS_* environment variables.
package am

// Config represents the hmis configuration
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database" toml:"database" yaml:"database" json:"database"`
	Vocabulary VocabularyConfig `mapstructure:"vocabulary" toml:"vocabulary" yaml:"vocabulary" json:"vocabulary"`
	Backup     BackupConfig     `mapstructure:"backup" toml:"backup" yaml:"backup" json:"backup"`
	Report     ReportConfig     `mapstructure:"report" toml:"report" yaml:"report" json:"report"`
}

// DatabaseConfig selects the backend and holds the settings of each.
// Only the section named by Backend is used.
type DatabaseConfig struct {
	Backend  string        `mapstructure:"backend" toml:"backend" yaml:"backend" json:"backend"` // sqlite, postgres or mysql
	SQLite   SQLiteConfig  `mapstructure:"sqlite" toml:"sqlite" yaml:"sqlite" json:"sqlite"`
	Postgres NetworkConfig `mapstructure:"postgres" toml:"postgres" yaml:"postgres" json:"postgres"`
	MySQL    NetworkConfig `mapstructure:"mysql" toml:"mysql" yaml:"mysql" json:"mysql"`
}

// SQLiteConfig configures the embedded file database
type SQLiteConfig struct {
	Path string `mapstructure:"path" toml:"path" yaml:"path" json:"path"`
}

// NetworkConfig configures a PostgreSQL or MySQL server
type NetworkConfig struct {
	Host     string `mapstructure:"host" toml:"host" yaml:"host" json:"host"`
	Port     int    `mapstructure:"port" toml:"port" yaml:"port" json:"port"`
	Database string `mapstructure:"database" toml:"database" yaml:"database" json:"database"`
	User     string `mapstructure:"user" toml:"user" yaml:"user" json:"user"`
	Password string `mapstructure:"password" toml:"password,omitempty" yaml:"password,omitempty" json:"password,omitempty"`
}

// VocabularyConfig points at the diagnosis list used for seeding
type VocabularyConfig struct {
	File string `mapstructure:"file" toml:"file" yaml:"file" json:"file"` // empty = built-in list
	Seed bool   `mapstructure:"seed" toml:"seed" yaml:"seed" json:"seed"` // seed an empty vocabulary on db init
}

// BackupConfig configures sqlite snapshots
type BackupConfig struct {
	Dir  string `mapstructure:"dir" toml:"dir" yaml:"dir" json:"dir"`
	Keep int    `mapstructure:"keep" toml:"keep" yaml:"keep" json:"keep"` // 0 = keep all
}

// ReportConfig sets report defaults
type ReportConfig struct {
	Format     string `mapstructure:"format" toml:"format" yaml:"format" json:"format"` // table, json, yaml, toml
	HideEmpty  bool   `mapstructure:"hide_empty" toml:"hide_empty" yaml:"hide_empty" json:"hide_empty"`
	Top        int    `mapstructure:"top" toml:"top" yaml:"top" json:"top"`
	DebounceMS int    `mapstructure:"debounce_ms" toml:"debounce_ms" yaml:"debounce_ms" json:"debounce_ms"` // report --watch
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
	SecretFilePermissions  = 0600 // Files that may hold passwords
)
