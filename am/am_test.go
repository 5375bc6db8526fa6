package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/hmis/db"
	"github.com/teranos/hmis/errors"
	"github.com/teranos/hmis/report"
)

func TestLoad_Defaults(t *testing.T) {
	// Create isolated viper instance without loading user/system config
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Backend)
	assert.Equal(t, db.DefaultSQLitePath, cfg.Database.SQLite.Path)
	assert.Equal(t, db.DefaultPostgresPort, cfg.Database.Postgres.Port)
	assert.Equal(t, db.DefaultMySQLPort, cfg.Database.MySQL.Port)
	assert.Equal(t, db.DefaultHost, cfg.Database.MySQL.Host)
	assert.True(t, cfg.Vocabulary.Seed)
	assert.Equal(t, DefaultBackupDir, cfg.Backup.Dir)
	assert.Equal(t, DefaultBackupKeep, cfg.Backup.Keep)
	assert.Equal(t, report.FormatTable, cfg.Report.Format)
	assert.Equal(t, DefaultDebounceMS, cfg.Report.DebounceMS)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		v := viper.New()
		SetDefaults(v)
		cfg, err := LoadWithViper(v)
		require.NoError(t, err)
		return *cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty backend means sqlite", func(c *Config) { c.Database.Backend = "" }, false},
		{"unknown backend", func(c *Config) { c.Database.Backend = "oracle" }, true},
		{"postgres without password", func(c *Config) { c.Database.Backend = "postgres" }, true},
		{"postgres complete", func(c *Config) {
			c.Database.Backend = "postgres"
			c.Database.Postgres.Password = "secret"
		}, false},
		{"mysql zero port", func(c *Config) {
			c.Database.Backend = "mysql"
			c.Database.MySQL.Password = "secret"
			c.Database.MySQL.Port = 0
		}, true},
		{"incomplete unused backend is fine", func(c *Config) { c.Database.MySQL.Host = "" }, false},
		{"zero keep is valid (keep all)", func(c *Config) { c.Backup.Keep = 0 }, false},
		{"negative keep", func(c *Config) { c.Backup.Keep = -1 }, true},
		{"unknown format", func(c *Config) { c.Report.Format = "csv" }, true},
		{"empty format means table", func(c *Config) { c.Report.Format = "" }, false},
		{"negative top", func(c *Config) { c.Report.Top = -1 }, true},
		{"negative debounce", func(c *Config) { c.Report.DebounceMS = -5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsConfigurationError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConnectionConfig(t *testing.T) {
	cfg := Config{Database: DatabaseConfig{
		Backend: "postgresql",
		Postgres: NetworkConfig{
			Host: "db.clinic.local", Port: 5433, Database: "hmis", User: "clerk", Password: "pw",
		},
	}}

	conn, err := cfg.ConnectionConfig()
	require.NoError(t, err)
	assert.Equal(t, db.BackendPostgres, conn.Backend())

	opts, ok := conn.NetworkOptions()
	require.True(t, ok)
	assert.Equal(t, 5433, opts.Port)
	assert.Equal(t, "clerk", opts.User)

	cfg.Database.Backend = "sqlite"
	conn, err = cfg.ConnectionConfig()
	require.NoError(t, err)
	sqlite, ok := conn.SQLiteOptions()
	require.True(t, ok)
	assert.Equal(t, db.DefaultSQLitePath, sqlite.Path)
}

func TestRedacted(t *testing.T) {
	cfg := Config{}
	cfg.Database.Postgres.Password = "secret"

	red := cfg.Redacted()
	assert.Equal(t, "xxxxx", red.Database.Postgres.Password)
	assert.Empty(t, red.Database.MySQL.Password)
	assert.Equal(t, "secret", cfg.Database.Postgres.Password, "original untouched")
}

func TestFindProjectConfig(t *testing.T) {
	t.Run("finds am.toml in parent directory", func(t *testing.T) {
		root := t.TempDir()
		nested := filepath.Join(root, "a", "b")
		require.NoError(t, os.MkdirAll(nested, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "am.toml"), []byte("[report]\n"), 0644))

		t.Chdir(nested)

		found := findProjectConfig()
		resolvedRoot, err := filepath.EvalSymlinks(root)
		require.NoError(t, err)
		resolvedFound, err := filepath.EvalSymlinks(found)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(resolvedRoot, "am.toml"), resolvedFound)
	})

	t.Run("nothing to find", func(t *testing.T) {
		t.Chdir(t.TempDir())
		// A stray am.toml above the temp root would be found; only assert the type
		assert.NotPanics(t, func() { findProjectConfig() })
	})
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[database]
backend = "mysql"

[database.mysql]
host = "10.0.0.5"
password = "pw"

[backup]
keep = 3
`), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Database.Backend)
	assert.Equal(t, "10.0.0.5", cfg.Database.MySQL.Host)
	assert.Equal(t, db.DefaultMySQLPort, cfg.Database.MySQL.Port, "defaults fill the gaps")
	assert.Equal(t, 3, cfg.Backup.Keep)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))
}
