package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every config location at a fresh temp tree and resets state.
// It returns the system, user and project config paths.
func isolate(t *testing.T) (system, user, project string) {
	t.Helper()
	Reset()
	t.Cleanup(Reset)

	root := t.TempDir()
	home := filepath.Join(root, "home")
	work := filepath.Join(root, "work")
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".hmis"), 0755))
	require.NoError(t, os.MkdirAll(work, 0755))

	t.Setenv("HOME", home)
	t.Chdir(work)

	previous := SystemConfigPath
	SystemConfigPath = filepath.Join(root, "etc", "config.toml")
	t.Cleanup(func() { SystemConfigPath = previous })

	return SystemConfigPath, filepath.Join(home, ".hmis", "am.toml"), filepath.Join(work, "am.toml")
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoad_Precedence(t *testing.T) {
	system, user, project := isolate(t)

	write(t, system, `
[database]
backend = "postgres"
[database.postgres]
host = "system-host"
port = 6000
`)
	write(t, user, `
[database.postgres]
host = "user-host"
`)
	write(t, project, `
[report]
format = "json"
`)
	t.Setenv("HMIS_POSTGRES_PASSWORD", "from-env")
	t.Setenv("HMIS_REPORT_TOP", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Backend)
	assert.Equal(t, "user-host", cfg.Database.Postgres.Host, "user file overrides system")
	assert.Equal(t, 6000, cfg.Database.Postgres.Port, "system value kept where user is silent")
	assert.Equal(t, "json", cfg.Report.Format)
	assert.Equal(t, "from-env", cfg.Database.Postgres.Password)
	assert.Equal(t, 3, cfg.Report.Top)

	assert.Equal(t, SourceSystem, ConfigSources["database.postgres.port"].Source)
	assert.Equal(t, SourceUser, ConfigSources["database.postgres.host"].Source)
	assert.Equal(t, project, ConfigSources["report.format"].Path)
}

func TestLoad_EnvBeatsFiles(t *testing.T) {
	_, user, _ := isolate(t)
	write(t, user, "[database.sqlite]\npath = \"file.sqlite3\"\n")
	t.Setenv("HMIS_DATABASE_PATH", "env.sqlite3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env.sqlite3", cfg.Database.SQLite.Path)
}

func TestLoad_MalformedFile(t *testing.T) {
	_, user, _ := isolate(t)
	write(t, user, "[database\n")

	_, err := Load()
	require.Error(t, err)
}

func TestGetConfigIntrospection(t *testing.T) {
	_, user, _ := isolate(t)
	write(t, user, "[backup]\nkeep = 4\n[database.mysql]\npassword = \"hunter2\"\n")
	t.Setenv("HMIS_REPORT_FORMAT", "yaml")

	settings, err := GetConfigIntrospection()
	require.NoError(t, err)

	byKey := map[string]SettingInfo{}
	for _, s := range settings {
		byKey[s.Key] = s
	}

	assert.Equal(t, SourceUser, byKey["backup.keep"].Source)
	assert.Equal(t, user, byKey["backup.keep"].SourcePath)

	assert.Equal(t, SourceEnvironment, byKey["report.format"].Source)
	assert.Equal(t, "HMIS_REPORT_FORMAT", byKey["report.format"].SourcePath)

	assert.Equal(t, SourceDefault, byKey["backup.dir"].Source)
	assert.Equal(t, "xxxxx", byKey["database.mysql.password"].Value)

	summary := GetConfigSummary()
	assert.Equal(t, 1, summary[SourceEnvironment])
	assert.Equal(t, 2, summary[SourceUser])
}
