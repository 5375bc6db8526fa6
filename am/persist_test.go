package am

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/hmis/errors"
)

func TestSave(t *testing.T) {
	_, user, _ := isolate(t)

	cfg := &Config{}
	cfg.Database.Backend = "mysql"
	cfg.Database.MySQL = NetworkConfig{Host: "db", Port: 3307, Database: "hmis", User: "clerk", Password: "pw"}
	cfg.Backup.Keep = 2

	require.NoError(t, Save(cfg, user))

	info, err := os.Stat(user)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(SecretFilePermissions), info.Mode().Perm())

	loaded, err := LoadFromFile(user)
	require.NoError(t, err)
	assert.Equal(t, "mysql", loaded.Database.Backend)
	assert.Equal(t, cfg.Database.MySQL, loaded.Database.MySQL)
	assert.Equal(t, 2, loaded.Backup.Keep)
}

func TestSetValue(t *testing.T) {
	_, user, _ := isolate(t)
	write(t, user, "[report]\nformat = \"json\"\n")

	require.NoError(t, SetValue(user, "database.backend", "postgres"))
	require.NoError(t, SetValue(user, "database.postgres.port", "6543"))
	require.NoError(t, SetValue(user, "report.hide_empty", "true"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Backend)
	assert.Equal(t, 6543, cfg.Database.Postgres.Port)
	assert.True(t, cfg.Report.HideEmpty)
	assert.Equal(t, "json", cfg.Report.Format, "other settings kept")

	err = SetValue(user, "database.colour", "blue")
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))
}

func TestCreateBackup_Rotates(t *testing.T) {
	_, user, _ := isolate(t)

	for _, v := range []string{"1", "2", "3", "4", "5"} {
		require.NoError(t, SetValue(user, "backup.keep", v))
	}

	cfg, err := LoadFromFile(user)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Backup.Keep)

	for suffix, want := range map[string]int{".back1": 4, ".back2": 3, ".back3": 2} {
		old, err := LoadFromFile(user + suffix)
		require.NoError(t, err, suffix)
		assert.Equal(t, want, old.Backup.Keep, suffix)
	}
	_, err = os.Stat(user + ".back4")
	assert.True(t, os.IsNotExist(err))
}
