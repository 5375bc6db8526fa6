package db

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/hmis/errors"
)

func TestOpen(t *testing.T) {
	t.Run("opens sqlite database successfully", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.sqlite3")

		db, err := Open(SQLite(SQLiteOptions{Path: dbPath}), nil)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		// Verify WAL mode enabled
		var journalMode string
		err = db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
		require.NoError(t, err)
		assert.Equal(t, "wal", journalMode)

		// Verify foreign keys enabled
		var foreignKeys int
		err = db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys)
		require.NoError(t, err)
		assert.Equal(t, 1, foreignKeys)

		// Verify busy timeout set
		var busyTimeout int
		err = db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout)
		require.NoError(t, err)
		assert.Equal(t, SQLiteBusyTimeoutMS, busyTimeout)
	})

	t.Run("creates database file if it doesn't exist", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "new.sqlite3")

		_, err := os.Stat(dbPath)
		assert.True(t, os.IsNotExist(err))

		db, err := Open(SQLite(SQLiteOptions{Path: dbPath}), nil)
		require.NoError(t, err)
		defer db.Close()

		_, err = os.Stat(dbPath)
		assert.NoError(t, err)
	})

	t.Run("returns connection error for invalid path", func(t *testing.T) {
		db, err := Open(SQLite(SQLiteOptions{Path: "/invalid/nonexistent/path/db.sqlite3"}), nil)
		require.Error(t, err)
		assert.Nil(t, db)

		assert.True(t, errors.Is(err, errors.ErrConnection))
		assert.NotNil(t, errors.GetStack(err), "error should have stack trace from errors.Wrap")
	})

	t.Run("invalid config fails before opening", func(t *testing.T) {
		called := false
		restore := sqlOpen
		sqlOpen = func(driver, dsn string) (*sql.DB, error) {
			called = true
			return restore(driver, dsn)
		}
		defer func() { sqlOpen = restore }()

		db, err := Open(Postgres(NetworkOptions{Host: "db.clinic.local", Port: 5432, User: "hmis"}), nil)
		require.Error(t, err)
		assert.Nil(t, db)
		assert.True(t, errors.IsConfigurationError(err))
		assert.False(t, called, "no connection attempt for an invalid config")
	})

	t.Run("unregistered driver is a configuration error", func(t *testing.T) {
		restore := registeredDrivers
		registeredDrivers = func() []string { return []string{"pgx"} }
		defer func() { registeredDrivers = restore }()

		db, err := Open(SQLite(SQLiteOptions{Path: filepath.Join(t.TempDir(), "x.sqlite3")}), nil)
		require.Error(t, err)
		assert.Nil(t, db)
		assert.True(t, errors.IsConfigurationError(err))
		assert.Contains(t, err.Error(), `"sqlite3" is not available`)
		assert.NotEmpty(t, errors.GetAllHints(err))
	})

	t.Run("in-memory database survives between statements", func(t *testing.T) {
		db, err := Open(SQLite(SQLiteOptions{Path: ":memory:"}), nil)
		require.NoError(t, err)
		defer db.Close()

		_, err = db.Exec("CREATE TABLE t (v INTEGER)")
		require.NoError(t, err)
		_, err = db.Exec("INSERT INTO t (v) VALUES (1)")
		require.NoError(t, err)

		var n int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM t").Scan(&n))
		assert.Equal(t, 1, n)
	})
}

func TestOpen_SQLitePragmasOnEveryConnection(t *testing.T) {
	db, err := Open(SQLite(SQLiteOptions{Path: filepath.Join(t.TempDir(), "pool.sqlite3")}), nil)
	require.NoError(t, err)
	defer db.Close()

	// No idle connections: each statement below runs on a fresh connection
	db.SetMaxIdleConns(0)

	for i := 0; i < 2; i++ {
		var foreignKeys, busyTimeout int
		require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
		require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
		assert.Equal(t, 1, foreignKeys)
		assert.Equal(t, SQLiteBusyTimeoutMS, busyTimeout)
	}

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)
}

func TestOpen_WithLogger(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.sqlite3")

	logger := zaptest.NewLogger(t).Sugar()
	db, err := Open(SQLite(SQLiteOptions{Path: dbPath}), logger)
	require.NoError(t, err)
	require.NotNil(t, db)
	defer db.Close()
}

func TestCheckpoint(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "wal.sqlite3")
	db, err := Open(SQLite(SQLiteOptions{Path: dbPath}), nil)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("CREATE TABLE t (v INTEGER)")
	require.NoError(t, err)

	require.NoError(t, Checkpoint(db))

	info, err := os.Stat(dbPath + "-wal")
	if err == nil {
		assert.Zero(t, info.Size(), "TRUNCATE checkpoint empties the WAL")
	}
}
