package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/hmis/db"
	"github.com/teranos/hmis/errors"
	hmistest "github.com/teranos/hmis/internal/testing"
)

func openFileStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(hmistest.SQLiteFileConfig(t), zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	s := openFileStore(t)

	assert.Equal(t, db.BackendSQLite, s.Backend())
	assert.NotEmpty(t, s.Path())

	// Schema creation is idempotent and keeps rows
	_, err := s.SaveEncounter(sampleEncounter("001"))
	require.NoError(t, err)
	require.NoError(t, s.CreateSchema())
	assert.Equal(t, 1, countRows(t, s))
}

func TestOpen_InvalidConfig(t *testing.T) {
	_, err := Open(db.SQLite(db.SQLiteOptions{}), nil)
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))
}

func TestConnect_KeepsPreviousConnectionOnFailure(t *testing.T) {
	s := openFileStore(t)
	_, err := s.SaveEncounter(sampleEncounter("001"))
	require.NoError(t, err)

	err = s.Connect(db.SQLite(db.SQLiteOptions{Path: "/nonexistent/dir/hmis.sqlite3"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConnection))

	out, err := s.FetchEncounters(2024, 6)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestClose(t *testing.T) {
	s := openFileStore(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.ListDiagnoses()
	require.Error(t, err)
	assert.True(t, db.IsDatabaseClosed(err))
}

func TestBackupRestore(t *testing.T) {
	s := openFileStore(t)
	dir := t.TempDir()

	_, err := s.SaveEncounter(sampleEncounter("001", "Malaria"))
	require.NoError(t, err)

	snapshot, err := s.Backup(dir)
	require.NoError(t, err)
	assert.FileExists(t, snapshot)

	_, err = s.SaveEncounter(sampleEncounter("002", "Flu"))
	require.NoError(t, err)
	assert.Equal(t, 2, countRows(t, s))

	require.NoError(t, s.Restore(snapshot))

	out, err := s.FetchEncounters(2024, 6)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "001", out[0].PatientID)
}

func TestRestore_MissingSnapshotKeepsStoreUsable(t *testing.T) {
	s := openFileStore(t)
	_, err := s.SaveEncounter(sampleEncounter("001"))
	require.NoError(t, err)

	err = s.Restore(filepath.Join(t.TempDir(), "missing.sqlite3"))
	require.Error(t, err)

	assert.Equal(t, 1, countRows(t, s))
}

func TestBackup_NeedsSQLiteFile(t *testing.T) {
	t.Run("in-memory", func(t *testing.T) {
		s, err := Open(db.SQLite(db.SQLiteOptions{Path: ":memory:"}), nil)
		require.NoError(t, err)
		defer s.Close()

		_, err = s.Backup(t.TempDir())
		require.Error(t, err)
		assert.True(t, errors.IsConfigurationError(err))
	})

	t.Run("network backend", func(t *testing.T) {
		s, _ := newMockStore(t, db.BackendPostgres)

		_, err := s.Backup(t.TempDir())
		require.Error(t, err)
		assert.True(t, errors.IsConfigurationError(err))
	})
}

// writeLegacyDatabase creates a file laid out like the desktop application's,
// with the patient id stored in ip_number.
func writeLegacyDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "legacy.db")

	legacy, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer legacy.Close()

	_, err = legacy.Exec(`CREATE TABLE hmis (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		age_category TEXT,
		month INTEGER,
		year INTEGER,
		sex TEXT,
		new_attendance TEXT DEFAULT 'YES',
		diagnosis TEXT,
		ip_number TEXT
	)`)
	require.NoError(t, err)

	rows := [][]interface{}{
		{"20 years and above", 6, 2024, "Male", "YES", "Malaria", "001"},
		{"20 years and above", 6, 2024, "Female", "NO", "Malaria____Flu", "002"},
		{"0 - 28 days", 6, 2024, "Female", "YES", nil, "003"},
		{"20 years and above", 6, 2024, "Unknown", "YES", "Flu", "004"},
		{"10 - 19 years", 6, 2024, "Male", "YES", "Flu", ""},
	}
	for _, r := range rows {
		_, err := legacy.Exec(`INSERT INTO hmis (age_category, month, year, sex, new_attendance, diagnosis, ip_number)
			VALUES (?, ?, ?, ?, ?, ?, ?)`, r...)
		require.NoError(t, err)
	}
	return path
}

func TestImportFrom(t *testing.T) {
	t.Run("legacy ip_number file", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.SaveEncounter(sampleEncounter("001"))
		require.NoError(t, err)

		result, err := s.ImportFrom(writeLegacyDatabase(t))
		require.NoError(t, err)
		assert.Equal(t, ImportResult{Imported: 2, Duplicates: 1, Invalid: 2}, result)

		out, err := s.FetchEncounters(2024, 6)
		require.NoError(t, err)
		require.Len(t, out, 3)
		assert.Equal(t, []string{"Malaria", "Flu"}, out[1].Diagnoses)
		assert.Empty(t, out[2].Diagnoses)
	})

	t.Run("file written by this store", func(t *testing.T) {
		src := openFileStore(t)
		_, err := src.SaveEncounter(sampleEncounter("010", "Typhoid"))
		require.NoError(t, err)
		require.NoError(t, db.Checkpoint(src.db))

		dst := newTestStore(t)
		result, err := dst.ImportFrom(src.Path())
		require.NoError(t, err)
		assert.Equal(t, 1, result.Imported)
	})

	t.Run("missing file", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.ImportFrom(filepath.Join(t.TempDir(), "absent.db"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrConnection))
	})

	t.Run("file without encounters", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.db")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		s := newTestStore(t)
		_, err := s.ImportFrom(path)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrSchema))
	})
}
