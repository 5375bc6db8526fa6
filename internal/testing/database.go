package testing

import (
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/teranos/hmis/db"
)

// CreateTestDB creates an in-memory SQLite database with the schema applied.
// Automatically registers cleanup via t.Cleanup().
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.SQLite(db.SQLiteOptions{Path: ":memory:"}), zaptest.NewLogger(t).Sugar())
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
	})

	if err := db.Migrate(conn, db.BackendSQLite, zaptest.NewLogger(t).Sugar()); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return conn
}

// SQLiteFileConfig returns a config for a fresh database file in a temporary
// directory that is removed when the test ends.
func SQLiteFileConfig(t *testing.T) db.ConnectionConfig {
	t.Helper()
	return db.SQLite(db.SQLiteOptions{Path: filepath.Join(t.TempDir(), "hmis.sqlite3")})
}

// PostgresConfig reads HMIS_TEST_POSTGRES_* and skips the test when no
// server is configured.
func PostgresConfig(t *testing.T) db.ConnectionConfig {
	t.Helper()
	return networkConfig(t, db.BackendPostgres, "HMIS_TEST_POSTGRES")
}

// MySQLConfig reads HMIS_TEST_MYSQL_* and skips the test when no server is
// configured.
func MySQLConfig(t *testing.T) db.ConnectionConfig {
	t.Helper()
	return networkConfig(t, db.BackendMySQL, "HMIS_TEST_MYSQL")
}

func networkConfig(t *testing.T, backend db.Backend, prefix string) db.ConnectionConfig {
	t.Helper()

	host := os.Getenv(prefix + "_HOST")
	if host == "" {
		t.Skipf("%s_HOST not set, skipping live %s test", prefix, backend)
	}

	port := db.DefaultPostgresPort
	if backend == db.BackendMySQL {
		port = db.DefaultMySQLPort
	}
	if raw := os.Getenv(prefix + "_PORT"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			t.Fatalf("%s_PORT: %v", prefix, err)
		}
		port = p
	}

	opts := db.NetworkOptions{
		Host:     host,
		Port:     port,
		Database: os.Getenv(prefix + "_DATABASE"),
		User:     os.Getenv(prefix + "_USER"),
		Password: os.Getenv(prefix + "_PASSWORD"),
	}
	if backend == db.BackendMySQL {
		return db.MySQL(opts)
	}
	return db.Postgres(opts)
}
