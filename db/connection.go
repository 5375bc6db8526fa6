package db

import (
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/teranos/hmis/errors"
	"github.com/teranos/hmis/logger"
)

// SQLiteBusyTimeoutMS is how long sqlite waits on a locked database file.
const SQLiteBusyTimeoutMS = 5000

// Seams for tests.
var (
	sqlOpen           = sql.Open
	registeredDrivers = sql.Drivers
)

// Open validates cfg and opens a connection to the selected backend.
// An invalid config or an unregistered driver fails with errors.ErrConfiguration
// before any connection attempt; open or ping failures are errors.ErrConnection.
// If logger is provided, logs database operations; otherwise operates silently.
func Open(cfg ConnectionConfig, log *zap.SugaredLogger) (*sql.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	driver := cfg.DriverName()
	if !driverRegistered(driver) {
		return nil, errors.WithHint(
			errors.Newk(errors.ErrConfiguration, "%s: database/sql driver %q is not available", cfg.Backend(), driver),
			"rebuild hmis with cgo enabled for sqlite, or choose another backend")
	}

	if log != nil {
		log.Debugw("Opening database",
			logger.FieldBackend, cfg.Backend(),
			"dsn", cfg.Redacted(),
		)
	}

	db, err := sqlOpen(driver, cfg.DSN())
	if err != nil {
		return nil, errors.Markf(err, errors.ErrConnection, "failed to open %s database", cfg.Backend())
	}

	// One live connection per store. For sqlite this lets :memory: databases
	// survive between calls.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Markf(err, errors.ErrConnection, "failed to connect to %s", cfg.Redacted())
	}

	if log != nil {
		log.Infow("Database opened successfully",
			logger.FieldBackend, cfg.Backend(),
			"dsn", cfg.Redacted(),
		)
	}

	return db, nil
}

// Checkpoint folds the sqlite WAL into the main database file so that a
// byte-level copy of the file is complete.
func Checkpoint(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errors.Markf(err, errors.ErrQuery, "failed to checkpoint WAL")
	}
	return nil
}

func driverRegistered(name string) bool {
	for _, d := range registeredDrivers() {
		if d == name {
			return true
		}
	}
	return false
}
