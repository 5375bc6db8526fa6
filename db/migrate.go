package db

import (
	"database/sql"
	"embed"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/hmis/errors"
	"github.com/teranos/hmis/logger"
)

//go:embed sqlite/migrations/*.sql postgres/migrations/*.sql mysql/migrations/*.sql
var migrations embed.FS

// Migrate runs all pending migrations for backend. It is safe to call on every
// startup: applied versions are recorded in schema_migrations and every DDL
// statement is create-if-absent. Failures are errors.ErrSchema.
// If logger is provided, logs migration progress; otherwise operates silently.
func Migrate(db *sql.DB, backend Backend, log *zap.SugaredLogger) error {
	dir := migrationDir(backend)

	entries, err := migrations.ReadDir(dir)
	if err != nil {
		return errors.Markf(err, errors.ErrSchema, "read migrations")
	}

	// Sort migrations (000_create_schema_migrations.sql runs first)
	var migrationFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			migrationFiles = append(migrationFiles, entry.Name())
		}
	}
	sort.Strings(migrationFiles)

	applied := 0
	for _, filename := range migrationFiles {
		version := strings.Split(filename, "_")[0]

		// Check if already applied (schema_migrations created by 000)
		var exists bool
		err := db.QueryRow(
			Rebind(backend, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)"),
			version,
		).Scan(&exists)
		if err != nil {
			// Table doesn't exist yet - this must be migration 000
			if version != "000" {
				return errors.Markf(err, errors.ErrSchema, "schema_migrations table missing, but migration is not 000: %s", filename)
			}
		} else if exists {
			if log != nil {
				log.Debugw("Skipping migration (already applied)",
					logger.FieldMigration, filename,
					logger.FieldBackend, backend,
				)
			}
			continue
		}

		sqlBytes, err := migrations.ReadFile(path.Join(dir, filename))
		if err != nil {
			return errors.Markf(err, errors.ErrSchema, "read %s", filename)
		}

		if log != nil {
			log.Infow("Applying migration",
				logger.FieldMigration, filename,
				logger.FieldBackend, backend,
			)
		}

		tx, err := db.Begin()
		if err != nil {
			return errors.Markf(err, errors.ErrSchema, "begin tx for %s", filename)
		}

		if _, err := tx.Exec(string(sqlBytes)); err != nil {
			tx.Rollback()
			return errors.Markf(err, errors.ErrSchema, "execute %s", filename)
		}

		// Record migration (000 creates the table, then records itself)
		if _, err := tx.Exec(Rebind(backend, "INSERT INTO schema_migrations (version) VALUES (?)"), version); err != nil {
			tx.Rollback()
			return errors.Markf(err, errors.ErrSchema, "record %s", filename)
		}

		if err := tx.Commit(); err != nil {
			return errors.Markf(err, errors.ErrSchema, "commit %s", filename)
		}
		applied++
	}

	if log != nil {
		log.Infow("Migrations complete",
			logger.FieldBackend, backend,
			"total_migrations", len(migrationFiles),
			"applied", applied,
		)
	}

	return nil
}
