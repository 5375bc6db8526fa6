package store

import (
	"database/sql"
	"net/url"
	"os"
	"path/filepath"

	"github.com/teranos/hmis/db"
	"github.com/teranos/hmis/encounter"
	"github.com/teranos/hmis/errors"
	"github.com/teranos/hmis/logger"
)

// ImportResult counts what ImportFrom did with each source row.
type ImportResult struct {
	Imported   int `json:"imported" yaml:"imported"`
	Duplicates int `json:"duplicates" yaml:"duplicates"`
	Invalid    int `json:"invalid" yaml:"invalid"`
}

// Path returns the sqlite file backing the store, or "" for network backends.
func (s *Store) Path() string {
	opts, ok := s.cfg.SQLiteOptions()
	if !ok || s.backend != db.BackendSQLite {
		return ""
	}
	return opts.Path
}

// Backup writes a byte-level snapshot of the sqlite file into dir and returns
// its path. Only the sqlite backend can be backed up this way.
func (s *Store) Backup(dir string) (string, error) {
	path, err := s.filePath()
	if err != nil {
		return "", err
	}
	conn, err := s.conn()
	if err != nil {
		return "", err
	}
	if err := db.Checkpoint(conn); err != nil {
		return "", err
	}

	snapshot, err := db.Backup(path, dir)
	if err != nil {
		return "", err
	}
	s.logger.Infow("Backed up database",
		logger.FieldPath, path,
		logger.FieldFile, snapshot,
	)
	return snapshot, nil
}

// Restore replaces the sqlite file with snapshot's bytes and reconnects.
// The schema is ensured afterwards so an older snapshot is brought up to date.
func (s *Store) Restore(snapshot string) error {
	path, err := s.filePath()
	if err != nil {
		return err
	}
	if err := s.Close(); err != nil {
		return errors.Markf(err, errors.ErrConnection, "close before restore")
	}

	restoreErr := db.Restore(snapshot, path)

	// Reconnect even when the restore failed so the store stays usable
	if err := s.Connect(s.cfg); err != nil {
		if restoreErr != nil {
			return errors.WithSecondaryError(restoreErr, err)
		}
		return err
	}
	if restoreErr != nil {
		return restoreErr
	}
	if err := s.CreateSchema(); err != nil {
		return err
	}

	s.logger.Infow("Restored database",
		logger.FieldPath, path,
		logger.FieldFile, snapshot,
	)
	return nil
}

// ImportFrom copies the encounters of another sqlite database file into this
// store. The source is opened read-only. Files written by the desktop
// application, which name the patient id column ip_number, are accepted.
// Rows that would duplicate an existing (patient id, year, month) are counted
// as duplicates; rows outside the enumerations or without a patient id are
// counted as invalid. Source ids are not preserved.
func (s *Store) ImportFrom(path string) (ImportResult, error) {
	var result ImportResult

	if _, err := os.Stat(path); err != nil {
		return result, errors.Markf(err, errors.ErrConnection, "open backup %s", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return result, errors.Markf(err, errors.ErrConnection, "open backup %s", path)
	}
	dsn := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=ro"}).String()

	src, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return result, errors.Markf(err, errors.ErrConnection, "open backup %s", path)
	}
	defer src.Close()

	rows, err := readLegacyEncounters(src)
	if err != nil {
		return result, errors.Wrapf(err, "read backup %s", path)
	}

	for _, e := range rows {
		if err := e.Validate(); err != nil {
			result.Invalid++
			s.logger.Debugw("Skipping invalid backup row",
				logger.FieldPatientID, e.PatientID,
				logger.FieldError, err,
			)
			continue
		}
		if _, err := s.SaveEncounter(e); err != nil {
			if errors.IsConstraintViolation(err) {
				result.Duplicates++
				continue
			}
			return result, err
		}
		result.Imported++
	}

	s.logger.Infow("Imported backup",
		logger.FieldFile, path,
		logger.FieldCount, result.Imported,
		"duplicates", result.Duplicates,
		logger.FieldSkipped, result.Invalid,
	)
	return result, nil
}

func (s *Store) filePath() (string, error) {
	path := s.Path()
	if path == "" {
		return "", errors.Newk(errors.ErrConfiguration,
			"file backup and restore need the sqlite backend, store uses %s", s.backend)
	}
	if path == ":memory:" {
		return "", errors.Newk(errors.ErrConfiguration, "an in-memory database has no file to back up")
	}
	return path, nil
}

// readLegacyEncounters loads every hmis row from src, whichever name its
// patient id column has.
func readLegacyEncounters(src *sql.DB) ([]encounter.Encounter, error) {
	idColumn, err := patientIDColumn(src)
	if err != nil {
		return nil, err
	}

	rows, err := src.Query(`
		SELECT age_category, month, year, sex, new_attendance, diagnosis, ` + idColumn + `
		FROM hmis
		ORDER BY id`)
	if err != nil {
		return nil, errors.Markf(err, errors.ErrQuery, "select backup rows")
	}
	defer rows.Close()

	var out []encounter.Encounter
	for rows.Next() {
		var (
			e                    encounter.Encounter
			age, sex, attendance string
			diagnosis, patientID sql.NullString
		)
		if err := rows.Scan(&age, &e.Month, &e.Year, &sex, &attendance, &diagnosis, &patientID); err != nil {
			return nil, errors.Markf(err, errors.ErrQuery, "scan backup row")
		}
		e.AgeCategory = encounter.AgeCategory(age)
		e.Sex = encounter.Sex(sex)
		e.Attendance = encounter.Attendance(attendance)
		e.Diagnoses = encounter.SplitDiagnoses(diagnosis.String)
		e.PatientID = patientID.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Markf(err, errors.ErrQuery, "iterate backup rows")
	}
	return out, nil
}

func patientIDColumn(src *sql.DB) (string, error) {
	rows, err := src.Query("PRAGMA table_info(hmis)")
	if err != nil {
		return "", errors.Markf(err, errors.ErrQuery, "inspect backup schema")
	}
	defer rows.Close()

	columns := map[string]bool{}
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return "", errors.Markf(err, errors.ErrQuery, "scan backup schema")
		}
		columns[name] = true
	}
	if err := rows.Err(); err != nil {
		return "", errors.Markf(err, errors.ErrQuery, "inspect backup schema")
	}

	switch {
	case columns["patient_id"]:
		return "patient_id", nil
	case columns["ip_number"]:
		return "ip_number", nil
	case len(columns) == 0:
		return "", errors.Newk(errors.ErrSchema, "backup has no hmis table")
	default:
		return "", errors.Newk(errors.ErrSchema, "backup hmis table has no patient id column")
	}
}
