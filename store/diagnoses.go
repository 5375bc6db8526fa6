package store

import (
	"database/sql"
	"strings"

	"github.com/teranos/hmis/db"
	"github.com/teranos/hmis/encounter"
	"github.com/teranos/hmis/errors"
	"github.com/teranos/hmis/logger"
)

// ListDiagnoses returns the whole vocabulary ordered by id.
// An empty, non-nil slice with a nil error is a valid empty vocabulary;
// a failed read is errors.ErrQuery.
func (s *Store) ListDiagnoses() ([]encounter.Diagnosis, error) {
	conn, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(DiagnosisSelectQuery)
	if err != nil {
		return nil, db.MarkExec(err, "list diagnoses")
	}
	defer rows.Close()

	diagnoses := []encounter.Diagnosis{}
	for rows.Next() {
		var d encounter.Diagnosis
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, errors.Markf(err, errors.ErrQuery, "scan diagnosis")
		}
		diagnoses = append(diagnoses, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Markf(err, errors.ErrQuery, "iterate diagnoses")
	}
	return diagnoses, nil
}

// DiagnosisNames is ListDiagnoses reduced to names.
func (s *Store) DiagnosisNames() ([]string, error) {
	diagnoses, err := s.ListDiagnoses()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(diagnoses))
	for i, d := range diagnoses {
		names[i] = d.Name
	}
	return names, nil
}

// InsertDiagnoses adds names to the vocabulary in one transaction: every name
// is inserted or none is. Names are not pre-filtered; a duplicate, whether
// already stored or repeated in names, trips the unique constraint and rolls
// the whole batch back with errors.ErrConstraintViolation.
func (s *Store) InsertDiagnoses(names []string) error {
	if len(names) == 0 {
		return nil
	}
	conn, err := s.conn()
	if err != nil {
		return err
	}

	tx, err := conn.Begin()
	if err != nil {
		return errors.Markf(err, errors.ErrTransaction, "begin diagnosis insert")
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Warnw("Rollback failed",
				logger.FieldOperation, "insert_diagnoses",
				logger.FieldError, rbErr,
			)
		}
	}()

	stmt, err := tx.Prepare(s.rebind(DiagnosisInsertQuery))
	if err != nil {
		return errors.Markf(err, errors.ErrQuery, "prepare diagnosis insert")
	}
	defer stmt.Close()

	for _, name := range names {
		if _, err := stmt.Exec(name); err != nil {
			return db.MarkExec(err, "insert diagnosis %q", name)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Markf(err, errors.ErrTransaction, "commit diagnosis insert")
	}
	committed = true

	s.logger.Debugw("Inserted diagnoses", logger.FieldBatchSize, len(names))
	return nil
}

// DiagnosisExists reports whether name is in the vocabulary. On error the
// answer is unknown; callers should treat it as false.
func (s *Store) DiagnosisExists(name string) (bool, error) {
	conn, err := s.conn()
	if err != nil {
		return false, err
	}

	var n int
	if err := conn.QueryRow(s.rebind(DiagnosisExistsQuery), name).Scan(&n); err != nil {
		return false, db.MarkExec(err, "check diagnosis %q", name)
	}
	return n > 0, nil
}

// RegisterDiagnosis adds a single free-text name to the vocabulary unless it is
// blank or already present, and reports whether it was added.
func (s *Store) RegisterDiagnosis(name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}

	exists, err := s.DiagnosisExists(name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if err := s.InsertDiagnoses([]string{name}); err != nil {
		return false, err
	}
	s.logger.Infow("Registered diagnosis", logger.FieldDiagnosis, name)
	return true, nil
}

// SeedVocabulary inserts defaults when the vocabulary is empty and returns how
// many names were added. Names are trimmed; blanks and repeats are dropped.
// A non-empty vocabulary is left untouched.
func (s *Store) SeedVocabulary(defaults []string) (int, error) {
	existing, err := s.ListDiagnoses()
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	names := NormalizeNames(defaults)
	if err := s.InsertDiagnoses(names); err != nil {
		return 0, errors.Wrap(err, "seed vocabulary")
	}

	s.logger.Infow("Seeded diagnosis vocabulary", logger.FieldCount, len(names))
	return len(names), nil
}

// NormalizeNames trims names and drops blanks and exact repeats, keeping the
// first occurrence order.
func NormalizeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
