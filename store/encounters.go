package store

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/teranos/hmis/db"
	"github.com/teranos/hmis/encounter"
	"github.com/teranos/hmis/errors"
	"github.com/teranos/hmis/logger"
)

// sequenceWidth is the minimum number of digits in a generated patient id.
const sequenceWidth = 3

// FirstPatientID is the id callers start an empty period with.
const FirstPatientID = "001"

// FetchEncounters returns every encounter recorded for the period, ordered by id.
// The rows come from a single statement, so the result is one consistent read.
func (s *Store) FetchEncounters(year, month int) ([]encounter.Encounter, error) {
	conn, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(s.rebind(EncounterSelectByPeriodQuery), year, month)
	if err != nil {
		return nil, db.MarkExec(err, "fetch encounters for %d-%02d", year, month)
	}
	defer rows.Close()

	encounters := []encounter.Encounter{}
	for rows.Next() {
		e, err := scanEncounter(rows)
		if err != nil {
			return nil, errors.Markf(err, errors.ErrQuery, "scan encounter for %d-%02d", year, month)
		}
		encounters = append(encounters, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Markf(err, errors.ErrQuery, "iterate encounters for %d-%02d", year, month)
	}

	s.logger.Debugw("Fetched encounters",
		logger.FieldYear, year,
		logger.FieldMonth, month,
		logger.FieldCount, len(encounters),
	)
	return encounters, nil
}

// FetchEncounter returns the encounter with the given id, or an error marked
// errors.ErrNotFound.
func (s *Store) FetchEncounter(id int64) (encounter.Encounter, error) {
	conn, err := s.conn()
	if err != nil {
		return encounter.Encounter{}, err
	}

	e, err := scanEncounter(conn.QueryRow(s.rebind(EncounterSelectByIDQuery), id))
	if errors.Is(err, sql.ErrNoRows) {
		return encounter.Encounter{}, errors.Newk(errors.ErrNotFound, "no encounter with id %d", id)
	}
	if err != nil {
		return encounter.Encounter{}, db.MarkExec(err, "fetch encounter %d", id)
	}
	return e, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEncounter(row rowScanner) (encounter.Encounter, error) {
	var (
		e          encounter.Encounter
		age        string
		sex        string
		attendance string
		diagnosis  sql.NullString
	)
	if err := row.Scan(&e.ID, &age, &e.Month, &e.Year, &sex, &attendance, &diagnosis, &e.PatientID); err != nil {
		return encounter.Encounter{}, err
	}
	e.AgeCategory = encounter.AgeCategory(age)
	e.Sex = encounter.Sex(sex)
	e.Attendance = encounter.Attendance(attendance)
	e.Diagnoses = encounter.SplitDiagnoses(diagnosis.String)
	return e, nil
}

// SaveEncounter inserts a new encounter and returns its id.
// An existing row with the same patient id, year and month fails the call with
// errors.ErrConstraintViolation before anything is written; the uniqueness
// constraint catches the same duplicate if another writer races the check.
func (s *Store) SaveEncounter(e encounter.Encounter) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	conn, err := s.conn()
	if err != nil {
		return 0, err
	}

	var existing int
	if err := conn.QueryRow(s.rebind(EncounterExistsQuery), e.PatientID, e.Month, e.Year).Scan(&existing); err != nil {
		return 0, db.MarkExec(err, "check for duplicate patient %q", e.PatientID)
	}
	if existing > 0 {
		return 0, errors.WithHint(
			errors.Newk(errors.ErrConstraintViolation,
				"patient %q is already recorded for %d-%02d", e.PatientID, e.Year, e.Month),
			"use the next sequence number or update the existing encounter")
	}

	args := []interface{}{
		string(e.AgeCategory),
		e.Month,
		e.Year,
		string(e.Sex),
		string(e.Attendance),
		encounter.JoinDiagnoses(e.Diagnoses),
		e.PatientID,
	}

	var id int64
	if s.backend == db.BackendPostgres {
		// pgx does not implement LastInsertId
		err = conn.QueryRow(s.rebind(EncounterInsertQuery+" RETURNING id"), args...).Scan(&id)
	} else {
		var res sql.Result
		res, err = conn.Exec(s.rebind(EncounterInsertQuery), args...)
		if err == nil {
			id, err = res.LastInsertId()
		}
	}
	if err != nil {
		return 0, db.MarkExec(err, "insert encounter for patient %q", e.PatientID)
	}

	s.logger.Debugw("Saved encounter",
		logger.FieldEncounterID, id,
		logger.FieldPatientID, e.PatientID,
		logger.FieldYear, e.Year,
		logger.FieldMonth, e.Month,
	)
	return id, nil
}

// UpdateEncounter rewrites the patient id, sex, age category, attendance and
// diagnoses of the row with e.ID. The reporting period is never changed.
// A missing row is errors.ErrNotFound.
func (s *Store) UpdateEncounter(e encounter.Encounter) error {
	if err := e.ValidateContent(); err != nil {
		return err
	}
	conn, err := s.conn()
	if err != nil {
		return err
	}

	res, err := conn.Exec(s.rebind(EncounterUpdateQuery),
		e.PatientID,
		string(e.Sex),
		string(e.AgeCategory),
		string(e.Attendance),
		encounter.JoinDiagnoses(e.Diagnoses),
		e.ID,
	)
	if err != nil {
		return db.MarkExec(err, "update encounter %d", e.ID)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Markf(err, errors.ErrQuery, "update encounter %d", e.ID)
	}
	if affected == 0 {
		return errors.Newk(errors.ErrNotFound, "encounter %d not found", e.ID)
	}

	s.logger.Debugw("Updated encounter", logger.FieldEncounterID, e.ID)
	return nil
}

// DeleteEncounter removes the row with id and reports whether one was removed.
// A missing id is not an error.
func (s *Store) DeleteEncounter(id int64) (bool, error) {
	conn, err := s.conn()
	if err != nil {
		return false, err
	}

	res, err := conn.Exec(s.rebind(EncounterDeleteQuery), id)
	if err != nil {
		return false, db.MarkExec(err, "delete encounter %d", id)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.Markf(err, errors.ErrQuery, "delete encounter %d", id)
	}

	s.logger.Debugw("Deleted encounter",
		logger.FieldEncounterID, id,
		"removed", affected > 0,
	)
	return affected > 0, nil
}

// NextSequenceNumber suggests the next patient id for the period from the most
// recently inserted row. It returns "" for an empty period, the incremented id
// zero-padded to three digits when the previous id is numeric, and the
// previous id unchanged when it is not. The number is not reserved.
func (s *Store) NextSequenceNumber(year, month int) (string, error) {
	conn, err := s.conn()
	if err != nil {
		return "", err
	}

	var last string
	err = conn.QueryRow(s.rebind(LastPatientIDQuery), year, month).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", db.MarkExec(err, "read last patient id for %d-%02d", year, month)
	}

	return nextPatientID(last), nil
}

// nextPatientID increments a purely numeric id; anything else is returned as is.
func nextPatientID(last string) string {
	if last == "" {
		return ""
	}
	for _, r := range last {
		if r < '0' || r > '9' {
			return last
		}
	}
	n, err := strconv.ParseUint(last, 10, 64)
	if err != nil || n == ^uint64(0) {
		return last
	}
	return fmt.Sprintf("%0*d", sequenceWidth, n+1)
}
