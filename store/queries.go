package store

// Query constants. Placeholders are written as ? and rebound per backend.
const (
	EncounterSelectByPeriodQuery = `
		SELECT id, age_category, month, year, sex, new_attendance, diagnosis, patient_id
		FROM hmis
		WHERE year = ? AND month = ?
		ORDER BY id`

	EncounterSelectByIDQuery = `
		SELECT id, age_category, month, year, sex, new_attendance, diagnosis, patient_id
		FROM hmis
		WHERE id = ?`

	EncounterExistsQuery = `
		SELECT COUNT(*) FROM hmis
		WHERE patient_id = ? AND month = ? AND year = ?`

	EncounterInsertQuery = `
		INSERT INTO hmis (age_category, month, year, sex, new_attendance, diagnosis, patient_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	EncounterUpdateQuery = `
		UPDATE hmis
		SET patient_id = ?, sex = ?, age_category = ?, new_attendance = ?, diagnosis = ?
		WHERE id = ?`

	EncounterDeleteQuery = `DELETE FROM hmis WHERE id = ?`

	// The most recently inserted row of the period carries the latest patient id
	LastPatientIDQuery = `
		SELECT patient_id FROM hmis
		WHERE year = ? AND month = ?
		ORDER BY id DESC
		LIMIT 1`

	DiagnosisSelectQuery = `SELECT id, name FROM diagnoses ORDER BY id`

	DiagnosisInsertQuery = `INSERT INTO diagnoses (name) VALUES (?)`

	DiagnosisExistsQuery = `SELECT COUNT(*) FROM diagnoses WHERE name = ?`
)
