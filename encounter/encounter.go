// Package encounter defines the clinic-visit record and its fixed enumerations.
package encounter

import (
	"strings"

	"github.com/teranos/hmis/errors"
)

// AgeCategory is one of the five reporting age buckets.
type AgeCategory string

const (
	Neonate    AgeCategory = "0 - 28 days"
	Infant     AgeCategory = "29 days - 4 years"
	SchoolAge  AgeCategory = "5 - 9 years"
	Adolescent AgeCategory = "10 - 19 years"
	Adult      AgeCategory = "20 years and above"
)

// AgeCategories lists every age category in reporting order.
var AgeCategories = []AgeCategory{Neonate, Infant, SchoolAge, Adolescent, Adult}

// Sex of the patient as recorded on the register.
type Sex string

const (
	Male   Sex = "Male"
	Female Sex = "Female"
)

// Sexes lists both sexes in reporting order.
var Sexes = []Sex{Male, Female}

// Attendance records whether this is the patient's first visit in the period.
// The stored values follow the paper register's "new attendance?" column.
type Attendance string

const (
	FirstVisit  Attendance = "YES"
	RepeatVisit Attendance = "NO"
)

// Attendances lists both attendance kinds in reporting order.
var Attendances = []Attendance{FirstVisit, RepeatVisit}

// Valid reports whether c is one of the fixed age categories.
func (c AgeCategory) Valid() bool {
	for _, known := range AgeCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Valid reports whether s is Male or Female.
func (s Sex) Valid() bool {
	return s == Male || s == Female
}

// Valid reports whether a is a first or repeat visit.
func (a Attendance) Valid() bool {
	return a == FirstVisit || a == RepeatVisit
}

// Label is the human-facing name of the attendance kind.
func (a Attendance) Label() string {
	switch a {
	case FirstVisit:
		return "New attendance"
	case RepeatVisit:
		return "Re-attendance"
	default:
		return string(a)
	}
}

// Encounter is one recorded clinic visit.
type Encounter struct {
	ID          int64       `json:"id" yaml:"id" toml:"id"`
	AgeCategory AgeCategory `json:"age_category" yaml:"age_category" toml:"age_category"`
	Sex         Sex         `json:"sex" yaml:"sex" toml:"sex"`
	Attendance  Attendance  `json:"attendance" yaml:"attendance" toml:"attendance"`
	Diagnoses   []string    `json:"diagnoses" yaml:"diagnoses" toml:"diagnoses"`
	PatientID   string      `json:"patient_id" yaml:"patient_id" toml:"patient_id"`
	Year        int         `json:"year" yaml:"year" toml:"year"`
	Month       int         `json:"month" yaml:"month" toml:"month"`
}

// Diagnosis is a vocabulary entry.
type Diagnosis struct {
	ID   int64  `json:"id" yaml:"id" toml:"id"`
	Name string `json:"name" yaml:"name" toml:"name"`
}

// Validate checks the fields the schema constrains. Errors are marked
// errors.ErrInvalidEncounter.
func (e Encounter) Validate() error {
	if err := e.ValidateContent(); err != nil {
		return err
	}
	if e.Month < 1 || e.Month > 12 {
		return errors.Newk(errors.ErrInvalidEncounter, "month must be 1-12, got %d", e.Month)
	}
	if e.Year <= 0 {
		return errors.Newk(errors.ErrInvalidEncounter, "year must be positive, got %d", e.Year)
	}
	return nil
}

// ValidateContent checks everything but the reporting period, which an
// update never changes.
func (e Encounter) ValidateContent() error {
	if strings.TrimSpace(e.PatientID) == "" {
		return errors.Newk(errors.ErrInvalidEncounter, "patient id is empty")
	}
	if !e.AgeCategory.Valid() {
		return errors.Newk(errors.ErrInvalidEncounter, "unknown age category %q", e.AgeCategory)
	}
	if !e.Sex.Valid() {
		return errors.Newk(errors.ErrInvalidEncounter, "unknown sex %q", e.Sex)
	}
	if !e.Attendance.Valid() {
		return errors.Newk(errors.ErrInvalidEncounter, "unknown attendance %q", e.Attendance)
	}
	for _, d := range e.Diagnoses {
		if err := validateDiagnosisName(d); err != nil {
			return err
		}
	}
	return nil
}

// validateDiagnosisName rejects names that would not survive
// JoinDiagnoses followed by SplitDiagnoses. An underscore at either end
// would merge with the delimiter and shift the split.
func validateDiagnosisName(d string) error {
	switch {
	case strings.TrimSpace(d) == "":
		return errors.Newk(errors.ErrInvalidEncounter, "diagnosis name is blank")
	case strings.Contains(d, DiagnosisDelimiter):
		return errors.Newk(errors.ErrInvalidEncounter, "diagnosis %q contains the reserved %q token", d, DiagnosisDelimiter)
	case strings.HasPrefix(d, "_") || strings.HasSuffix(d, "_"):
		return errors.Newk(errors.ErrInvalidEncounter, "diagnosis %q starts or ends with an underscore", d)
	}
	return nil
}
