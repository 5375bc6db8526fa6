package stats

import (
	"github.com/teranos/hmis/encounter"
)

// Result holds the two grids for one set of encounters.
type Result struct {
	// Attendance is keyed by attendance kind ("YES", "NO") and always has both.
	Attendance Table `json:"attendance" yaml:"attendance" toml:"attendance"`

	// Diagnosis has every vocabulary name plus any other name found in the data.
	Diagnosis Table `json:"diagnosis" yaml:"diagnosis" toml:"diagnosis"`

	// Skipped counts encounters left out because their age category, sex or
	// attendance is outside the enumerations.
	Skipped int `json:"skipped" yaml:"skipped" toml:"skipped"`
}

// Aggregate counts encounters into fresh tables. Each encounter adds one to
// the attendance table and one to the diagnosis table per diagnosis it lists,
// so a name repeated within one encounter counts once per occurrence.
// The result does not depend on the order of encounters.
func Aggregate(encounters []encounter.Encounter, vocabulary []string) Result {
	attendanceKeys := make([]string, len(encounter.Attendances))
	for i, a := range encounter.Attendances {
		attendanceKeys[i] = string(a)
	}

	r := Result{
		Attendance: NewTable(attendanceKeys),
		Diagnosis:  NewTable(vocabulary),
	}

	for _, e := range encounters {
		if !e.AgeCategory.Valid() || !e.Sex.Valid() || !e.Attendance.Valid() {
			r.Skipped++
			continue
		}
		r.Attendance.add(string(e.Attendance), e.AgeCategory, e.Sex)
		for _, dx := range e.Diagnoses {
			r.Diagnosis.add(dx, e.AgeCategory, e.Sex)
		}
	}
	return r
}
