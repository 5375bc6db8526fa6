// Package report assembles a month's statistics and renders them as a
// terminal table or as JSON, YAML or TOML.
package report

import (
	"github.com/teranos/hmis/encounter"
	"github.com/teranos/hmis/stats"
)

// Options shape what Build keeps.
type Options struct {
	HideEmpty bool // drop diagnoses with no encounters
	Top       int  // length of the Top list; 0 leaves it empty
}

// Report is one period's statistics, ready to render.
type Report struct {
	Year       int           `json:"year" yaml:"year" toml:"year"`
	Month      int           `json:"month" yaml:"month" toml:"month"`
	Encounters int           `json:"encounters" yaml:"encounters" toml:"encounters"`
	Skipped    int           `json:"skipped" yaml:"skipped" toml:"skipped"`
	Attendance stats.Table   `json:"attendance" yaml:"attendance" toml:"attendance"`
	Diagnosis  stats.Table   `json:"diagnosis" yaml:"diagnosis" toml:"diagnosis"`
	Top        []stats.Total `json:"top,omitempty" yaml:"top,omitempty" toml:"top,omitempty"`

	// row order for the table view
	order []string
}

// Build aggregates encounters for the period against the vocabulary.
func Build(year, month int, encounters []encounter.Encounter, vocabulary []string, opts Options) *Report {
	result := stats.Aggregate(encounters, vocabulary)

	r := &Report{
		Year:       year,
		Month:      month,
		Encounters: len(encounters),
		Skipped:    result.Skipped,
		Attendance: result.Attendance,
		Diagnosis:  result.Diagnosis,
		order:      rowOrder(vocabulary, encounters),
	}
	if opts.HideEmpty {
		r.Diagnosis = stats.HideEmpty(r.Diagnosis)
	}
	if opts.Top > 0 {
		r.Top = stats.Top(result.Diagnosis, stats.FirstAppearance(vocabulary, encounters), opts.Top)
	}
	return r
}

func rowOrder(vocabulary []string, encounters []encounter.Encounter) []string {
	out := append([]string(nil), vocabulary...)
	for _, e := range encounters {
		out = append(out, e.Diagnoses...)
	}
	return out
}

// DiagnosisOrder lists the diagnosis rows in display order: vocabulary first,
// then names first seen in the data. Rows hidden by HideEmpty are left out.
func (r *Report) DiagnosisOrder() []string {
	out := make([]string, 0, len(r.Diagnosis))
	seen := make(map[string]bool, len(r.Diagnosis))
	for _, name := range r.order {
		if _, ok := r.Diagnosis[name]; ok && !seen[name] {
			out = append(out, name)
			seen[name] = true
		}
	}
	// Tables not produced by Build have no recorded order
	for _, name := range r.Diagnosis.Keys() {
		if !seen[name] {
			out = append(out, name)
		}
	}
	return out
}
