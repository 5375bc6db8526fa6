// Package filter narrows lists of encounters and diagnosis names for display.
// Filters never reorder or modify what they keep.
package filter

import (
	"strings"

	"github.com/teranos/hmis/encounter"
)

func blank(query string) bool {
	return strings.TrimSpace(query) == ""
}

// ByPrefix keeps the encounters whose patient id starts with prefix.
// Matching is case-sensitive. A blank prefix returns encounters as given.
func ByPrefix(encounters []encounter.Encounter, prefix string) []encounter.Encounter {
	if blank(prefix) {
		return encounters
	}
	out := []encounter.Encounter{}
	for _, e := range encounters {
		if strings.HasPrefix(e.PatientID, prefix) {
			out = append(out, e)
		}
	}
	return out
}

// ByDiagnosis keeps the encounters listing at least one diagnosis that
// contains query, ignoring case. A blank query returns encounters as given.
func ByDiagnosis(encounters []encounter.Encounter, query string) []encounter.Encounter {
	if blank(query) {
		return encounters
	}
	q := strings.ToLower(query)
	out := []encounter.Encounter{}
	for _, e := range encounters {
		for _, dx := range e.Diagnoses {
			if strings.Contains(strings.ToLower(dx), q) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Names keeps the names containing query, ignoring case.
// A blank query returns names as given.
func Names(names []string, query string) []string {
	if blank(query) {
		return names
	}
	q := strings.ToLower(strings.TrimSpace(query))
	out := []string{}
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), q) {
			out = append(out, n)
		}
	}
	return out
}
