package stats

import (
	"sort"

	"github.com/teranos/hmis/encounter"
)

// Total is one key's count across its whole grid.
type Total struct {
	Name  string `json:"name" yaml:"name" toml:"name"`
	Count int    `json:"count" yaml:"count" toml:"count"`
}

// SortedTotals returns every key of t with its total, highest first.
// Equal totals keep the order of order; keys missing from order follow
// those that are present, in lexical order.
func SortedTotals(t Table, order []string) []Total {
	rank := make(map[string]int, len(order))
	for i, name := range order {
		if _, seen := rank[name]; !seen {
			rank[name] = i
		}
	}

	totals := make([]Total, 0, len(t))
	for _, name := range t.Keys() {
		totals = append(totals, Total{Name: name, Count: t.RowTotal(name)})
	}

	// Keys() is lexical, so a stable sort leaves unranked ties in that order
	sort.SliceStable(totals, func(i, j int) bool {
		a, b := totals[i], totals[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		ra, aRanked := rank[a.Name]
		rb, bRanked := rank[b.Name]
		switch {
		case aRanked && bRanked:
			return ra < rb
		case aRanked != bRanked:
			return aRanked
		default:
			return false
		}
	})
	return totals
}

// FirstAppearance lists diagnoses in the order the encounters first mention
// them, followed by the vocabulary names no encounter mentions.
func FirstAppearance(vocabulary []string, encounters []encounter.Encounter) []string {
	seen := make(map[string]struct{}, len(vocabulary))
	out := make([]string, 0, len(vocabulary))
	push := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	for _, e := range encounters {
		for _, dx := range e.Diagnoses {
			push(dx)
		}
	}
	for _, name := range vocabulary {
		push(name)
	}
	return out
}

// Top returns at most n totals from SortedTotals, dropping zeros.
// n <= 0 means no limit.
func Top(t Table, order []string, n int) []Total {
	totals := SortedTotals(t, order)
	end := 0
	for end < len(totals) && totals[end].Count > 0 {
		end++
	}
	totals = totals[:end]
	if n > 0 && len(totals) > n {
		totals = totals[:n]
	}
	return totals
}
