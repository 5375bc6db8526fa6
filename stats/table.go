// Package stats turns a period's encounters into the monthly count grids:
// one keyed by attendance kind and one keyed by diagnosis, each broken down by
// age category and sex. Everything here is pure and never fails.
package stats

import (
	"sort"

	"github.com/teranos/hmis/encounter"
)

// Grid counts encounters by age category and sex.
type Grid map[encounter.AgeCategory]map[encounter.Sex]int

// Table maps a primary key (an attendance kind or a diagnosis name) to its grid.
type Table map[string]Grid

// NewGrid returns a grid with every age category and sex present at zero.
func NewGrid() Grid {
	g := make(Grid, len(encounter.AgeCategories))
	for _, age := range encounter.AgeCategories {
		g[age] = make(map[encounter.Sex]int, len(encounter.Sexes))
		for _, sex := range encounter.Sexes {
			g[age][sex] = 0
		}
	}
	return g
}

// NewTable returns a table with a zero grid for each key.
func NewTable(keys []string) Table {
	t := make(Table, len(keys))
	for _, k := range keys {
		t.ensure(k)
	}
	return t
}

func (t Table) ensure(key string) Grid {
	g, ok := t[key]
	if !ok {
		g = NewGrid()
		t[key] = g
	}
	return g
}

func (t Table) add(key string, age encounter.AgeCategory, sex encounter.Sex) {
	t.ensure(key)[age][sex]++
}

// Count returns a single cell; missing keys count as zero.
func (t Table) Count(key string, age encounter.AgeCategory, sex encounter.Sex) int {
	return t[key][age][sex]
}

// Total sums a grid.
func (g Grid) Total() int {
	n := 0
	for _, bySex := range g {
		for _, c := range bySex {
			n += c
		}
	}
	return n
}

// RowTotal sums the grid of key.
func (t Table) RowTotal(key string) int {
	return t[key].Total()
}

// Total sums every cell of the table.
func (t Table) Total() int {
	n := 0
	for _, g := range t {
		n += g.Total()
	}
	return n
}

// CategoryTotals sums each (age category, sex) column across all keys.
func (t Table) CategoryTotals() Grid {
	out := NewGrid()
	for _, g := range t {
		for age, bySex := range g {
			if _, ok := out[age]; !ok {
				out[age] = map[encounter.Sex]int{}
			}
			for sex, c := range bySex {
				out[age][sex] += c
			}
		}
	}
	return out
}

// Keys returns the table's keys in lexical order.
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HideEmpty returns a copy of t without the keys whose grid is all zero.
func HideEmpty(t Table) Table {
	out := make(Table, len(t))
	for k, g := range t {
		if g.Total() == 0 {
			continue
		}
		out[k] = g
	}
	return out
}
