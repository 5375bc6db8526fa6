package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/teranos/hmis/display"
	"github.com/teranos/hmis/encounter"
	"github.com/teranos/hmis/errors"
	"github.com/teranos/hmis/stats"
)

// Formats
const (
	FormatTable = "table"
	FormatJSON  = display.FormatJSON
	FormatYAML  = display.FormatYAML
	FormatTOML  = display.FormatTOML
)

// Formats lists every format Write accepts.
var Formats = []string{FormatTable, FormatJSON, FormatYAML, FormatTOML}

// Short column labels for the age categories
var ageLabels = map[encounter.AgeCategory]string{
	encounter.Neonate:    "0-28d",
	encounter.Infant:     "29d-4y",
	encounter.SchoolAge:  "5-9y",
	encounter.Adolescent: "10-19y",
	encounter.Adult:      "20y+",
}

// Write renders r to w in format.
func Write(w io.Writer, r *Report, format string) error {
	if isTable(format) {
		return writeTable(w, r)
	}
	return encode(w, r, format)
}

// TopList is the ranking on its own, as WriteTop encodes it.
type TopList struct {
	Year  int           `json:"year" yaml:"year" toml:"year"`
	Month int           `json:"month" yaml:"month" toml:"month"`
	Top   []stats.Total `json:"top" yaml:"top" toml:"top"`
}

// WriteTop renders only the ranking of r.
func WriteTop(w io.Writer, r *Report, format string) error {
	if isTable(format) {
		fmt.Fprintf(w, "HMIS %04d-%02d: top diagnoses of %d encounters\n\n", r.Year, r.Month, r.Encounters)
		if len(r.Top) == 0 {
			fmt.Fprintln(w, "No diagnoses recorded")
			return nil
		}
		return writeTopTable(w, r.Top)
	}
	top := r.Top
	if top == nil {
		top = []stats.Total{}
	}
	return encode(w, TopList{Year: r.Year, Month: r.Month, Top: top}, format)
}

func isTable(format string) bool {
	f := strings.ToLower(format)
	return f == "" || f == FormatTable
}

func encode(w io.Writer, v interface{}, format string) error {
	if !display.IsStructured(format) {
		return errors.WithHintf(
			errors.Newk(errors.ErrConfiguration, "unknown report format %q", format),
			"use one of %s", strings.Join(Formats, ", "))
	}
	return errors.Wrap(display.Encode(w, v, format), "failed to write report")
}

func writeTable(w io.Writer, r *Report) error {
	fmt.Fprintf(w, "HMIS %04d-%02d: %d encounters", r.Year, r.Month, r.Encounters)
	if r.Skipped > 0 {
		fmt.Fprintf(w, " (%d skipped: unknown age category, sex or attendance)", r.Skipped)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	attendance := make([]string, len(encounter.Attendances))
	labels := make(map[string]string, len(encounter.Attendances))
	for i, a := range encounter.Attendances {
		attendance[i] = string(a)
		labels[string(a)] = a.Label()
	}
	if err := renderGrid(w, "Attendance", r.Attendance, attendance, labels); err != nil {
		return err
	}
	fmt.Fprintln(w)

	if err := renderGrid(w, "Diagnosis", r.Diagnosis, r.DiagnosisOrder(), nil); err != nil {
		return err
	}

	if len(r.Top) > 0 {
		fmt.Fprintln(w)
		return writeTopTable(w, r.Top)
	}
	return nil
}

func writeTopTable(w io.Writer, top []stats.Total) error {
	data := pterm.TableData{{"#", "Diagnosis", "Total"}}
	for i, t := range top {
		data = append(data, []string{strconv.Itoa(i + 1), t.Name, strconv.Itoa(t.Count)})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "render top diagnoses")
	}
	fmt.Fprintln(w, out)
	return nil
}

// renderGrid draws one table: a row per key, a column per (age category, sex),
// a row total, and a totals row.
func renderGrid(w io.Writer, title string, t stats.Table, keys []string, labels map[string]string) error {
	header := []string{title}
	for _, age := range encounter.AgeCategories {
		for _, sex := range encounter.Sexes {
			header = append(header, ageLabels[age]+" "+string(sex)[:1])
		}
	}
	header = append(header, "Total")

	data := pterm.TableData{header}
	for _, key := range keys {
		name := key
		if l, ok := labels[key]; ok {
			name = l
		}
		data = append(data, gridRow(name, t[key]))
	}
	data = append(data, gridRow("Total", t.CategoryTotals()))

	out, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		return errors.Wrapf(err, "render %s table", strings.ToLower(title))
	}
	fmt.Fprintln(w, out)
	return nil
}

func gridRow(name string, g stats.Grid) []string {
	row := []string{name}
	for _, age := range encounter.AgeCategories {
		for _, sex := range encounter.Sexes {
			row = append(row, strconv.Itoa(g[age][sex]))
		}
	}
	return append(row, strconv.Itoa(g.Total()))
}
