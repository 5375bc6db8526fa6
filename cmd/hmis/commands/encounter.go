package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/hmis/display"
	"github.com/teranos/hmis/encounter"
	"github.com/teranos/hmis/errors"
	"github.com/teranos/hmis/filter"
	"github.com/teranos/hmis/logger"
	"github.com/teranos/hmis/report"
	"github.com/teranos/hmis/store"
)

// EncounterCmd represents the encounter command
var EncounterCmd = &cobra.Command{
	Use:     "encounter",
	Aliases: []string{"enc"},
	Short:   "Record, change and search encounters",
	Long: `encounter - Record, change and search clinic encounters

Every encounter belongs to a reporting period (year and month, default the
current month). Patient ids are unique within a period; when --id is omitted
on add, the next number after the period's most recent id is used.

Age categories: neonate (0 - 28 days), infant (29 days - 4 years),
school (5 - 9 years), adolescent (10 - 19 years), adult (20 years and above).

Examples:
  hmis encounter add --age adult --sex female --new -d Malaria -d Anaemia
  hmis encounter list -y 2024 -m 6
  hmis encounter update 42 --sex male
  hmis encounter search --id-prefix 01 --diagnosis mal
  hmis encounter next-id`,
}

var encounterAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record an encounter",
	RunE:  runEncounterAdd,
}

var encounterUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change an encounter; only the flags given are changed",
	Args:  cobra.ExactArgs(1),
	RunE:  runEncounterUpdate,
}

var encounterDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an encounter",
	Args:  cobra.ExactArgs(1),
	RunE:  runEncounterDelete,
}

var encounterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a period's encounters",
	RunE:  runEncounterList,
}

var encounterSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search a period's encounters by patient id prefix or diagnosis",
	RunE:  runEncounterSearch,
}

var encounterNextIDCmd = &cobra.Command{
	Use:   "next-id",
	Short: "Print the next patient id for a period",
	RunE:  runEncounterNextID,
}

// periodFlags are shared by every encounter and report subcommand
type periodFlags struct {
	year  int
	month int
}

func (p *periodFlags) register(cmd *cobra.Command) {
	now := time.Now()
	cmd.Flags().IntVarP(&p.year, "year", "y", now.Year(), "Reporting year")
	cmd.Flags().IntVarP(&p.month, "month", "m", int(now.Month()), "Reporting month (1-12)")
}

func (p periodFlags) validate() error {
	if p.month < 1 || p.month > 12 {
		return errors.Newk(errors.ErrInvalidEncounter, "month must be 1-12, got %d", p.month)
	}
	if p.year <= 0 {
		return errors.Newk(errors.ErrInvalidEncounter, "year must be positive, got %d", p.year)
	}
	return nil
}

var (
	encPeriod     periodFlags
	encPatientID  string
	encAge        string
	encSex        string
	encNew        bool
	encRepeat     bool
	encDiagnoses  []string
	encNoRegister bool
	encFormat     string
	encIDPrefix   string
	encDiagnosis  string
)

func init() {
	for _, c := range []*cobra.Command{encounterAddCmd, encounterListCmd, encounterSearchCmd, encounterNextIDCmd} {
		encPeriod.register(c)
	}
	for _, c := range []*cobra.Command{encounterAddCmd, encounterUpdateCmd} {
		c.Flags().StringVar(&encPatientID, "id", "", "Patient id")
		c.Flags().StringVar(&encAge, "age", "", "Age category: neonate, infant, school, adolescent, adult")
		c.Flags().StringVar(&encSex, "sex", "", "Sex: male or female")
		c.Flags().BoolVar(&encNew, "new", false, "First visit this period")
		c.Flags().BoolVar(&encRepeat, "repeat", false, "Repeat visit")
		c.Flags().StringArrayVarP(&encDiagnoses, "diagnosis", "d", nil, "Diagnosis (repeatable, order kept)")
		c.Flags().BoolVar(&encNoRegister, "no-register", false, "Do not add unseen diagnoses to the vocabulary")
		c.MarkFlagsMutuallyExclusive("new", "repeat")
	}
	for _, c := range []*cobra.Command{encounterListCmd, encounterSearchCmd} {
		c.Flags().StringVar(&encFormat, "format", report.FormatTable, "Output format: table, json, yaml, toml")
	}
	encounterSearchCmd.Flags().StringVar(&encIDPrefix, "id-prefix", "", "Patient id prefix (case-sensitive)")
	encounterSearchCmd.Flags().StringVar(&encDiagnosis, "diagnosis", "", "Diagnosis substring (case-insensitive)")

	EncounterCmd.AddCommand(encounterAddCmd)
	EncounterCmd.AddCommand(encounterUpdateCmd)
	EncounterCmd.AddCommand(encounterDeleteCmd)
	EncounterCmd.AddCommand(encounterListCmd)
	EncounterCmd.AddCommand(encounterSearchCmd)
	EncounterCmd.AddCommand(encounterNextIDCmd)
}

func runEncounterAdd(cmd *cobra.Command, args []string) error {
	if err := encPeriod.validate(); err != nil {
		return err
	}
	flags := cmd.Flags()
	if !flags.Changed("age") || !flags.Changed("sex") || !(flags.Changed("new") || flags.Changed("repeat")) {
		return errors.WithHint(
			errors.Newk(errors.ErrInvalidEncounter, "age, sex and attendance are required"),
			"pass --age, --sex and one of --new or --repeat")
	}

	s, _, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	e := encounter.Encounter{
		Year:  encPeriod.year,
		Month: encPeriod.month,
	}
	if flags.Changed("id") {
		e.PatientID = strings.TrimSpace(encPatientID)
	}
	if err := applyEncounterFlags(cmd, &e); err != nil {
		return err
	}
	generated := e.PatientID == ""
	if generated {
		if e.PatientID, err = s.NextSequenceNumber(e.Year, e.Month); err != nil {
			return err
		}
		if e.PatientID == "" {
			e.PatientID = store.FirstPatientID
		}
	}

	id, err := s.SaveEncounter(e)
	if generated && errors.IsConstraintViolation(err) {
		// The previous id was not numeric, so it came back unchanged
		return errors.WithHint(err, "pass --id")
	}
	if err != nil {
		return err
	}

	pterm.Success.Printfln("Recorded encounter %d (patient %s, %04d-%02d)", id, e.PatientID, e.Year, e.Month)
	registerDiagnoses(s, e.Diagnoses)
	return nil
}

func runEncounterUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	s, _, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	e, err := s.FetchEncounter(id)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("id") {
		e.PatientID = strings.TrimSpace(encPatientID)
	}
	if err := applyEncounterFlags(cmd, &e); err != nil {
		return err
	}

	if err := s.UpdateEncounter(e); err != nil {
		return err
	}

	pterm.Success.Printfln("Updated encounter %d", id)
	registerDiagnoses(s, e.Diagnoses)
	return nil
}

func runEncounterDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	s, _, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	deleted, err := s.DeleteEncounter(id)
	if err != nil {
		return err
	}
	if !deleted {
		return errors.Newk(errors.ErrNotFound, "no encounter with id %d", id)
	}
	pterm.Success.Printfln("Deleted encounter %d", id)
	return nil
}

func runEncounterList(cmd *cobra.Command, args []string) error {
	encounters, err := fetchPeriod()
	if err != nil {
		return err
	}
	return writeEncounters(encounters, encFormat)
}

func runEncounterSearch(cmd *cobra.Command, args []string) error {
	encounters, err := fetchPeriod()
	if err != nil {
		return err
	}
	encounters = filter.ByPrefix(encounters, encIDPrefix)
	encounters = filter.ByDiagnosis(encounters, encDiagnosis)
	return writeEncounters(encounters, encFormat)
}

func runEncounterNextID(cmd *cobra.Command, args []string) error {
	if err := encPeriod.validate(); err != nil {
		return err
	}

	s, _, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	next, err := s.NextSequenceNumber(encPeriod.year, encPeriod.month)
	if err != nil {
		return err
	}
	fmt.Println(next)
	return nil
}

func fetchPeriod() ([]encounter.Encounter, error) {
	if err := encPeriod.validate(); err != nil {
		return nil, err
	}

	s, _, err := openStore()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	return s.FetchEncounters(encPeriod.year, encPeriod.month)
}

// applyEncounterFlags copies the changed content flags onto e.
func applyEncounterFlags(cmd *cobra.Command, e *encounter.Encounter) error {
	if cmd.Flags().Changed("age") {
		age, err := parseAgeCategory(encAge)
		if err != nil {
			return err
		}
		e.AgeCategory = age
	}
	if cmd.Flags().Changed("sex") {
		sex, err := parseSex(encSex)
		if err != nil {
			return err
		}
		e.Sex = sex
	}
	switch {
	case cmd.Flags().Changed("new") && encNew:
		e.Attendance = encounter.FirstVisit
	case cmd.Flags().Changed("repeat") && encRepeat:
		e.Attendance = encounter.RepeatVisit
	}
	if cmd.Flags().Changed("diagnosis") {
		e.Diagnoses = store.NormalizeNames(encDiagnoses)
	}
	return nil
}

// diagnosisRegistrar is the part of the store registerDiagnoses needs.
type diagnosisRegistrar interface {
	RegisterDiagnosis(name string) (bool, error)
}

// registerDiagnoses appends unseen names to the vocabulary. It runs after the
// encounter is saved, so a failure is printed as a warning and the names it
// could not add are returned.
func registerDiagnoses(s diagnosisRegistrar, names []string) []string {
	if encNoRegister {
		return nil
	}
	var failed []string
	for _, name := range names {
		added, err := s.RegisterDiagnosis(name)
		if err != nil {
			logger.Warnw("Diagnosis not registered",
				logger.FieldDiagnosis, name,
				logger.FieldError, err,
			)
			failed = append(failed, name)
			continue
		}
		if added {
			pterm.Info.Printfln("Added %q to the diagnosis vocabulary", name)
		}
	}
	if len(failed) > 0 {
		pterm.Warning.Printfln("The encounter was saved, but %s could not be added to the vocabulary; run `hmis diagnosis add`",
			strings.Join(failed, ", "))
	}
	return failed
}

var ageAliases = map[string]encounter.AgeCategory{
	"neonate":    encounter.Neonate,
	"infant":     encounter.Infant,
	"school":     encounter.SchoolAge,
	"child":      encounter.SchoolAge,
	"adolescent": encounter.Adolescent,
	"adult":      encounter.Adult,
}

// parseAgeCategory accepts a short alias or the stored label.
func parseAgeCategory(s string) (encounter.AgeCategory, error) {
	if age, ok := ageAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return age, nil
	}
	if age := encounter.AgeCategory(strings.TrimSpace(s)); age.Valid() {
		return age, nil
	}
	return "", errors.WithHint(
		errors.Newk(errors.ErrInvalidEncounter, "unknown age category %q", s),
		"use neonate, infant, school, adolescent or adult")
}

func parseSex(s string) (encounter.Sex, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male":
		return encounter.Male, nil
	case "f", "female":
		return encounter.Female, nil
	}
	return "", errors.Newk(errors.ErrInvalidEncounter, "unknown sex %q (use male or female)", s)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Newk(errors.ErrInvalidEncounter, "invalid encounter id %q", s)
	}
	return id, nil
}

func writeEncounters(encounters []encounter.Encounter, format string) error {
	if display.IsStructured(format) {
		return display.Encode(os.Stdout, encounters, format)
	}
	if f := strings.ToLower(format); f != "" && f != report.FormatTable {
		return errors.Newk(errors.ErrConfiguration, "unsupported format: %s (supported: table, json, yaml, toml)", format)
	}

	if len(encounters) == 0 {
		fmt.Println("No encounters")
		return nil
	}
	data := pterm.TableData{{"ID", "Patient", "Age", "Sex", "Attendance", "Diagnoses"}}
	for _, e := range encounters {
		data = append(data, []string{
			strconv.FormatInt(e.ID, 10),
			e.PatientID,
			string(e.AgeCategory),
			string(e.Sex),
			e.Attendance.Label(),
			strings.Join(e.Diagnoses, ", "),
		})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "render encounters")
	}
	fmt.Println(out)
	logger.Debugw("Listed encounters", logger.FieldCount, len(encounters))
	return nil
}
