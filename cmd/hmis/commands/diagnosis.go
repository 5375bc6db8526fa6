package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/hmis/errors"
	"github.com/teranos/hmis/filter"
	"github.com/teranos/hmis/vocabulary"
)

// DiagnosisCmd represents the diagnosis command
var DiagnosisCmd = &cobra.Command{
	Use:     "diagnosis",
	Aliases: []string{"dx"},
	Short:   "Manage the diagnosis vocabulary",
	Long: `diagnosis - Manage the diagnosis vocabulary

The vocabulary is the list of known diagnosis names. Every name gets a row in
the monthly diagnosis table even when no encounter uses it.

Examples:
  hmis diagnosis list                     # Every name
  hmis diagnosis list mal                 # Names containing "mal"
  hmis diagnosis add "Typhoid fever"      # Register one name
  hmis diagnosis seed --file dx.txt       # Fill an empty vocabulary`,
}

var diagnosisListCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List diagnoses, optionally those containing query",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDiagnosisList,
}

var diagnosisAddCmd = &cobra.Command{
	Use:   "add <name>...",
	Short: "Register diagnoses not yet in the vocabulary",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDiagnosisAdd,
}

var diagnosisSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill an empty vocabulary from a file or the built-in list",
	Long: `Insert the names from --file (or vocabulary.file, or the built-in list) in
one transaction. A vocabulary that already has entries is left alone.
Files are either one name per line (# starts a comment) or TOML with
diagnoses = [...].`,
	RunE: runDiagnosisSeed,
}

var (
	dxFile   string
	dxAppend bool
)

func init() {
	diagnosisAddCmd.Flags().BoolVar(&dxAppend, "append", false, "Also append new names to vocabulary.file")
	diagnosisSeedCmd.Flags().StringVar(&dxFile, "file", "", "Vocabulary file (default vocabulary.file)")

	DiagnosisCmd.AddCommand(diagnosisListCmd)
	DiagnosisCmd.AddCommand(diagnosisAddCmd)
	DiagnosisCmd.AddCommand(diagnosisSeedCmd)
}

func runDiagnosisList(cmd *cobra.Command, args []string) error {
	s, _, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	diagnoses, err := s.ListDiagnoses()
	if err != nil {
		return err
	}
	if len(diagnoses) == 0 {
		fmt.Println("The vocabulary is empty; run `hmis diagnosis seed`")
		return nil
	}

	ids := make(map[string]int64, len(diagnoses))
	names := make([]string, len(diagnoses))
	for i, d := range diagnoses {
		ids[d.Name] = d.ID
		names[i] = d.Name
	}
	if len(args) == 1 {
		names = filter.Names(names, args[0])
	}

	data := pterm.TableData{{"ID", "Name"}}
	for _, name := range names {
		data = append(data, []string{strconv.FormatInt(ids[name], 10), name})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "render diagnoses")
	}
	fmt.Println(out)
	return nil
}

func runDiagnosisAdd(cmd *cobra.Command, args []string) error {
	s, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if dxAppend && cfg.Vocabulary.File == "" {
		return errors.WithHint(
			errors.Newk(errors.ErrConfiguration, "--append needs vocabulary.file"),
			"hmis am set vocabulary.file <path>")
	}

	var added []string
	for _, name := range args {
		ok, err := s.RegisterDiagnosis(name)
		if err != nil {
			return err
		}
		if ok {
			added = append(added, strings.TrimSpace(name))
			pterm.Success.Printfln("Added %q", strings.TrimSpace(name))
		} else {
			pterm.Info.Printfln("%q is already registered", strings.TrimSpace(name))
		}
	}

	if dxAppend && len(added) > 0 {
		if err := vocabulary.Append(cfg.Vocabulary.File, added); err != nil {
			return err
		}
	}
	return nil
}

func runDiagnosisSeed(cmd *cobra.Command, args []string) error {
	s, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	path := dxFile
	if path == "" {
		path = cfg.Vocabulary.File
	}
	names := vocabulary.Default()
	if path != "" {
		if names, err = vocabulary.Load(path); err != nil {
			return err
		}
	}

	n, err := s.SeedVocabulary(names)
	if err != nil {
		return err
	}
	if n == 0 {
		pterm.Info.Println("The vocabulary already has entries; nothing seeded")
		return nil
	}
	pterm.Success.Printfln("Seeded %d diagnoses", n)
	return nil
}
