package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/hmis/cmd/hmis/commands"
	"github.com/teranos/hmis/logger"
)

var rootCmd = &cobra.Command{
	Use:   "hmis",
	Short: "HMIS - clinic encounter register and monthly statistics",
	Long: `HMIS - clinic encounter register and monthly statistics.

Records outpatient encounters (age category, sex, attendance, diagnoses) per
reporting month and aggregates them into the monthly attendance and
diagnosis tables. Data lives in SQLite, PostgreSQL or MySQL.

Available commands:
  am        - Manage hmis configuration
  db        - Initialize, back up, restore and import the database
  encounter - Record, change and search encounters
  diagnosis - Manage the diagnosis vocabulary
  report    - Monthly statistics

Examples:
  hmis db init                                   # Create the schema and seed diagnoses
  hmis encounter add -y 2024 -m 6 --age adult --sex male --new -d Malaria
  hmis report stats -y 2024 -m 6                 # Monthly tables
  hmis report top -y 2024 -m 6 --watch           # Live top diagnoses`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLog, _ := cmd.Flags().GetBool("json-log")
		if err := logger.Initialize(jsonLog, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json-log", false, "Write logs as JSON to stderr")

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.EncounterCmd)
	rootCmd.AddCommand(commands.DiagnosisCmd)
	rootCmd.AddCommand(commands.ReportCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, commands.FormatError(err))
		os.Exit(1)
	}
}
