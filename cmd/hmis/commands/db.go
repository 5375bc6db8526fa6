package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/hmis/db"
	"github.com/teranos/hmis/errors"
	"github.com/teranos/hmis/logger"
	"github.com/teranos/hmis/vocabulary"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the hmis database",
	Long: `db - Manage the hmis database

Create the schema, take and restore sqlite snapshots, and import registers
kept by older installations.

Examples:
  hmis db init                     # Create tables and seed the vocabulary
  hmis db backup                   # Snapshot the sqlite file
  hmis db backups                  # List snapshots, newest first
  hmis db restore <snapshot>       # Replace the database with a snapshot
  hmis db import old/hmis.db       # Copy encounters from another file`,
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the schema and seed the diagnosis vocabulary",
	Long: `Create the tables if they do not exist. When vocabulary.seed is on and the
vocabulary is empty, it is filled from vocabulary.file or the built-in list.
Running init again changes nothing.`,
	RunE: runDbInit,
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the sqlite database",
	RunE:  runDbBackup,
}

var dbBackupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List sqlite snapshots, newest first",
	RunE:  runDbBackups,
}

var dbRestoreCmd = &cobra.Command{
	Use:   "restore <snapshot>",
	Short: "Replace the sqlite database with a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runDbRestore,
}

var dbImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import encounters from another sqlite register",
	Long: `Copy every encounter from another sqlite file into the configured database.
The source is opened read-only. Rows already present (same patient id and
period) are counted as duplicates; rows with unknown values are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runDbImport,
}

var backupDirFlag string

func init() {
	dbBackupCmd.Flags().StringVar(&backupDirFlag, "dir", "", "Snapshot directory (default backup.dir)")
	dbBackupsCmd.Flags().StringVar(&backupDirFlag, "dir", "", "Snapshot directory (default backup.dir)")

	DbCmd.AddCommand(dbInitCmd)
	DbCmd.AddCommand(dbBackupCmd)
	DbCmd.AddCommand(dbBackupsCmd)
	DbCmd.AddCommand(dbRestoreCmd)
	DbCmd.AddCommand(dbImportCmd)
}

func runDbInit(cmd *cobra.Command, args []string) error {
	s, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	seeded := 0
	if cfg.Vocabulary.Seed {
		names := vocabulary.Default()
		if cfg.Vocabulary.File != "" {
			names, err = vocabulary.Load(cfg.Vocabulary.File)
			if err != nil {
				return err
			}
		}
		seeded, err = s.SeedVocabulary(names)
		if err != nil {
			return err
		}
	}

	pterm.Success.Printfln("Database ready: %s", s.Config())
	if seeded > 0 {
		pterm.Info.Printfln("Seeded %d diagnoses", seeded)
	}
	return nil
}

func runDbBackup(cmd *cobra.Command, args []string) error {
	s, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	dir := backupDir(cfg.GetBackupDir())
	snapshot, err := s.Backup(dir)
	if err != nil {
		return err
	}

	removed, err := db.PruneBackups(s.Path(), dir, cfg.Backup.Keep)
	if err != nil {
		// The snapshot itself succeeded
		logger.Warnw("Failed to prune old backups", logger.FieldPath, dir, logger.FieldError, err)
	}

	pterm.Success.Printfln("Backup written to %s", snapshot)
	if removed > 0 {
		pterm.Info.Printfln("Removed %d old backups (keeping %d)", removed, cfg.Backup.Keep)
	}
	return nil
}

func runDbBackups(cmd *cobra.Command, args []string) error {
	s, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if s.Path() == "" {
		return errors.Newk(errors.ErrConfiguration, "backups are only kept for the sqlite backend")
	}

	backups, err := db.ListBackups(s.Path(), backupDir(cfg.GetBackupDir()))
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		fmt.Println("No backups")
		return nil
	}
	for _, b := range backups {
		fmt.Println(b)
	}
	return nil
}

func runDbRestore(cmd *cobra.Command, args []string) error {
	s, _, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Restore(args[0]); err != nil {
		return err
	}
	pterm.Success.Printfln("Restored %s from %s", s.Path(), args[0])
	return nil
}

func runDbImport(cmd *cobra.Command, args []string) error {
	s, _, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := s.ImportFrom(args[0])
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Imported %d encounters from %s", result.Imported, args[0])
	if result.Duplicates > 0 || result.Invalid > 0 {
		pterm.Warning.Printfln("%d duplicates, %d invalid rows skipped", result.Duplicates, result.Invalid)
	}
	return nil
}

func backupDir(configured string) string {
	if backupDirFlag != "" {
		return backupDirFlag
	}
	return configured
}
