package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/hmis/am"
	"github.com/teranos/hmis/db"
	"github.com/teranos/hmis/errors"
	"github.com/teranos/hmis/logger"
	"github.com/teranos/hmis/report"
	"github.com/teranos/hmis/store"
)

// ReportCmd represents the report command
var ReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Monthly statistics",
	Long: `report - Monthly attendance and diagnosis statistics

stats prints the attendance table (new and repeat visits) and the diagnosis
table, each broken down by age category and sex. top ranks diagnoses by
encounter count. With --watch (sqlite only) the report is printed again
whenever the database file changes.

Examples:
  hmis report stats -y 2024 -m 6
  hmis report stats --hide-empty --format json
  hmis report top -n 5 --watch`,
}

var reportStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Attendance and diagnosis tables for a period",
	RunE:  runReport,
}

var reportTopCmd = &cobra.Command{
	Use:   "top",
	Short: "Most frequent diagnoses for a period",
}

var (
	reportPeriod    periodFlags
	reportFormat    string
	reportHideEmpty bool
	reportTop       int
	reportWatch     bool
)

func init() {
	// Assigned here: runReport refers back to reportTopCmd
	reportTopCmd.RunE = runReport

	for _, c := range []*cobra.Command{reportStatsCmd, reportTopCmd} {
		reportPeriod.register(c)
		c.Flags().StringVar(&reportFormat, "format", "", "Output format: table, json, yaml, toml (default report.format)")
		c.Flags().BoolVar(&reportHideEmpty, "hide-empty", false, "Drop diagnoses without encounters (default report.hide_empty)")
		c.Flags().BoolVar(&reportWatch, "watch", false, "Print again when the sqlite database changes")
	}
	reportTopCmd.Flags().IntVarP(&reportTop, "limit", "n", 0, "Number of diagnoses (default report.top)")

	ReportCmd.AddCommand(reportStatsCmd)
	ReportCmd.AddCommand(reportTopCmd)
}

// reportRun carries what one rendering needs
type reportRun struct {
	store  *store.Store
	format string
	opts   report.Options
	// top prints only the ranking
	top bool
}

func runReport(cmd *cobra.Command, args []string) error {
	if err := reportPeriod.validate(); err != nil {
		return err
	}

	s, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	run := newReportRun(cmd, s, cfg)
	if err := run.render(); err != nil {
		return err
	}
	if !reportWatch {
		return nil
	}
	return run.watch(time.Duration(cfg.GetDebounceMS()) * time.Millisecond)
}

func newReportRun(cmd *cobra.Command, s *store.Store, cfg *am.Config) *reportRun {
	run := &reportRun{
		store:  s,
		format: cfg.GetReportFormat(),
		opts: report.Options{
			HideEmpty: cfg.Report.HideEmpty,
			Top:       cfg.Report.Top,
		},
		top: cmd == reportTopCmd,
	}
	if cmd.Flags().Changed("format") {
		run.format = reportFormat
	}
	if cmd.Flags().Changed("hide-empty") {
		run.opts.HideEmpty = reportHideEmpty
	}
	if cmd.Flags().Changed("limit") {
		run.opts.Top = reportTop
	}
	if run.top && run.opts.Top == 0 {
		run.opts.Top = am.DefaultReportTop
	}
	return run
}

func (r *reportRun) render() error {
	encounters, err := r.store.FetchEncounters(reportPeriod.year, reportPeriod.month)
	if err != nil {
		return err
	}
	vocabulary, err := r.store.DiagnosisNames()
	if err != nil {
		return err
	}

	rep := report.Build(reportPeriod.year, reportPeriod.month, encounters, vocabulary, r.opts)
	if r.top {
		return report.WriteTop(os.Stdout, rep, r.format)
	}
	return report.Write(os.Stdout, rep, r.format)
}

// watch re-renders after each settled change until interrupted.
func (r *reportRun) watch(debounce time.Duration) error {
	path := r.store.Path()
	if path == "" {
		return errors.WithHint(
			errors.Newk(errors.ErrConfiguration, "--watch needs the sqlite backend"),
			"rerun the command to refresh a network database report")
	}

	log := logger.ChildLogger(logger.ComponentLogger("watch"),
		logger.FieldYear, reportPeriod.year,
		logger.FieldMonth, reportPeriod.month,
	)
	watcher, err := db.NewFileWatcher(path, debounce, log)
	if err != nil {
		return err
	}

	changed := make(chan struct{}, 1)
	watcher.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	watcher.Start()
	defer watcher.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infow("Watching database", logger.FieldPath, path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			fmt.Printf("\n--- %s ---\n", time.Now().Format("15:04:05"))
			// A failed refresh keeps watching; the next change may succeed
			if err := r.render(); err != nil {
				log.Errorw("Failed to refresh report", logger.FieldError, err)
			}
		}
	}
}
