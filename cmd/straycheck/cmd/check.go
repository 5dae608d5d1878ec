package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/straycheck/internal/checker"
	"github.com/dbsmedya/straycheck/internal/config"
	"github.com/dbsmedya/straycheck/internal/database"
	"github.com/dbsmedya/straycheck/internal/logger"
	"github.com/dbsmedya/straycheck/internal/notify"
	"github.com/dbsmedya/straycheck/internal/report"
	"github.com/dbsmedya/straycheck/internal/source"
)

var (
	checkJob    string
	checkDryRun bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a reconciliation check and send the report",
	Long: `Check reads the parent and child layers of the named check, finds
child records whose parent is missing, renders the HTML report and
delivers it to the configured recipients.

With --dry-run the report is printed as a table and nothing is sent.

Exit status:
  0  check completed (with or without missing parents)
  1  configuration or usage error
  2  data source unavailable
  3  notification delivery failed
  4  report formatting failed

Example:
  straycheck check --config straycheck.yaml --job bird_nests`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkJob, "job", "j", "",
		"Check name from configuration file (required)")
	checkCmd.MarkFlagRequired("job")
	checkCmd.Flags().BoolVar(&checkDryRun, "dry-run", false,
		"Print the report instead of sending it")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	checkCfg, err := cfg.GetCheck(checkJob)
	if err != nil {
		return err
	}

	// Initialize logger
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := database.SetupSignalHandler(func(sig os.Signal) {
		log.Warnw("Received signal, cancelling check", "signal", sig.String())
	})
	defer stop()

	// The sql source needs a connection; the feature service does not
	var dbManager *database.Manager
	if cfg.Source.Type == config.SourceSQL {
		dbManager = database.NewManager(&cfg.Source.Database)
		connectCtx, cancel := context.WithTimeout(ctx, cfg.Source.Timeout())
		err := dbManager.Connect(connectCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("%w: %w", source.ErrUnavailable, err)
		}
		defer dbManager.Close()
	}

	src, err := source.New(&cfg.Source, *checkCfg, dbManager, log)
	if err != nil {
		return err
	}

	var notifier notify.Notifier
	if checkDryRun {
		notifier = notify.NewLogNotifier(log)
	} else {
		notifier, err = notify.New(cfg.Notifier, log)
		if err != nil {
			return err
		}
	}

	c, err := checker.NewChecker(checkJob, checkCfg, src, notifier, log)
	if err != nil {
		return err
	}
	c.SetTimeouts(cfg.Source.Timeout(), cfg.Notifier.Timeout())
	c.SetDryRun(checkDryRun)

	result, runErr := c.Run(ctx)
	printCheckResult(cmd, result, c.Location())
	return runErr
}

// printCheckResult writes a short summary of the run, and the orphan table on dry runs.
func printCheckResult(cmd *cobra.Command, result *checker.Result, loc *time.Location) {
	if result == nil || result.Report == nil {
		return
	}

	cmd.Printf("\n=== Check: %s ===\n", result.CheckName)
	cmd.Printf("Parent records:  %d\n", result.Stats.Parents)
	cmd.Printf("Child records:   %d\n", result.Stats.Children)
	cmd.Printf("Missing parents: %d\n", result.Stats.Orphans)
	cmd.Printf("Duration:        %s\n", result.Duration.Round(time.Millisecond))

	if result.DryRun {
		cmd.Printf("Subject:         %s\n\n", result.Message.Subject)
		if err := report.WriteTable(cmd.OutOrStdout(), result.Report, loc); err != nil {
			cmd.Printf("%s Could not print report: %v\n", color.Red.Sprint("❌"), err)
		}
		cmd.Printf("\n%s Dry run, notification not sent\n", color.Yellow.Sprint("⚠"))
		return
	}

	switch {
	case result.Delivered:
		cmd.Printf("\n%s Notification sent: %s\n", color.Green.Sprint("✅"), result.Message.Subject)
	case result.DeliveryError != nil:
		cmd.Printf("\n%s Notification failed: %v\n", color.Red.Sprint("❌"), result.DeliveryError)
	}
}
