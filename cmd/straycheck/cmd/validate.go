package cmd

import (
	"context"
	"fmt"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/straycheck/internal/config"
	"github.com/dbsmedya/straycheck/internal/database"
	"github.com/dbsmedya/straycheck/internal/logger"
	"github.com/dbsmedya/straycheck/internal/source"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and check source connectivity",
	Long: `Validate checks the configuration file and verifies that every
configured check can reach its parent and child layers.

Checks performed:
  - Configuration syntax and required fields
  - Recipient address syntax
  - Report time zone
  - Database connectivity (sql source)
  - Layer reachability and field presence

Example:
  straycheck validate --config straycheck.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize logger
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	log.Info("Starting validation checks...")

	ctx := context.Background()

	var dbManager *database.Manager
	if cfg.Source.Type == config.SourceSQL {
		dbManager = database.NewManager(&cfg.Source.Database)
		connectCtx, cancel := context.WithTimeout(ctx, cfg.Source.Timeout())
		err := dbManager.Connect(connectCtx)
		cancel()
		if err != nil {
			cmd.Printf("%s Database connection failed: %v\n", color.Red.Sprint("❌"), err)
			return fmt.Errorf("%w: %w", source.ErrUnavailable, err)
		}
		defer dbManager.Close()
	}

	cmd.Printf("\n=== Configuration Validation ===\n")
	cmd.Printf("Config file: %s\n", configFile)
	cmd.Printf("Source: %s\n", cfg.Source.Type)
	cmd.Printf("Notifier: %s\n", cfg.Notifier.Type)
	if dbManager != nil {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.Source.Timeout())
		err := dbManager.Ping(pingCtx)
		cancel()
		if err != nil {
			cmd.Printf("%s Database: %v\n", color.Red.Sprint("❌"), err)
			return fmt.Errorf("%w: %w", source.ErrUnavailable, err)
		}
		cmd.Printf("%s Database: %s\n", color.Green.Sprint("✅"), cfg.Source.Database.Driver)
	}
	cmd.Printf("Checks found: %d\n\n", len(cfg.Checks))

	hasErrors := false
	for _, name := range cfg.ListChecks() {
		check, err := cfg.GetCheck(name)
		if err != nil {
			return err
		}

		cmd.Printf("--- Check: %s ---\n", name)
		cmd.Printf("Parent layer: %s\n", check.Parent.Layer)
		cmd.Printf("Child layer:  %s\n", check.Child.Layer)

		src, err := source.New(&cfg.Source, *check, dbManager, log.WithCheck(name))
		if err != nil {
			cmd.Printf("%s Failed to create source: %v\n\n", color.Red.Sprint("❌"), err)
			hasErrors = true
			continue
		}

		pingCtx, cancel := context.WithTimeout(ctx, cfg.Source.Timeout())
		err = src.Ping(pingCtx)
		cancel()
		if err != nil {
			cmd.Printf("%s Source check failed: %v\n\n", color.Red.Sprint("❌"), err)
			hasErrors = true
			continue
		}

		cmd.Printf("%s All checks passed\n\n", color.Green.Sprint("✅"))
	}

	if hasErrors {
		return fmt.Errorf("validation failed for one or more checks: %w", source.ErrUnavailable)
	}

	cmd.Println("=== Validation Complete ===")
	cmd.Printf("%s All checks validated successfully\n", color.Green.Sprint("✅"))
	return nil
}
