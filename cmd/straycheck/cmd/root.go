package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/straycheck/internal/config"
	"github.com/dbsmedya/straycheck/internal/notify"
	"github.com/dbsmedya/straycheck/internal/report"
	"github.com/dbsmedya/straycheck/internal/source"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// Exit codes returned by the binary.
const (
	ExitOK                = 0
	ExitFailure           = 1
	ExitSourceUnavailable = 2
	ExitDeliveryFailure   = 3
	ExitFormattingFailure = 4
)

// CLI flags that override config file values
var (
	cfgFile        string
	envFile        string
	logLevel       string
	logFormat      string
	timeoutSeconds int
	skipNotify     bool
)

var rootCmd = &cobra.Command{
	Use:   "straycheck",
	Short: "Orphaned child record checker for bird nest survey data",
	Long: `A scheduled reconciliation check that compares child observation
records against their parent bird nest points and reports every
observation whose parent record is missing.

Features:
  - ArcGIS feature service and SQL (MySQL, PostgreSQL, GeoPackage) sources
  - HTML report with observation dates in the configured time zone
  - Delivery through a mail helper command or SMTP
  - Distinct exit codes for source, delivery and formatting failures`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadEnvFile,
}

// Execute runs the root command and exits with the code matching the error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.Red.Sprintf("Error: %v", err))
		os.Exit(ExitCode(err))
	}
}

// ExitCode maps an error returned by a command to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, source.ErrUnavailable):
		return ExitSourceUnavailable
	case errors.Is(err, notify.ErrDelivery):
		return ExitDeliveryFailure
	case errors.Is(err, report.ErrFormatting):
		return ExitFormattingFailure
	default:
		return ExitFailure
	}
}

func init() {
	// Config file flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "straycheck.yaml",
		"Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"Environment file loaded before the configuration, if present")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Source and delivery overrides
	rootCmd.PersistentFlags().IntVar(&timeoutSeconds, "timeout", 0,
		"Override source read timeout in seconds")
	rootCmd.PersistentFlags().BoolVar(&skipNotify, "skip-notify", false,
		"Log the notification instead of delivering it")
}

// loadEnvFile loads the env file so ${VAR} references in the config resolve.
// Variables already set in the environment win.
func loadEnvFile(cmd *cobra.Command, args []string) error {
	if envFile == "" {
		return nil
	}
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}
	return nil
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel       string
	LogFormat      string
	TimeoutSeconds int
	SkipNotify     bool
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:       logLevel,
		LogFormat:      logFormat,
		TimeoutSeconds: timeoutSeconds,
		SkipNotify:     skipNotify,
	}
}

// loadConfig loads the config file, applies CLI overrides and validates the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat,
		overrides.TimeoutSeconds, overrides.SkipNotify)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
