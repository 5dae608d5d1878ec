package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/straycheck/internal/config"
)

var listChecksCmd = &cobra.Command{
	Use:   "list-checks",
	Short: "List all checks defined in configuration",
	Long: `List-checks displays all reconciliation checks defined in the
configuration file along with their layers and recipients.

Example:
  straycheck list-checks --config straycheck.yaml`,
	RunE: runListChecks,
}

func init() {
	rootCmd.AddCommand(listChecksCmd)
}

func runListChecks(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	checkNames := cfg.ListChecks()

	if len(checkNames) == 0 {
		cmd.Printf("No checks defined in %s\n", configFile)
		return nil
	}

	cmd.Printf("Checks defined in %s:\n\n", configFile)

	for i, name := range checkNames {
		check, err := cfg.GetCheck(name)
		if err != nil {
			return fmt.Errorf("failed to get check %q: %w", name, err)
		}

		cmd.Printf("%d. %s\n", i+1, name)
		cmd.Printf("   Parent:        %s (%s)\n", check.Parent.Layer, check.Parent.IDField)
		cmd.Printf("   Child:         %s (%s -> %s)\n",
			check.Child.Layer, check.Child.ParentField, check.Parent.IDField)

		if check.Child.Where != "" {
			cmd.Printf("   WHERE:         %s\n", check.Child.Where)
		} else {
			cmd.Printf("   WHERE:         (none)\n")
		}

		cmd.Printf("   Time zone:     %s\n", check.Report.Timezone)
		if check.NormalizeIDs {
			cmd.Printf("   IDs:           normalized\n")
		}

		printRoute(cmd, "Found", check.Notification.Found)
		printRoute(cmd, "Clear", check.Notification.Clear)

		// Add spacing between checks
		if i < len(checkNames)-1 {
			cmd.Println()
		}
	}

	cmd.Printf("\nTotal: %d check(s)\n", len(checkNames))
	return nil
}

func printRoute(cmd *cobra.Command, label string, route config.RouteConfig) {
	cmd.Printf("   %-14s %q\n", label+":", route.Subject)
	cmd.Printf("      To: %s\n", strings.Join(route.To, ", "))
	if len(route.CC) > 0 {
		cmd.Printf("      CC: %s\n", strings.Join(route.CC, ", "))
	}
}
