package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JoethonDev/stockwatcher/internal/storage"
)

var (
	alertDBPath   string
	alertUsername string
)

// alertCmd represents the alert command group
var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Alert inspection commands",
	Long: `Commands for inspecting a user's alerts.

Example:
  stockctl alert list --username demouser`,
}

// alertListCmd lists a user's alerts
var alertListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's alerts",
	Long: `List all alerts belonging to a user, including their evaluation
state.

Example:
  stockctl alert list --username demouser`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertUsername == "" {
			return fmt.Errorf("--username is required")
		}

		store, err := openDatabase(alertDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		user, err := store.Users().GetByUsername(ctx, alertUsername)
		if err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		if user == nil {
			return fmt.Errorf("user '%s' not found", alertUsername)
		}

		alerts, err := store.Alerts().ListByUser(ctx, user.ID, storage.AlertFilter{})
		if err != nil {
			return fmt.Errorf("list alerts: %w", err)
		}

		if len(alerts) == 0 {
			fmt.Printf("No alerts found for user '%s'.\n", alertUsername)
			return nil
		}

		if GetOutput() == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(alerts)
		}

		// Print header
		fmt.Printf("\n%-36s  %-8s  %-10s  %-6s  %10s  %-10s\n",
			"ID", "SYMBOL", "KIND", "DIR", "TARGET", "STATE")
		fmt.Println(strings.Repeat("-", 95))

		for _, a := range alerts {
			state := "active"
			if a.HasTriggered() {
				state = "fired"
			} else if !a.IsActive {
				state = "inactive"
			} else if a.ConditionMetSince != nil {
				state = "pending"
			}
			fmt.Printf("%-36s  %-8s  %-10s  %-6s  %10s  %-10s\n",
				a.ID, a.Symbol, a.Kind, a.Direction, a.TargetPrice.StringFixed(2), state)
		}
		fmt.Printf("\nTotal: %d alert(s)\n", len(alerts))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(alertCmd)
	alertCmd.AddCommand(alertListCmd)

	alertListCmd.Flags().StringVar(&alertDBPath, "db", defaultDBPath, "path to SQLite database file")
	alertListCmd.Flags().StringVar(&alertUsername, "username", "", "owner of the alerts (required)")
	alertListCmd.MarkFlagRequired("username")
}
