// Package cmd contains the CLI commands for stockwatcher.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JoethonDev/stockwatcher/internal/storage"
)

var (
	// Used for flags
	verbose bool
	output  string
)

// defaultDBPath is the default database path, can be overridden via STOCKWATCHER_DB_PATH env var
var defaultDBPath = "data/stockwatcher.db"

func init() {
	if envPath := os.Getenv("STOCKWATCHER_DB_PATH"); envPath != "" {
		defaultDBPath = envPath
	}
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stockctl",
	Short: "Stockwatcher - Stock price alert engine",
	Long: `stockctl is the administrative CLI for stockwatcher, a stock price
alert engine.

These commands operate directly on the database file and are intended
for system administrators to manage the installation outside of the
REST API.

Examples:
  # Seed the default symbol universe
  stockctl seed

  # Create an admin user
  stockctl user create --username admin --email admin@example.com --role admin

  # List tracked companies
  stockctl company list`,
	// Run when no subcommand is specified
	Run: func(cmd *cobra.Command, args []string) {
		// Show help by default
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
}

// GetOutput returns the output format.
func GetOutput() string {
	return output
}

// PrintVerbose prints a message only if verbose mode is enabled.
func PrintVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}

// openDatabase opens the SQLite database.
func openDatabase(path string) (*storage.SQLiteStorage, error) {
	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("database file not found: %s", path)
	}

	store := storage.NewSQLiteStorage(path)
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return store, nil
}
