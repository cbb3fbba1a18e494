package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var companyDBPath string

// companyCmd represents the company command group
var companyCmd = &cobra.Command{
	Use:   "company",
	Short: "Company management commands",
	Long: `Commands for inspecting the tracked symbol universe.

Example:
  stockctl company list`,
}

// companyListCmd lists all tracked companies
var companyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tracked companies",
	Long: `List all companies in the tracked symbol universe with their
cached prices.

Example:
  stockctl company list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(companyDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		companies, err := store.Companies().List(ctx)
		if err != nil {
			return fmt.Errorf("list companies: %w", err)
		}

		if len(companies) == 0 {
			fmt.Println("No companies found. Run 'stockctl seed' first.")
			return nil
		}

		if GetOutput() == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(companies)
		}

		// Print header
		fmt.Printf("\n%-8s  %-44s  %12s  %s\n", "SYMBOL", "NAME", "PRICE", "PRICE UPDATED")
		fmt.Println(strings.Repeat("-", 90))

		for _, c := range companies {
			updated := "never"
			if c.PriceUpdatedAt != nil {
				updated = c.PriceUpdatedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%-8s  %-44s  %12s  %s\n", c.Symbol, c.Name, c.CurrentPrice.StringFixed(2), updated)
		}
		fmt.Printf("\nTotal: %d company(ies)\n", len(companies))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(companyCmd)
	companyCmd.AddCommand(companyListCmd)

	companyListCmd.Flags().StringVar(&companyDBPath, "db", defaultDBPath, "path to SQLite database file")
}
