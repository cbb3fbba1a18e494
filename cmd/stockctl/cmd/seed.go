package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/JoethonDev/stockwatcher/internal/models"
	"github.com/JoethonDev/stockwatcher/internal/storage"
)

var (
	seedDBPath string
	seedDemo   bool
)

const (
	demoUsername = "demouser"
	demoEmail    = "demouser@example.com"
	demoPassword = "demopassword123"
)

// seedCmd populates the database with the default symbol universe.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the default symbol universe",
	Long: `Seed the database with the default set of tracked companies.

Creates the database file if it does not exist, runs migrations, and
inserts any missing companies. Existing companies keep their cached
prices, so seeding an already-populated database is a no-op.

With --demo, also creates a demo member account and two sample alerts
against it for trying out the system.

Examples:
  # Seed companies only
  stockctl seed

  # Seed companies plus a demo user with sample alerts
  stockctl seed --demo`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Unlike the other commands, seed creates the database file.
		if err := os.MkdirAll(filepath.Dir(seedDBPath), 0750); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}

		store := storage.NewSQLiteStorage(seedDBPath)
		if err := store.Open(); err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()

		if err := store.Migrate(); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}

		ctx := context.Background()

		created, err := storage.SeedCompanies(ctx, store)
		if err != nil {
			return fmt.Errorf("seed companies: %w", err)
		}
		fmt.Printf("Seeded %d companies (%d total in universe).\n", created, len(storage.DefaultStocks))

		if !seedDemo {
			return nil
		}

		if err := seedDemoData(ctx, store); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}

		return nil
	},
}

// seedDemoData creates the demo account and two sample alerts: a
// threshold alert on AAPL and a duration alert on TSLA.
func seedDemoData(ctx context.Context, store storage.Storage) error {
	user, err := store.Users().GetByUsername(ctx, demoUsername)
	if err != nil {
		return fmt.Errorf("check demo user: %w", err)
	}
	if user != nil {
		fmt.Printf("Demo user '%s' already exists, skipping.\n", demoUsername)
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user = models.NewUser(demoUsername, demoEmail, models.RoleMember)
	user.PasswordHash = string(hash)
	if err := store.Users().Create(ctx, user); err != nil {
		return fmt.Errorf("create demo user: %w", err)
	}

	samples := []struct {
		symbol          string
		kind            models.AlertKind
		direction       models.Direction
		target          string
		durationSeconds int64
	}{
		{"AAPL", models.KindThreshold, models.DirectionAbove, "200.00", 0},
		{"TSLA", models.KindDuration, models.DirectionBelow, "600.00", 7200},
	}

	for _, s := range samples {
		company, err := store.Companies().GetBySymbol(ctx, s.symbol)
		if err != nil {
			return fmt.Errorf("lookup %s: %w", s.symbol, err)
		}
		if company == nil {
			return fmt.Errorf("company %s not found, seed companies first", s.symbol)
		}

		alert := models.NewAlert(user.ID, company.ID, s.kind, s.direction, decimal.RequireFromString(s.target))
		alert.Symbol = company.Symbol
		alert.DurationSeconds = s.durationSeconds
		if err := alert.Validate(); err != nil {
			return fmt.Errorf("validate %s alert: %w", s.symbol, err)
		}
		if err := store.Alerts().Create(ctx, alert); err != nil {
			return fmt.Errorf("create %s alert: %w", s.symbol, err)
		}
		PrintVerbose("created %s %s alert on %s at %s", s.kind, s.direction, s.symbol, s.target)
	}

	fmt.Printf("Created demo user '%s' with %d sample alerts.\n", demoUsername, len(samples))
	fmt.Printf("  Password: %s\n", demoPassword)

	return nil
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVar(&seedDBPath, "db", defaultDBPath, "path to SQLite database file")
	seedCmd.Flags().BoolVar(&seedDemo, "demo", false, "also create a demo user with sample alerts")
}
