package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JoethonDev/stockwatcher/internal/api"
	"github.com/JoethonDev/stockwatcher/internal/api/health"
	"github.com/JoethonDev/stockwatcher/internal/metrics"
	"github.com/JoethonDev/stockwatcher/internal/notifier"
	"github.com/JoethonDev/stockwatcher/internal/pricesource"
	"github.com/JoethonDev/stockwatcher/internal/scheduler"
	"github.com/JoethonDev/stockwatcher/internal/storage"
	"github.com/JoethonDev/stockwatcher/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "stockwatcher-server",
	Short: "Stockwatcher Server - Stock price alert engine",
	Long: `Stockwatcher Server polls stock prices on a fixed interval, evaluates
user-defined alerts against them, and delivers notifications when an
alert fires. It also serves the REST API for managing alerts.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stockwatcher-server %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	// Load configuration from file if provided
	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.Address = httpAddr
	}
	cfg.Verbose = verbose

	// Get JWT secret from environment
	jwtSecret := os.Getenv("STOCKWATCHER_JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("STOCKWATCHER_JWT_SECRET environment variable is required")
	}

	// Auto-create data directory
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Initialize storage
	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	// Create default admin user on first run
	if err := store.EnsureAdminUser(); err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}

	// Populate the tracked symbol universe on first run
	created, err := storage.SeedCompanies(cmd.Context(), store)
	if err != nil {
		return fmt.Errorf("seed companies: %w", err)
	}
	if created > 0 {
		log.Printf("seeded %d companies", created)
	}

	log.Printf("database initialized at %s", cfg.Database.Path)

	// Price source
	source, err := buildPriceSource(cfg)
	if err != nil {
		return fmt.Errorf("configure price source: %w", err)
	}

	// Notification dispatcher
	dispatcher, err := buildDispatcher(cfg)
	if err != nil {
		return fmt.Errorf("configure notifications: %w", err)
	}
	defer dispatcher.Close()

	// Evaluation scheduler
	sched := scheduler.New(store, source, dispatcher, scheduler.Config{
		Interval:      cfg.Scheduler.Interval,
		Concurrency:   cfg.Scheduler.Concurrency,
		StoreTimeout:  cfg.Scheduler.StoreTimeout,
		FetchTimeout:  cfg.Scheduler.FetchTimeout,
		NotifyTimeout: cfg.Scheduler.NotifyTimeout,
	})

	// HTTP API server
	apiCfg := &api.Config{
		Address:          cfg.Server.Address,
		JWTSecret:        []byte(jwtSecret),
		HTTPTLSEnabled:   cfg.Server.TLS.Enabled,
		HTTPTLSCertFile:  cfg.Server.TLS.CertFile,
		HTTPTLSKeyFile:   cfg.Server.TLS.KeyFile,
		AccessTokenTTL:   cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL:  cfg.Auth.RefreshTokenTTL,
		RateLimitPerIP:   cfg.Auth.RateLimitPerIP,
		RateLimitPerUser: cfg.Auth.RateLimitPerUser,
		LockoutThreshold: cfg.Auth.LockoutThreshold,
		LockoutDuration:  cfg.Auth.LockoutDuration,
		AllowSignup:      cfg.Auth.AllowSignup,
		Verbose:          cfg.Verbose,
	}

	apiServer, err := api.New(apiCfg, store)
	if err != nil {
		return fmt.Errorf("create API server: %w", err)
	}

	apiServer.RegisterHealthChecker(health.NewSQLiteChecker(store.DB()))
	apiServer.RegisterHealthChecker(health.NewSchedulerChecker(sched.LastTick, cfg.Scheduler.Interval))

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	log.Printf("starting stockwatcher-server %s", config.Version)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		return apiServer.Run(gctx)
	})

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Address)
		g.Go(func() error {
			return metricsServer.Start()
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	log.Printf("server stopped")
	return nil
}

// buildPriceSource constructs the configured quote provider.
func buildPriceSource(cfg *Config) (pricesource.Source, error) {
	switch cfg.PriceSource.Provider {
	case "fmp":
		apiKey := os.Getenv("STOCKWATCHER_FMP_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("STOCKWATCHER_FMP_API_KEY environment variable is required for the fmp provider")
		}
		return pricesource.NewFMPSource(pricesource.FMPConfig{
			BaseURL:           cfg.PriceSource.BaseURL,
			APIKey:            apiKey,
			Timeout:           cfg.PriceSource.Timeout,
			RequestsPerMinute: cfg.PriceSource.RequestsPerMinute,
		})
	case "static":
		// Development provider: serves the companies' seeded prices.
		log.Printf("using static price source; prices will not move")
		return pricesource.NewStaticSource(staticSeedPrices()), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.PriceSource.Provider)
	}
}

// staticSeedPrices returns fixed development prices for the default
// symbol universe.
func staticSeedPrices() map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal, len(storage.DefaultStocks))
	for _, stock := range storage.DefaultStocks {
		prices[stock.Symbol] = stock.Price
	}
	return prices
}

// buildDispatcher constructs the notification dispatcher with all
// enabled channels registered.
func buildDispatcher(cfg *Config) (*notifier.Dispatcher, error) {
	dispatcher := notifier.NewDispatcherWithRateLimit(notifier.RateLimitConfig{
		MaxPerWindow: cfg.Notifications.RateLimit.MaxPerMinute,
		Window:       time.Minute,
		Enabled:      !cfg.Notifications.RateLimit.Disabled,
	})

	if cfg.Notifications.Console {
		dispatcher.Register(notifier.NewConsoleNotifier())
	}

	if cfg.Notifications.Email.Enabled {
		password := cfg.Notifications.Email.Password
		if password == "" {
			password = os.Getenv("STOCKWATCHER_SMTP_PASSWORD")
		}
		email, err := notifier.NewEmailNotifier(notifier.EmailConfig{
			Host:     cfg.Notifications.Email.Host,
			Port:     cfg.Notifications.Email.Port,
			Username: cfg.Notifications.Email.Username,
			Password: password,
			From:     cfg.Notifications.Email.From,
		})
		if err != nil {
			return nil, fmt.Errorf("email notifier: %w", err)
		}
		dispatcher.Register(email)
	}

	if cfg.Notifications.Webhook.Enabled {
		webhook, err := notifier.NewWebhookNotifier(notifier.WebhookConfig{
			URL:        cfg.Notifications.Webhook.URL,
			AuthHeader: cfg.Notifications.Webhook.AuthHeader,
		})
		if err != nil {
			return nil, fmt.Errorf("webhook notifier: %w", err)
		}
		dispatcher.Register(webhook)
	}

	return dispatcher, nil
}
