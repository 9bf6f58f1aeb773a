// Package cli provides the command-line interface for the alerting application.
package cli

import (
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stock-alerts/internal/config"
	"stock-alerts/internal/logging"
	"stock-alerts/internal/notify"
	"stock-alerts/internal/quotes"
	"stock-alerts/internal/store"
)

// Version information
const (
	Version = "2.0.0"
)

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	ConfigDir string
	Logger    zerolog.Logger
	Quotes    quotes.Client
	Notifier  notify.Notifier
	Store     store.DataStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, configDir string, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config:    cfg,
		ConfigDir: configDir,
		Logger:    logger,
	}

	// Quote client needs the API key; commands that fetch check for it.
	if cfg.Credentials.AlphaVantage.APIKey != "" {
		app.Quotes = quotes.NewAlphaVantageClient(quotes.Config{
			APIKey:     cfg.Credentials.AlphaVantage.APIKey,
			MaxRetries: cfg.RateLimiting.MaxRetries,
			RetryDelay: cfg.APIDelay(),
		}, logger)
		logger.Debug().Msg("Quote client initialized")
	}

	app.Notifier = notify.NewMultiNotifier(cfg, logger)

	if cfg.Storage.Enabled {
		dataStore, err := store.NewSQLiteStore(cfg.Storage.Database)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize store, history and price alerts unavailable")
		} else {
			app.Store = dataStore
			logger.Debug().Str("database", cfg.Storage.Database).Msg("SQLite store initialized")
		}
	}

	rootCmd := &cobra.Command{
		Use:   "stock-alerts",
		Short: "Stock Price Alerts - scheduled and price-move notifications",
		Long: `Stock Price Alerts monitors a watchlist of ticker symbols and sends
SMS/email notifications on a wall-clock schedule or when a price moves beyond
a configured threshold within a lookback window.

Use 'stock-alerts help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/stock-alerts)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addWatchlistCommands(rootCmd, app)
	addDataCommands(rootCmd, app)
	addMonitorCommands(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("Stock Price Alerts v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			dir := app.ConfigDir
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			if output.IsJSON() {
				output.JSON(map[string]string{"path": dir, "config": filepath.Join(dir, "config.toml")})
			} else {
				output.Println(dir)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Watchlist")
	if len(cfg.Watchlist) == 0 {
		output.Printf("  (empty)\n")
	}
	for _, symbol := range cfg.Watchlist {
		output.Printf("  • %s\n", symbol)
	}
	output.Println()

	output.Bold("Alert Schedule")
	for _, rule := range cfg.AlertSchedule {
		output.Printf("  %s  %s\n", rule.Time, rule.Message)
	}
	output.Println()

	output.Bold("Price Alerts")
	output.Printf("  Enabled:    %v\n", cfg.PriceAlerts.Enabled)
	output.Printf("  Threshold:  %.1f%%\n", cfg.PriceAlerts.ThresholdPercentage)
	output.Printf("  Lookback:   %d min\n", cfg.PriceAlerts.CheckIntervalMinutes)
	output.Println()

	output.Bold("Market Hours")
	output.Printf("  Gated:      %v\n", cfg.MarketHours.OnlyDuringMarketHours)
	output.Printf("  Window:     %s - %s (%s)\n", cfg.MarketHours.Open, cfg.MarketHours.Close, cfg.Timezone)
	output.Println()

	output.Bold("Rate Limiting")
	output.Printf("  API Delay:  %ds\n", cfg.RateLimiting.APIDelaySeconds)
	output.Printf("  Max Retries: %d\n", cfg.RateLimiting.MaxRetries)
	output.Println()

	output.Bold("Storage")
	output.Printf("  Enabled:    %v\n", cfg.Storage.Enabled)
	output.Printf("  Database:   %s\n", cfg.Storage.Database)
	output.Printf("  Retention:  %d days\n", cfg.Storage.RetentionDays)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  SMS:        %v\n", cfg.Notifications.SMSEnabled)
	output.Printf("  Email:      %v\n", cfg.Notifications.EmailEnabled)
	output.Printf("  Volume:     %v\n", cfg.Notifications.IncludeVolume)
	output.Printf("  High/Low:   %v\n", cfg.Notifications.IncludeDayHighLow)

	return nil
}
