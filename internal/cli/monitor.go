package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"stock-alerts/internal/alerts"
)

// addMonitorCommands adds the long-running monitor loop and the
// notification smoke test.
func addMonitorCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newMonitorCmd(app))
	rootCmd.AddCommand(newNotifyTestCmd(app))
}

func newMonitorCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the monitoring loop",
		Long: `Runs monitoring cycles at a fixed interval until interrupted.

Each cycle checks scheduled alerts and price-change alerts for the
watchlist. Cycle failures are logged and never stop the loop. SIGINT or
SIGTERM stops the loop between cycles.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := requireQuotes(app); err != nil {
				output.Error("%v", err)
				return err
			}

			interval, _ := cmd.Flags().GetInt("interval")
			if interval <= 0 {
				interval = 60
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			manager := alerts.NewManager(app.Config, app.Quotes, app.Notifier, app.Store, app.Logger)

			output.Info("Starting monitor: %d symbols, %ds interval", len(app.Config.Watchlist), interval)
			app.Logger.Info().
				Int("watchlist", len(app.Config.Watchlist)).
				Int("interval_seconds", interval).
				Bool("price_alerts", app.Config.PriceAlerts.Enabled).
				Bool("storage", app.Store != nil).
				Msg("Monitor started")

			ticker := time.NewTicker(time.Duration(interval) * time.Second)
			defer ticker.Stop()

			// First cycle runs immediately; later cycles on the tick.
			manager.RunMonitoringCycle(ctx)

			for {
				select {
				case <-ctx.Done():
					app.Logger.Info().Msg("Monitor stopping")
					output.Info("Shutting down...")
					if app.Store != nil {
						if err := app.Store.Close(); err != nil {
							app.Logger.Warn().Err(err).Msg("Failed to close store")
						}
					}
					return nil
				case <-ticker.C:
					manager.RunMonitoringCycle(ctx)
				}
			}
		},
	}

	cmd.Flags().IntP("interval", "i", 60, "seconds between monitoring cycles")
	return cmd
}

func newNotifyTestCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "notify-test",
		Short: "Send a test notification through all enabled channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			message := "Test notification from stock-alerts. If you can read this, delivery works."
			sent := app.Notifier.Notify(cmd.Context(), message, "Test Notification")

			if output.IsJSON() {
				return output.JSON(map[string]int{"channels": sent})
			}

			if sent == 0 {
				output.Warning("No notification channels delivered the test message")
				output.Dim("Check [notifications] in config.toml and your credentials")
				return nil
			}
			output.Success("✓ Test notification sent via %d channel(s)", sent)
			return nil
		},
	}
}
