package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stock-alerts/internal/config"
	"stock-alerts/internal/models"
)

// addWatchlistCommands adds watchlist management commands.
func addWatchlistCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watchlist management",
		Long:  "Add, remove and list watchlist symbols in config.toml.",
	}

	cmd.AddCommand(newWatchAddCmd(app))
	cmd.AddCommand(newWatchRemoveCmd(app))
	cmd.AddCommand(newWatchListCmd(app))

	rootCmd.AddCommand(cmd)
}

func newWatchAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "add <symbol>",
		Short:   "Add a symbol to the watchlist",
		Example: "  stock-alerts watch add AAPL",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol := models.NormalizeSymbol(args[0])

			for _, existing := range app.Config.Watchlist {
				if existing == symbol {
					output.Warning("%s is already in the watchlist", symbol)
					return nil
				}
			}

			watchlist := append(app.Config.Watchlist, symbol)
			if err := config.SaveWatchlist(app.ConfigDir, watchlist); err != nil {
				output.Error("Failed to update watchlist: %v", err)
				return err
			}
			app.Config.Watchlist = watchlist

			output.Success("✓ Added %s to watchlist", symbol)
			return nil
		},
	}
}

func newWatchRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <symbol>",
		Short:   "Remove a symbol from the watchlist",
		Example: "  stock-alerts watch remove AAPL",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol := models.NormalizeSymbol(args[0])

			var watchlist []string
			found := false
			for _, existing := range app.Config.Watchlist {
				if existing == symbol {
					found = true
					continue
				}
				watchlist = append(watchlist, existing)
			}

			if !found {
				output.Warning("%s is not in the watchlist", symbol)
				return nil
			}

			if err := config.SaveWatchlist(app.ConfigDir, watchlist); err != nil {
				output.Error("Failed to update watchlist: %v", err)
				return err
			}
			app.Config.Watchlist = watchlist

			output.Success("✓ Removed %s from watchlist", symbol)
			return nil
		},
	}
}

func newWatchListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all watchlist symbols",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if output.IsJSON() {
				return output.JSON(map[string][]string{"watchlist": app.Config.Watchlist})
			}

			if len(app.Config.Watchlist) == 0 {
				output.Warning("Watchlist is empty")
				output.Dim("Add symbols with: stock-alerts watch add <symbol>")
				return nil
			}

			output.Bold("Current Watchlist:")
			for _, symbol := range app.Config.Watchlist {
				output.Printf("  • %s\n", symbol)
			}
			return nil
		},
	}
}

// requireQuotes returns an error unless the quote client is configured.
func requireQuotes(app *App) error {
	if app.Quotes == nil {
		return fmt.Errorf("quote source not configured: %v", app.Config.RequireQuoteCredentials())
	}
	return nil
}
