package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"stock-alerts/internal/models"
	"stock-alerts/pkg/utils"
)

// addDataCommands adds quote and history commands.
func addDataCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newQuoteCmd(app))
	rootCmd.AddCommand(newPricesCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
}

func newQuoteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "quote <symbol>",
		Short:   "Fetch the current quote for a symbol",
		Example: "  stock-alerts quote AAPL",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := requireQuotes(app); err != nil {
				output.Error("%v", err)
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			symbol := models.NormalizeSymbol(args[0])
			output.Info("Fetching quote for %s...", symbol)

			quote, err := app.Quotes.GetQuote(ctx, symbol)
			if err != nil {
				output.Error("Failed to fetch quote for %s: %v", symbol, err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(quote)
			}

			printQuote(output, quote)
			return nil
		},
	}
}

func newPricesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "prices",
		Short: "Fetch current prices for the whole watchlist",
		Long:  "Fetches every watchlist symbol in order with the configured inter-fetch delay.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := requireQuotes(app); err != nil {
				output.Error("%v", err)
				return err
			}

			if len(app.Config.Watchlist) == 0 {
				output.Warning("Watchlist is empty")
				return nil
			}

			ctx := context.Background()
			delay := app.Config.APIDelay()

			var results []*models.Quote
			for i, symbol := range app.Config.Watchlist {
				quote, err := app.Quotes.GetQuote(ctx, symbol)
				if err != nil {
					output.Error("%s: unable to fetch price (%v)", symbol, err)
				} else {
					results = append(results, quote)
					if !output.IsJSON() {
						printQuoteLine(output, quote)
					}
				}

				if i < len(app.Config.Watchlist)-1 {
					time.Sleep(delay)
				}
			}

			if output.IsJSON() {
				return output.JSON(results)
			}
			return nil
		},
	}
}

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history <symbol>",
		Short:   "Show persisted price history for a symbol",
		Example: "  stock-alerts history AAPL --days 7",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if app.Store == nil {
				output.Warning("Storage is disabled in configuration")
				return nil
			}

			days, _ := cmd.Flags().GetInt("days")
			symbol := models.NormalizeSymbol(args[0])

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			history, err := app.Store.PriceHistory(ctx, symbol, days)
			if err != nil {
				output.Error("Failed to load history for %s: %v", symbol, err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(history)
			}

			if len(history) == 0 {
				output.Warning("No history found for %s", symbol)
				return nil
			}

			output.Bold("%s Price History (%d days)", symbol, days)
			limit := len(history)
			if limit > 20 {
				limit = 20
			}
			for _, record := range history[:limit] {
				line := record.Timestamp.Format("2006-01-02 15:04:05") + "  " + utils.FormatUSD(record.Price)
				if record.ChangePercent != "" {
					line += "  " + record.ChangePercent + "%"
				}
				if record.Volume > 0 {
					line += "  Vol: " + utils.FormatVolume(record.Volume)
				}
				output.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().IntP("days", "d", 7, "number of days of history")
	return cmd
}

func printQuote(output *Output, quote *models.Quote) {
	output.Bold("%s", quote.Symbol)
	output.Printf("  Price:          %s\n", utils.FormatUSD(quote.Price))

	changeText := utils.FormatUSD(quote.Change) + " (" + quote.ChangePercent + "%)"
	if quote.Change >= 0 {
		output.Printf("  Change:         %s\n", output.Green(changeText))
	} else {
		output.Printf("  Change:         %s\n", output.Red(changeText))
	}

	output.Printf("  Volume:         %s\n", utils.FormatVolume(quote.Volume))
	output.Printf("  Open:           %s\n", utils.FormatUSD(quote.Open))
	output.Printf("  High:           %s\n", utils.FormatUSD(quote.High))
	output.Printf("  Low:            %s\n", utils.FormatUSD(quote.Low))
	output.Printf("  Previous Close: %s\n", utils.FormatUSD(quote.PreviousClose))
}

func printQuoteLine(output *Output, quote *models.Quote) {
	changeText := utils.FormatUSD(quote.Change) + " (" + quote.ChangePercent + "%)"
	if quote.Change >= 0 {
		changeText = output.Green(changeText)
	} else {
		changeText = output.Red(changeText)
	}
	output.Printf("%-8s %10s  %s\n", quote.Symbol, utils.FormatUSD(quote.Price), changeText)
}
