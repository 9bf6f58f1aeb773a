// Package alerts provides the alert evaluation core: schedule and
// price-delta rules, dedup state, and the per-cycle orchestration of fetch,
// persist and notify.
package alerts

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stock-alerts/internal/config"
	"stock-alerts/internal/logging"
	"stock-alerts/internal/models"
	"stock-alerts/internal/notify"
	"stock-alerts/internal/quotes"
	"stock-alerts/internal/store"
	"stock-alerts/pkg/utils"
)

// Manager owns alert evaluation. It is not safe for concurrent use; the
// cycle driver invokes it sequentially.
type Manager struct {
	cfg      *config.Config
	quotes   quotes.Client
	notifier notify.Notifier
	store    store.DataStore // nil when storage is disabled
	logger   zerolog.Logger
	loc      *time.Location

	// injectable for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	dedup           *dedupState
	lastCleanupDate string
	emptyWarned     bool
}

// NewManager creates a new alert manager. dataStore may be nil when storage
// is disabled; price-delta evaluation is skipped in that case.
func NewManager(cfg *config.Config, client quotes.Client, notifier notify.Notifier, dataStore store.DataStore, logger zerolog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		quotes:   client,
		notifier: notifier,
		store:    dataStore,
		logger:   logging.WithOperation(logger, "alerts"),
		loc:      cfg.Location(),
		now:      time.Now,
		sleep:    sleepCtx,
		dedup:    newDedupState(),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// currentTime returns the current instant in the configured timezone.
func (m *Manager) currentTime() time.Time {
	return m.now().In(m.loc)
}

// RunMonitoringCycle runs one monitoring cycle: market-hours gate, schedule
// rules, price-delta rules, and the once-a-day retention sweep. Failures are
// logged and never propagate; the driver always sees the cycle as complete.
func (m *Manager) RunMonitoringCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).Msg("Monitoring cycle panicked")
		}
	}()

	m.logger.Debug().Msg("Running monitoring cycle")
	now := m.currentTime()

	if m.cfg.MarketHours.OnlyDuringMarketHours && !m.isMarketHours(now) {
		m.logger.Debug().Msg("Outside market hours, skipping monitoring")
		return
	}

	m.checkScheduledAlerts(ctx, now)
	m.checkPriceChangeAlerts(ctx)
	m.maybeCleanup(ctx, now)
	m.dedup.evict(now)
}

// isMarketHours reports whether now falls within Mon-Fri [open, close].
func (m *Manager) isMarketHours(now time.Time) bool {
	return utils.WithinMarketHours(now, m.cfg.MarketHours.Open, m.cfg.MarketHours.Close)
}

// checkScheduledAlerts fires every schedule rule whose HH:MM matches the
// current minute, at most once per rule per calendar date.
func (m *Manager) checkScheduledAlerts(ctx context.Context, now time.Time) {
	if len(m.cfg.Watchlist) == 0 {
		if !m.emptyWarned {
			m.logger.Warn().Msg("Watchlist is empty, skipping scheduled alerts")
			m.emptyWarned = true
		}
		return
	}

	currentTime := now.Format("15:04")

	for _, rule := range m.cfg.AlertSchedule {
		if rule.Time != currentTime {
			continue
		}

		key := fmt.Sprintf("%s_%s", rule.Time, now.Format("2006-01-02"))
		if m.dedup.seenSchedule(key) {
			m.logger.Debug().Str("time", rule.Time).Msg("Already sent scheduled alert today")
			continue
		}

		m.logger.Info().Str("time", rule.Time).Msg("Sending scheduled alert")
		channels := m.sendWatchlistAlert(ctx, rule.Message)

		// Recorded after the dispatch attempt regardless of channel
		// outcome: partial channel failure must not retry the batch.
		m.dedup.recordSchedule(key, now)
		logging.LogAlert(m.logger, "schedule", key, channels)
	}
}

// sendWatchlistAlert fetches every watchlist symbol in order, persists
// successful quotes, and dispatches one combined notification. Returns the
// number of channels that accepted it.
func (m *Manager) sendWatchlistAlert(ctx context.Context, intro string) int {
	messages := []string{intro}
	delay := m.cfg.APIDelay()

	for i, symbol := range m.cfg.Watchlist {
		quote, err := m.quotes.GetQuote(ctx, symbol)
		if err != nil {
			m.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to fetch quote")
			messages = append(messages, fmt.Sprintf("%s: Unable to fetch price", symbol))
		} else {
			m.saveQuote(ctx, quote)
			messages = append(messages, m.FormatQuoteMessage(quote, true))
		}

		// Rate limiting between upstream calls, skipped after the last
		if i < len(m.cfg.Watchlist)-1 {
			if err := m.sleep(ctx, delay); err != nil {
				break
			}
		}
	}

	return m.notifier.Notify(ctx, strings.Join(messages, "\n"), "")
}

// checkPriceChangeAlerts evaluates the price-delta rule for every watchlist
// symbol, at most one alert per symbol per calendar hour.
func (m *Manager) checkPriceChangeAlerts(ctx context.Context) {
	if !m.cfg.PriceAlerts.Enabled || m.store == nil || len(m.cfg.Watchlist) == 0 {
		return
	}

	threshold := m.cfg.PriceAlerts.ThresholdPercentage
	lookback := m.cfg.LookbackWindow()
	delay := m.cfg.APIDelay()

	for _, symbol := range m.cfg.Watchlist {
		quote, err := m.quotes.GetQuote(ctx, symbol)
		if err != nil {
			m.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to fetch quote")
			continue
		}

		m.saveQuote(ctx, quote)

		change, ok := m.priceChangePercent(ctx, symbol, lookback)
		if !ok {
			continue
		}

		if math.Abs(change) >= threshold {
			now := m.currentTime()
			key := fmt.Sprintf("%s_%s", symbol, now.Format("2006-01-02_15"))
			if m.dedup.seenPrice(key) {
				continue
			}

			direction := "up"
			if change < 0 {
				direction = "down"
			}
			message := fmt.Sprintf(
				"🚨 PRICE ALERT 🚨\n%s is %s %.2f%% in the last %d minutes!\n%s",
				symbol, direction, math.Abs(change),
				m.cfg.PriceAlerts.CheckIntervalMinutes,
				m.FormatQuoteMessage(quote, true),
			)

			m.logger.Info().Str("symbol", symbol).Float64("change_percent", change).Msg("Sending price change alert")
			channels := m.notifier.Notify(ctx, message, fmt.Sprintf("Price Alert: %s", symbol))
			m.dedup.recordPrice(key, now)
			logging.LogAlert(m.logger, "price", key, channels)
		}

		// Rate limiting, trailing sleep included: it paces the gap
		// before the next cycle's first fetch.
		if err := m.sleep(ctx, delay); err != nil {
			return
		}
	}
}

// priceChangePercent computes the percent change between the most recently
// persisted quote and the oldest quote inside the lookback window, rounded
// to 2 decimal places. Returns ok=false when there is no signal.
func (m *Manager) priceChangePercent(ctx context.Context, symbol string, lookback time.Duration) (float64, bool) {
	latest, err := m.store.LatestQuote(ctx, symbol)
	if err != nil {
		m.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to load latest quote")
		return 0, false
	}

	cutoff := m.now().Add(-lookback)
	oldest, err := m.store.OldestQuoteSince(ctx, symbol, cutoff)
	if err != nil {
		m.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to load oldest quote in window")
		return 0, false
	}

	if latest == nil || oldest == nil || oldest.Price == 0 {
		return 0, false
	}

	change := (latest.Price - oldest.Price) / oldest.Price * 100
	return math.Round(change*100) / 100, true
}

// saveQuote persists a quote when storage is enabled. Persistence failures
// degrade to a log entry; evaluation continues with absent history.
func (m *Manager) saveQuote(ctx context.Context, quote *models.Quote) {
	if m.store == nil {
		return
	}
	if err := m.store.SaveQuote(ctx, quote); err != nil {
		m.logger.Error().Err(err).Str("symbol", quote.Symbol).Msg("Failed to save quote")
	}
}

// maybeCleanup runs the retention sweep at the first cycle of a calendar day
// observed at local 00:00.
func (m *Manager) maybeCleanup(ctx context.Context, now time.Time) {
	if m.store == nil {
		return
	}
	if now.Hour() != 0 || now.Minute() != 0 {
		return
	}

	today := now.Format("2006-01-02")
	if m.lastCleanupDate == today {
		return
	}
	m.lastCleanupDate = today

	cutoff := now.AddDate(0, 0, -m.cfg.Storage.RetentionDays)
	deleted, err := m.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		m.logger.Error().Err(err).Msg("Retention cleanup failed")
		return
	}
	m.logger.Info().Int64("deleted", deleted).Int("retention_days", m.cfg.Storage.RetentionDays).Msg("Cleaned up old price records")
}

// FormatQuoteMessage renders a quote as a one-line notification fragment,
// e.g. `AAPL: $189.50 (+$1.25, +0.66%) | Vol: 52,164,000 | H: $190.10 L: $187.90`.
// Volume and high/low are gated by the notification config.
func (m *Manager) FormatQuoteMessage(quote *models.Quote, includeDetails bool) string {
	message := fmt.Sprintf("%s: %s", quote.Symbol, utils.FormatUSD(quote.Price))

	if !includeDetails {
		return message
	}

	// Negative values carry their own minus sign; positives get a "+".
	sign := ""
	if quote.Change >= 0 {
		sign = "+"
	}
	message += fmt.Sprintf(" (%s%s, %s%s%%)", sign, utils.FormatUSD(quote.Change), sign, quote.ChangePercent)

	if m.cfg.Notifications.IncludeVolume && quote.Volume > 0 {
		message += fmt.Sprintf(" | Vol: %s", utils.FormatVolume(quote.Volume))
	}

	if m.cfg.Notifications.IncludeDayHighLow && quote.High > 0 && quote.Low > 0 {
		message += fmt.Sprintf(" | H: %s L: %s", utils.FormatUSD(quote.High), utils.FormatUSD(quote.Low))
	}

	return message
}
