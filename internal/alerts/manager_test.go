package alerts

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stock-alerts/internal/config"
	errs "stock-alerts/internal/errors"
	"stock-alerts/internal/models"
)

// stubQuoteClient serves canned quotes and records every fetch.
type stubQuoteClient struct {
	quotes  map[string]*models.Quote
	errs    map[string]error
	fetches []string
}

func (s *stubQuoteClient) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	s.fetches = append(s.fetches, symbol)
	if err := s.errs[symbol]; err != nil {
		return nil, err
	}
	if q, ok := s.quotes[symbol]; ok {
		quote := *q
		return &quote, nil
	}
	return nil, errs.NewFetchError(symbol, 1, "no quote data found", errs.ErrQuoteUnavailable)
}

func (s *stubQuoteClient) Price(ctx context.Context, symbol string) (float64, error) {
	quote, err := s.GetQuote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return quote.Price, nil
}

// stubNotifier records every dispatched notification.
type stubNotifier struct {
	messages []string
	subjects []string
	channels int
}

func (s *stubNotifier) Notify(ctx context.Context, message, subject string) int {
	s.messages = append(s.messages, message)
	s.subjects = append(s.subjects, subject)
	return s.channels
}

// memStore is an in-memory DataStore for tests.
type memStore struct {
	records     []models.Quote
	deleteCalls int
}

func (m *memStore) SaveQuote(ctx context.Context, quote *models.Quote) error {
	m.records = append(m.records, *quote)
	return nil
}

func (m *memStore) LatestQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	var latest *models.Quote
	for i := range m.records {
		q := &m.records[i]
		if q.Symbol != symbol {
			continue
		}
		if latest == nil || q.Timestamp.After(latest.Timestamp) {
			latest = q
		}
	}
	if latest == nil {
		return nil, nil
	}
	quote := *latest
	return &quote, nil
}

func (m *memStore) OldestQuoteSince(ctx context.Context, symbol string, cutoff time.Time) (*models.Quote, error) {
	var oldest *models.Quote
	for i := range m.records {
		q := &m.records[i]
		if q.Symbol != symbol || q.Timestamp.Before(cutoff) {
			continue
		}
		if oldest == nil || q.Timestamp.Before(oldest.Timestamp) {
			oldest = q
		}
	}
	if oldest == nil {
		return nil, nil
	}
	quote := *oldest
	return &quote, nil
}

func (m *memStore) PriceHistory(ctx context.Context, symbol string, days int) ([]models.Quote, error) {
	since := time.Now().AddDate(0, 0, -days)
	var out []models.Quote
	for _, q := range m.records {
		if q.Symbol == symbol && !q.Timestamp.Before(since) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *memStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.deleteCalls++
	var kept []models.Quote
	var deleted int64
	for _, q := range m.records {
		if q.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, q)
	}
	m.records = kept
	return deleted, nil
}

func (m *memStore) Close() error { return nil }

func testConfig(watchlist ...string) *config.Config {
	return &config.Config{
		Watchlist: watchlist,
		RateLimiting: config.RateLimitConfig{
			APIDelaySeconds: 12,
			MaxRetries:      3,
		},
		Storage: config.StorageConfig{
			Enabled:       true,
			RetentionDays: 90,
		},
		MarketHours: config.MarketHoursConfig{
			Open:  "09:30",
			Close: "16:00",
		},
	}
}

// testManager builds a manager with a fixed clock and a counting sleep.
func testManager(cfg *config.Config, client *stubQuoteClient, notifier *stubNotifier, dataStore *memStore, at time.Time, sleeps *[]time.Duration) *Manager {
	var m *Manager
	if dataStore != nil {
		m = NewManager(cfg, client, notifier, dataStore, zerolog.Nop())
	} else {
		m = NewManager(cfg, client, notifier, nil, zerolog.Nop())
	}
	m.now = func() time.Time { return at }
	m.sleep = func(ctx context.Context, d time.Duration) error {
		if sleeps != nil {
			*sleeps = append(*sleeps, d)
		}
		return nil
	}
	return m
}

func quoteFixture(symbol string, price float64, at time.Time) *models.Quote {
	return &models.Quote{
		Symbol:        symbol,
		Price:         price,
		Change:        1.25,
		ChangePercent: "0.66",
		Volume:        1000,
		Timestamp:     at,
	}
}

func TestScheduledAlertFiresOncePerDay(t *testing.T) {
	// Monday 10:30 UTC
	at := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)

	cfg := testConfig("AAPL")
	cfg.AlertSchedule = []models.ScheduleRule{{Time: "10:30", Message: "Market check"}}

	client := &stubQuoteClient{quotes: map[string]*models.Quote{
		"AAPL": quoteFixture("AAPL", 189.50, at),
	}}
	notifier := &stubNotifier{channels: 1}
	m := testManager(cfg, client, notifier, &memStore{}, at, nil)

	m.RunMonitoringCycle(context.Background())
	m.RunMonitoringCycle(context.Background())

	if len(notifier.messages) != 1 {
		t.Fatalf("notifications = %d, want 1 (second cycle deduplicated)", len(notifier.messages))
	}
	if !strings.HasPrefix(notifier.messages[0], "Market check\n") {
		t.Errorf("message should start with the rule message, got %q", notifier.messages[0])
	}
	if !strings.Contains(notifier.messages[0], "AAPL: $189.50") {
		t.Errorf("message should contain the formatted quote, got %q", notifier.messages[0])
	}

	// Same wall-clock minute the next day fires again.
	nextDay := at.AddDate(0, 0, 1)
	m.now = func() time.Time { return nextDay }
	m.RunMonitoringCycle(context.Background())

	if len(notifier.messages) != 2 {
		t.Fatalf("notifications after next day = %d, want 2", len(notifier.messages))
	}
}

func TestScheduledAlertNoMatchNoFetch(t *testing.T) {
	at := time.Date(2026, 8, 31, 10, 31, 0, 0, time.UTC)

	cfg := testConfig("AAPL")
	cfg.AlertSchedule = []models.ScheduleRule{{Time: "10:30", Message: "Market check"}}

	client := &stubQuoteClient{}
	notifier := &stubNotifier{channels: 1}
	m := testManager(cfg, client, notifier, &memStore{}, at, nil)

	m.RunMonitoringCycle(context.Background())

	if len(client.fetches) != 0 {
		t.Errorf("fetches = %d, want 0", len(client.fetches))
	}
	if len(notifier.messages) != 0 {
		t.Errorf("notifications = %d, want 0", len(notifier.messages))
	}
}

func TestScheduledAlertPacesBetweenSymbols(t *testing.T) {
	at := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)

	cfg := testConfig("AAPL", "MSFT", "GOOG")
	cfg.AlertSchedule = []models.ScheduleRule{{Time: "10:30", Message: "Market check"}}

	client := &stubQuoteClient{quotes: map[string]*models.Quote{
		"AAPL": quoteFixture("AAPL", 189.50, at),
		"MSFT": quoteFixture("MSFT", 410.00, at),
		"GOOG": quoteFixture("GOOG", 171.30, at),
	}}
	notifier := &stubNotifier{channels: 1}
	var sleeps []time.Duration
	m := testManager(cfg, client, notifier, &memStore{}, at, &sleeps)

	m.RunMonitoringCycle(context.Background())

	if len(client.fetches) != 3 {
		t.Fatalf("fetches = %d, want 3", len(client.fetches))
	}
	// N symbols, N-1 gaps: no sleep after the last fetch
	if len(sleeps) != 2 {
		t.Fatalf("sleeps = %d, want 2", len(sleeps))
	}
	for _, d := range sleeps {
		if d != 12*time.Second {
			t.Errorf("sleep = %v, want 12s", d)
		}
	}
}

func TestScheduledAlertFetchFailureFallbackLine(t *testing.T) {
	at := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)

	cfg := testConfig("AAPL", "BBB")
	cfg.AlertSchedule = []models.ScheduleRule{{Time: "10:30", Message: "Market check"}}

	client := &stubQuoteClient{
		quotes: map[string]*models.Quote{"AAPL": quoteFixture("AAPL", 189.50, at)},
		errs:   map[string]error{"BBB": errs.NewFetchError("BBB", 3, "fetching global quote", errs.ErrRateLimited)},
	}
	notifier := &stubNotifier{channels: 1}
	m := testManager(cfg, client, notifier, &memStore{}, at, nil)

	m.RunMonitoringCycle(context.Background())

	if len(notifier.messages) != 1 {
		t.Fatalf("notifications = %d, want 1 (batch still dispatched)", len(notifier.messages))
	}
	if !strings.Contains(notifier.messages[0], "BBB: Unable to fetch price") {
		t.Errorf("message should carry the fallback line, got %q", notifier.messages[0])
	}
	if !strings.Contains(notifier.messages[0], "AAPL: $189.50") {
		t.Errorf("message should still carry the successful quote, got %q", notifier.messages[0])
	}
}

func TestMarketHoursGate(t *testing.T) {
	cfg := testConfig("AAPL")
	cfg.AlertSchedule = []models.ScheduleRule{{Time: "10:00", Message: "Market check"}}
	cfg.MarketHours.OnlyDuringMarketHours = true

	tests := []struct {
		name        string
		at          time.Time
		wantFetches int
	}{
		{"saturday mid-session", time.Date(2026, 9, 5, 10, 0, 0, 0, time.UTC), 0},
		{"weekday before open", time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC), 0},
		{"weekday in session", time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubQuoteClient{quotes: map[string]*models.Quote{
				"AAPL": quoteFixture("AAPL", 189.50, tt.at),
			}}
			notifier := &stubNotifier{channels: 1}
			m := testManager(cfg, client, notifier, &memStore{}, tt.at, nil)

			m.RunMonitoringCycle(context.Background())

			if len(client.fetches) != tt.wantFetches {
				t.Errorf("fetches = %d, want %d", len(client.fetches), tt.wantFetches)
			}
		})
	}
}

func TestPriceChangeAlertFires(t *testing.T) {
	at := time.Date(2026, 8, 31, 11, 0, 0, 0, time.UTC)

	cfg := testConfig("AAPL")
	cfg.PriceAlerts = config.PriceAlertConfig{
		Enabled:              true,
		ThresholdPercentage:  5.0,
		CheckIntervalMinutes: 15,
	}

	dataStore := &memStore{records: []models.Quote{
		{Symbol: "AAPL", Price: 100.0, Timestamp: at.Add(-10 * time.Minute)},
	}}
	client := &stubQuoteClient{quotes: map[string]*models.Quote{
		"AAPL": quoteFixture("AAPL", 106.0, at),
	}}
	notifier := &stubNotifier{channels: 1}
	m := testManager(cfg, client, notifier, dataStore, at, nil)

	m.RunMonitoringCycle(context.Background())

	if len(notifier.messages) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.messages))
	}
	msg := notifier.messages[0]
	if !strings.Contains(msg, "🚨 PRICE ALERT 🚨") {
		t.Errorf("missing alert banner in %q", msg)
	}
	if !strings.Contains(msg, "AAPL is up 6.00% in the last 15 minutes!") {
		t.Errorf("missing delta line in %q", msg)
	}
	if notifier.subjects[0] != "Price Alert: AAPL" {
		t.Errorf("subject = %q, want %q", notifier.subjects[0], "Price Alert: AAPL")
	}
}

func TestPriceChangeAlertBelowThreshold(t *testing.T) {
	at := time.Date(2026, 8, 31, 11, 0, 0, 0, time.UTC)

	cfg := testConfig("AAPL")
	cfg.PriceAlerts = config.PriceAlertConfig{
		Enabled:              true,
		ThresholdPercentage:  5.0,
		CheckIntervalMinutes: 15,
	}

	dataStore := &memStore{records: []models.Quote{
		{Symbol: "AAPL", Price: 100.0, Timestamp: at.Add(-10 * time.Minute)},
	}}
	client := &stubQuoteClient{quotes: map[string]*models.Quote{
		"AAPL": quoteFixture("AAPL", 104.0, at),
	}}
	notifier := &stubNotifier{channels: 1}
	m := testManager(cfg, client, notifier, dataStore, at, nil)

	m.RunMonitoringCycle(context.Background())

	if len(notifier.messages) != 0 {
		t.Errorf("notifications = %d, want 0 (4%% move under a 5%% threshold)", len(notifier.messages))
	}
}

func TestPriceChangeAlertDedupedPerHour(t *testing.T) {
	at := time.Date(2026, 8, 31, 11, 0, 0, 0, time.UTC)

	cfg := testConfig("AAPL")
	cfg.PriceAlerts = config.PriceAlertConfig{
		Enabled:              true,
		ThresholdPercentage:  5.0,
		CheckIntervalMinutes: 15,
	}

	dataStore := &memStore{records: []models.Quote{
		{Symbol: "AAPL", Price: 100.0, Timestamp: at.Add(-10 * time.Minute)},
	}}
	client := &stubQuoteClient{quotes: map[string]*models.Quote{
		"AAPL": quoteFixture("AAPL", 106.0, at),
	}}
	notifier := &stubNotifier{channels: 1}
	m := testManager(cfg, client, notifier, dataStore, at, nil)

	m.RunMonitoringCycle(context.Background())
	m.RunMonitoringCycle(context.Background())

	if len(notifier.messages) != 1 {
		t.Fatalf("notifications = %d, want 1 (same symbol, same hour)", len(notifier.messages))
	}

	// Next hour the alert is eligible again.
	nextHour := at.Add(time.Hour)
	m.now = func() time.Time { return nextHour }
	client.quotes["AAPL"] = quoteFixture("AAPL", 106.0, nextHour)
	dataStore.records = append(dataStore.records, models.Quote{
		Symbol: "AAPL", Price: 100.0, Timestamp: nextHour.Add(-10 * time.Minute),
	})
	m.RunMonitoringCycle(context.Background())

	if len(notifier.messages) != 2 {
		t.Fatalf("notifications after next hour = %d, want 2", len(notifier.messages))
	}
}

func TestPriceChangeSkippedWithoutStore(t *testing.T) {
	at := time.Date(2026, 8, 31, 11, 0, 0, 0, time.UTC)

	cfg := testConfig("AAPL")
	cfg.PriceAlerts = config.PriceAlertConfig{
		Enabled:              true,
		ThresholdPercentage:  5.0,
		CheckIntervalMinutes: 15,
	}

	client := &stubQuoteClient{}
	notifier := &stubNotifier{channels: 1}
	m := testManager(cfg, client, notifier, nil, at, nil)

	m.RunMonitoringCycle(context.Background())

	if len(client.fetches) != 0 {
		t.Errorf("fetches = %d, want 0 (delta evaluation needs storage)", len(client.fetches))
	}
}

func TestPriceChangePacing(t *testing.T) {
	at := time.Date(2026, 8, 31, 11, 0, 0, 0, time.UTC)

	cfg := testConfig("AAPL", "BBB")
	cfg.PriceAlerts = config.PriceAlertConfig{
		Enabled:              true,
		ThresholdPercentage:  5.0,
		CheckIntervalMinutes: 15,
	}

	client := &stubQuoteClient{
		quotes: map[string]*models.Quote{"AAPL": quoteFixture("AAPL", 106.0, at)},
		errs:   map[string]error{"BBB": errs.NewFetchError("BBB", 3, "fetching global quote", errs.ErrRateLimited)},
	}
	notifier := &stubNotifier{channels: 1}
	var sleeps []time.Duration
	m := testManager(cfg, client, notifier, &memStore{}, at, &sleeps)

	m.RunMonitoringCycle(context.Background())

	// AAPL completes the full evaluation path and sleeps; BBB's fetch
	// failure short-circuits without sleeping.
	if len(sleeps) != 1 {
		t.Errorf("sleeps = %d, want 1", len(sleeps))
	}
}

func TestRetentionCleanupOncePerDay(t *testing.T) {
	midnight := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	cfg := testConfig("AAPL")
	dataStore := &memStore{records: []models.Quote{
		{Symbol: "AAPL", Price: 50.0, Timestamp: midnight.AddDate(0, 0, -120)},
		{Symbol: "AAPL", Price: 100.0, Timestamp: midnight.Add(-time.Hour)},
	}}
	client := &stubQuoteClient{}
	notifier := &stubNotifier{channels: 1}
	m := testManager(cfg, client, notifier, dataStore, midnight, nil)

	m.RunMonitoringCycle(context.Background())
	m.RunMonitoringCycle(context.Background())

	if dataStore.deleteCalls != 1 {
		t.Errorf("delete calls = %d, want 1 (once per calendar day)", dataStore.deleteCalls)
	}
	if len(dataStore.records) != 1 {
		t.Errorf("records after sweep = %d, want 1", len(dataStore.records))
	}

	// Mid-day cycles never sweep.
	noon := midnight.Add(12 * time.Hour)
	m.now = func() time.Time { return noon }
	m.RunMonitoringCycle(context.Background())
	if dataStore.deleteCalls != 1 {
		t.Errorf("delete calls after noon cycle = %d, want 1", dataStore.deleteCalls)
	}
}

func TestFormatQuoteMessage(t *testing.T) {
	cfg := testConfig("ABC")
	m := testManager(cfg, &stubQuoteClient{}, &stubNotifier{}, nil, time.Now(), nil)

	negative := &models.Quote{Symbol: "ABC", Price: 10.50, Change: -0.25, ChangePercent: "-2.3"}
	if got, want := m.FormatQuoteMessage(negative, true), "ABC: $10.50 (-$0.25, -2.3%)"; got != want {
		t.Errorf("negative change = %q, want %q", got, want)
	}

	positive := &models.Quote{Symbol: "AAPL", Price: 189.50, Change: 1.25, ChangePercent: "0.66", Volume: 52164000, High: 190.10, Low: 187.90}
	if got, want := m.FormatQuoteMessage(positive, true), "AAPL: $189.50 (+$1.25, +0.66%)"; got != want {
		t.Errorf("positive change = %q, want %q", got, want)
	}

	cfg.Notifications.IncludeVolume = true
	cfg.Notifications.IncludeDayHighLow = true
	want := "AAPL: $189.50 (+$1.25, +0.66%) | Vol: 52,164,000 | H: $190.10 L: $187.90"
	if got := m.FormatQuoteMessage(positive, true); got != want {
		t.Errorf("with details = %q, want %q", got, want)
	}

	if got, want := m.FormatQuoteMessage(positive, false), "AAPL: $189.50"; got != want {
		t.Errorf("without details = %q, want %q", got, want)
	}
}

func TestCyclePanicDoesNotPropagate(t *testing.T) {
	at := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)

	cfg := testConfig("AAPL")
	cfg.AlertSchedule = []models.ScheduleRule{{Time: "10:30", Message: "Market check"}}

	m := testManager(cfg, &stubQuoteClient{}, &stubNotifier{}, nil, at, nil)
	// A nil quote client field would panic; simulate with a panicking sleep.
	m.sleep = func(ctx context.Context, d time.Duration) error { panic("boom") }
	m.cfg.Watchlist = []string{"AAPL", "MSFT"}

	// Must not panic past the cycle boundary.
	m.RunMonitoringCycle(context.Background())
}
