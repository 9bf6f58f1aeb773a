// Package quotes provides the upstream quote source client.
package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	errs "stock-alerts/internal/errors"
	"stock-alerts/internal/logging"
	"stock-alerts/internal/models"
	"stock-alerts/pkg/utils"
)

// DefaultBaseURL is the Alpha Vantage query endpoint.
const DefaultBaseURL = "https://www.alphavantage.co/query"

// Client defines the interface for fetching quotes.
type Client interface {
	// GetQuote fetches the current quote for a symbol. On exhausting
	// retries it returns a *errors.FetchError; it never panics past this
	// boundary.
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)

	// Price fetches just the current price for a symbol.
	Price(ctx context.Context, symbol string) (float64, error)
}

// Config holds quote client configuration.
type Config struct {
	APIKey     string
	BaseURL    string
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration

	// Sleep overrides the retry delay function, for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// AlphaVantageClient fetches quotes from the Alpha Vantage REST API.
type AlphaVantageClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retryCfg   utils.RetryConfig
	logger     zerolog.Logger
}

// NewAlphaVantageClient creates a new Alpha Vantage client.
func NewAlphaVantageClient(cfg Config, logger zerolog.Logger) *AlphaVantageClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 12 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &AlphaVantageClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retryCfg: utils.RetryConfig{
			MaxAttempts:   cfg.MaxRetries,
			InitialDelay:  cfg.RetryDelay,
			MaxDelay:      cfg.RetryDelay * time.Duration(cfg.MaxRetries),
			BackoffFactor: 1.0,
			RetryIf:       isRetryable,
			Sleep:         cfg.Sleep,
		},
		logger: logging.WithOperation(logger, "quotes"),
	}
}

// isRetryable reports whether a fetch error is worth another attempt.
// Explicit upstream errors and empty payloads fail immediately; transport
// failures and rate-limit signals are retried.
func isRetryable(err error) bool {
	return !errs.Is(err, errs.ErrAPIError) && !errs.Is(err, errs.ErrQuoteUnavailable)
}

// GetQuote fetches the current quote for a symbol.
func (c *AlphaVantageClient) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	symbol = models.NormalizeSymbol(symbol)

	raw, err := c.request(ctx, url.Values{
		"function": {"GLOBAL_QUOTE"},
		"symbol":   {symbol},
	})
	if err != nil {
		return nil, errs.NewFetchError(symbol, c.retryCfg.MaxAttempts, "fetching global quote", err)
	}

	var payload struct {
		GlobalQuote map[string]string `json:"Global Quote"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errs.NewFetchError(symbol, 1, "parsing quote response", err)
	}
	if len(payload.GlobalQuote) == 0 {
		return nil, errs.NewFetchError(symbol, 1, "no quote data found", errs.ErrQuoteUnavailable)
	}

	q := payload.GlobalQuote
	quote := &models.Quote{
		Symbol: symbol,
		Price:  parseFloat(q["05. price"]),
		Change: parseFloat(q["09. change"]),
		// Signed percent without the trailing "%", digits as the source
		// produced them.
		ChangePercent: strings.TrimSuffix(q["10. change percent"], "%"),
		Volume:        parseInt(q["06. volume"]),
		Open:          parseFloat(q["02. open"]),
		High:          parseFloat(q["03. high"]),
		Low:           parseFloat(q["04. low"]),
		PreviousClose: parseFloat(q["08. previous close"]),
		// Observation time, not the source's stale "latest trading day".
		Timestamp: time.Now(),
	}

	logging.LogQuote(c.logger, quote.Symbol, quote.Price, quote.ChangePercent)
	return quote, nil
}

// Price fetches just the current price for a symbol.
func (c *AlphaVantageClient) Price(ctx context.Context, symbol string) (float64, error) {
	quote, err := c.GetQuote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return quote.Price, nil
}

// IntradayBar is one bar of an intraday time series.
type IntradayBar struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// GetIntraday fetches intraday time series bars keyed by timestamp string.
// interval is one of 1min, 5min, 15min, 30min, 60min.
func (c *AlphaVantageClient) GetIntraday(ctx context.Context, symbol, interval string) (map[string]IntradayBar, error) {
	symbol = models.NormalizeSymbol(symbol)

	raw, err := c.request(ctx, url.Values{
		"function": {"TIME_SERIES_INTRADAY"},
		"symbol":   {symbol},
		"interval": {interval},
	})
	if err != nil {
		return nil, errs.NewFetchError(symbol, c.retryCfg.MaxAttempts, "fetching intraday series", err)
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errs.NewFetchError(symbol, 1, "parsing intraday response", err)
	}

	seriesKey := fmt.Sprintf("Time Series (%s)", interval)
	seriesRaw, ok := payload[seriesKey]
	if !ok {
		return nil, errs.NewFetchError(symbol, 1, "no intraday data found", errs.ErrQuoteUnavailable)
	}

	var series map[string]map[string]string
	if err := json.Unmarshal(seriesRaw, &series); err != nil {
		return nil, errs.NewFetchError(symbol, 1, "parsing intraday series", err)
	}

	bars := make(map[string]IntradayBar, len(series))
	for ts, fields := range series {
		bars[ts] = IntradayBar{
			Open:   parseFloat(fields["1. open"]),
			High:   parseFloat(fields["2. high"]),
			Low:    parseFloat(fields["3. low"]),
			Close:  parseFloat(fields["4. close"]),
			Volume: parseInt(fields["5. volume"]),
		}
	}
	return bars, nil
}

// request performs one API call with the configured retry policy.
func (c *AlphaVantageClient) request(ctx context.Context, params url.Values) ([]byte, error) {
	params.Set("apikey", c.apiKey)
	endpoint := c.baseURL + "?" + params.Encode()

	return utils.RetryWithResult(ctx, c.retryCfg, func() ([]byte, error) {
		start := time.Now()
		body, err := c.doRequest(ctx, endpoint)
		logging.LogAPICall(c.logger, http.MethodGet, c.baseURL, time.Since(start), err)
		return body, err
	})
}

func (c *AlphaVantageClient) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	// The API reports errors in the body with a 200 status.
	var envelope struct {
		ErrorMessage string `json:"Error Message"`
		Note         string `json:"Note"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.ErrorMessage != "" {
			return nil, errs.Wrapf(errs.ErrAPIError, "API error: %s", envelope.ErrorMessage)
		}
		if envelope.Note != "" {
			c.logger.Warn().Str("note", envelope.Note).Msg("API rate limit")
			return nil, errs.Wrap(errs.ErrRateLimited, "API rate limit exceeded")
		}
	}

	return body, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}
