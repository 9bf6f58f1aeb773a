package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stock-alerts/internal/config"
	errs "stock-alerts/internal/errors"
)

// twilioBaseURL is the Twilio REST API base.
const twilioBaseURL = "https://api.twilio.com/2010-04-01"

// SMSChannel sends notifications as SMS via the Twilio REST API.
type SMSChannel struct {
	accountSID string
	authToken  string
	fromNumber string
	toNumber   string
	baseURL    string
	enabled    bool
	client     *http.Client
	logger     zerolog.Logger
}

// NewSMSChannel creates a new SMS channel. The channel constructs disabled
// when any credential is missing.
func NewSMSChannel(creds config.TwilioCredentials, logger zerolog.Logger) *SMSChannel {
	enabled := creds.AccountSID != "" && creds.AuthToken != "" &&
		creds.FromNumber != "" && creds.ToNumber != ""

	if !enabled {
		logger.Warn().Msg("SMS channel disabled - missing credentials")
	}

	return &SMSChannel{
		accountSID: creds.AccountSID,
		authToken:  creds.AuthToken,
		fromNumber: creds.FromNumber,
		toNumber:   creds.ToNumber,
		baseURL:    twilioBaseURL,
		enabled:    enabled,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Name returns the name of the channel.
func (s *SMSChannel) Name() string {
	return "sms"
}

// IsEnabled returns whether the channel is enabled.
func (s *SMSChannel) IsEnabled() bool {
	return s.enabled
}

// Send sends an SMS message. The subject is ignored; SMS has no subject line.
func (s *SMSChannel) Send(ctx context.Context, message, subject string) error {
	if !s.enabled {
		return errs.NewNotifyError(s.Name(), fmt.Errorf("channel disabled"))
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, s.accountSID)

	form := url.Values{
		"To":   {s.toNumber},
		"From": {s.fromNumber},
		"Body": {message},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return errs.NewNotifyError(s.Name(), fmt.Errorf("creating request: %w", err))
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return errs.NewNotifyError(s.Name(), fmt.Errorf("sending SMS: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errs.NewNotifyError(s.Name(), fmt.Errorf("twilio returned status %d: %s", resp.StatusCode, string(body)))
	}

	var created struct {
		SID string `json:"sid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err == nil && created.SID != "" {
		s.logger.Info().Str("sid", created.SID).Msg("SMS sent")
	}

	return nil
}
