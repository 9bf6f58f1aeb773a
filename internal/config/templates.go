package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Stock Alerts Configuration

# Ticker symbols to monitor, in notification order.
watchlist = ["AAPL", "GOOGL", "MSFT"]

# Wall-clock alerts. Each entry sends the full watchlist at the given local time.
[[alert_schedule]]
time = "09:30"
message = "Good morning! Market open prices:"

[[alert_schedule]]
time = "16:00"
message = "Market close summary:"

[price_alerts]
# Alert when a price moves more than threshold_percentage within the lookback window.
enabled = true
threshold_percentage = 5.0
check_interval_minutes = 15

[market_hours]
# Skip monitoring cycles outside Mon-Fri open..close in the configured timezone.
only_during_market_hours = true
open = "09:30"
close = "16:00"

[rate_limiting]
# Delay between upstream API calls and retry budget per fetch.
api_delay_seconds = 12
max_retries = 3

[storage]
enabled = true
# database = "~/.config/stock-alerts/stock_data.db"
retention_days = 90

[notifications]
sms_enabled = true
email_enabled = false
include_volume = true
include_day_high_low = true

# IANA timezone used for schedules and market hours.
timezone = "America/New_York"

[logging]
# debug, info, warn, error
level = "info"
`

const credentialsTemplate = `# Stock Alerts Credentials
# Values here are overridden by environment variables when set.

[alphavantage]
# Required. Env: ALPHA_VANTAGE_API_KEY
api_key = ""

[twilio]
# Env: TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_PHONE_NUMBER, USER_PHONE_NUMBER
account_sid = ""
auth_token = ""
from_number = ""
to_number = ""

[smtp]
# Env: SMTP_SERVER, SMTP_PORT, EMAIL_ADDRESS, EMAIL_PASSWORD, RECIPIENT_EMAIL
host = "smtp.gmail.com"
port = 587
username = ""
password = ""
from = ""
to = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return fmt.Errorf("config file not found; template created at %s, edit it and run again", path)
}

// CreateTemplateCredentials writes a credentials.toml template if one does
// not already exist.
func CreateTemplateCredentials(configDir string) error {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte(credentialsTemplate), 0600)
}
