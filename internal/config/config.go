// Package config provides configuration management for the alerting application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"stock-alerts/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Watchlist     []string              `mapstructure:"watchlist"`
	AlertSchedule []models.ScheduleRule `mapstructure:"alert_schedule"`
	PriceAlerts   PriceAlertConfig      `mapstructure:"price_alerts"`
	MarketHours   MarketHoursConfig     `mapstructure:"market_hours"`
	RateLimiting  RateLimitConfig       `mapstructure:"rate_limiting"`
	Storage       StorageConfig         `mapstructure:"storage"`
	Notifications NotificationConfig    `mapstructure:"notifications"`
	Timezone      string                `mapstructure:"timezone"`
	Logging       LoggingConfig         `mapstructure:"logging"`
	Credentials   Credentials           `mapstructure:"-"` // Loaded separately
}

// PriceAlertConfig holds the process-wide price-delta rule.
type PriceAlertConfig struct {
	Enabled              bool    `mapstructure:"enabled"`
	ThresholdPercentage  float64 `mapstructure:"threshold_percentage"`
	CheckIntervalMinutes int     `mapstructure:"check_interval_minutes"`
}

// MarketHoursConfig holds market-hours gating configuration.
type MarketHoursConfig struct {
	OnlyDuringMarketHours bool   `mapstructure:"only_during_market_hours"`
	Open                  string `mapstructure:"open"`  // HH:MM
	Close                 string `mapstructure:"close"` // HH:MM
}

// RateLimitConfig holds upstream API pacing configuration.
type RateLimitConfig struct {
	APIDelaySeconds int `mapstructure:"api_delay_seconds"`
	MaxRetries      int `mapstructure:"max_retries"`
}

// StorageConfig holds quote persistence configuration.
type StorageConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Database      string `mapstructure:"database"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	SMSEnabled        bool `mapstructure:"sms_enabled"`
	EmailEnabled      bool `mapstructure:"email_enabled"`
	IncludeVolume     bool `mapstructure:"include_volume"`
	IncludeDayHighLow bool `mapstructure:"include_day_high_low"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Credentials holds API and transport credentials.
type Credentials struct {
	AlphaVantage AlphaVantageCredentials `mapstructure:"alphavantage"`
	Twilio       TwilioCredentials       `mapstructure:"twilio"`
	SMTP         SMTPCredentials         `mapstructure:"smtp"`
}

// AlphaVantageCredentials holds the quote source API key.
type AlphaVantageCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// TwilioCredentials holds Twilio SMS credentials.
type TwilioCredentials struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	FromNumber string `mapstructure:"from_number"`
	ToNumber   string `mapstructure:"to_number"`
}

// SMTPCredentials holds email credentials.
type SMTPCredentials struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/stock-alerts"
	}
	return filepath.Join(home, ".config", "stock-alerts")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	for i, symbol := range cfg.Watchlist {
		cfg.Watchlist[i] = models.NormalizeSymbol(symbol)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// First run: write both templates, then tell the user to edit them.
			if tmplErr := CreateTemplateCredentials(configDir); tmplErr != nil {
				return tmplErr
			}
			return createTemplateConfig(configDir)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Credentials may come entirely from the environment.
			return nil
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ALPHA_VANTAGE_API_KEY"); v != "" {
		cfg.Credentials.AlphaVantage.APIKey = v
	}

	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		cfg.Credentials.Twilio.AccountSID = v
	}
	if v := os.Getenv("TWILIO_AUTH_TOKEN"); v != "" {
		cfg.Credentials.Twilio.AuthToken = v
	}
	if v := os.Getenv("TWILIO_PHONE_NUMBER"); v != "" {
		cfg.Credentials.Twilio.FromNumber = v
	}
	if v := os.Getenv("USER_PHONE_NUMBER"); v != "" {
		cfg.Credentials.Twilio.ToNumber = v
	}

	if v := os.Getenv("SMTP_SERVER"); v != "" {
		cfg.Credentials.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Credentials.SMTP.Port = port
		}
	}
	if v := os.Getenv("EMAIL_ADDRESS"); v != "" {
		cfg.Credentials.SMTP.Username = v
		cfg.Credentials.SMTP.From = v
	}
	if v := os.Getenv("EMAIL_PASSWORD"); v != "" {
		cfg.Credentials.SMTP.Password = v
	}
	if v := os.Getenv("RECIPIENT_EMAIL"); v != "" {
		cfg.Credentials.SMTP.To = v
	}

	if v := os.Getenv("TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Timezone == "" {
		cfg.Timezone = "America/New_York"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.RateLimiting.APIDelaySeconds == 0 {
		cfg.RateLimiting.APIDelaySeconds = 12
	}
	if cfg.RateLimiting.MaxRetries == 0 {
		cfg.RateLimiting.MaxRetries = 3
	}
	if cfg.PriceAlerts.ThresholdPercentage == 0 {
		cfg.PriceAlerts.ThresholdPercentage = 5.0
	}
	if cfg.PriceAlerts.CheckIntervalMinutes == 0 {
		cfg.PriceAlerts.CheckIntervalMinutes = 15
	}
	if cfg.Storage.Database == "" {
		cfg.Storage.Database = filepath.Join(DefaultConfigDir(), "stock_data.db")
	}
	if cfg.Storage.RetentionDays == 0 {
		cfg.Storage.RetentionDays = 90
	}
	if cfg.MarketHours.Open == "" {
		cfg.MarketHours.Open = "09:30"
	}
	if cfg.MarketHours.Close == "" {
		cfg.MarketHours.Close = "16:00"
	}
	if cfg.Credentials.SMTP.Port == 0 {
		cfg.Credentials.SMTP.Port = 587
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Watchlist))
	for _, symbol := range c.Watchlist {
		key := strings.ToUpper(symbol)
		if seen[key] {
			return fmt.Errorf("duplicate watchlist symbol: %s", symbol)
		}
		seen[key] = true
	}

	for _, rule := range c.AlertSchedule {
		if _, err := time.Parse("15:04", rule.Time); err != nil {
			return fmt.Errorf("invalid alert_schedule time %q (must be HH:MM)", rule.Time)
		}
	}

	if c.PriceAlerts.Enabled {
		if c.PriceAlerts.ThresholdPercentage <= 0 {
			return fmt.Errorf("price_alerts.threshold_percentage must be positive")
		}
		if c.PriceAlerts.CheckIntervalMinutes <= 0 {
			return fmt.Errorf("price_alerts.check_interval_minutes must be positive")
		}
	}

	open, err := time.Parse("15:04", c.MarketHours.Open)
	if err != nil {
		return fmt.Errorf("invalid market_hours.open %q (must be HH:MM)", c.MarketHours.Open)
	}
	close_, err := time.Parse("15:04", c.MarketHours.Close)
	if err != nil {
		return fmt.Errorf("invalid market_hours.close %q (must be HH:MM)", c.MarketHours.Close)
	}
	if !open.Before(close_) {
		return fmt.Errorf("market_hours.open must be before market_hours.close")
	}

	if c.RateLimiting.APIDelaySeconds < 0 {
		return fmt.Errorf("rate_limiting.api_delay_seconds must be non-negative")
	}
	if c.RateLimiting.MaxRetries < 1 {
		return fmt.Errorf("rate_limiting.max_retries must be at least 1")
	}
	if c.Storage.RetentionDays < 1 {
		return fmt.Errorf("storage.retention_days must be at least 1")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}

	return nil
}

// RequireQuoteCredentials returns an error when the quote source API key is
// absent. Commands that fetch quotes treat this as fatal at startup.
func (c *Config) RequireQuoteCredentials() error {
	if c.Credentials.AlphaVantage.APIKey == "" {
		return fmt.Errorf("ALPHA_VANTAGE_API_KEY not set in environment or credentials.toml")
	}
	return nil
}

// Location returns the configured timezone location.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// APIDelay returns the inter-fetch delay as a duration.
func (c *Config) APIDelay() time.Duration {
	return time.Duration(c.RateLimiting.APIDelaySeconds) * time.Second
}

// LookbackWindow returns the price-delta lookback window as a duration.
func (c *Config) LookbackWindow() time.Duration {
	return time.Duration(c.PriceAlerts.CheckIntervalMinutes) * time.Minute
}

// SaveWatchlist rewrites the watchlist in config.toml, preserving the rest
// of the file's settings.
func SaveWatchlist(configDir string, watchlist []string) error {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config.toml: %w", err)
	}

	v.Set("watchlist", watchlist)
	return v.WriteConfig()
}
