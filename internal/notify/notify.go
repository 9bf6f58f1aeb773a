// Package notify provides notification dispatch for the alerting application.
package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"stock-alerts/internal/config"
)

// DefaultSubject is used when a dispatch does not supply its own subject.
const DefaultSubject = "Stock Price Alert"

// Notifier defines the interface for dispatching a notification.
type Notifier interface {
	// Notify attempts every enabled channel and returns the number of
	// channels that succeeded. It never returns an error and never
	// panics: channel failures are logged and the rest are still tried.
	Notify(ctx context.Context, message, subject string) int
}

// Channel defines the interface for a single notification transport.
type Channel interface {
	Name() string
	IsEnabled() bool
	Send(ctx context.Context, message, subject string) error
}

// MultiNotifier dispatches to every enabled channel independently.
type MultiNotifier struct {
	channels []Channel
	logger   zerolog.Logger
	mu       sync.RWMutex
}

// NewMultiNotifier creates a MultiNotifier from configuration. Channels with
// missing credentials construct disabled and are skipped at dispatch time.
func NewMultiNotifier(cfg *config.Config, logger zerolog.Logger) *MultiNotifier {
	mn := &MultiNotifier{
		logger: logger,
	}

	if cfg.Notifications.SMSEnabled {
		mn.channels = append(mn.channels, NewSMSChannel(cfg.Credentials.Twilio, logger))
	}
	if cfg.Notifications.EmailEnabled {
		mn.channels = append(mn.channels, NewEmailChannel(cfg.Credentials.SMTP))
	}

	return mn
}

// AddChannel adds a notification channel.
func (mn *MultiNotifier) AddChannel(ch Channel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

// Notify attempts every enabled channel and returns how many succeeded.
func (mn *MultiNotifier) Notify(ctx context.Context, message, subject string) int {
	if subject == "" {
		subject = DefaultSubject
	}

	mn.mu.RLock()
	channels := mn.channels
	mn.mu.RUnlock()

	sent := 0
	for _, ch := range channels {
		if !ch.IsEnabled() {
			continue
		}
		if err := ch.Send(ctx, message, subject); err != nil {
			mn.logger.Error().Err(err).Str("channel", ch.Name()).Msg("Notification channel failed")
			continue
		}
		sent++
	}

	if sent == 0 {
		mn.logger.Warn().Msg("No notifications were sent (all channels disabled or failed)")
	} else {
		mn.logger.Info().Int("channels", sent).Msg("Notification sent")
	}

	return sent
}

// NoOpNotifier is a notifier that does nothing (for tests or disabled
// notifications).
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// Notify does nothing and reports zero channels.
func (n *NoOpNotifier) Notify(ctx context.Context, message, subject string) int {
	return 0
}
