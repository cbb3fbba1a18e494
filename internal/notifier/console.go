package notifier

import (
	"context"
	"log"
)

// ConsoleNotifier writes notifications to the process log. It is the
// default channel in development setups without SMTP or a webhook.
type ConsoleNotifier struct{}

// NewConsoleNotifier creates a console notifier.
func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

// Name returns "console".
func (c *ConsoleNotifier) Name() string {
	return "console"
}

// Send logs the notification.
func (c *ConsoleNotifier) Send(_ context.Context, n *Notification) error {
	log.Printf("ALERT FIRED: %s (observed %s, alert %s, user %s)",
		n.Subject(), n.ObservedPrice.StringFixed(2), n.AlertID, n.RecipientName)
	return nil
}

// Close is a no-op for console notifier.
func (c *ConsoleNotifier) Close() error {
	return nil
}
