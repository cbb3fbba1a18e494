// Package notifier delivers alert firing notifications.
package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoethonDev/stockwatcher/internal/models"
)

// Notification is the delivery payload for one alert firing. It is built
// from the persisted trigger, so a notification can be re-dispatched from
// the database without the original alert.
type Notification struct {
	TriggerID     string
	AlertID       string
	Symbol        string
	Kind          models.AlertKind
	Direction     models.Direction
	TargetPrice   decimal.Decimal
	ObservedPrice decimal.Decimal
	// SustainedSeconds is zero for threshold alerts.
	SustainedSeconds int64
	FiredAt          time.Time

	// Recipient identifies the alert's owner.
	RecipientName  string
	RecipientEmail string
}

// FromTrigger builds a Notification from a stored trigger and its owner.
func FromTrigger(trigger *models.Trigger, owner *models.User) *Notification {
	n := &Notification{
		TriggerID:        trigger.ID,
		AlertID:          trigger.AlertID,
		Symbol:           trigger.Symbol,
		Kind:             trigger.Kind,
		Direction:        trigger.Direction,
		TargetPrice:      trigger.TargetPrice,
		ObservedPrice:    trigger.ObservedPrice,
		SustainedSeconds: trigger.SustainedSeconds,
		FiredAt:          trigger.FiredAt,
	}
	if owner != nil {
		n.RecipientName = owner.Username
		n.RecipientEmail = owner.Email
	}
	return n
}

// Subject returns a one line summary suitable for email subjects and
// console output.
func (n *Notification) Subject() string {
	if n.Kind == models.KindDuration {
		return fmt.Sprintf("%s held %s %s for %s", n.Symbol, n.Direction, n.TargetPrice.StringFixed(2), time.Duration(n.SustainedSeconds)*time.Second)
	}
	return fmt.Sprintf("%s crossed %s %s", n.Symbol, n.Direction, n.TargetPrice.StringFixed(2))
}

// Notifier is the interface for all notification channels.
type Notifier interface {
	// Name returns the notifier name (e.g., "email", "webhook").
	Name() string
	// Send delivers one notification.
	Send(ctx context.Context, n *Notification) error
	// Close releases any resources.
	Close() error
}

// Dispatcher fans one notification out to every registered channel.
type Dispatcher struct {
	mu          sync.RWMutex
	notifiers   map[string]Notifier
	rateLimiter *RateLimiter
}

// NewDispatcher creates a dispatcher with default rate limiting.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		notifiers:   make(map[string]Notifier),
		rateLimiter: NewRateLimiter(DefaultRateLimitConfig()),
	}
}

// NewDispatcherWithRateLimit creates a dispatcher with custom rate limit
// configuration.
func NewDispatcherWithRateLimit(config RateLimitConfig) *Dispatcher {
	return &Dispatcher{
		notifiers:   make(map[string]Notifier),
		rateLimiter: NewRateLimiter(config),
	}
}

// Register adds a notifier to the dispatcher.
func (d *Dispatcher) Register(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers[n.Name()] = n
}

// Unregister removes a notifier from the dispatcher.
func (d *Dispatcher) Unregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.notifiers, name)
}

// Get returns a notifier by name.
func (d *Dispatcher) Get(name string) (Notifier, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.notifiers[name]
	return n, ok
}

// ErrRateLimited is returned when a notification is dropped due to rate limiting.
var ErrRateLimited = fmt.Errorf("notification rate limited")

// Dispatch sends a notification to every registered channel. A channel
// failure does not stop delivery on the remaining channels; the errors
// are collected and returned together. Returns ErrRateLimited if the
// notification is dropped before any channel is attempted. When every
// channel fails the rate limit token is refunded, so a dead SMTP server
// does not also eat the delivery budget.
func (d *Dispatcher) Dispatch(ctx context.Context, n *Notification) error {
	if d.rateLimiter != nil && !d.rateLimiter.Allow() {
		return ErrRateLimited
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var errs []error
	for name, notifier := range d.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		if len(errs) == len(d.notifiers) && d.rateLimiter != nil {
			d.rateLimiter.Release()
		}
		return fmt.Errorf("notification errors: %v", errs)
	}
	return nil
}

// RateLimitStats returns the rate limiter statistics.
func (d *Dispatcher) RateLimitStats() RateLimitStats {
	if d.rateLimiter == nil {
		return RateLimitStats{}
	}
	return d.rateLimiter.Stats()
}

// Close closes all registered notifiers.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for name, n := range d.notifiers {
		if err := n.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	d.notifiers = make(map[string]Notifier)

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
