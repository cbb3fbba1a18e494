// Package scheduler drives periodic alert evaluation.
//
// One tick fetches every tracked symbol's price in a single batched
// request, then evaluates all active alerts with bounded concurrency.
// Ticks are serialized: when a tick is still running at the next
// interval, the new tick is skipped rather than queued, so a slow
// upstream can never pile up overlapping evaluations.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/JoethonDev/stockwatcher/internal/engine"
	"github.com/JoethonDev/stockwatcher/internal/metrics"
	"github.com/JoethonDev/stockwatcher/internal/models"
	"github.com/JoethonDev/stockwatcher/internal/notifier"
	"github.com/JoethonDev/stockwatcher/internal/pricesource"
	"github.com/JoethonDev/stockwatcher/internal/storage"
)

// Config holds scheduler timing and concurrency settings.
type Config struct {
	// Interval between evaluation ticks.
	Interval time.Duration
	// Concurrency bounds parallel alert evaluations within a tick.
	Concurrency int
	// StoreTimeout bounds each storage call.
	StoreTimeout time.Duration
	// FetchTimeout bounds the batched quote fetch.
	FetchTimeout time.Duration
	// NotifyTimeout bounds a single notification dispatch.
	NotifyTimeout time.Duration
}

// DefaultConfig returns default scheduler settings.
func DefaultConfig() Config {
	return Config{
		Interval:      time.Minute,
		Concurrency:   8,
		StoreTimeout:  5 * time.Second,
		FetchTimeout:  15 * time.Second,
		NotifyTimeout: 10 * time.Second,
	}
}

func (c *Config) normalize() {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 8
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 5 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 15 * time.Second
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = 10 * time.Second
	}
}

// Scheduler runs the evaluation loop.
type Scheduler struct {
	store      storage.Storage
	source     pricesource.Source
	dispatcher *notifier.Dispatcher
	config     Config

	// inFlight guards against overlapping ticks.
	inFlight atomic.Bool
	// lastTick records the wall time of the last completed tick, for
	// the readiness probe.
	lastTick atomic.Int64

	// now is swappable in tests.
	now func() time.Time
}

// New creates a scheduler.
func New(store storage.Storage, source pricesource.Source, dispatcher *notifier.Dispatcher, config Config) *Scheduler {
	config.normalize()
	return &Scheduler{
		store:      store,
		source:     source,
		dispatcher: dispatcher,
		config:     config,
		now:        time.Now,
	}
}

// Run executes ticks at the configured interval until ctx is canceled.
// The first tick runs immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Printf("scheduler started (interval %s, concurrency %d)", s.config.Interval, s.config.Concurrency)

	s.tick(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// LastTick returns when the last tick completed, or the zero time if no
// tick has completed yet.
func (s *Scheduler) LastTick() time.Time {
	nanos := s.lastTick.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

// tick runs one full evaluation pass. It is a no-op when the previous
// tick has not finished.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		log.Printf("scheduler: previous tick still running, skipping")
		metrics.TicksSkippedTotal.Inc()
		return
	}
	defer s.inFlight.Store(false)

	start := s.now()
	if err := s.runTick(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Printf("scheduler: tick aborted: %v", err)
		}
		return
	}

	metrics.TicksTotal.Inc()
	metrics.TickDuration.Observe(s.now().Sub(start).Seconds())
	s.lastTick.Store(s.now().UnixNano())
}

// runTick lists the active alerts, fetches quotes for their symbols and
// evaluates each alert. Only a failure to list the alerts or fetch the
// batch aborts the tick; per-alert failures are contained.
func (s *Scheduler) runTick(ctx context.Context) error {
	listCtx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	alerts, err := s.store.Alerts().ListActive(listCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("list active alerts: %w", err)
	}
	if len(alerts) == 0 {
		return nil
	}

	symbols := dedupeSymbols(alerts)

	fetchCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	fetchStart := s.now()
	results, err := s.source.Fetch(fetchCtx, symbols)
	cancel()
	metrics.FetchDuration.Observe(s.now().Sub(fetchStart).Seconds())
	if err != nil {
		metrics.FetchesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("fetch quotes: %w", err)
	}
	metrics.FetchesTotal.WithLabelValues("ok").Inc()

	s.refreshCompanyPrices(ctx, results)

	evalNow := s.now()
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)
	for _, alert := range alerts {
		g.Go(func() error {
			s.evaluateAlert(gCtx, alert, results, evalNow)
			return nil
		})
	}
	return g.Wait()
}

// refreshCompanyPrices caches the fetched quotes on the company rows.
// A failure here is logged only: the evaluation uses the fetched
// results directly and does not depend on the cache.
func (s *Scheduler) refreshCompanyPrices(ctx context.Context, results map[string]pricesource.Result) {
	prices := make(map[string]decimal.Decimal, len(results))
	for symbol, result := range results {
		if result.OK() {
			prices[symbol] = result.Price
		}
	}
	if len(prices) == 0 {
		return
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	if err := s.store.Companies().UpdatePrices(storeCtx, prices, s.now()); err != nil {
		log.Printf("scheduler: refresh company prices: %v", err)
	}
}

// evaluateAlert runs one alert through the engine and persists the
// outcome. All errors are contained to this alert.
func (s *Scheduler) evaluateAlert(ctx context.Context, alert *models.Alert, results map[string]pricesource.Result, now time.Time) {
	metrics.AlertsEvaluatedTotal.Inc()

	quote := engine.Unavailable()
	if result, ok := results[alert.Symbol]; ok && result.OK() {
		quote = engine.At(result.Price)
	} else {
		if result.Err != nil {
			log.Printf("scheduler: alert %s: quote for %s unavailable: %v", alert.ID, alert.Symbol, result.Err)
		}
		metrics.SymbolsUnavailableTotal.Inc()
	}

	result, err := engine.Evaluate(alert, quote, now)
	if err != nil {
		// A misconfigured alert is skipped, not fatal to the tick.
		log.Printf("scheduler: alert %s: %v", alert.ID, err)
		metrics.AlertsMisconfiguredTotal.Inc()
		return
	}
	if !result.Changed {
		return
	}

	if result.Event == nil {
		s.persistDelta(ctx, alert, result.Delta)
		return
	}
	s.fireAlert(ctx, alert, result)
}

// persistDelta writes a non-firing state change.
func (s *Scheduler) persistDelta(ctx context.Context, alert *models.Alert, delta engine.StateDelta) {
	storeCtx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()

	err := s.store.Alerts().ApplyDelta(storeCtx, alert.ID, delta)
	if err == nil {
		return
	}
	if errors.Is(err, storage.ErrConflict) {
		// The alert fired or was deleted under us; the other writer wins.
		log.Printf("scheduler: alert %s: state changed concurrently, skipping", alert.ID)
		return
	}
	log.Printf("scheduler: alert %s: persist state: %v", alert.ID, err)
	metrics.PersistErrorsTotal.Inc()
}

// fireAlert makes the firing durable, then dispatches the notification.
// The order matters: the trigger row is committed before any delivery
// attempt, so a crash in between leaves an un-notified trigger rather
// than an untracked notification. A notification is sent at most once
// per firing.
func (s *Scheduler) fireAlert(ctx context.Context, alert *models.Alert, result engine.Result) {
	event := result.Event
	trigger := &models.Trigger{
		AlertID:          event.AlertID,
		UserID:           event.UserID,
		Symbol:           event.Symbol,
		Kind:             event.Kind,
		Direction:        event.Direction,
		TargetPrice:      event.TargetPrice,
		ObservedPrice:    event.ObservedPrice,
		SustainedSeconds: event.SustainedSeconds,
		FiredAt:          event.FiredAt,
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	err := s.store.Alerts().MarkFired(storeCtx, alert.ID, result.Delta, trigger)
	cancel()
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// Another writer fired or deleted the alert first; it owns
			// the notification.
			log.Printf("scheduler: alert %s: fired concurrently, skipping", alert.ID)
			return
		}
		// Firing not persisted, so no notification either. The alert is
		// still active and will re-fire next tick.
		log.Printf("scheduler: alert %s: persist firing: %v", alert.ID, err)
		metrics.PersistErrorsTotal.Inc()
		return
	}

	log.Printf("alert fired: %s %s %s %s (observed %s)",
		alert.ID, event.Symbol, event.Direction, event.TargetPrice.StringFixed(2), event.ObservedPrice.StringFixed(2))
	metrics.AlertsFiredTotal.WithLabelValues(string(event.Kind)).Inc()

	s.notify(ctx, trigger)
}

// notify delivers the trigger's notification and records the delivery.
// Delivery failures are logged only; the trigger stays un-notified and
// is visible as such in the API.
func (s *Scheduler) notify(ctx context.Context, trigger *models.Trigger) {
	if s.dispatcher == nil {
		return
	}

	userCtx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	owner, err := s.store.Users().GetByID(userCtx, trigger.UserID)
	cancel()
	if err != nil {
		log.Printf("scheduler: trigger %s: load owner: %v", trigger.ID, err)
		owner = nil
	}

	notifyCtx, cancel := context.WithTimeout(ctx, s.config.NotifyTimeout)
	defer cancel()
	if err := s.dispatcher.Dispatch(notifyCtx, notifier.FromTrigger(trigger, owner)); err != nil {
		if errors.Is(err, notifier.ErrRateLimited) {
			metrics.NotificationsRateLimitedTotal.Inc()
		} else {
			metrics.NotificationErrorsTotal.Inc()
		}
		log.Printf("scheduler: trigger %s: notify: %v", trigger.ID, err)
		return
	}
	metrics.NotificationsSentTotal.Inc()

	storeCtx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	if err := s.store.Triggers().MarkNotified(storeCtx, trigger.ID, s.now()); err != nil {
		log.Printf("scheduler: trigger %s: mark notified: %v", trigger.ID, err)
	}
}

// dedupeSymbols returns the distinct symbols across the given alerts.
func dedupeSymbols(alerts []*models.Alert) []string {
	seen := make(map[string]struct{}, len(alerts))
	symbols := make([]string, 0, len(alerts))
	for _, alert := range alerts {
		if _, ok := seen[alert.Symbol]; ok {
			continue
		}
		seen[alert.Symbol] = struct{}{}
		symbols = append(symbols, alert.Symbol)
	}
	return symbols
}
