// Package engine implements the alert evaluation state machine.
//
// Evaluate is a pure decision function: given an alert's current state,
// a price observation, and a clock reading, it produces the state fields
// to persist and, when the alert fires, a single firing event. It never
// touches storage or the network, which keeps every transition testable
// with plain table tests.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoethonDev/stockwatcher/internal/models"
)

// ErrMisconfigured is returned when an alert record violates a structural
// invariant (e.g. a duration alert without a positive duration). The
// caller logs and skips the alert; one bad record must never abort the
// evaluation of others.
var ErrMisconfigured = errors.New("alert misconfigured")

// State is the alert's evaluation state, derived from the data model.
type State string

const (
	// StateWaiting: active, condition not currently accumulating.
	StateWaiting State = "active_waiting"
	// StateCounting: active duration alert with the condition held since
	// ConditionMetSince, duration not yet elapsed.
	StateCounting State = "active_counting"
	// StateFired: terminal until reactivated.
	StateFired State = "fired"
)

// StateOf derives the evaluation state from an alert record.
func StateOf(a *models.Alert) State {
	if !a.IsActive {
		return StateFired
	}
	if a.Kind == models.KindDuration && a.ConditionMetSince != nil {
		return StateCounting
	}
	return StateWaiting
}

// Quote is the price observation for one symbol at one tick.
// Available is false when the fetch for the symbol failed this tick.
type Quote struct {
	Price     decimal.Decimal
	Available bool
}

// Unavailable returns the quote used when a symbol's fetch failed.
func Unavailable() Quote {
	return Quote{}
}

// At returns an available quote at the given price.
func At(price decimal.Decimal) Quote {
	return Quote{Price: price, Available: true}
}

// StateDelta carries the only alert fields the engine may mutate.
type StateDelta struct {
	IsActive          bool
	ConditionMetSince *time.Time
	LastEvaluatedAt   time.Time
	TriggeredAt       *time.Time
}

// FiringEvent is emitted exactly once when an alert fires.
type FiringEvent struct {
	AlertID       string
	UserID        string
	Symbol        string
	Kind          models.AlertKind
	Direction     models.Direction
	TargetPrice   decimal.Decimal
	ObservedPrice decimal.Decimal
	FiredAt       time.Time
	// SustainedSeconds is how long the condition held continuously
	// before firing. Zero for threshold alerts.
	SustainedSeconds int64
}

// Result is the outcome of evaluating one alert at one tick.
type Result struct {
	// Changed is false when the alert was not eligible for evaluation
	// (already fired); nothing should be persisted in that case.
	Changed bool
	Delta   StateDelta
	Event   *FiringEvent
}

// Evaluate runs one alert through the state machine.
//
// The transition rules:
//   - inactive alert: no-op (idempotent once fired);
//   - unavailable price: record the evaluation attempt only; an accrued
//     duration pauses rather than resets;
//   - threshold + condition true: fire;
//   - duration + condition true: start counting, then fire once the
//     accumulated span meets the required duration;
//   - duration + condition false: hard reset of the accumulation.
func Evaluate(a *models.Alert, q Quote, now time.Time) (Result, error) {
	if a.Kind == models.KindDuration && a.DurationSeconds <= 0 {
		return Result{}, fmt.Errorf("%w: duration alert %s has no positive duration", ErrMisconfigured, a.ID)
	}

	if !a.IsActive {
		return Result{Changed: false}, nil
	}

	// Carry current state forward; every branch below adjusts from here.
	delta := StateDelta{
		IsActive:          a.IsActive,
		ConditionMetSince: a.ConditionMetSince,
		LastEvaluatedAt:   now,
		TriggeredAt:       a.TriggeredAt,
	}

	if !q.Available {
		return Result{Changed: true, Delta: delta}, nil
	}

	met := a.ConditionMet(q.Price)

	switch a.Kind {
	case models.KindThreshold:
		if !met {
			return Result{Changed: true, Delta: delta}, nil
		}
		return fire(a, q, now, delta, 0), nil

	case models.KindDuration:
		if !met {
			// Any observed false resets the accumulation to zero.
			delta.ConditionMetSince = nil
			return Result{Changed: true, Delta: delta}, nil
		}
		if a.ConditionMetSince == nil {
			since := now
			delta.ConditionMetSince = &since
			return Result{Changed: true, Delta: delta}, nil
		}
		// Compare in whole seconds so an oversized requirement can
		// never wrap when converted to a time.Duration.
		sustained := now.Sub(*a.ConditionMetSince)
		if int64(sustained/time.Second) < a.DurationSeconds {
			return Result{Changed: true, Delta: delta}, nil
		}
		return fire(a, q, now, delta, int64(sustained/time.Second)), nil

	default:
		return Result{}, fmt.Errorf("%w: alert %s has unknown kind %q", ErrMisconfigured, a.ID, a.Kind)
	}
}

// fire builds the fired-state delta and the firing event.
func fire(a *models.Alert, q Quote, now time.Time, delta StateDelta, sustainedSeconds int64) Result {
	firedAt := now
	delta.IsActive = false
	delta.ConditionMetSince = nil
	delta.TriggeredAt = &firedAt

	return Result{
		Changed: true,
		Delta:   delta,
		Event: &FiringEvent{
			AlertID:          a.ID,
			UserID:           a.UserID,
			Symbol:           a.Symbol,
			Kind:             a.Kind,
			Direction:        a.Direction,
			TargetPrice:      a.TargetPrice,
			ObservedPrice:    q.Price,
			FiredAt:          firedAt,
			SustainedSeconds: sustainedSeconds,
		},
	}
}
