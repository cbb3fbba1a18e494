package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AlertKind represents the kind of alert. The kind is fixed at creation
// and decides which evaluation behavior applies for the alert's whole life.
type AlertKind string

const (
	KindThreshold AlertKind = "threshold"
	KindDuration  AlertKind = "duration"
)

// MaxDurationSeconds caps the required sustained span at ten years.
// Anything longer is a misconfiguration, and the cap keeps
// Duration() comfortably inside the int64 nanosecond range.
const MaxDurationSeconds int64 = 10 * 365 * 24 * 60 * 60

// Direction represents which side of the target price triggers the alert.
type Direction string

const (
	DirectionAbove Direction = "above"
	DirectionBelow Direction = "below"
)

// Alert is a user-defined price alert on one company.
//
// Evaluation state (ConditionMetSince, LastEvaluatedAt, TriggeredAt,
// IsActive) is mutated only by the evaluation engine until the alert
// fires, and afterwards only by reactivation.
type Alert struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CompanyID string    `json:"company_id"`
	Symbol    string    `json:"symbol"`

	Kind        AlertKind       `json:"kind"`
	Direction   Direction       `json:"direction"`
	TargetPrice decimal.Decimal `json:"target_price"`
	// DurationSeconds is how long the condition must hold continuously
	// before a duration alert fires. Zero for threshold alerts.
	DurationSeconds int64 `json:"duration_seconds,omitempty"`

	IsActive          bool       `json:"is_active"`
	ConditionMetSince *time.Time `json:"condition_met_since,omitempty"`
	LastEvaluatedAt   *time.Time `json:"last_evaluated_at,omitempty"`
	TriggeredAt       *time.Time `json:"triggered_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAlert creates an active alert in its initial evaluation state.
func NewAlert(userID, companyID string, kind AlertKind, direction Direction, target decimal.Decimal) *Alert {
	now := time.Now()
	return &Alert{
		UserID:      userID,
		CompanyID:   companyID,
		Kind:        kind,
		Direction:   direction,
		TargetPrice: target,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate checks the alert's structural invariants.
func (a *Alert) Validate() error {
	switch a.Kind {
	case KindThreshold, KindDuration:
	default:
		return fmt.Errorf("invalid alert kind: %q", a.Kind)
	}
	switch a.Direction {
	case DirectionAbove, DirectionBelow:
	default:
		return fmt.Errorf("invalid direction: %q", a.Direction)
	}
	if !a.TargetPrice.IsPositive() {
		return fmt.Errorf("target price must be positive")
	}
	if a.Kind == KindDuration && a.DurationSeconds <= 0 {
		return fmt.Errorf("duration_seconds must be positive for duration alerts")
	}
	if a.Kind == KindDuration && a.DurationSeconds > MaxDurationSeconds {
		return fmt.Errorf("duration_seconds must not exceed %d", MaxDurationSeconds)
	}
	if a.Kind == KindThreshold && a.DurationSeconds != 0 {
		return fmt.Errorf("duration_seconds is not allowed for threshold alerts")
	}
	return nil
}

// ConditionMet reports whether the price condition holds at the given
// price. The boundary is inclusive on both sides: a price exactly at the
// target satisfies the condition.
func (a *Alert) ConditionMet(price decimal.Decimal) bool {
	switch a.Direction {
	case DirectionAbove:
		return price.GreaterThanOrEqual(a.TargetPrice)
	case DirectionBelow:
		return price.LessThanOrEqual(a.TargetPrice)
	default:
		return false
	}
}

// Duration returns the required sustained duration for duration alerts.
func (a *Alert) Duration() time.Duration {
	return time.Duration(a.DurationSeconds) * time.Second
}

// HasTriggered returns true if the alert has fired and was not reactivated.
func (a *Alert) HasTriggered() bool {
	return a.TriggeredAt != nil
}

// ParseAlertKind converts a string to AlertKind.
// Returns false if the string is not a known kind.
func ParseAlertKind(s string) (AlertKind, bool) {
	switch s {
	case "threshold":
		return KindThreshold, true
	case "duration":
		return KindDuration, true
	default:
		return "", false
	}
}

// ParseDirection converts a string to Direction.
// Returns false if the string is not a known direction.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "above":
		return DirectionAbove, true
	case "below":
		return DirectionBelow, true
	default:
		return "", false
	}
}
