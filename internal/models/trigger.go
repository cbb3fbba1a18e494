package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trigger records one firing of an alert.
//
// A trigger row is written in the same transaction as the alert's
// transition to the fired state. The Notified flag is flipped only after
// the notification was handed to a notifier, so a crash between the
// state change and dispatch leaves an un-notified row behind rather than
// risking a duplicate notification on restart.
type Trigger struct {
	ID            string          `json:"id"`
	AlertID       string          `json:"alert_id"`
	UserID        string          `json:"user_id"`
	Symbol        string          `json:"symbol"`
	Kind          AlertKind       `json:"kind"`
	Direction     Direction       `json:"direction"`
	TargetPrice   decimal.Decimal `json:"target_price"`
	ObservedPrice decimal.Decimal `json:"observed_price"`
	// SustainedSeconds is how long the condition held before firing.
	// Zero for threshold alerts.
	SustainedSeconds int64      `json:"sustained_seconds,omitempty"`
	FiredAt          time.Time  `json:"fired_at"`
	Notified         bool       `json:"notified"`
	NotifiedAt       *time.Time `json:"notified_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
