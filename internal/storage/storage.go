// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoethonDev/stockwatcher/internal/engine"
	"github.com/JoethonDev/stockwatcher/internal/models"
)

// Sentinel errors shared by all repository implementations.
var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when an update lost against a concurrent
	// state change, e.g. applying an evaluation delta to an alert that
	// fired or was deleted in the meantime.
	ErrConflict = errors.New("conflicting state change")
)

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error
	// EnsureAdminUser creates a default admin if no users exist.
	EnsureAdminUser() error

	// Repository accessors
	Users() UserRepository
	Companies() CompanyRepository
	Alerts() AlertRepository
	Triggers() TriggerRepository
	Tokens() TokenRepository
}

// UserRepository defines operations for user management.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Count(ctx context.Context) (int64, error)
}

// CompanyRepository defines operations for the tracked symbol universe.
type CompanyRepository interface {
	Create(ctx context.Context, company *models.Company) error
	GetByID(ctx context.Context, id string) (*models.Company, error)
	GetBySymbol(ctx context.Context, symbol string) (*models.Company, error)
	List(ctx context.Context) ([]*models.Company, error)
	// UpdatePrices refreshes the cached price for each symbol present in
	// the map. Symbols without a company row are ignored.
	UpdatePrices(ctx context.Context, prices map[string]decimal.Decimal, at time.Time) error
	Count(ctx context.Context) (int64, error)
}

// AlertFilter narrows alert listings, mirroring the API's query options.
type AlertFilter struct {
	IsActive  *bool
	Triggered *bool
}

// AlertRepository defines operations for alert management.
//
// ApplyDelta and MarkFired are the evaluation engine's only write paths.
// Both are single-record atomic updates guarded on the alert still being
// active, which is the enforcement boundary against two writers racing
// on the same alert.
type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id string) (*models.Alert, error)
	GetByIDForUser(ctx context.Context, id, userID string) (*models.Alert, error)
	ListByUser(ctx context.Context, userID string, filter AlertFilter) ([]*models.Alert, error)
	// ListActive returns every alert eligible for evaluation.
	ListActive(ctx context.Context) ([]*models.Alert, error)
	// ApplyDelta persists a non-firing evaluation state change.
	// Returns ErrConflict if the alert is no longer active.
	ApplyDelta(ctx context.Context, id string, delta engine.StateDelta) error
	// MarkFired transitions the alert to the fired state and records the
	// trigger in the same transaction, so the firing is durable before
	// any notification goes out. Returns ErrConflict if the alert is no
	// longer active.
	MarkFired(ctx context.Context, id string, delta engine.StateDelta, trigger *models.Trigger) error
	// Reactivate resets a fired alert back to an evaluable state.
	// Returns ErrConflict if the alert has not fired.
	Reactivate(ctx context.Context, id, userID string) error
	Delete(ctx context.Context, id, userID string) error
}

// TriggerRepository defines operations for the firing history.
type TriggerRepository interface {
	GetByID(ctx context.Context, id string) (*models.Trigger, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Trigger, int64, error)
	ListByAlert(ctx context.Context, alertID string) ([]*models.Trigger, error)
	// MarkNotified records that the trigger's notification was handed to
	// a notifier.
	MarkNotified(ctx context.Context, id string, at time.Time) error
}

// TokenRepository defines operations for refresh token management.
type TokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
