package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoethonDev/stockwatcher/internal/models"
)

const triggerColumns = `id, alert_id, user_id, symbol, kind, direction, target_price,
	observed_price, sustained_seconds, fired_at, notified, notified_at, created_at`

// sqliteTriggerRepo implements TriggerRepository using SQLite.
type sqliteTriggerRepo struct {
	db *sql.DB
}

func (r *sqliteTriggerRepo) GetByID(ctx context.Context, id string) (*models.Trigger, error) {
	query := fmt.Sprintf("SELECT %s FROM triggers WHERE id = ?", triggerColumns)

	trigger, err := scanTrigger(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query trigger: %w", err)
	}
	return trigger, nil
}

func (r *sqliteTriggerRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Trigger, int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM triggers WHERE user_id = ?", userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count triggers: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM triggers WHERE user_id = ? ORDER BY fired_at DESC LIMIT ? OFFSET ?", triggerColumns)
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query triggers: %w", err)
	}
	defer rows.Close()

	triggers, err := collectTriggers(rows)
	if err != nil {
		return nil, 0, err
	}
	return triggers, total, nil
}

func (r *sqliteTriggerRepo) ListByAlert(ctx context.Context, alertID string) ([]*models.Trigger, error) {
	query := fmt.Sprintf("SELECT %s FROM triggers WHERE alert_id = ? ORDER BY fired_at DESC", triggerColumns)
	rows, err := r.db.QueryContext(ctx, query, alertID)
	if err != nil {
		return nil, fmt.Errorf("query triggers: %w", err)
	}
	defer rows.Close()

	return collectTriggers(rows)
}

func (r *sqliteTriggerRepo) MarkNotified(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE triggers SET notified = 1, notified_at = ? WHERE id = ? AND notified = 0",
		at, id,
	)
	if err != nil {
		return fmt.Errorf("mark trigger notified: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("trigger %s: %w", id, ErrConflict)
	}
	return nil
}

func collectTriggers(rows *sql.Rows) ([]*models.Trigger, error) {
	var triggers []*models.Trigger
	for rows.Next() {
		trigger, err := scanTrigger(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trigger: %w", err)
		}
		triggers = append(triggers, trigger)
	}
	return triggers, rows.Err()
}

func scanTrigger(row scanner) (*models.Trigger, error) {
	trigger := &models.Trigger{}
	var targetStr, observedStr string
	var notified int
	var notifiedAt sql.NullTime

	err := row.Scan(
		&trigger.ID, &trigger.AlertID, &trigger.UserID, &trigger.Symbol, &trigger.Kind,
		&trigger.Direction, &targetStr, &observedStr, &trigger.SustainedSeconds,
		&trigger.FiredAt, &notified, &notifiedAt, &trigger.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	target, err := decimal.NewFromString(targetStr)
	if err != nil {
		return nil, fmt.Errorf("parse target price %q: %w", targetStr, err)
	}
	observed, err := decimal.NewFromString(observedStr)
	if err != nil {
		return nil, fmt.Errorf("parse observed price %q: %w", observedStr, err)
	}

	trigger.TargetPrice = target
	trigger.ObservedPrice = observed
	trigger.Notified = notified != 0
	trigger.NotifiedAt = timePtr(notifiedAt)

	return trigger, nil
}
