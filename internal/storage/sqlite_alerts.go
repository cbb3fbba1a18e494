package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoethonDev/stockwatcher/internal/engine"
	"github.com/JoethonDev/stockwatcher/internal/models"
)

const alertColumns = `id, user_id, company_id, symbol, kind, direction, target_price,
	duration_seconds, is_active, condition_met_since, last_evaluated_at, triggered_at,
	created_at, updated_at`

// sqliteAlertRepo implements AlertRepository using SQLite.
type sqliteAlertRepo struct {
	db *sql.DB
}

func (r *sqliteAlertRepo) Create(ctx context.Context, alert *models.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}

	query := `
		INSERT INTO alerts (id, user_id, company_id, symbol, kind, direction, target_price,
			duration_seconds, is_active, condition_met_since, last_evaluated_at, triggered_at,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		alert.ID, alert.UserID, alert.CompanyID, alert.Symbol, alert.Kind, alert.Direction,
		alert.TargetPrice.String(), alert.DurationSeconds, boolToInt(alert.IsActive),
		nullTime(alert.ConditionMetSince), nullTime(alert.LastEvaluatedAt), nullTime(alert.TriggeredAt),
		alert.CreatedAt, alert.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *sqliteAlertRepo) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	query := fmt.Sprintf("SELECT %s FROM alerts WHERE id = ?", alertColumns)

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query alert: %w", err)
	}
	return alert, nil
}

func (r *sqliteAlertRepo) GetByIDForUser(ctx context.Context, id, userID string) (*models.Alert, error) {
	query := fmt.Sprintf("SELECT %s FROM alerts WHERE id = ? AND user_id = ?", alertColumns)

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query alert: %w", err)
	}
	return alert, nil
}

func (r *sqliteAlertRepo) ListByUser(ctx context.Context, userID string, filter AlertFilter) ([]*models.Alert, error) {
	query := fmt.Sprintf("SELECT %s FROM alerts WHERE user_id = ?", alertColumns)
	args := []any{userID}

	if filter.IsActive != nil {
		query += " AND is_active = ?"
		args = append(args, boolToInt(*filter.IsActive))
	}
	if filter.Triggered != nil {
		if *filter.Triggered {
			query += " AND EXISTS (SELECT 1 FROM triggers WHERE triggers.alert_id = alerts.id)"
		} else {
			query += " AND NOT EXISTS (SELECT 1 FROM triggers WHERE triggers.alert_id = alerts.id)"
		}
	}
	query += " ORDER BY created_at DESC"

	return r.queryAlerts(ctx, query, args...)
}

func (r *sqliteAlertRepo) ListActive(ctx context.Context) ([]*models.Alert, error) {
	query := fmt.Sprintf("SELECT %s FROM alerts WHERE is_active = 1 ORDER BY symbol", alertColumns)
	return r.queryAlerts(ctx, query)
}

// ApplyDelta persists a non-firing evaluation state change. The update
// is guarded on the alert still being active, which makes the record the
// enforcement boundary against a racing fire or delete.
func (r *sqliteAlertRepo) ApplyDelta(ctx context.Context, id string, delta engine.StateDelta) error {
	query := `
		UPDATE alerts SET is_active = ?, condition_met_since = ?, last_evaluated_at = ?,
			triggered_at = ?, updated_at = ?
		WHERE id = ? AND is_active = 1
	`
	result, err := r.db.ExecContext(ctx, query,
		boolToInt(delta.IsActive), nullTime(delta.ConditionMetSince), delta.LastEvaluatedAt,
		nullTime(delta.TriggeredAt), time.Now(),
		id,
	)
	if err != nil {
		return fmt.Errorf("apply evaluation delta: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert %s: %w", id, ErrConflict)
	}
	return nil
}

// MarkFired transitions the alert to fired and writes the trigger row in
// one transaction. The trigger is therefore durable before any
// notification is attempted.
func (r *sqliteAlertRepo) MarkFired(ctx context.Context, id string, delta engine.StateDelta, trigger *models.Trigger) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin fire transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE alerts SET is_active = 0, condition_met_since = NULL, last_evaluated_at = ?,
			triggered_at = ?, updated_at = ?
		WHERE id = ? AND is_active = 1
	`, delta.LastEvaluatedAt, nullTime(delta.TriggeredAt), time.Now(), id)
	if err != nil {
		return fmt.Errorf("mark alert fired: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert %s: %w", id, ErrConflict)
	}

	if trigger.ID == "" {
		trigger.ID = uuid.New().String()
	}
	if trigger.CreatedAt.IsZero() {
		trigger.CreatedAt = time.Now()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO triggers (id, alert_id, user_id, symbol, kind, direction, target_price,
			observed_price, sustained_seconds, fired_at, notified, notified_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		trigger.ID, trigger.AlertID, trigger.UserID, trigger.Symbol, trigger.Kind, trigger.Direction,
		trigger.TargetPrice.String(), trigger.ObservedPrice.String(), trigger.SustainedSeconds,
		trigger.FiredAt, boolToInt(trigger.Notified), nullTime(trigger.NotifiedAt), trigger.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trigger: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fire transaction: %w", err)
	}
	return nil
}

// Reactivate resets a fired alert back to an evaluable state.
func (r *sqliteAlertRepo) Reactivate(ctx context.Context, id, userID string) error {
	query := `
		UPDATE alerts SET is_active = 1, condition_met_since = NULL, triggered_at = NULL,
			updated_at = ?
		WHERE id = ? AND user_id = ? AND is_active = 0 AND triggered_at IS NOT NULL
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id, userID)
	if err != nil {
		return fmt.Errorf("reactivate alert: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Distinguish a missing alert from one that has not fired.
		alert, getErr := r.GetByIDForUser(ctx, id, userID)
		if getErr != nil {
			return getErr
		}
		if alert == nil {
			return fmt.Errorf("alert %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("alert %s has not fired: %w", id, ErrConflict)
	}
	return nil
}

func (r *sqliteAlertRepo) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM alerts WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *sqliteAlertRepo) queryAlerts(ctx context.Context, query string, args ...any) ([]*models.Alert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func scanAlert(row scanner) (*models.Alert, error) {
	alert := &models.Alert{}
	var targetStr string
	var isActive int
	var conditionMetSince, lastEvaluatedAt, triggeredAt sql.NullTime

	err := row.Scan(
		&alert.ID, &alert.UserID, &alert.CompanyID, &alert.Symbol, &alert.Kind, &alert.Direction,
		&targetStr, &alert.DurationSeconds, &isActive,
		&conditionMetSince, &lastEvaluatedAt, &triggeredAt,
		&alert.CreatedAt, &alert.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	target, err := decimal.NewFromString(targetStr)
	if err != nil {
		return nil, fmt.Errorf("parse target price %q: %w", targetStr, err)
	}

	alert.TargetPrice = target
	alert.IsActive = isActive != 0
	alert.ConditionMetSince = timePtr(conditionMetSince)
	alert.LastEvaluatedAt = timePtr(lastEvaluatedAt)
	alert.TriggeredAt = timePtr(triggeredAt)

	return alert, nil
}
