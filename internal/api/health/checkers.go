package health

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteChecker checks SQLite database connectivity.
type SQLiteChecker struct {
	db *sql.DB
}

// NewSQLiteChecker creates a new SQLite health checker.
func NewSQLiteChecker(db *sql.DB) *SQLiteChecker {
	return &SQLiteChecker{db: db}
}

// Name returns the checker name.
func (c *SQLiteChecker) Name() string {
	return "sqlite"
}

// Check verifies the SQLite database is accessible.
func (c *SQLiteChecker) Check(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return c.db.PingContext(ctx)
}

// SchedulerChecker reports whether the evaluation scheduler is ticking.
// The scheduler is considered stalled when no tick has completed within
// three intervals; one slow tick should not flip readiness.
type SchedulerChecker struct {
	lastTick func() time.Time
	interval time.Duration
}

// NewSchedulerChecker creates a scheduler health checker.
// lastTick reports when the most recent evaluation tick completed.
func NewSchedulerChecker(lastTick func() time.Time, interval time.Duration) *SchedulerChecker {
	return &SchedulerChecker{lastTick: lastTick, interval: interval}
}

// Name returns the checker name.
func (c *SchedulerChecker) Name() string {
	return "scheduler"
}

// Check verifies the scheduler has ticked recently.
func (c *SchedulerChecker) Check(ctx context.Context) error {
	if c.lastTick == nil {
		return fmt.Errorf("scheduler not configured")
	}

	last := c.lastTick()
	if last.IsZero() {
		return fmt.Errorf("scheduler has not completed a tick yet")
	}

	age := time.Since(last)
	if age > 3*c.interval {
		return fmt.Errorf("last tick was %v ago", age.Truncate(time.Second))
	}

	return nil
}
