package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Users table
			CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				username TEXT UNIQUE NOT NULL,
				email TEXT UNIQUE NOT NULL,
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'member',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Companies table (tracked symbol universe)
			CREATE TABLE IF NOT EXISTS companies (
				id TEXT PRIMARY KEY,
				symbol TEXT UNIQUE NOT NULL,
				name TEXT,
				current_price TEXT NOT NULL DEFAULT '0',
				price_updated_at DATETIME,
				created_at DATETIME NOT NULL
			);

			-- Alerts table with evaluation state
			CREATE TABLE IF NOT EXISTS alerts (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				company_id TEXT NOT NULL,
				symbol TEXT NOT NULL,
				kind TEXT NOT NULL,
				direction TEXT NOT NULL,
				target_price TEXT NOT NULL,
				duration_seconds INTEGER NOT NULL DEFAULT 0,
				is_active INTEGER NOT NULL DEFAULT 1,
				condition_met_since DATETIME,
				last_evaluated_at DATETIME,
				triggered_at DATETIME,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
				FOREIGN KEY (company_id) REFERENCES companies(id) ON DELETE CASCADE
			);

			-- Trigger history
			CREATE TABLE IF NOT EXISTS triggers (
				id TEXT PRIMARY KEY,
				alert_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				symbol TEXT NOT NULL,
				kind TEXT NOT NULL,
				direction TEXT NOT NULL,
				target_price TEXT NOT NULL,
				observed_price TEXT NOT NULL,
				sustained_seconds INTEGER NOT NULL DEFAULT 0,
				fired_at DATETIME NOT NULL,
				notified INTEGER NOT NULL DEFAULT 0,
				notified_at DATETIME,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (alert_id) REFERENCES alerts(id) ON DELETE CASCADE,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			);

			-- Refresh tokens
			CREATE TABLE IF NOT EXISTS refresh_tokens (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				token_hash TEXT UNIQUE NOT NULL,
				expires_at DATETIME NOT NULL,
				created_at DATETIME NOT NULL,
				revoked INTEGER NOT NULL DEFAULT 0,
				revoked_at DATETIME,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			);

			-- Indexes
			CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
			CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
			CREATE INDEX IF NOT EXISTS idx_companies_symbol ON companies(symbol);
			CREATE INDEX IF NOT EXISTS idx_alerts_user ON alerts(user_id);
			CREATE INDEX IF NOT EXISTS idx_alerts_active ON alerts(is_active);
			CREATE INDEX IF NOT EXISTS idx_triggers_user ON triggers(user_id);
			CREATE INDEX IF NOT EXISTS idx_triggers_alert ON triggers(alert_id);
			CREATE INDEX IF NOT EXISTS idx_tokens_hash ON refresh_tokens(token_hash);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		_, err = tx.Exec(m.Up)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d (%s): %w", m.Version, m.Name, err)
		}

		_, err = tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
