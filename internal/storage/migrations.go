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
				role TEXT NOT NULL DEFAULT 'viewer',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Managed alerts: one review record per source alert.
			-- The UNIQUE constraint on alert_id is the dedup gate that
			-- makes repeated polling idempotent.
			CREATE TABLE IF NOT EXISTS managed_alerts (
				id TEXT PRIMARY KEY,
				alert_id TEXT UNIQUE NOT NULL,
				state TEXT NOT NULL DEFAULT 'open',
				timestamp DATETIME NOT NULL,
				agent_id TEXT NOT NULL,
				agent_name TEXT NOT NULL,
				rule_id TEXT NOT NULL,
				rule_level INTEGER NOT NULL,
				rule_description TEXT NOT NULL,
				alert_data TEXT,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Review notes, many per managed alert
			CREATE TABLE IF NOT EXISTS alert_notes (
				id TEXT PRIMARY KEY,
				alert_id TEXT NOT NULL,
				content TEXT NOT NULL,
				author_id TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				FOREIGN KEY (alert_id) REFERENCES managed_alerts(id) ON DELETE CASCADE,
				FOREIGN KEY (author_id) REFERENCES users(id)
			);

			-- Notification settings (singleton by convention)
			CREATE TABLE IF NOT EXISTS notification_config (
				id TEXT PRIMARY KEY,
				alert_threshold INTEGER NOT NULL DEFAULT 0,
				is_enabled INTEGER NOT NULL DEFAULT 1,
				smtp_host TEXT NOT NULL,
				smtp_port INTEGER NOT NULL,
				smtp_username TEXT NOT NULL,
				smtp_password TEXT NOT NULL,
				sender_email TEXT NOT NULL,
				sender_name TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Notification recipients
			CREATE TABLE IF NOT EXISTS notification_emails (
				id TEXT PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				description TEXT,
				is_active INTEGER NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Delivery audit log (append + in-place finalize only)
			CREATE TABLE IF NOT EXISTS notification_history (
				id TEXT PRIMARY KEY,
				alert_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				recipients TEXT NOT NULL,
				subject TEXT NOT NULL,
				message TEXT,
				is_success INTEGER NOT NULL DEFAULT 0,
				error_message TEXT,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				FOREIGN KEY (alert_id) REFERENCES managed_alerts(id),
				FOREIGN KEY (user_id) REFERENCES users(id)
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
			CREATE INDEX IF NOT EXISTS idx_managed_alerts_alert_id ON managed_alerts(alert_id);
			CREATE INDEX IF NOT EXISTS idx_managed_alerts_state ON managed_alerts(state);
			CREATE INDEX IF NOT EXISTS idx_managed_alerts_created ON managed_alerts(created_at);
			CREATE INDEX IF NOT EXISTS idx_alert_notes_alert ON alert_notes(alert_id);
			CREATE INDEX IF NOT EXISTS idx_notification_history_alert ON notification_history(alert_id);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	// Create migrations table if not exists
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

	// Get current version
	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	// Apply pending migrations
	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		// Run migration in transaction
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
