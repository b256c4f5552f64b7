package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/good-yellow-bee/alertdesk/internal/models"
)

// sqliteNotificationRepo implements NotificationRepository for SQLite.
type sqliteNotificationRepo struct {
	db *sql.DB
}

// GetConfig returns the single active configuration row, or nil when
// the settings have never been created.
func (r *sqliteNotificationRepo) GetConfig(ctx context.Context) (*models.NotificationConfig, error) {
	query := `
		SELECT id, alert_threshold, is_enabled, smtp_host, smtp_port,
		       smtp_username, smtp_password, sender_email, sender_name,
		       created_at, updated_at
		FROM notification_config ORDER BY created_at DESC LIMIT 1
	`
	var cfg models.NotificationConfig
	var isEnabled int
	err := r.db.QueryRowContext(ctx, query).Scan(
		&cfg.ID, &cfg.AlertThreshold, &isEnabled, &cfg.SMTPHost, &cfg.SMTPPort,
		&cfg.SMTPUsername, &cfg.SMTPPassword, &cfg.SenderEmail, &cfg.SenderName,
		&cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan notification config: %w", err)
	}
	cfg.IsEnabled = isEnabled != 0
	return &cfg, nil
}

func (r *sqliteNotificationRepo) CreateConfig(ctx context.Context, cfg *models.NotificationConfig) error {
	query := `
		INSERT INTO notification_config (
			id, alert_threshold, is_enabled, smtp_host, smtp_port,
			smtp_username, smtp_password, sender_email, sender_name,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		cfg.ID, cfg.AlertThreshold, boolToInt(cfg.IsEnabled), cfg.SMTPHost,
		cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SenderEmail,
		cfg.SenderName, cfg.CreatedAt, cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification config: %w", err)
	}
	return nil
}

func (r *sqliteNotificationRepo) UpdateConfig(ctx context.Context, cfg *models.NotificationConfig) error {
	query := `
		UPDATE notification_config
		SET alert_threshold = ?, is_enabled = ?, smtp_host = ?, smtp_port = ?,
		    smtp_username = ?, smtp_password = ?, sender_email = ?,
		    sender_name = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		cfg.AlertThreshold, boolToInt(cfg.IsEnabled), cfg.SMTPHost, cfg.SMTPPort,
		cfg.SMTPUsername, cfg.SMTPPassword, cfg.SenderEmail, cfg.SenderName,
		time.Now(), cfg.ID,
	)
	if err != nil {
		return fmt.Errorf("update notification config: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteNotificationRepo) ListEmails(ctx context.Context) ([]*models.NotificationEmail, error) {
	return r.listEmails(ctx, `
		SELECT id, email, description, is_active, created_at, updated_at
		FROM notification_emails ORDER BY email
	`)
}

func (r *sqliteNotificationRepo) ListActiveEmails(ctx context.Context) ([]*models.NotificationEmail, error) {
	return r.listEmails(ctx, `
		SELECT id, email, description, is_active, created_at, updated_at
		FROM notification_emails WHERE is_active = 1 ORDER BY email
	`)
}

// ActiveEmailsByID returns the subset of the given ids that exist and
// are active. Unknown or inactive ids are silently dropped.
func (r *sqliteNotificationRepo) ActiveEmailsByID(ctx context.Context, ids []string) ([]*models.NotificationEmail, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := fmt.Sprintf(`
		SELECT id, email, description, is_active, created_at, updated_at
		FROM notification_emails
		WHERE is_active = 1 AND id IN (%s)
		ORDER BY email
	`, placeholders)

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return r.listEmails(ctx, query, args...)
}

func (r *sqliteNotificationRepo) CreateEmail(ctx context.Context, email *models.NotificationEmail) error {
	query := `
		INSERT INTO notification_emails (id, email, description, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		email.ID, email.Email, nullString(email.Description),
		boolToInt(email.IsActive), email.CreatedAt, email.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification email: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (r *sqliteNotificationRepo) UpdateEmail(ctx context.Context, email *models.NotificationEmail) error {
	query := `
		UPDATE notification_emails
		SET email = ?, description = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		email.Email, nullString(email.Description),
		boolToInt(email.IsActive), time.Now(), email.ID,
	)
	if err != nil {
		return fmt.Errorf("update notification email: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteNotificationRepo) DeleteEmail(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM notification_emails WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete notification email: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteNotificationRepo) CreateHistory(ctx context.Context, h *models.NotificationHistory) error {
	recipients, err := json.Marshal(h.Recipients)
	if err != nil {
		return fmt.Errorf("marshal recipients: %w", err)
	}
	query := `
		INSERT INTO notification_history (
			id, alert_id, user_id, recipients, subject, message,
			is_success, error_message, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		h.ID, h.AlertID, h.UserID, string(recipients), h.Subject,
		nullString(h.Message), boolToInt(h.IsSuccess),
		nullString(h.ErrorMessage), h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification history: %w", err)
	}
	return nil
}

// FinalizeHistory records the outcome of an attempt on its pending row.
func (r *sqliteNotificationRepo) FinalizeHistory(ctx context.Context, id string, success bool, errMessage string) error {
	query := `
		UPDATE notification_history
		SET is_success = ?, error_message = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		boolToInt(success), nullString(errMessage), time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("finalize notification history: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteNotificationRepo) ListHistory(ctx context.Context, limit, offset int) ([]*models.NotificationHistory, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notification_history").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notification history: %w", err)
	}

	query := `
		SELECT id, alert_id, user_id, recipients, subject, message,
		       is_success, error_message, created_at, updated_at
		FROM notification_history
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list notification history: %w", err)
	}
	defer rows.Close()

	var entries []*models.NotificationHistory
	for rows.Next() {
		var h models.NotificationHistory
		var recipients string
		var message, errMessage sql.NullString
		var isSuccess int
		err := rows.Scan(&h.ID, &h.AlertID, &h.UserID, &recipients, &h.Subject,
			&message, &isSuccess, &errMessage, &h.CreatedAt, &h.UpdatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scan notification history: %w", err)
		}
		if err := json.Unmarshal([]byte(recipients), &h.Recipients); err != nil {
			return nil, 0, fmt.Errorf("unmarshal recipients: %w", err)
		}
		h.Message = message.String
		h.ErrorMessage = errMessage.String
		h.IsSuccess = isSuccess != 0
		entries = append(entries, &h)
	}
	return entries, total, rows.Err()
}

func (r *sqliteNotificationRepo) listEmails(ctx context.Context, query string, args ...any) ([]*models.NotificationEmail, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notification emails: %w", err)
	}
	defer rows.Close()

	var emails []*models.NotificationEmail
	for rows.Next() {
		var e models.NotificationEmail
		var description sql.NullString
		var isActive int
		err := rows.Scan(&e.ID, &e.Email, &description, &isActive,
			&e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan notification email: %w", err)
		}
		e.Description = description.String
		e.IsActive = isActive != 0
		emails = append(emails, &e)
	}
	return emails, rows.Err()
}
