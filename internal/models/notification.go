package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NotificationConfig holds the global notification settings. At most one
// row is the active configuration; if none exists, both automatic and
// manual dispatch fail closed.
type NotificationConfig struct {
	ID             string    `json:"id"`
	AlertThreshold int       `json:"alert_threshold"`
	IsEnabled      bool      `json:"is_enabled"`
	SMTPHost       string    `json:"smtp_host"`
	SMTPPort       int       `json:"smtp_port"`
	SMTPUsername   string    `json:"smtp_username"`
	SMTPPassword   string    `json:"-"`
	SenderEmail    string    `json:"sender_email"`
	SenderName     string    `json:"sender_name"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Validate checks that the configuration is usable for dispatch.
// A disabled or incomplete configuration is a hard precondition
// failure; no defaults are substituted.
func (c *NotificationConfig) Validate() error {
	if !c.IsEnabled {
		return fmt.Errorf("notifications are disabled")
	}
	if c.SMTPHost == "" {
		return fmt.Errorf("smtp_host is not configured")
	}
	if c.SMTPPort == 0 {
		return fmt.Errorf("smtp_port is not configured")
	}
	if c.SMTPUsername == "" {
		return fmt.Errorf("smtp_username is not configured")
	}
	if c.SMTPPassword == "" {
		return fmt.Errorf("smtp_password is not configured")
	}
	if c.SenderEmail == "" {
		return fmt.Errorf("sender_email is not configured")
	}
	return nil
}

// NotificationEmail is a persisted notification recipient. Only active
// recipients are eligible for automatic or manual delivery.
type NotificationEmail struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewNotificationEmail creates an active recipient.
func NewNotificationEmail(email, description string) *NotificationEmail {
	now := time.Now()
	return &NotificationEmail{
		ID:          uuid.New().String(),
		Email:       email,
		Description: description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NotificationHistory is one row of the append-only delivery audit log.
// A row is written with IsSuccess=false before the delivery attempt and
// finalized in place afterward, so a crash mid-send still leaves an
// accurate "attempted" record.
type NotificationHistory struct {
	ID           string    `json:"id"`
	AlertID      string    `json:"alert_id"`
	UserID       string    `json:"user_id"`
	Recipients   []string  `json:"recipients"`
	Subject      string    `json:"subject"`
	Message      string    `json:"message,omitempty"`
	IsSuccess    bool      `json:"is_success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewNotificationHistory creates a pending (not yet delivered) history
// entry for an attempt.
func NewNotificationHistory(alertID, userID string, recipients []string, subject, message string) *NotificationHistory {
	now := time.Now()
	return &NotificationHistory{
		ID:         uuid.New().String(),
		AlertID:    alertID,
		UserID:     userID,
		Recipients: recipients,
		Subject:    subject,
		Message:    message,
		IsSuccess:  false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
