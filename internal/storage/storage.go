// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/good-yellow-bee/alertdesk/internal/models"
)

// Sentinel errors surfaced by repositories.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists signals the dedup gate: the entity's natural key
	// is already present. Callers treat it as "nothing to do", not as
	// a failure.
	ErrAlreadyExists = errors.New("already exists")
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
	// DB returns the underlying connection for health checks.
	DB() *sql.DB

	// Repository accessors
	Users() UserRepository
	ManagedAlerts() ManagedAlertRepository
	Notes() NoteRepository
	Notifications() NotificationRepository
	Tokens() TokenRepository
}

// UserRepository defines operations for user management.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
	// First returns the oldest user by creation time. The scheduler
	// uses it to attribute automatic notifications; the choice is
	// deterministic across runs.
	First(ctx context.Context) (*models.User, error)
}

// ManagedAlertRepository defines operations for alert review records.
type ManagedAlertRepository interface {
	// Register persists a new managed alert. If a record with the same
	// source alert ID already exists, ErrAlreadyExists is returned and
	// the store is unchanged. Uniqueness is enforced by the database
	// constraint, so concurrent registrations of the same alert cannot
	// both succeed.
	Register(ctx context.Context, alert *models.ManagedAlert) error
	GetByID(ctx context.Context, id string) (*models.ManagedAlert, error)
	// List returns one page of managed alerts, newest registrations
	// first. An empty state matches all states.
	List(ctx context.Context, limit, offset int, state models.AlertState) ([]*models.ManagedAlert, int64, error)
	// UpdateState transitions the alert to the given state. Callers
	// validate the state before calling; unknown IDs yield ErrNotFound.
	UpdateState(ctx context.Context, id string, state models.AlertState) (*models.ManagedAlert, error)
}

// NoteRepository defines operations for alert review notes.
type NoteRepository interface {
	// Create attaches a note to a managed alert. The alert must exist.
	Create(ctx context.Context, note *models.AlertNote) error
	// ListByAlert returns all notes for an alert, newest first.
	ListByAlert(ctx context.Context, alertID string) ([]*models.AlertNote, error)
	// Update replaces a note's content and reassigns authorship to the
	// updating user. The note must belong to the given alert.
	Update(ctx context.Context, alertID, noteID, content, authorID string) (*models.AlertNote, error)
}

// NotificationRepository defines operations for notification settings,
// recipients and the delivery audit log.
type NotificationRepository interface {
	// GetConfig returns the active configuration, or nil when none has
	// been created yet.
	GetConfig(ctx context.Context) (*models.NotificationConfig, error)
	CreateConfig(ctx context.Context, cfg *models.NotificationConfig) error
	UpdateConfig(ctx context.Context, cfg *models.NotificationConfig) error

	ListEmails(ctx context.Context) ([]*models.NotificationEmail, error)
	ListActiveEmails(ctx context.Context) ([]*models.NotificationEmail, error)
	// ActiveEmailsByID returns the subset of ids that exist and are active.
	ActiveEmailsByID(ctx context.Context, ids []string) ([]*models.NotificationEmail, error)
	CreateEmail(ctx context.Context, email *models.NotificationEmail) error
	UpdateEmail(ctx context.Context, email *models.NotificationEmail) error
	DeleteEmail(ctx context.Context, id string) error

	// CreateHistory writes a pending audit entry before delivery is
	// attempted; FinalizeHistory records the outcome afterward.
	CreateHistory(ctx context.Context, h *models.NotificationHistory) error
	FinalizeHistory(ctx context.Context, id string, success bool, errMessage string) error
	ListHistory(ctx context.Context, limit, offset int) ([]*models.NotificationHistory, int64, error)
}

// TokenRepository defines operations for refresh token management.
type TokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
