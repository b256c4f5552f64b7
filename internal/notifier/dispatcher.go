// Package notifier dispatches email notifications for managed alerts
// and keeps the delivery audit log.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/good-yellow-bee/alertdesk/internal/metrics"
	"github.com/good-yellow-bee/alertdesk/internal/models"
	"github.com/good-yellow-bee/alertdesk/internal/storage"
)

// Errors surfaced by the dispatcher.
var (
	// ErrNotConfigured is returned when no notification settings exist
	// or the stored settings are unusable. Dispatch fails closed.
	ErrNotConfigured = errors.New("notifications not configured")

	// ErrNoRecipients is returned when delivery is requested with no
	// eligible recipients.
	ErrNoRecipients = errors.New("no active recipients")

	// ErrRateLimited is returned when the outbound limiter drops a
	// notification.
	ErrRateLimited = errors.New("notification rate limited")
)

// Mailer delivers a rendered message. The configuration is passed on
// every call so settings changes take effect immediately.
type Mailer interface {
	Send(ctx context.Context, cfg *models.NotificationConfig, recipients []string, subject, body string) error
}

// Dispatcher coordinates notification delivery: it loads the stored
// settings, renders the message, writes a pending audit entry, sends,
// and finalizes the entry with the outcome.
type Dispatcher struct {
	notifications storage.NotificationRepository
	mailer        Mailer
	limiter       *RateLimiter
}

// NewDispatcher creates a dispatcher with default rate limiting.
func NewDispatcher(notifications storage.NotificationRepository, mailer Mailer) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		mailer:        mailer,
		limiter:       NewRateLimiter(DefaultRateLimitConfig()),
	}
}

// NewDispatcherWithRateLimit creates a dispatcher with a custom limit.
func NewDispatcherWithRateLimit(notifications storage.NotificationRepository, mailer Mailer, config RateLimitConfig) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		mailer:        mailer,
		limiter:       NewRateLimiter(config),
	}
}

// loadConfig returns a validated configuration or ErrNotConfigured.
func (d *Dispatcher) loadConfig(ctx context.Context) (*models.NotificationConfig, error) {
	cfg, err := d.notifications.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load notification config: %w", err)
	}
	if cfg == nil {
		return nil, ErrNotConfigured
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}
	return cfg, nil
}

// ShouldAutoNotify reports whether the poller should send an automatic
// notification for an alert of the given rule level. The reason string
// is empty when notification should proceed.
func (d *Dispatcher) ShouldAutoNotify(ctx context.Context, ruleLevel int) (bool, string) {
	cfg, err := d.loadConfig(ctx)
	if err != nil {
		return false, err.Error()
	}
	if ruleLevel < cfg.AlertThreshold {
		return false, fmt.Sprintf("rule level %d below threshold %d", ruleLevel, cfg.AlertThreshold)
	}
	return true, ""
}

// Send notifies the given recipients about a managed alert on behalf of
// userID. An audit entry is written before the delivery attempt and
// finalized with the outcome, so a crash mid-send still leaves an
// accurate record. customMessage, when non-empty, is appended to the
// rendered alert summary.
func (d *Dispatcher) Send(ctx context.Context, alert *models.ManagedAlert, userID string, recipients []*models.NotificationEmail, customMessage string) error {
	cfg, err := d.loadConfig(ctx)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return ErrNoRecipients
	}

	addresses := make([]string, len(recipients))
	for i, r := range recipients {
		addresses[i] = r.Email
	}

	subject := fmt.Sprintf("[AlertDesk] Level %d alert on %s", alert.RuleLevel, alert.AgentName)
	body := renderBody(alert, customMessage)

	history := models.NewNotificationHistory(alert.ID, userID, addresses, subject, customMessage)
	if err := d.notifications.CreateHistory(ctx, history); err != nil {
		return fmt.Errorf("record notification attempt: %w", err)
	}

	if !d.limiter.Allow() {
		d.finalize(ctx, history.ID, false, ErrRateLimited.Error())
		metrics.NotificationsTotal.WithLabelValues("rate_limited").Inc()
		return ErrRateLimited
	}

	if err := d.mailer.Send(ctx, cfg, addresses, subject, body); err != nil {
		d.finalize(ctx, history.ID, false, err.Error())
		metrics.NotificationsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("send notification: %w", err)
	}

	d.finalize(ctx, history.ID, true, "")
	metrics.NotificationsTotal.WithLabelValues("success").Inc()
	return nil
}

func (d *Dispatcher) finalize(ctx context.Context, historyID string, success bool, errMessage string) {
	if err := d.notifications.FinalizeHistory(ctx, historyID, success, errMessage); err != nil {
		log.Printf("finalize notification history %s: %v", historyID, err)
	}
}

// renderBody renders the fixed plain text alert summary.
func renderBody(alert *models.ManagedAlert, customMessage string) string {
	var b strings.Builder
	b.WriteString("A security alert requires your attention.\n\n")
	fmt.Fprintf(&b, "Agent:       %s (%s)\n", alert.AgentName, alert.AgentID)
	fmt.Fprintf(&b, "Rule:        %s (level %d)\n", alert.RuleID, alert.RuleLevel)
	fmt.Fprintf(&b, "Description: %s\n", alert.RuleDescription)
	fmt.Fprintf(&b, "Timestamp:   %s\n", alert.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "State:       %s\n", alert.State)

	if customMessage != "" {
		b.WriteString("\n")
		b.WriteString(customMessage)
		b.WriteString("\n")
	}

	return b.String()
}
