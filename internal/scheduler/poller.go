// Package scheduler runs the background poll that turns new alerts from
// the index into managed review records and sends automatic
// notifications for those at or above the configured threshold.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/good-yellow-bee/alertdesk/internal/metrics"
	"github.com/good-yellow-bee/alertdesk/internal/models"
	"github.com/good-yellow-bee/alertdesk/internal/notifier"
	"github.com/good-yellow-bee/alertdesk/internal/search"
	"github.com/good-yellow-bee/alertdesk/internal/storage"
)

// Poll parameters. Each tick fetches one page of the newest matching
// alerts; the dedup gate makes re-reading the same window harmless.
const (
	defaultInterval = time.Minute
	pollPageSize    = 20
	maxRuleLevel    = 15
)

// Outcome classifies what happened to one alert during a tick.
type Outcome string

const (
	// OutcomeRegistered means the alert was registered and notified.
	OutcomeRegistered Outcome = "registered"
	// OutcomeDuplicate means the alert was already registered.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeNoRecipients means the alert was registered but no active
	// recipients exist, so no notification was sent.
	OutcomeNoRecipients Outcome = "no_recipients"
	// OutcomeFailed means registration or notification failed.
	OutcomeFailed Outcome = "failed"
)

// AlertResult is the per-alert outcome of one tick.
type AlertResult struct {
	AlertID string
	Outcome Outcome
	Err     error
}

// TickSummary aggregates one tick's results.
type TickSummary struct {
	Fetched int
	Results []AlertResult
}

// Store is the slice of persistence the poller needs.
type Store interface {
	RegisterAlert(ctx context.Context, alert *models.ManagedAlert) error
	NotificationConfig(ctx context.Context) (*models.NotificationConfig, error)
	ActiveRecipients(ctx context.Context) ([]*models.NotificationEmail, error)
	FirstUser(ctx context.Context) (*models.User, error)
}

// storeAdapter exposes a Storage as the poller's Store.
type storeAdapter struct {
	s storage.Storage
}

// NewStore adapts full storage to the poller's narrow interface.
func NewStore(s storage.Storage) Store {
	return &storeAdapter{s: s}
}

func (a *storeAdapter) RegisterAlert(ctx context.Context, alert *models.ManagedAlert) error {
	return a.s.ManagedAlerts().Register(ctx, alert)
}

func (a *storeAdapter) NotificationConfig(ctx context.Context) (*models.NotificationConfig, error) {
	return a.s.Notifications().GetConfig(ctx)
}

func (a *storeAdapter) ActiveRecipients(ctx context.Context) ([]*models.NotificationEmail, error) {
	return a.s.Notifications().ListActiveEmails(ctx)
}

func (a *storeAdapter) FirstUser(ctx context.Context) (*models.User, error) {
	return a.s.Users().First(ctx)
}

// alertSource is the slice of the search reader the poller needs.
type alertSource interface {
	Search(ctx context.Context, page, size int, f *search.Filters) (int64, []models.Alert, error)
}

// sender is the slice of the notification dispatcher the poller needs.
type sender interface {
	// ShouldAutoNotify reports whether an automatic notification can go
	// out for an alert of the given rule level. The reason is non-empty
	// when it cannot.
	ShouldAutoNotify(ctx context.Context, ruleLevel int) (bool, string)
	Send(ctx context.Context, alert *models.ManagedAlert, userID string, recipients []*models.NotificationEmail, customMessage string) error
}

// Poller periodically queries the index for alerts at or above the
// configured threshold, registers the new ones, and dispatches
// automatic notifications. Ticks run sequentially on one goroutine; a
// slow tick delays the next rather than overlapping it.
type Poller struct {
	source   alertSource
	store    Store
	notify   sender
	interval time.Duration
}

// NewPoller creates a poller with the default one minute interval.
func NewPoller(source alertSource, store Store, notify sender) *Poller {
	return &Poller{
		source:   source,
		store:    store,
		notify:   notify,
		interval: defaultInterval,
	}
}

// SetInterval overrides the polling interval.
func (p *Poller) SetInterval(d time.Duration) {
	if d > 0 {
		p.interval = d
	}
}

// Run polls until the context is canceled. The ticker drops fires that
// arrive while a tick is still in progress.
func (p *Poller) Run(ctx context.Context) error {
	log.Printf("alert poller started, interval %s", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("alert poller stopped")
			return ctx.Err()
		case <-ticker.C:
			summary, err := p.Tick(ctx)
			if err != nil {
				metrics.SchedulerTicksTotal.WithLabelValues("error").Inc()
				log.Printf("poll tick failed: %v", err)
				continue
			}
			metrics.SchedulerTicksTotal.WithLabelValues("ok").Inc()
			if summary.Fetched > 0 {
				log.Printf("poll tick: fetched=%d results=%d", summary.Fetched, len(summary.Results))
			}
		}
	}
}

// Tick runs one poll cycle. A missing or unusable notification
// configuration makes the tick a no-op: without a threshold there is
// nothing meaningful to poll for.
func (p *Poller) Tick(ctx context.Context) (*TickSummary, error) {
	cfg, err := p.store.NotificationConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load notification config: %w", err)
	}
	if cfg == nil {
		return &TickSummary{}, nil
	}

	// Registering an alert consumes its one shot at an automatic
	// notification: the next tick sees it as a duplicate. So the whole
	// tick defers until the dispatcher confirms it could actually send,
	// not just that notifications are switched on.
	if ok, reason := p.notify.ShouldAutoNotify(ctx, maxRuleLevel); !ok {
		log.Printf("poll deferred: %s", reason)
		return &TickSummary{}, nil
	}

	filters := &search.Filters{
		RuleLevels: levelsFrom(cfg.AlertThreshold),
	}
	_, alerts, err := p.source.Search(ctx, 1, pollPageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("poll alerts: %w", err)
	}

	summary := &TickSummary{Fetched: len(alerts)}
	for i := range alerts {
		// One bad alert never aborts the rest of the batch.
		result := p.processAlert(ctx, &alerts[i])
		summary.Results = append(summary.Results, result)
	}
	return summary, nil
}

// processAlert registers one alert and sends its automatic
// notification. Registration and notification are independent steps: a
// notification failure leaves the registration in place.
func (p *Poller) processAlert(ctx context.Context, alert *models.Alert) AlertResult {
	managed := models.NewManagedAlert(alert)

	err := p.store.RegisterAlert(ctx, managed)
	if errors.Is(err, storage.ErrAlreadyExists) {
		metrics.AlertsSkippedTotal.WithLabelValues("duplicate").Inc()
		return AlertResult{AlertID: alert.ID, Outcome: OutcomeDuplicate}
	}
	if err != nil {
		metrics.AlertsSkippedTotal.WithLabelValues("store_error").Inc()
		log.Printf("register alert %s: %v", alert.ID, err)
		return AlertResult{AlertID: alert.ID, Outcome: OutcomeFailed, Err: err}
	}
	metrics.AlertsRegisteredTotal.Inc()

	recipients, err := p.store.ActiveRecipients(ctx)
	if err != nil {
		log.Printf("load recipients for alert %s: %v", alert.ID, err)
		return AlertResult{AlertID: alert.ID, Outcome: OutcomeFailed, Err: err}
	}
	if len(recipients) == 0 {
		metrics.AlertsSkippedTotal.WithLabelValues("no_recipients").Inc()
		return AlertResult{AlertID: alert.ID, Outcome: OutcomeNoRecipients}
	}

	user, err := p.store.FirstUser(ctx)
	if err != nil {
		log.Printf("resolve notifying user for alert %s: %v", alert.ID, err)
		return AlertResult{AlertID: alert.ID, Outcome: OutcomeFailed, Err: err}
	}
	if user == nil {
		return AlertResult{AlertID: alert.ID, Outcome: OutcomeFailed,
			Err: fmt.Errorf("no users exist to attribute notification")}
	}

	if err := p.notify.Send(ctx, managed, user.ID, recipients, ""); err != nil {
		// Rate limited sends are expected under bursts, not failures
		// worth a log line each.
		if !errors.Is(err, notifier.ErrRateLimited) {
			log.Printf("notify for alert %s: %v", alert.ID, err)
		}
		return AlertResult{AlertID: alert.ID, Outcome: OutcomeFailed, Err: err}
	}

	return AlertResult{AlertID: alert.ID, Outcome: OutcomeRegistered}
}

// levelsFrom expands a threshold into the explicit level list the terms
// clause expects.
func levelsFrom(threshold int) []int {
	if threshold < 0 {
		threshold = 0
	}
	if threshold > maxRuleLevel {
		threshold = maxRuleLevel
	}
	levels := make([]int, 0, maxRuleLevel-threshold+1)
	for l := threshold; l <= maxRuleLevel; l++ {
		levels = append(levels, l)
	}
	return levels
}
