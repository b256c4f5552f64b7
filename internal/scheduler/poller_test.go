package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/good-yellow-bee/alertdesk/internal/models"
	"github.com/good-yellow-bee/alertdesk/internal/search"
	"github.com/good-yellow-bee/alertdesk/internal/storage"
)

// fakeSource returns a fixed page of alerts. With honorLevels set it
// behaves like the real index and only returns alerts whose rule level
// is in the requested filter.
type fakeSource struct {
	alerts      []models.Alert
	err         error
	honorLevels bool
	filters     *search.Filters
}

func (f *fakeSource) Search(ctx context.Context, page, size int, filters *search.Filters) (int64, []models.Alert, error) {
	f.filters = filters
	if f.err != nil {
		return 0, nil, f.err
	}
	if !f.honorLevels || filters == nil || len(filters.RuleLevels) == 0 {
		return int64(len(f.alerts)), f.alerts, nil
	}
	wanted := make(map[int]bool, len(filters.RuleLevels))
	for _, l := range filters.RuleLevels {
		wanted[l] = true
	}
	var matched []models.Alert
	for _, a := range f.alerts {
		if wanted[a.Rule.Level] {
			matched = append(matched, a)
		}
	}
	return int64(len(matched)), matched, nil
}

// fakeStore tracks registered alerts by source alert ID.
type fakeStore struct {
	config     *models.NotificationConfig
	recipients []*models.NotificationEmail
	user       *models.User
	registered map[string]bool
	storeErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		config: &models.NotificationConfig{
			ID:             "cfg1",
			AlertThreshold: 7,
			IsEnabled:      true,
			SMTPHost:       "smtp.example.com",
			SMTPPort:       587,
			SMTPUsername:   "u",
			SMTPPassword:   "p",
			SenderEmail:    "alerts@example.com",
		},
		recipients: []*models.NotificationEmail{
			{ID: "r1", Email: "soc@example.com", IsActive: true},
		},
		user:       &models.User{ID: "u1", Username: "admin"},
		registered: make(map[string]bool),
	}
}

func (f *fakeStore) RegisterAlert(ctx context.Context, alert *models.ManagedAlert) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	if f.registered[alert.AlertID] {
		return storage.ErrAlreadyExists
	}
	f.registered[alert.AlertID] = true
	return nil
}

func (f *fakeStore) NotificationConfig(ctx context.Context) (*models.NotificationConfig, error) {
	return f.config, nil
}

func (f *fakeStore) ActiveRecipients(ctx context.Context) ([]*models.NotificationEmail, error) {
	return f.recipients, nil
}

func (f *fakeStore) FirstUser(ctx context.Context) (*models.User, error) {
	return f.user, nil
}

// fakeSender records dispatched notifications. ShouldAutoNotify applies
// the same gate as the real dispatcher against the fake store's config.
type fakeSender struct {
	store *fakeStore
	sent  []string
	err   error
}

func newFakeSender(store *fakeStore) *fakeSender {
	return &fakeSender{store: store}
}

func (f *fakeSender) ShouldAutoNotify(ctx context.Context, ruleLevel int) (bool, string) {
	cfg := f.store.config
	if cfg == nil {
		return false, "notifications not configured"
	}
	if err := cfg.Validate(); err != nil {
		return false, fmt.Sprintf("notifications not configured: %v", err)
	}
	if ruleLevel < cfg.AlertThreshold {
		return false, fmt.Sprintf("rule level %d below threshold %d", ruleLevel, cfg.AlertThreshold)
	}
	return true, ""
}

func (f *fakeSender) Send(ctx context.Context, alert *models.ManagedAlert, userID string, recipients []*models.NotificationEmail, customMessage string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, alert.AlertID)
	return nil
}

func sourceAlert(id string, level int) models.Alert {
	return models.Alert{
		ID:        id,
		Timestamp: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		Agent:     models.Agent{ID: "001", Name: "web-01"},
		Rule:      models.Rule{ID: "5710", Level: level, Description: "sshd brute force"},
	}
}

func TestTickRegistersAndNotifies(t *testing.T) {
	source := &fakeSource{alerts: []models.Alert{
		sourceAlert("a1", 10),
		sourceAlert("a2", 12),
	}}
	store := newFakeStore()
	sender := newFakeSender(store)
	p := NewPoller(source, store, sender)

	summary, err := p.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if summary.Fetched != 2 {
		t.Errorf("fetched = %d, want 2", summary.Fetched)
	}
	for _, r := range summary.Results {
		if r.Outcome != OutcomeRegistered {
			t.Errorf("alert %s: outcome %s, want registered (%v)", r.AlertID, r.Outcome, r.Err)
		}
	}
	if len(sender.sent) != 2 {
		t.Errorf("sent %d notifications, want 2", len(sender.sent))
	}
}

func TestTickQueriesThresholdLevels(t *testing.T) {
	source := &fakeSource{}
	store := newFakeStore()
	store.config.AlertThreshold = 12
	p := NewPoller(source, store, newFakeSender(store))

	if _, err := p.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	want := []int{12, 13, 14, 15}
	got := source.filters.RuleLevels
	if len(got) != len(want) {
		t.Fatalf("rule levels = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rule levels = %v, want %v", got, want)
		}
	}
}

func TestTickSkipsDuplicates(t *testing.T) {
	source := &fakeSource{alerts: []models.Alert{sourceAlert("a1", 10)}}
	store := newFakeStore()
	sender := newFakeSender(store)
	p := NewPoller(source, store, sender)
	ctx := context.Background()

	if _, err := p.Tick(ctx); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	summary, err := p.Tick(ctx)
	if err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if summary.Results[0].Outcome != OutcomeDuplicate {
		t.Errorf("outcome = %s, want duplicate", summary.Results[0].Outcome)
	}
	if len(sender.sent) != 1 {
		t.Errorf("sent %d notifications across two ticks, want 1", len(sender.sent))
	}
}

func TestTickNoopWithoutConfig(t *testing.T) {
	source := &fakeSource{alerts: []models.Alert{sourceAlert("a1", 10)}}
	store := newFakeStore()
	store.config = nil
	sender := newFakeSender(store)
	p := NewPoller(source, store, sender)

	summary, err := p.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if summary.Fetched != 0 || len(store.registered) != 0 || len(sender.sent) != 0 {
		t.Errorf("tick acted without configuration: %+v", summary)
	}
}

func TestTickNoopWhenDisabled(t *testing.T) {
	source := &fakeSource{alerts: []models.Alert{sourceAlert("a1", 10)}}
	store := newFakeStore()
	store.config.IsEnabled = false
	p := NewPoller(source, store, newFakeSender(store))

	summary, err := p.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if summary.Fetched != 0 || len(store.registered) != 0 {
		t.Errorf("tick polled while notifications disabled")
	}
}

func TestTickDefersUntilConfigUsable(t *testing.T) {
	source := &fakeSource{alerts: []models.Alert{sourceAlert("a1", 10)}}
	store := newFakeStore()
	store.config.SMTPHost = ""
	sender := newFakeSender(store)
	p := NewPoller(source, store, sender)
	ctx := context.Background()

	// Enabled but unusable settings: the tick must not register anything,
	// or the alert's automatic notification would be lost for good.
	summary, err := p.Tick(ctx)
	if err != nil {
		t.Fatalf("tick with incomplete config: %v", err)
	}
	if summary.Fetched != 0 || len(summary.Results) != 0 {
		t.Errorf("tick acted on incomplete config: %+v", summary)
	}
	if len(store.registered) != 0 {
		t.Errorf("alert registered under incomplete config: %v", store.registered)
	}

	// Once the settings are completed, the same alert still goes out.
	store.config.SMTPHost = "smtp.example.com"
	summary, err = p.Tick(ctx)
	if err != nil {
		t.Fatalf("tick after config repair: %v", err)
	}
	if len(summary.Results) != 1 || summary.Results[0].Outcome != OutcomeRegistered {
		t.Fatalf("results after repair = %+v, want a1 registered", summary.Results)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "a1" {
		t.Errorf("sent = %v, want [a1]", sender.sent)
	}
}

func TestTickRegistersWithoutRecipients(t *testing.T) {
	source := &fakeSource{alerts: []models.Alert{sourceAlert("a1", 10)}}
	store := newFakeStore()
	store.recipients = nil
	sender := newFakeSender(store)
	p := NewPoller(source, store, sender)

	summary, err := p.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if summary.Results[0].Outcome != OutcomeNoRecipients {
		t.Errorf("outcome = %s, want no_recipients", summary.Results[0].Outcome)
	}
	// Registration happened even though notification was skipped
	if !store.registered["a1"] {
		t.Errorf("alert not registered")
	}
	if len(sender.sent) != 0 {
		t.Errorf("notification sent with no recipients")
	}
}

func TestTickIsolatesNotificationFailure(t *testing.T) {
	source := &fakeSource{alerts: []models.Alert{
		sourceAlert("a1", 10),
		sourceAlert("a2", 10),
	}}
	store := newFakeStore()
	sender := newFakeSender(store)
	sender.err = errors.New("smtp down")
	p := NewPoller(source, store, sender)

	summary, err := p.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	// Both alerts were still registered despite failed notifications
	if len(store.registered) != 2 {
		t.Errorf("registered %d alerts, want 2", len(store.registered))
	}
	for _, r := range summary.Results {
		if r.Outcome != OutcomeFailed {
			t.Errorf("alert %s: outcome %s, want failed", r.AlertID, r.Outcome)
		}
	}
}

func TestTickSearchErrorAborts(t *testing.T) {
	source := &fakeSource{err: errors.New("gateway timeout")}
	store := newFakeStore()
	p := NewPoller(source, store, newFakeSender(store))

	if _, err := p.Tick(context.Background()); err == nil {
		t.Fatal("expected tick error")
	}
}

func TestTickRegistersOnlyAboveThreshold(t *testing.T) {
	source := &fakeSource{honorLevels: true, alerts: []models.Alert{
		sourceAlert("a1", 5),
		sourceAlert("a2", 12),
		sourceAlert("a3", 14),
	}}
	store := newFakeStore()
	store.config.AlertThreshold = 10
	sender := newFakeSender(store)
	p := NewPoller(source, store, sender)

	summary, err := p.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if summary.Fetched != 2 {
		t.Errorf("fetched = %d, want 2", summary.Fetched)
	}
	if !store.registered["a2"] || !store.registered["a3"] {
		t.Errorf("registered = %v, want a2 and a3", store.registered)
	}
	if store.registered["a1"] {
		t.Errorf("level 5 alert registered despite threshold 10")
	}
	if len(sender.sent) != 2 {
		t.Errorf("sent %d notifications, want 2", len(sender.sent))
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	source := &fakeSource{}
	store := newFakeStore()
	p := NewPoller(source, store, newFakeSender(store))
	p.SetInterval(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}

func TestLevelsFrom(t *testing.T) {
	tests := []struct {
		threshold int
		first     int
		count     int
	}{
		{0, 0, 16},
		{7, 7, 9},
		{15, 15, 1},
		{-3, 0, 16},
		{20, 15, 1},
	}
	for _, tt := range tests {
		got := levelsFrom(tt.threshold)
		if len(got) != tt.count || got[0] != tt.first {
			t.Errorf("levelsFrom(%d) = %v, want %d levels from %d",
				tt.threshold, got, tt.count, tt.first)
		}
	}
}
