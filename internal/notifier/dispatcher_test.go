package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/good-yellow-bee/alertdesk/internal/models"
)

// fakeNotificationRepo implements storage.NotificationRepository in
// memory for dispatcher tests.
type fakeNotificationRepo struct {
	config  *models.NotificationConfig
	history []*models.NotificationHistory
}

func (f *fakeNotificationRepo) GetConfig(ctx context.Context) (*models.NotificationConfig, error) {
	return f.config, nil
}

func (f *fakeNotificationRepo) CreateConfig(ctx context.Context, cfg *models.NotificationConfig) error {
	f.config = cfg
	return nil
}

func (f *fakeNotificationRepo) UpdateConfig(ctx context.Context, cfg *models.NotificationConfig) error {
	f.config = cfg
	return nil
}

func (f *fakeNotificationRepo) ListEmails(ctx context.Context) ([]*models.NotificationEmail, error) {
	return nil, nil
}

func (f *fakeNotificationRepo) ListActiveEmails(ctx context.Context) ([]*models.NotificationEmail, error) {
	return nil, nil
}

func (f *fakeNotificationRepo) ActiveEmailsByID(ctx context.Context, ids []string) ([]*models.NotificationEmail, error) {
	return nil, nil
}

func (f *fakeNotificationRepo) CreateEmail(ctx context.Context, email *models.NotificationEmail) error {
	return nil
}

func (f *fakeNotificationRepo) UpdateEmail(ctx context.Context, email *models.NotificationEmail) error {
	return nil
}

func (f *fakeNotificationRepo) DeleteEmail(ctx context.Context, id string) error {
	return nil
}

func (f *fakeNotificationRepo) CreateHistory(ctx context.Context, h *models.NotificationHistory) error {
	copied := *h
	f.history = append(f.history, &copied)
	return nil
}

func (f *fakeNotificationRepo) FinalizeHistory(ctx context.Context, id string, success bool, errMessage string) error {
	for _, h := range f.history {
		if h.ID == id {
			h.IsSuccess = success
			h.ErrorMessage = errMessage
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeNotificationRepo) ListHistory(ctx context.Context, limit, offset int) ([]*models.NotificationHistory, int64, error) {
	return f.history, int64(len(f.history)), nil
}

// fakeMailer records sends and optionally fails.
type fakeMailer struct {
	sent    int
	lastTo  []string
	lastSub string
	err     error
}

func (m *fakeMailer) Send(ctx context.Context, cfg *models.NotificationConfig, recipients []string, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent++
	m.lastTo = recipients
	m.lastSub = subject
	return nil
}

func validConfig() *models.NotificationConfig {
	return &models.NotificationConfig{
		ID:             "cfg1",
		AlertThreshold: 7,
		IsEnabled:      true,
		SMTPHost:       "smtp.example.com",
		SMTPPort:       587,
		SMTPUsername:   "mailer",
		SMTPPassword:   "secret",
		SenderEmail:    "alerts@example.com",
		SenderName:     "AlertDesk",
	}
}

func testManagedAlert() *models.ManagedAlert {
	return &models.ManagedAlert{
		ID:              "ma1",
		AlertID:         "abc123",
		State:           models.StateOpen,
		Timestamp:       time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		AgentID:         "001",
		AgentName:       "web-01",
		RuleID:          "5710",
		RuleLevel:       10,
		RuleDescription: "sshd brute force",
	}
}

func recipients(addrs ...string) []*models.NotificationEmail {
	var out []*models.NotificationEmail
	for i, a := range addrs {
		out = append(out, &models.NotificationEmail{
			ID:       fmt.Sprintf("r%d", i),
			Email:    a,
			IsActive: true,
		})
	}
	return out
}

func TestSendFailsClosedWithoutConfig(t *testing.T) {
	repo := &fakeNotificationRepo{}
	mailer := &fakeMailer{}
	d := NewDispatcher(repo, mailer)

	err := d.Send(context.Background(), testManagedAlert(), "u1",
		recipients("soc@example.com"), "")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("got %v, want ErrNotConfigured", err)
	}
	if mailer.sent != 0 {
		t.Errorf("mailer was invoked despite missing config")
	}
	if len(repo.history) != 0 {
		t.Errorf("history written despite precondition failure")
	}
}

func TestSendFailsClosedWhenDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.IsEnabled = false
	repo := &fakeNotificationRepo{config: cfg}
	mailer := &fakeMailer{}
	d := NewDispatcher(repo, mailer)

	err := d.Send(context.Background(), testManagedAlert(), "u1",
		recipients("soc@example.com"), "")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("got %v, want ErrNotConfigured", err)
	}
	if mailer.sent != 0 {
		t.Errorf("mailer was invoked while disabled")
	}
}

func TestSendRejectsEmptyRecipients(t *testing.T) {
	repo := &fakeNotificationRepo{config: validConfig()}
	mailer := &fakeMailer{}
	d := NewDispatcher(repo, mailer)

	err := d.Send(context.Background(), testManagedAlert(), "u1", nil, "")
	if !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("got %v, want ErrNoRecipients", err)
	}
	if len(repo.history) != 0 {
		t.Errorf("history written with no recipients")
	}
}

func TestSendRecordsSuccess(t *testing.T) {
	repo := &fakeNotificationRepo{config: validConfig()}
	mailer := &fakeMailer{}
	d := NewDispatcher(repo, mailer)

	err := d.Send(context.Background(), testManagedAlert(), "u1",
		recipients("a@example.com", "b@example.com"), "please investigate")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if mailer.sent != 1 {
		t.Fatalf("mailer sent %d times, want 1", mailer.sent)
	}
	if len(mailer.lastTo) != 2 {
		t.Errorf("sent to %d recipients, want 2", len(mailer.lastTo))
	}

	if len(repo.history) != 1 {
		t.Fatalf("got %d history entries, want 1", len(repo.history))
	}
	h := repo.history[0]
	if !h.IsSuccess {
		t.Errorf("history not finalized as success: %+v", h)
	}
	if h.UserID != "u1" || h.AlertID != "ma1" {
		t.Errorf("attribution wrong: %+v", h)
	}
}

func TestSendRecordsFailure(t *testing.T) {
	repo := &fakeNotificationRepo{config: validConfig()}
	mailer := &fakeMailer{err: errors.New("dial tcp: connection refused")}
	d := NewDispatcher(repo, mailer)

	err := d.Send(context.Background(), testManagedAlert(), "u1",
		recipients("soc@example.com"), "")
	if err == nil {
		t.Fatal("expected send error")
	}

	if len(repo.history) != 1 {
		t.Fatalf("got %d history entries, want 1", len(repo.history))
	}
	h := repo.history[0]
	if h.IsSuccess {
		t.Errorf("failed attempt marked successful")
	}
	if h.ErrorMessage == "" {
		t.Errorf("failure reason not recorded")
	}
}

func TestSendRateLimited(t *testing.T) {
	repo := &fakeNotificationRepo{config: validConfig()}
	mailer := &fakeMailer{}
	d := NewDispatcherWithRateLimit(repo, mailer, RateLimitConfig{
		MaxPerMinute: 1,
		Burst:        1,
		Enabled:      true,
	})

	ctx := context.Background()
	if err := d.Send(ctx, testManagedAlert(), "u1", recipients("soc@example.com"), ""); err != nil {
		t.Fatalf("first send: %v", err)
	}
	err := d.Send(ctx, testManagedAlert(), "u1", recipients("soc@example.com"), "")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("got %v, want ErrRateLimited", err)
	}
	if mailer.sent != 1 {
		t.Errorf("mailer sent %d times, want 1", mailer.sent)
	}
	// The dropped attempt still leaves an audit trail
	if len(repo.history) != 2 {
		t.Errorf("got %d history entries, want 2", len(repo.history))
	}
}

func TestShouldAutoNotify(t *testing.T) {
	tests := []struct {
		name   string
		config *models.NotificationConfig
		level  int
		want   bool
	}{
		{"no config", nil, 12, false},
		{"disabled", func() *models.NotificationConfig {
			c := validConfig()
			c.IsEnabled = false
			return c
		}(), 12, false},
		{"below threshold", validConfig(), 5, false},
		{"at threshold", validConfig(), 7, true},
		{"above threshold", validConfig(), 12, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeNotificationRepo{config: tt.config}
			d := NewDispatcher(repo, &fakeMailer{})
			got, reason := d.ShouldAutoNotify(context.Background(), tt.level)
			if got != tt.want {
				t.Errorf("ShouldAutoNotify(level=%d) = %v (%s), want %v",
					tt.level, got, reason, tt.want)
			}
			if !got && reason == "" {
				t.Errorf("negative decision carries no reason")
			}
		})
	}
}

func TestRenderBodyIncludesAlertFields(t *testing.T) {
	body := renderBody(testManagedAlert(), "custom note")
	for _, want := range []string{"web-01", "5710", "level 10", "sshd brute force", "custom note", "open"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}
