package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/good-yellow-bee/alertdesk/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s := NewSQLiteStorage(":memory:")
	if err := s.Open(); err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func testUser(t *testing.T, s *SQLiteStorage, username string) *models.User {
	t.Helper()
	user := models.NewUser(username, username+"@example.com", models.RoleOperator)
	user.ID = username + "-id"
	user.PasswordHash = "x"
	if err := s.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func testAlert(id string) *models.Alert {
	return &models.Alert{
		ID:        id,
		Timestamp: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		Agent:     models.Agent{ID: "001", Name: "web-01"},
		Rule:      models.Rule{ID: "5710", Level: 10, Description: "sshd brute force"},
	}
}

func TestRegisterDeduplicates(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	first := models.NewManagedAlert(testAlert("abc123"))
	if err := s.ManagedAlerts().Register(ctx, first); err != nil {
		t.Fatalf("first register: %v", err)
	}

	second := models.NewManagedAlert(testAlert("abc123"))
	err := s.ManagedAlerts().Register(ctx, second)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("second register: got %v, want ErrAlreadyExists", err)
	}

	alerts, total, err := s.ManagedAlerts().List(ctx, 10, 0, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(alerts) != 1 {
		t.Fatalf("got %d alerts (total %d), want 1", len(alerts), total)
	}
	if alerts[0].AlertID != "abc123" {
		t.Errorf("alert_id = %q, want abc123", alerts[0].AlertID)
	}
	if alerts[0].State != models.StateOpen {
		t.Errorf("state = %q, want open", alerts[0].State)
	}
}

func TestRegisterPreservesSnapshot(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	alert := testAlert("snap1")
	alert.Data = map[string]any{"srcip": "10.0.0.7"}
	ma := models.NewManagedAlert(alert)
	if err := s.ManagedAlerts().Register(ctx, ma); err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := s.ManagedAlerts().GetByID(ctx, ma.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("get returned nil")
	}
	if got.AlertData == nil {
		t.Fatal("alert data was not persisted")
	}
	if got.RuleLevel != 10 || got.AgentName != "web-01" {
		t.Errorf("denormalized fields lost: %+v", got)
	}
}

func TestUpdateState(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	ma := models.NewManagedAlert(testAlert("st1"))
	if err := s.ManagedAlerts().Register(ctx, ma); err != nil {
		t.Fatalf("register: %v", err)
	}

	updated, err := s.ManagedAlerts().UpdateState(ctx, ma.ID, models.StateClosed)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if updated.State != models.StateClosed {
		t.Errorf("state = %q, want closed", updated.State)
	}

	// Reopening is a legal transition
	updated, err = s.ManagedAlerts().UpdateState(ctx, ma.ID, models.StateOpen)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if updated.State != models.StateOpen {
		t.Errorf("state = %q, want open", updated.State)
	}

	_, err = s.ManagedAlerts().UpdateState(ctx, "missing", models.StateClosed)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id: got %v, want ErrNotFound", err)
	}
}

func TestListFiltersByState(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	a := models.NewManagedAlert(testAlert("a1"))
	b := models.NewManagedAlert(testAlert("b1"))
	for _, ma := range []*models.ManagedAlert{a, b} {
		if err := s.ManagedAlerts().Register(ctx, ma); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	if _, err := s.ManagedAlerts().UpdateState(ctx, b.ID, models.StateClosed); err != nil {
		t.Fatalf("close: %v", err)
	}

	open, total, err := s.ManagedAlerts().List(ctx, 10, 0, models.StateOpen)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if total != 1 || len(open) != 1 || open[0].ID != a.ID {
		t.Errorf("open list = %d entries (total %d)", len(open), total)
	}

	all, total, err := s.ManagedAlerts().List(ctx, 10, 0, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Errorf("all list = %d entries (total %d), want 2", len(all), total)
	}
}

func TestNoteAuthorshipFollowsLastWriter(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	alice := testUser(t, s, "alice")
	bob := testUser(t, s, "bob")

	ma := models.NewManagedAlert(testAlert("n1"))
	if err := s.ManagedAlerts().Register(ctx, ma); err != nil {
		t.Fatalf("register: %v", err)
	}

	note := models.NewAlertNote(ma.ID, "first pass, looks benign", alice.ID)
	if err := s.Notes().Create(ctx, note); err != nil {
		t.Fatalf("create note: %v", err)
	}

	updated, err := s.Notes().Update(ctx, ma.ID, note.ID, "escalating, repeated source", bob.ID)
	if err != nil {
		t.Fatalf("update note: %v", err)
	}
	if updated.AuthorID != bob.ID {
		t.Errorf("author = %q, want %q (last writer)", updated.AuthorID, bob.ID)
	}
	if updated.Content != "escalating, repeated source" {
		t.Errorf("content = %q", updated.Content)
	}
	if updated.ID != note.ID {
		t.Errorf("note identity changed: %q -> %q", note.ID, updated.ID)
	}

	_, err = s.Notes().Update(ctx, "other-alert", note.ID, "x", bob.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("wrong alert id: got %v, want ErrNotFound", err)
	}
}

func TestNotificationHistoryFinalize(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	user := testUser(t, s, "carol")
	ma := models.NewManagedAlert(testAlert("h1"))
	if err := s.ManagedAlerts().Register(ctx, ma); err != nil {
		t.Fatalf("register: %v", err)
	}

	h := models.NewNotificationHistory(ma.ID, user.ID,
		[]string{"soc@example.com"}, "Security Alert", "details")
	if err := s.Notifications().CreateHistory(ctx, h); err != nil {
		t.Fatalf("create history: %v", err)
	}

	entries, total, err := s.Notifications().ListHistory(ctx, 10, 0)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if total != 1 || entries[0].IsSuccess {
		t.Fatalf("pending entry should not be marked successful")
	}

	if err := s.Notifications().FinalizeHistory(ctx, h.ID, false, "dial tcp: refused"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	entries, _, err = s.Notifications().ListHistory(ctx, 10, 0)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if entries[0].IsSuccess || entries[0].ErrorMessage != "dial tcp: refused" {
		t.Errorf("finalized entry = %+v", entries[0])
	}

	if err := s.Notifications().FinalizeHistory(ctx, h.ID, true, ""); err != nil {
		t.Fatalf("finalize success: %v", err)
	}
	entries, _, _ = s.Notifications().ListHistory(ctx, 10, 0)
	if !entries[0].IsSuccess {
		t.Errorf("entry not marked successful")
	}
}

func TestActiveEmailsByID(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	active := models.NewNotificationEmail("on@example.com", "")
	inactive := models.NewNotificationEmail("off@example.com", "")
	inactive.IsActive = false
	for _, e := range []*models.NotificationEmail{active, inactive} {
		if err := s.Notifications().CreateEmail(ctx, e); err != nil {
			t.Fatalf("create email: %v", err)
		}
	}

	got, err := s.Notifications().ActiveEmailsByID(ctx, []string{active.ID, inactive.ID, "missing"})
	if err != nil {
		t.Fatalf("active by id: %v", err)
	}
	if len(got) != 1 || got[0].ID != active.ID {
		t.Errorf("got %d recipients, want just the active one", len(got))
	}
}

func TestFirstUserIsOldest(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	older := models.NewUser("older", "older@example.com", models.RoleAdmin)
	older.ID = "u1"
	older.PasswordHash = "x"
	older.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	older.UpdatedAt = older.CreatedAt

	newer := models.NewUser("newer", "newer@example.com", models.RoleAdmin)
	newer.ID = "u2"
	newer.PasswordHash = "x"

	for _, u := range []*models.User{newer, older} {
		if err := s.Users().Create(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	first, err := s.Users().First(ctx)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if first == nil || first.ID != "u1" {
		t.Errorf("first user = %+v, want u1", first)
	}
}

func TestTokenLifecycle(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	user := testUser(t, s, "dave")
	token, plain, err := models.NewRefreshToken(user.ID, time.Hour)
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	token.ID = "t1"
	if err := s.Tokens().Create(ctx, token); err != nil {
		t.Fatalf("create token: %v", err)
	}

	got, err := s.Tokens().GetByTokenHash(ctx, models.HashToken(plain))
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	if got == nil || !got.IsValid() {
		t.Fatalf("token not valid: %+v", got)
	}

	if err := s.Tokens().RevokeByTokenHash(ctx, token.TokenHash); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	got, _ = s.Tokens().GetByTokenHash(ctx, token.TokenHash)
	if got == nil || got.IsValid() {
		t.Errorf("revoked token still valid")
	}
}
