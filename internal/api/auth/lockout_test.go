package auth

import (
	"testing"
	"time"
)

func TestLockoutTracker_ThresholdTriggersLock(t *testing.T) {
	tracker := NewLockoutTracker(3, time.Hour)

	if tracker.IsLocked("analyst") {
		t.Error("user should not be locked initially")
	}

	tracker.RecordFailure("analyst")
	tracker.RecordFailure("analyst")
	if tracker.IsLocked("analyst") {
		t.Error("user should not be locked after 2 failures (threshold=3)")
	}

	tracker.RecordFailure("analyst")
	if !tracker.IsLocked("analyst") {
		t.Error("user should be locked after 3 failures")
	}
}

func TestLockoutTracker_LockoutExpires(t *testing.T) {
	tracker := NewLockoutTracker(2, 50*time.Millisecond)

	tracker.RecordFailure("analyst")
	tracker.RecordFailure("analyst")
	if !tracker.IsLocked("analyst") {
		t.Error("user should be locked")
	}

	time.Sleep(60 * time.Millisecond)

	if tracker.IsLocked("analyst") {
		t.Error("lockout should have expired")
	}
}

func TestLockoutTracker_ClearFailuresResetsCount(t *testing.T) {
	tracker := NewLockoutTracker(2, time.Hour)

	tracker.RecordFailure("analyst")
	tracker.ClearFailures("analyst")

	// Needs the full threshold again after a successful login
	tracker.RecordFailure("analyst")
	if tracker.IsLocked("analyst") {
		t.Error("user should not be locked after clear and 1 failure")
	}

	tracker.RecordFailure("analyst")
	if !tracker.IsLocked("analyst") {
		t.Error("user should be locked after 2 failures")
	}
}

func TestLockoutTracker_RemainingTime(t *testing.T) {
	lockoutDuration := 100 * time.Millisecond
	tracker := NewLockoutTracker(1, lockoutDuration)

	if remaining := tracker.RemainingLockoutTime("analyst"); remaining != 0 {
		t.Errorf("remaining time should be 0, got %v", remaining)
	}

	tracker.RecordFailure("analyst")

	remaining := tracker.RemainingLockoutTime("analyst")
	if remaining <= 0 {
		t.Error("remaining time should be positive after lockout")
	}
	if remaining > lockoutDuration {
		t.Errorf("remaining time %v exceeds lockout duration %v", remaining, lockoutDuration)
	}
}

func TestLockoutTracker_IndependentUsers(t *testing.T) {
	tracker := NewLockoutTracker(2, time.Hour)

	tracker.RecordFailure("alice")
	tracker.RecordFailure("alice")

	if !tracker.IsLocked("alice") {
		t.Error("alice should be locked")
	}
	if tracker.IsLocked("bob") {
		t.Error("bob should not be locked")
	}
}
