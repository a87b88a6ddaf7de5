package auth

import (
	"testing"
	"time"
)

func TestLockoutNextFailure(t *testing.T) {
	policy := DefaultLockoutPolicy
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	account := &Account{}
	for i := 1; i < policy.MaxAttempts; i++ {
		attempts, lockUntil := policy.NextFailure(account, now)
		if attempts != i {
			t.Fatalf("attempt %d: counter = %d", i, attempts)
		}
		if lockUntil != nil {
			t.Fatalf("attempt %d: unexpected lock until %v", i, lockUntil)
		}
		account.LoginAttempts = attempts
		account.LockUntil = lockUntil
	}

	attempts, lockUntil := policy.NextFailure(account, now)
	if attempts != policy.MaxAttempts {
		t.Fatalf("final counter = %d, want %d", attempts, policy.MaxAttempts)
	}
	if lockUntil == nil {
		t.Fatal("expected a lock window after the final failure")
	}
	if want := now.Add(policy.LockWindow); !lockUntil.Equal(want) {
		t.Fatalf("lock until = %v, want %v", lockUntil, want)
	}
	account.LoginAttempts = attempts
	account.LockUntil = lockUntil

	if !policy.Locked(account, now) {
		t.Fatal("account should be locked")
	}
	if !policy.Locked(account, now.Add(policy.LockWindow-time.Second)) {
		t.Fatal("account should still be locked just before the window ends")
	}
	if policy.Locked(account, now.Add(policy.LockWindow)) {
		t.Fatal("account should unlock when the window ends")
	}
}

func TestLockoutExpiredLockRestartsCounter(t *testing.T) {
	policy := DefaultLockoutPolicy
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)

	account := &Account{LoginAttempts: policy.MaxAttempts, LockUntil: &past}
	attempts, lockUntil := policy.NextFailure(account, now)
	if attempts != 1 {
		t.Fatalf("counter after expired lock = %d, want 1", attempts)
	}
	if lockUntil != nil {
		t.Fatalf("unexpected lock until %v", lockUntil)
	}
}

func TestLockoutActiveLockKeepsWindow(t *testing.T) {
	policy := DefaultLockoutPolicy
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(time.Hour)

	account := &Account{LoginAttempts: policy.MaxAttempts, LockUntil: &until}
	attempts, lockUntil := policy.NextFailure(account, now)
	if attempts != policy.MaxAttempts+1 {
		t.Fatalf("counter = %d, want %d", attempts, policy.MaxAttempts+1)
	}
	if lockUntil == nil || !lockUntil.Equal(until) {
		t.Fatalf("lock until = %v, want unchanged %v", lockUntil, until)
	}
}
