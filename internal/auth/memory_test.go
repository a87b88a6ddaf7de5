package auth

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryStoreRegisterFailureConcurrent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	account := &Account{
		ID:           "acct-1",
		Username:     "johndoe",
		Email:        "john@example.com",
		PasswordHash: "irrelevant",
		Role:         RoleUser,
		Active:       true,
	}
	if err := store.Create(ctx, account); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Every failure must land in the counter, no matter how they interleave.
	const failures = 25
	var wg sync.WaitGroup
	for i := 0; i < failures; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := store.RegisterFailure(ctx, account.ID, now, DefaultLockoutPolicy); err != nil {
				t.Errorf("RegisterFailure: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.FindByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.LoginAttempts != failures {
		t.Fatalf("counter = %d, want %d", got.LoginAttempts, failures)
	}
	if got.LockUntil == nil {
		t.Fatal("expected a lock after crossing the threshold")
	}
	if want := now.Add(DefaultLockoutPolicy.LockWindow); !got.LockUntil.Equal(want) {
		t.Fatalf("lock until = %v, want %v", got.LockUntil, want)
	}
}
