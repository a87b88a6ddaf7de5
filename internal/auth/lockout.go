package auth

import "time"

// LockoutPolicy governs the per-account failed-login state machine. An
// account is locked iff LockUntil is set and in the future; reaching
// MaxAttempts consecutive failures locks it for LockWindow.
type LockoutPolicy struct {
	MaxAttempts int
	LockWindow  time.Duration
}

// DefaultLockoutPolicy matches the documented contract: five failures lock
// the account for two hours.
var DefaultLockoutPolicy = LockoutPolicy{
	MaxAttempts: 5,
	LockWindow:  2 * time.Hour,
}

// Locked reports whether the account is inside an active lock window.
func (p LockoutPolicy) Locked(account *Account, now time.Time) bool {
	return account.LockUntil != nil && account.LockUntil.After(now)
}

// NextFailure computes the counter and lock state after one more failed
// attempt. An expired lock restarts the counter at 1; otherwise the counter
// advances and, at MaxAttempts, a fresh lock window opens. Stores apply the
// result atomically per record.
func (p LockoutPolicy) NextFailure(account *Account, now time.Time) (attempts int, lockUntil *time.Time) {
	if account.LockUntil != nil && !account.LockUntil.After(now) {
		return 1, nil
	}
	attempts = account.LoginAttempts + 1
	lockUntil = account.LockUntil
	if attempts >= p.MaxAttempts && !p.Locked(account, now) {
		until := now.Add(p.LockWindow)
		lockUntil = &until
	}
	return attempts, lockUntil
}
