package auth

import (
	"context"
	"time"
)

// AccountStore persists accounts. Implementations must make RegisterFailure
// atomic per record: concurrent failed logins on the same account may not
// lose counter increments.
type AccountStore interface {
	Create(ctx context.Context, account *Account) error
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	// FindByUsernameOrEmail resolves the login subject; q matches either
	// unique column.
	FindByUsernameOrEmail(ctx context.Context, q string) (*Account, error)
	List(ctx context.Context) ([]*Account, error)
	Update(ctx context.Context, account *Account) error
	Delete(ctx context.Context, id string) error

	// RegisterFailure advances the failed-login counter under the given
	// policy and returns the resulting state.
	RegisterFailure(ctx context.Context, id string, now time.Time, policy LockoutPolicy) (attempts int, lockedUntil *time.Time, err error)
	// ResetLockout clears the counter and lock window and stamps a
	// successful login.
	ResetLockout(ctx context.Context, id string, now time.Time) error
}
