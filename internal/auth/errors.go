package auth

import "errors"

var (
	// ErrInvalidCredentials is deliberately generic: it covers unknown
	// subjects, wrong passwords and inactive accounts so that responses
	// never reveal whether an account exists.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	ErrInvalidInput  = errors.New("auth: invalid input")
	ErrAccountLocked = errors.New("auth: account locked")
	ErrTokenExpired  = errors.New("auth: token expired")
	ErrTokenInvalid  = errors.New("auth: invalid token")
	ErrForbidden     = errors.New("auth: forbidden")
	ErrNotFound      = errors.New("auth: not found")
	ErrConflict      = errors.New("auth: already exists")

	// ErrStoreUnavailable wraps driver-level failures. The core never
	// retries; the collaborator owns retry policy.
	ErrStoreUnavailable = errors.New("auth: store unavailable")
)
