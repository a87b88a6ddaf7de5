package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"docuvault.org/internal/audit"
	"docuvault.org/internal/obs"
)

// Service orchestrates registration, login with lockout tracking, token
// refresh and external identity binding. It records every security-relevant
// decision through the audit recorder.
type Service struct {
	accounts AccountStore
	tokens   *TokenService
	recorder *audit.Recorder
	lockout  LockoutPolicy
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLockoutPolicy overrides the failed-login policy.
func WithLockoutPolicy(policy LockoutPolicy) ServiceOption {
	return func(s *Service) {
		if policy.MaxAttempts > 0 && policy.LockWindow > 0 {
			s.lockout = policy
		}
	}
}

// WithClock overrides the time source. Test use only.
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService wires the login orchestration.
func NewService(accounts AccountStore, tokens *TokenService, recorder *audit.Recorder, opts ...ServiceOption) *Service {
	svc := &Service{
		accounts: accounts,
		tokens:   tokens,
		recorder: recorder,
		lockout:  DefaultLockoutPolicy,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Tokens exposes the token service for the HTTP layer's verified-claims path.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// RegisterInput carries a local registration request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     Role
}

// Register provisions a local account. Username and email collide on
// uniqueness with ErrConflict.
func (s *Service) Register(ctx context.Context, in RegisterInput, meta RequestMeta) (PublicAccount, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if username == "" || email == "" || in.Password == "" {
		return PublicAccount{}, fmt.Errorf("%w: username, email and password are required", ErrInvalidInput)
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return PublicAccount{}, err
	}
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	account := &Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Provider:     ProviderLocal,
		Active:       true,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return PublicAccount{}, err
	}
	s.record(ctx, audit.Entry{
		ActorID:      account.ID,
		Username:     account.Username,
		Action:       audit.ActionUserRegister,
		ResourceType: "user",
		ResourceID:   account.ID,
		Outcome:      audit.OutcomeSuccess,
		Details:      map[string]any{"provider": string(ProviderLocal), "role": string(role)},
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	})
	return account.Public(), nil
}

// Login authenticates by username or email. The error is a generic
// ErrInvalidCredentials for unknown subjects, wrong passwords and inactive
// accounts alike; only an active lock window is reported distinctly.
func (s *Service) Login(ctx context.Context, identifier, password string, meta RequestMeta) (TokenPair, PublicAccount, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		obs.CountLogin("failed")
		return TokenPair{}, PublicAccount{}, ErrInvalidCredentials
	}

	account, err := s.accounts.FindByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			obs.CountLogin("failed")
			return TokenPair{}, PublicAccount{}, ErrInvalidCredentials
		}
		return TokenPair{}, PublicAccount{}, err
	}

	now := s.now().UTC()
	if s.lockout.Locked(account, now) {
		obs.CountLogin("locked")
		return TokenPair{}, PublicAccount{}, ErrAccountLocked
	}

	if !account.Active || VerifyPassword(account.PasswordHash, password) != nil {
		s.registerFailure(ctx, account, now, meta)
		obs.CountLogin("failed")
		return TokenPair{}, PublicAccount{}, ErrInvalidCredentials
	}

	if err := s.accounts.ResetLockout(ctx, account.ID, now); err != nil {
		return TokenPair{}, PublicAccount{}, err
	}
	account.LoginAttempts = 0
	account.LockUntil = nil
	account.LastLogin = &now

	pair, err := s.tokens.IssuePair(account)
	if err != nil {
		return TokenPair{}, PublicAccount{}, err
	}

	obs.CountLogin("success")
	s.record(ctx, audit.Entry{
		ActorID:      account.ID,
		Username:     account.Username,
		Action:       audit.ActionUserLogin,
		ResourceType: "auth",
		Outcome:      audit.OutcomeSuccess,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	})
	return pair, account.Public(), nil
}

// Refresh verifies the refresh token and mints a fresh access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string, meta RequestMeta) (string, time.Time, error) {
	access, expiresAt, err := s.tokens.Refresh(refreshToken)
	if err != nil {
		return "", time.Time{}, err
	}
	claims, _ := s.tokens.verify(refreshToken, tokenTypeRefresh)
	entry := audit.Entry{
		Action:       audit.ActionTokenRefresh,
		ResourceType: "auth",
		Outcome:      audit.OutcomeSuccess,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	}
	if claims != nil {
		entry.ActorID = claims.Subject
		entry.Username = claims.Username
	}
	s.record(ctx, entry)
	return access, expiresAt, nil
}

// Logout records the end of a session. Tokens are stateless so there is
// nothing to revoke; the entry exists for the trail.
func (s *Service) Logout(ctx context.Context, caller Principal, meta RequestMeta) {
	s.record(ctx, audit.Entry{
		ActorID:      caller.ID,
		Username:     caller.Username,
		Action:       audit.ActionUserLogout,
		ResourceType: "auth",
		Outcome:      audit.OutcomeSuccess,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	})
}

// ExternalLogin accepts a verified external identity assertion and either
// binds it to the existing account with the same email or provisions a new
// account under the external provider.
func (s *Service) ExternalLogin(ctx context.Context, identity ExternalIdentity, meta RequestMeta) (TokenPair, PublicAccount, error) {
	email := strings.TrimSpace(strings.ToLower(identity.Email))
	if email == "" {
		return TokenPair{}, PublicAccount{}, ErrInvalidCredentials
	}

	now := s.now().UTC()
	account, err := s.accounts.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if !account.Active {
			return TokenPair{}, PublicAccount{}, ErrInvalidCredentials
		}
		if err := s.accounts.ResetLockout(ctx, account.ID, now); err != nil {
			return TokenPair{}, PublicAccount{}, err
		}
		account.LoginAttempts = 0
		account.LockUntil = nil
		account.LastLogin = &now
		s.record(ctx, audit.Entry{
			ActorID:      account.ID,
			Username:     account.Username,
			Action:       audit.ActionUserLogin,
			ResourceType: "user",
			ResourceID:   account.ID,
			Outcome:      audit.OutcomeSuccess,
			Details:      map[string]any{"provider": string(ProviderGoogle), "email": account.Email},
			IPAddress:    meta.IPAddress,
			UserAgent:    meta.UserAgent,
		})
	case errors.Is(err, ErrNotFound):
		account, err = s.provisionExternal(ctx, identity, email, meta)
		if err != nil {
			return TokenPair{}, PublicAccount{}, err
		}
	default:
		return TokenPair{}, PublicAccount{}, err
	}

	pair, err := s.tokens.IssuePair(account)
	if err != nil {
		return TokenPair{}, PublicAccount{}, err
	}
	return pair, account.Public(), nil
}

func (s *Service) provisionExternal(ctx context.Context, identity ExternalIdentity, email string, meta RequestMeta) (*Account, error) {
	username := strings.TrimSpace(identity.Name)
	if username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}
	// Unusable local credential keeps the hash column populated without
	// opening a password login path.
	placeholder, err := placeholderPassword()
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(placeholder)
	if err != nil {
		return nil, err
	}
	account := &Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
		Provider:     ProviderGoogle,
		Active:       true,
		Avatar:       identity.Avatar,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrConflict) && identity.Subject != "" {
			// Username taken by a different email; retry with a
			// provider-scoped suffix.
			account.Username = username + "-" + identity.Subject
			err = s.accounts.Create(ctx, account)
		}
		if err != nil {
			return nil, err
		}
	}
	s.record(ctx, audit.Entry{
		ActorID:      account.ID,
		Username:     account.Username,
		Action:       audit.ActionUserRegister,
		ResourceType: "user",
		ResourceID:   account.ID,
		Outcome:      audit.OutcomeSuccess,
		Details:      map[string]any{"provider": string(ProviderGoogle), "email": email},
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	})
	return account, nil
}

// Resolve verifies a bearer access token and re-resolves the subject against
// the store. The fresh lookup is authoritative: a role change or deactivation
// takes effect immediately, regardless of the claims embedded at issuance.
func (s *Service) Resolve(ctx context.Context, accessToken string) (Principal, error) {
	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return Principal{}, err
	}
	account, err := s.accounts.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrTokenInvalid
		}
		return Principal{}, err
	}
	if !account.Active {
		return Principal{}, ErrTokenInvalid
	}
	return Principal{
		ID:       account.ID,
		Username: account.Username,
		Email:    account.Email,
		Role:     account.Role,
	}, nil
}

// Profile returns the public view of one account.
func (s *Service) Profile(ctx context.Context, id string) (PublicAccount, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return PublicAccount{}, err
	}
	return account.Public(), nil
}

// ProfileUpdate carries self-service profile changes; nil fields are left
// untouched.
type ProfileUpdate struct {
	Username *string
	Email    *string
	Password *string
}

// UpdateProfile applies a self-service update for the caller's own account.
func (s *Service) UpdateProfile(ctx context.Context, caller Principal, upd ProfileUpdate, meta RequestMeta) (PublicAccount, error) {
	account, err := s.accounts.FindByID(ctx, caller.ID)
	if err != nil {
		return PublicAccount{}, err
	}
	if upd.Username != nil {
		username := strings.TrimSpace(*upd.Username)
		if username == "" {
			return PublicAccount{}, fmt.Errorf("%w: username cannot be empty", ErrInvalidInput)
		}
		account.Username = username
	}
	if upd.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*upd.Email))
		if email == "" || !strings.Contains(email, "@") {
			return PublicAccount{}, fmt.Errorf("%w: valid email required", ErrInvalidInput)
		}
		account.Email = email
	}
	if upd.Password != nil {
		hash, err := HashPassword(*upd.Password)
		if err != nil {
			return PublicAccount{}, err
		}
		account.PasswordHash = hash
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		return PublicAccount{}, err
	}
	s.record(ctx, audit.Entry{
		ActorID:      account.ID,
		Username:     account.Username,
		Action:       audit.ActionUserUpdate,
		ResourceType: "user",
		ResourceID:   account.ID,
		Outcome:      audit.OutcomeSuccess,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	})
	return account.Public(), nil
}

// ListAccounts returns all accounts. Role-gating happens at the HTTP layer.
func (s *Service) ListAccounts(ctx context.Context) ([]PublicAccount, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PublicAccount, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, account.Public())
	}
	return out, nil
}

// DeleteAccount removes an account and audits the deletion with the caller
// as actor.
func (s *Service) DeleteAccount(ctx context.Context, caller Principal, id string, meta RequestMeta) (PublicAccount, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return PublicAccount{}, err
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		return PublicAccount{}, err
	}
	s.record(ctx, audit.Entry{
		ActorID:      caller.ID,
		Username:     caller.Username,
		Action:       audit.ActionUserDelete,
		ResourceType: "user",
		ResourceID:   id,
		Outcome:      audit.OutcomeSuccess,
		Details:      map[string]any{"deleted_username": account.Username},
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	})
	return account.Public(), nil
}

func (s *Service) registerFailure(ctx context.Context, account *Account, now time.Time, meta RequestMeta) {
	attempts, lockedUntil, err := s.accounts.RegisterFailure(ctx, account.ID, now, s.lockout)
	if err != nil {
		obs.LogJSON(map[string]any{
			"ts":    now.Format(time.RFC3339Nano),
			"level": "error",
			"msg":   "lockout_update_failed",
			"error": err.Error(),
		})
		return
	}
	details := map[string]any{"reason": "invalid password", "attempts": attempts}
	if lockedUntil != nil && lockedUntil.After(now) {
		obs.CountLockout()
		details["locked_until"] = lockedUntil.UTC().Format(time.RFC3339)
	}
	s.record(ctx, audit.Entry{
		ActorID:      account.ID,
		Username:     account.Username,
		Action:       audit.ActionUserLoginFailed,
		ResourceType: "auth",
		Outcome:      audit.OutcomeFailed,
		Details:      details,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	})
}

func (s *Service) record(ctx context.Context, entry audit.Entry) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, entry)
}
