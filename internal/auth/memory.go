package auth

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"docuvault.org/internal/ids"
)

// MemoryStore implements AccountStore in process memory with per-store
// locking, so lockout updates are atomic. Used in tests and when the service
// runs without a database.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account
}

var _ AccountStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*Account)}
}

func (s *MemoryStore) Create(ctx context.Context, account *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Username, account.Username) ||
			strings.EqualFold(existing.Email, account.Email) {
			return ErrConflict
		}
	}
	if account.ID == "" {
		account.ID = ids.New()
	}
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	cp := *account
	s.accounts[account.ID] = &cp
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *account
	return &cp, nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.accounts {
		if strings.EqualFold(account.Email, email) {
			cp := *account
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindByUsernameOrEmail(ctx context.Context, q string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.accounts {
		if strings.EqualFold(account.Username, q) || strings.EqualFold(account.Email, q) {
			cp := *account
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) List(ctx context.Context) ([]*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		cp := *account
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, account *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.accounts[account.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range s.accounts {
		if id == account.ID {
			continue
		}
		if strings.EqualFold(other.Username, account.Username) ||
			strings.EqualFold(other.Email, account.Email) {
			return ErrConflict
		}
	}
	stored.Username = account.Username
	stored.Email = account.Email
	stored.PasswordHash = account.PasswordHash
	stored.Role = account.Role
	stored.Active = account.Active
	stored.Avatar = account.Avatar
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *MemoryStore) RegisterFailure(ctx context.Context, id string, now time.Time, policy LockoutPolicy) (int, *time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return 0, nil, ErrNotFound
	}
	attempts, lockUntil := policy.NextFailure(account, now)
	account.LoginAttempts = attempts
	account.LockUntil = lockUntil
	account.UpdatedAt = now
	return attempts, lockUntil, nil
}

func (s *MemoryStore) ResetLockout(ctx context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	account.LoginAttempts = 0
	account.LockUntil = nil
	login := now
	account.LastLogin = &login
	account.UpdatedAt = now
	return nil
}
