package auth

import (
	"context"
	"errors"
	"fmt"
)

// SeedSpec describes one default account created at bootstrap.
type SeedSpec struct {
	Username string
	Email    string
	Password string
	Role     Role
}

// DefaultSeeds are the accounts provisioned on a fresh installation.
func DefaultSeeds() []SeedSpec {
	return []SeedSpec{
		{Username: "admin", Email: "admin@example.com", Password: "Admin123", Role: RoleAdmin},
		{Username: "johndoe", Email: "john@example.com", Password: "User123", Role: RoleUser},
		{Username: "janedoe", Email: "jane@example.com", Password: "User123", Role: RoleUser},
		{Username: "moderator", Email: "mod@example.com", Password: "Mod123", Role: RoleModerator},
	}
}

// SeedAccounts creates the given accounts unless they already exist.
// Passwords are hashed here so seeds never carry precomputed hashes.
func SeedAccounts(ctx context.Context, store AccountStore, seeds []SeedSpec) error {
	for _, seed := range seeds {
		_, err := store.FindByUsernameOrEmail(ctx, seed.Username)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("seed %s: %w", seed.Username, err)
		}
		hash, err := HashPassword(seed.Password)
		if err != nil {
			return fmt.Errorf("seed %s: %w", seed.Username, err)
		}
		account := &Account{
			Username:     seed.Username,
			Email:        seed.Email,
			PasswordHash: hash,
			Role:         seed.Role,
			Provider:     ProviderLocal,
			Active:       true,
		}
		if err := store.Create(ctx, account); err != nil && !errors.Is(err, ErrConflict) {
			return fmt.Errorf("seed %s: %w", seed.Username, err)
		}
	}
	return nil
}
