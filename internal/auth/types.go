package auth

import (
	"strings"
	"time"
)

// Role is an account's assigned access level.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
)

// ParseRole normalizes a raw role string, falling back to RoleUser.
func ParseRole(raw string) Role {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleModerator:
		return RoleModerator
	default:
		return RoleUser
	}
}

// RoleSet is an explicit set of allowed roles for a gate.
type RoleSet map[Role]struct{}

// Roles builds a RoleSet from its members.
func Roles(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Contains reports whether the role is a member of the set.
func (s RoleSet) Contains(role Role) bool {
	_, ok := s[role]
	return ok
}

// Members returns the set's roles in stable order for logging.
func (s RoleSet) Members() []string {
	out := make([]string, 0, len(s))
	for _, r := range []Role{RoleAdmin, RoleModerator, RoleUser} {
		if s.Contains(r) {
			out = append(out, string(r))
		}
	}
	return out
}

// Provider identifies how an account authenticates.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderGoogle Provider = "google"
)

// Account is a stored user record. For local accounts PasswordHash is the
// user's bcrypt credential; externally provisioned accounts carry a random
// unusable placeholder so the field is never empty.
type Account struct {
	ID            string
	Username      string
	Email         string
	PasswordHash  string
	Role          Role
	Provider      Provider
	Active        bool
	Avatar        string
	LastLogin     *time.Time
	LoginAttempts int
	LockUntil     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PublicAccount is the externally visible view of an account, with the
// credential hash stripped.
type PublicAccount struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	Provider  Provider   `json:"provider"`
	Avatar    string     `json:"avatar,omitempty"`
	Active    bool       `json:"active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Public returns the account's external view.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		Role:      a.Role,
		Provider:  a.Provider,
		Avatar:    a.Avatar,
		Active:    a.Active,
		LastLogin: a.LastLogin,
		CreatedAt: a.CreatedAt,
	}
}

// Principal is the authenticated caller attached to a request after the
// bearer token has been verified and the account re-resolved from the store.
type Principal struct {
	ID       string
	Username string
	Email    string
	Role     Role
}

// IsAdmin reports whether the principal bypasses ownership checks.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// ExternalIdentity is a verified identity assertion from an external OAuth
// provider. The code-for-identity exchange happens outside the core.
type ExternalIdentity struct {
	Email   string
	Name    string
	Subject string
	Avatar  string
}

// RequestMeta carries request attribution recorded alongside audit entries.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}
