package auth

import (
	"context"
	"fmt"

	"docuvault.org/internal/audit"
)

// Authorizer applies the role gate and the ownership gate. Every denial is
// recorded as an ACCESS_DENIED audit entry before the error is returned.
type Authorizer struct {
	recorder *audit.Recorder
}

// NewAuthorizer builds an Authorizer. recorder may be nil, in which case
// denials are not audited (test use).
func NewAuthorizer(recorder *audit.Recorder) *Authorizer {
	return &Authorizer{recorder: recorder}
}

// Authorize allows the caller iff its role is in the required set.
func (a *Authorizer) Authorize(ctx context.Context, required RoleSet, caller Principal, path string) error {
	if required.Contains(caller.Role) {
		return nil
	}
	a.record(ctx, audit.Entry{
		ActorID:      caller.ID,
		Username:     caller.Username,
		Action:       audit.ActionAccessDenied,
		ResourceType: "system",
		Outcome:      audit.OutcomeWarning,
		Details: map[string]any{
			"required_roles": required.Members(),
			"caller_role":    string(caller.Role),
			"path":           path,
		},
	})
	return fmt.Errorf("%w: requires role %v", ErrForbidden, required.Members())
}

// AuthorizeOwnership allows admins unconditionally, otherwise only the
// resource owner. The caller must have established that the resource exists;
// NotFound is a distinct error decided before ownership comparison.
func (a *Authorizer) AuthorizeOwnership(ctx context.Context, resourceType, resourceID, ownerID string, caller Principal) error {
	if caller.IsAdmin() {
		return nil
	}
	if ownerID == caller.ID {
		return nil
	}
	a.record(ctx, audit.Entry{
		ActorID:      caller.ID,
		Username:     caller.Username,
		Action:       audit.ActionAccessDenied,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Outcome:      audit.OutcomeWarning,
		Details: map[string]any{
			"reason":       "not the owner",
			"owner_id":     ownerID,
			"requester_id": caller.ID,
		},
	})
	return fmt.Errorf("%w: not the owner of this %s", ErrForbidden, resourceType)
}

func (a *Authorizer) record(ctx context.Context, entry audit.Entry) {
	if a.recorder == nil {
		return
	}
	a.recorder.Record(ctx, entry)
}
