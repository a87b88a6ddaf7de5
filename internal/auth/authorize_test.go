package auth

import (
	"context"
	"errors"
	"testing"

	"docuvault.org/internal/audit"
)

func TestAuthorizeRoleGate(t *testing.T) {
	trail := audit.NewMemoryStore()
	authz := NewAuthorizer(audit.NewRecorder(trail))
	ctx := context.Background()

	admin := Principal{ID: "a1", Username: "admin", Role: RoleAdmin}
	user := Principal{ID: "u1", Username: "johndoe", Role: RoleUser}
	adminOnly := Roles(RoleAdmin)

	if err := authz.Authorize(ctx, adminOnly, admin, "/v1/admin/users"); err != nil {
		t.Fatalf("admin denied: %v", err)
	}
	err := authz.Authorize(ctx, adminOnly, user, "/v1/admin/users")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("user allowed: got %v, want ErrForbidden", err)
	}

	entries, _ := trail.List(ctx, audit.Filter{Action: audit.ActionAccessDenied})
	if len(entries) != 1 {
		t.Fatalf("denied entries = %d, want 1 (allow paths are not audited)", len(entries))
	}
	entry := entries[0]
	if entry.Outcome != audit.OutcomeWarning {
		t.Fatalf("outcome = %s", entry.Outcome)
	}
	if entry.ActorID != "u1" {
		t.Fatalf("actor = %q", entry.ActorID)
	}
	if entry.Details["caller_role"] != "user" || entry.Details["path"] != "/v1/admin/users" {
		t.Fatalf("details = %v", entry.Details)
	}
}

func TestAuthorizeMultiRoleGate(t *testing.T) {
	authz := NewAuthorizer(nil)
	ctx := context.Background()
	gate := Roles(RoleAdmin, RoleModerator)

	if err := authz.Authorize(ctx, gate, Principal{Role: RoleModerator}, "/x"); err != nil {
		t.Fatalf("moderator denied: %v", err)
	}
	if err := authz.Authorize(ctx, gate, Principal{Role: RoleUser}, "/x"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("user allowed: %v", err)
	}
}

func TestAuthorizeOwnership(t *testing.T) {
	trail := audit.NewMemoryStore()
	authz := NewAuthorizer(audit.NewRecorder(trail))
	ctx := context.Background()

	owner := Principal{ID: "u1", Username: "johndoe", Role: RoleUser}
	other := Principal{ID: "u2", Username: "janedoe", Role: RoleUser}
	admin := Principal{ID: "a1", Username: "admin", Role: RoleAdmin}

	if err := authz.AuthorizeOwnership(ctx, "document", "d1", "u1", owner); err != nil {
		t.Fatalf("owner denied: %v", err)
	}
	// Admins bypass ownership entirely.
	if err := authz.AuthorizeOwnership(ctx, "document", "d1", "u1", admin); err != nil {
		t.Fatalf("admin denied: %v", err)
	}

	err := authz.AuthorizeOwnership(ctx, "document", "d1", "u1", other)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-owner allowed: got %v, want ErrForbidden", err)
	}

	entries, _ := trail.List(ctx, audit.Filter{Action: audit.ActionAccessDenied})
	if len(entries) != 1 {
		t.Fatalf("denied entries = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry.ResourceID != "d1" || entry.ResourceType != "document" {
		t.Fatalf("resource = %s/%s", entry.ResourceType, entry.ResourceID)
	}
	if entry.Details["reason"] != "not the owner" {
		t.Fatalf("details = %v", entry.Details)
	}
	if entry.Details["owner_id"] != "u1" || entry.Details["requester_id"] != "u2" {
		t.Fatalf("details = %v", entry.Details)
	}
}
