// Package docs holds the document resource: the owned entity the ownership
// gate compares against the caller.
package docs

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("docs: document not found")
	ErrInvalidInput = errors.New("docs: invalid input")

	// ErrStoreUnavailable wraps driver-level failures.
	ErrStoreUnavailable = errors.New("docs: store unavailable")
)

// Status is a document's publication state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// ValidStatus reports whether s is a known publication state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Document is an owned resource. OwnerID references an account; Public marks
// it world-readable for listing purposes.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	OwnerID   string    `json:"owner_id"`
	Status    Status    `json:"status"`
	Tags      []string  `json:"tags,omitempty"`
	ViewCount int       `json:"view_count"`
	Public    bool      `json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists documents.
type Store interface {
	Create(ctx context.Context, doc *Document) error
	// FindByID returns ErrNotFound for unknown ids; the caller decides
	// NotFound before any ownership comparison.
	FindByID(ctx context.Context, id string) (*Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Document, error)
	ListAll(ctx context.Context) ([]*Document, error)
	Update(ctx context.Context, doc *Document) error
	Delete(ctx context.Context, id string) error
	// IncrementViews bumps the read counter atomically.
	IncrementViews(ctx context.Context, id string) error
}
