package docs

import (
	"context"
	"fmt"
	"strings"
)

// Service applies input rules and delegates persistence to the store.
// Authorization happens in the HTTP layer before these calls.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateInput carries a new document request.
type CreateInput struct {
	Title   string
	Content string
	Status  Status
	Tags    []string
	Public  bool
}

// Create stores a new document owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (*Document, error) {
	title := strings.TrimSpace(in.Title)
	if len(title) < 3 {
		return nil, fmt.Errorf("%w: title must be at least 3 characters", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	status := in.Status
	if status == "" {
		status = StatusDraft
	}
	if !ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}
	doc := &Document{
		Title:   title,
		Content: in.Content,
		OwnerID: ownerID,
		Status:  status,
		Tags:    cleanTags(in.Tags),
		Public:  in.Public,
	}
	if err := s.store.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Get fetches a document and bumps its view counter.
func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	doc, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.IncrementViews(ctx, id); err == nil {
		doc.ViewCount++
	}
	return doc, nil
}

// Find fetches a document without side effects, for pre-flight ownership
// checks.
func (s *Service) Find(ctx context.Context, id string) (*Document, error) {
	return s.store.FindByID(ctx, id)
}

// List returns all documents for admins, otherwise the owner's documents.
func (s *Service) List(ctx context.Context, ownerID string, all bool) ([]*Document, error) {
	if all {
		return s.store.ListAll(ctx)
	}
	return s.store.ListByOwner(ctx, ownerID)
}

// UpdateInput carries a document update; nil fields are left untouched.
type UpdateInput struct {
	Title   *string
	Content *string
	Status  *Status
	Tags    []string
	Public  *bool
}

// Update applies the changes to an existing document.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Document, error) {
	doc, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if len(title) < 3 {
			return nil, fmt.Errorf("%w: title must be at least 3 characters", ErrInvalidInput)
		}
		doc.Title = title
	}
	if in.Content != nil {
		if strings.TrimSpace(*in.Content) == "" {
			return nil, fmt.Errorf("%w: content is required", ErrInvalidInput)
		}
		doc.Content = *in.Content
	}
	if in.Status != nil {
		if !ValidStatus(*in.Status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *in.Status)
		}
		doc.Status = *in.Status
	}
	if in.Tags != nil {
		doc.Tags = cleanTags(in.Tags)
	}
	if in.Public != nil {
		doc.Public = *in.Public
	}
	if err := s.store.Update(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes a document.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func cleanTags(tags []string) []string {
	var out []string
	for _, tag := range tags {
		// Commas separate tags in storage, so they cannot appear inside one.
		tag = strings.TrimSpace(strings.ReplaceAll(tag, ",", " "))
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
