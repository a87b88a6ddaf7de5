package docs

import "context"

// SeedDocuments creates a small starter set owned by ownerID on a fresh
// installation. Skipped when the owner already has documents.
func SeedDocuments(ctx context.Context, store Store, ownerID string) error {
	existing, err := store.ListByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	seeds := []*Document{
		{
			Title:   "Welcome to DocuVault",
			Content: "Getting started: create documents, tag them, and publish when ready.",
			OwnerID: ownerID,
			Status:  StatusPublished,
			Tags:    []string{"welcome", "guide"},
			Public:  true,
		},
		{
			Title:   "Draft Notes",
			Content: "Drafts are private to their owner until published.",
			OwnerID: ownerID,
			Status:  StatusDraft,
			Tags:    []string{"notes"},
		},
	}
	for _, doc := range seeds {
		if err := store.Create(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}
