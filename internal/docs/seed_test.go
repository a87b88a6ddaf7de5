package docs

import (
	"context"
	"testing"
)

func TestSeedDocumentsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := SeedDocuments(ctx, store, "owner-1"); err != nil {
		t.Fatalf("SeedDocuments: %v", err)
	}
	first, err := store.ListByOwner(ctx, "owner-1")
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("seeded %d documents, want 2", len(first))
	}

	if err := SeedDocuments(ctx, store, "owner-1"); err != nil {
		t.Fatalf("second SeedDocuments: %v", err)
	}
	again, err := store.ListByOwner(ctx, "owner-1")
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(again) != len(first) {
		t.Fatalf("reseeding changed count from %d to %d", len(first), len(again))
	}
}
