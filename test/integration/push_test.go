package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/visitregistry/visitregistry/internal/domain/push"
)

func TestSubscriptionUpsertOnEndpoint(t *testing.T) {
	ctx := context.Background()
	truncateAll(t, ctx)
	repo := push.NewSubscriptionRepoPG(globalDB.Pool)

	first := &push.Subscription{
		UserID:   "user-1",
		Endpoint: "https://push.example/a",
		P256dh:   "pk1",
		Auth:     "ak1",
	}
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Re-registering the same endpoint refreshes the keys, keeping one row.
	second := &push.Subscription{
		UserID:   "user-1",
		Endpoint: "https://push.example/a",
		P256dh:   "pk2",
		Auth:     "ak2",
	}
	if err := repo.Save(ctx, second); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert produced a new row: %s vs %s", second.ID, first.ID)
	}

	subs, err := repo.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("got %d subscriptions, want 1", len(subs))
	}
	if subs[0].P256dh != "pk2" || subs[0].Auth != "ak2" {
		t.Fatalf("keys not refreshed: %+v", subs[0])
	}
}

func TestSubscriptionDeleteAndPrune(t *testing.T) {
	ctx := context.Background()
	truncateAll(t, ctx)
	repo := push.NewSubscriptionRepoPG(globalDB.Pool)

	sub := &push.Subscription{
		UserID:   "user-1",
		Endpoint: "https://push.example/a",
		P256dh:   "pk",
		Auth:     "ak",
	}
	if err := repo.Save(ctx, sub); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A different user cannot delete it.
	if err := repo.DeleteByEndpoint(ctx, "user-2", sub.Endpoint); !errors.Is(err, push.ErrNotFound) {
		t.Fatalf("cross-user delete: got %v, want ErrNotFound", err)
	}

	// Prune ignores ownership: the push service said the endpoint is dead.
	if err := repo.Prune(ctx, sub.Endpoint); err != nil {
		t.Fatalf("prune: %v", err)
	}
	subs, err := repo.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 0 {
		t.Fatalf("subscription survived prune: %+v", subs)
	}
}
