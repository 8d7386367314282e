package push

import "context"

// SubscriptionRepository persists push subscriptions. Save upserts on the
// endpoint URL so re-registering from the same browser refreshes the keys
// instead of duplicating the row.
type SubscriptionRepository interface {
	Save(ctx context.Context, s *Subscription) error
	ListByUser(ctx context.Context, userID string) ([]*Subscription, error)
	DeleteByEndpoint(ctx context.Context, userID, endpoint string) error
	// Prune removes a subscription regardless of owner. Used when the push
	// service reports the endpoint gone.
	Prune(ctx context.Context, endpoint string) error
}
