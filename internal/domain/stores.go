package domain

import "context"

type ItemStore interface {
	Create(ctx context.Context, i *Item) error
	GetByID(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context) ([]Item, error)
	ListUnresolved(ctx context.Context) ([]Item, error)
	UpdateStatus(ctx context.Context, id string, reviewDone, miningDone, rewardsDistributed bool) error
	// Delete retires an item and cascades to its predictions.
	Delete(ctx context.Context, id string) error
	DeleteBulk(ctx context.Context, ids []string) error
}

type PredictionStore interface {
	// Upsert inserts or overwrites the prediction keyed by
	// (item_id, agent_id). Idempotent under retries.
	Upsert(ctx context.Context, p *Prediction) error
	ListByItem(ctx context.Context, itemID string) ([]Prediction, error)
}
