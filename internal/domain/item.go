package domain

import "time"

type ItemStatus string

const (
	ItemStatusDiscovered          ItemStatus = "discovered"
	ItemStatusAwaitingPredictions ItemStatus = "awaiting_predictions"
	ItemStatusResolved            ItemStatus = "resolved"
	ItemStatusRewardEmitted       ItemStatus = "reward_emitted"
)

// Item is one catalog entry under review. TrustScore is the ground-truth
// quality score; zero means the review cycle has not matured yet.
type Item struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	TrustScore         float64   `json:"trust_score"`
	ReviewDone         bool      `json:"review_done"`
	MiningDone         bool      `json:"mining_done"`
	RewardsDistributed bool      `json:"rewards_distributed"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Status derives the lifecycle state from the item's flags. Retirement is
// a row deletion, so a loaded item is never in a retired state.
func (i *Item) Status() ItemStatus {
	switch {
	case i.RewardsDistributed:
		return ItemStatusRewardEmitted
	case i.ReviewDone:
		return ItemStatusResolved
	case i.MiningDone:
		return ItemStatusAwaitingPredictions
	default:
		return ItemStatusDiscovered
	}
}

// Resolved reports whether a real ground-truth score is available.
func (i *Item) Resolved() bool {
	return i.TrustScore != 0
}
