package domain

import (
	"context"
	"time"
)

// Analyzer turns one prediction plus the item's ground-truth score into an
// AnalysisResult. Implementations never surface an error to the caller:
// any internal failure (timeout, malformed response) degrades to
// UnknownAnalysis so every outcome reaches the scorer as data.
type Analyzer interface {
	Analyze(ctx context.Context, p Prediction, actual float64) AnalysisResult
}

// CatalogResult is one round's working set from the catalog service.
type CatalogResult struct {
	// Unmined holds IDs of items still awaiting first predictions.
	Unmined []string
	// Rewardable holds items whose review cycle matured into a
	// ground-truth score this round.
	Rewardable []Item
	// Orphaned holds IDs of items that disappeared from the catalog and
	// were retired during reconciliation.
	Orphaned []string
}

// Catalog fetches the items due for work this round. A failed fetch is
// reported as an error; callers treat it as "nothing to do", never fatal.
type Catalog interface {
	FetchDueItems(ctx context.Context) (CatalogResult, error)
}

// Dispatcher fans a prediction request out to the roster. The returned map
// is keyed by agent ID; each value is aligned to itemIDs order. Agents
// that time out or answer garbage are simply absent from the map.
type Dispatcher interface {
	Dispatch(ctx context.Context, roster []Agent, itemIDs []string, timeout time.Duration) (map[AgentID][]RawPrediction, error)
}

// Registry provides the round's roster snapshot: agent identities,
// endpoints and raw stake. Read-only for the duration of a round.
type Registry interface {
	Roster(ctx context.Context) ([]Agent, error)
}

// Ledger receives the round outcome. Totals may exceed 100 per agent
// (rewards sum across items and the composite score is not re-clamped);
// normalization and persistence of cumulative trust belong to the ledger.
type Ledger interface {
	ApplyRoundRewards(ctx context.Context, rewards []RewardRecord) error
	// CarryForward signals a round with no reward items, asking the
	// ledger to re-emit the previous round's outcome.
	CarryForward(ctx context.Context) error
}
