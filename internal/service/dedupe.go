package service

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/checkmesh/arbiter/internal/domain"
	"go.uber.org/zap"
)

// truncateScore truncates v to two decimal places toward zero. Truncation,
// not rounding: 70.009 and 70.001 land in the same group as 70.00.
func truncateScore(v float64) float64 {
	return math.Trunc(v*100) / 100
}

// DuplicateFilter collapses predictions that are numerically identical to
// two-decimal precision, keeping one representative per group chosen
// uniformly at random. Agents who copy another's answer only have a
// chance, not a guarantee, of surviving.
type DuplicateFilter struct {
	mu     sync.Mutex
	rng    *rand.Rand
	logger *zap.Logger
}

func NewDuplicateFilter(logger *zap.Logger) *DuplicateFilter {
	return &DuplicateFilter{
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger,
	}
}

// SetRand replaces the random source. Tests inject a seeded source to make
// representative selection deterministic.
func (f *DuplicateFilter) SetRand(r *rand.Rand) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rng = r
}

type dupEntry struct {
	pred    domain.Prediction
	agentID domain.AgentID
}

// Filter returns the surviving predictions and the parallel list of
// surviving agent IDs, one entry per distinct truncated score. Predictions
// with a nil score or from ineligible agents are dropped. Group first-seen
// order is preserved; empty input yields empty output.
func (f *DuplicateFilter) Filter(preds []domain.Prediction, eligible []domain.AgentID) ([]domain.Prediction, []domain.AgentID) {
	eligibleSet := make(map[domain.AgentID]struct{}, len(eligible))
	for _, id := range eligible {
		eligibleSet[id] = struct{}{}
	}

	groups := make(map[float64][]dupEntry)
	var order []float64

	for _, p := range preds {
		if p.Score == nil {
			continue
		}
		if _, ok := eligibleSet[p.AgentID]; !ok {
			continue
		}
		key := truncateScore(*p.Score)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], dupEntry{pred: p, agentID: p.AgentID})
	}

	survivors := make([]domain.Prediction, 0, len(order))
	survivorIDs := make([]domain.AgentID, 0, len(order))

	for _, key := range order {
		entries := groups[key]
		chosen := entries[0]
		if len(entries) > 1 {
			f.mu.Lock()
			chosen = entries[f.rng.Intn(len(entries))]
			f.mu.Unlock()

			ids := make([]int64, len(entries))
			for i, e := range entries {
				ids[i] = int64(e.agentID)
			}
			f.logger.Info("duplicate prediction group collapsed",
				zap.Float64("score", key),
				zap.Int64s("agents", ids),
				zap.Int64("selected", int64(chosen.agentID)))
		}
		survivors = append(survivors, chosen.pred)
		survivorIDs = append(survivorIDs, chosen.agentID)
	}

	return survivors, survivorIDs
}
