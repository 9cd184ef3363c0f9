package service

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/checkmesh/arbiter/internal/domain"
)

const defaultCacheSize = 256

// predictionCache is a bounded per-round cache of stored predictions,
// keyed by item ID. It is owned by the orchestrator and purged at the
// start of every round so entries never leak across rounds.
type predictionCache struct {
	c *lru.Cache[string, []domain.Prediction]
}

func newPredictionCache(size int) (*predictionCache, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	c, err := lru.New[string, []domain.Prediction](size)
	if err != nil {
		return nil, err
	}
	return &predictionCache{c: c}, nil
}

func (pc *predictionCache) Get(itemID string) ([]domain.Prediction, bool) {
	return pc.c.Get(itemID)
}

func (pc *predictionCache) Add(itemID string, preds []domain.Prediction) {
	pc.c.Add(itemID, preds)
}

func (pc *predictionCache) Purge() {
	pc.c.Purge()
}
