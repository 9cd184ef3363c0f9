package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/checkmesh/arbiter/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// Fraction of survivors retained after outlier trimming.
	keepFraction = 0.9

	defaultScoreConcurrency = 8
)

// Engine aggregates composite scores across all surviving predictions for
// one item and produces the reward vector for the full roster.
type Engine struct {
	scorer      *CompositeScorer
	concurrency int
	logger      *zap.Logger
}

func NewEngine(scorer *CompositeScorer, logger *zap.Logger) *Engine {
	return &Engine{
		scorer:      scorer,
		concurrency: defaultScoreConcurrency,
		logger:      logger,
	}
}

// SetConcurrency bounds the per-item scoring worker pool.
func (e *Engine) SetConcurrency(n int) {
	if n > 0 {
		e.concurrency = n
	}
}

// Rewards scores every survivor concurrently, trims the bottom decile and
// returns one reward per roster slot, in roster order. Roster slots with
// no surviving prediction are exactly 0. A mismatch between survivors and
// survivorIDs is a caller contract breach and the one loud failure here.
//
// When the item's ground truth is still zero the engine skips all scoring
// and hands every responding agent a uniform 100/N so nobody is penalized
// for an item that never reached a real consensus score.
func (e *Engine) Rewards(ctx context.Context, item domain.Item, survivors []domain.Prediction, survivorIDs []domain.AgentID, roster []domain.Agent) ([]float64, error) {
	if len(survivors) != len(survivorIDs) {
		return nil, fmt.Errorf("survivor/agent length mismatch: %d predictions, %d agents", len(survivors), len(survivorIDs))
	}

	rewards := make([]float64, len(roster))
	if len(survivors) == 0 {
		return rewards, nil
	}

	slotOf := make(map[domain.AgentID]int, len(roster))
	stakeOf := make(map[domain.AgentID]float64, len(roster))
	for i, a := range roster {
		slotOf[a.ID] = i
		stakeOf[a.ID] = a.Stake
	}

	if item.TrustScore == 0 {
		uniform := 100.0 / float64(len(survivors))
		for _, id := range survivorIDs {
			if slot, ok := slotOf[id]; ok {
				rewards[slot] = uniform
			}
		}
		e.logger.Info("item unresolved, uniform reward",
			zap.String("item_id", item.ID),
			zap.Float64("reward", uniform),
			zap.Int("agents", len(survivorIDs)))
		return rewards, nil
	}

	results := make([]float64, len(survivors))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i := range survivors {
		i := i // per-iteration copy; go directive is below 1.22
		g.Go(func() error {
			// A failing per-agent computation must not take down its
			// siblings; its slot stays at zero.
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("scoring panicked, agent gets zero",
						zap.String("item_id", item.ID),
						zap.Int64("agent_id", int64(survivorIDs[i])),
						zap.Any("panic", r))
				}
			}()
			results[i] = e.scorer.Score(gctx, &survivors[i], item.TrustScore, StakeWeight(stakeOf[survivorIDs[i]]))
			return nil
		})
	}
	// Workers never return errors; Wait only fences completion.
	_ = g.Wait()

	kept := trimIndices(results)
	for i := range survivors {
		if !kept[i] {
			continue
		}
		if slot, ok := slotOf[survivorIDs[i]]; ok {
			rewards[slot] = results[i]
		}
	}

	return rewards, nil
}

// trimIndices marks the top ceil(keepFraction*n) result indices, dropping
// the bottom decile. Ties at the boundary fall wherever the stable sort
// puts them; that residual non-determinism is accepted.
func trimIndices(results []float64) map[int]bool {
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return results[order[a]] > results[order[b]]
	})

	keepCount := int(math.Ceil(keepFraction * float64(len(results))))
	kept := make(map[int]bool, keepCount)
	for _, idx := range order[:keepCount] {
		kept[idx] = true
	}
	return kept
}
