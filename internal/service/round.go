package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/checkmesh/arbiter/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRoundInterval   = 25 * time.Minute
	defaultDispatchTimeout = 25 * time.Second

	// Items within one round are scored with this much parallelism.
	itemConcurrency = 4
)

// RoundSummary records the outcome of one validation round for operators.
type RoundSummary struct {
	RoundID        uuid.UUID             `json:"round_id"`
	StartedAt      time.Time             `json:"started_at"`
	FinishedAt     time.Time             `json:"finished_at"`
	ItemsScored    int                   `json:"items_scored"`
	ItemsSkipped   int                   `json:"items_skipped"`
	ItemsDispatch  int                   `json:"items_dispatched"`
	CarriedForward bool                  `json:"carried_forward"`
	Rewards        []domain.RewardRecord `json:"rewards"`
}

// Orchestrator drives validation rounds: it pulls due items from the
// catalog, dispatches prediction requests for unmined items, aggregates
// rewards for resolved items and hands the round outcome to the ledger.
type Orchestrator struct {
	catalog     domain.Catalog
	dispatcher  domain.Dispatcher
	registry    domain.Registry
	ledger      domain.Ledger
	items       domain.ItemStore
	predictions domain.PredictionStore

	filter *DuplicateFilter
	engine *Engine
	cache  *predictionCache
	logger *zap.Logger

	interval        time.Duration
	dispatchTimeout time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup

	mu        sync.RWMutex
	lastRound *RoundSummary
}

func NewOrchestrator(
	catalog domain.Catalog,
	dispatcher domain.Dispatcher,
	registry domain.Registry,
	ledger domain.Ledger,
	items domain.ItemStore,
	predictions domain.PredictionStore,
	filter *DuplicateFilter,
	engine *Engine,
	logger *zap.Logger,
) *Orchestrator {
	cache, _ := newPredictionCache(defaultCacheSize)
	return &Orchestrator{
		catalog:         catalog,
		dispatcher:      dispatcher,
		registry:        registry,
		ledger:          ledger,
		items:           items,
		predictions:     predictions,
		filter:          filter,
		engine:          engine,
		cache:           cache,
		logger:          logger,
		interval:        defaultRoundInterval,
		dispatchTimeout: defaultDispatchTimeout,
		stopCh:          make(chan struct{}),
	}
}

func (o *Orchestrator) SetInterval(d time.Duration) {
	o.interval = d
}

func (o *Orchestrator) SetDispatchTimeout(d time.Duration) {
	o.dispatchTimeout = d
}

func (o *Orchestrator) SetCacheSize(n int) {
	if cache, err := newPredictionCache(n); err == nil {
		o.cache = cache
	}
}

// Start runs rounds on a periodic schedule in a background goroutine.
func (o *Orchestrator) Start() {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(o.interval)
		defer ticker.Stop()

		o.logger.Info("round orchestrator started", zap.Duration("interval", o.interval))

		for {
			select {
			case <-ticker.C:
				if _, err := o.RunRound(context.Background()); err != nil {
					o.logger.Error("round failed", zap.Error(err))
				}
			case <-o.stopCh:
				o.logger.Info("round orchestrator stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the orchestrator.
func (o *Orchestrator) Stop() {
	close(o.stopCh)
	o.wg.Wait()
}

// LastRound returns the most recent round summary, or nil before the
// first round completes.
func (o *Orchestrator) LastRound() *RoundSummary {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastRound
}

// RunRound executes one full validation round. External failures (catalog,
// registry, dispatcher, ledger, store) are contained and degrade to empty
// work or a carry-forward signal; the returned error is reserved for
// caller contract breaches inside aggregation.
func (o *Orchestrator) RunRound(ctx context.Context) (*RoundSummary, error) {
	summary := &RoundSummary{
		RoundID:   uuid.New(),
		StartedAt: time.Now(),
	}

	// Stale entries must not survive into a new round.
	o.cache.Purge()

	roster, err := o.registry.Roster(ctx)
	if err != nil {
		o.logger.Warn("roster unavailable, skipping round", zap.Error(err))
		roster = nil
	}

	due, err := o.catalog.FetchDueItems(ctx)
	if err != nil {
		o.logger.Warn("catalog fetch failed, nothing to do this round", zap.Error(err))
		due = domain.CatalogResult{}
	}

	o.dispatchUnmined(ctx, summary, roster, due)

	if len(due.Rewardable) == 0 {
		o.logger.Info("no reward items this round, carrying forward previous outcome",
			zap.String("round_id", summary.RoundID.String()))
		if err := o.ledger.CarryForward(ctx); err != nil {
			o.logger.Error("ledger carry-forward failed", zap.Error(err))
		}
		summary.CarriedForward = true
		return o.finishRound(summary), nil
	}

	totals, err := o.scoreRewardItems(ctx, summary, roster, due.Rewardable)
	if err != nil {
		return nil, err
	}

	// Agents with a zero running total are omitted, not reported as zero.
	for id, total := range totals {
		if total > 0 {
			summary.Rewards = append(summary.Rewards, domain.RewardRecord{AgentID: id, Reward: total})
		}
	}
	sort.Slice(summary.Rewards, func(a, b int) bool {
		return summary.Rewards[a].AgentID < summary.Rewards[b].AgentID
	})

	if err := o.ledger.ApplyRoundRewards(ctx, summary.Rewards); err != nil {
		o.logger.Error("ledger rejected round rewards", zap.Error(err))
	}

	// Rewarded items retire whether or not anyone got paid.
	for _, item := range due.Rewardable {
		o.retireItem(ctx, item.ID)
	}

	return o.finishRound(summary), nil
}

// dispatchUnmined sends prediction requests for items still awaiting first
// predictions and persists every usable response. Items already being
// rewarded this round are never overwritten.
func (o *Orchestrator) dispatchUnmined(ctx context.Context, summary *RoundSummary, roster []domain.Agent, due domain.CatalogResult) {
	queries := due.Unmined
	if len(queries) == 0 {
		unresolved, err := o.items.ListUnresolved(ctx)
		if err != nil {
			o.logger.Warn("failed to list unresolved items", zap.Error(err))
		}
		for _, item := range unresolved {
			queries = append(queries, item.ID)
		}
	}
	if len(queries) == 0 || len(roster) == 0 {
		return
	}

	rewardSet := make(map[string]struct{}, len(due.Rewardable))
	for _, item := range due.Rewardable {
		rewardSet[item.ID] = struct{}{}
	}

	responses, err := o.dispatcher.Dispatch(ctx, roster, queries, o.dispatchTimeout)
	if err != nil {
		o.logger.Warn("prediction dispatch failed", zap.Error(err))
		return
	}
	summary.ItemsDispatch = len(queries)

	for agentID, preds := range responses {
		for i, raw := range preds {
			if i >= len(queries) {
				break
			}
			itemID := queries[i]
			if _, rewarding := rewardSet[itemID]; rewarding {
				continue
			}
			p := &domain.Prediction{
				ItemID:   itemID,
				AgentID:  agentID,
				Score:    raw.Score,
				Review:   raw.Review,
				Keywords: raw.Keywords,
			}
			if err := o.predictions.Upsert(ctx, p); err != nil {
				o.logger.Warn("failed to store prediction",
					zap.String("item_id", itemID),
					zap.Int64("agent_id", int64(agentID)),
					zap.Error(err))
			}
		}
	}

	for _, itemID := range queries {
		if err := o.items.UpdateStatus(ctx, itemID, false, true, false); err != nil {
			o.logger.Debug("failed to mark item mined",
				zap.String("item_id", itemID), zap.Error(err))
		}
	}
}

// scoreRewardItems aggregates rewards for every resolved item and sums
// them into one running total per agent. Any failure confined to a single
// item is logged and that item skipped; only an aggregation contract
// breach aborts the round.
func (o *Orchestrator) scoreRewardItems(ctx context.Context, summary *RoundSummary, roster []domain.Agent, rewardable []domain.Item) (map[domain.AgentID]float64, error) {
	rosterIDs := make([]domain.AgentID, len(roster))
	for i, a := range roster {
		rosterIDs[i] = a.ID
	}

	totals := make(map[domain.AgentID]float64, len(roster))
	var totalsMu sync.Mutex
	var skipped int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(itemConcurrency)

	for _, item := range rewardable {
		item := item // per-iteration copy; go directive is below 1.22
		g.Go(func() error {
			vec, err := o.scoreItem(gctx, item, roster, rosterIDs)
			if err != nil {
				return err
			}
			totalsMu.Lock()
			defer totalsMu.Unlock()
			if vec == nil {
				skipped++
				return nil
			}
			for i, r := range vec {
				if r != 0 {
					totals[rosterIDs[i]] += r
				}
			}
			summary.ItemsScored++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reward aggregation: %w", err)
	}
	summary.ItemsSkipped = skipped
	return totals, nil
}

// scoreItem produces the roster-aligned reward vector for one item, or
// (nil, nil) when the item has nothing to score. Store failures are
// contained here; only an engine contract breach propagates.
func (o *Orchestrator) scoreItem(ctx context.Context, item domain.Item, roster []domain.Agent, rosterIDs []domain.AgentID) ([]float64, error) {
	preds, ok := o.cache.Get(item.ID)
	if !ok {
		var err error
		preds, err = o.predictions.ListByItem(ctx, item.ID)
		if err != nil {
			o.logger.Warn("failed to load predictions, skipping item",
				zap.String("item_id", item.ID), zap.Error(err))
			return nil, nil
		}
		o.cache.Add(item.ID, preds)
	}
	if len(preds) == 0 {
		o.logger.Info("no stored predictions for item", zap.String("item_id", item.ID))
		return nil, nil
	}

	survivors, survivorIDs := o.filter.Filter(preds, rosterIDs)
	if len(survivorIDs) == 0 {
		o.logger.Warn("no valid predictions after duplicate filtering",
			zap.String("item_id", item.ID))
		return nil, nil
	}

	vec, err := o.engine.Rewards(ctx, item, survivors, survivorIDs, roster)
	if err != nil {
		return nil, err
	}

	o.logger.Info("item scored",
		zap.String("item_id", item.ID),
		zap.String("item_name", item.Name),
		zap.Float64("trust_score", item.TrustScore),
		zap.Int("survivors", len(survivorIDs)))

	// Write the computed rewards and the analysis metadata the scorer
	// recorded back onto the surviving prediction rows.
	slotOf := make(map[domain.AgentID]int, len(roster))
	for i, a := range roster {
		slotOf[a.ID] = i
	}
	for i, id := range survivorIDs {
		slot, present := slotOf[id]
		if !present {
			continue
		}
		survivors[i].TotalReward = &vec[slot]
		if err := o.predictions.Upsert(ctx, &survivors[i]); err != nil {
			o.logger.Warn("failed to persist reward",
				zap.String("item_id", item.ID),
				zap.Int64("agent_id", int64(id)),
				zap.Error(err))
		}
	}

	return vec, nil
}

// retireItem marks the item's reward as emitted, then removes it. Both
// steps are idempotent; failures are diagnostics only.
func (o *Orchestrator) retireItem(ctx context.Context, itemID string) {
	if err := o.items.UpdateStatus(ctx, itemID, true, true, true); err != nil {
		o.logger.Debug("failed to mark rewards distributed",
			zap.String("item_id", itemID), zap.Error(err))
	}
	if err := o.items.Delete(ctx, itemID); err != nil {
		o.logger.Warn("failed to retire item",
			zap.String("item_id", itemID), zap.Error(err))
	}
}

func (o *Orchestrator) finishRound(summary *RoundSummary) *RoundSummary {
	summary.FinishedAt = time.Now()
	o.mu.Lock()
	o.lastRound = summary
	o.mu.Unlock()

	o.logger.Info("round finished",
		zap.String("round_id", summary.RoundID.String()),
		zap.Int("items_scored", summary.ItemsScored),
		zap.Int("items_skipped", summary.ItemsSkipped),
		zap.Int("agents_paid", len(summary.Rewards)),
		zap.Bool("carried_forward", summary.CarriedForward),
		zap.Duration("took", summary.FinishedAt.Sub(summary.StartedAt)))

	return summary
}
