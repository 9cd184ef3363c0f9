package service

import (
	"context"
	"math"

	"github.com/checkmesh/arbiter/internal/domain"
	"go.uber.org/zap"
)

const (
	// Predictions deviating more than this percentage from the
	// ground-truth score earn nothing at all.
	deviationGatePct = 10.0

	sentimentBonus = 20.0
	sentimentFloor = 5.0

	maxKeywordScore   = 5.0
	maxCoherenceScore = 20.0
	maxAccuracyScore  = 40.0

	stakeScoreWeight = 15.0

	// Stake normalization thresholds in raw ledger units.
	maxStake = 2000.0
	minStake = 500.0
)

// StakeWeight min-max normalizes a raw stake into [0,1]. Stakes at or
// above maxStake saturate at 1; the interpolation may go negative below
// minStake, which only shrinks the stake sub-score, never the rest.
func StakeWeight(stake float64) float64 {
	if stake >= maxStake {
		return 1.0
	}
	if maxStake == minStake {
		return 1.0
	}
	return (stake - minStake) / (maxStake - minStake)
}

// DeviationPct returns the percentage deviation of prediction from actual.
// Zero when actual is zero: an unresolved ground truth carries no penalty.
func DeviationPct(prediction, actual float64) float64 {
	if actual == 0 {
		return 0.0
	}
	return math.Abs((prediction-actual)/actual) * 100
}

// CompositeScorer blends accuracy, sentiment, keyword, coherence and stake
// sub-scores into one reward value for a single prediction.
type CompositeScorer struct {
	analyzer domain.Analyzer
	logger   *zap.Logger
}

func NewCompositeScorer(analyzer domain.Analyzer, logger *zap.Logger) *CompositeScorer {
	return &CompositeScorer{analyzer: analyzer, logger: logger}
}

// Score returns the composite reward for one prediction against the item's
// ground-truth score. Structurally invalid predictions and predictions past
// the deviation gate earn exactly 0; neither is an error. The result is not
// re-clamped to 100; the downstream ledger owns normalization.
func (s *CompositeScorer) Score(ctx context.Context, p *domain.Prediction, actual, stakeWeight float64) float64 {
	if p == nil || p.Score == nil {
		s.logger.Warn("invalid prediction, scoring zero",
			zap.Bool("missing_score", p != nil))
		return 0.0
	}

	if DeviationPct(*p.Score, actual) > deviationGatePct {
		s.logger.Warn("prediction deviates too much from actual",
			zap.Float64("prediction", *p.Score),
			zap.Float64("actual", actual),
			zap.Int64("agent_id", int64(p.AgentID)))
		return 0.0
	}

	analysis := s.analyzer.Analyze(ctx, *p, actual)

	sentimentScore := sentimentFloor
	if analysis.Sentiment != domain.SentimentUnknown {
		sentimentScore = sentimentBonus
	}

	keywordScore := clamp(analysis.KeywordScore, 0, maxKeywordScore)
	coherenceScore := clamp(analysis.CoherenceScore, 0, maxCoherenceScore)
	accuracyScore := clamp(analysis.ScoreAccuracy, 0, maxAccuracyScore)

	// Record the analysis on the prediction so the caller can persist it.
	sentiment := string(analysis.Sentiment)
	p.Sentiment = &sentiment
	p.KeywordScore = &keywordScore
	p.CoherenceScore = &coherenceScore

	// The sum is capped only by the individual clamps, never re-capped
	// as a whole.
	perfScore := accuracyScore + sentimentScore + keywordScore + coherenceScore

	return perfScore + stakeScoreWeight*stakeWeight
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
