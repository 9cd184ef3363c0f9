package service

import (
	"math/rand"
	"testing"

	"github.com/checkmesh/arbiter/internal/domain"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func fptr(v float64) *float64 {
	return &v
}

func sptr(s string) *string {
	return &s
}

func pred(itemID string, agentID domain.AgentID, score float64) domain.Prediction {
	return domain.Prediction{
		ItemID:   itemID,
		AgentID:  agentID,
		Score:    fptr(score),
		Review:   sptr("solid project with a credible team"),
		Keywords: []string{"trusted", "established", "low-risk"},
	}
}

func TestTruncateScore(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{70.0, 70.0},
		{70.001, 70.0},
		{70.009, 70.0},
		{40.0, 40.0},
		{0.0, 0.0},
	}
	for _, tt := range tests {
		if got := truncateScore(tt.in); got != tt.want {
			t.Fatalf("truncateScore(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFilterCollapsesTwoDecimalGroups(t *testing.T) {
	f := NewDuplicateFilter(testLogger())
	eligible := []domain.AgentID{1, 2, 3}

	preds := []domain.Prediction{
		pred("item-1", 1, 70.00),
		pred("item-1", 2, 70.001), // truncates into the 70.00 group
		pred("item-1", 3, 40.00),
	}

	survivors, ids := f.Filter(preds, eligible)
	if len(survivors) != 2 || len(ids) != 2 {
		t.Fatalf("expected 2 survivors, got %d predictions / %d ids", len(survivors), len(ids))
	}
	if ids[0] != 1 && ids[0] != 2 {
		t.Fatalf("first survivor should come from the 70.00 group, got agent %d", ids[0])
	}
	if ids[1] != 3 {
		t.Fatalf("second survivor should be agent 3, got %d", ids[1])
	}
}

func TestFilterTruncatesNotRounds(t *testing.T) {
	f := NewDuplicateFilter(testLogger())

	// 70.009 truncates down to 70.00; rounding would give 70.01 and a
	// separate group.
	preds := []domain.Prediction{
		pred("item-1", 1, 70.00),
		pred("item-1", 2, 70.009),
	}

	survivors, _ := f.Filter(preds, []domain.AgentID{1, 2})
	if len(survivors) != 1 {
		t.Fatalf("expected 1 survivor from a single truncated group, got %d", len(survivors))
	}
}

func TestFilterIdempotentOnDedupedInput(t *testing.T) {
	f := NewDuplicateFilter(testLogger())
	eligible := []domain.AgentID{1, 2, 3, 4}

	preds := []domain.Prediction{
		pred("item-1", 1, 81.25),
		pred("item-1", 2, 81.25),
		pred("item-1", 3, 64.5),
		pred("item-1", 4, 90.01),
	}

	first, firstIDs := f.Filter(preds, eligible)
	second, secondIDs := f.Filter(first, firstIDs)

	if len(second) != len(first) {
		t.Fatalf("re-filtering changed survivor count: %d -> %d", len(first), len(second))
	}
	for i := range firstIDs {
		if firstIDs[i] != secondIDs[i] {
			t.Fatalf("re-filtering changed survivor %d: %d -> %d", i, firstIDs[i], secondIDs[i])
		}
	}
}

func TestFilterDropsNilScoresAndIneligibleAgents(t *testing.T) {
	f := NewDuplicateFilter(testLogger())

	noScore := pred("item-1", 2, 0)
	noScore.Score = nil

	preds := []domain.Prediction{
		pred("item-1", 1, 55.5),
		noScore,
		pred("item-1", 99, 60.0), // not in the eligible set
	}

	survivors, ids := f.Filter(preds, []domain.AgentID{1, 2})
	if len(survivors) != 1 {
		t.Fatalf("expected 1 survivor, got %d", len(survivors))
	}
	if ids[0] != 1 {
		t.Fatalf("expected agent 1 to survive, got %d", ids[0])
	}
}

func TestFilterEmptyInput(t *testing.T) {
	f := NewDuplicateFilter(testLogger())

	survivors, ids := f.Filter(nil, []domain.AgentID{1, 2})
	if len(survivors) != 0 || len(ids) != 0 {
		t.Fatalf("expected empty output for empty input, got %d/%d", len(survivors), len(ids))
	}
}

func TestFilterSurvivorsNeverExceedDistinctScores(t *testing.T) {
	f := NewDuplicateFilter(testLogger())
	eligible := []domain.AgentID{1, 2, 3, 4, 5, 6}

	preds := []domain.Prediction{
		pred("item-1", 1, 70.00),
		pred("item-1", 2, 70.00),
		pred("item-1", 3, 70.001),
		pred("item-1", 4, 80.5),
		pred("item-1", 5, 80.5),
		pred("item-1", 6, 12.34),
	}

	survivors, _ := f.Filter(preds, eligible)
	// Distinct truncated values: 70.00, 80.50, 12.34
	if len(survivors) > 3 {
		t.Fatalf("survivor count %d exceeds distinct truncated scores 3", len(survivors))
	}
}

func TestFilterDeterministicWithSeededRand(t *testing.T) {
	eligible := []domain.AgentID{1, 2, 3}
	preds := []domain.Prediction{
		pred("item-1", 1, 70.00),
		pred("item-1", 2, 70.00),
		pred("item-1", 3, 70.00),
	}

	f1 := NewDuplicateFilter(testLogger())
	f1.SetRand(rand.New(rand.NewSource(42)))
	_, first := f1.Filter(preds, eligible)

	f2 := NewDuplicateFilter(testLogger())
	f2.SetRand(rand.New(rand.NewSource(42)))
	_, second := f2.Filter(preds, eligible)

	if first[0] != second[0] {
		t.Fatalf("same seed selected different representatives: %d vs %d", first[0], second[0])
	}
}
