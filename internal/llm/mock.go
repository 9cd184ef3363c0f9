package llm

import (
	"context"

	"github.com/checkmesh/arbiter/internal/domain"
)

// MockAnalyzer is a configurable analyzer for testing.
// Set Response to control what Analyze returns.
type MockAnalyzer struct {
	Response domain.AnalysisResult

	// Call tracking for assertions
	AnalyzeCalls []struct {
		Prediction domain.Prediction
		Actual     float64
	}
}

func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{
		Response: domain.AnalysisResult{
			Sentiment:             domain.SentimentPositive,
			KeywordScore:          4,
			CoherenceScore:        15,
			ScoreAccuracy:         35,
			TotalScore:            54,
			QualityKeywordScore:   4,
			QualityKeywordCount:   4,
			QualityKeywordMatches: []string{"trusted", "established"},
		},
	}
}

func (m *MockAnalyzer) Analyze(ctx context.Context, p domain.Prediction, actual float64) domain.AnalysisResult {
	m.AnalyzeCalls = append(m.AnalyzeCalls, struct {
		Prediction domain.Prediction
		Actual     float64
	}{p, actual})
	return m.Response
}

// Reset clears recorded calls and restores the default response.
func (m *MockAnalyzer) Reset() {
	*m = *NewMockAnalyzer()
}

var _ domain.Analyzer = (*MockAnalyzer)(nil)
