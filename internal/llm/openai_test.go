package llm

import (
	"testing"

	"github.com/checkmesh/arbiter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysis(t *testing.T) {
	raw := `{"sentiment":"positive","keyword_verification_score":4.5,"coherence_score":12.0,"score_accuracy":35.0,"total_analysis_score":51.5,"quality_keyword_score":4.0,"quality_keyword_count":4,"quality_keyword_matches":["excellent","trusted"]}`

	result, err := parseAnalysis(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.SentimentPositive, result.Sentiment)
	assert.Equal(t, 4.5, result.KeywordScore)
	assert.Equal(t, 12.0, result.CoherenceScore)
	assert.Equal(t, 35.0, result.ScoreAccuracy)
	assert.Equal(t, 4, result.QualityKeywordCount)
}

func TestParseAnalysisStripsMarkdownFences(t *testing.T) {
	raw := "```json\n{\"sentiment\":\"negative\",\"score_accuracy\":10}\n```"

	result, err := parseAnalysis(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.SentimentNegative, result.Sentiment)
	assert.Equal(t, 10.0, result.ScoreAccuracy)
}

func TestParseAnalysisInvalidSentimentFallsBackToUnknown(t *testing.T) {
	raw := `{"sentiment":"enthusiastic","score_accuracy":20}`

	result, err := parseAnalysis(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.SentimentUnknown, result.Sentiment)
}

func TestParseAnalysisMalformedJSON(t *testing.T) {
	_, err := parseAnalysis("the product looks great!")
	require.Error(t, err)
}

func TestNewAnalyzerProviders(t *testing.T) {
	_, err := NewAnalyzer("openai", "", nil)
	require.Error(t, err, "openai without a key should fail")

	a, err := NewAnalyzer("mock", "", nil)
	require.NoError(t, err)
	assert.IsType(t, &MockAnalyzer{}, a)

	_, err = NewAnalyzer("oracle", "", nil)
	require.Error(t, err)
}
