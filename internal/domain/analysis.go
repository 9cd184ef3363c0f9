package domain

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
	SentimentUnknown  Sentiment = "unknown"
)

func ValidSentiment(s string) bool {
	switch Sentiment(s) {
	case SentimentPositive, SentimentNeutral, SentimentNegative, SentimentUnknown:
		return true
	}
	return false
}

// AnalysisResult is the analyzer's breakdown of one prediction against a
// ground-truth score. Sub-score ranges are declared, not enforced, by the
// analyzer; the scorer clamps them before use.
type AnalysisResult struct {
	Sentiment      Sentiment `json:"sentiment"`
	KeywordScore   float64   `json:"keyword_verification_score"` // 0-5
	CoherenceScore float64   `json:"coherence_score"`            // 0-20
	ScoreAccuracy  float64   `json:"score_accuracy"`             // 0-40
	TotalScore     float64   `json:"total_analysis_score"`

	// Quality-keyword diagnostics, informational only.
	QualityKeywordScore   float64  `json:"quality_keyword_score"`
	QualityKeywordCount   int      `json:"quality_keyword_count"`
	QualityKeywordMatches []string `json:"quality_keyword_matches"`
}

// UnknownAnalysis is the documented all-zero fallback an analyzer returns
// when it cannot produce a real result. It is always structurally valid.
func UnknownAnalysis() AnalysisResult {
	return AnalysisResult{
		Sentiment:             SentimentUnknown,
		QualityKeywordMatches: []string{},
	}
}
