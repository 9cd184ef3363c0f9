package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/checkmesh/arbiter/internal/domain"
	"go.uber.org/zap"
)

const (
	openAIChatURL  = "https://api.openai.com/v1/chat/completions"
	chatModel      = "gpt-4o-mini"
	analyzeTimeout = 60 * time.Second
)

type OpenAIAnalyzer struct {
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewOpenAIAnalyzer(apiKey string, logger *zap.Logger) *OpenAIAnalyzer {
	return &OpenAIAnalyzer{
		apiKey:     apiKey,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// chat types for OpenAI API
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAIAnalyzer) complete(ctx context.Context, messages []chatMessage, temp float32) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       chatModel,
		Messages:    messages,
		Temperature: temp,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIChatURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal chat response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("chat API error: %s", result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// Analyze runs the full assessment analysis for one prediction in a single
// request. It enforces its own timeout and never returns an error: any
// failure degrades to the all-zero unknown fallback so the scorer always
// receives a structurally valid result.
func (c *OpenAIAnalyzer) Analyze(ctx context.Context, p domain.Prediction, actual float64) domain.AnalysisResult {
	if p.Score == nil || p.Review == nil || len(p.Keywords) == 0 {
		return domain.UnknownAnalysis()
	}

	ctx, cancel := context.WithTimeout(ctx, analyzeTimeout)
	defer cancel()

	prompt := analysisPrompt(*p.Score, *p.Review, p.Keywords, actual)

	raw, err := c.complete(ctx, []chatMessage{
		{Role: "system", Content: "You are an expert at analyzing product quality assessments. Provide comprehensive analysis in JSON format only."},
		{Role: "user", Content: prompt},
	}, 0.3)
	if err != nil {
		c.logger.Warn("analysis request failed",
			zap.String("item_id", p.ItemID),
			zap.Int64("agent_id", int64(p.AgentID)),
			zap.Error(err))
		return domain.UnknownAnalysis()
	}

	result, err := parseAnalysis(raw)
	if err != nil {
		c.logger.Warn("analysis response unparseable",
			zap.String("item_id", p.ItemID),
			zap.Int64("agent_id", int64(p.AgentID)),
			zap.Error(err))
		return domain.UnknownAnalysis()
	}
	return result
}

func analysisPrompt(score float64, review string, keywords []string, actual float64) string {
	return fmt.Sprintf(`Analyze this product assessment and provide comprehensive analysis in JSON format.

**Agent Assessment:**
- Score: %.2f/100
- Review: %s
- Keywords: %s
- Actual Score: %.2f/100

**Analysis Requirements:**

1. **Sentiment Analysis:** Analyze the review text
   - "positive": Optimistic, praising, recommending
   - "negative": Critical, warning, discouraging
   - "neutral": Balanced, factual, objective
   - "unknown": Unclear or mixed sentiment

2. **Keyword Verification (0-5):** Check if keywords are quality-descriptive
   - 5: All keywords are quality-descriptive (excellent, trusted, low-risk, etc.)
   - 3: Mix of quality and technical keywords
   - 1: All technical keywords, no quality indicators
   - 0: Completely inappropriate or irrelevant keywords

3. **Coherence Analysis (0-20):** Check consistency between score, review, and keywords
   - Score-Review Consistency (0-10): Does the review sentiment match the score?
   - Score-Keyword Consistency (0-5): Do keywords match the score level?
   - Review-Keyword Consistency (0-5): Do keywords match the review sentiment?

4. **Score Accuracy (0-40):** How close is the predicted score to actual?
   - 40: Within 2%% of actual score
   - 30: Within 6%% of actual score
   - 20: Within 8%% of actual score
   - 10: Within 10%% of actual score
   - 0: More than 10%% deviation

5. **Quality Keyword Analysis:** Count how many keywords are quality-descriptive
   and rate overall quality (0-5). Technical keywords (blockchain, crypto, defi,
   web3) are NOT quality indicators.

**Response Format (JSON only):**
{
    "sentiment": "positive",
    "keyword_verification_score": 4.5,
    "coherence_score": 12.0,
    "score_accuracy": 35.0,
    "total_analysis_score": 51.5,
    "quality_keyword_score": 4.0,
    "quality_keyword_count": 4,
    "quality_keyword_matches": ["excellent", "trusted", "low-risk", "established"]
}

Respond with ONLY the JSON object, no additional text.`,
		score, review, strings.Join(keywords, ", "), actual)
}

// parseAnalysis decodes the model's JSON reply, tolerating markdown fences.
func parseAnalysis(raw string) (domain.AnalysisResult, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var result domain.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("decode analysis: %w", err)
	}
	if !domain.ValidSentiment(string(result.Sentiment)) {
		result.Sentiment = domain.SentimentUnknown
	}
	if result.QualityKeywordMatches == nil {
		result.QualityKeywordMatches = []string{}
	}
	return result, nil
}

var _ domain.Analyzer = (*OpenAIAnalyzer)(nil)
