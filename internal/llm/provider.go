package llm

import (
	"fmt"

	"github.com/checkmesh/arbiter/internal/domain"
	"go.uber.org/zap"
)

// Provider constants
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// NewAnalyzer creates an assessment analyzer based on the provider name.
// Returns an error if the provider is unknown or the API key is empty
// (except for mock).
func NewAnalyzer(provider, apiKey string, logger *zap.Logger) (domain.Analyzer, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider")
		}
		return NewOpenAIAnalyzer(apiKey, logger), nil

	case ProviderMock:
		return NewMockAnalyzer(), nil

	default:
		return nil, fmt.Errorf("unknown analyzer provider: %s (valid options: openai, mock)", provider)
	}
}
