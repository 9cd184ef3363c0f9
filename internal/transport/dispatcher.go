// Package transport delivers prediction requests to miner agents and
// collects whatever they send back, however malformed.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/checkmesh/arbiter/internal/domain"
	"go.uber.org/zap"
)

const (
	minExpectedKeywords = 3
	maxExpectedKeywords = 7
)

// HTTPDispatcher fans one prediction request out to every agent endpoint
// concurrently. Agents that time out, refuse the connection or answer
// garbage simply do not appear in the result map; their absence is a
// diagnostic, never an error.
type HTTPDispatcher struct {
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPDispatcher(logger *zap.Logger) *HTTPDispatcher {
	return &HTTPDispatcher{
		httpClient: &http.Client{},
		logger:     logger,
	}
}

type assessRequest struct {
	Items []string `json:"items"`
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, roster []domain.Agent, itemIDs []string, timeout time.Duration) (map[domain.AgentID][]domain.RawPrediction, error) {
	if len(roster) == 0 || len(itemIDs) == 0 {
		return map[domain.AgentID][]domain.RawPrediction{}, nil
	}

	body, err := json.Marshal(assessRequest{Items: itemIDs})
	if err != nil {
		return nil, fmt.Errorf("marshal assess request: %w", err)
	}

	results := make(map[domain.AgentID][]domain.RawPrediction, len(roster))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, agent := range roster {
		if agent.Endpoint == "" {
			continue
		}
		agent := agent // per-iteration copy; go directive is below 1.22
		wg.Add(1)
		go func() {
			defer wg.Done()
			preds, err := d.query(ctx, agent, body, timeout)
			if err != nil {
				d.logger.Debug("agent did not answer",
					zap.Int64("agent_id", int64(agent.ID)),
					zap.Error(err))
				return
			}
			d.checkKeywordCounts(agent.ID, preds)
			mu.Lock()
			results[agent.ID] = preds
			mu.Unlock()
		}()
	}
	wg.Wait()

	return results, nil
}

func (d *HTTPDispatcher) query(ctx context.Context, agent domain.Agent, body []byte, timeout time.Duration) ([]domain.RawPrediction, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, agent.Endpoint+"/assess", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create assess request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("assess request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read assess response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent returned status %d", resp.StatusCode)
	}

	var preds []domain.RawPrediction
	if err := json.Unmarshal(respBody, &preds); err != nil {
		return nil, fmt.Errorf("decode assess response: %w", err)
	}
	return preds, nil
}

// checkKeywordCounts logs predictions outside the expected 3-7 keyword
// band. Purely diagnostic; these predictions still flow downstream.
func (d *HTTPDispatcher) checkKeywordCounts(agentID domain.AgentID, preds []domain.RawPrediction) {
	for _, p := range preds {
		n := len(p.Keywords)
		if n == 0 {
			continue
		}
		if n < minExpectedKeywords {
			d.logger.Warn("too few keywords",
				zap.Int64("agent_id", int64(agentID)),
				zap.Int("count", n),
				zap.Strings("keywords", p.Keywords))
		} else if n > maxExpectedKeywords {
			d.logger.Warn("too many keywords",
				zap.Int64("agent_id", int64(agentID)),
				zap.Int("count", n),
				zap.Strings("keywords", p.Keywords))
		}
	}
}

var _ domain.Dispatcher = (*HTTPDispatcher)(nil)
