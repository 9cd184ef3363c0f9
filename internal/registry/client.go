// Package registry reads the round's agent roster from the external
// stake registry. The roster is a read-only snapshot per round.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/checkmesh/arbiter/internal/domain"
)

const rosterTimeout = 10 * time.Second

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: rosterTimeout},
	}
}

type rosterResponse struct {
	Agents []domain.Agent `json:"agents"`
}

func (c *Client) Roster(ctx context.Context) ([]domain.Agent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/roster", nil)
	if err != nil {
		return nil, fmt.Errorf("create roster request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("roster request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var parsed rosterResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode roster response: %w", err)
	}
	return parsed.Agents, nil
}

var _ domain.Registry = (*Client)(nil)
