// Package ledger posts round outcomes to the external incentive ledger.
// The ledger owns normalization and persistence of cumulative trust; this
// client only delivers the per-agent totals.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/checkmesh/arbiter/internal/domain"
)

const applyTimeout = 15 * time.Second

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: applyTimeout},
	}
}

func (c *Client) ApplyRoundRewards(ctx context.Context, rewards []domain.RewardRecord) error {
	body, err := json.Marshal(rewards)
	if err != nil {
		return fmt.Errorf("marshal round rewards: %w", err)
	}
	return c.post(ctx, "/v1/rewards", body)
}

func (c *Client) CarryForward(ctx context.Context) error {
	return c.post(ctx, "/v1/rewards/carry-forward", nil)
}

func (c *Client) post(ctx context.Context, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create ledger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ledger request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("ledger returned status %d", resp.StatusCode)
	}
	return nil
}

var _ domain.Ledger = (*Client)(nil)
