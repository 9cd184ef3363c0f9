// Package catalog talks to the external item-catalog service and
// reconciles its listings against the local store.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/checkmesh/arbiter/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const fetchTimeout = 15 * time.Second

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	items      domain.ItemStore
	logger     *zap.Logger
}

func NewClient(baseURL string, items domain.ItemStore, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: fetchTimeout},
		limiter:    rate.NewLimiter(rate.Limit(2), 4),
		items:      items,
		logger:     logger,
	}
}

// SetRate adjusts the request rate allowed against the catalog API.
func (c *Client) SetRate(rps float64, burst int) {
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

type itemPayload struct {
	ID         string  `json:"_id"`
	Name       string  `json:"name"`
	TrustScore float64 `json:"trustScore"`
}

type listResponse struct {
	Data struct {
		Items []itemPayload `json:"items"`
	} `json:"data"`
}

// FetchDueItems pulls the reviewed and newly published item pages and
// reconciles them with the store: unseen published items are created and
// reported as unmined, reviewed items already tracked become rewardable,
// and tracked items missing from the catalog are retired as orphans.
func (c *Client) FetchDueItems(ctx context.Context) (domain.CatalogResult, error) {
	reviewed, err := c.fetchPage(ctx, "/api/v1/items?page=1&limit=30")
	if err != nil {
		return domain.CatalogResult{}, fmt.Errorf("fetch reviewed items: %w", err)
	}
	published, err := c.fetchPage(ctx, "/api/v1/items?page=1&limit=30&status=published")
	if err != nil {
		return domain.CatalogResult{}, fmt.Errorf("fetch published items: %w", err)
	}

	known, err := c.items.List(ctx)
	if err != nil {
		return domain.CatalogResult{}, fmt.Errorf("list tracked items: %w", err)
	}
	knownIDs := make(map[string]struct{}, len(known))
	for _, item := range known {
		knownIDs[item.ID] = struct{}{}
	}

	var result domain.CatalogResult
	seen := make(map[string]struct{})

	for _, p := range published {
		seen[p.ID] = struct{}{}
		if _, tracked := knownIDs[p.ID]; tracked {
			continue
		}
		item := &domain.Item{ID: p.ID, Name: p.Name}
		if err := c.items.Create(ctx, item); err != nil {
			c.logger.Warn("failed to track new item",
				zap.String("item_id", p.ID), zap.Error(err))
			continue
		}
		result.Unmined = append(result.Unmined, p.ID)
	}

	for _, p := range reviewed {
		seen[p.ID] = struct{}{}
		if _, tracked := knownIDs[p.ID]; !tracked {
			continue
		}
		result.Rewardable = append(result.Rewardable, domain.Item{
			ID:         p.ID,
			Name:       p.Name,
			TrustScore: p.TrustScore,
			ReviewDone: true,
		})
	}

	// Tracked items that vanished from the catalog are dead weight.
	var orphans []string
	for id := range knownIDs {
		if _, present := seen[id]; !present {
			orphans = append(orphans, id)
		}
	}
	if len(orphans) > 0 {
		c.logger.Info("removing orphaned items", zap.Strings("item_ids", orphans))
		if err := c.items.DeleteBulk(ctx, orphans); err != nil {
			c.logger.Warn("failed to remove orphaned items", zap.Error(err))
		}
	}
	result.Orphaned = orphans

	return result, nil
}

func (c *Client) fetchPage(ctx context.Context, path string) ([]itemPayload, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create catalog request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog API returned status %d", resp.StatusCode)
	}

	var parsed listResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}
	return parsed.Data.Items, nil
}

var _ domain.Catalog = (*Client)(nil)
