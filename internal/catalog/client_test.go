package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/checkmesh/arbiter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeItemStore struct {
	items   map[string]domain.Item
	created []string
	removed []string
}

func newFakeItemStore(ids ...string) *fakeItemStore {
	s := &fakeItemStore{items: make(map[string]domain.Item)}
	for _, id := range ids {
		s.items[id] = domain.Item{ID: id}
	}
	return s
}

func (s *fakeItemStore) Create(ctx context.Context, i *domain.Item) error {
	s.items[i.ID] = *i
	s.created = append(s.created, i.ID)
	return nil
}

func (s *fakeItemStore) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	i, ok := s.items[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &i, nil
}

func (s *fakeItemStore) List(ctx context.Context) ([]domain.Item, error) {
	out := make([]domain.Item, 0, len(s.items))
	for _, i := range s.items {
		out = append(out, i)
	}
	return out, nil
}

func (s *fakeItemStore) ListUnresolved(ctx context.Context) ([]domain.Item, error) {
	return nil, nil
}

func (s *fakeItemStore) UpdateStatus(ctx context.Context, id string, reviewDone, miningDone, rewardsDistributed bool) error {
	return nil
}

func (s *fakeItemStore) Delete(ctx context.Context, id string) error {
	delete(s.items, id)
	s.removed = append(s.removed, id)
	return nil
}

func (s *fakeItemStore) DeleteBulk(ctx context.Context, ids []string) error {
	for _, id := range ids {
		_ = s.Delete(ctx, id)
	}
	return nil
}

var _ domain.ItemStore = (*fakeItemStore)(nil)

func catalogJSON(items ...string) string {
	body := `{"data":{"items":[`
	for i, it := range items {
		if i > 0 {
			body += ","
		}
		body += it
	}
	return body + `]}}`
}

func TestFetchDueItemsReconciles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("status") == "published" {
			fmt.Fprint(w, catalogJSON(
				`{"_id":"item-new","name":"Fresh Product"}`,
				`{"_id":"item-tracked","name":"Known Product"}`,
			))
			return
		}
		// Reviewed page: one tracked and rewardable, one never seen.
		fmt.Fprint(w, catalogJSON(
			`{"_id":"item-tracked","name":"Known Product","trustScore":82.4}`,
			`{"_id":"item-foreign","name":"Untracked Product","trustScore":50}`,
		))
	}))
	defer srv.Close()

	store := newFakeItemStore("item-tracked", "item-stale")
	client := NewClient(srv.URL, store, zap.NewNop())

	result, err := client.FetchDueItems(context.Background())
	require.NoError(t, err)

	// item-new gets tracked and queued for first predictions.
	assert.Equal(t, []string{"item-new"}, result.Unmined)
	assert.Equal(t, []string{"item-new"}, store.created)

	// Only already-tracked reviewed items mature into rewards.
	require.Len(t, result.Rewardable, 1)
	assert.Equal(t, "item-tracked", result.Rewardable[0].ID)
	assert.Equal(t, 82.4, result.Rewardable[0].TrustScore)
	assert.True(t, result.Rewardable[0].ReviewDone)

	// item-stale no longer exists in the catalog and is retired.
	assert.Equal(t, []string{"item-stale"}, result.Orphaned)
	assert.Equal(t, []string{"item-stale"}, store.removed)
}

func TestFetchDueItemsNothingDue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, catalogJSON())
	}))
	defer srv.Close()

	client := NewClient(srv.URL, newFakeItemStore(), zap.NewNop())

	result, err := client.FetchDueItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Unmined)
	assert.Empty(t, result.Rewardable)
	assert.Empty(t, result.Orphaned)
}

func TestFetchDueItemsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, newFakeItemStore(), zap.NewNop())

	_, err := client.FetchDueItems(context.Background())
	require.Error(t, err)
}
