package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/checkmesh/arbiter/internal/domain"
	"github.com/checkmesh/arbiter/internal/service"
	"github.com/checkmesh/arbiter/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubItemStore struct {
	items []domain.Item
}

func (s *stubItemStore) Create(ctx context.Context, i *domain.Item) error { return nil }

func (s *stubItemStore) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	for _, i := range s.items {
		if i.ID == id {
			return &i, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *stubItemStore) List(ctx context.Context) ([]domain.Item, error) { return s.items, nil }

func (s *stubItemStore) ListUnresolved(ctx context.Context) ([]domain.Item, error) { return nil, nil }

func (s *stubItemStore) UpdateStatus(ctx context.Context, id string, reviewDone, miningDone, rewardsDistributed bool) error {
	return nil
}

func (s *stubItemStore) Delete(ctx context.Context, id string) error        { return nil }
func (s *stubItemStore) DeleteBulk(ctx context.Context, ids []string) error { return nil }

type stubPredictionStore struct {
	preds []domain.Prediction
}

func (s *stubPredictionStore) Upsert(ctx context.Context, p *domain.Prediction) error { return nil }

func (s *stubPredictionStore) ListByItem(ctx context.Context, itemID string) ([]domain.Prediction, error) {
	return s.preds, nil
}

var (
	_ domain.ItemStore       = (*stubItemStore)(nil)
	_ domain.PredictionStore = (*stubPredictionStore)(nil)
)

func newTestApp(items *stubItemStore, preds *stubPredictionStore) *App {
	logger := zap.NewNop()
	orch := service.NewOrchestrator(nil, nil, nil, nil, items, preds,
		service.NewDuplicateFilter(logger),
		service.NewEngine(nil, logger),
		logger)
	return NewApp(orch, items, preds, logger)
}

func get(t *testing.T, app *App, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(&stubItemStore{}, &stubPredictionStore{})

	rec := get(t, app, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestLatestRoundBeforeFirstRound(t *testing.T) {
	app := newTestApp(&stubItemStore{}, &stubPredictionStore{})

	rec := get(t, app, "/v1/rounds/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListItems(t *testing.T) {
	items := &stubItemStore{items: []domain.Item{
		{ID: "item-1", Name: "Product One", TrustScore: 82},
	}}
	app := newTestApp(items, &stubPredictionStore{})

	rec := get(t, app, "/v1/items")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []domain.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "item-1", got[0].ID)
}

func TestItemPredictionsNotFound(t *testing.T) {
	app := newTestApp(&stubItemStore{}, &stubPredictionStore{})

	rec := get(t, app, "/v1/items/nope/predictions")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestItemPredictions(t *testing.T) {
	score := 81.5
	items := &stubItemStore{items: []domain.Item{{ID: "item-1"}}}
	preds := &stubPredictionStore{preds: []domain.Prediction{
		{ItemID: "item-1", AgentID: 7, Score: &score},
	}}
	app := newTestApp(items, preds)

	rec := get(t, app, "/v1/items/item-1/predictions")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []domain.Prediction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, domain.AgentID(7), got[0].AgentID)
}
