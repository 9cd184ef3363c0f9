package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/checkmesh/arbiter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func agentServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestDispatchCollectsOnlyUsableAnswers(t *testing.T) {
	score := 72.5
	review := "credible roadmap"

	good := agentServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/assess", r.URL.Path)

		var req assessRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"item-1", "item-2"}, req.Items)

		_ = json.NewEncoder(w).Encode([]domain.RawPrediction{
			{Score: &score, Review: &review, Keywords: []string{"audited", "active", "liquid"}},
			{Score: &score},
		})
	})
	garbage := agentServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	})
	failing := agentServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	slow := agentServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte("[]"))
	})

	roster := []domain.Agent{
		{ID: 1, Endpoint: good.URL},
		{ID: 2, Endpoint: garbage.URL},
		{ID: 3, Endpoint: failing.URL},
		{ID: 4, Endpoint: slow.URL},
		{ID: 5}, // never registered an endpoint
	}

	d := NewHTTPDispatcher(zap.NewNop())
	results, err := d.Dispatch(context.Background(), roster, []string{"item-1", "item-2"}, 100*time.Millisecond)
	require.NoError(t, err)

	require.Len(t, results, 1, "only the well-behaved agent answers")
	preds := results[domain.AgentID(1)]
	require.Len(t, preds, 2)
	require.NotNil(t, preds[0].Score)
	assert.Equal(t, 72.5, *preds[0].Score)
	assert.Equal(t, []string{"audited", "active", "liquid"}, preds[0].Keywords)
	assert.Nil(t, preds[1].Review)
}

func TestDispatchEmptyInputs(t *testing.T) {
	d := NewHTTPDispatcher(zap.NewNop())

	results, err := d.Dispatch(context.Background(), nil, []string{"item-1"}, time.Second)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = d.Dispatch(context.Background(), []domain.Agent{{ID: 1, Endpoint: "http://example.invalid"}}, nil, time.Second)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDispatchUnreachableEndpoint(t *testing.T) {
	d := NewHTTPDispatcher(zap.NewNop())
	roster := []domain.Agent{{ID: 1, Endpoint: "http://127.0.0.1:1"}}

	results, err := d.Dispatch(context.Background(), roster, []string{"item-1"}, time.Second)
	require.NoError(t, err)
	assert.Empty(t, results)
}
