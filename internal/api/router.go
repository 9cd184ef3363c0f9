// Package api exposes a small read-only ops surface: liveness, the last
// round summary and stored predictions per item. The engine itself has no
// interactive user surface; this exists for operators and dashboards.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	mw "github.com/checkmesh/arbiter/internal/api/middleware"
	"github.com/checkmesh/arbiter/internal/config"
	"github.com/checkmesh/arbiter/internal/domain"
	"github.com/checkmesh/arbiter/internal/service"
	"github.com/checkmesh/arbiter/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type App struct {
	Router       *chi.Mux
	orchestrator *service.Orchestrator
	items        domain.ItemStore
	predictions  domain.PredictionStore
	startTime    time.Time
}

func NewApp(orch *service.Orchestrator, items domain.ItemStore, predictions domain.PredictionStore, logger *zap.Logger) *App {
	app := &App{
		orchestrator: orch,
		items:        items,
		predictions:  predictions,
		startTime:    time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(mw.RequestID)
	r.Use(mw.Logging(logger))
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", app.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/rounds/latest", app.handleLatestRound)
		r.Get("/items", app.handleListItems)
		r.Get("/items/{id}/predictions", app.handleItemPredictions)
	})

	app.Router = r
	return app
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(a.startTime).String(),
	})
}

func (a *App) handleLatestRound(w http.ResponseWriter, r *http.Request) {
	summary := a.orchestrator.LastRound()
	if summary == nil {
		writeError(w, http.StatusNotFound, "no round completed yet")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *App) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := a.items.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []domain.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *App) handleItemPredictions(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")
	if _, err := a.items.GetByID(r.Context(), itemID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load item")
		return
	}

	preds, err := a.predictions.ListByItem(r.Context(), itemID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list predictions")
		return
	}
	if preds == nil {
		preds = []domain.Prediction{}
	}
	writeJSON(w, http.StatusOK, preds)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
