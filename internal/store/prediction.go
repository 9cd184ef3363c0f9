package store

import (
	"context"

	"github.com/checkmesh/arbiter/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PredictionStore struct {
	db *pgxpool.Pool
}

func NewPredictionStore(db *pgxpool.Pool) *PredictionStore {
	return &PredictionStore{db: db}
}

// Upsert inserts or overwrites the prediction for (item_id, agent_id).
// Re-submissions never create a second row.
func (s *PredictionStore) Upsert(ctx context.Context, p *domain.Prediction) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO predictions (item_id, agent_id, score, review, keywords, sentiment, keyword_score, coherence_score, total_reward)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (item_id, agent_id) DO UPDATE
		 SET score = EXCLUDED.score,
		     review = EXCLUDED.review,
		     keywords = EXCLUDED.keywords,
		     sentiment = EXCLUDED.sentiment,
		     keyword_score = EXCLUDED.keyword_score,
		     coherence_score = EXCLUDED.coherence_score,
		     total_reward = EXCLUDED.total_reward,
		     updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		p.ItemID, p.AgentID, p.Score, p.Review, p.Keywords, p.Sentiment, p.KeywordScore, p.CoherenceScore, p.TotalReward,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (s *PredictionStore) ListByItem(ctx context.Context, itemID string) ([]domain.Prediction, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, item_id, agent_id, score, review, keywords, sentiment, keyword_score, coherence_score, total_reward, created_at, updated_at
		 FROM predictions WHERE item_id = $1 ORDER BY agent_id`,
		itemID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var preds []domain.Prediction
	for rows.Next() {
		var p domain.Prediction
		if err := rows.Scan(&p.ID, &p.ItemID, &p.AgentID, &p.Score, &p.Review, &p.Keywords, &p.Sentiment, &p.KeywordScore, &p.CoherenceScore, &p.TotalReward, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

var _ domain.PredictionStore = (*PredictionStore)(nil)
