package store

import (
	"context"
	"errors"

	"github.com/checkmesh/arbiter/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ItemStore struct {
	db *pgxpool.Pool
}

func NewItemStore(db *pgxpool.Pool) *ItemStore {
	return &ItemStore{db: db}
}

func (s *ItemStore) Create(ctx context.Context, i *domain.Item) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO items (id, name, trust_score, review_done, mining_done, rewards_distributed)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name, updated_at = NOW()
		 RETURNING created_at, updated_at`,
		i.ID, i.Name, i.TrustScore, i.ReviewDone, i.MiningDone, i.RewardsDistributed,
	).Scan(&i.CreatedAt, &i.UpdatedAt)
}

func (s *ItemStore) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	i := &domain.Item{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, trust_score, review_done, mining_done, rewards_distributed, created_at, updated_at
		 FROM items WHERE id = $1`,
		id,
	).Scan(&i.ID, &i.Name, &i.TrustScore, &i.ReviewDone, &i.MiningDone, &i.RewardsDistributed, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return i, nil
}

func (s *ItemStore) List(ctx context.Context) ([]domain.Item, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, trust_score, review_done, mining_done, rewards_distributed, created_at, updated_at
		 FROM items ORDER BY created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// ListUnresolved returns items still waiting for their review cycle to
// mature into a ground-truth score.
func (s *ItemStore) ListUnresolved(ctx context.Context) ([]domain.Item, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, trust_score, review_done, mining_done, rewards_distributed, created_at, updated_at
		 FROM items WHERE review_done = FALSE ORDER BY created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

func (s *ItemStore) UpdateStatus(ctx context.Context, id string, reviewDone, miningDone, rewardsDistributed bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE items
		 SET review_done = $2, mining_done = $3, rewards_distributed = $4, updated_at = NOW()
		 WHERE id = $1`,
		id, reviewDone, miningDone, rewardsDistributed,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete retires an item. Predictions cascade via the FK constraint.
func (s *ItemStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	return err
}

func (s *ItemStore) DeleteBulk(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.Exec(ctx, `DELETE FROM items WHERE id = ANY($1)`, ids)
	return err
}

func scanItems(rows pgx.Rows) ([]domain.Item, error) {
	var items []domain.Item
	for rows.Next() {
		var i domain.Item
		if err := rows.Scan(&i.ID, &i.Name, &i.TrustScore, &i.ReviewDone, &i.MiningDone, &i.RewardsDistributed, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

var _ domain.ItemStore = (*ItemStore)(nil)
