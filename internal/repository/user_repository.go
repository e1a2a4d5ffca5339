package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackclub/stonepheus/internal/domain"
)

// UserRepository stores per-user visibility preferences. Get returns
// pgx.ErrNoRows when the user has never set a preference.
type UserRepository interface {
	Get(ctx context.Context, slackID string) (*domain.UserPreference, error)
	Upsert(ctx context.Context, slackID string, shown bool) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates repository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Get(ctx context.Context, slackID string) (*domain.UserPreference, error) {
	const query = `SELECT slack_id, shown FROM users WHERE slack_id=$1`
	var pref domain.UserPreference
	if err := r.pool.QueryRow(ctx, query, slackID).Scan(&pref.SlackID, &pref.Shown); err != nil {
		return nil, err
	}
	return &pref, nil
}

func (r *userRepository) Upsert(ctx context.Context, slackID string, shown bool) error {
	const query = `
        INSERT INTO users (slack_id, shown) VALUES ($1,$2)
        ON CONFLICT (slack_id) DO UPDATE SET shown=EXCLUDED.shown`
	_, err := r.pool.Exec(ctx, query, slackID, shown)
	return err
}
