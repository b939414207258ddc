package repository

import (
	"context"
	"database/sql"
	"time"

	"arkiva/internal/domain"
)

// OAuthStateRepo persists single-use handshake states. The DELETE ...
// RETURNING in Consume makes each state winnable by exactly one caller even
// under concurrent callbacks. Every operation mutates, Consume included, so
// the repo takes only the write pool.
type OAuthStateRepo struct {
	db *sql.DB
}

// NewOAuthStateRepo creates an OAuthStateRepo over the write pool.
func NewOAuthStateRepo(db *sql.DB) *OAuthStateRepo {
	return &OAuthStateRepo{db: db}
}

func (r *OAuthStateRepo) Create(ctx context.Context, state domain.OAuthState) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO oauth_states (state, session_token) VALUES (?, ?)`,
		state.State, state.SessionToken)
	return mapDBError(err)
}

// Consume deletes the state and returns it. Replays and unknown states yield
// NotFoundError.
func (r *OAuthStateRepo) Consume(ctx context.Context, state string) (*domain.OAuthState, error) {
	var s domain.OAuthState
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM oauth_states WHERE state = ?
		 RETURNING state, session_token, created_at`, state).
		Scan(&s.State, &s.SessionToken, &s.CreatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &s, nil
}

// DeleteOlderThan removes states created before cutoff and reports how many.
func (r *OAuthStateRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM oauth_states WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, mapDBError(err)
	}
	return res.RowsAffected()
}
