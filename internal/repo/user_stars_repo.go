package repo

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/starscout/starscout/internal/model"
	appErr "github.com/starscout/starscout/internal/pkg/errors"
)

type UserStarsRepo struct {
	db *sql.DB
}

func NewUserStarsRepo(db *sql.DB) *UserStarsRepo {
	return &UserStarsRepo{db: db}
}

// Upsert replaces the user's star set wholesale; the row always reflects the
// latest successful ingestion run.
func (r *UserStarsRepo) Upsert(ctx context.Context, userID, username string, repoIDs []int64) error {
	const query = `
		INSERT INTO user_stars (user_id, github_username, repo_ids, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET
			github_username = EXCLUDED.github_username,
			repo_ids = EXCLUDED.repo_ids,
			updated_at = NOW()
	`
	if repoIDs == nil {
		repoIDs = []int64{}
	}
	_, err := r.db.ExecContext(ctx, query, userID, username, pq.Array(repoIDs))
	return err
}

func (r *UserStarsRepo) Get(ctx context.Context, userID string) (*model.UserStars, error) {
	const query = `
		SELECT user_id, github_username, repo_ids, updated_at
		FROM user_stars
		WHERE user_id = $1
	`
	row := r.db.QueryRowContext(ctx, query, userID)
	var (
		stars model.UserStars
		ids   pq.Int64Array
	)
	if err := row.Scan(&stars.UserID, &stars.Username, &ids, &stars.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	stars.RepoIDs = ids
	return &stars, nil
}

func (r *UserStarsRepo) Exists(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM user_stars WHERE user_id = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
