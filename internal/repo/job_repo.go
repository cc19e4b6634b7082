package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/starscout/starscout/internal/model"
	appErr "github.com/starscout/starscout/internal/pkg/errors"
)

const jobColumns = `id, user_id, status, total_repos, processed_repos, failed_repos, created_at, updated_at, completed_at`

// JobRepo persists ingestion jobs. Updates are a fixed set of typed partial
// writes; there is deliberately no free-form field-map update.
type JobRepo struct {
	db *sql.DB
}

func NewJobRepo(db *sql.DB) *JobRepo {
	return &JobRepo{db: db}
}

func (r *JobRepo) Create(ctx context.Context, userID string) (*model.UserJob, error) {
	const query = `
		INSERT INTO user_jobs (user_id, status)
		VALUES ($1, 'pending')
		RETURNING ` + jobColumns
	return scanJob(r.db.QueryRowContext(ctx, query, userID))
}

func (r *JobRepo) Get(ctx context.Context, jobID int64) (*model.UserJob, error) {
	const query = `SELECT ` + jobColumns + ` FROM user_jobs WHERE id = $1`
	return scanJob(r.db.QueryRowContext(ctx, query, jobID))
}

func (r *JobRepo) Latest(ctx context.Context, userID string) (*model.UserJob, error) {
	const query = `
		SELECT ` + jobColumns + `
		FROM user_jobs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanJob(r.db.QueryRowContext(ctx, query, userID))
}

func (r *JobRepo) SetStatus(ctx context.Context, jobID int64, status string) error {
	const query = `UPDATE user_jobs SET status = $1, updated_at = NOW() WHERE id = $2`
	return r.exec(ctx, query, status, jobID)
}

func (r *JobRepo) SetTotal(ctx context.Context, jobID int64, total int) error {
	const query = `UPDATE user_jobs SET total_repos = $1, updated_at = NOW() WHERE id = $2`
	return r.exec(ctx, query, total, jobID)
}

func (r *JobRepo) SetCounters(ctx context.Context, jobID int64, processed, failed int) error {
	const query = `
		UPDATE user_jobs
		SET processed_repos = $1, failed_repos = $2, updated_at = NOW()
		WHERE id = $3
	`
	return r.exec(ctx, query, processed, failed, jobID)
}

func (r *JobRepo) MarkCompleted(ctx context.Context, jobID int64) error {
	const query = `
		UPDATE user_jobs
		SET status = 'completed', updated_at = NOW(), completed_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, query, jobID)
}

func (r *JobRepo) MarkFailed(ctx context.Context, jobID int64) error {
	const query = `
		UPDATE user_jobs
		SET status = 'failed', updated_at = NOW(), completed_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, query, jobID)
}

// FailStale marks jobs that have not been touched within maxAge and never
// reached a terminal state as failed. Covers runs killed by a process
// restart.
func (r *JobRepo) FailStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	const query = `
		UPDATE user_jobs
		SET status = 'failed', updated_at = NOW(), completed_at = NOW()
		WHERE status NOT IN ('completed', 'failed')
		  AND updated_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *JobRepo) exec(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func scanJob(row *sql.Row) (*model.UserJob, error) {
	var (
		job         model.UserJob
		completedAt sql.NullTime
	)
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.Status,
		&job.TotalRepos,
		&job.ProcessedRepos,
		&job.FailedRepos,
		&job.CreatedAt,
		&job.UpdatedAt,
		&completedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return &job, nil
}
