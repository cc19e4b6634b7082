package model

import "time"

const (
	JobStatusPending   = "pending"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// UserJob tracks one ingestion run. Status holds free-text progress labels
// between pending and a terminal state; only pending/completed/failed carry
// external meaning.
type UserJob struct {
	ID             int64      `json:"id"`
	UserID         string     `json:"user_id"`
	Status         string     `json:"status"`
	TotalRepos     int        `json:"total_repos"`
	ProcessedRepos int        `json:"processed_repos"`
	FailedRepos    int        `json:"failed_repos"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

func (j *UserJob) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
