package model

import "time"

// GithubUser is the authenticated identity resolved from a bearer token.
type GithubUser struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"github_username"`
	Following int       `json:"following_count"`
	CreatedAt time.Time `json:"created_at"`
}

// UserStars is one user's full star set, replaced wholesale on every
// successful ingestion run.
type UserStars struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"github_username"`
	RepoIDs   []int64   `json:"repo_ids"`
	UpdatedAt time.Time `json:"updated_at"`
}
