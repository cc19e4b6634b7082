package model

import "time"

type RepositoryOwner struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// Repository is a starred repository as returned by the hosting platform,
// optionally carrying the embedding generated for it.
type Repository struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	FullName      string          `json:"full_name"`
	Description   string          `json:"description,omitempty"`
	ReadmeContent string          `json:"readme_content,omitempty"`
	Topics        []string        `json:"topics"`
	URL           string          `json:"url"`
	Stars         int             `json:"stars"`
	Embedding     []float32       `json:"-"`
	Similarity    float64         `json:"similarity,omitempty"`
	CreatedAt     *time.Time      `json:"created_at,omitempty"`
	UpdatedAt     *time.Time      `json:"last_updated,omitempty"`
	Owner         RepositoryOwner `json:"owner"`
}

// AvatarURLForLogin rebuilds an owner avatar from the login; the index does
// not store avatar URLs.
func AvatarURLForLogin(login string) string {
	return "https://github.com/" + login + ".png"
}
