package service

import (
	"context"

	"github.com/starscout/starscout/internal/github"
	"github.com/starscout/starscout/internal/model"
)

// StarFetcher is the slice of the platform client the pipeline needs.
type StarFetcher interface {
	ListStarred(ctx context.Context, perPage int) ([]model.Repository, error)
	FetchReadmes(ctx context.Context, fullNames []string) map[string]github.ReadmeResult
}

// FetcherFactory builds a platform client bound to one user's credential.
type FetcherFactory func(token string) StarFetcher
