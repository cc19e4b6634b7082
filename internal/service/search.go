package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/starscout/starscout/internal/ai"
	"github.com/starscout/starscout/internal/model"
	appErr "github.com/starscout/starscout/internal/pkg/errors"
)

const defaultSearchLimit = 10

type vectorSearcher interface {
	Search(ctx context.Context, queryVec []float32, repoIDs []int64, limit int) ([]model.Repository, error)
}

type starsGetter interface {
	Get(ctx context.Context, userID string) (*model.UserStars, error)
}

// SearchService answers natural-language queries by embedding them and
// ranking indexed repositories by cosine similarity.
type SearchService struct {
	repos    vectorSearcher
	stars    starsGetter
	provider ai.Provider
}

func NewSearchService(repos vectorSearcher, stars starsGetter, provider ai.Provider) *SearchService {
	return &SearchService{repos: repos, stars: stars, provider: provider}
}

// Search ranks the index against query. A non-empty userID restricts the scan
// to that user's star set; a user with no stored stars gets an empty result
// without touching the vector column.
func (s *SearchService) Search(ctx context.Context, query, userID string, limit int, apiKey string) ([]model.Repository, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", appErr.ErrInvalid)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	logger := logutil.GetLogger(ctx).With(zap.String("user_id", userID), zap.String("query", query))

	provider := s.provider
	if apiKey != "" {
		provider = provider.WithAPIKey(apiKey)
	}
	queryVec, err := ai.EmbedOne(ctx, provider, query)
	if err != nil {
		logger.Error("embed search query failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", appErr.ErrProvider, err)
	}

	var scope []int64
	if userID != "" {
		stars, err := s.stars.Get(ctx, userID)
		if err != nil {
			if appErr.IsNotFound(err) {
				logger.Info("no star set for user, returning empty result")
				return []model.Repository{}, nil
			}
			return nil, err
		}
		if len(stars.RepoIDs) == 0 {
			logger.Info("user star set is empty, returning empty result")
			return []model.Repository{}, nil
		}
		scope = stars.RepoIDs
	}

	results, err := s.repos.Search(ctx, queryVec, scope, limit)
	if err != nil {
		logger.Error("similarity search failed", zap.Error(err))
		return nil, err
	}
	logger.Info("search completed", zap.Int("results", len(results)))
	return results, nil
}
