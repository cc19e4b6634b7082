package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/starscout/starscout/internal/ai"
	"github.com/starscout/starscout/internal/model"
	appErr "github.com/starscout/starscout/internal/pkg/errors"
)

const (
	readmeCharBudget = 2000
	truncationMarker = "..."

	descriptionPlaceholder = "Ignore descriptions"
	topicsPlaceholder      = "Ignore topics"

	embedBatchTimeout = 60 * time.Second
)

type repoInserter interface {
	Insert(ctx context.Context, repo *model.Repository) error
}

type noReadmeInserter interface {
	Insert(ctx context.Context, repo *model.Repository) error
}

// IndexerService turns un-indexed repositories into persisted vector rows:
// README batch fetch, no-readme bookkeeping, template render, one embedding
// call per batch, one insert per repository.
type IndexerService struct {
	repos      repoInserter
	noReadme   noReadmeInserter
	provider   ai.Provider
	newFetcher FetcherFactory
}

func NewIndexerService(repos repoInserter, noReadme noReadmeInserter, provider ai.Provider, newFetcher FetcherFactory) *IndexerService {
	return &IndexerService{
		repos:      repos,
		noReadme:   noReadme,
		provider:   provider,
		newFetcher: newFetcher,
	}
}

// IndexBatch processes one sub-batch. Callers must have deduplicated the
// input already; ids that race into the index surface as conflict inserts and
// are skipped. An embedding failure aborts the whole sub-batch and is
// returned to the caller; per-row fetch and insert failures are logged and
// skipped.
func (s *IndexerService) IndexBatch(ctx context.Context, batch []model.Repository, token, apiKey string) error {
	if len(batch) == 0 {
		return nil
	}
	logger := logutil.GetLogger(ctx)

	fetcher := s.newFetcher(token)
	names := make([]string, 0, len(batch))
	for _, repo := range batch {
		names = append(names, repo.FullName)
	}
	readmes := fetcher.FetchReadmes(ctx, names)

	candidates := make([]model.Repository, 0, len(batch))
	texts := make([]string, 0, len(batch))
	for _, repo := range batch {
		res := readmes[repo.FullName]
		if res.Err != nil {
			logger.Error("readme fetch failed, skipping repository",
				zap.String("repo", repo.FullName), zap.Error(res.Err))
			continue
		}
		if !res.Found {
			logger.Warn("no readme found", zap.String("repo", repo.FullName))
			marked := repo
			if err := s.noReadme.Insert(ctx, &marked); err != nil && !appErr.IsConflict(err) {
				logger.Error("store no-readme marker failed",
					zap.String("repo", repo.FullName), zap.Error(err))
			}
			continue
		}
		repo.ReadmeContent = res.Content
		candidates = append(candidates, repo)
		texts = append(texts, renderEmbeddingText(repo))
	}
	if len(candidates) == 0 {
		return nil
	}

	provider := s.provider
	if apiKey != "" {
		provider = provider.WithAPIKey(apiKey)
	}
	embedCtx, cancel := context.WithTimeout(ctx, embedBatchTimeout)
	defer cancel()
	vectors, err := provider.EmbedBatch(embedCtx, texts)
	if err != nil {
		return fmt.Errorf("%w: %v", appErr.ErrProvider, err)
	}
	if len(vectors) != len(candidates) {
		return fmt.Errorf("%w: got %d vectors for %d texts", appErr.ErrProvider, len(vectors), len(candidates))
	}

	for i := range candidates {
		candidates[i].Embedding = vectors[i]
		if err := s.repos.Insert(ctx, &candidates[i]); err != nil {
			if appErr.IsConflict(err) {
				logger.Warn("repository already indexed", zap.String("repo", candidates[i].FullName))
				continue
			}
			logger.Error("insert indexed repository failed",
				zap.String("repo", candidates[i].FullName), zap.Error(err))
			continue
		}
		logger.Info("repository indexed", zap.String("repo", candidates[i].FullName))
	}
	return nil
}

// renderEmbeddingText builds the text submitted to the embedding provider.
// Deterministic for a given repository snapshot.
func renderEmbeddingText(repo model.Repository) string {
	description := repo.Description
	if description == "" {
		description = descriptionPlaceholder
	}
	topics := topicsPlaceholder
	if len(repo.Topics) > 0 {
		topics = strings.Join(repo.Topics, ", ")
	}
	return fmt.Sprintf(`# Key Information
Repository name: %s
Description: %s
Topics: %s
Owner: %s
URL: %s

# README Content
%s
`, repo.Name, description, topics, repo.Owner.Login, repo.URL, truncateReadme(repo.ReadmeContent))
}

// truncateReadme caps the README at readmeCharBudget characters, appending a
// marker when anything was cut.
func truncateReadme(content string) string {
	runes := []rune(content)
	if len(runes) <= readmeCharBudget {
		return content
	}
	return string(runes[:readmeCharBudget]) + truncationMarker
}
