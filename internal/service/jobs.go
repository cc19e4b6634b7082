package service

import (
	"context"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/starscout/starscout/internal/model"
)

const (
	statusFetchingStars      = "fetching stars"
	statusCreatingEmbeddings = "creating embeddings"

	defaultBatchSize = 50
)

type jobStore interface {
	Create(ctx context.Context, userID string) (*model.UserJob, error)
	Get(ctx context.Context, jobID int64) (*model.UserJob, error)
	Latest(ctx context.Context, userID string) (*model.UserJob, error)
	SetStatus(ctx context.Context, jobID int64, status string) error
	SetTotal(ctx context.Context, jobID int64, total int) error
	SetCounters(ctx context.Context, jobID int64, processed, failed int) error
	MarkCompleted(ctx context.Context, jobID int64) error
	MarkFailed(ctx context.Context, jobID int64) error
}

type dedupStore interface {
	FilterUnindexed(ctx context.Context, repos []model.Repository) ([]model.Repository, error)
}

type starsStore interface {
	Upsert(ctx context.Context, userID, username string, repoIDs []int64) error
	Exists(ctx context.Context, userID string) (bool, error)
}

type batchIndexer interface {
	IndexBatch(ctx context.Context, batch []model.Repository, token, apiKey string) error
}

// JobService supervises ingestion runs. Each run is one goroutine; the active
// map only tracks live runs for bookkeeping and tests. It does not serialize
// runs per user; the HTTP layer refuses to start a run while the latest job
// for that user is still non-terminal.
type JobService struct {
	jobs          jobStore
	repos         dedupStore
	stars         starsStore
	indexer       batchIndexer
	newFetcher    FetcherFactory
	starThreshold int
	perPage       int
	batchSize     int

	mu     sync.Mutex
	active map[int64]struct{}
	wg     sync.WaitGroup
}

func NewJobService(jobs jobStore, repos dedupStore, stars starsStore, indexer batchIndexer, newFetcher FetcherFactory, starThreshold, perPage, batchSize int) *JobService {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &JobService{
		jobs:          jobs,
		repos:         repos,
		stars:         stars,
		indexer:       indexer,
		newFetcher:    newFetcher,
		starThreshold: starThreshold,
		perPage:       perPage,
		batchSize:     batchSize,
		active:        make(map[int64]struct{}),
	}
}

// StartIngestion creates a pending job and launches the run asynchronously.
// The returned job reflects the pending state; callers poll for progress.
func (s *JobService) StartIngestion(ctx context.Context, user model.GithubUser, token, apiKey string) (*model.UserJob, error) {
	job, err := s.jobs.Create(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.active[job.ID] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(context.Background(), job.ID, user, token, apiKey)
	}()
	return job, nil
}

func (s *JobService) GetJob(ctx context.Context, jobID int64) (*model.UserJob, error) {
	return s.jobs.Get(ctx, jobID)
}

func (s *JobService) LatestJob(ctx context.Context, userID string) (*model.UserJob, error) {
	return s.jobs.Latest(ctx, userID)
}

func (s *JobService) UserExists(ctx context.Context, userID string) (bool, error) {
	return s.stars.Exists(ctx, userID)
}

// ActiveRuns reports how many runs are live right now.
func (s *JobService) ActiveRuns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Wait blocks until all launched runs have finished.
func (s *JobService) Wait() {
	s.wg.Wait()
}

func (s *JobService) run(ctx context.Context, jobID int64, user model.GithubUser, token, apiKey string) {
	logger := logutil.GetLogger(ctx).With(
		zap.Int64("job_id", jobID),
		zap.String("user_id", user.UserID),
	)
	defer s.release(jobID)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("ingestion run panicked", zap.Any("panic", r))
			s.markFailed(ctx, jobID, logger)
		}
	}()

	start := time.Now()
	if err := s.jobs.SetStatus(ctx, jobID, statusFetchingStars); err != nil {
		logger.Error("update job status failed", zap.Error(err))
	}

	fetcher := s.newFetcher(token)
	starred, err := fetcher.ListStarred(ctx, s.perPage)
	if err != nil {
		logger.Error("fetch starred repositories failed", zap.Error(err))
		s.markFailed(ctx, jobID, logger)
		return
	}

	qualified := make([]model.Repository, 0, len(starred))
	for _, repo := range starred {
		if repo.Stars >= s.starThreshold {
			qualified = append(qualified, repo)
		}
	}
	logger.Info("starred repositories fetched",
		zap.Int("total", len(starred)), zap.Int("qualified", len(qualified)))

	if err := s.jobs.SetStatus(ctx, jobID, statusCreatingEmbeddings); err != nil {
		logger.Error("update job status failed", zap.Error(err))
	}
	if err := s.jobs.SetTotal(ctx, jobID, len(qualified)); err != nil {
		logger.Error("update job total failed", zap.Error(err))
	}

	pending, err := s.repos.FilterUnindexed(ctx, qualified)
	if err != nil {
		logger.Error("deduplicate against index failed", zap.Error(err))
		s.markFailed(ctx, jobID, logger)
		return
	}

	processed, failed := 0, 0
	for offset := 0; offset < len(pending); offset += s.batchSize {
		end := offset + s.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		chunk := pending[offset:end]
		if err := s.indexer.IndexBatch(ctx, chunk, token, apiKey); err != nil {
			// The whole sub-batch is counted failed; the run keeps going.
			failed += len(chunk)
			logger.Error("sub-batch failed", zap.Int("size", len(chunk)), zap.Error(err))
		} else {
			processed += len(chunk)
		}
		if err := s.jobs.SetCounters(ctx, jobID, processed, failed); err != nil {
			logger.Error("update job counters failed", zap.Error(err))
		}
	}

	// The star set stores the full threshold-filtered list, not just the
	// repositories indexed by this run.
	ids := make([]int64, 0, len(qualified))
	for _, repo := range qualified {
		ids = append(ids, repo.ID)
	}
	if err := s.stars.Upsert(ctx, user.UserID, user.Username, ids); err != nil {
		logger.Error("store user star set failed", zap.Error(err))
		s.markFailed(ctx, jobID, logger)
		return
	}

	if err := s.jobs.MarkCompleted(ctx, jobID); err != nil {
		logger.Error("mark job completed failed", zap.Error(err))
		return
	}
	logger.Info("ingestion run completed",
		zap.Int("processed", processed),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)))
}

func (s *JobService) markFailed(ctx context.Context, jobID int64, logger *zap.Logger) {
	if err := s.jobs.MarkFailed(ctx, jobID); err != nil {
		logger.Error("mark job failed errored", zap.Error(err))
	}
}

func (s *JobService) release(jobID int64) {
	s.mu.Lock()
	delete(s.active, jobID)
	s.mu.Unlock()
}
