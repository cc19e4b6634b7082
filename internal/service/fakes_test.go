package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/starscout/starscout/internal/ai"
	"github.com/starscout/starscout/internal/github"
	"github.com/starscout/starscout/internal/model"
	appErr "github.com/starscout/starscout/internal/pkg/errors"
)

type fakeFetcher struct {
	starred    []model.Repository
	starredErr error
	readmes    map[string]github.ReadmeResult
}

func (f *fakeFetcher) ListStarred(ctx context.Context, perPage int) ([]model.Repository, error) {
	return f.starred, f.starredErr
}

func (f *fakeFetcher) FetchReadmes(ctx context.Context, fullNames []string) map[string]github.ReadmeResult {
	out := make(map[string]github.ReadmeResult, len(fullNames))
	for _, name := range fullNames {
		out[name] = f.readmes[name]
	}
	return out
}

// fakeProvider records every embed call; clones made by WithAPIKey report
// back to the original so tests can assert on one instance.
type fakeProvider struct {
	mu        sync.Mutex
	calls     int
	batches   [][]string
	keys      []string
	dimension int
	err       error
	boundKey  string
	parent    *fakeProvider
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	target := p
	if p.parent != nil {
		target = p.parent
	}
	target.mu.Lock()
	target.calls++
	target.batches = append(target.batches, texts)
	target.keys = append(target.keys, p.boundKey)
	target.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	dim := p.dimension
	if dim <= 0 {
		dim = 3
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, dim)
	}
	return out, nil
}

func (p *fakeProvider) ValidateKey(ctx context.Context) error { return p.err }

func (p *fakeProvider) WithAPIKey(key string) ai.Provider {
	clone := &fakeProvider{dimension: p.dimension, err: p.err, boundKey: key, parent: p}
	return clone
}

type fakeInserter struct {
	mu       sync.Mutex
	inserted []model.Repository
	conflict map[int64]bool
	err      error
}

func (f *fakeInserter) Insert(ctx context.Context, repo *model.Repository) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.conflict[repo.ID] {
		return fmt.Errorf("%w: duplicate", appErr.ErrConflict)
	}
	f.inserted = append(f.inserted, *repo)
	return nil
}

func (f *fakeInserter) ids() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, 0, len(f.inserted))
	for _, r := range f.inserted {
		out = append(out, r.ID)
	}
	return out
}

type fakeJobStore struct {
	mu       sync.Mutex
	nextID   int64
	jobs     map[int64]*model.UserJob
	statuses []string
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[int64]*model.UserJob)}
}

func (f *fakeJobStore) Create(ctx context.Context, userID string) (*model.UserJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	job := &model.UserJob{ID: f.nextID, UserID: userID, Status: model.JobStatusPending}
	f.jobs[job.ID] = job
	copied := *job
	return &copied, nil
}

func (f *fakeJobStore) Get(ctx context.Context, jobID int64) (*model.UserJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeJobStore) Latest(ctx context.Context, userID string) (*model.UserJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *model.UserJob
	for _, job := range f.jobs {
		if job.UserID != userID {
			continue
		}
		if latest == nil || job.ID > latest.ID {
			latest = job
		}
	}
	if latest == nil {
		return nil, appErr.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeJobStore) SetStatus(ctx context.Context, jobID int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return appErr.ErrNotFound
	}
	job.Status = status
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeJobStore) SetTotal(ctx context.Context, jobID int64, total int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return appErr.ErrNotFound
	}
	job.TotalRepos = total
	return nil
}

func (f *fakeJobStore) SetCounters(ctx context.Context, jobID int64, processed, failed int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return appErr.ErrNotFound
	}
	job.ProcessedRepos = processed
	job.FailedRepos = failed
	return nil
}

func (f *fakeJobStore) MarkCompleted(ctx context.Context, jobID int64) error {
	return f.SetStatus(ctx, jobID, model.JobStatusCompleted)
}

func (f *fakeJobStore) MarkFailed(ctx context.Context, jobID int64) error {
	return f.SetStatus(ctx, jobID, model.JobStatusFailed)
}

type fakeDedup struct {
	indexed map[int64]bool
	err     error
}

func (f *fakeDedup) FilterUnindexed(ctx context.Context, repos []model.Repository) ([]model.Repository, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Repository, 0, len(repos))
	for _, r := range repos {
		if !f.indexed[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeStars struct {
	mu      sync.Mutex
	sets    map[string]*model.UserStars
	upserts int
	err     error
}

func newFakeStars() *fakeStars {
	return &fakeStars{sets: make(map[string]*model.UserStars)}
}

func (f *fakeStars) Upsert(ctx context.Context, userID, username string, repoIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.upserts++
	f.sets[userID] = &model.UserStars{UserID: userID, Username: username, RepoIDs: repoIDs}
	return nil
}

func (f *fakeStars) Exists(ctx context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sets[userID]
	return ok, nil
}

func (f *fakeStars) Get(ctx context.Context, userID string) (*model.UserStars, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.sets[userID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	copied := *set
	return &copied, nil
}

type fakeIndexer struct {
	mu      sync.Mutex
	batches [][]model.Repository
	failOn  map[int]error // batch index -> error
}

func (f *fakeIndexer) IndexBatch(ctx context.Context, batch []model.Repository, token, apiKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.batches)
	f.batches = append(f.batches, batch)
	if err, ok := f.failOn[idx]; ok {
		return err
	}
	return nil
}

var errBoom = errors.New("boom")

func makeRepos(n int, stars int) []model.Repository {
	out := make([]model.Repository, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.Repository{
			ID:       int64(i + 1),
			Name:     fmt.Sprintf("repo-%d", i+1),
			FullName: fmt.Sprintf("owner/repo-%d", i+1),
			Stars:    stars,
		})
	}
	return out
}
