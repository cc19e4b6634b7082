package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starscout/starscout/internal/model"
)

func newTestJobService(jobs *fakeJobStore, dedup *fakeDedup, stars *fakeStars, indexer *fakeIndexer, fetcher *fakeFetcher) *JobService {
	return NewJobService(jobs, dedup, stars, indexer,
		func(token string) StarFetcher { return fetcher }, 100, 100, 50)
}

func TestIngestionRunHappyPath(t *testing.T) {
	starred := makeRepos(90, 500)
	for i := 0; i < 30; i++ {
		starred = append(starred, model.Repository{ID: int64(91 + i), Stars: 10})
	}
	jobs := newFakeJobStore()
	stars := newFakeStars()
	indexer := &fakeIndexer{}
	svc := newTestJobService(jobs, &fakeDedup{}, stars, indexer, &fakeFetcher{starred: starred})

	user := model.GithubUser{UserID: "u1", Username: "alice"}
	job, err := svc.StartIngestion(context.Background(), user, "token", "")
	require.NoError(t, err)
	require.Equal(t, model.JobStatusPending, job.Status)
	svc.Wait()

	final, err := jobs.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, model.JobStatusCompleted, final.Status)
	require.Equal(t, 90, final.TotalRepos)
	require.Equal(t, 90, final.ProcessedRepos)
	require.Equal(t, 0, final.FailedRepos)

	// 90 qualified repos split into sub-batches of 50.
	require.Len(t, indexer.batches, 2)
	require.Len(t, indexer.batches[0], 50)
	require.Len(t, indexer.batches[1], 40)

	// The stored star set holds every qualified id, indexed or not.
	set, err := stars.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, set.RepoIDs, 90)
	require.Equal(t, "alice", set.Username)

	require.Equal(t, []string{statusFetchingStars, statusCreatingEmbeddings, model.JobStatusCompleted}, jobs.statuses)
	require.Equal(t, 0, svc.ActiveRuns())
}

func TestIngestionRunSubBatchFailureIsIsolated(t *testing.T) {
	jobs := newFakeJobStore()
	stars := newFakeStars()
	indexer := &fakeIndexer{failOn: map[int]error{0: errBoom}}
	svc := newTestJobService(jobs, &fakeDedup{}, stars, indexer, &fakeFetcher{starred: makeRepos(90, 500)})

	job, err := svc.StartIngestion(context.Background(), model.GithubUser{UserID: "u1"}, "token", "")
	require.NoError(t, err)
	svc.Wait()

	final, err := jobs.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, model.JobStatusCompleted, final.Status)
	require.Equal(t, 50, final.FailedRepos)
	require.Equal(t, 40, final.ProcessedRepos)

	// The run still stored the star set despite the failed sub-batch.
	require.Equal(t, 1, stars.upserts)
}

func TestIngestionRunFetchFailureFailsJob(t *testing.T) {
	jobs := newFakeJobStore()
	stars := newFakeStars()
	svc := newTestJobService(jobs, &fakeDedup{}, stars, &fakeIndexer{}, &fakeFetcher{starredErr: errBoom})

	job, err := svc.StartIngestion(context.Background(), model.GithubUser{UserID: "u1"}, "token", "")
	require.NoError(t, err)
	svc.Wait()

	final, err := jobs.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, model.JobStatusFailed, final.Status)
	require.Equal(t, 0, stars.upserts)
}

func TestIngestionRunSkipsAlreadyIndexed(t *testing.T) {
	jobs := newFakeJobStore()
	indexer := &fakeIndexer{}
	dedup := &fakeDedup{indexed: map[int64]bool{1: true, 2: true}}
	svc := newTestJobService(jobs, dedup, newFakeStars(), indexer, &fakeFetcher{starred: makeRepos(10, 500)})

	job, err := svc.StartIngestion(context.Background(), model.GithubUser{UserID: "u1"}, "token", "")
	require.NoError(t, err)
	svc.Wait()

	final, err := jobs.Get(context.Background(), job.ID)
	require.NoError(t, err)
	// Total counts every qualified repo; only the unindexed ones are processed.
	require.Equal(t, 10, final.TotalRepos)
	require.Equal(t, 8, final.ProcessedRepos)
	require.Len(t, indexer.batches, 1)
	require.Len(t, indexer.batches[0], 8)
}

func TestUserExists(t *testing.T) {
	stars := newFakeStars()
	svc := newTestJobService(newFakeJobStore(), &fakeDedup{}, stars, &fakeIndexer{}, &fakeFetcher{})

	exists, err := svc.UserExists(context.Background(), "u1")
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, stars.Upsert(context.Background(), "u1", "alice", []int64{1}))
	exists, err = svc.UserExists(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, exists)
}
