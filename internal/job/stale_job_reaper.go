package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/starscout/starscout/internal/repo"
)

// StaleJobReaper fails ingestion jobs that stopped making progress, typically
// after a process restart left them mid-flight.
type StaleJobReaper struct {
	jobs   *repo.JobRepo
	maxAge time.Duration
}

func NewStaleJobReaper(jobs *repo.JobRepo, maxAge time.Duration) *StaleJobReaper {
	return &StaleJobReaper{jobs: jobs, maxAge: maxAge}
}

func (j *StaleJobReaper) Name() string {
	return "stale_job_reaper"
}

func (j *StaleJobReaper) Run(ctx context.Context) error {
	if j.jobs == nil {
		return nil
	}
	maxAge := j.maxAge
	if maxAge <= 0 {
		maxAge = 2 * time.Hour
	}
	reaped, err := j.jobs.FailStale(ctx, maxAge)
	if err != nil {
		return err
	}
	if reaped > 0 {
		logutil.GetLogger(ctx).Info("stale jobs failed", zap.Int64("count", reaped))
	}
	return nil
}
