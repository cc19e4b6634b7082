package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	appErr "github.com/starscout/starscout/internal/pkg/errors"

	"github.com/starscout/starscout/internal/pkg/errcode"
	"github.com/starscout/starscout/internal/pkg/response"
	"github.com/starscout/starscout/internal/service"
)

type JobHandler struct {
	jobs  *service.JobService
	guard *KeyGuard
}

func NewJobHandler(jobs *service.JobService, guard *KeyGuard) *JobHandler {
	return &JobHandler{jobs: jobs, guard: guard}
}

// ProcessStars starts an ingestion run for the caller. While the caller's
// latest job is still non-terminal that job is returned instead; the
// orchestrator itself does not serialize runs.
func (h *JobHandler) ProcessStars(c *gin.Context) {
	user := currentUser(c)
	existing, err := h.jobs.LatestJob(c.Request.Context(), user.UserID)
	if err != nil && !appErr.IsNotFound(err) {
		handleError(c, err)
		return
	}
	if existing != nil && !existing.Terminal() {
		response.Success(c, existing)
		return
	}
	apiKey, ok := h.guard.Check(c)
	if !ok {
		return
	}
	job, err := h.jobs.StartIngestion(c.Request.Context(), user, currentToken(c), apiKey)
	if err != nil {
		response.Error(c, errcode.ErrJobStartFailed, "failed to start ingestion")
		return
	}
	response.Success(c, job)
}

func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid job id")
		return
	}
	job, err := h.jobs.GetJob(c.Request.Context(), jobID)
	if err != nil {
		handleError(c, err)
		return
	}
	if job.UserID != currentUser(c).UserID {
		response.Error(c, errcode.ErrForbidden, "job belongs to another user")
		return
	}
	response.Success(c, job)
}

func (h *JobHandler) LatestJob(c *gin.Context) {
	job, err := h.jobs.LatestJob(c.Request.Context(), currentUser(c).UserID)
	if err != nil {
		if appErr.IsNotFound(err) {
			response.Success(c, nil)
			return
		}
		handleError(c, err)
		return
	}
	response.Success(c, job)
}
