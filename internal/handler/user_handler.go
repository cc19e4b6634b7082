package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/starscout/starscout/internal/pkg/response"
	"github.com/starscout/starscout/internal/service"
)

type UserHandler struct {
	jobs *service.JobService
}

func NewUserHandler(jobs *service.JobService) *UserHandler {
	return &UserHandler{jobs: jobs}
}

// UserExists reports whether the caller already has an indexed star set.
func (h *UserHandler) UserExists(c *gin.Context) {
	exists, err := h.jobs.UserExists(c.Request.Context(), currentUser(c).UserID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"exists": exists})
}
