package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/starscout/starscout/internal/pkg/errcode"
	"github.com/starscout/starscout/internal/pkg/response"
	"github.com/starscout/starscout/internal/service"
)

type SearchHandler struct {
	search *service.SearchService
	guard  *KeyGuard
}

func NewSearchHandler(search *service.SearchService, guard *KeyGuard) *SearchHandler {
	return &SearchHandler{search: search, guard: guard}
}

// Search ranks the caller's starred repositories against the query.
func (h *SearchHandler) Search(c *gin.Context) {
	h.handle(c, true)
}

// SearchGlobal ranks the whole index against the query.
func (h *SearchHandler) SearchGlobal(c *gin.Context) {
	h.handle(c, false)
}

func (h *SearchHandler) handle(c *gin.Context, scoped bool) {
	query := c.Query("query")
	if query == "" {
		response.Error(c, errcode.ErrInvalid, "query is required")
		return
	}
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(c, errcode.ErrInvalid, "invalid limit")
			return
		}
		limit = parsed
	}
	apiKey, ok := h.guard.Check(c)
	if !ok {
		return
	}
	userID := ""
	if scoped {
		userID = currentUser(c).UserID
	}
	results, err := h.search.Search(c.Request.Context(), query, userID, limit, apiKey)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, results)
}
