package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/starscout/starscout/internal/pkg/response"
)

type SettingsHandler struct {
	apiKeyStarThreshold int
}

func NewSettingsHandler(apiKeyStarThreshold int) *SettingsHandler {
	return &SettingsHandler{apiKeyStarThreshold: apiKeyStarThreshold}
}

// Settings exposes the public thresholds clients need before authenticating.
func (h *SettingsHandler) Settings(c *gin.Context) {
	response.Success(c, gin.H{
		"api_key_star_threshold": h.apiKeyStarThreshold,
	})
}

// Health is the unauthenticated liveness probe.
func Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}
