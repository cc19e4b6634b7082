package handler

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/starscout/starscout/internal/ai"
	"github.com/starscout/starscout/internal/pkg/errcode"
	"github.com/starscout/starscout/internal/pkg/response"
)

// StarCounter estimates a user's total star count from their credential.
type StarCounter func(ctx context.Context, token string) (int, error)

// KeyGuard enforces the provider-key policy: heavy users (star count above
// the threshold) must bring their own embedding key, and any supplied key is
// validated before it reaches the pipeline.
type KeyGuard struct {
	provider  ai.Provider
	counter   StarCounter
	threshold int
}

func NewKeyGuard(provider ai.Provider, counter StarCounter, threshold int) *KeyGuard {
	return &KeyGuard{provider: provider, counter: counter, threshold: threshold}
}

// Check returns the override key (possibly empty) or writes an error response
// and reports ok=false.
func (g *KeyGuard) Check(c *gin.Context) (string, bool) {
	apiKey := c.GetHeader("Api-Key")
	ctx := c.Request.Context()

	stars, err := g.counter(ctx, currentToken(c))
	if err != nil {
		logutil.GetLogger(ctx).Warn("star count estimate failed", zap.Error(err))
		// Estimation failures don't block the request; the configured key
		// still applies.
		stars = 0
	}
	if stars > g.threshold && apiKey == "" {
		response.Error(c, errcode.ErrAPIKeyRequired,
			fmt.Sprintf("api key required for users with more than %d stars", g.threshold))
		return "", false
	}
	if apiKey != "" {
		if err := g.provider.WithAPIKey(apiKey).ValidateKey(ctx); err != nil {
			logutil.GetLogger(ctx).Warn("api key validation failed", zap.Error(err))
			response.Error(c, errcode.ErrAPIKeyInvalid, "invalid api key")
			return "", false
		}
	}
	return apiKey, true
}
