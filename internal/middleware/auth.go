package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/starscout/starscout/internal/authcache"
	"github.com/starscout/starscout/internal/model"
	"github.com/starscout/starscout/internal/pkg/errcode"
	"github.com/starscout/starscout/internal/pkg/response"
)

const (
	ContextUserKey  = "github_user"
	ContextTokenKey = "github_token"
)

// IdentityLookup resolves a bearer token to the platform identity behind it.
type IdentityLookup func(ctx context.Context, token string) (*model.GithubUser, error)

// GithubAuth extracts the bearer token, resolves it to a GitHub identity
// (served from the bounded cache when possible) and stores both on the
// request context.
func GithubAuth(cache *authcache.Cache, lookup IdentityLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, errcode.ErrUnauthorized, "missing authorization")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, errcode.ErrUnauthorized, "invalid authorization")
			c.Abort()
			return
		}
		token := parts[1]

		user, ok := cache.Get(token)
		if !ok {
			resolved, err := lookup(c.Request.Context(), token)
			if err != nil {
				logutil.GetLogger(c.Request.Context()).Warn("token identity lookup failed", zap.Error(err))
				response.Error(c, errcode.ErrUnauthorized, "invalid token")
				c.Abort()
				return
			}
			user = *resolved
			cache.Add(token, user)
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextTokenKey, token)
		c.Next()
	}
}
