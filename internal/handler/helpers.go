package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/starscout/starscout/internal/middleware"
	"github.com/starscout/starscout/internal/model"
	"github.com/starscout/starscout/internal/pkg/errcode"
	appErr "github.com/starscout/starscout/internal/pkg/errors"
	"github.com/starscout/starscout/internal/pkg/response"
)

func currentUser(c *gin.Context) model.GithubUser {
	value, _ := c.Get(middleware.ContextUserKey)
	user, _ := value.(model.GithubUser)
	return user
}

func currentToken(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextTokenKey)
	token, _ := value.(string)
	return token
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case appErr.IsUnauthorized(err):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrForbidden):
		response.Error(c, errcode.ErrForbidden, "forbidden")
	case appErr.IsNotFound(err):
		response.Error(c, errcode.ErrNotFound, "not found")
	case appErr.IsConflict(err):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
