package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/starscout/starscout/internal/authcache"
	"github.com/starscout/starscout/internal/middleware"
)

type RouterDeps struct {
	Search   *SearchHandler
	Jobs     *JobHandler
	Users    *UserHandler
	Settings *SettingsHandler

	AuthCache *authcache.Cache
	Identity  middleware.IdentityLookup
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", Health)
	api.GET("/settings", deps.Settings.Settings)

	authGroup := api.Group("")
	authGroup.Use(middleware.GithubAuth(deps.AuthCache, deps.Identity))
	authGroup.GET("/search", deps.Search.Search)
	authGroup.GET("/search-global", deps.Search.SearchGlobal)
	authGroup.POST("/process-stars", deps.Jobs.ProcessStars)
	authGroup.GET("/job-status/:id", deps.Jobs.GetJob)
	authGroup.GET("/user-jobs", deps.Jobs.LatestJob)
	authGroup.GET("/user-exists", deps.Users.UserExists)
}
