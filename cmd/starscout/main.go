package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/starscout/starscout/internal/ai"
	"github.com/starscout/starscout/internal/authcache"
	"github.com/starscout/starscout/internal/config"
	"github.com/starscout/starscout/internal/db"
	"github.com/starscout/starscout/internal/github"
	"github.com/starscout/starscout/internal/handler"
	"github.com/starscout/starscout/internal/job"
	"github.com/starscout/starscout/internal/middleware"
	"github.com/starscout/starscout/internal/model"
	"github.com/starscout/starscout/internal/repo"
	"github.com/starscout/starscout/internal/schedule"
	"github.com/starscout/starscout/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "starscout",
		Short: "starscout backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run starscout server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.DB)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("ai_model", cfg.AI.Model),
	)

	repoRepo := repo.NewRepositoryRepo(conn)
	noReadmeRepo := repo.NewNoReadmeRepo(conn)
	starsRepo := repo.NewUserStarsRepo(conn)
	jobRepo := repo.NewJobRepo(conn)

	provider, err := ai.NewProvider(cfg.AI.Provider, ai.Config{
		APIKey:    cfg.AI.APIKey,
		Model:     cfg.AI.Model,
		Dimension: cfg.AI.Dimension,
		BaseURL:   cfg.AI.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}

	newFetcher := func(token string) service.StarFetcher {
		return github.NewClient(token, cfg.Github.BaseURL)
	}
	indexer := service.NewIndexerService(repoRepo, noReadmeRepo, provider, newFetcher)
	jobService := service.NewJobService(jobRepo, repoRepo, starsRepo, indexer, newFetcher,
		cfg.Github.StarThreshold, cfg.Github.PerPage, cfg.Jobs.BatchSize)
	searchService := service.NewSearchService(repoRepo, starsRepo, provider)

	identity := func(ctx context.Context, token string) (*model.GithubUser, error) {
		return github.NewClient(token, cfg.Github.BaseURL).GetUser(ctx)
	}
	counter := func(ctx context.Context, token string) (int, error) {
		return github.NewClient(token, cfg.Github.BaseURL).StarredCount(ctx)
	}
	guard := handler.NewKeyGuard(provider, counter, cfg.APIKeyStarThreshold)

	deps := handler.RouterDeps{
		Search:    handler.NewSearchHandler(searchService, guard),
		Jobs:      handler.NewJobHandler(jobService, guard),
		Users:     handler.NewUserHandler(jobService),
		Settings:  handler.NewSettingsHandler(cfg.APIKeyStarThreshold),
		AuthCache: authcache.New(cfg.AuthCache.Size, time.Duration(cfg.AuthCache.TTLMinutes)*time.Minute),
		Identity:  identity,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.AllowedOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	reaper := job.NewStaleJobReaper(jobRepo, time.Duration(cfg.Jobs.StaleAfterMinutes)*time.Minute)
	if err := scheduler.AddJob(reaper, cfg.Jobs.ReaperSpec); err != nil {
		return fmt.Errorf("schedule reaper: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	jobService.Wait()
	return nil
}
