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
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/lcodeee/manualqa/internal/ai"
	"github.com/lcodeee/manualqa/internal/config"
	"github.com/lcodeee/manualqa/internal/db"
	"github.com/lcodeee/manualqa/internal/embedcache"
	"github.com/lcodeee/manualqa/internal/filestore"
	"github.com/lcodeee/manualqa/internal/handler"
	"github.com/lcodeee/manualqa/internal/job"
	"github.com/lcodeee/manualqa/internal/middleware"
	"github.com/lcodeee/manualqa/internal/pkg/jwt"
	"github.com/lcodeee/manualqa/internal/repo"
	"github.com/lcodeee/manualqa/internal/schedule"
	"github.com/lcodeee/manualqa/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "manualqa",
		Short: "manual question answering server",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the manualqa server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
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

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	var tokenSubject string
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "mint an admin token for the ingestion endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			token, err := jwt.GenerateToken(tokenSubject, []byte(cfg.JWTSecret), time.Hour*time.Duration(cfg.JWTTTLHours))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "admin", "token subject")

	rootCmd.AddCommand(runCmd, tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	_ = godotenv.Load()
	return config.Load(configPath)
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.Int("embed_dim", cfg.AI.EmbedDim),
	)

	segmentRepo := repo.NewSegmentRepo(conn, cfg.AI.EmbedDim)
	cacheRepo := repo.NewEmbeddingCacheRepo(conn)

	manager, err := buildAIManager(cfg, cacheRepo)
	if err != nil {
		return err
	}

	var store filestore.Store
	if cfg.FileStore.Type != "" {
		store, err = filestore.New(cfg.FileStore)
		if err != nil {
			return fmt.Errorf("init file store: %w", err)
		}
	}

	ingestService := service.NewIngestService(
		segmentRepo,
		manager,
		store,
		cfg.Ingest.ChunkMaxChars,
		cfg.AI.MaxInputChars,
		cfg.Ingest.EmbedConcurrency,
	)
	queryService := service.NewQueryService(
		segmentRepo,
		manager,
		manager,
		cfg.Query.DefaultLimit,
		cfg.Query.MaxLimit,
		cfg.Query.ContextMaxChars,
	)

	deps := handler.RouterDeps{
		Manuals:     handler.NewManualHandler(ingestService, segmentRepo, cfg.Ingest.MaxUploadSize),
		Documents:   handler.NewDocumentHandler(ingestService),
		Query:       handler.NewQueryHandler(queryService),
		Files:       handler.NewFileHandler(store),
		JWTSecret:   []byte(cfg.JWTSecret),
		AskInterval: time.Duration(cfg.Query.AskIntervalSeconds) * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewEmbeddingBackfillJob(ingestService, cfg.Jobs.BackfillBatch), cfg.Jobs.BackfillSpec); err != nil {
		return fmt.Errorf("schedule backfill: %w", err)
	}
	if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(cacheRepo, cfg.Jobs.CacheKeepDays), cfg.Jobs.CacheCleanupSpec); err != nil {
		return fmt.Errorf("schedule cache cleanup: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

// buildAIManager assembles the provider chain: per-endpoint providers are
// grouped for failover, the embedder side is wrapped with the persistent and
// the in-memory cache, and the manager enforces the call contract on top.
func buildAIManager(cfg *config.Config, cacheRepo *repo.EmbeddingCacheRepo) (*ai.Manager, error) {
	generators := make([]ai.GeneratorEntry, 0, len(cfg.AI.Generate))
	for _, ep := range cfg.AI.Generate {
		provider, err := ai.NewGenerateProvider(ep.Provider, ep.Data)
		if err != nil {
			return nil, fmt.Errorf("init generate provider %s: %w", ep.Provider, err)
		}
		generators = append(generators, ai.GeneratorEntry{
			Name:      ep.Provider,
			Generator: ai.NewGenerator(provider, ep.Model),
		})
	}
	embedders := make([]ai.EmbedderEntry, 0, len(cfg.AI.Embed))
	for _, ep := range cfg.AI.Embed {
		provider, err := ai.NewEmbedProvider(ep.Provider, ep.Data)
		if err != nil {
			return nil, fmt.Errorf("init embed provider %s: %w", ep.Provider, err)
		}
		embedders = append(embedders, ai.EmbedderEntry{
			Name:     ep.Provider,
			Embedder: ai.NewEmbedder(provider, ep.Model),
		})
	}
	if len(generators) == 0 || len(embedders) == 0 {
		return nil, fmt.Errorf("at least one generate and one embed endpoint are required")
	}

	embedder := ai.NewGroupEmbedder(embedders)
	embedder = embedcache.WrapDBCacheToEmbedder(embedder, cacheRepo)
	embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.AI.CacheSize, time.Duration(cfg.AI.CacheTTLMinutes)*time.Minute)

	return ai.NewManager(ai.NewGroupGenerator(generators), embedder, ai.ManagerConfig{
		Timeout:       cfg.AI.Timeout,
		MaxInputChars: cfg.AI.MaxInputChars,
		EmbedDim:      cfg.AI.EmbedDim,
	}), nil
}
