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

	"github.com/zer0-A1/emineon-search/internal/ai"
	"github.com/zer0-A1/emineon-search/internal/capability"
	"github.com/zer0-A1/emineon-search/internal/config"
	"github.com/zer0-A1/emineon-search/internal/db"
	"github.com/zer0-A1/emineon-search/internal/embedcache"
	"github.com/zer0-A1/emineon-search/internal/handler"
	"github.com/zer0-A1/emineon-search/internal/job"
	"github.com/zer0-A1/emineon-search/internal/middleware"
	"github.com/zer0-A1/emineon-search/internal/model"
	"github.com/zer0-A1/emineon-search/internal/projection"
	"github.com/zer0-A1/emineon-search/internal/repo"
	"github.com/zer0-A1/emineon-search/internal/schedule"
	"github.com/zer0-A1/emineon-search/internal/service"
)

func main() {
	var configPath string
	var reindexType string
	var reindexID string

	rootCmd := &cobra.Command{
		Use:   "emineon-search",
		Short: "emineon hybrid search service",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run search service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, dbConn, err := setup(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg, dbConn)
		},
	}

	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "rebuild search documents for one source type",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, dbConn, err := setup(configPath)
			if err != nil {
				return err
			}
			return runReindex(cfg, dbConn, reindexType, reindexID)
		},
	}
	reindexCmd.Flags().StringVar(&reindexType, "type", "", "source type to rebuild")
	reindexCmd.Flags().StringVar(&reindexID, "id", "", "rebuild a single entity instead of the whole type")

	rootCmd.AddCommand(runCmd, reindexCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func setup(configPath string) (*config.Config, *sql.DB, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
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

	dbConn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(dbConn); err != nil {
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return cfg, dbConn, nil
}

type services struct {
	caps       *capability.State
	searchRepo *repo.SearchDocumentRepo
	cacheRepo  *repo.EmbeddingCacheRepo
	reindex    *service.ReindexService
	search     *service.SearchService
}

func buildServices(ctx context.Context, cfg *config.Config, dbConn *sql.DB) (*services, error) {
	caps := capability.NewState()
	searchRepo := repo.NewSearchDocumentRepo(dbConn, caps, cfg.AI.Dimension)
	if err := searchRepo.Provision(ctx); err != nil {
		return nil, fmt.Errorf("provision search storage: %w", err)
	}
	cacheRepo := repo.NewEmbeddingCacheRepo(dbConn)
	entityRepo := repo.NewEntityRepo(dbConn)

	embClient := buildEmbedClient(ctx, cfg, cacheRepo, caps)

	registry := projection.NewRegistry()
	registry.Register(model.SourceTypeCandidate, projection.NewCandidateProjector(entityRepo))
	registry.Register(model.SourceTypeJob, projection.NewJobProjector(entityRepo))
	registry.Register(model.SourceTypeClientContact, projection.NewClientContactProjector(entityRepo))
	registry.Register(model.SourceTypeDocument, projection.NewCrmDocumentProjector(entityRepo))

	reindexService, err := service.NewReindexService(registry, searchRepo, embClient, caps, service.ReindexConfig{
		Workers:    cfg.Reindex.Workers,
		BatchDelay: time.Duration(cfg.Reindex.BatchDelayMS) * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	searchService := service.NewSearchService(searchRepo, embClient, caps, service.SearchServiceConfig{
		DefaultLimit:    cfg.Search.DefaultLimit,
		OverFetchFactor: cfg.Search.OverFetchFactor,
		Weights:         service.Weights{Vector: cfg.Search.VectorWeight, Lexical: cfg.Search.LexicalWeight},
	})
	return &services{
		caps:       caps,
		searchRepo: searchRepo,
		cacheRepo:  cacheRepo,
		reindex:    reindexService,
		search:     searchService,
	}, nil
}

func buildEmbedClient(ctx context.Context, cfg *config.Config, cacheRepo *repo.EmbeddingCacheRepo, caps *capability.State) *ai.Client {
	entries := make([]ai.EmbedderEntry, 0, len(cfg.AI.Providers))
	for _, pc := range cfg.AI.Providers {
		provider, err := ai.NewEmbedProvider(pc.Provider, pc.Data)
		if err != nil {
			logutil.GetLogger(ctx).Warn("skip embed provider", zap.String("provider", pc.Provider), zap.Error(err))
			continue
		}
		entries = append(entries, ai.EmbedderEntry{
			Name:     pc.Provider + "/" + pc.Model,
			Embedder: ai.NewEmbedder(provider, pc.Model),
		})
	}
	embedder := ai.NewGroupEmbedder(entries)
	if embedder == nil {
		caps.DisableEmbedding(ctx, "no usable embedding provider configured")
	} else {
		embedder = embedcache.WrapDBCacheToEmbedder(embedder, cacheRepo)
		embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.AI.CacheSize, time.Duration(cfg.AI.CacheTTLMinutes)*time.Minute)
	}
	return ai.NewClient(embedder, ai.ClientConfig{
		Dimension:     cfg.AI.Dimension,
		MaxInputChars: cfg.AI.MaxInputChars,
		MaxAttempts:   cfg.AI.MaxAttempts,
		BaseDelay:     time.Duration(cfg.AI.RetryBaseDelayMS) * time.Millisecond,
		Timeout:       time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
	})
}

func runServer(cfg *config.Config, dbConn *sql.DB) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logutil.GetLogger(ctx).Info("starting server", zap.Int("port", cfg.Port))

	svcs, err := buildServices(ctx, cfg, dbConn)
	if err != nil {
		return err
	}
	defer svcs.reindex.Close()

	scheduler := schedule.New()
	if err := scheduler.Register(job.NewReindexSweepJob(svcs.reindex, cfg.Reindex.SweepBatchSize, cfg.Reindex.SweepCron)); err != nil {
		return err
	}
	if err := scheduler.Register(job.NewEmbeddingCacheCleanupJob(svcs.cacheRepo, cfg.Reindex.CacheKeepDays, cfg.Reindex.CacheCleanupCron)); err != nil {
		return err
	}

	deps := handler.RouterDeps{
		Search: handler.NewSearchHandler(svcs.search),
		Admin:  handler.NewAdminHandler(svcs.reindex, svcs.searchRepo, svcs.caps, scheduler),
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func runReindex(cfg *config.Config, dbConn *sql.DB, rawType, id string) error {
	ctx := context.Background()
	st, err := model.ParseSourceType(rawType)
	if err != nil {
		return err
	}
	svcs, err := buildServices(ctx, cfg, dbConn)
	if err != nil {
		return err
	}
	defer svcs.reindex.Close()

	if id != "" {
		if err := svcs.reindex.Process(ctx, model.SourceKey{SourceType: st, SourceID: id}, service.ReasonUpdate); err != nil {
			return err
		}
		fmt.Printf("reindexed %s/%s\n", st, id)
		return nil
	}
	result, err := svcs.reindex.ReindexAll(ctx, st)
	if err != nil {
		return err
	}
	fmt.Printf("done: processed=%d failed=%d\n", result.Processed, result.Failed)
	return nil
}
