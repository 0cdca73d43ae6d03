package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Harsh-BH/certqueue/internal/artifact"
	"github.com/Harsh-BH/certqueue/internal/config"
	handler "github.com/Harsh-BH/certqueue/internal/delivery/http"
	"github.com/Harsh-BH/certqueue/internal/labels"
	"github.com/Harsh-BH/certqueue/internal/publisher"
	redisrepo "github.com/Harsh-BH/certqueue/internal/repository/redis"
	"github.com/Harsh-BH/certqueue/internal/repository/store"
	"github.com/Harsh-BH/certqueue/internal/seed"
	"github.com/Harsh-BH/certqueue/internal/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting certqueue API server")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	gin.SetMode(cfg.Server.GinMode)

	ctx := context.Background()

	stores, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer stores.Close()

	// Connect to Redis
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Failed to parse Redis URL", zap.Error(err))
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to ping Redis", zap.Error(err))
	}
	logger.Info("Connected to Redis")

	// Initialize RabbitMQ publisher
	pub, err := publisher.NewRabbitMQPublisher(cfg.RabbitMQ.URL, logger)
	if err != nil {
		logger.Fatal("Failed to initialize RabbitMQ publisher", zap.Error(err))
	}
	defer pub.Close()
	logger.Info("Connected to RabbitMQ")

	// Reference data must be in place before jobs are accepted.
	if cfg.Seed.ReferenceFile != "" {
		if _, err := seed.New(stores.References, logger).SeedFile(ctx, cfg.Seed.ReferenceFile); err != nil {
			logger.Fatal("Failed to seed reference data", zap.Error(err))
		}
	}

	leases := redisrepo.NewRedisLeaseStore(rdb, cfg.Worker.LeaseTTL)
	generator := artifact.NewGenerator(cfg.Storage.ArtifactDir, stores.Jobs, leases, logger,
		artifact.NewCertificateWorkbook(stores.References),
		artifact.NewLabelDocument(labels.NewDocument(cfg.Labels.TemplatePaths)),
	)

	// Initialize use cases
	jobs := handler.NewJobHandler(
		usecase.NewSubmitJobUsecase(stores.Jobs, pub, logger),
		usecase.NewListJobsUsecase(stores.Jobs, logger),
		usecase.NewGetStatusUsecase(stores.Jobs, logger),
		usecase.NewDownloadArtifactUsecase(stores.Jobs, generator, logger),
		usecase.NewDeleteJobUsecase(stores.Jobs, logger),
		cfg.Storage.UploadDir,
		logger,
	)
	health := handler.NewHealthHandler(map[string]handler.HealthCheck{
		cfg.Store.Driver: stores.Ping,
		"redis":          func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}, logger)

	router := handler.NewRouter(jobs, handler.NewReferenceHandler(stores.References, logger), health,
		handler.RouterConfig{
			RateLimitPerMin: cfg.Server.RateLimit,
			MaxUploadBytes:  cfg.Server.MaxUploadBytes,
		}, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("API server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("API server stopped")
}
