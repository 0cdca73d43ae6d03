package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Harsh-BH/certqueue/internal/artifact"
	"github.com/Harsh-BH/certqueue/internal/config"
	amqpdelivery "github.com/Harsh-BH/certqueue/internal/delivery/amqp"
	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/labels"
	"github.com/Harsh-BH/certqueue/internal/pool"
	redisrepo "github.com/Harsh-BH/certqueue/internal/repository/redis"
	"github.com/Harsh-BH/certqueue/internal/repository/store"
	"github.com/Harsh-BH/certqueue/internal/usecase"
	"github.com/Harsh-BH/certqueue/internal/verifier"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting certqueue worker")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer stores.Close()

	// Connect to Redis
	redisOpts, err := goredis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Invalid Redis URL", zap.Error(err))
	}
	redisClient := goredis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis")

	leases := redisrepo.NewRedisLeaseStore(redisClient, cfg.Worker.LeaseTTL)

	// Pipelines
	generator := artifact.NewGenerator(cfg.Storage.ArtifactDir, stores.Jobs, leases, logger,
		artifact.NewCertificateWorkbook(stores.References),
		artifact.NewLabelDocument(labels.NewDocument(cfg.Labels.TemplatePaths)),
	)
	certRunner := usecase.NewCertificateRunner(stores.Jobs,
		verifier.NewHTTPVerifier(cfg.Verifier.BaseURL, cfg.Verifier.Timeout, logger),
		cfg.Worker.ItemDelay, logger)
	labelRunner := usecase.NewLabelRunner(stores.Jobs, generator, logger)
	processUC := usecase.NewProcessJobUsecase(stores.Jobs, leases, certRunner, labelRunner, logger)

	tasks := make(chan *domain.TaskMessage, cfg.Worker.PoolSize*2)

	// Initialize AMQP consumer
	consumer, err := amqpdelivery.NewConsumer(cfg.RabbitMQ.URL, cfg.Worker.PoolSize, tasks, logger)
	if err != nil {
		logger.Fatal("Failed to initialize AMQP consumer", zap.Error(err))
	}
	defer consumer.Close()
	logger.Info("Connected to RabbitMQ")

	// gRPC health service for orchestrator probes
	healthSrv := health.NewServer()
	grpcSrv := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Worker.HealthPort))
	if err != nil {
		logger.Fatal("Failed to listen for health checks", zap.Error(err))
	}
	go func() {
		logger.Info("Health server listening", zap.Int("port", cfg.Worker.HealthPort))
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("Health server error", zap.Error(err))
		}
	}()

	workerPool := pool.NewWorkerPool(cfg.Worker.PoolSize, tasks, processUC, logger)
	workerPool.Start(ctx)

	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("AMQP consumer error", zap.Error(err))
			healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
			cancel()
		}
	}()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// Prometheus metrics server
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Worker.MetricsPort),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Metrics server listening", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	// Wait for a shutdown signal or a fatal consumer error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("Shutting down worker...")
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	cancel()

	// In-flight jobs run to completion
	workerPool.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)
	healthSrv.Shutdown()
	grpcSrv.GracefulStop()

	logger.Info("Worker stopped")
}
