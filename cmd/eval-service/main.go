package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeval/internal/eval/cache"
	"codeval/internal/eval/catalog"
	"codeval/internal/eval/controller"
	"codeval/internal/eval/harness"
	"codeval/internal/eval/language"
	"codeval/internal/eval/repository"
	"codeval/internal/eval/sandbox/backend"
	"codeval/internal/eval/sandbox/executor"
	"codeval/internal/eval/service"
	"codeval/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/eval_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	var src catalog.Source
	switch appCfg.Catalog.Mode {
	case "minio":
		minioSrc, err := catalog.NewMinIOSource(appCfg.Catalog.MinIO)
		if err != nil {
			logger.Error(context.Background(), "init minio catalog failed", zap.Error(err))
			return
		}
		src = minioSrc
	default:
		src = catalog.NewLocalSource(appCfg.Catalog.LocalDir)
	}

	if appCfg.Redis.Addr != "" {
		problemCache, err := cache.NewProblemCache(appCfg.Redis)
		if err != nil {
			logger.Error(context.Background(), "init redis failed", zap.Error(err))
			return
		}
		defer func() {
			_ = problemCache.Close()
		}()
		src = catalog.NewCachedSource(src, problemCache)
	}

	var publisher repository.ReportPublisher = repository.NoopPublisher{}
	if len(appCfg.Kafka.Brokers) > 0 {
		kafkaPub, err := repository.NewKafkaPublisher(appCfg.Kafka)
		if err != nil {
			logger.Error(context.Background(), "init kafka publisher failed", zap.Error(err))
			return
		}
		publisher = kafkaPub
	}

	execCfg := appCfg.Sandbox.toExecutorConfig()
	metrics := executor.NoopMetricsRecorder{}
	selector := backend.NewSelector(
		executor.NewIsolatedExecutor(execCfg, metrics),
		executor.NewDirectExecutor(execCfg, metrics),
		backend.DefaultProber(execCfg.HelperPath),
	)

	registry := language.DefaultRegistry()
	slots := service.NewSlotPool(appCfg.Worker.PoolSize)
	h := harness.New(selector, registry, slots, appCfg.Harness)
	svc := service.NewService(src, h, registry, selector, slots, publisher)
	defer func() {
		_ = svc.Close()
	}()

	httpServer := buildHTTPServer(appCfg.Server, svc)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "eval http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}

func buildHTTPServer(cfg ServerConfig, svc *service.Service) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(controller.TraceContext())
	router.Use(requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	evalController := controller.NewEvalController(svc)
	evalController.RegisterRoutes(api)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
