package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"furniture-erp/config"
	"furniture-erp/internal/api"
	"furniture-erp/internal/archive"
	"furniture-erp/internal/auth"
	"furniture-erp/internal/broker"
	"furniture-erp/internal/redisclient"
	"furniture-erp/internal/service"
	"furniture-erp/internal/sse"
	"furniture-erp/internal/store"
	"furniture-erp/internal/util"
	"furniture-erp/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting furniture ERP", zap.String("env", cfg.Server.Env))

	tp, err := util.InitTracer(cfg.Observ, cfg.Server.Env)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx)
	migrateCancel()
	if err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	logger.Info("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicEvents))

	eventPublisher := broker.NewEventPublisher(producer)

	var uploads archive.S3Interface
	if cfg.Storage.Enabled() {
		s3Archive, err := archive.NewS3Archive(context.Background(), cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to initialize upload archive: %v", err)
		}
		uploads = s3Archive
		logger.Info("Upload archive enabled", zap.String("bucket", cfg.Storage.Bucket))
	}

	customerService := service.NewCustomerService(db, db)
	fragmentService := service.NewFragmentService(db, redisClient, eventPublisher, cfg.Business.FragmentLockTTL)
	orderService := service.NewOrderService(db, customerService, fragmentService, redisClient, eventPublisher)
	agendaService := service.NewAgendaService(db, db, fragmentService, eventPublisher, cfg.Business.Location())
	catalogService := service.NewCatalogService(db, redisClient, eventPublisher,
		cfg.Business.PageSize, cfg.Business.SearchLimit, cfg.Redis.CacheTTL)
	importService := service.NewImportService(db, db, catalogService, uploads, eventPublisher)

	hub := sse.NewHub()

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	changeConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.InstanceGroup())
	changeWorker := worker.NewChangeWorker(changeConsumer, db, redisClient, hub, cfg.Kafka.InstanceID)
	logger.Info("Change worker joined consumer group", zap.String("group", cfg.Kafka.InstanceGroup()))
	go func() {
		if err := changeWorker.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Change worker error", zap.Error(err))
		}
	}()

	authn, err := auth.Middleware(cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize authentication: %v", err)
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(api.Services{
		Customers: customerService,
		Orders:    orderService,
		Fragments: fragmentService,
		Agenda:    agendaService,
		Catalog:   catalogService,
		Imports:   importService,
		Hub:       hub,
		Checks: map[string]api.Pinger{
			"postgres": db,
			"redis":    redisClient,
		},
		MaxUploadBytes: cfg.Business.MaxUploadBytes,
	})
	handler.SetupRoutes(router, authn, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// SSE streams never finish on their own, close them before draining
	hub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := changeWorker.Stop(); err != nil {
		logger.Warn("Failed to stop change worker", zap.Error(err))
	}

	logger.Info("Server exited")
}
