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

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/studycafe-seatmap/internal/di"
	"github.com/prohmpiriya/studycafe-seatmap/internal/handler"
	"github.com/prohmpiriya/studycafe-seatmap/internal/middleware"
	"github.com/prohmpiriya/studycafe-seatmap/internal/repository"
	"github.com/prohmpiriya/studycafe-seatmap/internal/seatmap"
	"github.com/prohmpiriya/studycafe-seatmap/internal/service"
	"github.com/prohmpiriya/studycafe-seatmap/internal/worker"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/config"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/database"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/logger"
	pkgredis "github.com/prohmpiriya/studycafe-seatmap/pkg/redis"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/telemetry"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Seat Map Service...", zap.String("version", cfg.App.Version))

	ctx := context.Background()

	// Initialize tracing
	if err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Warn(fmt.Sprintf("Tracing disabled: %v", err))
	}

	// Seat catalog: PostgreSQL, or an in-memory demo cafe
	var db *database.PostgresDB
	var seatRepo repository.SeatRepository
	if cfg.Database.Enabled {
		dbCfg := &database.PostgresConfig{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.DBName,
			SSLMode:         cfg.Database.SSLMode,
			MaxConns:        int32(cfg.Database.MaxOpenConns),
			MinConns:        int32(cfg.Database.MaxIdleConns),
			MaxConnLifetime: cfg.Database.ConnMaxLifetime,
			MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
			ConnectTimeout:  database.DefaultPostgresConfig().ConnectTimeout,
			MaxRetries:      3,
			RetryInterval:   database.DefaultPostgresConfig().RetryInterval,
			EnableTracing:   cfg.OTel.Enabled,
		}
		db, err = database.NewPostgres(ctx, dbCfg)
		if err != nil {
			appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
		}
		defer db.Close()
		seatRepo = repository.NewPostgresSeatRepository(db.Pool())
		appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))
	} else {
		mem := repository.NewMemorySeatRepository()
		mem.Put(demoCafeID, demoSeats())
		seatRepo = mem
		appLog.Warn("Database disabled, serving the in-memory demo cafe", zap.String("cafe_id", demoCafeID))
	}

	// Active sessions: Redis, or in memory
	var redisClient *pkgredis.Client
	var sessionRepo repository.SessionRepository
	if cfg.Redis.Enabled {
		redisCfg := &pkgredis.Config{
			Host:          cfg.Redis.Host,
			Port:          cfg.Redis.Port,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			PoolSize:      cfg.Redis.PoolSize,
			MinIdleConns:  cfg.Redis.MinIdleConns,
			DialTimeout:   cfg.Redis.DialTimeout,
			ReadTimeout:   cfg.Redis.ReadTimeout,
			WriteTimeout:  cfg.Redis.WriteTimeout,
			MaxRetries:    3,
			RetryInterval: pkgredis.DefaultConfig().RetryInterval,
		}
		redisClient, err = pkgredis.NewClient(ctx, redisCfg)
		if err != nil {
			appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
		}
		defer redisClient.Close()

		redisSessions := repository.NewRedisSessionRepository(redisClient)
		if err := redisSessions.LoadScripts(ctx); err != nil {
			appLog.Warn(fmt.Sprintf("Failed to pre-load Lua scripts: %v", err))
		} else {
			appLog.Info("Lua scripts pre-loaded into Redis")
		}
		sessionRepo = redisSessions
		appLog.Info(fmt.Sprintf("Redis connected (pool: %d, minIdle: %d)", redisCfg.PoolSize, redisCfg.MinIdleConns))
	} else {
		sessionRepo = repository.NewMemorySessionRepository()
		appLog.Warn("Redis disabled, active sessions are kept in memory")
	}

	// Assignment events
	var eventPublisher service.EventPublisher = service.NewNoOpEventPublisher()
	if cfg.Kafka.Enabled {
		publisher, err := service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.AssignmentTopic,
			ServiceName: cfg.App.Name,
			ClientID:    cfg.Kafka.ClientID,
		})
		if err != nil {
			appLog.Warn(fmt.Sprintf("Kafka connection failed, using no-op publisher: %v", err))
		} else {
			eventPublisher = publisher
			appLog.Info("Kafka event publisher connected", zap.String("topic", cfg.Kafka.AssignmentTopic))
		}
	}
	defer eventPublisher.Close()

	mapOpts := seatmap.Options{
		Limits: seatmap.ViewportLimits{
			MinScale: cfg.SeatMap.MinScale,
			MaxScale: cfg.SeatMap.MaxScale,
			ZoomStep: cfg.SeatMap.ZoomStep,
		},
		GridSpacing: cfg.SeatMap.GridSpacing,
		WallPrefix:  cfg.SeatMap.WallPrefix,
	}
	viewerCfg := service.DefaultViewerServiceConfig()
	viewerCfg.Map = mapOpts
	viewerCfg.AssignTimeout = cfg.SeatMap.AssignTimeout
	viewerCfg.NoticeBuffer = cfg.SeatMap.NoticeBuffer

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		DB:               db,
		Redis:            redisClient,
		Log:              appLog,
		SeatRepo:         seatRepo,
		SessionRepo:      sessionRepo,
		EventPublisher:   eventPublisher,
		AssignmentConfig: &service.AssignmentServiceConfig{WallPrefix: cfg.SeatMap.WallPrefix},
		ViewerConfig:     viewerCfg,
		SweeperConfig: &worker.ViewerSweeperConfig{
			Interval: cfg.SeatMap.SweepInterval,
			IdleTTL:  cfg.SeatMap.ViewerIdleTTL,
		},
		StreamConfig: handler.DefaultStreamConfig(),
	})

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.NoRoute(handler.NoRoute)
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(appLog))
	router.Use(telemetry.TracingMiddleware("/health", "/ready"))
	router.Use(middleware.CORS())

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"version": cfg.App.Version,
				"service": cfg.App.Name,
				"viewers": container.ViewerService.Count(),
				"sweeper": container.ViewerSweeper.Stats(),
			})
		})

		authed := v1.Group("", middleware.Auth(middleware.AuthConfig{
			Enabled: cfg.JWT.Enabled,
			Secret:  cfg.JWT.Secret,
			Issuer:  cfg.JWT.Issuer,
		}))
		container.ViewerHandler.RegisterRoutes(authed,
			middleware.Idempotency(middleware.DefaultIdempotencyConfig(container.IdempotencyStore)))
		container.CafeHandler.RegisterRoutes(authed)
	}

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	if err := container.ViewerSweeper.Start(workerCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to start viewer sweeper: %v", err))
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("Seat Map Service listening on %s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error(fmt.Sprintf("Server forced to shutdown: %v", err))
	}
	container.ViewerSweeper.Stop()
	if err := container.ViewerService.Shutdown(shutdownCtx); err != nil {
		appLog.Warn(fmt.Sprintf("Viewers did not drain: %v", err))
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		appLog.Warn(fmt.Sprintf("Tracer shutdown failed: %v", err))
	}

	appLog.Info("Server exited gracefully")
}

const demoCafeID = "demo"

// demoSeats is a small room used when no database is configured
func demoSeats() []seatmap.RawSeat {
	return []seatmap.RawSeat{
		{ID: "WALL-N", Label: "WALL-N", Placement: "0,0,420,10"},
		{ID: "A1", Label: "A1", Placement: "20,30,60,60"},
		{ID: "A2", Label: "A2", Placement: "100,30,60,60"},
		{ID: "A3", Label: "A3", Placement: "180,30,60,60"},
		{ID: "B1", Label: "B1", Placement: "20,120,60,60"},
		{ID: "B2", Label: "B2", Placement: "100,120,60,60"},
		{ID: "R1", Label: "Room 1", Placement: "280,30,120,150"},
	}
}
