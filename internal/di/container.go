package di

import (
	"github.com/prohmpiriya/studycafe-seatmap/internal/handler"
	"github.com/prohmpiriya/studycafe-seatmap/internal/middleware"
	"github.com/prohmpiriya/studycafe-seatmap/internal/repository"
	"github.com/prohmpiriya/studycafe-seatmap/internal/service"
	"github.com/prohmpiriya/studycafe-seatmap/internal/worker"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/database"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/logger"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/redis"
)

// Container holds all dependencies for the seat map service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client
	Log   *logger.Logger

	// Repositories
	SeatRepo    repository.SeatRepository
	SessionRepo repository.SessionRepository

	// Publishers
	EventPublisher service.EventPublisher

	// Stores
	IdempotencyStore middleware.IdempotencyStore

	// Services
	AssignmentService service.AssignmentService
	ViewerService     service.ViewerService

	// Workers
	ViewerSweeper *worker.ViewerSweeper

	// Handlers
	HealthHandler *handler.HealthHandler
	ViewerHandler *handler.ViewerHandler
	CafeHandler   *handler.CafeHandler
}

// ContainerConfig contains configuration for building the container.
// DB and Redis may be nil; repositories must be set.
type ContainerConfig struct {
	DB               *database.PostgresDB
	Redis            *redis.Client
	Log              *logger.Logger
	SeatRepo         repository.SeatRepository
	SessionRepo      repository.SessionRepository
	EventPublisher   service.EventPublisher
	AssignmentConfig *service.AssignmentServiceConfig
	ViewerConfig     *service.ViewerServiceConfig
	SweeperConfig    *worker.ViewerSweeperConfig
	StreamConfig     *handler.StreamConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	log := cfg.Log
	if log == nil {
		log = logger.Get()
	}

	c := &Container{
		DB:             cfg.DB,
		Redis:          cfg.Redis,
		Log:            log,
		SeatRepo:       cfg.SeatRepo,
		SessionRepo:    cfg.SessionRepo,
		EventPublisher: cfg.EventPublisher,
	}
	if c.EventPublisher == nil {
		c.EventPublisher = service.NewNoOpEventPublisher()
	}

	if c.Redis != nil {
		c.IdempotencyStore = middleware.NewRedisIdempotencyStore(c.Redis.Client)
	} else {
		c.IdempotencyStore = middleware.NewMemoryIdempotencyStore()
	}

	// Initialize services
	c.AssignmentService = service.NewAssignmentService(
		c.SeatRepo,
		c.SessionRepo,
		c.EventPublisher,
		log,
		cfg.AssignmentConfig,
	)
	c.ViewerService = service.NewViewerService(c.AssignmentService, log, cfg.ViewerConfig)

	// Initialize workers
	c.ViewerSweeper = worker.NewViewerSweeper(c.ViewerService, cfg.SweeperConfig, log)

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler(c.DB, c.Redis)
	c.ViewerHandler = handler.NewViewerHandler(c.ViewerService, log, cfg.StreamConfig)
	c.CafeHandler = handler.NewCafeHandler(c.AssignmentService)

	return c
}
