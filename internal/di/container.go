package di

import (
	"context"
	"fmt"

	"github.com/Riddimental/Backend-Noctra/internal/cache"
	"github.com/Riddimental/Backend-Noctra/internal/events"
	"github.com/Riddimental/Backend-Noctra/internal/feed"
	"github.com/Riddimental/Backend-Noctra/internal/handler"
	"github.com/Riddimental/Backend-Noctra/internal/media"
	"github.com/Riddimental/Backend-Noctra/internal/repository"
	"github.com/Riddimental/Backend-Noctra/internal/service"
	"github.com/Riddimental/Backend-Noctra/migrations"
	"github.com/Riddimental/Backend-Noctra/pkg/config"
	"github.com/Riddimental/Backend-Noctra/pkg/database"
	"github.com/Riddimental/Backend-Noctra/pkg/kafka"
	"github.com/Riddimental/Backend-Noctra/pkg/logger"
	"github.com/Riddimental/Backend-Noctra/pkg/middleware"
	"github.com/Riddimental/Backend-Noctra/pkg/redis"
	"github.com/Riddimental/Backend-Noctra/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Container holds all dependencies for the API
type Container struct {
	Config *config.Config

	// Infrastructure; DB, Redis and Producer are nil when not configured
	DB        *database.PostgresDB
	Redis     *redis.Client
	Producer  *kafka.Producer
	Media     *media.LocalStorage
	Metrics   *telemetry.Metrics
	Publisher events.Publisher
	Audit     *middleware.AuditLogger
	Limiter   *middleware.RateLimiter

	// Repositories
	Store *repository.Store

	// Services
	GraphService       service.GraphService
	ContentService     service.ContentService
	TicketService      service.TicketService
	ReservationService service.ReservationService
	FeedEngine         *feed.Engine

	// Handlers
	Handlers *handler.Handlers
	Router   *gin.Engine
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	Config  *config.Config
	Metrics *telemetry.Metrics
}

// NewContainer connects the configured backends and wires every layer.
// On error everything opened so far is closed.
func NewContainer(ctx context.Context, cfg *ContainerConfig) (c *Container, err error) {
	c = &Container{Config: cfg.Config, Metrics: cfg.Metrics}
	defer func() {
		if err != nil {
			c.Close()
			c = nil
		}
	}()

	if err := c.initInfrastructure(ctx); err != nil {
		return c, err
	}
	c.initServices()
	c.initHandlers()
	return c, nil
}

func (c *Container) initInfrastructure(ctx context.Context) error {
	cfg := c.Config
	log := logger.Get()

	if cfg.Database.IsMemory() {
		c.Store = repository.NewMemoryStore()
		log.Info("using in-memory store")
	} else {
		db, err := database.NewPostgres(ctx, database.FromAppConfig(cfg.Database))
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		c.DB = db
		if cfg.Database.AutoMigrate {
			if err := db.Migrate(ctx, migrations.FS, "."); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		c.Store = repository.NewPostgresStore(db.Pool())
		c.Audit = middleware.NewAuditLogger(middleware.DefaultAuditConfig(middleware.NewPostgresAuditSink(db.Pool())))
	}

	if cfg.Redis.Enabled {
		rdb, err := redis.NewClient(ctx, redis.FromAppConfig(cfg.Redis))
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		c.Redis = rdb
	}

	c.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(ctx, kafka.FromAppConfig(cfg.Kafka))
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		c.Producer = producer
		c.Publisher = events.NewKafkaPublisher(producer)
	}

	storage, err := media.NewLocalStorage(cfg.Media.RootDir, cfg.Media.BaseURL)
	if err != nil {
		return fmt.Errorf("media storage: %w", err)
	}
	c.Media = storage

	if cfg.RateLimit.Enabled {
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		rl.Redis = c.Redis
		c.Limiter = middleware.NewRateLimiter(rl)
	}

	log.Info("infrastructure ready",
		zap.Bool("postgres", c.DB != nil),
		zap.Bool("redis", c.Redis != nil),
		zap.Bool("kafka", c.Producer != nil),
	)
	return nil
}

func (c *Container) initServices() {
	cfg := c.Config

	// interfaces stay nil rather than holding a nil pointer
	var (
		soldOut service.SoldOutCache
		memo    service.PurchaseMemo
	)
	if c.Redis != nil {
		soldOut = cache.NewSoldOutGate(c.Redis, cfg.Ticketing.SoldOutTTL)
		memo = cache.NewPurchaseMemo(c.Redis, cfg.Ticketing.IdempotencyTTL)
	}

	c.GraphService = service.NewGraphService(c.Store, c.Publisher, c.Metrics, cfg.Feed.DefaultPageSize)
	c.ContentService = service.NewContentService(c.Store, c.Media, c.Publisher, c.Metrics, cfg.Media.MaxFileSize)
	c.TicketService = service.NewTicketService(c.Store, service.TicketServiceConfig{
		MaxPurchaseRetries: cfg.Ticketing.MaxPurchaseRetries,
		RetryBackoff:       cfg.Ticketing.RetryBackoff,
		ValidityWindow:     cfg.Ticketing.ValidityWindow,
		CodeLength:         cfg.Ticketing.CodeLength,
	}, soldOut, memo, c.Publisher, c.Metrics)
	c.ReservationService = service.NewReservationService(c.Store, c.Publisher)
	c.FeedEngine = feed.NewEngine(c.Store, feed.Config{
		DefaultPageSize:  cfg.Feed.DefaultPageSize,
		MaxPageSize:      cfg.Feed.MaxPageSize,
		FetchConcurrency: cfg.Feed.FetchConcurrency,
		SourceBatchSize:  cfg.Feed.SourceBatchSize,
	}, c.Metrics)
}

func (c *Container) initHandlers() {
	checkers := map[string]handler.Checker{}
	if c.DB != nil {
		checkers["postgres"] = c.DB.HealthCheck
	}
	if c.Redis != nil {
		checkers["redis"] = c.Redis.HealthCheck
	}

	c.Handlers = &handler.Handlers{
		Profile:     handler.NewProfileHandler(c.GraphService),
		Club:        handler.NewClubHandler(c.GraphService),
		Post:        handler.NewPostHandler(c.ContentService, c.GraphService, c.Config.Media.MaxFileSize),
		Feed:        handler.NewFeedHandler(c.FeedEngine, c.GraphService),
		Event:       handler.NewEventHandler(c.TicketService, c.ReservationService, c.GraphService),
		Reservation: handler.NewReservationHandler(c.ReservationService, c.GraphService),
		Health:      handler.NewHealthHandler(c.Config.App.Version, checkers),
	}

	rc := handler.RouterConfig{
		JWT:         &middleware.JWTConfig{Secret: c.Config.JWT.Secret, Issuer: c.Config.JWT.Issuer},
		Audit:       c.Audit,
		Metrics:     c.Metrics,
		MediaRoot:   c.Media.Root(),
		MediaURL:    c.Media.BaseURL(),
		CORSOrigins: c.Config.CORS.AllowedOrigins,
	}
	if c.Limiter != nil {
		rc.PurchaseLimit = c.Limiter.Handler()
	}
	c.Router = handler.NewRouter(c.Handlers, rc)
}

// Close releases every backend in reverse order of creation
func (c *Container) Close() {
	if c.Limiter != nil {
		c.Limiter.Stop()
	}
	if c.Producer != nil {
		c.Producer.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logger.Warn("close redis", zap.Error(err))
		}
	}
	if c.Audit != nil {
		if err := c.Audit.Close(); err != nil {
			logger.Warn("close audit logger", zap.Error(err))
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
