package container

import (
	"context"
	"fmt"
	"log"
	"time"

	"academy-backend/internal/config"
	infraCache "academy-backend/internal/infrastructure/cache"
	"academy-backend/internal/infrastructure/database"
	"academy-backend/internal/infrastructure/queue"
	"academy-backend/pkg/cache"
	"academy-backend/pkg/clock"
	"academy-backend/pkg/jwt"

	couponHandler "academy-backend/internal/domains/coupon/handler"
	couponRepo "academy-backend/internal/domains/coupon/repository"
	couponService "academy-backend/internal/domains/coupon/service"
	"academy-backend/internal/domains/currency"
	ledgerRepo "academy-backend/internal/domains/redemption/repository"
	reportHandler "academy-backend/internal/domains/report/handler"
	reportService "academy-backend/internal/domains/report/service"
)

// Container is the root of the dependency graph. Initialization order
// matters: config, infrastructure, repositories, services, handlers.
type Container struct {
	// Infrastructure (singletons, shared across domains)
	Config     *config.Config
	DB         *database.PostgresDB
	Redis      *infraCache.RedisClient
	Cache      cache.Cache
	Queue      *queue.Client
	JWTManager *jwt.Manager
	Converter  currency.Converter
	Clock      clock.Clock

	// Repositories
	CouponRepo couponRepo.CouponRepository
	Ledger     ledgerRepo.Ledger

	// Services
	CouponService couponService.CouponService
	ReportService reportService.ReportService

	// Handlers
	CouponHandler *couponHandler.CouponHandler
	ReportHandler *reportHandler.ReportHandler
}

// NewContainer builds the whole dependency graph.
func NewContainer() (*Container, error) {
	c := &Container{}

	// Config first, it depends on nothing.
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	log.Printf("[Container] Config loaded (environment: %s)", cfg.App.Environment)

	// Database
	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.HealthCheck(context.Background()); err != nil {
		return nil, fmt.Errorf("database health check failed: %w", err)
	}
	c.DB = db
	log.Println("[Container] Database connected")

	// Redis. A cache outage is not fatal: the services fall back to the
	// database for reads.
	c.Redis = infraCache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := c.Redis.Connect(context.Background()); err != nil {
		log.Printf("[Container] Redis connection failed (non-critical): %v", err)
	}
	c.Cache = infraCache.NewRedisCache(c.Redis)

	// Task queue client
	c.Queue = queue.NewClient(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)

	// Exchange-rate snapshot, JWT, clock
	rateTable, err := cfg.RateTable()
	if err != nil {
		return nil, fmt.Errorf("failed to build rate table: %w", err)
	}
	c.Converter = rateTable
	c.JWTManager = jwt.NewManager(cfg.JWT.Secret)
	c.Clock = clock.System()

	c.initRepositories()
	c.initServices()
	c.initHandlers()

	log.Println("[Container] Initialized")
	return c, nil
}

func (c *Container) initRepositories() {
	pool := c.DB.Pool

	c.CouponRepo = couponRepo.NewPostgresRepository(pool)
	c.Ledger = ledgerRepo.NewPostgresLedger(pool)
}

func (c *Container) initServices() {
	validator := couponService.NewValidator(c.Converter)

	c.CouponService = couponService.NewCouponService(
		c.CouponRepo,
		c.Ledger,
		validator,
		c.Converter,
		c.Clock,
		c.Cache,
		c.Queue,
	)

	c.ReportService = reportService.NewReportService(
		c.Ledger,
		c.CouponRepo,
		c.Cache,
	)
}

func (c *Container) initHandlers() {
	c.CouponHandler = couponHandler.NewCouponHandler(c.CouponService)
	c.ReportHandler = reportHandler.NewReportHandler(c.ReportService)
}

// Cleanup releases infrastructure resources on shutdown.
func (c *Container) Cleanup() {
	if c.Queue != nil {
		if err := c.Queue.Close(); err != nil {
			log.Printf("[Container] Failed to close queue client: %v", err)
		}
	}

	if c.DB != nil {
		_ = c.DB.Close()
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Printf("[Container] Failed to close Redis: %v", err)
		}
	}

	log.Println("[Container] Cleanup completed")
}
