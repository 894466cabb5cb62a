package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/SignpostApp/landing/internal/config"
	"github.com/SignpostApp/landing/internal/database"
	"github.com/SignpostApp/landing/internal/events"
	"github.com/SignpostApp/landing/internal/handlers"
	"github.com/SignpostApp/landing/internal/logging"
	"github.com/SignpostApp/landing/internal/ratelimit"
	"github.com/SignpostApp/landing/internal/services"
	"github.com/SignpostApp/landing/internal/stats"
	"github.com/SignpostApp/landing/internal/store"
	"github.com/SignpostApp/landing/internal/validation"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const contentSecurityPolicy = "default-src 'self'; frame-ancestors 'none'"

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Init DB
	db, err := database.Open(cfg.DBDriver, cfg.DBDSN, logger)
	if err != nil {
		logger.Fatal("Failed to init DB", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Warn("close database", zap.Error(err))
		}
	}()

	// 3. Redis (rate limit backend and stats), optional
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("Failed to reach redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
	}

	// 4. Admission pipeline
	var backend ratelimit.Backend
	switch cfg.RateLimitBackend {
	case "redis":
		backend = ratelimit.NewRedisBackend(rdb)
	default:
		backend = ratelimit.NewSQLBackend(store.NewBuckets(db))
	}
	limiter := ratelimit.NewLimiter(backend,
		ratelimit.Tier{Limit: cfg.GlobalLimit, Window: cfg.RateLimitWindow},
		ratelimit.Tier{Limit: cfg.DomainLimit, Window: cfg.RateLimitWindow},
	)

	blocked := append(append([]string{}, validation.DefaultBlockedDomains...), cfg.BlockedDomains...)
	validator := validation.New(blocked, cfg.MaxClockSkew)

	var recorder interface {
		stats.Recorder
		stats.Reader
	}
	if rdb != nil {
		recorder = stats.NewRedis(rdb)
	} else {
		recorder = stats.NewMemory()
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("close event publisher", zap.Error(err))
		}
	}()

	opts := []services.Option{
		services.WithPublisher(publisher),
		services.WithRecorder(recorder),
		services.WithSource(cfg.Source),
	}
	if cfg.CheckMX {
		opts = append(opts, services.WithDomainProber(services.NewDomainService(nil)))
	}
	waitlistSvc := services.NewWaitlistService(store.NewWaitlist(db), limiter, validator, logger.Named("waitlist"), opts...)

	// 5. API Server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if cfg.TrustProxyHeaders {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	secure := middleware.SecureConfig{
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: contentSecurityPolicy,
	}
	if cfg.HSTS {
		secure.HSTSMaxAge = 63072000
		secure.HSTSPreloadEnabled = true
	}

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(handlers.RequestLogger(logger.Named("http")))
	e.Use(middleware.Recover())
	e.Use(middleware.SecureWithConfig(secure))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderContentType},
	}))
	e.Use(middleware.BodyLimit("4K"))
	e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{Timeout: cfg.RequestTimeout}))

	routeOpts := handlers.Options{
		Logger: logger.Named("http"),
		Health: func(ctx context.Context) error { return database.Ping(ctx, db) },
	}
	if cfg.ExposeStats {
		routeOpts.Stats = recorder
	}
	if cfg.LookupRPS > 0 {
		throttle := handlers.NewLookupThrottle(cfg.LookupRPS, cfg.LookupBurst)
		throttle.StartJanitor(ctx)
		routeOpts.Lookup = throttle
	}

	api := e.Group("/api")
	handlers.RegisterRoutes(e, api, waitlistSvc, routeOpts)

	go func() {
		logger.Info("waitlist starting",
			zap.String("addr", cfg.ServerAddress),
			zap.String("db_driver", cfg.DBDriver),
			zap.String("rate_limit_backend", cfg.RateLimitBackend),
		)
		if err := e.Start(cfg.ServerAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", zap.Error(err))
	}
}
