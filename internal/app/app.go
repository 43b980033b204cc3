package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/thumbfast/server/internal/adapter/outbound/gemini"
	s3archive "github.com/thumbfast/server/internal/adapter/outbound/s3"
	"github.com/thumbfast/server/internal/module/generation"
	"github.com/thumbfast/server/internal/module/history"
	"github.com/thumbfast/server/internal/module/stats"
	"github.com/thumbfast/server/internal/shared/config"
	"github.com/thumbfast/server/internal/shared/database"
	"github.com/thumbfast/server/internal/shared/logger"
	"github.com/thumbfast/server/internal/shared/metrics"
	"github.com/thumbfast/server/internal/shared/middleware"
)

const (
	healthPath  = "/health"
	metricsPath = "/metrics"
)

// Application is implemented by App.
type Application interface {
	Router() *gin.Engine
	Run(ctx context.Context) error
	Stop()
}

// App holds all application components.
type App struct {
	config    *config.Config
	logger    *logger.Logger
	zapLogger *zap.Logger
	metrics   *metrics.Metrics
	router    *gin.Engine

	db    *gorm.DB
	redis redis.UniversalClient

	imageClient       generation.ImageClient
	generationService *generation.Service
	historyService    *history.Service
	statsTracker      *stats.Tracker
	recorder          *Recorder
	rateLimiter       middleware.RateLimiter
}

// Option customizes App construction.
type Option func(*App)

// WithImageClient replaces the Gemini client, mainly for tests.
func WithImageClient(client generation.ImageClient) Option {
	return func(a *App) {
		a.imageClient = client
	}
}

// New wires every component from cfg. ctx bounds the store connection checks.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	// Initialize logger
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	// Initialize zap logger for modules that use zap
	zapLog, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init zap logger: %w", err)
	}

	app := &App{
		config:    cfg,
		logger:    log,
		zapLogger: zapLog,
		metrics:   metrics.New("thumbfast"),
	}
	for _, opt := range opts {
		opt(app)
	}

	if err := app.initModules(ctx); err != nil {
		app.Stop()
		return nil, fmt.Errorf("init modules: %w", err)
	}

	app.router = app.setupRouter()
	app.registerRoutes()

	return app, nil
}

// initModules builds stores, services and the model client.
func (a *App) initModules(ctx context.Context) error {
	historyRepo, statsRepo := a.initStores(ctx)

	a.historyService = history.NewService(&history.ServiceConfig{
		Repository: historyRepo,
		MaxEntries: a.config.History.MaxEntries,
		Logger:     a.zapLogger,
		Metrics:    a.metrics,
	})

	a.statsTracker = stats.NewTracker(&stats.TrackerConfig{
		Repository: statsRepo,
		Logger:     a.zapLogger,
		Metrics:    a.metrics,
	})
	a.statsTracker.Load(ctx)

	if a.imageClient == nil {
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:           a.config.Gemini.APIKey,
			Timeout:          a.config.Gemini.Timeout,
			FailureThreshold: a.config.Gemini.FailureThreshold,
			CircuitTimeout:   a.config.Gemini.CircuitTimeout,
		}, a.zapLogger, a.metrics)
		if err != nil {
			return fmt.Errorf("init gemini client: %w", err)
		}
		a.imageClient = client
	}

	a.generationService = generation.NewService(&generation.ServiceConfig{
		Client:      a.imageClient,
		Logger:      a.zapLogger,
		Metrics:     a.metrics,
		MaxVariants: a.config.Generation.MaxVariants,
	})

	var archive Archiver
	if a.config.Storage.Bucket != "" {
		s3a, err := s3archive.NewArchive(ctx, &s3archive.Config{
			Endpoint:        a.config.Storage.Endpoint,
			Region:          a.config.Storage.Region,
			AccessKeyID:     a.config.Storage.AccessKeyID,
			SecretAccessKey: a.config.Storage.SecretAccessKey,
			Bucket:          a.config.Storage.Bucket,
			Prefix:          a.config.Storage.Prefix,
		}, a.zapLogger)
		if err != nil {
			a.zapLogger.Warn("image archive disabled", zap.Error(err))
		} else {
			archive = s3a
		}
	}

	a.recorder = NewRecorder(a.historyService, a.statsTracker, archive, a.zapLogger)
	a.rateLimiter = a.initRateLimiter(ctx)
	return nil
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	// Set Gin mode based on environment
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// RequestID goes first so a recovered panic can still be correlated.
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.Logging(a.logger, middleware.LoggingConfig{
		SkipPaths:     []string{healthPath, metricsPath},
		SlowThreshold: a.config.Server.WriteTimeout / 2,
	}))
	r.Use(middleware.CORS(a.config.Server.CORSOrigins))
	r.Use(middleware.Metrics(a.metrics, metricsPath))

	r.GET(healthPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET(metricsPath, gin.WrapH(promhttp.HandlerFor(a.metrics.Registry, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(a.zapLogger),
	})))

	return r
}

// registerRoutes registers all API routes behind the access key.
func (a *App) registerRoutes() {
	v1 := a.router.Group("/api/v1")
	v1.Use(middleware.AccessKey(middleware.AccessKeyConfig{
		Password: a.config.Auth.AccessPassword,
		Hash:     a.config.Auth.AccessPasswordHash,
	}))

	// Only POST /generate reaches the paid model.
	limited := v1.Group("", middleware.RateLimit(a.rateLimiter, middleware.RateLimitConfig{
		Limit:  a.config.RateLimit.Limit,
		Window: a.config.RateLimit.Window,
		SkipFunc: func(c *gin.Context) bool {
			return c.Request.Method != http.MethodPost
		},
	}, a.logger))
	generation.NewHandler(a.generationService, a.recorder, a.zapLogger).RegisterRoutes(limited)
	history.NewHandler(a.historyService, a.zapLogger).RegisterRoutes(v1)
	stats.NewHandler(a.statsTracker).RegisterRoutes(v1)
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop waits for background archive uploads and releases store
// connections. It is safe to call on a partially built App.
func (a *App) Stop() {
	if a.recorder != nil {
		a.recorder.Wait()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.zapLogger.Warn("close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			a.zapLogger.Warn("close database", zap.Error(err))
		}
	}
	_ = a.zapLogger.Sync()
}
