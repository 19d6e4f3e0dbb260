// Package server wires the home model, adapters, and API surface.
package server

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hearthos/shell/internal/adapters/servicebus"
	"github.com/hearthos/shell/internal/adapters/window"
	apihttp "github.com/hearthos/shell/internal/api/http"
	"github.com/hearthos/shell/internal/api/middleware"
	"github.com/hearthos/shell/internal/domain/bundle"
	"github.com/hearthos/shell/internal/domain/home"
	"github.com/hearthos/shell/internal/infrastructure/config"
	"github.com/hearthos/shell/internal/infrastructure/logging"
	"github.com/hearthos/shell/internal/infrastructure/monitoring"
	"github.com/hearthos/shell/internal/ws"
)

// Transports are the external event sources the shell consumes. Any of
// them may be nil, in which case the corresponding adapter is not run
// and window-to-service resolution always misses.
type Transports struct {
	Screen window.Screen
	Bus    servicebus.Bus
	Conn   servicebus.Conn
}

// Server wraps the HTTP server and shell dependencies
type Server struct {
	router  *gin.Engine
	engine  *home.Engine
	bundles *bundle.Registry
	hub     *ws.Hub
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics

	windowAdapter  *window.Adapter
	serviceAdapter *servicebus.Adapter
	cancel         context.CancelFunc
}

// New creates a new server instance
func New(cfg *config.Config, transports Transports) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing shell home model service",
		zap.String("port", cfg.Server.Port),
		zap.String("service_prefix", cfg.Shell.ServicePrefix),
		zap.Duration("launch_timeout", cfg.Shell.LaunchTimeout),
	)

	metrics := monitoring.NewMetrics()

	// Bundle registry, seeded from installed manifests
	bundles := bundle.NewRegistry(logger).WithMetrics(metrics)
	if err := bundle.NewSeeder(bundles, cfg.Bundles.Dir).Seed(); err != nil {
		logger.Warn("failed to seed bundle registry", zap.Error(err))
	}

	// Notifier hub for UI observers
	hub := ws.NewHub(logger).WithMetrics(metrics)

	// Home model engine
	resolver := servicebus.NewResolver(transports.Conn, cfg.Shell.ServicePrefix)
	engine := home.NewEngine(resolver, bundles, logger).
		WithNotifier(hub).
		WithMetrics(metrics).
		WithServicePrefix(cfg.Shell.ServicePrefix).
		WithLaunchTimeout(cfg.Shell.LaunchTimeout)

	// Event adapters
	var windowAdapter *window.Adapter
	if transports.Screen != nil {
		windowAdapter = window.New(transports.Screen, engine, logger).WithMetrics(metrics)
	}
	var serviceAdapter *servicebus.Adapter
	if transports.Bus != nil {
		serviceAdapter = servicebus.New(transports.Bus, engine, cfg.Shell.ServicePrefix, logger).WithMetrics(metrics)
	}

	// Router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS())
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(engine, bundles, logger)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Home model
	router.GET("/activities", handlers.ListActivities)
	router.GET("/activities/current", handlers.CurrentActivity)
	router.GET("/activities/:id", handlers.GetActivity)
	router.POST("/activities/launch", handlers.LaunchActivity)
	router.POST("/activities/:id/launch-failed", handlers.LaunchFailed)
	router.GET("/stats", handlers.GetStats)

	// Bundle registry
	router.GET("/bundles", handlers.ListBundles)

	// Event stream for UI observers
	router.GET("/stream", hub.HandleConnection)

	// Metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router:         router,
		engine:         engine,
		bundles:        bundles,
		hub:            hub,
		logger:         logger,
		config:         cfg,
		metrics:        metrics,
		windowAdapter:  windowAdapter,
		serviceAdapter: serviceAdapter,
	}, nil
}

// Run starts the adapters and the HTTP server
func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.windowAdapter != nil {
		go s.windowAdapter.Run(ctx)
	}
	if s.serviceAdapter != nil {
		go s.serviceAdapter.Run(ctx)
	}

	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	if s.cancel != nil {
		s.cancel()
	}
	s.engine.Close()
	s.logger.Sync()
	return nil
}
