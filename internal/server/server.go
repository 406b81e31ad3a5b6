package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/resolverd/resolverd/internal/api/http"
	"github.com/resolverd/resolverd/internal/api/middleware"
	"github.com/resolverd/resolverd/internal/api/ws"
	"github.com/resolverd/resolverd/internal/infrastructure/config"
	"github.com/resolverd/resolverd/internal/infrastructure/logging"
	"github.com/resolverd/resolverd/internal/infrastructure/monitoring"
	"github.com/resolverd/resolverd/internal/infrastructure/resilience"
	"github.com/resolverd/resolverd/internal/profile"
	"github.com/resolverd/resolverd/internal/providers/seed"
	"github.com/resolverd/resolverd/internal/session"
	"github.com/resolverd/resolverd/internal/shortcut"
)

const version = "1.0.0"

// The profile group is rooted at the primary user.
const primaryUser profile.UserID = 0

var defaultFilter = shortcut.IntentFilter{Action: "android.intent.action.SEND"}

// Server wires the service together: seed-backed data sources, the profile
// tracker, the per-profile resolution sessions and the HTTP/WebSocket API.
type Server struct {
	cfg      *config.Config
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	router   *gin.Engine
	http     *http.Server
	tracker  *profile.Tracker
	sessions *session.Manager
	hub      *ws.Hub

	profileWatch <-chan profile.Snapshot
	unsubscribe  func()
}

// NewServer builds a fully wired server from configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	doc, err := seed.Load(cfg.Resolver.SeedPath)
	if err != nil {
		return nil, fmt.Errorf("load seed: %w", err)
	}
	provider := seed.NewProvider(doc, logger)

	metrics := monitoring.NewMetrics()

	tracker := profile.NewTracker(primaryUser, provider, provider, provider.Events(), logger).
		WithMetrics(metrics)

	breaker := resilience.New("predictor", resilience.Settings{
		FailureThreshold: cfg.Resolver.BreakerFailures,
		Timeout:          cfg.Resolver.BreakerTimeout,
		OnStateChange: func(name string, from, to resilience.State) {
			metrics.RecordBreakerTransition(from.String(), to.String())
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	sessions := session.NewManager(session.Config{
		Tracker:          tracker,
		Sources:          provider,
		Filter:           defaultFilter,
		PredictorEnabled: cfg.Resolver.PredictorEnabled,
		WatchdogTimeout:  cfg.Resolver.WatchdogTimeout,
		Breaker:          breaker,
		Logger:           logger,
	}).WithMetrics(metrics)

	hub := ws.NewHub(logger).WithMetrics(metrics)
	unsubscribe := sessions.Subscribe(hub.BroadcastResult)
	profileWatch := tracker.Watch()

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(tracker, sessions, version)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/profiles", handlers.ListProfiles)
	router.POST("/profiles/:id/availability", handlers.SetAvailability)

	router.GET("/sessions", handlers.ListSessions)
	router.GET("/targets/:profile", handlers.GetResult)
	router.POST("/targets/:profile/apps", handlers.UpdateAppTargets)
	router.POST("/targets/:profile/reset", handlers.ResetSession)

	router.GET("/stream", hub.HandleConnection)

	return &Server{
		cfg:          cfg,
		logger:       logger,
		metrics:      metrics,
		router:       router,
		tracker:      tracker,
		sessions:     sessions,
		hub:          hub,
		profileWatch: profileWatch,
		unsubscribe:  unsubscribe,
	}, nil
}

// Run starts the background loops and the HTTP server, then blocks until the
// context is cancelled or the server fails.
func (s *Server) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.tracker.Run(runCtx)
	go s.sessions.Run(runCtx)
	go func() {
		for {
			select {
			case <-runCtx.Done():
				return
			case snap := <-s.profileWatch:
				s.hub.BroadcastProfiles(snap)
			}
		}
	}()

	addr := s.cfg.Server.Host + ":" + s.cfg.Server.Port
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", zap.String("addr", addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.shutdown()
	}
}

func (s *Server) shutdown() error {
	s.logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.http.Shutdown(ctx)

	s.unsubscribe()
	s.sessions.Close()
	_ = s.logger.Sync()
	return err
}
