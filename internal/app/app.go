package app

import (
	"context"
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/cartoway/router-demo/internal/config"
	"github.com/cartoway/router-demo/internal/handler"
	"github.com/cartoway/router-demo/internal/middleware"
	"github.com/cartoway/router-demo/internal/modes"
	"github.com/cartoway/router-demo/internal/routing"
	"github.com/cartoway/router-demo/internal/service"
	"github.com/cartoway/router-demo/internal/session"
	"github.com/cartoway/router-demo/internal/trace"
)

const (
	sweepSpec = "@every 1m"

	// releaseTraceCapacity bounds per-session traces outside debug mode.
	releaseTraceCapacity = 20
)

// ScheduleError reports a background job that could not be registered.
type ScheduleError struct {
	Job string
	Err error
}

func (e *ScheduleError) Error() string {
	return fmt.Sprintf("schedule error for job %q: %v", e.Job, e.Err)
}

func (e *ScheduleError) Unwrap() error { return e.Err }

// App holds the application-level dependencies.
type App struct {
	Router   *gin.Engine
	Logger   *zap.Logger
	Sessions *session.Store
	Modes    *modes.Holder

	cron   *cron.Cron
	syncer *modes.Syncer
	cfg    *config.Config
}

// New wires all domain dependencies and configures the HTTP engine with
// routes. Background jobs start with Start.
func New(cfg *config.Config) (*App, error) {
	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("app: build logger: %w", err)
	}

	// --- Domain dependencies ---
	configured := modes.NewRegistry(cfg.EnabledModes)
	holder := modes.NewHolder(configured)

	messages := routing.MessagesFor(cfg.Locale)
	client := routing.NewClient(cfg.RouterAPIURL, cfg.RouterAPIKey, cfg.RouterTimeout,
		routing.WithMessages(messages),
		routing.WithLogger(logger.Named("router")),
	)
	routingService := service.NewRoutingService(client,
		service.WithLogger(logger.Named("orchestrator")),
		service.WithMessages(messages),
	)

	traceCap := releaseTraceCapacity
	if cfg.Debug {
		traceCap = trace.DefaultCapacity
	}
	sessions := session.NewStore(routingService, cfg.SessionTTL, logger.Named("session"),
		session.WithTraceCapacity(traceCap),
	)

	// --- Background jobs ---
	c := cron.New()
	if _, err := sessions.ScheduleSweep(c, sweepSpec); err != nil {
		return nil, &ScheduleError{Job: "session_sweep", Err: err}
	}

	var syncer *modes.Syncer
	if cfg.CapabilityRefresh != "" {
		fetcher := modes.NewCapabilityClient(cfg.RouterAPIURL, cfg.RouterAPIKey, cfg.RouterTimeout,
			modes.WithCapabilityLogger(logger.Named("capability")),
		)
		syncer = modes.NewSyncer(fetcher, holder, configured, logger.Named("capability"))
		if _, err := syncer.Schedule(c, cfg.CapabilityRefresh); err != nil {
			return nil, &ScheduleError{Job: "capability_refresh", Err: err}
		}
	}

	// --- HTTP engine ---
	if !cfg.Debug && gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(logger.Named("http")))
	router.Use(middleware.Recovery(logger.Named("http")))
	router.Use(cors.New(corsConfig(cfg.CORSAllowOrigins)))
	router.Use(middleware.RouteDeadline(cfg.RouterTimeout, middleware.DefaultGrace))

	h := handler.New(holder, routingService, sessions, cfg.Locale, logger.Named("handler"))

	router.GET("/health", h.Health)

	api := router.Group("/api/v1")
	{
		api.GET("/modes", h.ListModes)
		api.GET("/routes", h.CompareRoutes)

		sess := api.Group("/sessions")
		{
			sess.POST("", h.CreateSession)
			sess.GET("/:id", h.GetSession)
			sess.DELETE("/:id", h.DeleteSession)

			sess.PUT("/:id/origin", h.SetOrigin)
			sess.DELETE("/:id/origin", h.ClearOrigin)
			sess.PUT("/:id/destination", h.SetDestination)
			sess.DELETE("/:id/destination", h.ClearDestination)

			sess.PUT("/:id/modes", h.SetModes)
			sess.POST("/:id/modes/:mode/toggle", h.ToggleMode)
			sess.POST("/:id/visibility/:mode/toggle", h.ToggleVisibility)

			sess.GET("/:id/trace", h.DownloadTrace)
		}
	}

	logger.Info("application configured",
		zap.String("router_url", cfg.RouterAPIURL),
		zap.String("locale", cfg.Locale),
		zap.String("modes", modes.Join(configured.IDs())),
		zap.Duration("session_ttl", cfg.SessionTTL),
	)

	return &App{
		Router:   router,
		Logger:   logger,
		Sessions: sessions,
		Modes:    holder,
		cron:     c,
		syncer:   syncer,
		cfg:      cfg,
	}, nil
}

// Start runs the background jobs. When a capability refresh is configured,
// the first one runs immediately instead of waiting for the schedule.
func (a *App) Start() {
	a.cron.Start()
	if a.syncer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.RouterTimeout)
		defer cancel()
		if _, err := a.syncer.Refresh(ctx); err != nil {
			a.Logger.Warn("initial capability refresh failed", zap.Error(err))
		}
	}()
}

// Shutdown stops the background jobs, waiting for running ones, and flushes
// the logger.
func (a *App) Shutdown(ctx context.Context) {
	select {
	case <-a.cron.Stop().Done():
	case <-ctx.Done():
		a.Logger.Warn("background jobs still running at shutdown")
	}
	_ = a.Logger.Sync()
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.ExposeHeaders = []string{middleware.RequestIDHeader, "Content-Disposition"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
