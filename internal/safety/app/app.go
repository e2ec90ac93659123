package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/contentsafety/internal/observability"
	"github.com/yungbote/contentsafety/internal/platform/logger"
	"github.com/yungbote/contentsafety/internal/safety/compliance"
	"github.com/yungbote/contentsafety/internal/safety/config"
	"github.com/yungbote/contentsafety/internal/safety/httpapi"
	httpH "github.com/yungbote/contentsafety/internal/safety/httpapi/handlers"
	httpMW "github.com/yungbote/contentsafety/internal/safety/httpapi/middleware"
	"github.com/yungbote/contentsafety/internal/safety/orchestrator"
	"github.com/yungbote/contentsafety/internal/safety/persona"
	"github.com/yungbote/contentsafety/internal/safety/ratelimit"
	"github.com/yungbote/contentsafety/internal/safety/rules"
	"github.com/yungbote/contentsafety/internal/safety/sessions"
)

const serviceName = "contentsafety"

// limiterIdle is how long an untouched client bucket is kept.
const limiterIdle = 10 * time.Minute

type App struct {
	Log          *logger.Logger
	Config       *config.Config
	Metrics      *observability.Metrics
	Store        *rules.Store
	Orchestrator *orchestrator.Orchestrator
	Compliance   *compliance.Checker
	Registry     *sessions.Registry
	Limiter      *ratelimit.Limiter

	server       *http.Server
	watcher      *rules.Watcher
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return NewWithConfig(cfg, log)
}

// NewWithConfig wires every component from an already loaded config.
func NewWithConfig(cfg *config.Config, log *logger.Logger) (*App, error) {
	log = logger.OrNop(log)
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: cfg.Env,
	})
	metrics := observability.NewMetrics()

	store := rules.NewStore(rules.StoreOptions{
		Sources: rules.ResolveSources(cfg.Rules.Location, log),
		Log:     log,
		Metrics: metrics,
	})

	var watcher *rules.Watcher
	if cfg.Rules.Watch {
		if paths := store.FilePaths(); len(paths) > 0 {
			w, err := rules.NewWatcher(store, paths, 0, log)
			if err != nil {
				log.Warn("rule watcher disabled", "error", err)
			} else {
				watcher = w
			}
		}
	}

	checker := compliance.NewChecker(store, log)
	orch := orchestrator.New(orchestrator.Options{
		Compliance: checker,
		Persona:    persona.NewEngine(store, log),
		Log:        log,
		Metrics:    metrics,
	})
	registry := sessions.NewRegistry(orch, sessions.Options{
		IdleTimeout: cfg.Sessions.IdleTimeout.Duration,
		MaxSessions: cfg.Sessions.MaxSessions,
		Log:         log,
		Metrics:     metrics,
	})
	limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	var adminAuth *httpMW.AdminAuth
	if cfg.Admin.JWTSecret != "" {
		adminAuth = httpMW.NewAdminAuth(log, cfg.Admin.JWTSecret)
	} else {
		log.Info("admin routes disabled (no CS_ADMIN_JWT_SECRET)")
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		Limiter:        limiter,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		ServiceName:    serviceName,
		HealthHandler:  httpH.NewHealthHandler(store),
		CheckHandler:   httpH.NewCheckHandler(log, orch, checker, cfg.HTTP.MaxRequestBytes),
		SessionHandler: httpH.NewSessionHandler(log, registry, cfg.HTTP.MaxRequestBytes),
		RulesHandler:   httpH.NewRulesHandler(log, store),
		AdminAuth:      adminAuth,
	})

	return &App{
		Log:          log,
		Config:       cfg,
		Metrics:      metrics,
		Store:        store,
		Orchestrator: orch,
		Compliance:   checker,
		Registry:     registry,
		Limiter:      limiter,
		server:       httpapi.NewServer(cfg, router),
		watcher:      watcher,
		otelShutdown: otelShutdown,
	}, nil
}

// Handler exposes the router, mainly for tests.
func (a *App) Handler() http.Handler { return a.server.Handler }

// Run serves until ctx is done, then drains the server and stops the
// background workers.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	defer a.close()

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	var workers errgroup.Group
	workers.Go(func() error {
		a.Registry.Run(workerCtx)
		return nil
	})
	if a.watcher != nil {
		workers.Go(func() error {
			a.watcher.Run(workerCtx)
			return nil
		})
	}
	if a.Limiter != nil {
		workers.Go(func() error {
			a.sweepLimiter(workerCtx)
			return nil
		})
	}

	a.Log.Info("content safety service listening", "addr", ln.Addr().String(), "rule_sources", a.Store.SourceNames())
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Serve(ln)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.Log.Warn("http shutdown", "error", err)
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	stopWorkers()
	_ = workers.Wait()
	return runErr
}

func (a *App) sweepLimiter(ctx context.Context) {
	t := time.NewTicker(limiterIdle / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.Limiter.Sweep(limiterIdle)
		}
	}
}

func (a *App) close() {
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	if err := a.Store.Close(); err != nil {
		a.Log.Warn("closing rule sources", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.otelShutdown != nil {
		_ = a.otelShutdown(shutdownCtx)
	}
	a.Log.Sync()
}
