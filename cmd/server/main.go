package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"aureon/internal/audit"
	auditmetrics "aureon/internal/audit/metrics"
	auditstore "aureon/internal/audit/store"
	authmetrics "aureon/internal/auth/metrics"
	authservice "aureon/internal/auth/service"
	authstore "aureon/internal/auth/store"
	"aureon/internal/auth/token"
	"aureon/internal/auth/workers/cleanup"
	"aureon/internal/authz"
	"aureon/internal/platform/config"
	"aureon/internal/platform/database"
	"aureon/internal/platform/logger"
	platformredis "aureon/internal/platform/redis"
	"aureon/internal/ratelimit"
	tenantcache "aureon/internal/tenant/cache"
	tenantmetrics "aureon/internal/tenant/metrics"
	"aureon/internal/tenant/resolver"
	tenantstore "aureon/internal/tenant/store"
	"aureon/internal/tracer"
	httptransport "aureon/internal/transport/http"
)

// main wires the pipeline end to end: stores, services, background workers,
// and the HTTP surface. Business logic lives in the internal packages.
func main() {
	_ = godotenv.Load()

	log := logger.New()
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing",
		"addr", cfg.Addr,
		"base_domain", cfg.BaseDomain,
		"legacy_header_auth", cfg.LegacyHeaderAuth,
	)

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		return err
	}

	var (
		tenants  tenantstore.Store
		users    authstore.UserStore
		sessions authstore.SessionStore
		roles    authstore.RoleStore
		auditSt  auditstore.Store
	)
	if pool != nil {
		defer pool.Close() //nolint:errcheck
		db := pool.DB()
		tenants = tenantstore.NewPostgres(db)
		users = authstore.NewPostgresUsers(db)
		sessions = authstore.NewPostgresSessions(db)
		roles = authstore.NewPostgresRoles(db)
		auditSt = auditstore.NewPostgres(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		tenants = tenantstore.NewMemory()
		users = authstore.NewMemoryUsers()
		sessions = authstore.NewMemorySessions()
		roles = authstore.NewMemoryRoles()
		auditSt = auditstore.NewMemory()
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	var cache tenantcache.Cache
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
		cache = tenantcache.NewRedis(redisClient.Client, cfg.TenantCacheTTL, log)
	} else {
		cache = tenantcache.NewMemory(cfg.TenantCacheTTL)
	}

	tokens, err := token.New(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		return err
	}

	trace := tracer.NewNoop()
	if cfg.TracingEnabled {
		trace = tracer.NewOTel()
	}

	res, err := resolver.New(tenants, cache, cfg.BaseDomain,
		resolver.WithLogger(log),
		resolver.WithMetrics(tenantmetrics.New()),
		resolver.WithTracer(trace))
	if err != nil {
		return err
	}

	auth, err := authservice.New(users, sessions, tokens,
		authservice.WithSessionTTL(cfg.SessionTTL),
		authservice.WithLegacyHeaderAuth(cfg.LegacyHeaderAuth),
		authservice.WithLogger(log),
		authservice.WithMetrics(authmetrics.New()),
		authservice.WithTracer(trace))
	if err != nil {
		return err
	}

	guard, err := authz.New(roles,
		authz.WithLogger(log),
		authz.WithMetrics(authz.NewMetrics()))
	if err != nil {
		return err
	}

	limiter, err := ratelimit.New(cfg.RateLimitWindow, cfg.RateLimitMax,
		ratelimit.WithMetrics(ratelimit.NewMetrics()))
	if err != nil {
		return err
	}

	pipeline, err := audit.New(auditSt,
		audit.WithBatchSize(cfg.AuditBatchSize),
		audit.WithFlushInterval(cfg.AuditFlushInterval),
		audit.WithQueueCap(cfg.AuditQueueCap),
		audit.WithLogger(log),
		audit.WithMetrics(auditmetrics.New()),
		audit.WithTracer(trace))
	if err != nil {
		return err
	}
	pipeline.Start()

	worker, err := cleanup.New(sessions, cleanup.WithLogger(log))
	if err != nil {
		return err
	}
	go func() {
		if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("session cleanup worker stopped", "error", err)
		}
	}()

	// Expired rate-limit windows are swept on the window cadence so idle
	// keys do not accumulate.
	go func() {
		ticker := time.NewTicker(cfg.RateLimitWindow)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Sweep()
			}
		}
	}()

	server, err := httptransport.NewServer(httptransport.Config{
		Resolver: res,
		Auth:     auth,
		Guard:    guard,
		Limiter:  limiter,
		Audit:    pipeline,
		Logger:   log,
		Throttle: cfg.GlobalRequestsPerSecond,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}

	// Drain buffered audit entries before the store goes away.
	pipeline.Stop(shutdownCtx)

	log.Info("stopped")
	return nil
}
