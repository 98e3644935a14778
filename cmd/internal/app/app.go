// Package app wires the relay server runtime: config, logging, stores,
// the session authority, and the HTTP surface.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"relay/cmd/identity"
	authapi "relay/cmd/internal/auth/api"
	"relay/cmd/internal/auth/session"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// App is the relay server runtime.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	redisClient *redis.Client

	metrics  *Metrics
	sessions *session.Service
	auth     *authapi.Handler

	// sweepEnabled is false for the Redis store, whose records expire
	// via storage TTL.
	sweepEnabled bool
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	// Both signing secrets are required; a missing or shared secret
	// kills the process here, not at the first login.
	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	codec, err := session.NewHMACCodec(sessCfg)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log, metrics: NewMetrics()}

	profiles, err := a.newProfileStore(ctx)
	if err != nil {
		return nil, err
	}
	sessStore, err := a.newSessionStore(ctx)
	if err != nil {
		a.closeStores()
		return nil, err
	}

	a.sessions = session.NewService(sessCfg, codec, sessStore, profiles, log)

	authCfg := authapi.LoadConfigFromEnv()
	a.auth, err = authapi.NewHandler(log, authCfg, profiles, a.sessions)
	if err != nil {
		a.closeStores()
		return nil, err
	}

	return a, nil
}

func (a *App) newProfileStore(ctx context.Context) (identity.Store, error) {
	if a.cfg.DatabaseURL == "" {
		a.log.Info("db.disabled.inmemory_store")
		return identity.NewMemoryStore(), nil
	}

	pool, err := NewDBPool(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	a.dbPool = pool
	a.dbEnabled = true
	a.log.Info("db.enabled.postgres_store")

	store, err := identity.NewPostgresStore(pool)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (a *App) newSessionStore(ctx context.Context) (session.Store, error) {
	if a.cfg.RedisURL != "" {
		client, err := NewRedisClient(ctx, a.cfg)
		if err != nil {
			return nil, err
		}
		a.redisClient = client
		a.log.Info("sessions.redis_store")
		return session.NewRedisStore(client), nil
	}

	a.sweepEnabled = true
	if a.dbEnabled {
		a.log.Info("sessions.postgres_store")
		return session.NewPostgresStore(a.dbPool), nil
	}
	a.log.Info("sessions.inmemory_store")
	return session.NewMemoryStore(), nil
}

// Run starts the HTTP server and blocks until context cancellation or
// fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.metrics, a.auth)

	var handler http.Handler = mux
	handler = WithSecurityHeaders(handler)
	handler = WithCORS(handler, a.cfg, a.log)
	handler = WithMetrics(handler, a.metrics)
	handler = WithRequestLogging(handler, a.log)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	if a.sweepEnabled {
		go a.sweepSessions(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		a.closeStores()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		a.closeStores()
		return err
	}

	a.closeStores()
	a.log.Info("server.stopped")
	return nil
}

// sweepSessions periodically evicts expired session rows. Correctness
// never depends on it; expired rows fail the liveness check either way.
func (a *App) sweepSessions(ctx context.Context) {
	interval := nonZeroDuration(a.cfg.SessionSweepInterval, 5*time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = a.sessions.SweepExpired(ctx, time.Now().UTC())
		}
	}
}

func (a *App) closeStores() {
	if a.redisClient != nil {
		_ = a.redisClient.Close()
		a.redisClient = nil
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		a.dbPool = nil
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
