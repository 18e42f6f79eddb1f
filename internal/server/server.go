// Package server assembles the wiki from configuration: storage backend,
// document store, accounts, sessions, token verification and HTTP routes.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/gowiki/gowiki/handlers"
	"github.com/gowiki/gowiki/internal/config"
	"github.com/gowiki/gowiki/internal/database"
	"github.com/gowiki/gowiki/internal/identity"
	"github.com/gowiki/gowiki/internal/notify"
	"github.com/gowiki/gowiki/internal/oidc"
	"github.com/gowiki/gowiki/internal/sessions"
	"github.com/gowiki/gowiki/internal/tokens"
	"github.com/gowiki/gowiki/internal/wiki/handler"
	"github.com/gowiki/gowiki/internal/wiki/persistence"
	"github.com/gowiki/gowiki/internal/wiki/store"
	"github.com/gowiki/gowiki/pkg/logger"
	"github.com/gowiki/gowiki/pkg/metrics"
	"github.com/gowiki/gowiki/pkg/middleware"
)

// App holds the wired components of a running wiki.
type App struct {
	Config   *config.Config
	Backend  *Backend
	Store    *store.Store
	Users    *identity.Service
	Sessions *sessions.Service
	Verifier middleware.Verifier
	Redis    *redis.Client

	startTime time.Time
	oidcReady bool
}

// Bootstrap connects every dependency and loads the saved pages. A load
// failure is returned rather than starting on an empty store, which would
// overwrite the saved collection on the first edit.
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, startTime: time.Now()}

	if addr := cfg.Redis.Addr(); addr != "" {
		rdb, err := database.ConnectRedis(ctx, addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			if cfg.Storage.Backend == config.BackendRedis {
				return nil, err
			}
			logger.Warnf("redis unavailable, continuing without it: %v", err)
		} else {
			a.Redis = rdb
			sessions.SetBlacklistClient(rdb)
			logger.Infof("connected to Redis at %s", addr)
		}
	}

	backend, err := OpenBackend(ctx, cfg, a.Redis)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Backend = backend

	a.Store = store.New(backend.Adapter)
	if err := a.Store.Load(ctx); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("load pages: %w", err)
	}

	a.Users = identity.NewService(identity.NewRecordUserRepository(backend.Adapter))

	switch {
	case a.Redis != nil:
		a.Sessions = sessions.NewService(sessions.NewRedisRepository(a.Redis, cfg.Redis.Key("session:")))
	case backend.Mongo != nil:
		col := backend.Mongo.Collection(database.SessionsCollection)
		if err := database.EnsureSessionIndexes(ctx, col); err != nil {
			logger.Warnf("%v", err)
		}
		a.Sessions = sessions.NewService(sessions.NewMongoRepository(col))
	default:
		a.Sessions = sessions.NewService(sessions.NewMemoryRepository())
	}

	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = ephemeralSecret()
		logger.Warnf("JWT_SECRET not set; using an ephemeral secret, tokens will not survive a restart")
	}
	var kc middleware.Verifier
	if issuer := cfg.Keycloak.Issuer(); issuer != "" && cfg.Keycloak.ClientID != "" {
		ver, err := oidc.NewVerifier(ctx, issuer, cfg.Keycloak.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			kc = ver
			a.oidcReady = true
		}
	}
	a.Verifier = middleware.Chain(tokens.NewVerifier(cfg.JWT.Secret), kc)
	return a, nil
}

func ephemeralSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Router builds the HTTP routes. Each call uses its own metrics registry.
func (a *App) Router() *gin.Engine {
	r := gin.New()

	origins := middleware.ParseOrigins(a.Config.Server.AllowedOrigins)
	r.Use(middleware.CORSMiddleware(origins))
	r.Use(gin.Logger(), gin.Recovery())

	if rl := a.Config.RateLimit; rl.Enabled {
		if rl.UseRedis && a.Redis != nil {
			r.Use(middleware.RedisRateLimitMiddleware(a.Redis, a.Config.Redis.Key("rl:"), rl.RPS, rl.Burst, rl.Window))
		} else {
			r.Use(middleware.RateLimitMiddleware(rl.RPS, rl.Burst))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", a.ready)

	reg := prometheus.NewRegistry()
	metrics.RegisterCollectors(reg)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterSwagger(r)
	handlers.NewAuthHandler(a.Config, a.Users, a.Sessions).Register(r.Group("/"), a.Verifier)
	handler.New(a.Store, handler.WithAllowedOrigins(origins)).RegisterRoutes(r, a.Verifier)
	return r
}

// ready returns 200 only when the storage backend answers and optional dependencies are up.
func (a *App) ready(c *gin.Context) {
	deps := map[string]bool{}
	ready := true

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	_, err := a.Backend.Adapter.Load(ctx, persistence.RecordSettings)
	deps["storage"] = err == nil || errors.Is(err, persistence.ErrRecordNotFound)
	ready = ready && deps["storage"]

	if a.Config.Keycloak.Issuer() != "" {
		deps["oidc"] = a.oidcReady
		ready = ready && a.oidcReady
	}
	if a.Redis != nil {
		deps["redis"] = a.Redis.Ping(ctx).Err() == nil
		ready = ready && deps["redis"]
	}

	status, label := http.StatusOK, "ready"
	if !ready {
		status, label = http.StatusServiceUnavailable, "not_ready"
	}
	c.JSON(status, gin.H{"status": label, "deps": deps, "pages": a.Store.Len(), "uptime": time.Since(a.startTime).String()})
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if a.Redis != nil {
		relay := notify.NewRedisRelay(a.Redis, a.Config.Redis.EventsChannel)
		relay.Start(ctx, a.Store)
		defer relay.Stop()
	}

	addr := fmt.Sprintf("%s:%s", a.Config.Server.Host, a.Config.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     a.Router(),
		ReadTimeout: a.Config.Server.ReadTimeout,
		// WriteTimeout is left unset so /api/events websockets are not cut off
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting wiki on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Close releases connections held by the app.
func (a *App) Close(ctx context.Context) {
	if a.Backend != nil {
		a.Backend.Close(ctx)
	}
	if a.Redis != nil {
		sessions.SetBlacklistClient(nil)
		_ = a.Redis.Close()
	}
}
