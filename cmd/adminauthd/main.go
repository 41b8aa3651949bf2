// adminauthd serves the admin authentication endpoints. Configuration
// comes from an optional YAML file (ADMINAUTH_CONFIG), environment
// overrides, and a .env file for local development.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	adminauth "github.com/draycottmotors/adminauth"
	"github.com/draycottmotors/adminauth/csrf"
	"github.com/draycottmotors/adminauth/httpapi"
	"github.com/draycottmotors/adminauth/kv"
	"github.com/draycottmotors/adminauth/localidp"
	"github.com/draycottmotors/adminauth/metrics"
	"github.com/draycottmotors/adminauth/middleware"
	"github.com/draycottmotors/adminauth/ratelimit"
	"github.com/draycottmotors/adminauth/revocation"
	"github.com/draycottmotors/adminauth/token"
)

func main() {
	_ = godotenv.Load()

	cfg, err := adminauth.LoadConfig(os.Getenv("ADMINAUTH_CONFIG"))
	if err != nil {
		fatal("load config", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("validate config", err)
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		fatal("init logger", err)
	}
	defer func() { _ = log.Sync() }()

	store, cleanup, err := newStore(cfg.Store)
	if err != nil {
		log.Fatal("init store", zap.Error(err))
	}
	defer cleanup()

	registry := revocation.NewRegistry(store, log)
	limiter, err := ratelimit.New(store, ratelimit.Config{
		MaxAttempts: cfg.Login.MaxAttempts,
		Window:      cfg.Login.Window,
	})
	if err != nil {
		log.Fatal("init rate limiter", zap.Error(err))
	}

	tokens, err := token.NewService(token.Config{
		Secret:     []byte(cfg.SigningSecret),
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		Issuer:     cfg.Issuer,
	}, registry)
	if err != nil {
		log.Fatal("init token service", zap.Error(err))
	}

	credentials, err := localidp.New(
		os.Getenv("ADMIN_EMAIL"),
		[]byte(os.Getenv("ADMIN_PASSWORD_HASH")),
		adminauth.RoleSuperAdmin,
		nil,
	)
	if err != nil {
		log.Fatal("init credential verifier", zap.Error(err))
	}

	m := metrics.New(nil)

	engine, err := adminauth.New(cfg, adminauth.Deps{
		Limiter:     limiter,
		Tokens:      tokens,
		Credentials: credentials,
		Metrics:     m,
		Log:         log,
	})
	if err != nil {
		log.Fatal("init engine", zap.Error(err))
	}

	cookies := middleware.CookieSpec{
		AccessName:    cfg.Cookies.AccessName,
		RefreshName:   cfg.Cookies.RefreshName,
		Path:          cfg.Cookies.Path,
		Domain:        cfg.Cookies.Domain,
		Secure:        cfg.Production(),
		AccessMaxAge:  cfg.AccessTTL,
		RefreshMaxAge: cfg.RefreshTTL,
	}
	guard := middleware.NewGuard(tokens, tokens, cookies, m, log)
	csrfGuard := csrf.NewGuard(csrf.Config{
		CookieName: cfg.Csrf.CookieName,
		TTL:        cfg.Csrf.TTL,
		Secure:     cfg.Production(),
	})

	api := httpapi.New(engine, csrfGuard, guard, cookies, m, log)

	mux := api.Routes()
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("adminauthd listening",
			zap.String("addr", cfg.HTTP.Addr),
			zap.String("store", cfg.Store.Backend),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("serve", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg adminauth.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var zcfg zap.Config
	if cfg.Pretty {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = level

	return zcfg.Build()
}

func newStore(cfg adminauth.StoreConfig) (kv.Store, func(), error) {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return kv.NewRedisStore(client), func() { _ = client.Close() }, nil
	default:
		return kv.NewMemoryStore(), func() {}, nil
	}
}

func fatal(msg string, err error) {
	_, _ = os.Stderr.WriteString("adminauthd: " + msg + ": " + err.Error() + "\n")
	os.Exit(1)
}
