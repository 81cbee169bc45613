package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jjinnspecs/authhub/internal/auth"
	"github.com/jjinnspecs/authhub/internal/cache"
	"github.com/jjinnspecs/authhub/internal/config"
	"github.com/jjinnspecs/authhub/internal/db"
	httpx "github.com/jjinnspecs/authhub/internal/http"
	"github.com/jjinnspecs/authhub/internal/observability"
	"github.com/jjinnspecs/authhub/internal/security"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	// tracing
	if cfg.OTLPEndpoint != "" {
		ctx, cancel := config.WithTimeout(5 * time.Second)
		shutdownTracer, err := observability.InitTracer(ctx, "authhub", cfg.OTLPEndpoint)
		cancel()

		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				ctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = shutdownTracer(ctx)
			}()
		}
	}

	// metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	// database
	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	{
		ctx, cancel := config.WithTimeout(5 * time.Second)
		err = db.EnsureSchema(ctx, pool)
		cancel()

		if err != nil {
			log.Error("schema bootstrap failed", "err", err)
			os.Exit(1)
		}
	}

	// optional profile cache
	var profileCache *cache.ProfileCache

	if cfg.RedisAddr != "" {
		profileCache = cache.New(cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer profileCache.Close()
	}

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	hasher := security.NewHasher(cfg.BcryptCost, cfg.MaxHashInFlight, prom)

	router := httpx.NewRouter(httpx.RouterDeps{
		Config:       cfg,
		Log:          log,
		Pool:         pool,
		ProfileCache: profileCache,
		Prom:         prom,
		Registry:     reg,
		JWT:          jwtManager,
		Hasher:       hasher,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
