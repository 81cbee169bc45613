package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jjinnspecs/authhub/internal/auth"
	"github.com/jjinnspecs/authhub/internal/cache"
	"github.com/jjinnspecs/authhub/internal/config"
	"github.com/jjinnspecs/authhub/internal/http/handlers"
	"github.com/jjinnspecs/authhub/internal/http/middlewares"
	"github.com/jjinnspecs/authhub/internal/observability"
	"github.com/jjinnspecs/authhub/internal/repo/postgres"
	"github.com/jjinnspecs/authhub/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouterDeps struct {
	Config       config.Config
	Log          *slog.Logger
	Pool         *pgxpool.Pool
	ProfileCache *cache.ProfileCache
	Prom         *observability.Prom
	Registry     *prometheus.Registry
	JWT          *auth.Manager
	Hasher       *security.Hasher
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(deps.Log))
	r.Use(otelgin.Middleware("authhub"))
	r.Use(deps.Prom.GinHandleMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(deps.Config.CORSOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(1 << 20))

	// health
	ping := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if deps.Pool != nil {
			if err := deps.Pool.Ping(ctx); err != nil {
				return err
			}
		}

		if deps.ProfileCache != nil {
			return deps.ProfileCache.Ping(ctx)
		}

		return nil
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	// wire up repositories and handlers
	usersRepo := postgres.NewUsersRepo(deps.Pool, deps.Prom)

	var profileCache handlers.ProfileCache
	if deps.ProfileCache != nil {
		profileCache = deps.ProfileCache
	}

	authHandler := handlers.NewAuthHandler(usersRepo, deps.Hasher, deps.JWT, deps.Log)
	usersHandler := handlers.NewUsersHandler(usersRepo, profileCache, deps.Log)
	authMW := middlewares.NewAuthMiddleware(deps.JWT)

	api := r.Group("/api")
	api.POST("/signup", authHandler.SignUp)
	api.POST("/login", authHandler.Login)
	api.GET("/user", authMW.RequireAuth(), usersHandler.Me)

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondNotFound(ctx, "Not Found")
	})

	return r
}
