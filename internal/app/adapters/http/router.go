package http

import (
	"context"
	"errors"
	"fmt"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"log/slog"
	"modbot/internal/app/adapters/http/handlers"
	"modbot/internal/app/adapters/http/middlewares"
	"modbot/internal/app/infrastructure/config"
	"modbot/pkg/logger"
	"net/http"
	"time"
)

type Router struct {
	router      *gin.Engine
	handlers    *handlers.Handlers
	middlewares *middlewares.Middlewares

	log  logger.Logger
	addr string
}

func NewRouter(log logger.Logger, cfg *config.Config, deps handlers.Deps) *Router {
	r := &Router{
		router:      gin.New(),
		handlers:    handlers.New(log, deps),
		middlewares: middlewares.New(),
		log:         log,
		addr:        cfg.HTTP.Addr,
	}
	r.router.Use(gin.Recovery())

	// без токена pprof и /metrics не регистрируются
	if cfg.App.AuthToken != "" {
		accounts := gin.Accounts{"admin": cfg.App.AuthToken}

		pprofGroup := r.router.Group("/", gin.BasicAuth(accounts))
		pprof.Register(pprofGroup)

		r.router.GET("/metrics", gin.BasicAuth(accounts), gin.WrapH(promhttp.Handler()))
	} else {
		log.Warn("app.auth_token is empty, /metrics and pprof are disabled")
	}
	r.router.GET("/healthz", r.handlers.HealthHandler)

	api := r.router.Group("/api", r.middlewares.Auth(cfg.App.AuthToken))
	api.POST("/velocity/run", r.handlers.RunVelocityHandler)
	api.POST("/botlist/refresh", r.handlers.RefreshBotListHandler)

	return r
}

func (r *Router) Handler() http.Handler {
	return r.router
}

func (r *Router) String() string {
	return "http"
}

// Serve listens until ctx is cancelled and then shuts the server down.
func (r *Router) Serve(ctx context.Context) error {
	srv := r.newServer(r.addr, r.router)

	errCh := make(chan error, 1)
	go func() {
		r.log.Info("HTTP server listening", slog.String("addr", r.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		r.log.Error("HTTP server shutdown failed", err)
	}
	return ctx.Err()
}

func (r *Router) newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      time.Minute,
		IdleTimeout:       30 * time.Second,
	}
}
