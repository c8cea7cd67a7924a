package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/novostroy/novostroy-api/internal/auth"
	"github.com/novostroy/novostroy-api/internal/config"
	"github.com/novostroy/novostroy-api/internal/logger"
	"github.com/novostroy/novostroy-api/internal/notify"
	"github.com/novostroy/novostroy-api/internal/ratelimit"
)

const (
	forgotPasswordPerMinute = 3
	notificationsPerMinute  = 10
)

// Deps are the services the HTTP layer delegates to.
type Deps struct {
	Auth     *auth.Service
	Notifier *notify.Service
	Logger   *logger.Logger

	// Limiter builds a throttle allowing rate hits per window under the given name.
	// Nil means in-memory limiters.
	Limiter func(name string, rate int, window time.Duration) ratelimit.Limiter
}

type Api struct {
	Config   config.Config
	Router   *chi.Mux
	auth     *auth.Service
	notifier *notify.Service
	log      *logger.Logger
	limiters []ratelimit.Limiter
	newLimit func(name string, rate int, window time.Duration) ratelimit.Limiter
	proxies  ratelimit.TrustedProxies
}

func NewApi(cfg config.Config, deps Deps) (*Api, error) {
	if cfg.APIPort == 0 {
		return nil, errors.New("Must have at least a port to start API")
	}
	if deps.Auth == nil || deps.Notifier == nil {
		return nil, errors.New("api: auth and notification services are required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Limiter == nil {
		deps.Limiter = func(_ string, rate int, window time.Duration) ratelimit.Limiter {
			return ratelimit.NewMemoryLimiter(rate, window)
		}
	}

	proxies, err := ratelimit.ParseTrustedProxies(cfg.Throttle.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}

	api := &Api{
		Config:   cfg,
		Router:   chi.NewRouter(),
		auth:     deps.Auth,
		notifier: deps.Notifier,
		log:      deps.Logger,
		newLimit: deps.Limiter,
		proxies:  proxies,
	}
	api.setupRoutes()
	return api, nil
}

func (api *Api) throttle(name string, rate int) func(http.Handler) http.Handler {
	l := api.newLimit(name, rate, time.Minute)
	api.limiters = append(api.limiters, l)
	return ratelimit.Middleware(l, ratelimit.Options{
		Name:      name,
		Proxies:   api.proxies,
		Logger:    api.log,
		OnLimited: api.tooManyRequests,
	})
}

func (api *Api) setupRoutes() {
	r := api.Router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   api.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/heartbeat"))

	r.NotFound(api.NotFound)
	r.MethodNotAllowed(api.MethodNotAllowed)
	r.Get("/ping", api.Ping)

	// Public routes
	r.Post("/login", api.LoginHandler)
	r.Post("/register", api.RegisterHandler)
	r.Post("/reset-password", api.ResetPasswordHandler)
	r.With(api.throttle("forgot-password", forgotPasswordPerMinute)).
		Post("/forgot-password", api.ForgotPasswordHandler)
	r.With(api.throttle("service-request", notificationsPerMinute)).
		Post("/notify/service-request", api.ServiceRequestHandler)

	r.Group(func(r chi.Router) {
		r.Use(CookieToHeader)

		// refresh validates the token itself so expired tokens can still be exchanged
		r.With(api.RequireBearer).Post("/refresh", api.RefreshHandler)

		r.Group(func(r chi.Router) {
			r.Use(api.Authenticate)
			r.Post("/logout", api.LogoutHandler)
			r.Get("/user", api.UserHandler)
		})
	})
}

// clientIP honours forwarding headers only from configured proxies.
func (api *Api) clientIP(r *http.Request) string {
	return api.proxies.ClientIP(r)
}

// Serve listens until ctx is cancelled, then drains in-flight requests.
func (api *Api) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", api.Config.APIPort),
		Handler:           api.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		api.log.Info("starting API server", "addr", srv.Addr)
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

	api.log.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	api.Close()
	return err
}

// Close releases the throttles.
func (api *Api) Close() {
	for _, l := range api.limiters {
		l.Close()
	}
}
