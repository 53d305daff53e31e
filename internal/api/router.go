package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/msblog/userpost-system/internal/api/handler"
	"github.com/msblog/userpost-system/internal/api/middleware"
	"github.com/msblog/userpost-system/internal/core/ports"
)

// RouterDeps carries what every router needs besides its service.
type RouterDeps struct {
	Log zerolog.Logger
	// JWTSecret enables bearer auth on privileged routes when set.
	JWTSecret string
	// Readiness lists the dependencies checked by /health/ready.
	Readiness []handler.Dependency
	// Registry receives HTTP metrics and backs /metrics. Nil means the
	// Prometheus default registry.
	Registry *prometheus.Registry
}

// NewUsersRouter builds the User authority HTTP API.
func NewUsersRouter(svc ports.UserService, deps RouterDeps) *echo.Echo {
	e := newEcho("users", deps)

	users := handler.NewUserHandler(svc)

	e.POST("/users", users.Create)
	e.GET("/users", users.List)
	e.GET("/users/:id", users.Get)
	e.DELETE("/users/:id", users.Delete, privileged(deps.JWTSecret)...)

	return e
}

// NewPostsRouter builds the Post authority HTTP API.
func NewPostsRouter(svc ports.PostService, deps RouterDeps) *echo.Echo {
	e := newEcho("posts", deps)

	posts := handler.NewPostHandler(svc)

	e.GET("/posts", posts.List)
	e.POST("/posts", posts.Create)
	e.GET("/posts/:id", posts.Get)
	e.DELETE("/posts/:id", posts.Delete)
	e.GET("/users/:userId/posts", posts.ListByOwner)
	e.GET("/users/:userId/posts/:postId", posts.GetByOwner)

	return e
}

func newEcho(subsystem string, deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))

	metricsCfg := echoprometheus.MiddlewareConfig{Subsystem: subsystem}
	handlerCfg := echoprometheus.HandlerConfig{}
	if deps.Registry != nil {
		metricsCfg.Registerer = deps.Registry
		handlerCfg.Gatherer = deps.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(metricsCfg))
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(handlerCfg))

	// --- Health probes (no auth required) ---
	e.GET("/health", handler.NewHealthHandler().Liveness)                            // liveness
	e.GET("/health/ready", handler.NewReadinessHandler(deps.Readiness...).Readiness) // readiness

	return e
}

// privileged returns the admin-only middleware chain, or nothing when auth is
// disabled.
func privileged(jwtSecret string) []echo.MiddlewareFunc {
	if jwtSecret == "" {
		return nil
	}
	return []echo.MiddlewareFunc{middleware.Auth(jwtSecret), middleware.RBAC(middleware.RoleAdmin)}
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
