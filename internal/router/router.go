// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/aloha-admin/internal/config"
	"github.com/iliyamo/aloha-admin/internal/handler"
	"github.com/iliyamo/aloha-admin/internal/middleware"
	"github.com/iliyamo/aloha-admin/internal/model"
	"github.com/iliyamo/aloha-admin/internal/obs"
)

// Deps is everything the routes need. Redis may be nil, in which case the
// limiter and cache pass requests straight through.
type Deps struct {
	Auth    *handler.AuthHandler
	Profile *handler.ProfileHandler
	Admin   *handler.AdminHandler
	Health  *handler.HealthHandler

	Authenticator *middleware.Authenticator
	Redis         *redis.Client
	RateLimit     config.RateLimitConfig
	Cache         config.CacheConfig
	Metrics       *obs.Metrics
	Logger        *zap.Logger
}

// New returns an Echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(d.Logger)
	e.Use(echomw.Recover())
	e.Use(accessLog(obs.OrNop(d.Logger).Named("http")))
	Register(e, d)
	return e
}

// Register mounts the routes on e.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", d.Health.Health)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	rdb := d.Redis
	limiter := middleware.NewTokenBucket(d.RateLimit, rdb, d.Logger)
	requireAuth := middleware.JWTAuth(d.Authenticator)

	// Session endpoints. Only logout needs a live access token.
	g := e.Group("/v1/auth")
	g.POST("/register", d.Auth.Register, limiter)
	g.POST("/login", d.Auth.Login, limiter)
	g.POST("/refresh", d.Auth.Refresh, limiter)
	g.POST("/logout", d.Auth.Logout, requireAuth)

	me := e.Group("/v1/me", requireAuth)
	me.GET("", d.Profile.Me)
	me.PATCH("", d.Profile.UpdateMe)

	// The cache runs after the role gate so only admins are ever served
	// from it, and entries are keyed per caller.
	admin := e.Group("/v1/admin", requireAuth, middleware.RequireRole(model.RoleAdmin))
	admin.GET("/users", d.Admin.ListUsers, middleware.NewRedisCache(d.Cache, rdb, d.Logger))
}

func accessLog(log *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("path", v.URIPath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.RequestID != "" {
				fields = append(fields, zap.String("request_id", v.RequestID))
			}
			if v.Error != nil {
				fields = append(fields, zap.String("error_kind", errorKind(v.Error)))
			}
			log.Info("request", fields...)
			return nil
		},
	})
}

func errorKind(err error) string {
	_, body := handler.Status(err)
	return body.Error
}
