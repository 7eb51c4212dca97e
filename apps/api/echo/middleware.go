package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/paku/core"
	"github.com/trezcool/paku/services/metrics"
)

// roleMiddleware only lets through the sessions of the given role.
func roleMiddleware(role core.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.Role == role && claims.Subject != "" {
				return next(ctx)
			}
			return core.NewAuthorizationError(claims.Actor(), string(role)+" session required")
		}
	}
}

func metricsMiddleware(m *metrics.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				ctx.Error(err) // resolve the status code now
			}
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveHTTPRequest(ctx.Request().Method, route, ctx.Response().Status, time.Since(start))
			return nil
		}
	}
}
