package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// HTTPObserver receives one sample per finished request.
type HTTPObserver interface {
	ObserveHTTP(method, route string, code int, d time.Duration)
}

// RequestLogger logs every request through zap and, when obs is not nil,
// records it as a metric.
func RequestLogger(log *zap.Logger, obs HTTPObserver) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let echo write the error response so the status below is final
				c.Error(err)
			}
			elapsed := time.Since(start)
			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			if obs != nil {
				obs.ObserveHTTP(c.Request().Method, route, status, elapsed)
			}

			level := zapcore.InfoLevel
			switch {
			case status >= 500:
				level = zapcore.ErrorLevel
			case status >= 400:
				level = zapcore.WarnLevel
			}
			if ce := log.Check(level, "http request"); ce != nil {
				fields := []zap.Field{
					zap.String("method", c.Request().Method),
					zap.String("path", c.Request().URL.Path),
					zap.String("route", route),
					zap.Int("status", status),
					zap.Duration("latency", elapsed),
					zap.String("ip", c.RealIP()),
				}
				if id, ok := UserID(c); ok {
					fields = append(fields, zap.Int64("user_id", id))
				}
				if err != nil {
					fields = append(fields, zap.Error(err))
				}
				ce.Write(fields...)
			}
			return nil
		}
	}
}
