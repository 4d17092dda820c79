package middleware

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/circle/internal/observability"
)

// RequestLogger attaches a RequestContext to every request and logs its
// outcome once the handler returns.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			requestID := req.Header.Get(echo.HeaderXRequestID)

			var reqCtx *observability.RequestContext
			if requestID != "" {
				reqCtx = observability.NewRequestContextWithID(logger, requestID, c.Path())
			} else {
				reqCtx = observability.NewRequestContext(logger, c.Path())
			}
			c.Response().Header().Set(echo.HeaderXRequestID, reqCtx.RequestID)
			c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), reqCtx)))

			err := next(c)
			if err != nil {
				// Let echo's error handler write the response so the status is known.
				c.Error(err)
			}

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("uri", req.RequestURI),
				slog.Int(observability.LogFieldStatus, c.Response().Status),
				slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
				slog.String("remote_ip", c.RealIP()),
			}
			switch {
			case err != nil:
				reqCtx.Error("request failed", err, attrs...)
			case c.Response().Status >= 500:
				reqCtx.Warn("request completed with server error", attrs...)
			default:
				reqCtx.Info("request completed", attrs...)
			}
			return nil
		}
	}
}
