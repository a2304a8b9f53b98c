package middleware

import (
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
)

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an id (taken from the client when
// present) and logs one line per request once the handler returns.
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            id := req.Header.Get(RequestIDHeader)
            if id == "" {
                id = uuid.NewString()
            }
            c.Response().Header().Set(RequestIDHeader, id)
            c.Set("request_id", id)

            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }

            entry := log.WithFields(logrus.Fields{
                "request_id": id,
                "method":     req.Method,
                "path":       c.Path(),
                "status":     c.Response().Status,
                "latency_ms": time.Since(start).Milliseconds(),
                "remote_ip":  c.RealIP(),
            })
            if uid, ok := c.Get("user_id").(string); ok {
                entry = entry.WithField("user_id", uid)
            }
            switch s := c.Response().Status; {
            case s >= 500:
                entry.WithError(err).Error("request failed")
            case s >= 400:
                entry.Warn("request rejected")
            default:
                entry.Info("request served")
            }
            return nil
        }
    }
}
