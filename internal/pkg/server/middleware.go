package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/okapiride/dispatch/internal/pkg/logger"
)

const headerRequestID = "X-Request-ID"

// RequestID attaches a request id to the response, generating one if absent.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqID := c.Request().Header.Get(headerRequestID)
			if reqID == "" {
				reqID = uuid.New().String()
			}
			c.Response().Header().Set(headerRequestID, reqID)
			c.Set("request_id", reqID)
			return next(c)
		}
	}
}

// RequestLogger logs every request with latency and status.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			fields := logrus.Fields{
				"method":     c.Request().Method,
				"path":       c.Path(),
				"status":     status,
				"latency_ms": time.Since(start).Milliseconds(),
				"client_ip":  c.RealIP(),
			}
			if reqID, ok := c.Get("request_id").(string); ok {
				fields["request_id"] = reqID
			}

			switch {
			case status >= 500:
				logger.Error("request failed", fields)
			case status >= 400:
				logger.Warn("request rejected", fields)
			default:
				logger.Info("request processed", fields)
			}
			return err
		}
	}
}

// Recover converts panics into 500 responses instead of crashing the worker.
func Recover() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("panic recovered", logrus.Fields{
						"panic": fmt.Sprintf("%v", r),
						"path":  c.Path(),
					})
					_ = c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
				}
			}()
			return next(c)
		}
	}
}
