package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ayase/picvault/internal/logger"
)

// LoggerMiddleware injects a request-scoped logger carrying a generated
// request id into the request context, and logs one completion line per
// request with status, duration and response size.
func LoggerMiddleware(base *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.New().String()

		ctx := logger.WithFields(c.Request.Context(), logger.Fields{
			logger.FieldRequestID: requestID,
			logger.FieldComponent: "api",
		})
		c.Request = c.Request.WithContext(ctx)
		c.Set("logger", base.WithField(logger.FieldRequestID, requestID))
		c.Header("X-Request-ID", requestID)

		c.Next()

		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path = path + "?" + q
		}
		logger.With(logger.Fields{
			logger.FieldStatus:     c.Writer.Status(),
			logger.FieldDurationMs: time.Since(start).Milliseconds(),
			logger.FieldSize:       c.Writer.Size(),
		}).Info(ctx, "%s %s from %s", c.Request.Method, path, c.ClientIP())
	}
}

// GetLogger returns the request-scoped logger set by LoggerMiddleware,
// falling back to the context logger.
func GetLogger(c *gin.Context) *logger.Logger {
	if l, ok := c.Get("logger"); ok {
		if log, ok := l.(*logger.Logger); ok {
			return log
		}
	}
	return logger.FromContext(c.Request.Context())
}
