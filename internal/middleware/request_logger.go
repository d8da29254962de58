package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sjperalta/fintera-financing/pkg/logger"
)

// RequestIDHeader carries the correlation id of a request, echoed back in
// the response.
const RequestIDHeader = "X-Request-ID"

// RequestLogger logs incoming HTTP requests using slog
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestID", requestID)
		c.Header(RequestIDHeader, requestID)
		raw := c.Request.URL.RawQuery

		// Process request
		c.Next()

		// Skip logging for health checks and scrapes to avoid noise
		if path == "/api/v1/health" || path == "/metrics" {
			return
		}

		end := time.Now()
		latency := end.Sub(start)

		clientIP := c.ClientIP()
		method := c.Request.Method
		statusCode := c.Writer.Status()
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		userAgent := c.Request.UserAgent()

		// Export links carry the JWT as ?token=; never log it
		if raw != "" && c.Query("token") == "" {
			path = path + "?" + raw
		}

		// Log attributes
		attrs := []any{
			slog.String("request_id", requestID),
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", statusCode),
			slog.String("ip", clientIP),
			slog.Duration("latency", latency),
			slog.String("user_agent", userAgent),
		}

		// Add error message if present
		if errorMessage != "" {
			attrs = append(attrs, slog.String("error", errorMessage))
		}

		// Add user ID if authenticated
		if userID, exists := c.Get("userID"); exists {
			attrs = append(attrs, slog.Any("user_id", userID))
		}

		ctx := c.Request.Context()
		msg := "Incoming request"
		if statusCode >= 500 {
			logger.Log.ErrorContext(ctx, msg, attrs...)
		} else if statusCode >= 400 {
			logger.Log.WarnContext(ctx, msg, attrs...)
		} else {
			logger.Log.InfoContext(ctx, msg, attrs...)
		}
	}
}
