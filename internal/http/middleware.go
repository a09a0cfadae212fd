package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"videominer/internal/core/domain"
)

const (
	headerAccessPin      = "X-Access-Pin"
	headerPinterestToken = "X-Pinterest-Token"
	headerRequestID      = "X-Request-ID"
	headerPartialFailure = "X-Partial-Failure"
)

// CORS allows the configured origins. "*" allows any origin.
func CORS(origins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Accept-Language", headerAccessPin, headerPinterestToken},
		ExposeHeaders:    []string{headerRequestID, headerPartialFailure},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			config.AllowOriginFunc = func(origin string) bool { return true }
			return cors.New(config)
		}
	}
	config.AllowOrigins = origins
	return cors.New(config)
}

// RequestLogger tags every request with an id and logs it once finished.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(headerRequestID, requestID)

		c.Next()

		event := logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

// Recovery turns a handler panic into a 500 with the usual error body.
func Recovery(logger zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("handler panicked")
		respondMessage(c, http.StatusInternalServerError, domain.Message(domain.MsgUnexpected, domain.LanguageFrom(c.Request.Context())))
	})
}

// Language stores the Accept-Language preference on the request context.
func Language() gin.HandlerFunc {
	return func(c *gin.Context) {
		if lang := c.GetHeader("Accept-Language"); lang != "" {
			c.Request = c.Request.WithContext(domain.WithLanguage(c.Request.Context(), lang))
		}
		c.Next()
	}
}

// PinGate rejects requests without the shared access PIN. An empty pin
// disables the gate; health checks and preflights always pass.
func PinGate(pin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if pin == "" || c.Request.Method == http.MethodOptions || c.FullPath() == "/api/health" {
			c.Next()
			return
		}
		if subtle.ConstantTimeCompare([]byte(c.GetHeader(headerAccessPin)), []byte(pin)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid access pin"})
			return
		}
		c.Next()
	}
}

// Timeout bounds the request context.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
