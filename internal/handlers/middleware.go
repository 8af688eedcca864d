package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

const requestIDKey = "request_id"

// RequestID assigns every request an id, echoed in the X-Request-Id
// header. It doubles as the trace id when no tracer is configured.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set(requestIDKey, id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

// CORS mirrors the headers the upstream web clients expect.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// RequestLogger writes one structured access-log line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.WithFields(log.Fields{
			"event":      "request",
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"trace_id":   c.GetString(requestIDKey),
		}).Info("Request handled")
	}
}

// traceIDFrom prefers the active span's trace id and falls back to the
// per-request id when the tracer is a no-op.
func traceIDFrom(c *gin.Context, span trace.Span) string {
	if sc := span.SpanContext(); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return c.GetString(requestIDKey)
}

// Routes assembles the gin engine with all middleware and endpoints.
func Routes(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), CORS(), RequestLogger(), gin.Recovery())

	router.GET("/", h.Index)
	router.GET("/health", h.HealthCheck)
	router.GET("/live_check", h.LiveCheck)
	router.GET("/ready_check", h.ReadyCheck)
	router.POST("/predict", h.Predict)
	// Legacy alias kept for clients that call with a trailing slash.
	router.POST("/predict/", h.Predict)

	return router
}
