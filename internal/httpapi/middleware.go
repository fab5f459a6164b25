package httpapi

import (
	"strconv"
	"time"

	"github.com/DreamCats/lexrag/internal/metrics"
	"github.com/DreamCats/lexrag/internal/tracing"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Metrics records request counts and latency per route
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		method := c.Request.Method

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// CORS allows browser clients from origins; empty means any origin
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"X-Trace-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// Trace starts a server span per request
func Trace() gin.HandlerFunc {
	return otelgin.Middleware(tracing.ServiceName)
}

// TraceID sets the X-Trace-ID response header when the request is sampled
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := tracing.TraceID(c.Request.Context()); id != "" {
			c.Header("X-Trace-ID", id)
		}
		c.Next()
	}
}
