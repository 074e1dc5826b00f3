package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// NewServer creates a new HTTP server with all routes configured.
// A nil limiter disables rate limiting.
func NewServer(handler *Handler, metrics *Metrics, limiter *rate.Limiter) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health", "/metrics"},
	}))

	r.Use(gin.Recovery())
	r.Use(metrics.Middleware())

	// The timeline is consumed by browser front-ends on other origins.
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, metrics, limiter)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, metrics *Metrics, limiter *rate.Limiter) {
	loads := r.Group("/")
	loads.Use(rateLimitMiddleware(limiter))
	{
		loads.GET("/timeline", handler.GetTimeline)
		loads.GET("/timeline.xml", handler.GetTimelineFeed)
	}

	r.GET("/health", handler.GetHealth)
	r.GET("/metrics", metrics.Handler())
	r.GET("/", handler.GetInfo)

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// rateLimitMiddleware shares one token bucket across all clients: every
// timeline request turns into two upstream sheet requests.
func rateLimitMiddleware(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter != nil && !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many timeline loads, retry shortly",
			})
			return
		}
		c.Next()
	}
}
