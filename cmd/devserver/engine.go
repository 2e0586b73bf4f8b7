package main

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"portfolio-contact/handler"
)

type rateLimitConfig struct {
	RPS   int
	Burst int
}

// newEngine sends every request to h. Routing, trailing-slash normalization
// and CORS are the handler's job, so gin's own redirects are disabled.
func newEngine(h *handler.Handler, rl rateLimitConfig, logger *slog.Logger) *gin.Engine {
	engine := gin.New()
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false
	engine.HandleMethodNotAllowed = false
	engine.Use(gin.Recovery(), requestLogger(logger), rateLimit(rl, h.CORS()))
	engine.NoRoute(gin.WrapH(h))
	return engine
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"client_ip", c.ClientIP(),
			"latency", time.Since(start).String(),
		)
	}
}

// rateLimit guards the local relay with a single token bucket. Preflights
// are never limited.
func rateLimit(cfg rateLimitConfig, cors handler.CORSPolicy) gin.HandlerFunc {
	if cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if !limiter.Allow() {
			// Keep the browser able to read the 429.
			for k, v := range cors.Headers(c.GetHeader("Origin")) {
				c.Header(k, v)
			}
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message": "Too many requests. Please try again later.",
			})
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.RPS))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
		c.Next()
	}
}
