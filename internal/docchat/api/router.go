package api

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"docchat/internal/config"
	"docchat/pkg/ratelimiter"
)

// SetupRouter wires the HTTP endpoints and the static chat UI.
func SetupRouter(h *Handler, cfg *config.AppConfig) (*gin.Engine, error) {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	if cfg.Middleware.RateLimiter.Enabled {
		limiter, err := newLimiter(&cfg.Middleware.RateLimiter)
		if err != nil {
			return nil, err
		}
		r.Use(rateLimitMiddleware(limiter))
	}

	r.POST("/upload/", h.Upload)
	r.POST("/ask/:document_id", h.Ask)
	r.GET("/documents/", h.ListDocuments)
	r.GET("/healthz", h.Healthz)

	if cfg.Server.WebRoot != "" {
		r.StaticFile("/", filepath.Join(cfg.Server.WebRoot, "index.html"))
		r.Static("/static", cfg.Server.WebRoot)
	}

	return r, nil
}

func newLimiter(cfg *config.RateLimiterConfig) (ratelimiter.Limiter, error) {
	window, err := time.ParseDuration(cfg.Window)
	if err != nil || window <= 0 {
		window = time.Minute
	}
	return ratelimiter.New(cfg.Algorithm, cfg.Rate, cfg.Capacity, cfg.Limit, window)
}

func rateLimitMiddleware(limiter ratelimiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
