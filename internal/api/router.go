// Package api exposes the HTTP control surface: run state, instance health,
// pipeline triggers, and the Prometheus scrape endpoint.
package api

import (
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clipscout/clipscout/internal/collector"
	"github.com/clipscout/clipscout/internal/config"
	"github.com/clipscout/clipscout/internal/logger"
	"github.com/clipscout/clipscout/internal/pipeline"
	"github.com/clipscout/clipscout/internal/queue"
	"github.com/clipscout/clipscout/internal/rater"
	"github.com/clipscout/clipscout/internal/registry"
)

const (
	corsMaxAge     = 12 * time.Hour
	serviceVersion = "1.0.0"
)

// DepthRecorder mirrors queue depths onto the metrics gauges.
type DepthRecorder interface {
	SetQueueDepth(destination string, depth int)
}

// Router holds the API dependencies.
type Router struct {
	collector *collector.Pipeline
	rater     *rater.Pipeline
	registry  *registry.Registry
	store     queue.Store
	run       *pipeline.Context
	depths    DepthRecorder
	cfg       *config.Config
	logger    logger.Logger

	// Serializes collection runs; the pipelines rate one item at a time.
	mu sync.Mutex
}

// NewRouter creates a new API router. depths may be nil.
func NewRouter(
	col *collector.Pipeline,
	rat *rater.Pipeline,
	reg *registry.Registry,
	store queue.Store,
	run *pipeline.Context,
	depths DepthRecorder,
	cfg *config.Config,
	log logger.Logger,
) *Router {
	return &Router{
		collector: col,
		rater:     rat,
		registry:  reg,
		store:     store,
		run:       run,
		depths:    depths,
		cfg:       cfg,
		logger:    log,
	}
}

// Engine builds the gin engine with middleware and all routes attached.
func (r *Router) Engine() *gin.Engine {
	if !r.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(r.requestLogger())
	engine.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       corsMaxAge,
	}))

	engine.GET("/healthz", r.health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/api/v1")
	{
		v1.GET("/stats", r.stats)
		v1.GET("/instances", r.instances)
		v1.GET("/logs", r.logs)

		v1.POST("/collect", r.startCollection)
		v1.POST("/collect/step", r.collectStep)
		v1.POST("/rate/next", r.rateNext)
	}

	return engine
}

// requestLogger logs each request with latency and status.
func (r *Router) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		r.logger.Debug("http request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)),
		)
	}
}
