package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/clipscout/clipscout/internal/models"
	"github.com/clipscout/clipscout/internal/queue"
)

const defaultLogLimit = 100

// health reports overall service health.
// GET /healthz
func (r *Router) health(c *gin.Context) {
	snapshots := r.registry.Snapshot()
	available := 0
	for _, s := range snapshots {
		if !s.CircuitOpen {
			available++
		}
	}

	status := "healthy"
	code := http.StatusOK
	if available == 0 {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":              status,
		"version":             serviceVersion,
		"instances_total":     len(snapshots),
		"instances_available": available,
	})
}

// stats returns the run counters, status line, and queue depths.
// GET /api/v1/stats
func (r *Router) stats(c *gin.Context) {
	ctx := c.Request.Context()

	depths := make(map[string]int, 4)
	for _, dest := range queue.Destinations() {
		n, err := r.store.Len(ctx, dest)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to read queue depth",
			})
			return
		}
		depths[string(dest)] = n
		if r.depths != nil {
			r.depths.SetQueueDepth(string(dest), n)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   r.run.Status(),
		"counters": r.run.Counters(),
		"queue":    depths,
	})
}

// instances returns the mirror-pool health snapshot.
// GET /api/v1/instances
func (r *Router) instances(c *gin.Context) {
	snapshots := r.registry.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"instances": snapshots,
		"count":     len(snapshots),
	})
}

// logs returns the tail of the in-memory run log.
// GET /api/v1/logs?limit=100
func (r *Router) logs(c *gin.Context) {
	limit := defaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}

	entries := r.run.Entries()
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

type collectRequest struct {
	Target   int    `json:"target" binding:"required"`
	Category string `json:"category" binding:"required"`
}

// startCollection begins a new collection run.
// POST /api/v1/collect
func (r *Router) startCollection(c *gin.Context) {
	var req collectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"details": err.Error(),
		})
		return
	}

	category, err := models.ParseCategory(req.Category)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.collector.Active() {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "A collection run is already active",
			"run_id": r.collector.RunID(),
		})
		return
	}

	if err := r.collector.Start(req.Target, category); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"run_id":   r.collector.RunID(),
		"target":   req.Target,
		"category": category,
	})
}

// collectStep executes one search round of the active run.
// POST /api/v1/collect/step
func (r *Router) collectStep(c *gin.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.collector.Step(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":  err.Error(),
			"result": result,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// rateNext rates the oldest queued candidate.
// POST /api/v1/rate/next
func (r *Router) rateNext(c *gin.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.rater.RateNext(c.Request.Context())
	if err != nil {
		if errors.Is(err, queue.ErrEmpty) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "No queued candidates to rate",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
