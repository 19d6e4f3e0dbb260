// Package http exposes the home model over a JSON API for the shell UI.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hearthos/shell/internal/domain/bundle"
	"github.com/hearthos/shell/internal/domain/home"
	"github.com/hearthos/shell/internal/infrastructure/logging"
)

// Handlers holds HTTP handler dependencies
type Handlers struct {
	engine  *home.Engine
	bundles *bundle.Registry
	logger  *logging.Logger
}

// NewHandlers creates the API handlers
func NewHandlers(engine *home.Engine, bundles *bundle.Registry, logger *logging.Logger) *Handlers {
	return &Handlers{
		engine:  engine,
		bundles: bundles,
		logger:  logger,
	}
}

// Root returns service identification
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "hearthos-shell",
		"status":  "running",
	})
}

// Health returns liveness status
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// ListActivities returns all tracked activities in launch order
func (h *Handlers) ListActivities(c *gin.Context) {
	activities := h.engine.List()
	c.JSON(http.StatusOK, gin.H{
		"activities": activities,
		"count":      len(activities),
	})
}

// GetActivity returns one activity by id
func (h *Handlers) GetActivity(c *gin.Context) {
	id := c.Param("id")
	activity, ok := h.engine.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "activity not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"activity": activity,
		"position": h.engine.Index(id),
	})
}

// CurrentActivity returns the focused activity, if any
func (h *Handlers) CurrentActivity(c *gin.Context) {
	activity, ok := h.engine.Current()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"activity": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": activity})
}

// GetStats returns home model statistics
func (h *Handlers) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Stats())
}

type launchRequest struct {
	ActivityID  string `json:"activity_id"`
	ServiceName string `json:"service_name" binding:"required"`
}

// LaunchActivity announces a launch intent. An activity id is minted
// when the launcher does not supply one.
func (h *Handlers) LaunchActivity(c *gin.Context) {
	var req launchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.ActivityID == "" {
		req.ActivityID = uuid.New().String()
	}

	if err := h.engine.NotifyActivityLaunch(req.ActivityID, req.ServiceName); err != nil {
		if errors.Is(err, home.ErrUnknownServiceType) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("launch intent accepted",
		zap.String("activity_id", req.ActivityID),
		zap.String("service_name", req.ServiceName))
	c.JSON(http.StatusCreated, gin.H{"activity_id": req.ActivityID})
}

// LaunchFailed reports a failed launch
func (h *Handlers) LaunchFailed(c *gin.Context) {
	id := c.Param("id")
	h.engine.NotifyActivityLaunchFailed(id)
	c.JSON(http.StatusOK, gin.H{"activity_id": id})
}

// ListBundles returns the installed bundle registry
func (h *Handlers) ListBundles(c *gin.Context) {
	bundles := h.bundles.List()
	c.JSON(http.StatusOK, gin.H{
		"bundles": bundles,
		"count":   len(bundles),
	})
}
