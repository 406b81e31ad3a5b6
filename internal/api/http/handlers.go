package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/resolverd/resolverd/internal/profile"
	"github.com/resolverd/resolverd/internal/session"
	"github.com/resolverd/resolverd/internal/shortcut"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	tracker  *profile.Tracker
	sessions *session.Manager
	version  string
	started  time.Time
}

// NewHandlers creates a new handler set.
func NewHandlers(tracker *profile.Tracker, sessions *session.Manager, version string) *Handlers {
	return &Handlers{
		tracker:  tracker,
		sessions: sessions,
		version:  version,
		started:  time.Now(),
	}
}

// Root handles the service banner.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "resolverd",
		"version": h.version,
	})
}

// Health handles the health check.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"profiles":       len(h.tracker.Users()),
		"sessions":       len(h.sessions.Sessions()),
	})
}

// ListProfiles returns the tracked profile group.
func (h *Handlers) ListProfiles(c *gin.Context) {
	snap := h.tracker.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"users":        snap.Users,
		"availability": snap.Availability,
	})
}

type availabilityRequest struct {
	Available bool `json:"available"`
}

// SetAvailability requests a profile availability change. The outcome lands
// asynchronously in the profile snapshot.
func (h *Handlers) SetAvailability(c *gin.Context) {
	user, ok := userParam(c, "id")
	if !ok {
		return
	}

	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.tracker.RequestState(c.Request.Context(), user, req.Available)
	c.JSON(http.StatusAccepted, gin.H{
		"user":      user,
		"requested": req.Available,
	})
}

// ListSessions lists the live resolution sessions.
func (h *Handlers) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.sessions.Sessions()})
}

// GetResult returns the profile's most recently settled resolution.
func (h *Handlers) GetResult(c *gin.Context) {
	user, ok := userParam(c, "profile")
	if !ok {
		return
	}

	result, found := h.sessions.Latest(user)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no settled result for profile"})
		return
	}
	c.JSON(http.StatusOK, result)
}

type targetsRequest struct {
	Targets []shortcut.AppTarget `json:"targets" binding:"required"`
}

// UpdateAppTargets replaces the profile's resolved application targets,
// starting a resolution session if none exists.
func (h *Handlers) UpdateAppTargets(c *gin.Context) {
	user, ok := userParam(c, "profile")
	if !ok {
		return
	}

	var req targetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.sessions.UpdateAppTargets(user, req.Targets)
	c.JSON(http.StatusAccepted, gin.H{
		"profile": user,
		"targets": len(req.Targets),
	})
}

// ResetSession clears the profile's session state and re-queries.
func (h *Handlers) ResetSession(c *gin.Context) {
	user, ok := userParam(c, "profile")
	if !ok {
		return
	}

	if err := h.sessions.Reset(user); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": user, "reset": true})
}

func userParam(c *gin.Context, name string) (profile.UserID, bool) {
	raw := c.Param(name)
	parsed, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile id: " + raw})
		return 0, false
	}
	return profile.UserID(parsed), true
}
