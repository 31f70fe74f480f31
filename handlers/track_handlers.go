package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"decktrack/api/engagement"
	"decktrack/api/logging"
	"decktrack/api/models"

	"github.com/gin-gonic/gin"
)

const ingestTimeout = 10 * time.Second

// TrackHandlers serve the public viewer endpoints. Viewers are anonymous and
// identified only by the presentation token they carry.
type TrackHandlers struct {
	Engine *engagement.Engine
}

func NewTrackHandlers(e *engagement.Engine) *TrackHandlers {
	return &TrackHandlers{Engine: e}
}

func (h *TrackHandlers) Open(c *gin.Context) {
	var req models.OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = c.Request.UserAgent()
	}

	ctx, cancel := h.ingestContext(c)
	defer cancel()
	h.respond(c, h.Engine.RecordOpen(ctx, req.Token, userAgent))
}

func (h *TrackHandlers) Stay(c *gin.Context) {
	var req models.StayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.SlideIndex == nil || req.Duration == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slideIndex and duration are required"})
		return
	}

	ctx, cancel := h.ingestContext(c)
	defer cancel()
	h.respond(c, h.Engine.RecordStay(ctx, req.Token, *req.SlideIndex, *req.Duration))
}

func (h *TrackHandlers) Complete(c *gin.Context) {
	var req models.CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := h.ingestContext(c)
	defer cancel()
	h.respond(c, h.Engine.RecordComplete(ctx, req.Token))
}

// Track accepts the combined {eventType, token, payload} form.
func (h *TrackHandlers) Track(c *gin.Context) {
	var ev models.TrackEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if ev.EventType == models.EventOpen && ev.Payload.UserAgent == "" {
		ev.Payload.UserAgent = c.Request.UserAgent()
	}

	ctx, cancel := h.ingestContext(c)
	defer cancel()
	h.respond(c, h.Engine.Record(ctx, ev))
}

func (h *TrackHandlers) ingestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	ctx := engagement.WithClientIP(c.Request.Context(), c.ClientIP())
	return context.WithTimeout(ctx, ingestTimeout)
}

func (h *TrackHandlers) respond(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, engagement.ErrInvalidEvent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logging.Error().Err(err).Str("path", c.FullPath()).Msg("failed to record viewer event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record event"})
	}
}
