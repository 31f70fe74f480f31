package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"decktrack/api/engagement"
	"decktrack/api/logging"
	"decktrack/api/models"
	"decktrack/api/store"

	"github.com/gin-gonic/gin"
)

const (
	queryTimeout  = 10 * time.Second
	defaultWindow = 7 * 24 * time.Hour
)

// ArchiveReader answers queries over the raw event archive.
type ArchiveReader interface {
	GetEventCountsOverTime(ctx context.Context, interval string, start, end time.Time, eventTypeFilter string) ([]models.EventCountByTime, error)
	GetAverageDwell(ctx context.Context, token string, start, end time.Time) (float64, error)
	GetTopSlides(ctx context.Context, token string, start, end time.Time, limit uint64) ([]models.TopSlideResult, error)
}

type StatsHandlers struct {
	Analytics *engagement.Analytics
	// Archive is nil when ClickHouse is not configured.
	Archive ArchiveReader
}

func NewStatsHandlers(a *engagement.Analytics, archive ArchiveReader) *StatsHandlers {
	return &StatsHandlers{Analytics: a, Archive: archive}
}

func (h *StatsHandlers) Summary(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	summary, err := h.Analytics.Summary(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("failed to build summary")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// TokenDetail returns presentation, raw logs and report for one token.
// Unknown tokens answer 200 with an empty log.
func (h *StatsHandlers) TokenDetail(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	detail, err := h.Analytics.TokenDetail(ctx, c.Param("token"))
	if err != nil {
		logging.Error().Err(err).Str("token", c.Param("token")).Msg("failed to load token detail")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve statistics"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *StatsHandlers) Presentations(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	list, err := h.Analytics.EnrichedPresentations(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("failed to list enriched presentations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve presentations"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *StatsHandlers) Timeline(c *gin.Context) {
	if !h.archiveEnabled(c) {
		return
	}
	interval := c.Query("interval")
	if interval == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval query parameter is required (e.g., 'Day', 'Hour')"})
		return
	}
	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	results, err := h.Archive.GetEventCountsOverTime(ctx, interval, start, end, c.Query("eventType"))
	if errors.Is(err, store.ErrInvalidInterval) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("failed to get event counts over time")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve event statistics"})
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *StatsHandlers) AverageDwell(c *gin.Context) {
	if !h.archiveEnabled(c) {
		return
	}
	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}
	token := c.Query("token")

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	avg, err := h.Archive.GetAverageDwell(ctx, token, start, end)
	if err != nil {
		logging.Error().Err(err).Str("token", token).Msg("failed to get average dwell")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve average dwell statistics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":             token,
		"startDate":         start.Format(time.RFC3339),
		"endDate":           end.Format(time.RFC3339),
		"averageDurationMs": avg,
	})
}

func (h *StatsHandlers) TopSlides(c *gin.Context) {
	if !h.archiveEnabled(c) {
		return
	}
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token query parameter is required"})
		return
	}
	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}

	var limit uint64 = 10
	if limitParam := c.Query("limit"); limitParam != "" {
		parsed, err := strconv.ParseUint(limitParam, 10, 64)
		if err != nil || parsed == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'limit' parameter. Must be a positive integer."})
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	results, err := h.Archive.GetTopSlides(ctx, token, start, end, limit)
	if err != nil {
		logging.Error().Err(err).Str("token", token).Msg("failed to get top slides")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve top slides"})
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *StatsHandlers) archiveEnabled(c *gin.Context) bool {
	if h.Archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Event archive is not configured"})
		return false
	}
	return true
}

// parseTimeRange reads RFC3339 start/end query params, defaulting to the last
// seven days. It writes the 400 response itself.
func parseTimeRange(c *gin.Context) (time.Time, time.Time, bool) {
	end := time.Now().UTC()
	if v := c.Query("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'end' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
			return time.Time{}, time.Time{}, false
		}
		end = t
	}

	start := end.Add(-defaultWindow)
	if v := c.Query("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'start' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
			return time.Time{}, time.Time{}, false
		}
		start = t
	}

	if start.After(end) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'start' must not be after 'end'"})
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
