package models

import "time"

// EventKind is the type of a recorded viewer event.
type EventKind string

const (
	EventOpen     EventKind = "OPEN"
	EventStay     EventKind = "STAY"
	EventComplete EventKind = "COMPLETE"
)

// Valid reports whether k is one of the known event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventOpen, EventStay, EventComplete:
		return true
	default:
		return false
	}
}

// LogEntry is one recorded viewing event. STAY entries are the only ones
// updated after creation: their duration and timestamp advance while the
// viewing session stays live.
type LogEntry struct {
	ID         string    `json:"id"`
	Token      string    `json:"token"`
	Kind       EventKind `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	UserAgent  string    `json:"userAgent,omitempty"`
	SlideIndex *int      `json:"slideIndex,omitempty"`
	DurationMs *int64    `json:"duration,omitempty"`
}

// Slide returns the slide index of a STAY entry, or -1 when absent.
func (e LogEntry) Slide() int {
	if e.SlideIndex == nil {
		return -1
	}
	return *e.SlideIndex
}

// Duration returns the dwell duration in milliseconds, or 0 when absent.
func (e LogEntry) Duration() int64 {
	if e.DurationMs == nil {
		return 0
	}
	return *e.DurationMs
}

// TrackEvent is the combined ingestion payload accepted by POST /api/track.
type TrackEvent struct {
	EventType EventKind         `json:"eventType" binding:"required"`
	Token     string            `json:"token"`
	Payload   TrackEventPayload `json:"payload"`
}

type TrackEventPayload struct {
	UserAgent  string `json:"userAgent"`
	SlideIndex *int   `json:"slideIndex"`
	Duration   *int64 `json:"duration"`
}

type OpenRequest struct {
	Token     string `json:"token"`
	UserAgent string `json:"userAgent"`
}

type StayRequest struct {
	Token      string `json:"token"`
	SlideIndex *int   `json:"slideIndex"`
	Duration   *int64 `json:"duration"`
}

type CompleteRequest struct {
	Token string `json:"token"`
}
