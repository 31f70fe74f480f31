package models

import "time"

// SlideStat is the per-slide engagement breakdown for one token.
type SlideStat struct {
	SlideIndex      int       `json:"slideIndex"`
	TotalDurationMs int64     `json:"duration"`
	Visits          int       `json:"visits"`
	FirstAccess     time.Time `json:"firstAccess"`
}

// EngagementReport is the summary derived from all log entries of one token.
type EngagementReport struct {
	TotalViews       int         `json:"totalViews"`
	Completions      int         `json:"completions"`
	IsCompleted      bool        `json:"isCompleted"`
	CompletedAt      *time.Time  `json:"completedAt"`
	LastPageViewTime *int64      `json:"lastPageViewTime"`
	LastActivityAt   *time.Time  `json:"lastActivityAt"`
	Slides           []SlideStat `json:"slides"`
}

// TokenDetail is the raw log plus metadata answer for one token.
// Presentation is nil when the token is unknown or its presentation was removed.
type TokenDetail struct {
	Presentation *Presentation    `json:"presentation"`
	Logs         []LogEntry       `json:"logs"`
	Report       EngagementReport `json:"report"`
}

// Summary holds system-wide counters.
type Summary struct {
	Clients       int `json:"clients"`
	Presentations int `json:"presentations"`
	Views         int `json:"views"`
}

// EnrichedPresentation is a catalog entry annotated with its engagement state.
type EnrichedPresentation struct {
	Presentation
	TotalViews       int        `json:"totalViews"`
	IsCompleted      bool       `json:"isCompleted"`
	CompletedAt      *time.Time `json:"completedAt"`
	LastPageViewTime *int64     `json:"lastPageViewTime"`
}

// ArchivedEvent is one raw viewer event as written to the ClickHouse archive.
// STAY heartbeats are archived individually, before merging.
type ArchivedEvent struct {
	EventID    string
	EventType  EventKind
	Token      string
	Timestamp  time.Time
	SlideIndex int32
	DurationMs int64
	UserAgent  string
	IPAddress  string
}

type EventCountByTime struct {
	Time      time.Time `json:"time"`
	EventType *string   `json:"eventType,omitempty"`
	Count     uint64    `json:"count"`
}

type TopSlideResult struct {
	SlideIndex int32  `json:"slideIndex"`
	Heartbeats uint64 `json:"heartbeats"`
}
