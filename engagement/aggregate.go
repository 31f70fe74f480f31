package engagement

import (
	"sort"
	"time"

	"decktrack/api/models"
)

// Aggregate derives the engagement report for one token's entries. The result
// depends only on the set of entries, never on their order.
func Aggregate(entries []models.LogEntry) models.EngagementReport {
	report := models.EngagementReport{Slides: []models.SlideStat{}}

	var (
		completedAt  time.Time
		lastActivity time.Time
		finalStay    *models.LogEntry
	)
	slides := make(map[int]*models.SlideStat)

	for i := range entries {
		entry := entries[i]
		if entry.Timestamp.After(lastActivity) {
			lastActivity = entry.Timestamp
		}

		switch entry.Kind {
		case models.EventOpen:
			report.TotalViews++

		case models.EventComplete:
			if report.Completions == 0 || entry.Timestamp.Before(completedAt) {
				completedAt = entry.Timestamp
			}
			report.Completions++

		case models.EventStay:
			if entry.SlideIndex == nil {
				continue
			}
			idx := *entry.SlideIndex
			stat, ok := slides[idx]
			if !ok {
				stat = &models.SlideStat{SlideIndex: idx, FirstAccess: entry.Timestamp}
				slides[idx] = stat
			}
			stat.TotalDurationMs += entry.Duration()
			stat.Visits++
			if entry.Timestamp.Before(stat.FirstAccess) {
				stat.FirstAccess = entry.Timestamp
			}

			if finalStay == nil || laterFinalStay(entry, *finalStay) {
				finalStay = &entries[i]
			}
		}
	}

	if report.Completions > 0 {
		report.IsCompleted = true
		report.CompletedAt = &completedAt
		if finalStay != nil {
			d := finalStay.Duration()
			report.LastPageViewTime = &d
		}
	}
	if !lastActivity.IsZero() {
		report.LastActivityAt = &lastActivity
	}

	for _, stat := range slides {
		report.Slides = append(report.Slides, *stat)
	}
	sort.Slice(report.Slides, func(i, j int) bool {
		return report.Slides[i].SlideIndex < report.Slides[j].SlideIndex
	})
	return report
}

// laterFinalStay orders STAY entries by slide index, then by recency, then by
// ID, so the pick of the last slide's record is total.
func laterFinalStay(a, b models.LogEntry) bool {
	if a.Slide() != b.Slide() {
		return a.Slide() > b.Slide()
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.ID > b.ID
}
