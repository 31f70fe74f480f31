package engagement

import (
	"context"
	"fmt"

	"decktrack/api/logging"
	"decktrack/api/metrics"
)

// CompletionMessage is the CRM comment posted when a viewer finishes a deck.
func CompletionMessage(title string) string {
	return fmt.Sprintf("Presentation '%s' was completed by the viewer.", title)
}

// notifyCompletion runs detached from the request: the viewer's response never
// waits on it and its failures are only logged. At most one attempt per event.
func (e *Engine) notifyCompletion(token string) {
	if e.notifier == nil || e.presentations == nil {
		return
	}

	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), e.notifyTimeout)
		defer cancel()

		pres, err := e.presentations.GetPresentationByToken(ctx, token)
		if err != nil {
			metrics.Notifications.WithLabelValues("failed").Inc()
			logging.Error().Err(err).Str("token", token).Msg("completion notification: presentation lookup failed")
			return
		}
		if pres == nil || pres.PloomesDealID == "" {
			metrics.Notifications.WithLabelValues("skipped").Inc()
			return
		}

		if err := e.notifier.PostDealComment(ctx, pres.PloomesDealID, CompletionMessage(pres.Title)); err != nil {
			metrics.Notifications.WithLabelValues("failed").Inc()
			logging.Error().Err(err).Str("token", token).Str("deal_id", pres.PloomesDealID).Msg("completion notification failed")
			return
		}
		metrics.Notifications.WithLabelValues("sent").Inc()
		logging.Info().Str("token", token).Str("deal_id", pres.PloomesDealID).Msg("completion notification sent")
	}()
}
