// Package notify posts engagement notifications to the Ploomes CRM.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"decktrack/api/logging"
	"decktrack/api/metrics"

	gobreaker "github.com/sony/gobreaker/v2"
)

const breakerName = "ploomes-api"

// PloomesClient posts comments to a deal timeline. Without an API key it runs
// in mock mode and only logs the call it would have made.
type PloomesClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker[struct{}]
}

func NewPloomesClient(baseURL, apiKey string, httpClient *http.Client) *PloomesClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &PloomesClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		cb:         cb,
	}
}

// PostDealComment adds content to the timeline of the given deal.
func (c *PloomesClient) PostDealComment(ctx context.Context, dealID, content string) error {
	if dealID == "" {
		logging.Warn().Msg("no deal id provided, skipping ploomes comment")
		return nil
	}

	if c.apiKey == "" {
		logging.Info().
			Str("endpoint", fmt.Sprintf("/Deals(%s)/Comments", dealID)).
			Str("content", content).
			Msg("[MOCK] ploomes api call")
		return nil
	}

	_, err := c.cb.Execute(func() (struct{}, error) {
		return struct{}{}, c.post(ctx, dealID, content)
	})
	return err
}

func (c *PloomesClient) post(ctx context.Context, dealID, content string) error {
	body, err := json.Marshal(map[string]string{"Content": content})
	if err != nil {
		return fmt.Errorf("failed to encode comment: %w", err)
	}

	endpoint := fmt.Sprintf("%s/Deals(%s)/Comments", c.baseURL, url.PathEscape(dealID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build ploomes request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ploomes request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ploomes returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
