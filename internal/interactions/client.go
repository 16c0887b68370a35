package interactions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rcallahan/dispatch-relay-service/internal/models"
	"github.com/rcallahan/dispatch-relay-service/internal/observability"
)

var (
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrRateLimited     = errors.New("rate limited")
)

// ResetRecorder persists remote-reported rate-limit resets (quota.Recorder).
type ResetRecorder interface {
	RecordReset(headers http.Header, service string) (time.Time, bool, error)
}

// Client queries the FDA drug label API for interactions between two drugs.
type Client struct {
	apiURL         string
	client         *http.Client
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	recorder       ResetRecorder
}

// NewClient returns a Client. httpClient should be throttled (throttle.NewClient)
// so label API calls count against the outbound quota; its timeout applies per
// attempt. recorder may be nil to skip reset recording.
func NewClient(apiURL string, httpClient *http.Client, retryAttempts int, retryBaseDelay, retryMaxDelay time.Duration, recorder ResetRecorder) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if retryAttempts <= 0 {
		retryAttempts = 3
	}
	return &Client{
		apiURL:         apiURL,
		client:         httpClient,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryBaseDelay,
		retryMaxDelay:  retryMaxDelay,
		recorder:       recorder,
	}
}

type labelResponse struct {
	Results []struct {
		DrugInteractions []string `json:"drug_interactions"`
	} `json:"results"`
}

// Check reports whether the label data for drug1 mentions drug2. A failed
// request is not an error to the caller: the result carries the reason with
// Interaction=false, matching how downstream consumers treat an unreachable
// API (unknown, not dangerous).
func (c *Client) Check(ctx context.Context, drug1, drug2 string) (models.InteractionResult, error) {
	var lastErr error

	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			observability.FDAAPIRetriesTotal.Inc()
			delay := c.calculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return models.InteractionResult{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, err := c.callAPI(ctx, drug1, drug2)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !isRetryable(err) {
			break
		}
	}

	return models.InteractionResult{
		Interaction: false,
		Details:     fmt.Sprintf("API request failed: %v", lastErr),
	}, nil
}

func (c *Client) callAPI(ctx context.Context, drug1, drug2 string) (models.InteractionResult, error) {
	start := time.Now()

	req, err := c.buildRequest(ctx, drug1, drug2)
	if err != nil {
		observability.FDAAPICallsTotal.WithLabelValues("error").Inc()
		return models.InteractionResult{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.FDAAPICallsTotal.WithLabelValues("error").Inc()
		observability.FDAAPIDuration.WithLabelValues("error").Observe(duration)
		return models.InteractionResult{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.FDAAPICallsTotal.WithLabelValues(status).Inc()
	observability.FDAAPIDuration.WithLabelValues(status).Observe(duration)

	if c.recorder != nil {
		// Best-effort; a failed write never fails the check.
		_, _, _ = c.recorder.RecordReset(resp.Header, "fda")
	}

	if err := handleErrorResponse(resp); err != nil {
		return models.InteractionResult{}, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.InteractionResult{}, fmt.Errorf("read response body: %w", err)
	}

	var apiResp labelResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return models.InteractionResult{}, fmt.Errorf("parse response: %w", err)
	}

	return mapResponse(apiResp), nil
}

func (c *Client) buildRequest(ctx context.Context, drug1, drug2 string) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := url.Values{}
	params.Set("search", fmt.Sprintf("openfda.generic_name:%q+AND+drug_interactions:%q", drug1, drug2))
	params.Set("limit", "1")
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

// mapResponse converts the label response to an interaction result. Label
// data is absence-of-evidence, not evidence-of-absence: no results means "no
// interaction data found", not "safe".
func mapResponse(apiResp labelResponse) models.InteractionResult {
	if len(apiResp.Results) == 0 {
		return models.InteractionResult{Interaction: false, Details: "No interaction data found."}
	}
	interactions := apiResp.Results[0].DrugInteractions
	if len(interactions) > 0 {
		return models.InteractionResult{Interaction: true, Details: interactions[0]}
	}
	return models.InteractionResult{Interaction: true, Details: "Interaction found but no details provided."}
}

func handleErrorResponse(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
	return nil
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamFailure) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "context deadline exceeded")
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	delay := float64(c.retryBaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.retryMaxDelay) {
		delay = float64(c.retryMaxDelay)
	}

	jitter := delay * 0.1 * rand.Float64()
	return time.Duration(delay + jitter)
}

func statusLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode == 429:
		return "rate_limited"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	default:
		return "error"
	}
}
