// Package incidents fetches CAD/911 incident records from a dispatch feed.
package incidents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/rcallahan/dispatch-relay-service/internal/models"
)

// Client queries a CAD incident feed. The feed is advisory: an unreachable
// feed or a malformed payload yields an empty list rather than an error, so
// a flaky feed degrades to "no incidents" instead of failing callers.
type Client struct {
	feedURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient returns a Client over the feed URL. httpClient should be
// throttled so feed polls count against the outbound quota.
func NewClient(feedURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		feedURL: feedURL,
		client:  httpClient,
		logger:  logger,
	}
}

// feedResponse is the wrapped feed shape: {"incidents": [...]}. Some feeds
// return a bare JSON array instead; Fetch accepts both.
type feedResponse struct {
	Incidents []models.Incident `json:"incidents"`
}

// Fetch returns incidents near the given location.
func (c *Client) Fetch(ctx context.Context, location string) ([]models.Incident, error) {
	u, err := url.Parse(c.feedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed URL: %w", err)
	}
	params := url.Values{}
	params.Set("location", location)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("incident feed unreachable", zap.String("location", location), zap.Error(err))
		return []models.Incident{}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("incident feed error", zap.Int("status", resp.StatusCode))
		return []models.Incident{}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []models.Incident{}, nil
	}

	return parseFeed(body), nil
}

// parseFeed accepts either a bare array of incidents or an object wrapping
// them under "incidents". Anything else is treated as an empty feed.
func parseFeed(body []byte) []models.Incident {
	var list []models.Incident
	if err := json.Unmarshal(body, &list); err == nil {
		if list == nil {
			list = []models.Incident{}
		}
		return list
	}

	var wrapped feedResponse
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Incidents != nil {
		return wrapped.Incidents
	}
	return []models.Incident{}
}
