/**
 * @description
 * Client for communicating with the treasury service over its internal API.
 */
package treasuryclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mentora/treasury-service/internal/app"
	"github.com/mentora/treasury-service/internal/forecast"
	"github.com/mentora/treasury-service/internal/settlement"
)

// Client provides methods to interact with the treasury service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// StatusError is returned when the service answers with a 4xx or 5xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("treasury service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("treasury service returned status %d: %s", e.StatusCode, e.Message)
}

// NewClient creates a new treasury service client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// RunOverdueAlerts triggers the overdue student alert run.
func (c *Client) RunOverdueAlerts(ctx context.Context) (*app.AlertRunResult, error) {
	var result app.AlertRunResult
	if err := c.do(ctx, http.MethodPost, "/internal/treasury/alerts/overdue/run", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RunUpcomingDigest triggers the upcoming payments digest.
func (c *Client) RunUpcomingDigest(ctx context.Context) (*app.AlertRunResult, error) {
	var result app.AlertRunResult
	if err := c.do(ctx, http.MethodPost, "/internal/treasury/alerts/upcoming/run", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Forecast fetches the cash projection for the given horizon.
func (c *Client) Forecast(ctx context.Context, months int) (*forecast.Projection, error) {
	path := "/treasury/forecast"
	if months > 0 {
		path += "?" + url.Values{"months": {strconv.Itoa(months)}}.Encode()
	}
	var projection forecast.Projection
	if err := c.do(ctx, http.MethodGet, path, &projection); err != nil {
		return nil, err
	}
	return &projection, nil
}

// BFR fetches the working-capital report.
func (c *Client) BFR(ctx context.Context) (*forecast.BFRReport, error) {
	var report forecast.BFRReport
	if err := c.do(ctx, http.MethodGet, "/treasury/bfr", &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Positions fetches founder positions and rebalancing suggestions.
func (c *Client) Positions(ctx context.Context) (*settlement.Rebalancing, error) {
	var rebalancing settlement.Rebalancing
	if err := c.do(ctx, http.MethodGet, "/treasury/positions", &rebalancing); err != nil {
		return nil, err
	}
	return &rebalancing, nil
}

func (c *Client) do(ctx context.Context, method, path string, out interface{}) error {
	if c.baseURL == "" {
		return fmt.Errorf("treasury service base URL is not configured")
	}

	var body io.Reader
	if method == http.MethodPost {
		body = bytes.NewBufferString("{}")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-Internal-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload)
		return &StatusError{StatusCode: resp.StatusCode, Message: payload.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
