// Package connectors implements the marketplace API clients. Each
// connector turns one feed into raw payloads, one payload per business
// document, with the response fragment kept verbatim for the raw store.
package connectors

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/mpoffice/backend/internal/domain/ingest"
)

const (
	// maxResponseSize limits the response body size to prevent memory exhaustion
	maxResponseSize = 20 * 1024 * 1024 // 20MB max response
)

// apiClient is the HTTP plumbing shared by all connectors: request
// building, rate limiting and the transient/permanent error split.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	source     ingest.Source
}

func newAPIClient(source ingest.Source, baseURL string, timeout time.Duration, rps float64) *apiClient {
	if rps <= 0 {
		rps = 1
	}
	return &apiClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		source:     source,
	}
}

// get performs a rate-limited GET with query parameters.
func (c *apiClient) get(ctx context.Context, path string, query url.Values, headers map[string]string) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", c.source, err)
	}
	return c.do(req, headers)
}

// postJSON performs a rate-limited POST with a JSON body.
func (c *apiClient) postJSON(ctx context.Context, path string, body []byte, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", c.source, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, headers)
}

func (c *apiClient) do(req *http.Request, headers map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network failures are retryable at the run level.
		return nil, ingest.NewTransientError(c.source, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, ingest.NewTransientError(c.source, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, ingest.NewTransientError(c.source, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(body, 200)))
	case resp.StatusCode >= 400:
		// 4xx other than rate limiting means a broken request or bad
		// credentials; retrying the same window cannot help.
		return nil, fmt.Errorf("%s: HTTP %d: %s", c.source, resp.StatusCode, truncate(body, 200))
	}

	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// parseAPITime parses the timestamp formats the marketplace feeds
// emit: RFC3339 with or without zone offset. Returns nil when the
// value is absent or unparseable.
func parseAPITime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}
