package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 60 * time.Second
	// errorBodyLimit caps how much of a failed response ends up in the error.
	errorBodyLimit = 512
)

// Client downloads exchange exports published over HTTP.
type Client struct {
	httpClient *http.Client
}

// DefaultClient is used by ReadSource for remote sources.
var DefaultClient = NewClient(defaultTimeout)

// NewClient creates a client whose requests time out after timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// IsRemote reports whether path names an http(s) URL rather than a file.
func IsRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// Fetch issues a GET for urlStr and returns the body of a 200 response.
// The caller closes it.
func (c *Client) Fetch(ctx context.Context, urlStr string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, errorBodyLimit))
		return nil, fmt.Errorf("unexpected status %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body)))
	}

	return httpResp.Body, nil
}
