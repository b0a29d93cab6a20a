package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
)

// VersionChecker reports the latest release of the upstream knowledgebase
type VersionChecker interface {
	LatestVersion(ctx context.Context) (string, error)
}

// DefaultVersionPattern matches "Version 86" style release banners
var DefaultVersionPattern = regexp.MustCompile(`(?i)version\s*([0-9]+(?:\.[0-9]+)*)`)

// HTTPVersionChecker fetches a page and extracts the first version match
type HTTPVersionChecker struct {
	URL        string
	Pattern    *regexp.Regexp
	httpClient *http.Client
}

// NewHTTPVersionChecker creates a checker for url. A nil pattern uses DefaultVersionPattern.
func NewHTTPVersionChecker(url string, pattern *regexp.Regexp) *HTTPVersionChecker {
	if pattern == nil {
		pattern = DefaultVersionPattern
	}
	return &HTTPVersionChecker{
		URL:        url,
		Pattern:    pattern,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// LatestVersion returns the first capture group of Pattern found in the page body
func (c *HTTPVersionChecker) LatestVersion(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: request failed: %v", apperrors.ErrIO, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %s returned status %d", apperrors.ErrIO, c.URL, resp.StatusCode)
	}

	// release banners sit near the top of the page
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", apperrors.ErrIO, err)
	}

	match := c.Pattern.FindSubmatch(body)
	if match == nil {
		return "", fmt.Errorf("%w: no version found at %s", apperrors.ErrNotFound, c.URL)
	}
	if len(match) > 1 {
		return string(match[1]), nil
	}
	return string(match[0]), nil
}
