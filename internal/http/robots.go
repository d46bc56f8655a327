package http

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/BenjaminSRussell/sitemirror/internal/types"
	"github.com/temoto/robotstxt"
)

const maxRobotsSize = 512 * 1024

// FetchRobots retrieves and parses robots.txt for the host of siteURL
func (f *Fetcher) FetchRobots(ctx context.Context, siteURL string, cookies []types.Cookie) (*robotstxt.RobotsData, error) {
	u, err := url.Parse(siteURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid site URL %q", siteURL)
	}

	robotsURL := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}).String()
	resp, err := f.get(ctx, robotsURL, cookies)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read robots.txt: %w", err)
	}

	robots, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
	}
	return robots, nil
}
