package crawler

import (
	"context"
	"fmt"
	"net/url"

	"github.com/BenjaminSRussell/sitemirror/internal/parser"
	"github.com/BenjaminSRussell/sitemirror/internal/types"
	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"
)

const robotsAgent = "sitemirror"

// HomeLinkText labels the start page when discovery adds it
const HomeLinkText = "Home"

// PageHarvester loads pages in an authenticated browser
type PageHarvester interface {
	Harvest(ctx context.Context, url string) (*types.HarvestedPage, error)
	Close()
}

// Browser provides the login session and headless harvesting sessions
type Browser interface {
	Login(ctx context.Context) ([]types.Cookie, error)
	Open(ctx context.Context, cookies []types.Cookie) (PageHarvester, error)
}

// RobotsFetcher retrieves robots.txt with the session cookies
type RobotsFetcher interface {
	FetchRobots(ctx context.Context, siteURL string, cookies []types.Cookie) (*robotstxt.RobotsData, error)
}

// LinkDiscoverer produces the pages a run will mirror
type LinkDiscoverer interface {
	Discover(ctx context.Context, cookies []types.Cookie) ([]types.Link, error)
}

// SiteWalker discovers pages from the links on the start page
type SiteWalker struct {
	browser    Browser
	robots     RobotsFetcher
	startURL   string
	baseDomain string
	logger     zerolog.Logger
}

// NewSiteWalker creates a walker. A nil robots fetcher disables robots.txt
// filtering.
func NewSiteWalker(browser Browser, robots RobotsFetcher, startURL, baseDomain string, logger zerolog.Logger) *SiteWalker {
	return &SiteWalker{
		browser:    browser,
		robots:     robots,
		startURL:   startURL,
		baseDomain: baseDomain,
		logger:     logger.With().Str("component", "walker").Logger(),
	}
}

// Discover harvests the start page in its own browser session and returns
// its internal links, deduplicated, with the start page first
func (w *SiteWalker) Discover(ctx context.Context, cookies []types.Cookie) ([]types.Link, error) {
	session, err := w.browser.Open(ctx, cookies)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser: %w", err)
	}
	defer session.Close()

	page, err := session.Harvest(ctx, w.startURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load start page: %w", err)
	}

	anchors, err := parser.ExtractAnchors(page.MainHTML, w.startURL, w.baseDomain)
	if err != nil {
		return nil, err
	}

	robots := w.loadRobots(ctx, cookies)

	frontier := NewFrontier(len(anchors) + 1)
	blocked, duplicates := 0, 0
	for _, link := range anchors {
		if frontier.Contains(link.URL) {
			duplicates++
			continue
		}
		if robots != nil && !allowedByRobots(robots, link.URL) {
			blocked++
			continue
		}
		frontier.Add(link)
	}
	frontier.PushFront(types.Link{Text: HomeLinkText, URL: parser.StripFragment(w.startURL)})

	w.logger.Debug().
		Int("anchors", len(anchors)).
		Int("unique", frontier.Size()).
		Int("duplicates", duplicates).
		Int("blocked_by_robots", blocked).
		Msg("discovery complete")
	return frontier.Links(), nil
}

func (w *SiteWalker) loadRobots(ctx context.Context, cookies []types.Cookie) *robotstxt.RobotsData {
	if w.robots == nil {
		return nil
	}
	robots, err := w.robots.FetchRobots(ctx, w.startURL, cookies)
	if err != nil {
		w.logger.Warn().Err(err).Msg("robots.txt unavailable, not filtering")
		return nil
	}
	return robots
}

func allowedByRobots(robots *robotstxt.RobotsData, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return robots.TestAgent(path, robotsAgent)
}
