package renderer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BenjaminSRussell/sitemirror/internal/config"
	"github.com/BenjaminSRussell/sitemirror/internal/types"
	"github.com/briandowns/spinner"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// ErrLoginTimeout is returned when the user does not reach the site in time
var ErrLoginTimeout = errors.New("timed out waiting for login")

const loginPollInterval = time.Second

// Options controls how Chrome is launched and how pages are loaded
type Options struct {
	StartURL          string
	BaseDomain        string
	LoginTimeout      time.Duration
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	MaxFrameDepth     int
	UserAgent         string
	ChromePath        string
	ShowSpinner       bool
}

// OptionsFromConfig builds renderer options from the run configuration
func OptionsFromConfig(cfg *config.Config, userAgent string) Options {
	return Options{
		StartURL:          cfg.StartURL,
		BaseDomain:        cfg.BaseDomain,
		LoginTimeout:      cfg.LoginTimeout,
		NavigationTimeout: cfg.NavigationTimeout,
		SettleDelay:       cfg.SettleDelay,
		MaxFrameDepth:     cfg.MaxFrameDepth,
		UserAgent:         userAgent,
		ChromePath:        cfg.ChromePath,
		ShowSpinner:       true,
	}
}

// Chrome drives a local Chrome through the DevTools protocol
type Chrome struct {
	opts   Options
	logger zerolog.Logger
}

// NewChrome creates a Chrome launcher
func NewChrome(opts Options, logger zerolog.Logger) *Chrome {
	return &Chrome{
		opts:   opts,
		logger: logger.With().Str("component", "renderer").Logger(),
	}
}

func (c *Chrome) allocatorOptions(headless bool) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", headless),
		chromedp.Flag("disable-dev-shm-usage", true),
		// keep cross-origin iframes in-process so their documents are reachable
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
	)
	if c.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.opts.UserAgent))
	}
	if c.opts.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(c.opts.ChromePath))
	}
	return opts
}

// Login opens a visible browser at the start URL and waits for the user to
// land on the site. All browser cookies are returned once they do. The
// browser is closed on every path.
func (c *Chrome) Login(ctx context.Context) ([]types.Cookie, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, c.allocatorOptions(false)...)
	defer allocCancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	if err := chromedp.Run(browserCtx); err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	c.logger.Info().
		Str("url", c.opts.StartURL).
		Dur("timeout", c.opts.LoginTimeout).
		Msg("complete the login in the browser window")

	if c.opts.ShowSpinner {
		spin := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		spin.Suffix = " waiting for login"
		spin.Start()
		defer spin.Stop()
	}

	err := c.awaitLogin(browserCtx,
		func(ctx context.Context) error {
			return chromedp.Run(ctx, chromedp.Navigate(c.opts.StartURL))
		},
		func(ctx context.Context) (string, error) {
			var location string
			err := chromedp.Run(ctx, chromedp.Location(&location))
			return location, err
		},
	)
	if err != nil {
		return nil, err
	}

	var cookies []types.Cookie
	err = chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		raw, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		cookies = FromCDPCookies(raw)
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}

	c.logger.Info().Int("cookies", len(cookies)).Msg("login successful")
	return cookies, nil
}

// awaitLogin opens the login page and polls the browser location until it is
// inside the site. The login timeout covers the navigation as well as the wait.
func (c *Chrome) awaitLogin(ctx context.Context, navigate func(context.Context) error, location func(context.Context) (string, error)) error {
	loginCtx, cancel := context.WithTimeout(ctx, c.opts.LoginTimeout)
	defer cancel()

	if err := navigate(loginCtx); err != nil {
		if ctx.Err() == nil && loginCtx.Err() != nil {
			return ErrLoginTimeout
		}
		return fmt.Errorf("failed to open login page: %w", err)
	}

	ticker := time.NewTicker(loginPollInterval)
	defer ticker.Stop()

	for {
		if loc, err := location(loginCtx); err != nil {
			// the page is usually mid-redirect
			c.logger.Debug().Err(err).Msg("could not read location")
		} else if IsSiteURL(loc, c.opts.BaseDomain) {
			return nil
		}

		select {
		case <-loginCtx.Done():
			if err := ctx.Err(); err != nil {
				return err
			}
			return ErrLoginTimeout
		case <-ticker.C:
		}
	}
}

// IsSiteURL reports whether a browser location is inside the site
func IsSiteURL(location, baseDomain string) bool {
	marker := "/" + strings.Trim(baseDomain, "/")
	return strings.Contains(location, marker+"/") || strings.HasSuffix(location, marker)
}

// Open starts a headless browser carrying the given cookies. Each Harvest
// call uses its own tab; Close releases the browser.
func (c *Chrome) Open(ctx context.Context, cookies []types.Cookie) (*Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, c.allocatorOptions(true)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		opts:          c.opts,
		logger:        c.logger,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}

	// start the browser without a deadline so later timeouts only end tabs
	if err := chromedp.Run(browserCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	if err := chromedp.Run(browserCtx, setCookies(cookies, c.logger)); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to inject cookies: %w", err)
	}

	return s, nil
}

// Session is a running headless browser
type Session struct {
	opts          Options
	logger        zerolog.Logger
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

// Harvest loads a page in a fresh tab and returns the markup of the main
// document and of its frames. Frames that cannot be read are skipped.
func (s *Session) Harvest(ctx context.Context, url string) (*types.HarvestedPage, error) {
	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	if err := chromedp.Run(tabCtx); err != nil {
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	navCtx, cancelNav := context.WithTimeout(tabCtx, s.opts.NavigationTimeout)
	defer cancelNav()

	if err := chromedp.Run(navCtx, chromedp.Navigate(url), chromedp.WaitReady("body")); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", url, err)
	}

	readCtx, cancelRead := context.WithTimeout(tabCtx, s.opts.SettleDelay+s.opts.NavigationTimeout)
	defer cancelRead()

	page := &types.HarvestedPage{RequestedURL: url}
	err := chromedp.Run(readCtx,
		chromedp.Sleep(s.opts.SettleDelay),
		chromedp.Location(&page.FinalURL),
		chromedp.OuterHTML("html", &page.MainHTML, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}

	page.Frames = s.frameMarkup(readCtx, nil, 0)

	s.logger.Debug().
		Str("url", url).
		Str("final_url", page.FinalURL).
		Int("frames", len(page.Frames)).
		Msg("page harvested")
	return page, nil
}

func (s *Session) frameMarkup(ctx context.Context, root *cdp.Node, depth int) []string {
	if depth >= s.opts.MaxFrameDepth {
		return nil
	}

	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if root != nil {
		opts = append(opts, chromedp.FromNode(root))
	}

	var iframes []*cdp.Node
	if err := chromedp.Run(ctx, chromedp.Nodes("iframe", &iframes, opts...)); err != nil {
		s.logger.Debug().Err(err).Int("depth", depth).Msg("could not list frames")
		return nil
	}

	markup := make([]string, 0, len(iframes))
	for _, iframe := range iframes {
		doc := iframe.ContentDocument
		if doc == nil {
			continue
		}

		var html string
		if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery, chromedp.FromNode(doc))); err != nil {
			s.logger.Debug().Err(err).Msg("could not read frame")
			continue
		}
		markup = append(markup, html)
		markup = append(markup, s.frameMarkup(ctx, doc, depth+1)...)
	}
	return markup
}

// Close shuts down the browser
func (s *Session) Close() {
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
}
