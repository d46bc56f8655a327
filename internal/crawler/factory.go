package crawler

import (
	"context"
	"fmt"

	"github.com/BenjaminSRussell/sitemirror/internal/config"
	customhttp "github.com/BenjaminSRussell/sitemirror/internal/http"
	"github.com/BenjaminSRussell/sitemirror/internal/metrics"
	"github.com/BenjaminSRussell/sitemirror/internal/renderer"
	"github.com/BenjaminSRussell/sitemirror/internal/resolver"
	"github.com/BenjaminSRussell/sitemirror/internal/storage"
	"github.com/BenjaminSRussell/sitemirror/internal/types"
	"github.com/rs/zerolog"
)

// chromeBrowser adapts renderer.Chrome to the Browser interface
type chromeBrowser struct {
	*renderer.Chrome
}

func (b chromeBrowser) Open(ctx context.Context, cookies []types.Cookie) (PageHarvester, error) {
	session, err := b.Chrome.Open(ctx, cookies)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// NewFromConfig wires a Mirror with Chrome, the HTTP fetcher, and on-disk
// storage as configured
func NewFromConfig(cfg *config.Config, logger zerolog.Logger) (*Mirror, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	profile, err := customhttp.LookupProfile(cfg.BrowserProfile)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	fetcher, err := customhttp.NewFetcherFromConfig(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	browser := chromeBrowser{renderer.NewChrome(renderer.OptionsFromConfig(cfg, profile.UserAgent), logger)}

	var robots RobotsFetcher
	if cfg.RespectRobots {
		robots = fetcher
	}

	return NewMirror(cfg, Dependencies{
		Browser:    browser,
		Discoverer: NewSiteWalker(browser, robots, cfg.StartURL, cfg.BaseDomain, logger),
		Resolver:   resolver.New(fetcher, cfg.Embeds, logger),
		Storage:    storage.New(cfg.OutputDir, cfg.Embeds.ImagesSubdir),
		Metrics:    metrics.New(),
	}, logger), nil
}
