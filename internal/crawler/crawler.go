package crawler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/BenjaminSRussell/sitemirror/internal/config"
	"github.com/BenjaminSRussell/sitemirror/internal/metrics"
	"github.com/BenjaminSRussell/sitemirror/internal/resolver"
	"github.com/BenjaminSRussell/sitemirror/internal/storage"
	"github.com/BenjaminSRussell/sitemirror/internal/types"
	"github.com/rs/zerolog"
)

// ErrNoLinks means discovery produced nothing to mirror
var ErrNoLinks = errors.New("no internal pages found")

const (
	artifactSaved  = "saved"
	artifactFailed = "failed"
)

// EmbedResolver rewrites one page's markup and downloads its artifacts
type EmbedResolver interface {
	Resolve(ctx context.Context, markup, pageDir string, cookies []types.Cookie) (*resolver.Resolution, error)
}

// Dependencies are the collaborators a Mirror drives
type Dependencies struct {
	Browser    Browser
	Discoverer LinkDiscoverer
	Resolver   EmbedResolver
	Storage    *storage.Storage
	Metrics    *metrics.Metrics
}

// Mirror runs one login, discover, and mirror pass over a site
type Mirror struct {
	cfg      *config.Config
	deps     Dependencies
	safe     *SafeProcessor
	manifest *storage.Manifest
	logger   zerolog.Logger
}

// NewMirror creates a mirror run
func NewMirror(cfg *config.Config, deps Dependencies, logger zerolog.Logger) *Mirror {
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	logger = logger.With().Str("component", "mirror").Logger()
	return &Mirror{
		cfg:    cfg,
		deps:   deps,
		safe:   NewSafeProcessor(logger),
		logger: logger,
	}
}

// Run executes the whole pipeline. Login and discovery failures end the run
// early with a nil error; per-page failures are logged and counted. Only
// problems that prevent writing any output are returned as errors.
func (m *Mirror) Run(ctx context.Context) (*types.Results, error) {
	start := time.Now()
	results := &types.Results{State: types.StateUnauthenticated}

	m.logger.Info().Str("start_url", m.cfg.StartURL).Msg("waiting for login")
	cookies, err := m.deps.Browser.Login(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("login failed")
		return results, nil
	}
	if len(cookies) == 0 {
		m.logger.Error().Msg("login returned no cookies")
		return results, nil
	}
	m.advance(results, types.StateAuthenticated)

	links, err := m.discover(ctx, cookies)
	if err != nil {
		if !errors.Is(err, ErrNoLinks) {
			m.logger.Error().Err(err).Msg("discovery failed")
		}
		m.logger.Info().Msg("found 0 internal pages")
		return results, nil
	}
	results.Discovered = len(links)
	m.deps.Metrics.SetDiscovered(len(links))
	m.advance(results, types.StateLinksDiscovered)
	m.logger.Info().Int("pages", len(links)).Msgf("found %d internal pages", len(links))

	if err := m.deps.Storage.EnsureRoot(); err != nil {
		return results, err
	}
	m.openManifest()
	defer m.closeManifest()

	session, err := m.deps.Browser.Open(ctx, cookies)
	if err != nil {
		return results, fmt.Errorf("failed to start headless browser: %w", err)
	}
	defer session.Close()

	for i, link := range links {
		if err := ctx.Err(); err != nil {
			m.logger.Warn().Err(err).Int("remaining", len(links)-i).Msg("run cancelled")
			break
		}

		m.logger.Info().
			Int("index", i+1).
			Int("total", len(links)).
			Str("url", link.URL).
			Msg("processing page")

		result, err := m.safe.Process(link, func() (*types.PageResult, error) {
			return m.processPage(ctx, session, link, cookies)
		})
		m.record(results, link, result, err)
	}

	results.Panics = int(m.safe.PanicCount())
	m.advance(results, types.StateDone)
	elapsed := time.Since(start)
	m.deps.Metrics.ObserveRun(elapsed)
	m.writeMetrics()

	m.logger.Info().
		Int("processed", results.Processed).
		Int("failed", results.Failed).
		Int("images", results.Images).
		Int("documents", results.Documents).
		Int("document_links", results.DocumentLinks).
		Int("panics", results.Panics).
		Dur("elapsed", elapsed).
		Str("output", m.deps.Storage.Root()).
		Msg("mirror complete")

	return results, nil
}

func (m *Mirror) discover(ctx context.Context, cookies []types.Cookie) ([]types.Link, error) {
	links, err := m.deps.Discoverer.Discover(ctx, cookies)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, ErrNoLinks
	}
	return links, nil
}

func (m *Mirror) processPage(ctx context.Context, session PageHarvester, link types.Link, cookies []types.Cookie) (*types.PageResult, error) {
	page, err := session.Harvest(ctx, link.URL)
	if err != nil {
		return nil, err
	}

	dir, err := m.deps.Storage.PageDir(page.URL())
	if err != nil {
		return nil, err
	}

	res, err := m.deps.Resolver.Resolve(ctx, page.Markup(), dir, cookies)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve embeds: %w", err)
	}

	result := &types.PageResult{
		URL:             page.URL(),
		OutputDir:       dir,
		BodyText:        res.Text,
		DocumentLinks:   res.DocumentLinks,
		Images:          res.Images,
		Documents:       res.Documents,
		FailedImages:    res.FailedImages,
		FailedDocuments: res.FailedDocuments,
		ProcessedAt:     time.Now(),
	}

	if err := m.deps.Storage.WritePage(result); err != nil {
		return nil, err
	}
	return result, nil
}

func (m *Mirror) record(results *types.Results, link types.Link, result *types.PageResult, err error) {
	if err != nil {
		results.Failed++
		m.deps.Metrics.IncPage(storage.StatusFailed)
		m.logger.Error().Err(err).Str("url", link.URL).Msg("page failed")
		m.saveManifest(storage.PageRecord{
			URL:         link.URL,
			Status:      storage.StatusFailed,
			Error:       err.Error(),
			ProcessedAt: time.Now(),
		}, nil)
		return
	}

	results.Processed++
	results.Images += len(result.Images)
	results.Documents += len(result.Documents)
	results.DocumentLinks += len(result.DocumentLinks)

	m.deps.Metrics.IncPage(storage.StatusOK)
	m.deps.Metrics.AddArtifacts(types.EmbedImage.String(), artifactSaved, len(result.Images))
	m.deps.Metrics.AddArtifacts(types.EmbedImage.String(), artifactFailed, result.FailedImages)
	m.deps.Metrics.AddArtifacts(types.EmbedDownloadableDocument.String(), artifactSaved, len(result.Documents))
	m.deps.Metrics.AddArtifacts(types.EmbedDownloadableDocument.String(), artifactFailed, result.FailedDocuments)
	m.deps.Metrics.AddDocumentLinks(len(result.DocumentLinks))

	artifacts := make([]storage.ArtifactRecord, 0, len(result.Images)+len(result.Documents))
	artifacts = appendArtifacts(artifacts, types.EmbedImage, result.Images)
	artifacts = appendArtifacts(artifacts, types.EmbedDownloadableDocument, result.Documents)

	m.saveManifest(storage.PageRecord{
		URL:           result.URL,
		Folder:        filepath.Base(result.OutputDir),
		Status:        storage.StatusOK,
		TextLength:    len(result.BodyText),
		Images:        len(result.Images),
		Documents:     len(result.Documents),
		DocumentLinks: len(result.DocumentLinks),
		ProcessedAt:   result.ProcessedAt,
	}, artifacts)

	m.logger.Info().
		Str("url", result.URL).
		Str("dir", result.OutputDir).
		Int("images", len(result.Images)).
		Int("documents", len(result.Documents)).
		Int("document_links", len(result.DocumentLinks)).
		Msg("page saved")
}

func appendArtifacts(out []storage.ArtifactRecord, kind types.EmbedKind, saved []types.SavedArtifact) []storage.ArtifactRecord {
	for _, a := range saved {
		out = append(out, storage.ArtifactRecord{
			Kind:        kind.String(),
			OriginalURL: a.OriginalURL,
			Filename:    a.Filename,
			Path:        a.Path,
			ContentType: a.ContentType,
			Size:        a.Size,
		})
	}
	return out
}

func (m *Mirror) advance(results *types.Results, state types.RunState) {
	m.logger.Debug().
		Str("from", results.State.String()).
		Str("to", state.String()).
		Msg("state transition")
	results.State = state
}

func (m *Mirror) openManifest() {
	if m.cfg.ManifestFile == "" {
		return
	}
	path := filepath.Join(m.deps.Storage.Root(), m.cfg.ManifestFile)
	manifest, err := storage.OpenManifest(path)
	if err != nil {
		m.logger.Warn().Err(err).Str("path", path).Msg("manifest disabled")
		return
	}
	m.manifest = manifest
}

func (m *Mirror) saveManifest(page storage.PageRecord, artifacts []storage.ArtifactRecord) {
	if m.manifest == nil {
		return
	}
	if err := m.manifest.SavePage(page, artifacts); err != nil {
		m.logger.Warn().Err(err).Str("url", page.URL).Msg("failed to update manifest")
	}
}

func (m *Mirror) closeManifest() {
	if m.manifest == nil {
		return
	}
	if err := m.manifest.Close(); err != nil {
		m.logger.Warn().Err(err).Msg("failed to close manifest")
	}
	m.manifest = nil
}

func (m *Mirror) writeMetrics() {
	if m.cfg.MetricsFile == "" {
		return
	}
	path := filepath.Join(m.deps.Storage.Root(), m.cfg.MetricsFile)
	if err := m.deps.Metrics.WriteTextfile(path); err != nil {
		m.logger.Warn().Err(err).Msg("failed to write metrics")
	}
}
