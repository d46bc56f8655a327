package http

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BenjaminSRussell/sitemirror/internal/config"
	"github.com/BenjaminSRussell/sitemirror/internal/storage"
	"github.com/BenjaminSRussell/sitemirror/internal/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"golang.org/x/net/http/httpproxy"
)

// DefaultFetchTimeout bounds a single artifact download
const DefaultFetchTimeout = 120 * time.Second

var (
	dispositionFilename = regexp.MustCompile(`(?i)filename\s*=\s*"?([^";]+)"?`)
	extendedFilename    = regexp.MustCompile(`(?i)filename\*\s*=`)
)

// StatusError is returned when the server answers with a non-2xx status
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
}

// FetcherOptions configures a Fetcher
type FetcherOptions struct {
	Timeout time.Duration
	Profile BrowserProfile
	TLS     *TLSProfile

	// ReservedNames are never used for artifacts; a download that asks for
	// one gets a numbered name instead
	ReservedNames []string
}

// Fetcher downloads artifacts using the session cookies captured at login
type Fetcher struct {
	transport http.RoundTripper
	profile   BrowserProfile
	timeout   time.Duration
	names     *nameRegistry
	logger    zerolog.Logger
}

// NewFetcher creates a new artifact fetcher
func NewFetcher(opts FetcherOptions, logger zerolog.Logger) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	logger = logger.With().Str("component", "fetcher").Logger()
	if fingerprintSkipsProxy(opts.TLS, httpproxy.FromEnvironment()) {
		logger.Warn().
			Str("tls_profile", opts.TLS.Name).
			Msg("HTTPS proxy from the environment is ignored while a TLS fingerprint is set")
	}

	return &Fetcher{
		transport: NewTransport(opts.TLS),
		profile:   opts.Profile,
		timeout:   timeout,
		names:     newNameRegistry(opts.ReservedNames),
		logger:    logger,
	}
}

// NewFetcherFromConfig resolves the configured browser and TLS profiles
func NewFetcherFromConfig(cfg *config.Config, logger zerolog.Logger) (*Fetcher, error) {
	profile, err := LookupProfile(cfg.BrowserProfile)
	if err != nil {
		return nil, err
	}
	tlsProfile, err := LookupTLSProfile(cfg.TLSFingerprint)
	if err != nil {
		return nil, err
	}

	return NewFetcher(FetcherOptions{
		Timeout:       cfg.FetchTimeout,
		Profile:       profile,
		TLS:           tlsProfile,
		ReservedNames: []string{storage.ContentFile, storage.DocumentLinksFile},
	}, logger), nil
}

// Fetch downloads rawURL into targetDir. Empty and data: URLs are skipped
// and return a nil artifact with no error. Failures are logged here and
// returned so the caller can decide how to degrade.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, cookies []types.Cookie, targetDir, namePrefix string) (*types.SavedArtifact, error) {
	if IsInlineURL(rawURL) {
		return nil, nil
	}

	artifact, err := f.download(ctx, rawURL, cookies, targetDir, namePrefix)
	if err != nil {
		f.logger.Warn().Err(err).Str("url", rawURL).Msg("artifact download failed")
		return nil, err
	}

	f.logger.Debug().
		Str("url", rawURL).
		Str("path", artifact.Path).
		Int64("bytes", artifact.Size).
		Msg("artifact saved")
	return artifact, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL string, cookies []types.Cookie, targetDir, namePrefix string) (*types.SavedArtifact, error) {
	resp, err := f.get(ctx, rawURL, cookies)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", targetDir, err)
	}

	filename := f.names.claim(targetDir, ResolveFilename(resp.Header, namePrefix, body))
	target := filepath.Join(targetDir, filename)
	if err := os.WriteFile(target, body, 0644); err != nil {
		f.names.release(targetDir, filename)
		return nil, fmt.Errorf("failed to write %s: %w", target, err)
	}

	return &types.SavedArtifact{
		OriginalURL: rawURL,
		Filename:    filename,
		Path:        target,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        int64(len(body)),
	}, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string, cookies []types.Cookie) (*http.Response, error) {
	jar, err := NewCookieJar(cookies)
	if err != nil {
		return nil, err
	}

	client := &http.Client{
		Transport: f.transport,
		Jar:       jar,
		Timeout:   f.timeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	f.profile.ApplyHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// IsInlineURL reports whether a URL carries no fetchable resource
func IsInlineURL(rawURL string) bool {
	trimmed := strings.TrimSpace(rawURL)
	return trimmed == "" || strings.HasPrefix(strings.ToLower(trimmed), "data:")
}

// ResolveFilename picks the on-disk name for a response. A filename in
// Content-Disposition wins; otherwise the prefix is used, with the extension
// implied by Content-Type appended when missing.
func ResolveFilename(header http.Header, prefix string, body []byte) string {
	if name := filenameFromDisposition(header.Get("Content-Disposition")); name != "" {
		return name
	}

	name := prefix
	if ext := extensionFor(header.Get("Content-Type"), body); ext != "" && !strings.HasSuffix(strings.ToLower(name), ext) {
		name += ext
	}
	return name
}

func filenameFromDisposition(disposition string) string {
	if disposition == "" {
		return ""
	}

	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		name := params["filename"]
		// filename* arrives already decoded; only the plain form is escaped
		if !extendedFilename.MatchString(disposition) {
			name = unescapeFilename(name)
		}
		if name := cleanFilename(name); name != "" {
			return name
		}
	}

	if match := dispositionFilename.FindStringSubmatch(disposition); match != nil {
		return cleanFilename(unescapeFilename(match[1]))
	}
	return ""
}

func unescapeFilename(name string) string {
	if decoded, err := url.PathUnescape(name); err == nil {
		return decoded
	}
	return name
}

// cleanFilename drops any directory components of a server supplied name so
// it cannot escape the target folder
func cleanFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	switch base {
	case ".", "..", "/":
		return ""
	}
	return base
}

func extensionFor(contentType string, body []byte) string {
	mediaType := ""
	if contentType != "" {
		if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
			mediaType = parsed
		}
	}

	if mediaType == "" || mediaType == "application/octet-stream" {
		if len(body) == 0 {
			return ""
		}
		return mimetype.Detect(body).Extension()
	}

	if m := mimetype.Lookup(mediaType); m != nil {
		return m.Extension()
	}
	return ""
}
