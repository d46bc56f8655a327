package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BenjaminSRussell/sitemirror/internal/config"
	"github.com/BenjaminSRussell/sitemirror/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	profile, err := LookupProfile("chrome-windows")
	require.NoError(t, err)
	return NewFetcher(FetcherOptions{Timeout: 5 * time.Second, Profile: profile}, zerolog.Nop())
}

func TestFetchUsesDispositionFilename(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="Report.pdf"`)
		w.Write([]byte("%PDF-1.4 test"))
	}))
	defer server.Close()

	dir := t.TempDir()
	artifact, err := newTestFetcher(t).Fetch(context.Background(), server.URL+"/doc", nil, dir, "document")
	require.NoError(t, err)
	require.NotNil(t, artifact)

	assert.Equal(t, "Report.pdf", artifact.Filename)
	assert.Equal(t, filepath.Join(dir, "Report.pdf"), artifact.Path)
	assert.Equal(t, int64(len("%PDF-1.4 test")), artifact.Size)

	data, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 test", string(data))
}

func TestFetchAppendsExtensionFromContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	artifact, err := newTestFetcher(t).Fetch(context.Background(), server.URL, nil, t.TempDir(), "document")
	require.NoError(t, err)
	assert.Equal(t, "document.pdf", artifact.Filename)
}

func TestFetchCreatesTargetDirectory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "page", "images")
	artifact, err := newTestFetcher(t).Fetch(context.Background(), server.URL+"/a.png", nil, dir, "image_1")
	require.NoError(t, err)
	assert.Equal(t, "image_1.png", artifact.Filename)
	assert.FileExists(t, filepath.Join(dir, "image_1.png"))
}

func TestFetchNeverOverwritesWithinRun(t *testing.T) {
	names := map[string]string{
		"/first":  "Report.pdf",
		"/second": "Report.pdf",
		"/notes":  "content.md",
		"/links":  "Document_Links.TXT",
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="`+names[r.URL.Path]+`"`)
		w.Write([]byte(r.URL.Path))
	}))
	defer server.Close()

	fetcher, err := NewFetcherFromConfig(config.Default(), zerolog.Nop())
	require.NoError(t, err)

	dir := t.TempDir()
	fetch := func(dir, path string) *types.SavedArtifact {
		artifact, err := fetcher.Fetch(context.Background(), server.URL+path, nil, dir, "document")
		require.NoError(t, err)
		return artifact
	}

	assert.Equal(t, "Report.pdf", fetch(dir, "/first").Filename)
	assert.Equal(t, "Report_2.pdf", fetch(dir, "/second").Filename)
	assert.Equal(t, "content_2.md", fetch(dir, "/notes").Filename)
	assert.Equal(t, "Document_Links_2.TXT", fetch(dir, "/links").Filename)
	assert.Equal(t, "Report.pdf", fetch(t.TempDir(), "/first").Filename)

	first, err := os.ReadFile(filepath.Join(dir, "Report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "/first", string(first))
	assert.NoFileExists(t, filepath.Join(dir, "content.md"))
}

func TestNameRegistryRelease(t *testing.T) {
	names := newNameRegistry(nil)

	assert.Equal(t, "image_1.png", names.claim("page", "image_1.png"))
	names.release("page", "image_1.png")
	assert.Equal(t, "image_1.png", names.claim("page", "image_1.png"))
	assert.Equal(t, "image_1_2.png", names.claim("page", "image_1.png"))
	assert.Equal(t, "README_2", newNameRegistry([]string{"readme"}).claim("page", "README"))
}

func TestFetchNon2xxReturnsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	dir := t.TempDir()
	artifact, err := newTestFetcher(t).Fetch(context.Background(), server.URL+"/missing.png", nil, dir, "image_2")
	require.Error(t, err)
	assert.Nil(t, artifact)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetchSkipsInlineURLs(t *testing.T) {
	fetcher := newTestFetcher(t)

	for _, raw := range []string{"", "   ", "data:image/png;base64,iVBORw0KGgo=", "DATA:text/plain,hi"} {
		artifact, err := fetcher.Fetch(context.Background(), raw, nil, t.TempDir(), "image_1")
		assert.NoError(t, err, raw)
		assert.Nil(t, artifact, raw)
	}
}

func TestFetchSendsCookiesAndProfileHeaders(t *testing.T) {
	var gotCookie, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("SID"); err == nil {
			gotCookie = c.Value
		}
		gotUA = r.UserAgent()
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	cookies := []types.Cookie{{Name: "SID", Value: "secret", Domain: u.Hostname(), Path: "/"}}
	_, err = newTestFetcher(t).Fetch(context.Background(), server.URL, cookies, t.TempDir(), "document")
	require.NoError(t, err)

	assert.Equal(t, "secret", gotCookie)
	assert.Contains(t, gotUA, "Chrome/")
}

func TestResolveFilename(t *testing.T) {
	tests := []struct {
		name        string
		disposition string
		contentType string
		prefix      string
		want        string
	}{
		{"quoted filename", `attachment; filename="Report.pdf"`, "application/pdf", "document", "Report.pdf"},
		{"percent encoded", `attachment; filename="My%20Notes.docx"`, "", "document", "My Notes.docx"},
		{"rfc2231", `attachment; filename*=UTF-8''Plan%20B.pdf`, "", "document", "Plan B.pdf"},
		{"rfc2231 decoded once", `attachment; filename*=UTF-8''100%2525.pdf`, "", "document", "100%25.pdf"},
		{"rfc2231 beats plain", `attachment; filename="fallback.pdf"; filename*=UTF-8''100%2525.pdf`, "", "document", "100%25.pdf"},
		{"path stripped", `attachment; filename="../../etc/passwd"`, "", "document", "passwd"},
		{"inline without name", "inline", "image/jpeg", "image_3", "image_3.jpg"},
		{"params ignored", "", "text/html; charset=utf-8", "document", "document.html"},
		{"extension already present", "", "application/pdf", "notes.pdf", "notes.pdf"},
		{"unknown type", "", "application/x-made-up", "document", "document"},
		{"no headers", "", "", "document", "document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.disposition != "" {
				header.Set("Content-Disposition", tt.disposition)
			}
			if tt.contentType != "" {
				header.Set("Content-Type", tt.contentType)
			}
			assert.Equal(t, tt.want, ResolveFilename(header, tt.prefix, nil))
		})
	}
}

func TestResolveFilenameSniffsOctetStream(t *testing.T) {
	header := http.Header{}
	header.Set("Content-Type", "application/octet-stream")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	assert.Equal(t, "image_1.png", ResolveFilename(header, "image_1", png))
}

func TestNewCookieJarDomainCookie(t *testing.T) {
	jar, err := NewCookieJar([]types.Cookie{
		{Name: "domain", Value: "1", Domain: ".example.com", Path: "/", Secure: true},
		{Name: "hostonly", Value: "2", Domain: "www.example.com", Path: "/"},
		{Name: "", Value: "skipped", Domain: "example.com"},
	})
	require.NoError(t, err)

	sub := jar.Cookies(&url.URL{Scheme: "https", Host: "files.example.com", Path: "/"})
	require.Len(t, sub, 1)
	assert.Equal(t, "domain", sub[0].Name)

	www := jar.Cookies(&url.URL{Scheme: "https", Host: "www.example.com", Path: "/"})
	assert.Len(t, www, 2)

	plain := jar.Cookies(&url.URL{Scheme: "http", Host: "files.example.com", Path: "/"})
	assert.Empty(t, plain)
}

func TestLookupProfiles(t *testing.T) {
	profile, err := LookupProfile("chrome-linux")
	require.NoError(t, err)
	assert.Contains(t, profile.UserAgent, "Linux")

	_, err = LookupProfile("netscape")
	assert.Error(t, err)
	assert.Contains(t, ProfileNames(), "chrome-windows")

	tlsProfile, err := LookupTLSProfile("")
	require.NoError(t, err)
	assert.Nil(t, tlsProfile)

	tlsProfile, err = LookupTLSProfile("chrome-131")
	require.NoError(t, err)
	require.NotNil(t, tlsProfile)
	assert.NotNil(t, NewTransport(tlsProfile).DialTLSContext)

	_, err = LookupTLSProfile("opera-1")
	assert.Error(t, err)
}

func TestFingerprintedTransportSkipsProxy(t *testing.T) {
	t.Setenv("HTTPS_PROXY", "http://proxy.internal:3128")
	t.Setenv("https_proxy", "http://proxy.internal:3128")

	tlsProfile, err := LookupTLSProfile("chrome-120")
	require.NoError(t, err)

	assert.NotNil(t, NewTransport(nil).Proxy)
	assert.Nil(t, NewTransport(tlsProfile).Proxy)

	var buf bytes.Buffer
	NewFetcher(FetcherOptions{TLS: tlsProfile}, zerolog.New(&buf))
	assert.Contains(t, buf.String(), "proxy")
	assert.Contains(t, buf.String(), `"tls_profile":"chrome-120"`)

	buf.Reset()
	NewFetcher(FetcherOptions{}, zerolog.New(&buf))
	assert.Empty(t, buf.String())
}

func TestNewFetcherFromConfig(t *testing.T) {
	cfg := config.Default()
	fetcher, err := NewFetcherFromConfig(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, cfg.FetchTimeout, fetcher.timeout)

	cfg.BrowserProfile = "unknown"
	_, err = NewFetcherFromConfig(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestFetchRobots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	}))
	defer server.Close()

	robots, err := newTestFetcher(t).FetchRobots(context.Background(), server.URL+"/some/page", nil)
	require.NoError(t, err)

	assert.False(t, robots.TestAgent("/private/notes", "sitemirror"))
	assert.True(t, robots.TestAgent("/public", "sitemirror"))
}
