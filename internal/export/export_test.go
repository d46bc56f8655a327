package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BenjaminSRussell/sitemirror/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifestFile = "manifest.db"

func seedManifest(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	manifest, err := storage.OpenManifest(filepath.Join(dir, manifestFile))
	require.NoError(t, err)
	defer manifest.Close()

	processed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, manifest.SavePage(storage.PageRecord{
		URL:           "https://example.com/wiki/home",
		Folder:        "home",
		Status:        storage.StatusOK,
		TextLength:    120,
		Images:        1,
		DocumentLinks: 2,
		ProcessedAt:   processed,
	}, []storage.ArtifactRecord{
		{Kind: "image", OriginalURL: "https://cdn.example.com/1.png", Filename: "image_1.png", Path: "home/images/image_1.png", ContentType: "image/png", Size: 42},
	}))
	require.NoError(t, manifest.SavePage(storage.PageRecord{
		URL:         "https://example.com/wiki/broken",
		Status:      storage.StatusFailed,
		Error:       "navigation timeout",
		ProcessedAt: processed,
	}, nil))

	return dir
}

func TestNewExporterMissingManifest(t *testing.T) {
	_, err := NewExporter(t.TempDir(), manifestFile)
	assert.Error(t, err)
}

func TestExportJSON(t *testing.T) {
	exporter, err := NewExporter(seedManifest(t), manifestFile)
	require.NoError(t, err)
	defer exporter.Close()

	outputFile := filepath.Join(t.TempDir(), "export.json")
	n, err := exporter.Export(FormatJSON, outputFile)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	var pages []PageExport
	require.NoError(t, json.Unmarshal(data, &pages))
	require.Len(t, pages, 2)
	assert.Equal(t, "home", pages[0].Folder)
	require.Len(t, pages[0].Artifacts, 1)
	assert.Equal(t, "image_1.png", pages[0].Artifacts[0].Filename)
	assert.Equal(t, "navigation timeout", pages[1].Error)
}

func TestExportCSV(t *testing.T) {
	exporter, err := NewExporter(seedManifest(t), manifestFile)
	require.NoError(t, err)
	defer exporter.Close()

	outputFile := filepath.Join(t.TempDir(), "export.csv")
	n, err := exporter.Export(FormatCSV, outputFile)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	file, err := os.Open(outputFile)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "URL", records[0][0])
	assert.Equal(t, []string{"https://example.com/wiki/home", "home", "ok", "1", "0", "2", "120", "2024-05-01T12:00:00Z", ""}, records[1])
}

func TestExportSitemapOnlyOKPages(t *testing.T) {
	exporter, err := NewExporter(seedManifest(t), manifestFile)
	require.NoError(t, err)
	defer exporter.Close()

	outputFile := filepath.Join(t.TempDir(), "sitemap.xml")
	n, err := exporter.Export(FormatSitemap, outputFile)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	content := string(data)

	assert.True(t, strings.HasPrefix(content, "<?xml"))
	assert.Contains(t, content, "<loc>https://example.com/wiki/home</loc>")
	assert.Contains(t, content, "<lastmod>2024-05-01T12:00:00Z</lastmod>")
	assert.NotContains(t, content, "broken")
}

func TestExporterStats(t *testing.T) {
	exporter, err := NewExporter(seedManifest(t), manifestFile)
	require.NoError(t, err)
	defer exporter.Close()

	stats, err := exporter.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats["total_pages"])
	assert.Equal(t, 1, stats["ok_pages"])
	assert.Equal(t, 1, stats["failed_pages"])
	assert.Equal(t, 1, stats["artifacts"])
}

func TestExportUnknownFormat(t *testing.T) {
	exporter, err := NewExporter(seedManifest(t), manifestFile)
	require.NoError(t, err)
	defer exporter.Close()

	_, err = exporter.Export("yaml", filepath.Join(t.TempDir(), "out"))
	assert.Error(t, err)
}
