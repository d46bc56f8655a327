package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BenjaminSRussell/sitemirror/internal/storage"
)

// Formats accepted by Export
const (
	FormatJSON    = "json"
	FormatCSV     = "csv"
	FormatSitemap = "sitemap"
)

// PageExport is the JSON shape of one mirrored page
type PageExport struct {
	URL           string           `json:"url"`
	Folder        string           `json:"folder,omitempty"`
	Status        string           `json:"status"`
	Error         string           `json:"error,omitempty"`
	TextLength    int              `json:"text_length"`
	DocumentLinks int              `json:"document_links"`
	ProcessedAt   time.Time        `json:"processed_at"`
	Artifacts     []ArtifactExport `json:"artifacts,omitempty"`
}

// ArtifactExport is the JSON shape of one saved artifact
type ArtifactExport struct {
	Kind        string `json:"kind"`
	OriginalURL string `json:"original_url"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
}

// Exporter reads the manifest of a mirror run
type Exporter struct {
	manifest *storage.Manifest
}

// NewExporter opens the manifest inside a mirror output directory
func NewExporter(outputDir, manifestFile string) (*Exporter, error) {
	path := filepath.Join(outputDir, manifestFile)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no manifest at %s: %w", path, err)
	}

	manifest, err := storage.OpenManifest(path)
	if err != nil {
		return nil, err
	}
	return &Exporter{manifest: manifest}, nil
}

// Export writes the manifest to outputFile in the given format and returns
// the number of pages written
func (e *Exporter) Export(format, outputFile string) (int, error) {
	switch format {
	case FormatJSON:
		return e.ExportJSON(outputFile)
	case FormatCSV:
		return e.ExportCSV(outputFile)
	case FormatSitemap:
		return e.ExportSitemap(DefaultSitemapConfig(outputFile))
	default:
		return 0, fmt.Errorf("unsupported format %q (use json, csv or sitemap)", format)
	}
}

func (e *Exporter) ExportJSON(outputFile string) (int, error) {
	pages, err := e.manifest.QueryPages(storage.PageFilter{})
	if err != nil {
		return 0, err
	}

	exports := make([]PageExport, 0, len(pages))
	for _, page := range pages {
		artifacts, err := e.manifest.QueryArtifacts(page.URL)
		if err != nil {
			return 0, err
		}

		p := PageExport{
			URL:           page.URL,
			Folder:        page.Folder,
			Status:        page.Status,
			Error:         page.Error,
			TextLength:    page.TextLength,
			DocumentLinks: page.DocumentLinks,
			ProcessedAt:   page.ProcessedAt,
		}
		for _, a := range artifacts {
			p.Artifacts = append(p.Artifacts, ArtifactExport{
				Kind:        a.Kind,
				OriginalURL: a.OriginalURL,
				Filename:    a.Filename,
				ContentType: a.ContentType,
				Size:        a.Size,
			})
		}
		exports = append(exports, p)
	}

	data, err := json.MarshalIndent(exports, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return 0, fmt.Errorf("failed to write JSON file: %w", err)
	}

	return len(exports), nil
}

func (e *Exporter) ExportCSV(outputFile string) (int, error) {
	pages, err := e.manifest.QueryPages(storage.PageFilter{})
	if err != nil {
		return 0, err
	}

	file, err := os.Create(outputFile)
	if err != nil {
		return 0, fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	headers := []string{"URL", "Folder", "Status", "Images", "Documents", "DocumentLinks", "TextLength", "ProcessedAt", "Error"}
	if err := writer.Write(headers); err != nil {
		return 0, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, page := range pages {
		record := []string{
			page.URL,
			page.Folder,
			page.Status,
			strconv.Itoa(page.Images),
			strconv.Itoa(page.Documents),
			strconv.Itoa(page.DocumentLinks),
			strconv.Itoa(page.TextLength),
			page.ProcessedAt.Format(time.RFC3339),
			page.Error,
		}
		if err := writer.Write(record); err != nil {
			return 0, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush CSV: %w", err)
	}

	return len(pages), nil
}

// Stats returns the manifest totals
func (e *Exporter) Stats() (map[string]int, error) {
	return e.manifest.Stats()
}

// Close closes the manifest
func (e *Exporter) Close() error {
	return e.manifest.Close()
}
