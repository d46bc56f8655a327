package export

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/BenjaminSRussell/sitemirror/internal/storage"
)

// SitemapConfig holds export configuration
type SitemapConfig struct {
	OutputFile        string
	IncludeLastmod    bool
	IncludeChangefreq bool
	DefaultPriority   float64
}

// DefaultSitemapConfig returns the settings used by the export command
func DefaultSitemapConfig(outputFile string) SitemapConfig {
	return SitemapConfig{
		OutputFile:        outputFile,
		IncludeLastmod:    true,
		IncludeChangefreq: false,
		DefaultPriority:   0.5,
	}
}

// URLSet represents the XML sitemap structure
type URLSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

// URL represents a single URL in the sitemap
type URL struct {
	Loc        string  `xml:"loc"`
	Lastmod    string  `xml:"lastmod,omitempty"`
	Changefreq string  `xml:"changefreq,omitempty"`
	Priority   float64 `xml:"priority,omitempty"`
}

// ExportSitemap writes successfully mirrored pages as an XML sitemap
func (e *Exporter) ExportSitemap(config SitemapConfig) (int, error) {
	pages, err := e.manifest.QueryPages(storage.PageFilter{Status: storage.StatusOK})
	if err != nil {
		return 0, err
	}

	urlSet := URLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  make([]URL, 0, len(pages)),
	}

	for _, page := range pages {
		u := URL{
			Loc:      page.URL,
			Priority: config.DefaultPriority,
		}

		if config.IncludeLastmod && !page.ProcessedAt.IsZero() {
			u.Lastmod = page.ProcessedAt.Format(time.RFC3339)
		}

		if config.IncludeChangefreq {
			u.Changefreq = "weekly"
		}

		urlSet.URLs = append(urlSet.URLs, u)
	}

	output, err := xml.MarshalIndent(urlSet, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to marshal XML: %w", err)
	}

	xmlContent := []byte(xml.Header + string(output))

	if err := os.WriteFile(config.OutputFile, xmlContent, 0644); err != nil {
		return 0, fmt.Errorf("failed to write sitemap: %w", err)
	}

	return len(urlSet.URLs), nil
}
