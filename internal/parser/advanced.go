package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/BenjaminSRussell/sitemirror/internal/types"
	"github.com/PuerkitoBio/goquery"
)

// AnchorSelector matches links that stay on the site: absolute links into
// baseDomain and root-relative paths
func AnchorSelector(baseDomain string) string {
	return fmt.Sprintf(`a[href*=%q], a[href^="/"]`, baseDomain)
}

// ExtractAnchors returns the site-internal anchors of a page in document
// order. Hrefs are resolved against baseURL with fragments removed.
// Duplicates are kept; callers deduplicate.
func ExtractAnchors(markup, baseURL, baseDomain string) ([]types.Link, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	links := make([]types.Link, 0)
	doc.Find(AnchorSelector(baseDomain)).Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved := ResolveURL(base, href)
		if resolved == "" {
			return
		}
		links = append(links, types.Link{
			Text: strings.Join(strings.Fields(s.Text()), " "),
			URL:  resolved,
		})
	})

	return links, nil
}

// ResolveURL makes href absolute against base and strips the fragment.
// Non-navigational hrefs resolve to "".
func ResolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(u)
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String()
}

// StripFragment removes the #fragment from an absolute URL
func StripFragment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
