package resolver

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/BenjaminSRussell/sitemirror/internal/config"
	"github.com/BenjaminSRussell/sitemirror/internal/parser"
	"github.com/BenjaminSRussell/sitemirror/internal/types"
	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

// Fetcher downloads one artifact into a directory
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, cookies []types.Cookie, targetDir, namePrefix string) (*types.SavedArtifact, error)
}

// Resolution is the outcome of resolving the embeds of one page
type Resolution struct {
	Text            string
	DocumentLinks   []string
	Images          []types.SavedArtifact
	Documents       []types.SavedArtifact
	FailedImages    int
	FailedDocuments int
}

// Resolver replaces images and document embeds with textual placeholders,
// downloading the artifacts they point to
type Resolver struct {
	fetcher Fetcher
	embeds  config.EmbedConfig
	logger  zerolog.Logger
}

// New creates a resolver
func New(fetcher Fetcher, embeds config.EmbedConfig, logger zerolog.Logger) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		embeds:  embeds,
		logger:  logger.With().Str("component", "resolver").Logger(),
	}
}

// ImagePlaceholder is the text left where a saved image was
func ImagePlaceholder(relPath string) string {
	return fmt.Sprintf("\n[IMAGE: %s]\n", relPath)
}

// DownloadedDocumentPlaceholder is the text left where a saved document embed was
func DownloadedDocumentPlaceholder(filename string) string {
	return fmt.Sprintf("\n[DOWNLOADED_DOCUMENT: %s]\n", filename)
}

// DocumentLinkPlaceholder is the text left where a view-only document embed was
func DocumentLinkPlaceholder(rawURL string) string {
	return fmt.Sprintf("\n[DOCUMENT_LINK: %s]\n", rawURL)
}

// Resolve processes the markup of one page. Images are handled before
// document embeds, each class in document order, and the rewritten tree is
// flattened to text. Download failures leave the element in place.
func (r *Resolver) Resolve(ctx context.Context, markup, pageDir string, cookies []types.Cookie) (*Resolution, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page markup: %w", err)
	}

	res := &Resolution{}
	if err := r.resolveImages(ctx, doc, pageDir, cookies, res); err != nil {
		return nil, err
	}
	if err := r.resolveDocuments(ctx, doc, pageDir, cookies, res); err != nil {
		return nil, err
	}

	res.Text = parser.FlattenText(doc.Nodes...)

	r.logger.Debug().
		Int("images", len(res.Images)).
		Int("images_failed", res.FailedImages).
		Int("documents", len(res.Documents)).
		Int("documents_failed", res.FailedDocuments).
		Int("document_links", len(res.DocumentLinks)).
		Msg("embeds resolved")
	return res, nil
}

func (r *Resolver) resolveImages(ctx context.Context, doc *goquery.Document, pageDir string, cookies []types.Cookie, res *Resolution) error {
	imagesDir := filepath.Join(pageDir, r.embeds.ImagesSubdir)
	targets := doc.Find("img")

	index := 0
	for i := range targets.Nodes {
		if err := ctx.Err(); err != nil {
			return err
		}

		img := targets.Eq(i)
		embed, ok := ClassifyImage(img)
		if !ok {
			continue
		}
		index++

		saved, err := r.fetcher.Fetch(ctx, embed.URL, cookies, imagesDir, fmt.Sprintf("%s_%d", r.embeds.ImagePrefix, index))
		if err != nil || saved == nil {
			res.FailedImages++
			continue
		}

		res.Images = append(res.Images, *saved)
		replaceWithText(img, ImagePlaceholder(path.Join(r.embeds.ImagesSubdir, saved.Filename)))
	}
	return nil
}

func (r *Resolver) resolveDocuments(ctx context.Context, doc *goquery.Document, pageDir string, cookies []types.Cookie, res *Resolution) error {
	targets := doc.Find(r.embeds.DocumentSelector)

	for i := range targets.Nodes {
		if err := ctx.Err(); err != nil {
			return err
		}

		div := targets.Eq(i)
		counter := i + 1
		embed, ok := r.Classify(div)
		if !ok {
			continue
		}

		switch embed.Kind {
		case types.EmbedDownloadableDocument:
			saved, err := r.fetcher.Fetch(ctx, embed.URL, cookies, pageDir, fmt.Sprintf("%s_%d", r.embeds.DocumentPrefix, counter))
			if err != nil || saved == nil {
				res.FailedDocuments++
				continue
			}
			res.Documents = append(res.Documents, *saved)
			replaceWithText(div, DownloadedDocumentPlaceholder(saved.Filename))

		case types.EmbedLinkedDocument:
			res.DocumentLinks = append(res.DocumentLinks, embed.URL)
			replaceWithText(div, DocumentLinkPlaceholder(embed.URL))
		}
	}
	return nil
}

// ClassifyImage reports whether an img element points at a fetchable
// absolute URL. Inline data: images are never treated as embeds.
func ClassifyImage(img *goquery.Selection) (types.Embed, bool) {
	src, _ := img.Attr("src")
	if !strings.HasPrefix(src, "http") {
		return types.Embed{}, false
	}
	return types.Embed{Kind: types.EmbedImage, URL: src}, true
}

// Classify decides what a document embed element is. A download URL takes
// precedence over an open URL; an element with neither is not an embed.
func (r *Resolver) Classify(s *goquery.Selection) (types.Embed, bool) {
	if download, _ := s.Attr(r.embeds.DownloadURLAttr); download != "" {
		return types.Embed{Kind: types.EmbedDownloadableDocument, URL: download}, true
	}
	if open, _ := s.Attr(r.embeds.OpenURLAttr); open != "" {
		return types.Embed{Kind: types.EmbedLinkedDocument, URL: open}, true
	}
	return types.Embed{}, false
}

func replaceWithText(s *goquery.Selection, text string) {
	s.ReplaceWithNodes(&html.Node{Type: html.TextNode, Data: text})
}
