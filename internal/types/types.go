package types

import (
	"strings"
	"time"
)

// Link is an internal page found during discovery
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Cookie is an authentication cookie captured from the login browser
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"http_only,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
}

// EmbedKind tags the variant of an Embed
type EmbedKind int

const (
	EmbedImage EmbedKind = iota
	EmbedDownloadableDocument
	EmbedLinkedDocument
)

func (k EmbedKind) String() string {
	switch k {
	case EmbedImage:
		return "image"
	case EmbedDownloadableDocument:
		return "document"
	case EmbedLinkedDocument:
		return "document_link"
	default:
		return "unknown"
	}
}

// Embed is a media or document element found in a page
type Embed struct {
	Kind EmbedKind
	URL  string
}

// SavedArtifact describes a file written by the artifact fetcher
type SavedArtifact struct {
	OriginalURL string `json:"original_url"`
	Filename    string `json:"filename"`
	Path        string `json:"path"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
}

// HarvestedPage holds the rendered markup of a page and its frames
type HarvestedPage struct {
	RequestedURL string
	FinalURL     string
	MainHTML     string
	Frames       []string
}

// Markup returns the main document followed by every frame document
func (p *HarvestedPage) Markup() string {
	var b strings.Builder
	b.WriteString(p.MainHTML)
	for _, frame := range p.Frames {
		b.WriteString(frame)
	}
	return b.String()
}

// URL returns the address the page ended up on after redirects
func (p *HarvestedPage) URL() string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	return p.RequestedURL
}

// PageResult is the processed output of a single page
type PageResult struct {
	URL             string          `json:"url"`
	OutputDir       string          `json:"output_dir"`
	BodyText        string          `json:"-"`
	DocumentLinks   []string        `json:"document_links,omitempty"`
	Images          []SavedArtifact `json:"images,omitempty"`
	Documents       []SavedArtifact `json:"documents,omitempty"`
	FailedImages    int             `json:"failed_images"`
	FailedDocuments int             `json:"failed_documents"`
	ProcessedAt     time.Time       `json:"processed_at"`
}

// RunState is the orchestrator's position in a run
type RunState int

const (
	StateUnauthenticated RunState = iota
	StateAuthenticated
	StateLinksDiscovered
	StateDone
)

func (s RunState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateLinksDiscovered:
		return "links_discovered"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Results contains run statistics
type Results struct {
	State         RunState
	Discovered    int
	Processed     int
	Failed        int
	Images        int
	Documents     int
	DocumentLinks int
	Panics        int
}
