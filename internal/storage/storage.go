package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/BenjaminSRussell/sitemirror/internal/types"
)

const (
	// ContentFile holds the flattened page text
	ContentFile = "content.md"
	// DocumentLinksFile lists view-only document URLs, one per line
	DocumentLinksFile = "document_links.txt"
)

// Storage lays out mirrored pages under an output root
type Storage struct {
	root         string
	imagesSubdir string
	mu           sync.Mutex
	claimed      map[string]bool
}

// New creates a storage rooted at root. Nothing is created on disk until
// EnsureRoot or PageDir is called.
func New(root, imagesSubdir string) *Storage {
	return &Storage{
		root:         root,
		imagesSubdir: imagesSubdir,
		claimed:      make(map[string]bool),
	}
}

// Root returns the output root
func (s *Storage) Root() string {
	return s.root
}

// EnsureRoot creates the output root
func (s *Storage) EnsureRoot() error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// PageDir creates and returns the directory for a page, along with its
// images subdirectory. Names already handed out in this run get a numeric
// suffix so two pages never share a directory.
func (s *Storage) PageDir(pageURL string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := FolderName(pageURL)
	name := base
	for n := 2; s.claimed[name]; n++ {
		name = fmt.Sprintf("%s_%d", base, n)
	}

	dir := filepath.Join(s.root, name)
	if err := os.MkdirAll(filepath.Join(dir, s.imagesSubdir), 0755); err != nil {
		return "", fmt.Errorf("failed to create page directory %s: %w", dir, err)
	}
	s.claimed[name] = true
	return dir, nil
}

// WritePage writes content.md and, when the page has any, document_links.txt
func (s *Storage) WritePage(result *types.PageResult) error {
	contentPath := filepath.Join(result.OutputDir, ContentFile)
	if err := os.WriteFile(contentPath, []byte(result.BodyText), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", contentPath, err)
	}

	if len(result.DocumentLinks) == 0 {
		return nil
	}

	linksPath := filepath.Join(result.OutputDir, DocumentLinksFile)
	if err := os.WriteFile(linksPath, []byte(FormatDocumentLinks(result.DocumentLinks)), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", linksPath, err)
	}
	return nil
}

// FolderName derives a directory name from the last path segment of a page
// URL, keeping letters, digits, spaces and underscores
func FolderName(pageURL string) string {
	segment := pageURL
	if i := strings.LastIndex(pageURL, "/"); i >= 0 {
		segment = pageURL[i+1:]
	}
	if segment == "" {
		segment = "home"
	}

	var b strings.Builder
	for _, r := range segment {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' {
			b.WriteRune(r)
		}
	}

	name := strings.TrimRight(b.String(), " ")
	if name == "" {
		return "page"
	}
	return name
}

// FormatDocumentLinks returns the links sorted, deduplicated and newline joined
func FormatDocumentLinks(links []string) string {
	seen := make(map[string]bool, len(links))
	unique := make([]string, 0, len(links))
	for _, link := range links {
		if !seen[link] {
			seen[link] = true
			unique = append(unique, link)
		}
	}
	sort.Strings(unique)
	return strings.Join(unique, "\n")
}
