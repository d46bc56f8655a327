package crawler

import (
	"sync"

	"github.com/BenjaminSRussell/sitemirror/internal/types"
	"github.com/bits-and-blooms/bloom/v3"
)

const (
	minFrontierEstimate = 1_000
	// At the minimum estimate this is roughly a one in a million chance of
	// losing a page to a false positive over a whole run
	frontierFPRate = 1e-9
)

// Frontier is the ordered, deduplicated set of pages a run will mirror.
// The bloom filter is the only record of seen URLs.
type Frontier struct {
	mu    sync.Mutex
	seen  *bloom.BloomFilter
	links []types.Link
}

// NewFrontier creates a frontier sized for about expected links
func NewFrontier(expected int) *Frontier {
	if expected < minFrontierEstimate {
		expected = minFrontierEstimate
	}
	return &Frontier{
		seen:  bloom.NewWithEstimates(uint(expected), frontierFPRate),
		links: make([]types.Link, 0),
	}
}

// Add appends a link if its URL has not been seen
func (f *Frontier) Add(link types.Link) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.seen.TestAndAddString(link.URL) {
		return false
	}
	f.links = append(f.links, link)
	return true
}

// PushFront puts a link at the head of the frontier if its URL has not been seen
func (f *Frontier) PushFront(link types.Link) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.seen.TestAndAddString(link.URL) {
		return false
	}
	f.links = append([]types.Link{link}, f.links...)
	return true
}

// Contains reports whether a URL is already in the frontier
func (f *Frontier) Contains(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen.TestString(url)
}

// Links returns the frontier contents in order
func (f *Frontier) Links() []types.Link {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]types.Link, len(f.links))
	copy(out, f.links)
	return out
}

// Size returns the number of links
func (f *Frontier) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.links)
}
