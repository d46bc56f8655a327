package http

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// nameRegistry hands out artifact filenames that are unique per directory
// for the lifetime of a Fetcher and never collide with reserved page files
type nameRegistry struct {
	mu       sync.Mutex
	reserved map[string]bool
	claimed  map[string]bool
}

func newNameRegistry(reserved []string) *nameRegistry {
	r := &nameRegistry{
		reserved: make(map[string]bool, len(reserved)),
		claimed:  make(map[string]bool),
	}
	for _, name := range reserved {
		r.reserved[strings.ToLower(name)] = true
	}
	return r
}

// claim returns name, or name with a _N suffix before its extension when
// name is reserved or already taken in dir
func (r *nameRegistry) claim(dir, name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := name
	for n := 2; r.taken(dir, candidate); n++ {
		candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
	}
	r.claimed[filepath.Join(dir, candidate)] = true
	return candidate
}

func (r *nameRegistry) taken(dir, name string) bool {
	return r.reserved[strings.ToLower(name)] || r.claimed[filepath.Join(dir, name)]
}

// release frees a claimed name whose file was never written
func (r *nameRegistry) release(dir, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.claimed, filepath.Join(dir, name))
}
