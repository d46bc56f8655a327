package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHarvestedPageMarkup(t *testing.T) {
	page := &HarvestedPage{
		RequestedURL: "https://example.com/site/home",
		MainHTML:     "<html><body>main</body></html>",
		Frames:       []string{"<html><body>frame1</body></html>", "<html><body>frame2</body></html>"},
	}

	assert.Equal(t,
		"<html><body>main</body></html><html><body>frame1</body></html><html><body>frame2</body></html>",
		page.Markup())
}

func TestHarvestedPageURL(t *testing.T) {
	page := &HarvestedPage{RequestedURL: "https://example.com/a"}
	assert.Equal(t, "https://example.com/a", page.URL())

	page.FinalURL = "https://example.com/b"
	assert.Equal(t, "https://example.com/b", page.URL())
}

func TestEmbedKindString(t *testing.T) {
	tests := []struct {
		kind EmbedKind
		want string
	}{
		{EmbedImage, "image"},
		{EmbedDownloadableDocument, "document"},
		{EmbedLinkedDocument, "document_link"},
		{EmbedKind(42), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String())
	}
}

func TestRunStateString(t *testing.T) {
	assert.Equal(t, "unauthenticated", StateUnauthenticated.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "links_discovered", StateLinksDiscovered.String())
	assert.Equal(t, "done", StateDone.String())
}
