package parser

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func flatten(t *testing.T, markup string) string {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(markup))
	require.NoError(t, err)
	return FlattenText(doc)
}

func TestFlattenText(t *testing.T) {
	markup := `
	<html>
		<head><title>Team Wiki</title><style>body { color: red }</style></head>
		<body>
			<h1>  Welcome  </h1>
			<p>First line</p>
			<!-- hidden comment -->
			<script>var x = "not text";</script>
			<noscript>enable js</noscript>
			<div><span>Nested</span> tail</div>
			<p>   </p>
		</body>
	</html>`

	assert.Equal(t, "Team Wiki\nWelcome\nFirst line\nNested\ntail", flatten(t, markup))
}

func TestFlattenTextEmpty(t *testing.T) {
	assert.Equal(t, "", flatten(t, ""))
}

func TestFlattenTextKeepsPlaceholders(t *testing.T) {
	assert.Equal(t, "before\n[IMAGE: images/image_1.png]\nafter", flatten(t, "<p>before</p>\n[IMAGE: images/image_1.png]\n<p>after</p>"))
}

func TestFlattenTextMultipleRoots(t *testing.T) {
	a, err := html.Parse(strings.NewReader("<p>one</p>"))
	require.NoError(t, err)
	b, err := html.Parse(strings.NewReader("<p>two</p>"))
	require.NoError(t, err)

	assert.Equal(t, "one\ntwo", FlattenText(a, b))
}

func TestExtractAnchors(t *testing.T) {
	markup := `
	<html><body>
		<a href="https://sites.google.com/example.com/wiki/about#team">About  us</a>
		<a href="/example.com/wiki/contact">Contact</a>
		<a href="https://elsewhere.org/page">External</a>
		<a href="relative/page">Relative</a>
		<a href="/example.com/wiki/contact">Contact again</a>
	</body></html>`

	links, err := ExtractAnchors(markup, "https://sites.google.com/example.com/wiki", "sites.google.com/example.com")
	require.NoError(t, err)
	require.Len(t, links, 3)

	assert.Equal(t, "About us", links[0].Text)
	assert.Equal(t, "https://sites.google.com/example.com/wiki/about", links[0].URL)
	assert.Equal(t, "https://sites.google.com/example.com/wiki/contact", links[1].URL)
	assert.Equal(t, "Contact again", links[2].Text)
}

func TestExtractAnchorsInvalidBase(t *testing.T) {
	_, err := ExtractAnchors("<a href='/x'>x</a>", "://bad", "example.com")
	assert.Error(t, err)
}

func TestResolveURL(t *testing.T) {
	base, err := url.Parse("https://example.com/dir/page")
	require.NoError(t, err)

	tests := []struct {
		href string
		want string
	}{
		{"/about", "https://example.com/about"},
		{"other#frag", "https://example.com/dir/other"},
		{"https://example.com/x?y=1#z", "https://example.com/x?y=1"},
		{"#top", ""},
		{"", ""},
		{"javascript:void(0)", ""},
		{"MAILTO:someone@example.com", ""},
		{"tel:123", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveURL(base, tt.href), tt.href)
	}
}

func TestStripFragment(t *testing.T) {
	assert.Equal(t, "https://example.com/a", StripFragment("https://example.com/a#b"))
	assert.Equal(t, "https://example.com/a?q=1", StripFragment("https://example.com/a?q=1"))
}
