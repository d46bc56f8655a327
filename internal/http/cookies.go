package http

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/BenjaminSRussell/sitemirror/internal/types"
	"golang.org/x/net/publicsuffix"
)

// NewCookieJar builds a jar holding exactly the given cookies. Domains with a
// leading dot become domain cookies; all others are host-only.
func NewCookieJar(cookies []types.Cookie) (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	for _, c := range cookies {
		if c.Name == "" || c.Domain == "" {
			continue
		}

		host := strings.TrimPrefix(c.Domain, ".")
		scheme := "http"
		if c.Secure {
			scheme = "https"
		}

		path := c.Path
		if path == "" {
			path = "/"
		}

		cookie := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		if strings.HasPrefix(c.Domain, ".") {
			cookie.Domain = host
		}
		if !c.Expires.IsZero() {
			cookie.Expires = c.Expires
		}

		jar.SetCookies(&url.URL{Scheme: scheme, Host: host, Path: "/"}, []*http.Cookie{cookie})
	}

	return jar, nil
}
