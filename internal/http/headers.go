package http

import (
	"fmt"
	"net/http"
	"sort"
)

// BrowserProfile is the header set of a real browser. The renderer launches
// Chrome with the same User-Agent so page loads and artifact fetches present
// one identity to the site.
type BrowserProfile struct {
	Name            string
	UserAgent       string
	AcceptLanguage  string
	Accept          string
	SecChUA         string
	SecChUAPlatform string
	SecChUAMobile   string
}

var browserProfiles = map[string]BrowserProfile{
	"chrome-windows": {
		Name:            "chrome-windows",
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		AcceptLanguage:  "en-US,en;q=0.9",
		Accept:          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		SecChUA:         `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
		SecChUAPlatform: `"Windows"`,
		SecChUAMobile:   "?0",
	},
	"chrome-macos": {
		Name:            "chrome-macos",
		UserAgent:       "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		AcceptLanguage:  "en-US,en;q=0.9",
		Accept:          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		SecChUA:         `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
		SecChUAPlatform: `"macOS"`,
		SecChUAMobile:   "?0",
	},
	"chrome-linux": {
		Name:            "chrome-linux",
		UserAgent:       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		AcceptLanguage:  "en-US,en;q=0.9",
		Accept:          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		SecChUA:         `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
		SecChUAPlatform: `"Linux"`,
		SecChUAMobile:   "?0",
	},
	"edge-windows": {
		Name:            "edge-windows",
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
		AcceptLanguage:  "en-US,en;q=0.9",
		Accept:          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8",
		SecChUA:         `"Microsoft Edge";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
		SecChUAPlatform: `"Windows"`,
		SecChUAMobile:   "?0",
	},
}

// LookupProfile returns the named browser profile
func LookupProfile(name string) (BrowserProfile, error) {
	profile, ok := browserProfiles[name]
	if !ok {
		return BrowserProfile{}, fmt.Errorf("unknown browser profile %q (available: %v)", name, ProfileNames())
	}
	return profile, nil
}

// ProfileNames lists the known browser profiles
func ProfileNames() []string {
	names := make([]string, 0, len(browserProfiles))
	for name := range browserProfiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyHeaders sets the profile's headers on a request. Accept-Encoding is
// left to the transport so bodies are decompressed before they hit disk.
func (p BrowserProfile) ApplyHeaders(req *http.Request) {
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}
	if p.Accept != "" {
		req.Header.Set("Accept", p.Accept)
	}
	if p.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", p.AcceptLanguage)
	}
	if p.SecChUA != "" {
		req.Header.Set("Sec-Ch-Ua", p.SecChUA)
	}
	if p.SecChUAPlatform != "" {
		req.Header.Set("Sec-Ch-Ua-Platform", p.SecChUAPlatform)
	}
	if p.SecChUAMobile != "" {
		req.Header.Set("Sec-Ch-Ua-Mobile", p.SecChUAMobile)
	}
}
