package renderer

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/BenjaminSRussell/sitemirror/internal/types"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// FromCDPCookies converts browser cookies to the run's cookie type. Session
// cookies get a zero expiry.
func FromCDPCookies(raw []*network.Cookie) []types.Cookie {
	cookies := make([]types.Cookie, 0, len(raw))
	for _, c := range raw {
		if c == nil {
			continue
		}
		cookie := types.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if !c.Session && c.Expires > 0 {
			sec, frac := math.Modf(c.Expires)
			cookie.Expires = time.Unix(int64(sec), int64(frac*1e9))
		}
		cookies = append(cookies, cookie)
	}
	return cookies
}

// cookieParams builds the SetCookie call for one cookie. Domain cookies keep
// their leading dot; host-only cookies are bound to a URL so Chrome does not
// widen them to subdomains.
func cookieParams(c types.Cookie) *network.SetCookieParams {
	params := network.SetCookie(c.Name, c.Value).
		WithSecure(c.Secure).
		WithHTTPOnly(c.HTTPOnly)

	path := c.Path
	if path == "" {
		path = "/"
	}

	if strings.HasPrefix(c.Domain, ".") {
		params = params.WithDomain(c.Domain).WithPath(path)
	} else {
		scheme := "http"
		if c.Secure {
			scheme = "https"
		}
		params = params.WithURL(scheme + "://" + c.Domain + path)
	}

	if !c.Expires.IsZero() {
		expires := cdp.TimeSinceEpoch(c.Expires)
		params = params.WithExpires(&expires)
	}
	return params
}

func setCookies(cookies []types.Cookie, logger zerolog.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return err
		}

		failed := 0
		for _, c := range cookies {
			if err := cookieParams(c).Do(ctx); err != nil {
				failed++
				logger.Debug().Err(err).Str("cookie", c.Name).Str("domain", c.Domain).Msg("cookie rejected")
			}
		}

		logger.Debug().
			Int("cookies", len(cookies)).
			Int("rejected", failed).
			Msg("cookies injected")
		return nil
	})
}
