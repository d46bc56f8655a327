package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http/httpproxy"
)

// TLSProfile represents a browser TLS fingerprint
type TLSProfile struct {
	Name     string
	ClientID utls.ClientHelloID
}

var tlsProfiles = map[string]TLSProfile{
	"chrome-120":  {Name: "chrome-120", ClientID: utls.HelloChrome_120},
	"chrome-131":  {Name: "chrome-131", ClientID: utls.HelloChrome_131},
	"firefox-120": {Name: "firefox-120", ClientID: utls.HelloFirefox_120},
	"edge-106":    {Name: "edge-106", ClientID: utls.HelloEdge_106},
}

// LookupTLSProfile returns the named TLS profile. An empty name means no
// fingerprinting and returns nil.
func LookupTLSProfile(name string) (*TLSProfile, error) {
	if name == "" {
		return nil, nil
	}
	profile, ok := tlsProfiles[name]
	if !ok {
		names := make([]string, 0, len(tlsProfiles))
		for n := range tlsProfiles {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown TLS profile %q (available: %v)", name, names)
	}
	return &profile, nil
}

// NewTransport creates the HTTP transport used for artifact fetches. With a
// TLS profile, HTTPS connections are opened with that browser's ClientHello.
func NewTransport(profile *TLSProfile) *http.Transport {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 15 * time.Second,
	}

	// net/http runs its own crypto/tls after a proxy CONNECT, so a
	// fingerprinted transport dials directly
	if profile != nil {
		transport.Proxy = nil
		transport.DialTLSContext = dialUTLS(profile.ClientID)
	}

	return transport
}

// fingerprintSkipsProxy reports whether the environment asks for an HTTPS
// proxy that a fingerprinted transport will not use
func fingerprintSkipsProxy(profile *TLSProfile, env *httpproxy.Config) bool {
	if profile == nil || env == nil {
		return false
	}
	return env.HTTPSProxy != ""
}

func dialUTLS(id utls.ClientHelloID) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address %s: %w", addr, err)
		}

		spec, err := utls.UTLSIdToSpec(id)
		if err != nil {
			return nil, fmt.Errorf("failed to build ClientHello for %s: %w", id.Str(), err)
		}
		pinHTTP1(&spec)

		var dialer net.Dialer
		rawConn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		conn := utls.UClient(rawConn, &utls.Config{ServerName: host}, utls.HelloCustom)
		if err := conn.ApplyPreset(&spec); err != nil {
			rawConn.Close()
			return nil, fmt.Errorf("failed to apply ClientHello preset: %w", err)
		}
		if err := conn.HandshakeContext(ctx); err != nil {
			rawConn.Close()
			return nil, fmt.Errorf("tls handshake with %s failed: %w", host, err)
		}

		return conn, nil
	}
}

// pinHTTP1 restricts ALPN to http/1.1; net/http only speaks HTTP/2 over
// its own crypto/tls connections.
func pinHTTP1(spec *utls.ClientHelloSpec) {
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}
}
