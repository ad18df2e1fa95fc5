// Package proxy decides which proxy a browser session goes through and can probe
// whether a SOCKS endpoint is reachable.
package proxy

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	xproxy "golang.org/x/net/proxy"

	"github.com/Belphemur/ImageTranslate/internal/apperrors"
	"github.com/Belphemur/ImageTranslate/internal/config"
)

var allowedSchemes = map[string]bool{
	"socks5":  true,
	"socks5h": true,
	"socks4":  true,
	"http":    true,
	"https":   true,
}

// Resolve returns the proxy server URL for a request and whether it is the Tor endpoint.
// An explicit proxy always wins. Otherwise Tor is used when requested or when the
// service runs with tor.enabled, taking TOR_SOCKS_PROXY or the local daemon default.
func Resolve(explicit string, tor bool, cfg *config.Config) (string, bool, error) {
	explicit = strings.TrimSpace(explicit)
	if explicit != "" {
		if err := Validate(explicit); err != nil {
			return "", false, err
		}
		return explicit, false, nil
	}

	if tor || cfg.Tor.Enabled {
		return cfg.TorSocksProxy(), true, nil
	}
	return "", false, nil
}

// Validate checks that raw is a proxy URL Chrome understands.
func Validate(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return apperrors.NewInvalidInputError("proxy", fmt.Sprintf("cannot parse proxy URL: %v", err))
	}
	if !allowedSchemes[strings.ToLower(u.Scheme)] {
		return apperrors.NewInvalidInputError("proxy", fmt.Sprintf("unsupported proxy scheme %q", u.Scheme))
	}
	if u.Hostname() == "" {
		return apperrors.NewInvalidInputError("proxy", "proxy URL has no host")
	}
	return nil
}

// Check dials target through the SOCKS proxy at proxyURL and closes the connection.
func Check(ctx context.Context, proxyURL, target string) error {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("invalid proxy URL: %w", err)
	}

	dialer, err := xproxy.FromURL(u, xproxy.Direct)
	if err != nil {
		return fmt.Errorf("unsupported proxy %q: %w", proxyURL, err)
	}

	var conn net.Conn
	if cd, ok := dialer.(xproxy.ContextDialer); ok {
		conn, err = cd.DialContext(ctx, "tcp", target)
	} else {
		conn, err = dialer.Dial("tcp", target)
	}
	if err != nil {
		return fmt.Errorf("dial %s via %s: %w", target, u.Host, err)
	}
	return conn.Close()
}
