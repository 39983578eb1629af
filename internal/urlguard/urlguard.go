// Package urlguard rejects URLs that are malformed or that point at local or
// private infrastructure before any request is made.
//
// Checks run on the literal hostname only. A public hostname that resolves to
// a private address (DNS rebinding) is not caught here.
package urlguard

import (
	"errors"
	"net/http"
	"net/netip"
	"net/url"
	"strconv"
	"strings"

	"github.com/byteowlz/mapscrape/internal/failure"
)

var blockedHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
	"0.0.0.0":   true,
}

var privatePrefixes = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("169.254.0.0/16"),
}

// Validate parses raw as an absolute http(s) URL and rejects local and
// private-range hosts. It never touches the network.
func Validate(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" {
		return nil, failure.New(failure.InvalidInput, "Invalid URL format")
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, failure.New(failure.InvalidInput, "Only HTTP and HTTPS URLs are supported")
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, failure.New(failure.InvalidInput, "Invalid URL format")
	}
	if blockedHosts[host] || strings.HasSuffix(host, ".local") {
		return nil, failure.New(failure.InvalidInput, "Local URLs are not allowed")
	}

	if addr, ok := hostAddr(host); ok {
		if addr.IsLoopback() || addr.IsUnspecified() {
			return nil, failure.New(failure.InvalidInput, "Local URLs are not allowed")
		}
		if isPrivate(addr) {
			return nil, failure.New(failure.InvalidInput, "Private IP addresses are not allowed")
		}
	}

	return u, nil
}

// hostAddr interprets host as an IP literal. Besides the canonical forms it
// accepts the IPv4 shorthands that inet_aton and browser URL parsers resolve:
// one to four parts in decimal, 0x hex or leading-zero octal, where the last
// part fills the remaining bytes (127.1, 0x7f.0.0.1, 2130706433).
func hostAddr(host string) (netip.Addr, bool) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr.Unmap(), true
	}
	return parseIPv4Shorthand(host)
}

func parseIPv4Shorthand(host string) (netip.Addr, bool) {
	parts := strings.Split(host, ".")
	if len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	if len(parts) > 4 {
		return netip.Addr{}, false
	}

	var v uint64
	for i, p := range parts {
		n, ok := parseIPv4Part(p)
		if !ok {
			return netip.Addr{}, false
		}
		if i < len(parts)-1 {
			if n > 255 {
				return netip.Addr{}, false
			}
			v = v<<8 | n
			continue
		}
		// The last part fills every byte not taken by the parts before it.
		width := 8 * uint(5-len(parts))
		if n >= 1<<width {
			return netip.Addr{}, false
		}
		v = v<<width | n
	}
	return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}), true
}

func parseIPv4Part(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	base := 10
	switch {
	case len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X"):
		s, base = s[2:], 16
		if s == "" {
			return 0, true
		}
	case len(s) > 1 && s[0] == '0':
		s, base = s[1:], 8
	}
	n, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isPrivate(addr netip.Addr) bool {
	if !addr.Is4() {
		return false
	}
	for _, p := range privatePrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// RedirectPolicy returns a CheckRedirect function that caps the number of hops
// and only follows http(s) targets. With revalidate set, every hop must also
// pass Validate.
func RedirectPolicy(maxHops int, revalidate bool) func(req *http.Request, via []*http.Request) error {
	if maxHops <= 0 {
		maxHops = 10
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxHops {
			return errors.New("too many redirects")
		}
		if req.URL == nil {
			return errors.New("redirect without target")
		}
		scheme := strings.ToLower(req.URL.Scheme)
		if scheme != "http" && scheme != "https" {
			return errors.New("redirect to unsupported scheme")
		}
		if revalidate {
			if _, err := Validate(req.URL.String()); err != nil {
				return err
			}
		}
		return nil
	}
}
