package browser

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strings"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // Import all browser support
)

type BrowserType string

const (
	BrowserAuto    BrowserType = "auto"
	BrowserChrome  BrowserType = "chrome"
	BrowserFirefox BrowserType = "firefox"
	BrowserSafari  BrowserType = "safari"
	BrowserZen     BrowserType = "zen"
)

// autoOrder is the preference order when no browser is configured.
var autoOrder = []BrowserType{BrowserChrome, BrowserFirefox, BrowserZen, BrowserSafari}

// storedCookie is a cookie together with the browser store it came from.
type storedCookie struct {
	http.Cookie
	Browser  string
	FilePath string
}

// CookieExtractor reads cookies for a target host from local browser stores.
type CookieExtractor struct {
	browserType BrowserType
	include     []string
	exclude     []string
	traverse    func(ctx context.Context) iter.Seq[storedCookie]
}

// NewCookieExtractor creates an extractor for browserType. include and exclude
// are domain patterns; "*" in include matches every domain.
func NewCookieExtractor(browserType BrowserType, include, exclude []string) *CookieExtractor {
	if browserType == "" {
		browserType = BrowserAuto
	}
	return &CookieExtractor{
		browserType: browserType,
		include:     include,
		exclude:     exclude,
		traverse:    kookyCookies,
	}
}

// kookyCookies streams every cookie kooky can read from the local browsers.
// Unreadable stores are skipped.
func kookyCookies(ctx context.Context) iter.Seq[storedCookie] {
	return func(yield func(storedCookie) bool) {
		for cookie, err := range kooky.TraverseCookies(ctx) {
			if err != nil {
				continue
			}
			sc := storedCookie{Cookie: http.Cookie{
				Name:     cookie.Name,
				Value:    cookie.Value,
				Path:     cookie.Path,
				Domain:   cookie.Domain,
				Expires:  cookie.Expires,
				Secure:   cookie.Secure,
				HttpOnly: cookie.HttpOnly,
			}}
			if cookie.Browser != nil {
				sc.Browser = cookie.Browser.Browser()
				sc.FilePath = cookie.Browser.FilePath()
			}
			if !yield(sc) {
				return
			}
		}
	}
}

// CookiesFor returns the cookies a browser would send to targetURL. Domains
// outside the include list, or inside the exclude list, get none.
func (ce *CookieExtractor) CookiesFor(ctx context.Context, targetURL string) ([]*http.Cookie, error) {
	parsedURL, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	host := strings.ToLower(parsedURL.Hostname())
	if !ce.allowed(host) {
		return nil, nil
	}

	if ce.browserType != BrowserAuto {
		return ce.extractFromBrowser(ctx, ce.browserType, host)
	}

	// Try all browsers in order of preference
	for _, browser := range autoOrder {
		if cookies, err := ce.extractFromBrowser(ctx, browser, host); err == nil && len(cookies) > 0 {
			return cookies, nil
		}
	}
	return nil, nil
}

func (ce *CookieExtractor) extractFromBrowser(ctx context.Context, browserType BrowserType, domain string) ([]*http.Cookie, error) {
	var cookies []*http.Cookie

	for sc := range ce.traverse(ctx) {
		if matchesBrowserType(sc.Browser, sc.FilePath, browserType) && matchesDomain(sc.Domain, domain) {
			c := sc.Cookie
			cookies = append(cookies, &c)
		}
	}

	return cookies, ctx.Err()
}

func (ce *CookieExtractor) allowed(host string) bool {
	for _, pattern := range ce.exclude {
		if matchesPattern(pattern, host) {
			return false
		}
	}
	for _, pattern := range ce.include {
		if matchesPattern(pattern, host) {
			return true
		}
	}
	return false
}

func matchesPattern(pattern, host string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "*" {
		return true
	}
	return matchesDomain(strings.TrimPrefix(pattern, "*."), host)
}

func matchesBrowserType(browser, filePath string, browserType BrowserType) bool {
	if browserType == BrowserAuto {
		return true
	}

	browserName := strings.ToLower(browser)
	switch browserType {
	case BrowserChrome:
		return strings.Contains(browserName, "chrome") || strings.Contains(browserName, "chromium")
	case BrowserFirefox:
		return strings.Contains(browserName, "firefox")
	case BrowserSafari:
		return strings.Contains(browserName, "safari")
	case BrowserZen:
		return strings.Contains(browserName, "zen") ||
			(strings.Contains(browserName, "firefox") && strings.Contains(filePath, "zen"))
	}

	return false
}

func matchesDomain(cookieDomain, targetDomain string) bool {
	if cookieDomain == "" || targetDomain == "" {
		return false
	}

	// Remove leading dot from cookie domain
	cookieDomain = strings.TrimPrefix(strings.ToLower(cookieDomain), ".")

	// Exact match
	if cookieDomain == targetDomain {
		return true
	}

	// Subdomain match
	return strings.HasSuffix(targetDomain, "."+cookieDomain)
}
