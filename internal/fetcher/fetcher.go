package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/byteowlz/mapscrape/internal/failure"
	"github.com/byteowlz/mapscrape/internal/urlguard"
)

type FetchMode string

const (
	FetchModeStatic FetchMode = "static"
	FetchModeJS     FetchMode = "javascript"
	// FetchModeAuto fetches statically and renders in a browser only when
	// the page looks like a script-rendered shell.
	FetchModeAuto FetchMode = "auto"
)

const (
	AcceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	AcceptFeed = "application/rss+xml,application/xml,text/xml,*/*;q=0.8"
)

type FetchOptions struct {
	Mode    FetchMode
	Timeout time.Duration
	Accept  string
	// UserAgent is sent verbatim when set; otherwise BrowserAgent picks one.
	UserAgent    string
	BrowserAgent string
	Cookies      []*http.Cookie
	// MaxBytes caps the body size. Zero means unlimited.
	MaxBytes        int64
	WaitForSelector string
}

type FetchResult struct {
	Body        []byte
	ContentType string
	StatusCode  int
	URL         string
	UsedJS      bool
}

type Config struct {
	FollowRedirects   bool
	MaxRedirects      int
	ValidateRedirects bool
}

type ContentFetcher struct {
	client            *http.Client
	userAgentSelect   *UserAgentSelector
	validateRedirects bool
	// render fetches through a headless browser.
	render func(ctx context.Context, url string, opts FetchOptions) (*FetchResult, error)
}

func NewContentFetcher(cfg Config) *ContentFetcher {
	cf := NewContentFetcherWithClient(NewHTTPClient(cfg))
	cf.SetValidateRedirects(cfg.ValidateRedirects)
	return cf
}

// NewHTTPClient builds a client with the configured redirect policy. Timeouts
// are applied per request through the context.
func NewHTTPClient(cfg Config) *http.Client {
	client := &http.Client{}
	if cfg.FollowRedirects {
		client.CheckRedirect = urlguard.RedirectPolicy(cfg.MaxRedirects, cfg.ValidateRedirects)
	} else {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}

// NewContentFetcherWithClient uses client as is, including its redirect policy.
func NewContentFetcherWithClient(client *http.Client) *ContentFetcher {
	cf := &ContentFetcher{
		client:          client,
		userAgentSelect: NewUserAgentSelector(),
	}
	cf.render = cf.fetchWithJS
	return cf
}

// SetValidateRedirects makes browser navigations reject document requests,
// redirect hops included, to local or private hosts. Static fetches follow
// the client's redirect policy instead.
func (cf *ContentFetcher) SetValidateRedirects(validate bool) {
	cf.validateRedirects = validate
}

func (cf *ContentFetcher) Fetch(ctx context.Context, url string, opts FetchOptions) (*FetchResult, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	switch opts.Mode {
	case FetchModeJS:
		return cf.render(ctx, url, opts)
	case FetchModeAuto:
		return cf.fetchAuto(ctx, url, opts)
	}
	return cf.fetchStatic(ctx, url, opts)
}

// fetchAuto tries a static fetch first and renders the page in a browser
// when it looks script-rendered. A failed render keeps the static page.
func (cf *ContentFetcher) fetchAuto(ctx context.Context, url string, opts FetchOptions) (*FetchResult, error) {
	result, err := cf.fetchStatic(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	if !needsJSRendering(result.Body) {
		return result, nil
	}

	log.Debug().Str("url", url).Msg("page looks script-rendered, rendering in browser")
	rendered, err := cf.render(ctx, url, opts)
	if err != nil {
		log.Debug().Err(err).Str("url", url).Msg("browser rendering failed, keeping static page")
		return result, nil
	}
	return rendered, nil
}

func (cf *ContentFetcher) fetchStatic(ctx context.Context, url string, opts FetchOptions) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, failure.Wrap(failure.InvalidInput, err, "failed to create request")
	}

	req.Header.Set("User-Agent", cf.userAgent(opts))
	if opts.Accept != "" {
		req.Header.Set("Accept", opts.Accept)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	// Don't set Accept-Encoding - let Go's http client handle compression automatically

	for _, cookie := range opts.Cookies {
		req.AddCookie(cookie)
	}

	resp, err := cf.client.Do(req)
	if err != nil {
		return nil, failure.Wrap(failure.FetchFailed, err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, failure.Newf(failure.FetchFailed, "HTTP %d", resp.StatusCode)
	}

	// Fail fast on the declared size before reading anything.
	if opts.MaxBytes > 0 && resp.ContentLength > opts.MaxBytes {
		return nil, tooLarge(opts.MaxBytes)
	}

	var reader io.Reader = resp.Body
	if opts.MaxBytes > 0 {
		reader = io.LimitReader(resp.Body, opts.MaxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, failure.Wrap(failure.FetchFailed, err, "failed to read response body")
	}
	if opts.MaxBytes > 0 && int64(len(body)) > opts.MaxBytes {
		return nil, tooLarge(opts.MaxBytes)
	}

	return &FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		URL:         resp.Request.URL.String(),
		UsedJS:      false,
	}, nil
}

func (cf *ContentFetcher) userAgent(opts FetchOptions) string {
	if opts.UserAgent != "" {
		return opts.UserAgent
	}
	return cf.userAgentSelect.GetUserAgent(opts.BrowserAgent)
}

func tooLarge(limit int64) error {
	return failure.Newf(failure.ContentTooLarge, "Content too large (max %s)", humanBytes(limit))
}

func humanBytes(n int64) string {
	const mb = 1024 * 1024
	if n >= mb && n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	if n >= 1024 && n%1024 == 0 {
		return fmt.Sprintf("%dKB", n/1024)
	}
	return fmt.Sprintf("%d bytes", n)
}
