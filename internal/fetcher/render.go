package fetcher

import (
	"context"
	"net/http"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/byteowlz/mapscrape/internal/failure"
	"github.com/byteowlz/mapscrape/internal/urlguard"
)

func (cf *ContentFetcher) fetchWithJS(ctx context.Context, url string, opts FetchOptions) (*FetchResult, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:], chromedp.UserAgent(cf.userAgent(opts)))...)
	defer cancelAlloc()

	chromeCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	var setup []chromedp.Action
	if len(opts.Cookies) > 0 {
		setup = append(setup, network.SetCookies(cookieParams(opts.Cookies, url)))
	}
	guard := &navigationGuard{}
	if cf.validateRedirects {
		guard.listen(chromeCtx)
		setup = append(setup, fetch.Enable().WithPatterns([]*fetch.RequestPattern{{
			URLPattern:   "*",
			ResourceType: network.ResourceTypeDocument,
			RequestStage: fetch.RequestStageRequest,
		}}))
	}
	if len(setup) > 0 {
		if err := chromedp.Run(chromeCtx, setup...); err != nil {
			return nil, failure.Wrap(failure.FetchFailed, err, "failed to prepare browser")
		}
	}

	resp, err := chromedp.RunResponse(chromeCtx, chromedp.Navigate(url))
	if blocked := guard.err(); blocked != nil {
		return nil, blocked
	}
	if err != nil {
		return nil, failure.Wrap(failure.FetchFailed, err, "failed to render page")
	}
	if err := documentStatus(resp); err != nil {
		return nil, err
	}

	var html string
	var wait chromedp.Action = chromedp.WaitReady("body")
	if opts.WaitForSelector != "" {
		wait = chromedp.WaitVisible(opts.WaitForSelector)
	}
	if err := chromedp.Run(chromeCtx, wait, chromedp.OuterHTML("html", &html)); err != nil {
		return nil, failure.Wrap(failure.FetchFailed, err, "failed to render page")
	}

	if opts.MaxBytes > 0 && int64(len(html)) > opts.MaxBytes {
		return nil, tooLarge(opts.MaxBytes)
	}

	final := url
	if resp.URL != "" {
		final = resp.URL
	}
	return &FetchResult{
		Body:        []byte(html),
		ContentType: "text/html",
		StatusCode:  int(resp.Status),
		URL:         final,
		UsedJS:      true,
	}, nil
}

// documentStatus applies the static fetch's status rule to the main
// document response of a navigation.
func documentStatus(resp *network.Response) error {
	if resp == nil {
		return failure.New(failure.FetchFailed, "no response for page")
	}
	if resp.Status < 200 || resp.Status > 299 {
		return failure.Newf(failure.FetchFailed, "HTTP %d", resp.Status)
	}
	return nil
}

func cookieParams(cookies []*http.Cookie, pageURL string) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		}
		// Without a domain the cookie is scoped to the page URL.
		if c.Domain != "" {
			p.Domain = c.Domain
		} else {
			p.URL = pageURL
		}
		params = append(params, p)
	}
	return params
}

// navigationGuard vets every document request the browser makes, redirect
// hops included, and fails the ones urlguard rejects.
type navigationGuard struct {
	mu      sync.Mutex
	blocked error
}

func (g *navigationGuard) listen(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		e, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			c := chromedp.FromContext(ctx)
			ectx := cdp.WithExecutor(ctx, c.Target)
			if err := g.check(e.Request.URL); err != nil {
				_ = fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(ectx)
				return
			}
			_ = fetch.ContinueRequest(e.RequestID).Do(ectx)
		}()
	})
}

// check records the first rejected target.
func (g *navigationGuard) check(target string) error {
	_, err := urlguard.Validate(target)
	if err != nil {
		g.mu.Lock()
		if g.blocked == nil {
			g.blocked = err
		}
		g.mu.Unlock()
	}
	return err
}

func (g *navigationGuard) err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.blocked
}
