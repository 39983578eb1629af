package extractor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/byteowlz/mapscrape/internal/failure"
	"github.com/byteowlz/mapscrape/internal/fetcher"
	"github.com/byteowlz/mapscrape/internal/processor"
)

const siegeParagraphs = `
    <p>In the spring of 1453, the Ottoman army under Sultan Mehmed II laid siege to Constantinople, the capital of the Byzantine Empire, which had stood for more than a thousand years.</p>
    <p>The city's defenders, numbering perhaps seven thousand men, faced an army many times larger, equipped with enormous bombards that could batter the ancient Theodosian walls from a distance.</p>
    <p>After fifty-three days of siege, on the twenty-ninth of May, the walls were breached and the city passed into Ottoman hands, becoming the new imperial capital of the empire.</p>`

const siegeArticle = `<!DOCTYPE html>
<html>
<head>
  <title>The Fall of Constantinople</title>
  <meta name="author" content="Jane Historian">
  <meta property="og:site_name" content="History Weekly">
  <meta name="description" content="How the Byzantine capital fell in 1453.">
</head>
<body><article>` + siegeParagraphs + `</article></body>
</html>`

const untitledArticle = `<!DOCTYPE html><html><head></head><body><article>` + siegeParagraphs + `</article></body></html>`

type fakeCookies struct {
	cookies []*http.Cookie
	err     error
}

func (f *fakeCookies) CookiesFor(ctx context.Context, targetURL string) ([]*http.Cookie, error) {
	return f.cookies, f.err
}

func newArticleServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != fetcher.DefaultUserAgent {
			t.Errorf("expected bot user agent, got %q", got)
		}
		if got := r.Header.Get("Accept"); got != fetcher.AcceptHTML {
			t.Errorf("unexpected accept header %q", got)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func newTestArticleStrategy(cookies CookieSource, opts ArticleOptions) *ArticleStrategy {
	f := fetcher.NewContentFetcher(fetcher.Config{FollowRedirects: true, MaxRedirects: 10})
	return NewArticleStrategy(f, cookies, opts)
}

func TestArticle_Extract_Success(t *testing.T) {
	server := newArticleServer(t, http.StatusOK, siegeArticle)
	defer server.Close()

	s := newTestArticleStrategy(nil, DefaultArticleOptions())
	res, err := s.Extract(context.Background(), mustParse(t, server.URL+"/constantinople"))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Title != "The Fall of Constantinople" {
		t.Errorf("unexpected title %q", res.Title)
	}
	if !strings.Contains(res.Content, "Mehmed II") {
		t.Errorf("expected article text, got %q", res.Content)
	}
	if res.SourceType != SourceArticle {
		t.Errorf("unexpected source type %q", res.SourceType)
	}
	if res.Metadata.Author != "Jane Historian" || res.Metadata.SiteName != "History Weekly" {
		t.Errorf("unexpected metadata %+v", res.Metadata)
	}
	if res.Metadata.Description == "" {
		t.Error("expected excerpt as description")
	}
	if res.ContentLength < DefaultMinChars {
		t.Errorf("unexpected content length %d", res.ContentLength)
	}
}

func TestArticle_HostnameTitleFallback(t *testing.T) {
	server := newArticleServer(t, http.StatusOK, untitledArticle)
	defer server.Close()

	u := mustParse(t, server.URL+"/page")
	s := newTestArticleStrategy(nil, DefaultArticleOptions())
	res, err := s.Extract(context.Background(), u)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Title != u.Hostname() {
		t.Errorf("expected hostname title %q, got %q", u.Hostname(), res.Title)
	}
}

func TestArticle_TooShort(t *testing.T) {
	server := newArticleServer(t, http.StatusOK, `<html><head><title>Stub</title></head><body><p>Too short to matter.</p></body></html>`)
	defer server.Close()

	s := newTestArticleStrategy(nil, DefaultArticleOptions())
	_, err := s.Extract(context.Background(), mustParse(t, server.URL))
	if !failure.Is(err, failure.ExtractionFailed) {
		t.Fatalf("expected ExtractionFailed, got %v", err)
	}
	if err.Error() != "Could not extract readable content from this URL" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestArticle_HTTPError(t *testing.T) {
	server := newArticleServer(t, http.StatusNotFound, "gone")
	defer server.Close()

	s := newTestArticleStrategy(nil, DefaultArticleOptions())
	_, err := s.Extract(context.Background(), mustParse(t, server.URL))
	if !failure.Is(err, failure.FetchFailed) {
		t.Fatalf("expected FetchFailed, got %v", err)
	}
	if err.Error() != "Failed to fetch URL: HTTP 404" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestArticle_ContentTooLarge(t *testing.T) {
	big := "<html><body><p>" + strings.Repeat("x", 4096) + "</p></body></html>"
	server := newArticleServer(t, http.StatusOK, big)
	defer server.Close()

	opts := DefaultArticleOptions()
	opts.MaxBytes = 1024
	s := newTestArticleStrategy(nil, opts)
	_, err := s.Extract(context.Background(), mustParse(t, server.URL))
	if !failure.Is(err, failure.ContentTooLarge) {
		t.Fatalf("expected ContentTooLarge, got %v", err)
	}
}

func TestArticle_Truncates(t *testing.T) {
	server := newArticleServer(t, http.StatusOK, siegeArticle)
	defer server.Close()

	opts := DefaultArticleOptions()
	opts.MaxChars = 100
	s := newTestArticleStrategy(nil, opts)
	res, err := s.Extract(context.Background(), mustParse(t, server.URL))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !strings.HasSuffix(res.Content, processor.TruncationMarker) {
		t.Error("expected truncated content")
	}
	if res.ContentLength <= 100 {
		t.Errorf("content length should reflect the untruncated text, got %d", res.ContentLength)
	}
}

func TestArticle_Cookies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("paywall"); err != nil || c.Value != "open" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(siegeArticle))
	}))
	defer server.Close()

	cookies := &fakeCookies{cookies: []*http.Cookie{{Name: "paywall", Value: "open"}}}
	s := newTestArticleStrategy(cookies, DefaultArticleOptions())
	if _, err := s.Extract(context.Background(), mustParse(t, server.URL)); err != nil {
		t.Fatalf("expected cookies to be sent: %v", err)
	}

	// A broken cookie source is not fatal.
	s = newTestArticleStrategy(&fakeCookies{err: errors.New("keychain locked")}, DefaultArticleOptions())
	_, err := s.Extract(context.Background(), mustParse(t, server.URL))
	if !failure.Is(err, failure.FetchFailed) {
		t.Fatalf("expected request without cookies to reach the server, got %v", err)
	}
}
