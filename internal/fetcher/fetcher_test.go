package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/byteowlz/mapscrape/internal/failure"
)

func TestFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != DefaultUserAgent {
			t.Errorf("expected default user agent, got %q", got)
		}
		if got := r.Header.Get("Accept"); got != AcceptHTML {
			t.Errorf("expected HTML accept header, got %q", got)
		}
		if c, err := r.Cookie("session"); err != nil || c.Value != "abc" {
			t.Errorf("expected session cookie, got %v", c)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>hi</body></html>"))
	}))
	defer server.Close()

	cf := NewContentFetcher(Config{FollowRedirects: true, MaxRedirects: 10})
	res, err := cf.Fetch(context.Background(), server.URL, FetchOptions{
		Accept:   AcceptHTML,
		Timeout:  5 * time.Second,
		MaxBytes: 1024,
		Cookies:  []*http.Cookie{{Name: "session", Value: "abc"}},
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(res.Body) != "<html><body>hi</body></html>" {
		t.Errorf("unexpected body %q", res.Body)
	}
	if !strings.HasPrefix(res.ContentType, "text/html") {
		t.Errorf("unexpected content type %q", res.ContentType)
	}
	if res.UsedJS {
		t.Error("static fetch should not report JS")
	}
}

func TestFetch_HTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cf := NewContentFetcher(Config{FollowRedirects: true})
	_, err := cf.Fetch(context.Background(), server.URL, FetchOptions{})
	if !failure.Is(err, failure.FetchFailed) {
		t.Fatalf("expected FetchFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("expected status in message, got %q", err.Error())
	}
}

func TestFetch_DeclaredLengthTooLarge(t *testing.T) {
	done := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "6291456")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-done
	}))
	defer server.Close()
	defer close(done)

	cf := NewContentFetcher(Config{FollowRedirects: true})
	start := time.Now()
	_, err := cf.Fetch(context.Background(), server.URL, FetchOptions{MaxBytes: 5 * 1024 * 1024})
	if !failure.Is(err, failure.ContentTooLarge) {
		t.Fatalf("expected ContentTooLarge, got %v", err)
	}
	if err.Error() != "Content too large (max 5MB)" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if time.Since(start) > 2*time.Second {
		t.Error("declared size should be rejected before reading the body")
	}
}

func TestFetch_BodyExceedsLimitWithoutLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer server.Close()

	cf := NewContentFetcher(Config{FollowRedirects: true})
	_, err := cf.Fetch(context.Background(), server.URL, FetchOptions{MaxBytes: 1024})
	if !failure.Is(err, failure.ContentTooLarge) {
		t.Fatalf("expected ContentTooLarge, got %v", err)
	}
}

func TestFetch_Timeout(t *testing.T) {
	done := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-done
	}))
	defer server.Close()
	defer close(done)

	cf := NewContentFetcher(Config{FollowRedirects: true})
	_, err := cf.Fetch(context.Background(), server.URL, FetchOptions{Timeout: 50 * time.Millisecond})
	if !failure.Is(err, failure.FetchFailed) {
		t.Fatalf("expected FetchFailed on timeout, got %v", err)
	}
}

func TestFetch_RedirectsDisabled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/end", http.StatusFound)
			return
		}
		w.Write([]byte("arrived"))
	}))
	defer server.Close()

	follow := NewContentFetcher(Config{FollowRedirects: true, MaxRedirects: 5})
	res, err := follow.Fetch(context.Background(), server.URL+"/start", FetchOptions{})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(res.Body) != "arrived" || !strings.HasSuffix(res.URL, "/end") {
		t.Errorf("expected redirect to be followed, got %q at %s", res.Body, res.URL)
	}

	noFollow := NewContentFetcher(Config{FollowRedirects: false})
	_, err = noFollow.Fetch(context.Background(), server.URL+"/start", FetchOptions{})
	if !failure.Is(err, failure.FetchFailed) || !strings.Contains(err.Error(), "HTTP 302") {
		t.Errorf("expected unfollowed redirect to fail with 302, got %v", err)
	}
}

func TestHumanBytes(t *testing.T) {
	tests := map[int64]string{
		5 * 1024 * 1024: "5MB",
		2048:            "2KB",
		1000:            "1000 bytes",
	}
	for in, want := range tests {
		if got := humanBytes(in); got != want {
			t.Errorf("humanBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
