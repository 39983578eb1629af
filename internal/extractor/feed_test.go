package extractor

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/byteowlz/mapscrape/internal/failure"
	"github.com/byteowlz/mapscrape/internal/fetcher"
)

// stubFetcher serves a canned body and records the options it was called with.
type stubFetcher struct {
	body  string
	err   error
	calls int
	opts  fetcher.FetchOptions
}

func (f *stubFetcher) Fetch(ctx context.Context, url string, opts fetcher.FetchOptions) (*fetcher.FetchResult, error) {
	f.calls++
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &fetcher.FetchResult{Body: []byte(f.body), StatusCode: 200, URL: url}, nil
}

func rssWithItems(n int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>Ancient Worlds Podcast</title>`)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, `<item><title>Episode %d</title><description><![CDATA[<p>Notes for episode %d about <b>Babylon</b> and Nineveh.</p>]]></description></item>`, i, i)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func TestFeed_Extract_FirstTwentyItems(t *testing.T) {
	f := &stubFetcher{body: rssWithItems(25)}
	s := NewFeedStrategy(f, DefaultFeedOptions())

	res, err := s.Extract(context.Background(), mustParse(t, "https://example.com/podcast.rss"))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if f.opts.Accept != fetcher.AcceptFeed {
		t.Errorf("unexpected accept header %q", f.opts.Accept)
	}
	if got := strings.Count(res.Content, "## "); got != 20 {
		t.Errorf("expected 20 entries, got %d", got)
	}
	if !strings.HasPrefix(res.Content, "## Episode 1\nNotes for episode 1 about Babylon and Nineveh.\n\n## Episode 2\n") {
		t.Errorf("unexpected content start %q", res.Content[:80])
	}
	if strings.Contains(res.Content, "Episode 21") {
		t.Error("entries past the first 20 should be dropped")
	}
	if res.Metadata.Description != "RSS feed with 25 items" {
		t.Errorf("unexpected description %q", res.Metadata.Description)
	}
	if res.Title != "Ancient Worlds Podcast" {
		t.Errorf("unexpected title %q", res.Title)
	}
	if res.SourceType != SourcePodcast {
		t.Errorf("unexpected source type %q", res.SourceType)
	}
}

func TestFeed_AtomPrefersContentOverSummary(t *testing.T) {
	atom := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Archaeology Notes</title>
  <entry>
    <title>Digging at Ur</title>
    <summary>short summary</summary>
    <content type="html">&lt;p&gt;The royal cemetery at Ur was excavated by Leonard Woolley between 1922 and 1934, revealing sixteen tombs of extraordinary wealth.&lt;/p&gt;</content>
  </entry>
  <entry>
    <summary>Only a summary for this entry, describing the ziggurat and the temple complex dedicated to the moon god Nanna.</summary>
  </entry>
</feed>`
	s := NewFeedStrategy(&stubFetcher{body: atom}, DefaultFeedOptions())
	res, err := s.Extract(context.Background(), mustParse(t, "https://example.com/atom.xml"))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !strings.Contains(res.Content, "## Digging at Ur\nThe royal cemetery at Ur") {
		t.Errorf("expected content body for first entry, got %q", res.Content)
	}
	if !strings.Contains(res.Content, "## Untitled\nOnly a summary") {
		t.Errorf("expected summary fallback for untitled entry, got %q", res.Content)
	}
	if res.Title != "Archaeology Notes" {
		t.Errorf("unexpected title %q", res.Title)
	}
}

func TestFeed_LenientFallback(t *testing.T) {
	loose := `<channel>
  <title>Loose Feed</title>
  <item>
    <title>First</title>
    <description>The Library of Alexandria was one of the largest and most significant libraries of the ancient world, founded during the reign of Ptolemy I Soter.</description>
  </item>
  <item>
    <description>&lt;p&gt;Second body about the Pharos lighthouse, one of the Seven Wonders.&lt;/p&gt;</description>
  </item>
</channel>`
	s := NewFeedStrategy(&stubFetcher{body: loose}, DefaultFeedOptions())
	res, err := s.Extract(context.Background(), mustParse(t, "https://example.com/feed"))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Title != "Loose Feed" {
		t.Errorf("unexpected title %q", res.Title)
	}
	if !strings.Contains(res.Content, "## First\nThe Library of Alexandria") {
		t.Errorf("unexpected content %q", res.Content)
	}
	if !strings.Contains(res.Content, "## Untitled\nSecond body about the Pharos") {
		t.Errorf("expected html stripped from second entry, got %q", res.Content)
	}
	if res.Metadata.Description != "RSS feed with 2 items" {
		t.Errorf("unexpected description %q", res.Metadata.Description)
	}
}

func TestFeed_DefaultTitle(t *testing.T) {
	body := `<rss version="2.0"><channel>` + strings.Repeat(`<item><title>Entry</title><description>A sufficiently long description of a historical event.</description></item>`, 5) + `</channel></rss>`
	s := NewFeedStrategy(&stubFetcher{body: body}, DefaultFeedOptions())
	res, err := s.Extract(context.Background(), mustParse(t, "https://example.com/rss"))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Title != "RSS Feed" {
		t.Errorf("expected default title, got %q", res.Title)
	}
}

func TestFeed_NoItems(t *testing.T) {
	s := NewFeedStrategy(&stubFetcher{body: `<rss version="2.0"><channel><title>Empty</title></channel></rss>`}, DefaultFeedOptions())
	_, err := s.Extract(context.Background(), mustParse(t, "https://example.com/rss"))
	if !failure.Is(err, failure.NoItemsFound) {
		t.Fatalf("expected NoItemsFound, got %v", err)
	}
	if err.Error() != "No items found in feed" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestFeed_TooShort(t *testing.T) {
	body := `<rss version="2.0"><channel><item><title>Hi</title><description>tiny</description></item></channel></rss>`
	s := NewFeedStrategy(&stubFetcher{body: body}, DefaultFeedOptions())
	_, err := s.Extract(context.Background(), mustParse(t, "https://example.com/rss"))
	if !failure.Is(err, failure.ExtractionFailed) {
		t.Fatalf("expected ExtractionFailed, got %v", err)
	}
	if err.Error() != "Feed content too short to extract meaningful data" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestFeed_FetchErrors(t *testing.T) {
	s := NewFeedStrategy(&stubFetcher{err: failure.Newf(failure.FetchFailed, "HTTP %d", 500)}, DefaultFeedOptions())
	_, err := s.Extract(context.Background(), mustParse(t, "https://example.com/rss"))
	if !failure.Is(err, failure.FetchFailed) {
		t.Fatalf("expected FetchFailed, got %v", err)
	}
	if err.Error() != "Failed to fetch feed: HTTP 500" {
		t.Errorf("unexpected message %q", err.Error())
	}

	s = NewFeedStrategy(&stubFetcher{err: failure.New(failure.ContentTooLarge, "Content too large (max 10MB)")}, DefaultFeedOptions())
	_, err = s.Extract(context.Background(), mustParse(t, "https://example.com/rss"))
	if !failure.Is(err, failure.ContentTooLarge) {
		t.Fatalf("expected ContentTooLarge to pass through, got %v", err)
	}
}
