package extractor

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"

	"github.com/byteowlz/mapscrape/internal/failure"
	"github.com/byteowlz/mapscrape/internal/fetcher"
	"github.com/byteowlz/mapscrape/internal/processor"
)

const (
	DefaultFeedTimeout  = 25 * time.Second
	DefaultFeedMaxBytes = 10 * 1024 * 1024
	DefaultFeedMaxItems = 20

	defaultFeedTitle  = "RSS Feed"
	defaultEntryTitle = "Untitled"
)

type FeedOptions struct {
	Timeout      time.Duration
	MaxBytes     int64
	MaxItems     int
	MinChars     int
	MaxChars     int
	UserAgent    string
	BrowserAgent string
}

func DefaultFeedOptions() FeedOptions {
	return FeedOptions{
		Timeout:  DefaultFeedTimeout,
		MaxBytes: DefaultFeedMaxBytes,
		MaxItems: DefaultFeedMaxItems,
		MinChars: DefaultMinChars,
		MaxChars: processor.DefaultMaxChars,
	}
}

// FeedStrategy summarizes the newest entries of an RSS or Atom feed.
type FeedStrategy struct {
	fetcher   Fetcher
	processor *processor.ContentProcessor
	opts      FeedOptions
}

func NewFeedStrategy(f Fetcher, opts FeedOptions) *FeedStrategy {
	return &FeedStrategy{
		fetcher:   f,
		processor: processor.NewContentProcessor(),
		opts:      opts,
	}
}

func (s *FeedStrategy) Name() string {
	return "feed"
}

type feedEntry struct {
	Title string
	Body  string
}

type parsedFeed struct {
	Title   string
	Entries []feedEntry
}

func (s *FeedStrategy) Extract(ctx context.Context, u *url.URL) (*Result, error) {
	target := u.String()

	res, err := s.fetcher.Fetch(ctx, target, fetcher.FetchOptions{
		Mode:         fetcher.FetchModeStatic,
		Timeout:      s.opts.Timeout,
		Accept:       fetcher.AcceptFeed,
		UserAgent:    s.opts.UserAgent,
		BrowserAgent: s.opts.BrowserAgent,
		MaxBytes:     s.opts.MaxBytes,
	})
	if err != nil {
		if failure.Is(err, failure.FetchFailed) {
			return nil, failure.Wrap(failure.FetchFailed, err, "Failed to fetch feed")
		}
		return nil, err
	}

	feed := s.parse(res.Body)
	if len(feed.Entries) == 0 {
		return nil, failure.New(failure.NoItemsFound, "No items found in feed")
	}
	log.Debug().Str("url", target).Int("entries", len(feed.Entries)).Msg("feed parsed")

	limit := s.opts.MaxItems
	if limit <= 0 {
		limit = DefaultFeedMaxItems
	}
	entries := feed.Entries
	if len(entries) > limit {
		entries = entries[:limit]
	}

	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, "## "+e.Title+"\n"+e.Body)
	}
	content := strings.Join(parts, "\n\n")

	minChars := s.opts.MinChars
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	if utf8.RuneCountInString(strings.TrimSpace(content)) < minChars {
		return nil, failure.New(failure.ExtractionFailed, "Feed content too short to extract meaningful data")
	}

	title := feed.Title
	if title == "" {
		title = defaultFeedTitle
	}

	return &Result{
		Title:         title,
		Content:       processor.Truncate(content, s.opts.MaxChars),
		ContentLength: utf8.RuneCountInString(content),
		SourceType:    SourcePodcast,
		SourceURL:     target,
		Metadata: Metadata{
			Description: fmt.Sprintf("RSS feed with %d items", len(feed.Entries)),
		},
	}, nil
}

// parse tries gofeed first and falls back to a lenient goquery scan for
// documents gofeed cannot detect or parse.
func (s *FeedStrategy) parse(body []byte) *parsedFeed {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err == nil {
		return s.fromGofeed(feed)
	}
	log.Debug().Err(err).Msg("gofeed could not parse document, using lenient parser")
	return s.fromMarkup(body)
}

func (s *FeedStrategy) fromGofeed(feed *gofeed.Feed) *parsedFeed {
	out := &parsedFeed{Title: strings.TrimSpace(feed.Title)}
	for _, item := range feed.Items {
		// gofeed maps Atom <summary> to Description, so Atom prefers Content.
		candidates := []string{item.Description, item.Content}
		if feed.FeedType != "rss" {
			candidates = []string{item.Content, item.Description}
		}
		if item.ITunesExt != nil {
			candidates = append(candidates, item.ITunesExt.Summary)
		}
		out.Entries = append(out.Entries, s.entry(item.Title, candidates...))
	}
	return out
}

func (s *FeedStrategy) fromMarkup(body []byte) *parsedFeed {
	// The HTML parser drops CDATA sections as comments; keep their payload.
	cleaned := strings.NewReplacer("<![CDATA[", "", "]]>", "").Replace(string(body))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cleaned))
	if err != nil {
		return &parsedFeed{}
	}

	out := &parsedFeed{
		Title: strings.TrimSpace(doc.Find("channel > title, feed > title").First().Text()),
	}
	doc.Find("item, entry").Each(func(_ int, sel *goquery.Selection) {
		out.Entries = append(out.Entries, s.entry(
			sel.Find("title").First().Text(),
			sel.Find("description").First().Text(),
			sel.Find("content").First().Text(),
			sel.Find("summary").First().Text(),
		))
	})
	return out
}

// entry builds a feed entry from a title and the first non-empty body candidate.
func (s *FeedStrategy) entry(title string, bodies ...string) feedEntry {
	e := feedEntry{Title: strings.TrimSpace(title)}
	if e.Title == "" {
		e.Title = defaultEntryTitle
	}
	for _, b := range bodies {
		if text := s.processor.StripHTML(b); text != "" {
			e.Body = text
			break
		}
	}
	return e
}
