package extractor

import (
	"context"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/byteowlz/mapscrape/internal/failure"
	"github.com/byteowlz/mapscrape/internal/fetcher"
	"github.com/byteowlz/mapscrape/internal/processor"
)

const (
	DefaultArticleTimeout  = 25 * time.Second
	DefaultArticleMaxBytes = 5 * 1024 * 1024
	DefaultMinChars        = 200
)

var errNotReadable = failure.New(failure.ExtractionFailed, "Could not extract readable content from this URL")

type ArticleOptions struct {
	Timeout  time.Duration
	MaxBytes int64
	// MinChars is the shortest readable text accepted as an article.
	MinChars        int
	MaxChars        int
	UserAgent       string
	BrowserAgent    string
	Mode            fetcher.FetchMode
	WaitForSelector string
}

func DefaultArticleOptions() ArticleOptions {
	return ArticleOptions{
		Timeout:  DefaultArticleTimeout,
		MaxBytes: DefaultArticleMaxBytes,
		MinChars: DefaultMinChars,
		MaxChars: processor.DefaultMaxChars,
		Mode:     fetcher.FetchModeStatic,
	}
}

// ArticleStrategy fetches an HTML page and keeps its readable main content.
type ArticleStrategy struct {
	fetcher   Fetcher
	processor *processor.ContentProcessor
	cookies   CookieSource
	opts      ArticleOptions
}

// NewArticleStrategy creates an article strategy. cookies may be nil.
func NewArticleStrategy(f Fetcher, cookies CookieSource, opts ArticleOptions) *ArticleStrategy {
	return &ArticleStrategy{
		fetcher:   f,
		processor: processor.NewContentProcessor(),
		cookies:   cookies,
		opts:      opts,
	}
}

func (s *ArticleStrategy) Name() string {
	return "article"
}

func (s *ArticleStrategy) Extract(ctx context.Context, u *url.URL) (*Result, error) {
	target := u.String()

	fetchOpts := fetcher.FetchOptions{
		Mode:            s.opts.Mode,
		Timeout:         s.opts.Timeout,
		Accept:          fetcher.AcceptHTML,
		UserAgent:       s.opts.UserAgent,
		BrowserAgent:    s.opts.BrowserAgent,
		MaxBytes:        s.opts.MaxBytes,
		WaitForSelector: s.opts.WaitForSelector,
	}
	if s.cookies != nil {
		cookies, err := s.cookies.CookiesFor(ctx, target)
		if err != nil {
			log.Warn().Err(err).Str("url", target).Msg("cookie lookup failed, continuing without cookies")
		} else {
			fetchOpts.Cookies = cookies
		}
	}

	res, err := s.fetcher.Fetch(ctx, target, fetchOpts)
	if err != nil {
		if failure.Is(err, failure.FetchFailed) {
			return nil, failure.Wrap(failure.FetchFailed, err, "Failed to fetch URL")
		}
		return nil, err
	}
	log.Debug().Str("url", target).Int("bytes", len(res.Body)).Bool("js", res.UsedJS).Msg("article fetched")

	pageURL := u
	if final, err := url.Parse(res.URL); err == nil && final.Host != "" {
		pageURL = final
	}

	processed, err := s.processor.Process(string(res.Body), pageURL)
	if err != nil {
		log.Debug().Err(err).Str("url", target).Msg("readability failed")
		return nil, errNotReadable
	}
	if processed.Length < s.minChars() {
		log.Debug().Str("url", target).Int("chars", processed.Length).Msg("readable text below minimum")
		return nil, errNotReadable
	}

	title := processed.Title
	if title == "" {
		title = u.Hostname()
	}

	return &Result{
		Title:         title,
		Content:       processor.Truncate(processed.TextContent, s.opts.MaxChars),
		ContentLength: processed.Length,
		SourceType:    SourceArticle,
		SourceURL:     target,
		Metadata: Metadata{
			Author:      processed.Byline,
			SiteName:    processed.SiteName,
			Description: processed.Excerpt,
		},
	}, nil
}

func (s *ArticleStrategy) minChars() int {
	if s.opts.MinChars <= 0 {
		return DefaultMinChars
	}
	return s.opts.MinChars
}
