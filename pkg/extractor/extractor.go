// Package extractor turns an arbitrary URL into plain text suitable for a
// language-model prompt. A URL is validated, classified as a YouTube video,
// a feed or an article, and handed to exactly one extraction strategy.
package extractor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/byteowlz/mapscrape/internal/browser"
	"github.com/byteowlz/mapscrape/internal/classify"
	"github.com/byteowlz/mapscrape/internal/config"
	"github.com/byteowlz/mapscrape/internal/extractor"
	"github.com/byteowlz/mapscrape/internal/failure"
	"github.com/byteowlz/mapscrape/internal/fetcher"
	"github.com/byteowlz/mapscrape/internal/urlguard"
	"github.com/byteowlz/mapscrape/internal/youtube"
)

type (
	Result     = extractor.Result
	Metadata   = extractor.Metadata
	SourceType = extractor.SourceType
	Strategy   = extractor.Strategy

	// Kind is the classifier bucket a URL falls into.
	Kind = classify.Kind

	// ErrorKind classifies extraction failures; see KindOf.
	ErrorKind = failure.Kind
)

const (
	KindYouTube = classify.YouTube
	KindRSS     = classify.RSS
	KindArticle = classify.Article

	SourceYouTube = extractor.SourceYouTube
	SourceArticle = extractor.SourceArticle
	SourcePodcast = extractor.SourcePodcast

	InvalidInput     = failure.InvalidInput
	FetchFailed      = failure.FetchFailed
	ContentTooLarge  = failure.ContentTooLarge
	ExtractionFailed = failure.ExtractionFailed
	NoItemsFound     = failure.NoItemsFound
)

type Extractor struct {
	config     *config.Config
	httpClient *http.Client
	strategies map[Kind]Strategy
}

type Option func(*Extractor)

// WithStrategy replaces the strategy used for kind.
func WithStrategy(kind Kind, s Strategy) Option {
	return func(e *Extractor) {
		e.strategies[kind] = s
	}
}

// WithHTTPClient sets the client shared by the default strategies. Its
// redirect policy is used as is.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Extractor) {
		e.httpClient = c
	}
}

// New builds an Extractor from cfg. A nil cfg uses config.Default().
func New(cfg *config.Config, opts ...Option) *Extractor {
	if cfg == nil {
		cfg = config.Default()
	}
	e := &Extractor{
		config:     cfg,
		strategies: make(map[Kind]Strategy),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.httpClient == nil {
		e.httpClient = fetcher.NewHTTPClient(fetcher.Config{
			FollowRedirects:   cfg.Network.FollowRedirects,
			MaxRedirects:      cfg.Network.MaxRedirects,
			ValidateRedirects: cfg.Network.ValidateRedirects,
		})
	}
	f := fetcher.NewContentFetcherWithClient(e.httpClient)
	f.SetValidateRedirects(cfg.Network.ValidateRedirects)

	if _, ok := e.strategies[KindYouTube]; !ok {
		e.strategies[KindYouTube] = e.newYouTubeStrategy()
	}
	if _, ok := e.strategies[KindRSS]; !ok {
		e.strategies[KindRSS] = extractor.NewFeedStrategy(f, e.feedOptions())
	}
	if _, ok := e.strategies[KindArticle]; !ok {
		e.strategies[KindArticle] = extractor.NewArticleStrategy(f, e.cookieSource(), e.articleOptions())
	}
	return e
}

// Extract validates raw, classifies it and runs exactly one strategy. A
// failing strategy is never retried with another one. The returned Result
// carries raw as its SourceURL.
func (e *Extractor) Extract(ctx context.Context, raw string) (*Result, error) {
	u, err := urlguard.Validate(raw)
	if err != nil {
		return nil, err
	}

	kind := classify.Classify(u)
	s, ok := e.strategies[kind]
	if !ok {
		return nil, fmt.Errorf("no strategy registered for %s URLs", kind)
	}

	start := time.Now()
	log.Debug().Str("url", raw).Str("kind", string(kind)).Str("strategy", s.Name()).Msg("extracting")

	res, err := s.Extract(ctx, u)
	if err != nil {
		log.Debug().Err(err).Str("url", raw).Dur("elapsed", time.Since(start)).Msg("extraction failed")
		return nil, err
	}
	res.SourceURL = raw

	log.Debug().
		Str("url", raw).
		Str("source_type", string(res.SourceType)).
		Int("content_length", res.ContentLength).
		Dur("elapsed", time.Since(start)).
		Msg("extracted")
	return res, nil
}

// Classify validates raw and reports which strategy Extract would use,
// without touching the network.
func (e *Extractor) Classify(raw string) (Kind, error) {
	u, err := urlguard.Validate(raw)
	if err != nil {
		return "", err
	}
	return classify.Classify(u), nil
}

// Validate rejects malformed, non-http(s), local and private-range URLs.
func Validate(raw string) (*url.URL, error) {
	return urlguard.Validate(raw)
}

// Classify maps a parsed URL to its strategy bucket.
func Classify(u *url.URL) Kind {
	return classify.Classify(u)
}

// KindOf reports the failure kind carried by err.
func KindOf(err error) (ErrorKind, bool) {
	return failure.KindOf(err)
}

func (e *Extractor) newYouTubeStrategy() *extractor.YouTubeStrategy {
	cfg := e.config
	ua := cfg.Network.UserAgent
	if ua == "" {
		ua = fetcher.NewUserAgentSelector().GetUserAgent(cfg.Network.BrowserAgent)
	}

	transcripts := youtube.NewTranscriptClient(e.httpClient, cfg.YouTube.Languages, ua)
	transcripts.Timeout = seconds(cfg.YouTube.Timeout)

	metaTimeout := seconds(cfg.YouTube.MetadataTimeout)
	meta := youtube.NewOEmbedClient(e.httpClient, metaTimeout)

	s := extractor.NewYouTubeStrategy(transcripts, meta, cfg.Extraction.MaxChars)
	if metaTimeout > 0 {
		s.MetadataTimeout = metaTimeout
	}
	return s
}

func (e *Extractor) articleOptions() extractor.ArticleOptions {
	cfg := e.config
	opts := extractor.DefaultArticleOptions()
	if cfg.Extraction.Timeout > 0 {
		opts.Timeout = seconds(cfg.Extraction.Timeout)
	}
	if cfg.Extraction.MaxBytes > 0 {
		opts.MaxBytes = cfg.Extraction.MaxBytes
	}
	if cfg.Extraction.MinChars > 0 {
		opts.MinChars = cfg.Extraction.MinChars
	}
	if cfg.Extraction.MaxChars > 0 {
		opts.MaxChars = cfg.Extraction.MaxChars
	}
	opts.UserAgent = cfg.Network.UserAgent
	opts.BrowserAgent = cfg.Network.BrowserAgent

	switch cfg.Extraction.EnableJS {
	case "always":
		opts.Mode = fetcher.FetchModeJS
	case "auto":
		opts.Mode = fetcher.FetchModeAuto
	}
	if opts.Mode != fetcher.FetchModeStatic {
		opts.WaitForSelector = cfg.Extraction.WaitForSelector
		if cfg.Extraction.JSTimeout > 0 {
			opts.Timeout += seconds(cfg.Extraction.JSTimeout)
		}
	}
	return opts
}

func (e *Extractor) feedOptions() extractor.FeedOptions {
	cfg := e.config
	opts := extractor.DefaultFeedOptions()
	if cfg.Feed.Timeout > 0 {
		opts.Timeout = seconds(cfg.Feed.Timeout)
	}
	if cfg.Feed.MaxBytes > 0 {
		opts.MaxBytes = cfg.Feed.MaxBytes
	}
	if cfg.Feed.MaxItems > 0 {
		opts.MaxItems = cfg.Feed.MaxItems
	}
	if cfg.Extraction.MinChars > 0 {
		opts.MinChars = cfg.Extraction.MinChars
	}
	if cfg.Extraction.MaxChars > 0 {
		opts.MaxChars = cfg.Extraction.MaxChars
	}
	opts.UserAgent = cfg.Network.UserAgent
	opts.BrowserAgent = cfg.Network.BrowserAgent
	return opts
}

// cookieSource returns nil unless browser cookies are enabled.
func (e *Extractor) cookieSource() extractor.CookieSource {
	if !e.config.Browser.Cookies {
		return nil
	}
	return browser.NewCookieExtractor(
		browser.BrowserType(e.config.Browser.Default),
		e.config.Browser.Domains.Include,
		e.config.Browser.Domains.Exclude,
	)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
