package extractor

import (
	"context"
	"net/http"
	"net/url"

	"github.com/byteowlz/mapscrape/internal/fetcher"
	"github.com/byteowlz/mapscrape/internal/youtube"
)

// SourceType tells downstream consumers which strategy produced a Result.
type SourceType string

const (
	SourceYouTube SourceType = "youtube"
	SourceArticle SourceType = "article"
	SourcePodcast SourceType = "podcast"
)

// Metadata holds optional descriptive fields. Empty fields are omitted.
type Metadata struct {
	Author      string `json:"author,omitempty" yaml:"author,omitempty"`
	SiteName    string `json:"siteName,omitempty" yaml:"siteName,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// IsEmpty reports whether no metadata field is set.
func (m Metadata) IsEmpty() bool {
	return m.Author == "" && m.SiteName == "" && m.Description == ""
}

// Result is the normalized output of every strategy.
type Result struct {
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
	// ContentLength counts the characters of the content before truncation.
	ContentLength int        `json:"contentLength" yaml:"contentLength"`
	SourceType    SourceType `json:"sourceType" yaml:"sourceType"`
	SourceURL     string     `json:"sourceUrl" yaml:"sourceUrl"`
	Metadata      Metadata   `json:"metadata" yaml:"metadata"`
}

// Strategy extracts content from one class of URL.
type Strategy interface {
	// Name returns the unique identifier for this strategy
	Name() string

	// Extract fetches the URL and normalizes what it finds into a Result
	Extract(ctx context.Context, u *url.URL) (*Result, error)
}

// Fetcher retrieves a document over HTTP.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts fetcher.FetchOptions) (*fetcher.FetchResult, error)
}

// TranscriptProvider returns the caption segments of a video.
type TranscriptProvider interface {
	Transcript(ctx context.Context, videoID string) ([]youtube.Segment, error)
}

// MetadataProvider looks up title and author of a video.
type MetadataProvider interface {
	Metadata(ctx context.Context, videoURL string) (*youtube.VideoMetadata, error)
}

// CookieSource supplies cookies to send with an article request.
type CookieSource interface {
	CookiesFor(ctx context.Context, targetURL string) ([]*http.Cookie, error)
}

// Verify implementations at compile time
var (
	_ Strategy = (*YouTubeStrategy)(nil)
	_ Strategy = (*ArticleStrategy)(nil)
	_ Strategy = (*FeedStrategy)(nil)

	_ Fetcher            = (*fetcher.ContentFetcher)(nil)
	_ TranscriptProvider = (*youtube.TranscriptClient)(nil)
	_ MetadataProvider   = (*youtube.OEmbedClient)(nil)
)
