package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/byteowlz/mapscrape/internal/failure"
)

// VideoMetadata is the subset of the oEmbed response we use.
type VideoMetadata struct {
	Title  string `json:"title"`
	Author string `json:"author_name"`
}

// OEmbedClient looks up video title and channel via the oEmbed endpoint.
type OEmbedClient struct {
	BaseURL string
	Timeout time.Duration
	client  *http.Client
}

// NewOEmbedClient creates an oEmbed client. A zero timeout defaults to 10s.
func NewOEmbedClient(client *http.Client, timeout time.Duration) *OEmbedClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{}
	}
	return &OEmbedClient{
		BaseURL: DefaultBaseURL + "/oembed",
		Timeout: timeout,
		client:  client,
	}
}

// Metadata fetches oEmbed metadata for videoURL.
func (o *OEmbedClient) Metadata(ctx context.Context, videoURL string) (*VideoMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	endpoint := strings.TrimRight(o.BaseURL, "/") + "?url=" + url.QueryEscape(videoURL) + "&format=json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("oembed: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, failure.Wrap(failure.FetchFailed, err, "oembed: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, failure.Newf(failure.FetchFailed, "oembed: HTTP %d", resp.StatusCode)
	}

	var meta VideoMetadata
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&meta); err != nil {
		return nil, fmt.Errorf("oembed: failed to parse response: %w", err)
	}
	meta.Title = strings.TrimSpace(meta.Title)
	meta.Author = strings.TrimSpace(meta.Author)
	return &meta, nil
}
