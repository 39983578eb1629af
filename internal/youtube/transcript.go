// Package youtube fetches caption transcripts and oEmbed metadata for
// YouTube videos.
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/byteowlz/mapscrape/internal/failure"
)

const (
	DefaultBaseURL = "https://www.youtube.com"

	playerResponseMarker = "ytInitialPlayerResponse = "
	maxWatchPageBytes    = 6 * 1024 * 1024
	maxTimedTextBytes    = 2 * 1024 * 1024
)

// Segment is one timed caption line.
type Segment struct {
	Text     string
	Start    time.Duration
	Duration time.Duration
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

type playerResponse struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

// timedText covers both the legacy format (<transcript><text start dur>) and
// format 3 (<timedtext><body><p t d>).
type timedText struct {
	Lines []struct {
		Text  string  `xml:",chardata"`
		Start float64 `xml:"start,attr"`
		Dur   float64 `xml:"dur,attr"`
	} `xml:"text"`
	Paragraphs []struct {
		Text string `xml:",chardata"`
		T    int64  `xml:"t,attr"`
		D    int64  `xml:"d,attr"`
		Runs []struct {
			Text string `xml:",chardata"`
		} `xml:"s"`
	} `xml:"body>p"`
}

// TranscriptClient scrapes caption tracks from the public watch page.
type TranscriptClient struct {
	BaseURL   string
	Languages []string
	UserAgent string
	// Timeout bounds a whole Transcript call. Zero means no limit.
	Timeout time.Duration
	client  *http.Client
}

func NewTranscriptClient(client *http.Client, languages []string, userAgent string) *TranscriptClient {
	if client == nil {
		client = &http.Client{}
	}
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	return &TranscriptClient{
		BaseURL:   DefaultBaseURL,
		Languages: languages,
		UserAgent: userAgent,
		Timeout:   25 * time.Second,
		client:    client,
	}
}

// Transcript returns the caption segments of a video in playback order.
// A video without caption tracks yields no segments and no error.
func (tc *TranscriptClient) Transcript(ctx context.Context, videoID string) ([]Segment, error) {
	if tc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tc.Timeout)
		defer cancel()
	}

	watchURL := strings.TrimRight(tc.BaseURL, "/") + "/watch?" + url.Values{"v": {videoID}}.Encode()
	page, err := tc.get(ctx, watchURL, maxWatchPageBytes)
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}

	player, err := decodePlayerResponse(page)
	if err != nil {
		return nil, failure.Wrap(failure.ExtractionFailed, err, "could not read player response")
	}
	if player.Captions == nil || len(player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks) == 0 {
		if player.PlayabilityStatus != nil && player.PlayabilityStatus.Reason != "" {
			log.Debug().Str("video", videoID).Str("reason", player.PlayabilityStatus.Reason).Msg("no captions")
		}
		return nil, nil
	}

	track := pickBestTrack(player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks, tc.Languages)
	log.Debug().Str("video", videoID).Str("lang", track.LanguageCode).Str("kind", track.Kind).Msg("caption track selected")

	body, err := tc.get(ctx, track.BaseURL, maxTimedTextBytes)
	if err != nil {
		return nil, fmt.Errorf("timedtext: %w", err)
	}
	return parseTimedText(body)
}

func (tc *TranscriptClient) get(ctx context.Context, target string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, failure.Wrap(failure.FetchFailed, err, "failed to create request")
	}
	if tc.UserAgent != "" {
		req.Header.Set("User-Agent", tc.UserAgent)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := tc.client.Do(req)
	if err != nil {
		return nil, failure.Wrap(failure.FetchFailed, err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, failure.Newf(failure.FetchFailed, "HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, failure.Wrap(failure.FetchFailed, err, "failed to read response")
	}
	return body, nil
}

// decodePlayerResponse decodes the first JSON value after the marker. The
// decoder stops at the end of the object, so trailing script text is ignored.
func decodePlayerResponse(page []byte) (*playerResponse, error) {
	idx := bytes.Index(page, []byte(playerResponseMarker))
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	var player playerResponse
	dec := json.NewDecoder(bytes.NewReader(page[idx+len(playerResponseMarker):]))
	if err := dec.Decode(&player); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return &player, nil
}

// pickBestTrack prefers a manual track in a preferred language, then an
// auto-generated one, then any English track, then the first track.
func pickBestTrack(tracks []captionTrack, langs []string) captionTrack {
	for _, lang := range langs {
		for _, t := range tracks {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t
			}
		}
	}
	for _, lang := range langs {
		for _, t := range tracks {
			if t.LanguageCode == lang {
				return t
			}
		}
	}
	for _, t := range tracks {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t
		}
	}
	return tracks[0]
}

func parseTimedText(body []byte) ([]Segment, error) {
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, failure.Wrap(failure.ExtractionFailed, err, "failed to parse timedtext XML")
	}

	var segments []Segment
	for _, line := range tt.Lines {
		if text := cleanCaption(line.Text); text != "" {
			segments = append(segments, Segment{
				Text:     text,
				Start:    seconds(line.Start),
				Duration: seconds(line.Dur),
			})
		}
	}
	for _, p := range tt.Paragraphs {
		raw := p.Text
		if len(p.Runs) > 0 {
			parts := make([]string, 0, len(p.Runs))
			for _, r := range p.Runs {
				parts = append(parts, r.Text)
			}
			raw = strings.Join(parts, "")
		}
		if text := cleanCaption(raw); text != "" {
			segments = append(segments, Segment{
				Text:     text,
				Start:    time.Duration(p.T) * time.Millisecond,
				Duration: time.Duration(p.D) * time.Millisecond,
			})
		}
	}
	return segments, nil
}

// cleanCaption undoes the double escaping in caption text and collapses
// embedded newlines.
func cleanCaption(s string) string {
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
