package extractor

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/byteowlz/mapscrape/internal/failure"
	"github.com/byteowlz/mapscrape/internal/processor"
	"github.com/byteowlz/mapscrape/internal/youtube"
)

const DefaultMetadataTimeout = 10 * time.Second

// YouTubeStrategy turns a video's captions into content.
type YouTubeStrategy struct {
	Transcripts     TranscriptProvider
	Meta            MetadataProvider
	MaxChars        int
	MetadataTimeout time.Duration
}

func NewYouTubeStrategy(transcripts TranscriptProvider, meta MetadataProvider, maxChars int) *YouTubeStrategy {
	return &YouTubeStrategy{
		Transcripts:     transcripts,
		Meta:            meta,
		MaxChars:        maxChars,
		MetadataTimeout: DefaultMetadataTimeout,
	}
}

func (s *YouTubeStrategy) Name() string {
	return "youtube"
}

// Extract fetches the transcript and the oEmbed metadata concurrently. A
// metadata failure only drops the metadata; a transcript failure or an empty
// transcript fails the extraction.
func (s *YouTubeStrategy) Extract(ctx context.Context, u *url.URL) (*Result, error) {
	videoID := youtube.VideoID(u)
	if videoID == "" {
		return nil, failure.New(failure.ExtractionFailed, "Could not extract YouTube video ID from URL")
	}

	var (
		wg       sync.WaitGroup
		segments []youtube.Segment
		segErr   error
		meta     *youtube.VideoMetadata
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		segments, segErr = s.Transcripts.Transcript(ctx, videoID)
	}()
	go func() {
		defer wg.Done()
		meta = s.fetchMetadata(ctx, u.String())
	}()
	wg.Wait()

	if segErr != nil {
		if _, ok := failure.KindOf(segErr); !ok {
			segErr = failure.Wrap(failure.FetchFailed, segErr, "failed to fetch transcript")
		}
		return nil, segErr
	}
	if len(segments) == 0 {
		return nil, failure.New(failure.ExtractionFailed, "No captions available for this YouTube video")
	}

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}
	content := strings.Join(texts, " ")

	result := &Result{
		Title:         "YouTube Video " + videoID,
		Content:       processor.Truncate(content, s.MaxChars),
		ContentLength: utf8.RuneCountInString(content),
		SourceType:    SourceYouTube,
		SourceURL:     u.String(),
	}
	if meta != nil {
		if meta.Title != "" {
			result.Title = meta.Title
		}
		result.Metadata.Author = meta.Author
	}
	return result, nil
}

// fetchMetadata never fails; any error yields nil metadata.
func (s *YouTubeStrategy) fetchMetadata(ctx context.Context, videoURL string) *youtube.VideoMetadata {
	if s.Meta == nil {
		return nil
	}
	timeout := s.MetadataTimeout
	if timeout <= 0 {
		timeout = DefaultMetadataTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	meta, err := s.Meta.Metadata(ctx, videoURL)
	if err != nil {
		log.Debug().Err(err).Str("url", videoURL).Msg("video metadata unavailable")
		return nil
	}
	return meta
}
