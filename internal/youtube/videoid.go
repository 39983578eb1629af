package youtube

import (
	"net/url"
	"strings"
)

// pathPrefixes on youtube.com hosts carry the video ID as the next segment.
var pathPrefixes = []string{"/shorts/", "/embed/", "/live/"}

// VideoID returns the video ID encoded in a YouTube URL, or "" when there is none.
// Short links (youtu.be) carry it as the first path segment; watch URLs in the
// v query parameter.
func VideoID(u *url.URL) string {
	if u == nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())

	if strings.Contains(host, "youtu.be") {
		return firstSegment(strings.TrimPrefix(u.Path, "/"))
	}

	if v := u.Query().Get("v"); v != "" {
		return v
	}
	for _, prefix := range pathPrefixes {
		if strings.HasPrefix(u.Path, prefix) {
			return firstSegment(strings.TrimPrefix(u.Path, prefix))
		}
	}
	return ""
}

func firstSegment(p string) string {
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return p
}
