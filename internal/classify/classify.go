package classify

import (
	"net/url"
	"strings"
)

// Kind is the extraction strategy a URL is routed to.
type Kind string

const (
	YouTube Kind = "youtube"
	RSS     Kind = "rss"
	Article Kind = "article"
)

type rule struct {
	kind  Kind
	match func(host, path string) bool
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{YouTube, func(host, _ string) bool {
		return strings.Contains(host, "youtube.com") || strings.Contains(host, "youtu.be")
	}},
	{RSS, func(_, path string) bool {
		return strings.Contains(path, "/rss") ||
			strings.Contains(path, "/feed") ||
			strings.HasSuffix(path, ".xml") ||
			strings.HasSuffix(path, ".rss")
	}},
}

// Classify maps a URL to exactly one Kind. Anything no rule claims is an Article.
func Classify(u *url.URL) Kind {
	if u == nil {
		return Article
	}
	host := strings.ToLower(u.Hostname())
	path := strings.ToLower(u.EscapedPath())
	for _, r := range rules {
		if r.match(host, path) {
			return r.kind
		}
	}
	return Article
}
