package fetcher

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// appShellSelectors match the mount points of common client-side frameworks.
const appShellSelectors = "#root, #app, #__next, #__nuxt, [data-reactroot], [ng-app], [ng-version], [data-v-app], [v-app]"

// shellTextChars is the visible text below which a page with a framework
// mount point or heavy scripting is treated as unrendered.
const shellTextChars = 1000

// needsJSRendering reports whether a statically fetched page looks like an
// application shell whose content only appears once scripts run.
func needsJSRendering(body []byte) bool {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}

	scripts := doc.Find("script").Length()
	doc.Find("script, style, noscript, template").Remove()
	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	chars := utf8.RuneCountInString(text)

	switch {
	case chars == 0:
		return scripts > 0
	case chars < shellTextChars && doc.Find(appShellSelectors).Length() > 0:
		return true
	case chars < 200 && strings.Contains(strings.ToLower(text), "loading"):
		return true
	case scripts > 5 && chars < shellTextChars:
		return true
	}
	return false
}
