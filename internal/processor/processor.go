package processor

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

type ProcessedContent struct {
	Title       string
	TextContent string
	Byline      string
	SiteName    string
	Excerpt     string
	// Length is the number of characters in TextContent.
	Length int
}

type ContentProcessor struct {
}

func NewContentProcessor() *ContentProcessor {
	return &ContentProcessor{}
}

// Process runs readability over an HTML document and returns the main
// content as trimmed plain text together with the page metadata it found.
func (cp *ContentProcessor) Process(html string, pageURL *url.URL) (*ProcessedContent, error) {
	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to process with readability: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	return &ProcessedContent{
		Title:       strings.TrimSpace(article.Title),
		TextContent: text,
		Byline:      strings.TrimSpace(article.Byline),
		SiteName:    strings.TrimSpace(article.SiteName),
		Excerpt:     strings.TrimSpace(article.Excerpt),
		Length:      utf8.RuneCountInString(text),
	}, nil
}

// StripHTML reduces an HTML fragment to its text content. Input that is
// already plain text comes back trimmed but otherwise unchanged.
func (cp *ContentProcessor) StripHTML(fragment string) string {
	if !strings.Contains(fragment, "<") && !strings.Contains(fragment, "&") {
		return strings.TrimSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	doc.Find("script, style, noscript").Remove()
	return strings.TrimSpace(doc.Text())
}

// CleanNewlines removes unwanted newlines that break up sentences
func (cp *ContentProcessor) CleanNewlines(text string) string {
	// Paragraph breaks (double newlines) and lines that start a new sentence
	// or bullet are preserved.
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	paragraphs := strings.Split(text, "\n\n")

	var cleanedParagraphs []string
	for _, paragraph := range paragraphs {
		lines := strings.Split(paragraph, "\n")
		var cleanedLines []string

		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			if len(cleanedLines) > 0 {
				prevLine := cleanedLines[len(cleanedLines)-1]

				endsWithPunctuation := strings.HasSuffix(prevLine, ".") ||
					strings.HasSuffix(prevLine, "!") ||
					strings.HasSuffix(prevLine, "?") ||
					strings.HasSuffix(prevLine, ":") ||
					strings.HasSuffix(prevLine, ";")

				startsNewSentence := line[0] >= 'A' && line[0] <= 'Z' ||
					line[0] >= '0' && line[0] <= '9' ||
					line[0] == '#' ||
					strings.HasPrefix(line, "- ") ||
					strings.HasPrefix(line, "* ") ||
					strings.HasPrefix(line, "• ")

				if !endsWithPunctuation && !startsNewSentence {
					cleanedLines[len(cleanedLines)-1] = prevLine + " " + line
					continue
				}
			}

			cleanedLines = append(cleanedLines, line)
		}

		if len(cleanedLines) > 0 {
			cleanedParagraphs = append(cleanedParagraphs, strings.Join(cleanedLines, "\n"))
		}
	}

	result := strings.Join(cleanedParagraphs, "\n\n")

	for strings.Contains(result, "  ") {
		result = strings.ReplaceAll(result, "  ", " ")
	}

	return strings.TrimSpace(result)
}

// WrapText wraps each paragraph to lineWidth columns. A width of zero or less
// disables wrapping.
func (cp *ContentProcessor) WrapText(text string, lineWidth int) string {
	if lineWidth <= 0 {
		return text
	}

	var result strings.Builder
	paragraphs := strings.Split(text, "\n\n")

	for i, paragraph := range paragraphs {
		if i > 0 {
			result.WriteString("\n\n")
		}

		words := strings.Fields(paragraph)
		if len(words) == 0 {
			continue
		}

		currentLine := words[0]
		for _, word := range words[1:] {
			if utf8.RuneCountInString(currentLine)+1+utf8.RuneCountInString(word) <= lineWidth {
				currentLine += " " + word
			} else {
				result.WriteString(currentLine + "\n")
				currentLine = word
			}
		}
		result.WriteString(currentLine)
	}

	return result.String()
}
