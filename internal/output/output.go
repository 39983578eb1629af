// Package output renders extraction results for the terminal and for files.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/byteowlz/mapscrape/internal/extractor"
	"github.com/byteowlz/mapscrape/internal/processor"
)

type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// ParseFormat maps a user supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown output format %q (want json, yaml, text or markdown)", s)
}

type Options struct {
	Format Format
	// LineWidth wraps text output; 0 disables wrapping.
	LineWidth       int
	IncludeMetadata bool
}

type Writer struct {
	processor *processor.ContentProcessor
	opts      Options
}

func NewWriter(opts Options) *Writer {
	return &Writer{
		processor: processor.NewContentProcessor(),
		opts:      opts,
	}
}

// Write renders res to w in the configured format.
func (wr *Writer) Write(w io.Writer, res *extractor.Result) error {
	switch wr.opts.Format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatText:
		_, err := io.WriteString(w, wr.ToText(res))
		return err
	case FormatMarkdown:
		_, err := io.WriteString(w, wr.ToMarkdown(res))
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	}
}

func (wr *Writer) ToText(res *extractor.Result) string {
	var b strings.Builder
	b.WriteString(res.Title)
	b.WriteString("\n")
	if wr.opts.IncludeMetadata {
		for _, line := range metadataLines(res) {
			fmt.Fprintf(&b, "%s: %s\n", line.key, line.value)
		}
	}
	b.WriteString("\n")
	b.WriteString(wr.processor.WrapText(wr.processor.CleanNewlines(res.Content), wr.opts.LineWidth))
	b.WriteString("\n")
	return b.String()
}

func (wr *Writer) ToMarkdown(res *extractor.Result) string {
	var md strings.Builder

	md.WriteString(fmt.Sprintf("# %s\n\n", res.Title))

	if wr.opts.IncludeMetadata {
		for _, line := range metadataLines(res) {
			md.WriteString(fmt.Sprintf("**%s:** %s\n\n", line.key, line.value))
		}
	}

	md.WriteString(wr.processor.CleanNewlines(res.Content))
	md.WriteString("\n")
	return md.String()
}

type metaLine struct {
	key, value string
}

// metadataLines lists the descriptive fields that are present, in a fixed order.
func metadataLines(res *extractor.Result) []metaLine {
	lines := []metaLine{
		{"Source", res.SourceURL},
		{"Type", string(res.SourceType)},
	}
	if res.Metadata.Author != "" {
		lines = append(lines, metaLine{"Author", res.Metadata.Author})
	}
	if res.Metadata.SiteName != "" {
		lines = append(lines, metaLine{"Site", res.Metadata.SiteName})
	}
	if res.Metadata.Description != "" {
		lines = append(lines, metaLine{"Summary", res.Metadata.Description})
	}
	return lines
}

// Extension returns the file extension used for a format.
func Extension(f Format) string {
	switch f {
	case FormatYAML:
		return ".yaml"
	case FormatText:
		return ".txt"
	case FormatMarkdown:
		return ".md"
	}
	return ".json"
}

// Filename derives a file name from a URL for directory output.
func Filename(rawURL string, f Format) string {
	// Strip protocol
	name := rawURL
	name = strings.TrimPrefix(name, "https://")
	name = strings.TrimPrefix(name, "http://")

	// Replace unsafe chars
	replacer := strings.NewReplacer(
		"/", "_",
		"?", "_",
		"&", "_",
		"=", "_",
		":", "_",
		"#", "_",
		"%", "_",
	)
	name = replacer.Replace(name)

	// Trim trailing underscores
	name = strings.TrimRight(name, "_")

	// Truncate if too long
	if len(name) > 200 {
		name = name[:200]
	}

	return name + Extension(f)
}
