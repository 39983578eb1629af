package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/byteowlz/mapscrape/internal/extractor"
)

func sampleResult() *extractor.Result {
	return &extractor.Result{
		Title:         "The Fall of Constantinople",
		Content:       "In the spring of 1453 the Ottoman army laid siege to the city.",
		ContentLength: 62,
		SourceType:    extractor.SourceArticle,
		SourceURL:     "https://history.example.com/constantinople?src=rss&id=7",
		Metadata: extractor.Metadata{
			Author:   "Jane Historian",
			SiteName: "History Weekly",
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"":         FormatJSON,
		"JSON":     FormatJSON,
		"yml":      FormatYAML,
		"text":     FormatText,
		"md":       FormatMarkdown,
		"markdown": FormatMarkdown,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWrite_JSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter(Options{Format: FormatJSON}).Write(&buf, sampleResult()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"title", "content", "contentLength", "sourceType", "sourceUrl", "metadata"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q in %s", key, buf.String())
		}
	}
	meta := decoded["metadata"].(map[string]interface{})
	if _, ok := meta["description"]; ok {
		t.Error("absent description should be omitted")
	}
	if meta["author"] != "Jane Historian" || meta["siteName"] != "History Weekly" {
		t.Errorf("unexpected metadata %v", meta)
	}
	if !strings.Contains(buf.String(), "src=rss&id=7") {
		t.Error("JSON output should not escape HTML characters")
	}
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter(Options{Format: FormatYAML}).Write(&buf, sampleResult()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	var decoded struct {
		Title      string `yaml:"title"`
		SourceType string `yaml:"sourceType"`
		Metadata   struct {
			Author string `yaml:"author"`
		} `yaml:"metadata"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if decoded.Title != "The Fall of Constantinople" || decoded.SourceType != "article" || decoded.Metadata.Author != "Jane Historian" {
		t.Errorf("unexpected YAML %s", buf.String())
	}
}

func TestToMarkdown_MetadataOnlyWhenPresent(t *testing.T) {
	md := NewWriter(Options{Format: FormatMarkdown, IncludeMetadata: true}).ToMarkdown(sampleResult())
	if !strings.HasPrefix(md, "# The Fall of Constantinople\n\n") {
		t.Errorf("missing title header: %q", md)
	}
	if !strings.Contains(md, "**Author:** Jane Historian") || !strings.Contains(md, "**Site:** History Weekly") {
		t.Errorf("missing metadata lines: %q", md)
	}
	if strings.Contains(md, "**Summary:**") {
		t.Error("summary line should be omitted without a description")
	}

	plain := NewWriter(Options{Format: FormatMarkdown}).ToMarkdown(sampleResult())
	if strings.Contains(plain, "**Author:**") {
		t.Error("metadata lines should be omitted when disabled")
	}
}

func TestToText_Wraps(t *testing.T) {
	text := NewWriter(Options{Format: FormatText, LineWidth: 20}).ToText(sampleResult())
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for _, line := range lines[1:] {
		if len(line) > 20 {
			t.Errorf("line exceeds width: %q", line)
		}
	}
	if lines[0] != "The Fall of Constantinople" {
		t.Errorf("first line should be the title, got %q", lines[0])
	}
}

func TestFilename(t *testing.T) {
	got := Filename("https://history.example.com/constantinople?src=rss&id=7", FormatMarkdown)
	if got != "history.example.com_constantinople_src_rss_id_7.md" {
		t.Errorf("unexpected filename %q", got)
	}
	if got := Filename("http://example.com/", FormatJSON); got != "example.com.json" {
		t.Errorf("unexpected filename %q", got)
	}
	long := "https://example.com/" + strings.Repeat("a", 300)
	if got := Filename(long, FormatText); len(got) != 200+len(".txt") {
		t.Errorf("expected truncated filename, got length %d", len(got))
	}
}
