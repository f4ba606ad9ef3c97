package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ednews/internal/source"
)

func testSource() *source.Source {
	return &source.Source{
		ID:       "src-1",
		Kind:     source.KindFeed,
		Language: "en",
		Active:   true,
	}
}

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Test Paper Opinion</title>
  <item>
    <title>Opinion: First &amp; Foremost</title>
    <link>https://example.com/opinion/first</link>
    <description><![CDATA[<p>A <b>bold</b> claim about policy.</p>]]></description>
    <author>jane@example.com (Jane Writer)</author>
    <category>Opinion</category>
    <pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate>
    <enclosure url="https://example.com/img.jpg" type="image/jpeg" length="1000"/>
  </item>
  <item>
    <title>Editorial on Trade</title>
    <link>https://example.com/editorial/trade</link>
    <description>Short take.</description>
  </item>
  <item>
    <link>https://example.com/untitled</link>
    <description>No title here.</description>
  </item>
  <item>
    <title>No link entry</title>
    <description>Dropped too.</description>
  </item>
</channel>
</rss>`

func TestExtractBasicFields(t *testing.T) {
	e := NewExtractor(zerolog.Nop())

	cands, err := e.Extract([]byte(sampleFeed), testSource(), 0)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2 (title-less and link-less entries dropped)", len(cands))
	}

	first := cands[0]
	if first.Title != "Opinion: First & Foremost" {
		t.Errorf("title = %q (entities not decoded?)", first.Title)
	}
	if first.Content != "A bold claim about policy." {
		t.Errorf("content = %q (HTML not stripped?)", first.Content)
	}
	if first.Author != "Jane Writer" {
		t.Errorf("author = %q", first.Author)
	}
	if first.Category != "opinion" {
		t.Errorf("category = %q, want opinion", first.Category)
	}
	if first.ImageURL != "https://example.com/img.jpg" {
		t.Errorf("image = %q", first.ImageURL)
	}
	if first.WordCount != 5 {
		t.Errorf("word count = %d, want 5", first.WordCount)
	}
	if first.Fingerprint == "" {
		t.Error("fingerprint not computed")
	}
	if first.SourceID != "src-1" || first.Language != "en" {
		t.Errorf("source fields not propagated: %+v", first)
	}

	want := time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC)
	if !first.Published.Equal(want) {
		t.Errorf("published = %v, want %v", first.Published, want)
	}
}

func TestExtractMissingDateDefaultsToNow(t *testing.T) {
	e := NewExtractor(zerolog.Nop())

	cands, err := e.Extract([]byte(sampleFeed), testSource(), 0)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	second := cands[1]
	if d := time.Since(second.Published); d < 0 || d > 10*time.Second {
		t.Errorf("dateless entry published = %v, want roughly now UTC", second.Published)
	}
}

func TestExtractMaxItems(t *testing.T) {
	e := NewExtractor(zerolog.Nop())

	cands, err := e.Extract([]byte(sampleFeed), testSource(), 1)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(cands) != 1 {
		t.Errorf("got %d candidates with maxItems=1, want 1", len(cands))
	}
}

func TestExtractMalformedFeed(t *testing.T) {
	e := NewExtractor(zerolog.Nop())

	if _, err := e.Extract([]byte("this is not xml at all"), testSource(), 0); err == nil {
		t.Error("expected error for unparseable payload")
	}
}

func TestExtractExcerptCap(t *testing.T) {
	long := strings.Repeat("word ", 100) // 500 chars
	feed := `<?xml version="1.0"?><rss version="2.0"><channel><item>
<title>Long one</title><link>https://example.com/long</link>
<description>` + long + `</description>
</item></channel></rss>`

	e := NewExtractor(zerolog.Nop())
	cands, err := e.Extract([]byte(feed), testSource(), 0)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("got %d candidates", len(cands))
	}

	excerpt := cands[0].Excerpt
	if len([]rune(excerpt)) > 300 {
		t.Errorf("excerpt length = %d runes, want <= 300", len([]rune(excerpt)))
	}
	if !strings.HasSuffix(excerpt, "...") {
		t.Errorf("truncated excerpt missing marker: %q", excerpt)
	}
}

func TestExtractImageFromBodyHTML(t *testing.T) {
	feed := `<?xml version="1.0"?><rss version="2.0"><channel><item>
<title>Pictured</title><link>https://example.com/pic</link>
<description><![CDATA[<p>Text</p><img src="https://example.com/inline.png"/>]]></description>
</item></channel></rss>`

	e := NewExtractor(zerolog.Nop())
	cands, err := e.Extract([]byte(feed), testSource(), 0)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if cands[0].ImageURL != "https://example.com/inline.png" {
		t.Errorf("image = %q, want inline img src", cands[0].ImageURL)
	}
}

func TestExtractAuthorVariants(t *testing.T) {
	feed := `<?xml version="1.0"?><rss version="2.0"><channel>
<item><title>Named</title><link>https://example.com/a</link>
<author>desk@example.com (Opinion Desk)</author></item>
<item><title>Email only</title><link>https://example.com/b</link>
<author>desk@example.com</author></item>
<item><title>Anonymous</title><link>https://example.com/c</link></item>
</channel></rss>`

	e := NewExtractor(zerolog.Nop())
	cands, err := e.Extract([]byte(feed), testSource(), 0)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(cands) != 3 {
		t.Fatalf("got %d candidates, want 3", len(cands))
	}

	if cands[0].Author != "Opinion Desk" {
		t.Errorf("named author = %q", cands[0].Author)
	}
	if cands[1].Author != "desk@example.com" {
		t.Errorf("email-only author = %q, want email fallback", cands[1].Author)
	}
	if cands[2].Author != "" {
		t.Errorf("authorless entry author = %q, want empty", cands[2].Author)
	}
}

func TestCleanText(t *testing.T) {
	got := CleanText("  Fish &amp; Chips \n\t twice  ")
	if got != "Fish & Chips twice" {
		t.Errorf("CleanText = %q", got)
	}
}

func TestParseDateStringFormats(t *testing.T) {
	cases := []string{
		"Mon, 02 Jan 2006 15:04:05 -0700",
		"Mon, 02 Jan 2006 15:04:05 MST",
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, raw := range cases {
		if _, ok := parseDateString(raw); !ok {
			t.Errorf("parseDateString(%q) failed", raw)
		}
	}
	if _, ok := parseDateString("not a date"); ok {
		t.Error("parseDateString accepted garbage")
	}
}
