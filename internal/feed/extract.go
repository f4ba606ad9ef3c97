package feed

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"ednews/internal/article"
	"ednews/internal/source"
)

const excerptMaxRunes = 300

var whitespaceRe = regexp.MustCompile(`\s+`)

// Ordered formats tried against string date fields before giving up.
var dateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2 Jan 2006 15:04:05",
	time.RFC822Z,
	time.RFC822,
	"2006-01-02",
}

// Extractor turns raw feed bytes into candidate articles.
type Extractor struct {
	parser *gofeed.Parser
	log    zerolog.Logger
}

func NewExtractor(log zerolog.Logger) *Extractor {
	return &Extractor{
		parser: gofeed.NewParser(),
		log:    log,
	}
}

// Extract parses raw feed bytes and extracts up to maxItems candidates. A
// single entry failing extraction is logged and skipped; entries without a
// title or link are dropped silently. Malformed-but-parseable feeds are a
// warning, not a failure.
func (e *Extractor) Extract(raw []byte, src *source.Source, maxItems int) ([]article.Candidate, error) {
	parsed, err := e.parser.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	items := parsed.Items
	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}

	candidates := make([]article.Candidate, 0, len(items))
	for _, item := range items {
		cand, ok, err := e.safeExtract(item, src)
		if err != nil {
			e.log.Warn().Err(err).Str("source", src.ID).Msg("entry extraction failed, skipping")
			continue
		}
		if !ok {
			continue
		}
		candidates = append(candidates, cand)
	}

	return candidates, nil
}

// safeExtract confines a single entry's failure to that entry.
func (e *Extractor) safeExtract(item *gofeed.Item, src *source.Source) (cand article.Candidate, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("entry extraction panic: %v", r)
		}
	}()
	cand, ok = e.extractItem(item, src)
	return cand, ok, nil
}

func (e *Extractor) extractItem(item *gofeed.Item, src *source.Source) (article.Candidate, bool) {
	title := CleanText(item.Title)
	if title == "" {
		return article.Candidate{}, false
	}
	url := strings.TrimSpace(item.Link)
	if url == "" {
		return article.Candidate{}, false
	}

	body := extractBody(item)
	excerpt := extractExcerpt(item)
	published := extractDate(item)

	wordCount := 0
	if body != "" {
		wordCount = len(strings.Fields(body))
	}

	cand := article.Candidate{
		Title:     title,
		URL:       url,
		Content:   body,
		Excerpt:   excerpt,
		Author:    extractAuthor(item),
		Category:  extractCategory(item),
		Published: published,
		Language:  src.Language,
		WordCount: wordCount,
		ImageURL:  extractImage(item),
		SourceID:  src.ID,
		Metadata: map[string]any{
			"entry_id": item.GUID,
			"raw_tags": item.Categories,
		},
	}
	cand.Fingerprint = article.Fingerprint(cand.Title, cand.Content)

	return cand, true
}

// extractBody prefers the richest available field: full content first, then
// the summary/description the feed provides.
func extractBody(item *gofeed.Item) string {
	for _, raw := range []string{item.Content, item.Description} {
		if strings.TrimSpace(raw) != "" {
			return CleanHTML(raw)
		}
	}
	return ""
}

func extractExcerpt(item *gofeed.Item) string {
	excerpt := CleanHTML(item.Description)
	if excerpt == "" {
		return ""
	}

	runes := []rune(excerpt)
	if len(runes) > excerptMaxRunes {
		excerpt = string(runes[:excerptMaxRunes-3]) + "..."
	}
	return excerpt
}

func extractAuthor(item *gofeed.Item) string {
	people := item.Authors
	if len(people) == 0 && item.Author != nil {
		people = []*gofeed.Person{item.Author}
	}
	for _, person := range people {
		if person == nil {
			continue
		}
		if name := CleanText(person.Name); name != "" {
			return name
		}
		if email := CleanText(person.Email); email != "" {
			return email
		}
	}
	return ""
}

// extractCategory guesses editorial vs opinion from feed tags. Empty when
// the tags carry no evidence; the classifier then falls back to title and
// URL heuristics.
func extractCategory(item *gofeed.Item) string {
	for _, tag := range item.Categories {
		lower := strings.ToLower(tag)
		if strings.Contains(lower, "opinion") {
			return "opinion"
		}
		if strings.Contains(lower, "editorial") {
			return "editorial"
		}
		if strings.Contains(lower, "comment") {
			return "comment"
		}
	}
	return ""
}

// extractDate walks structured fields, then string fields against the format
// list. Absent or unparseable dates fall back to the current UTC time.
func extractDate(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}

	for _, raw := range []string{item.Published, item.Updated} {
		if raw == "" {
			continue
		}
		if t, ok := parseDateString(raw); ok {
			return t
		}
	}

	return time.Now().UTC()
}

func parseDateString(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, format := range dateFormats {
		if t, err := time.Parse(format, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// extractImage prefers structured media entries, then image enclosures, then
// the first <img> inside the body HTML.
func extractImage(item *gofeed.Item) string {
	if media, ok := item.Extensions["media"]; ok {
		for _, key := range []string{"content", "thumbnail"} {
			for _, ext := range media[key] {
				typ := ext.Attrs["type"]
				url := ext.Attrs["url"]
				if url == "" {
					continue
				}
				// Thumbnails carry no type attribute; trust them.
				if key == "thumbnail" || strings.HasPrefix(typ, "image/") {
					return url
				}
			}
		}
	}

	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}

	for _, raw := range []string{item.Content, item.Description} {
		if raw == "" {
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
		if err != nil {
			continue
		}
		if src, ok := doc.Find("img").First().Attr("src"); ok && src != "" {
			return src
		}
	}

	return ""
}

// CleanHTML strips markup from an HTML fragment and normalizes the text.
func CleanHTML(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return CleanText(raw)
	}
	doc.Find("script,style").Remove()

	return CleanText(doc.Text())
}

// CleanText decodes HTML entities and collapses whitespace.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = html.UnescapeString(text)
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
