// Package scraper extracts article content straight from HTML pages, for
// sources that publish no usable feed and for backfilling truncated feed
// bodies.
package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"ednews/internal/article"
	"ednews/internal/feed"
	"ednews/internal/source"
)

// minParagraphRunes filters nav crumbs and bylines out of the body.
const minParagraphRunes = 20

// Generic body selectors tried in order when the source pins none.
var bodySelectors = []string{
	"article p",
	".article-body p",
	".article-content p",
	".post-content p",
	".entry-content p",
	".content p",
	"main p",
	"#content p",
	"p",
}

var titleSelectors = []string{
	"h1",
	".article-title",
	".headline",
	".entry-title",
	"title",
}

// Boilerplate lines dropped from scraped bodies.
var junkIndicators = []string{
	"cookie", "subscribe", "newsletter", "sign up", "log in",
	"read more", "click here", "follow us", "share this",
	"advertisement", "privacy policy",
}

// Page is the raw extraction result for one URL.
type Page struct {
	Title    string
	Content  string
	ImageURL string
	URL      string
}

// Scraper fetches pages through the shared retrying fetcher and extracts
// article text with a CSS selector ladder.
type Scraper struct {
	fetcher *feed.Fetcher
	log     zerolog.Logger
}

func New(fetcher *feed.Fetcher, log zerolog.Logger) *Scraper {
	return &Scraper{fetcher: fetcher, log: log}
}

// ScrapeSource fetches the source's scrape URL and returns the page as a
// single candidate. The caller classifies and fingerprints downstream.
func (s *Scraper) ScrapeSource(ctx context.Context, src *source.Source) ([]article.Candidate, error) {
	page, err := s.Scrape(ctx, src.FetchURL(), src.Endpoint.BodySelector, src.RequestDelay)
	if err != nil {
		return nil, err
	}

	cand := article.Candidate{
		Title:     page.Title,
		URL:       page.URL,
		Content:   page.Content,
		Excerpt:   excerpt(page.Content),
		Published: time.Now().UTC(),
		Language:  src.Language,
		WordCount: len(strings.Fields(page.Content)),
		ImageURL:  page.ImageURL,
		SourceID:  src.ID,
	}
	cand.Fingerprint = article.Fingerprint(cand.Title, cand.Content)

	return []article.Candidate{cand}, nil
}

// Scrape fetches url and extracts the title and body. bodySelector, when not
// empty, is tried before the generic ladder; requestDelay paces the fetch per
// the source's policy.
func (s *Scraper) Scrape(ctx context.Context, url, bodySelector string, requestDelay time.Duration) (*Page, error) {
	raw, err := s.fetcher.FetchWithDelay(ctx, url, requestDelay)
	if err != nil {
		return nil, err
	}
	return ExtractPage(raw, url, bodySelector)
}

// Backfill replaces a candidate's content with the scraped article body when
// the feed entry carried only a stub. Failures leave the candidate as-is.
func (s *Scraper) Backfill(ctx context.Context, cand *article.Candidate, bodySelector string, requestDelay time.Duration) {
	page, err := s.Scrape(ctx, cand.URL, bodySelector, requestDelay)
	if err != nil {
		s.log.Debug().Err(err).Str("url", cand.URL).Msg("content backfill failed")
		return
	}
	if len(page.Content) <= len(cand.Content) {
		return
	}

	cand.Content = page.Content
	cand.WordCount = len(strings.Fields(page.Content))
	if cand.ImageURL == "" {
		cand.ImageURL = page.ImageURL
	}
	// The fingerprint covers the body; recompute after replacing it.
	cand.Fingerprint = article.Fingerprint(cand.Title, cand.Content)
}

// ExtractPage parses raw HTML and pulls out title, body, and lead image.
func ExtractPage(raw []byte, url, bodySelector string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		return nil, err
	}

	content := extractBody(doc, bodySelector)
	if content == "" {
		return nil, &ExtractError{URL: url}
	}

	return &Page{
		Title:    extractTitle(doc),
		Content:  content,
		ImageURL: extractImage(doc),
		URL:      url,
	}, nil
}

// ExtractError reports a page where no selector produced article text.
type ExtractError struct {
	URL string
}

func (e *ExtractError) Error() string {
	return "scraper: no article content found at " + e.URL
}

func extractBody(doc *goquery.Document, pinned string) string {
	selectors := bodySelectors
	if pinned != "" {
		selectors = append([]string{pinned}, bodySelectors...)
	}

	for _, selector := range selectors {
		var paragraphs []string
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			text := feed.CleanText(sel.Text())
			if len([]rune(text)) < minParagraphRunes || isJunkLine(text) {
				return
			}
			paragraphs = append(paragraphs, text)
		})
		if len(paragraphs) > 0 {
			return strings.Join(paragraphs, "\n\n")
		}
	}
	return ""
}

func extractTitle(doc *goquery.Document) string {
	for _, selector := range titleSelectors {
		if title := feed.CleanText(doc.Find(selector).First().Text()); title != "" {
			return title
		}
	}
	return ""
}

func extractImage(doc *goquery.Document) string {
	if url, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok && url != "" {
		return url
	}
	if url, ok := doc.Find("article img, img").First().Attr("src"); ok {
		return url
	}
	return ""
}

func isJunkLine(text string) bool {
	lower := strings.ToLower(text)
	for _, indicator := range junkIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

func excerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= 300 {
		return content
	}
	return string(runes[:297]) + "..."
}
