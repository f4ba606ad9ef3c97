// Package classify decides whether a candidate article is in-scope
// editorial/opinion content. Per-source include/exclude keyword filters are
// authoritative overrides; generic keyword and URL heuristics are the
// fallback for sources without curated filters.
package classify

import (
	"strings"

	"ednews/internal/article"
	"ednews/internal/source"
)

// Title prefixes that explicitly label a piece. Checked in order; the
// opinion-flavored ones set the opinion flag.
var labeledPrefixes = []struct {
	marker  string
	opinion bool
}{
	{"opinion:", true},
	{"opinion -", true},
	{"editorial:", false},
	{"editorial -", false},
	{"comment:", false},
	{"comment -", false},
	{"analysis:", false},
	{"our view:", false},
	{"editor's note:", false},
	{"editor's pick:", false},
}

// Generic fallback keywords looked for in titles.
var editorialKeywords = []string{
	"editorial", "opinion", "viewpoint", "perspective",
	"commentary", "analysis", "our view", "editor",
}

// Generic fallback keywords looked for in URL paths.
var editorialURLKeywords = []string{
	"editorial", "opinion", "comment", "viewpoint",
}

// Result carries the classification decision and the derived content flags.
type Result struct {
	Accepted  bool
	Editorial bool
	Opinion   bool
}

// IsEditorial applies the decision ladder:
//  1. category tag resolving to editorial/opinion/comment accepts;
//  2. a labeled title prefix accepts;
//  3. source include filters must match or the candidate is rejected;
//  4. source exclude filters matching reject;
//  5. otherwise accept iff the title or URL path carries a generic
//     editorial keyword.
func IsEditorial(cand *article.Candidate, src *source.Source) Result {
	title := strings.ToLower(cand.Title)
	body := strings.ToLower(cand.Content)
	category := strings.ToLower(cand.Category)

	switch category {
	case "opinion":
		return accept(true)
	case "editorial", "comment":
		return accept(false)
	}

	for _, p := range labeledPrefixes {
		if strings.Contains(title, p.marker) {
			return accept(p.opinion)
		}
	}

	if len(src.KeywordFilters) > 0 && !matchesAny(title, body, src.KeywordFilters) {
		return Result{}
	}

	if len(src.ExcludeKeywords) > 0 && matchesAny(title, body, src.ExcludeKeywords) {
		return Result{}
	}

	if containsAny(title, editorialKeywords) {
		return accept(false)
	}
	if containsAny(strings.ToLower(cand.URL), editorialURLKeywords) {
		return accept(false)
	}

	return Result{}
}

// Apply classifies cand and, when accepted, stamps the content flags.
func Apply(cand *article.Candidate, src *source.Source) bool {
	res := IsEditorial(cand, src)
	if !res.Accepted {
		return false
	}
	cand.IsEditorial = res.Editorial
	cand.IsOpinion = res.Opinion
	return true
}

func accept(opinion bool) Result {
	return Result{Accepted: true, Editorial: !opinion, Opinion: opinion}
}

func matchesAny(title, body string, keywords []string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(title, kw) || strings.Contains(body, kw) {
			return true
		}
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
