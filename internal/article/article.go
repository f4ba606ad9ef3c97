package article

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// fingerprintBodyRunes is how much of the body participates in the
// duplicate-detection digest.
const fingerprintBodyRunes = 500

// Candidate is a provisional extraction result for one feed entry. It lives
// only within a single ingestion pass and becomes an Article if it passes
// classification and is not a duplicate.
type Candidate struct {
	Title       string
	URL         string
	Content     string
	Excerpt     string
	Author      string
	Category    string
	Published   time.Time
	Language    string
	WordCount   int
	ImageURL    string
	SourceID    string
	Fingerprint string
	Metadata    map[string]any

	IsEditorial bool
	IsOpinion   bool
}

// Article is the persisted form of a candidate, plus summary and
// duplicate-tracking fields owned by the store and summarization layer.
type Article struct {
	ID          string
	Title       string
	URL         string
	Content     string
	Excerpt     string
	Author      string
	Category    string
	Published   time.Time
	Fetched     time.Time
	Language    string
	WordCount   int
	ImageURL    string
	SourceID    string
	Fingerprint string

	IsEditorial        bool
	IsOpinion          bool
	IsDuplicate        bool
	DuplicateOf        string
	Summary            string
	SummaryModel       string
	IsSummaryGenerated bool

	ViewCount  int
	ShareCount int
}

// Fingerprint derives the duplicate-detection digest from a title and the
// first 500 runes of the body. Deterministic for identical inputs.
func Fingerprint(title, body string) string {
	runes := []rune(body)
	if len(runes) > fingerprintBodyRunes {
		runes = runes[:fingerprintBodyRunes]
	}
	h := sha256.Sum256([]byte(title + string(runes)))
	return hex.EncodeToString(h[:])
}
