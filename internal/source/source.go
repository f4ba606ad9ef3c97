package source

import (
	"time"
)

// Kind selects how a source's content is retrieved.
type Kind string

const (
	KindFeed   Kind = "feed"
	KindScrape Kind = "scrape"
	KindAPI    Kind = "api"
)

// HealthStatus classifies a source by its recent fetch history.
type HealthStatus string

const (
	StatusHealthy HealthStatus = "healthy"
	StatusWarning HealthStatus = "warning"
	StatusError   HealthStatus = "error"
)

// Endpoint is the per-kind fetch target. Only the fields for the source's
// kind are populated.
type Endpoint struct {
	FeedURL   string `yaml:"feed_url,omitempty"`
	ScrapeURL string `yaml:"scrape_url,omitempty"`
	// Scrape-kind sources may pin a CSS selector for the article body.
	BodySelector string `yaml:"body_selector,omitempty"`
	APIURL       string `yaml:"api_url,omitempty"`
}

// Source is a configured content origin with its fetch policy and mutable
// health state. Health fields are only mutated through RecordOutcome.
type Source struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Kind     Kind   `yaml:"kind"`
	Language string `yaml:"language"`
	Active   bool   `yaml:"active"`

	Endpoint Endpoint `yaml:"endpoint"`

	// Fetch policy.
	FetchInterval       time.Duration `yaml:"fetch_interval"`
	MaxArticlesPerFetch int           `yaml:"max_articles_per_fetch"`
	RequestDelay        time.Duration `yaml:"request_delay"`
	RateLimitRequests   int           `yaml:"rate_limit_requests"`
	RateLimitWindow     time.Duration `yaml:"rate_limit_window"`

	// Per-source classification overrides.
	KeywordFilters  []string `yaml:"keyword_filters"`
	ExcludeKeywords []string `yaml:"exclude_keywords"`

	// Mutable health state.
	Status            HealthStatus `yaml:"-"`
	ConsecutiveErrors int          `yaml:"-"`
	LastFetched       time.Time    `yaml:"-"`
	LastSuccess       time.Time    `yaml:"-"`
	LastError         string       `yaml:"-"`

	// Cumulative statistics.
	TotalSuccesses       int     `yaml:"-"`
	TotalFailures        int     `yaml:"-"`
	TotalArticlesFetched int     `yaml:"-"`
	AvgArticlesPerFetch  float64 `yaml:"-"`
	AvgResponseTime      float64 `yaml:"-"` // seconds, exponentially weighted
	SuccessRate          float64 `yaml:"-"`
}

// FetchURL returns the endpoint URL matching the source kind.
func (s *Source) FetchURL() string {
	switch s.Kind {
	case KindScrape:
		return s.Endpoint.ScrapeURL
	case KindAPI:
		return s.Endpoint.APIURL
	default:
		return s.Endpoint.FeedURL
	}
}

// Attempts is the total number of recorded fetch outcomes.
func (s *Source) Attempts() int {
	return s.TotalSuccesses + s.TotalFailures
}
