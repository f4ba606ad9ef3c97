package source

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// sourceYAML mirrors Source for catalog decoding, with durations as strings
// so "30m" and bare seconds both work.
type sourceYAML struct {
	ID                  string   `yaml:"id"`
	Name                string   `yaml:"name"`
	Kind                Kind     `yaml:"kind"`
	Language            string   `yaml:"language"`
	Active              bool     `yaml:"active"`
	Endpoint            Endpoint `yaml:"endpoint"`
	FetchInterval       string   `yaml:"fetch_interval"`
	MaxArticlesPerFetch int      `yaml:"max_articles_per_fetch"`
	RequestDelay        string   `yaml:"request_delay"`
	RateLimitRequests   int      `yaml:"rate_limit_requests"`
	RateLimitWindow     string   `yaml:"rate_limit_window"`
	KeywordFilters      []string `yaml:"keyword_filters"`
	ExcludeKeywords     []string `yaml:"exclude_keywords"`
}

func (s *Source) UnmarshalYAML(value *yaml.Node) error {
	var raw sourceYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}

	s.ID = raw.ID
	s.Name = raw.Name
	s.Kind = raw.Kind
	s.Language = raw.Language
	s.Active = raw.Active
	s.Endpoint = raw.Endpoint
	s.MaxArticlesPerFetch = raw.MaxArticlesPerFetch
	s.RateLimitRequests = raw.RateLimitRequests
	s.KeywordFilters = raw.KeywordFilters
	s.ExcludeKeywords = raw.ExcludeKeywords

	var err error
	if s.FetchInterval, err = parseDuration(raw.FetchInterval); err != nil {
		return fmt.Errorf("source %s: fetch_interval: %w", raw.ID, err)
	}
	if s.RequestDelay, err = parseDuration(raw.RequestDelay); err != nil {
		return fmt.Errorf("source %s: request_delay: %w", raw.ID, err)
	}
	if s.RateLimitWindow, err = parseDuration(raw.RateLimitWindow); err != nil {
		return fmt.Errorf("source %s: rate_limit_window: %w", raw.ID, err)
	}
	return nil
}

// parseDuration accepts Go duration strings ("30m") or bare numbers treated
// as seconds. Empty means zero, letting defaults apply downstream.
func parseDuration(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
		return time.Duration(n) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid duration %q", raw)
}
