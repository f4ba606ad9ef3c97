// Package ingest runs the per-source pipeline: eligibility, fetch, extract,
// classify, dedup-upsert, and health bookkeeping.
package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ednews/internal/article"
	"ednews/internal/classify"
	"ednews/internal/feed"
	"ednews/internal/metrics"
	"ednews/internal/ratelimit"
	"ednews/internal/scraper"
	"ednews/internal/source"
	"ednews/internal/store"
)

// stubContentChars is the body length below which a feed entry is treated as
// a teaser and the article page is scraped for the full text. Matches the
// summarizer's minimum viable content length.
const stubContentChars = 100

// Options tunes a cycle.
type Options struct {
	// MaxConcurrentSources bounds cross-source fan-out. Sources never run
	// concurrently with themselves regardless of this value.
	MaxConcurrentSources int
}

func DefaultOptions() Options {
	return Options{MaxConcurrentSources: 4}
}

// CycleStats summarizes one ingestion cycle.
type CycleStats struct {
	SourcesDue     int
	SourcesFetched int
	SourcesFailed  int
	SourcesSkipped int
	Extracted      int
	Inserted       int
	Duplicates     int
	Rejected       int
}

// Orchestrator drives ingestion across the registered sources.
type Orchestrator struct {
	registry  store.SourceRegistry
	articles  store.ArticleStore
	fetcher   *feed.Fetcher
	extractor *feed.Extractor
	scraper   *scraper.Scraper
	limiter   *ratelimit.Limiter
	opts      Options
	log       zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewOrchestrator(
	registry store.SourceRegistry,
	articles store.ArticleStore,
	fetcher *feed.Fetcher,
	extractor *feed.Extractor,
	sc *scraper.Scraper,
	opts Options,
	log zerolog.Logger,
) *Orchestrator {
	if opts.MaxConcurrentSources <= 0 {
		opts.MaxConcurrentSources = DefaultOptions().MaxConcurrentSources
	}
	return &Orchestrator{
		registry:  registry,
		articles:  articles,
		fetcher:   fetcher,
		extractor: extractor,
		scraper:   sc,
		limiter:   ratelimit.New(),
		opts:      opts,
		log:       log,
		inFlight:  make(map[string]bool),
	}
}

// RunCycle processes every due source once. Sources run concurrently up to
// the configured bound; a source still in flight from a previous cycle is
// skipped, never fetched twice at once.
func (o *Orchestrator) RunCycle(ctx context.Context, now time.Time) (CycleStats, error) {
	started := time.Now()

	due, err := o.registry.ListDueSources(ctx, now)
	if err != nil {
		return CycleStats{}, err
	}

	stats := CycleStats{SourcesDue: len(due)}
	if len(due) == 0 {
		return stats, nil
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, o.opts.MaxConcurrentSources)

	for _, src := range due {
		if !o.acquire(src.ID) {
			stats.SourcesSkipped++
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(src *source.Source) {
			defer wg.Done()
			defer func() { <-sem }()
			defer o.release(src.ID)

			srcStats := o.processSource(ctx, src, now)
			mu.Lock()
			stats.merge(srcStats)
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	metrics.Global.RecordCycleTime(time.Since(started))
	metrics.Global.SetLastRun()

	o.log.Info().
		Int("due", stats.SourcesDue).
		Int("fetched", stats.SourcesFetched).
		Int("failed", stats.SourcesFailed).
		Int("inserted", stats.Inserted).
		Int("duplicates", stats.Duplicates).
		Dur("elapsed", time.Since(started)).
		Msg("ingestion cycle complete")

	return stats, nil
}

// processSource runs the strictly sequential pipeline for one source.
func (o *Orchestrator) processSource(ctx context.Context, src *source.Source, now time.Time) CycleStats {
	var stats CycleStats
	log := o.log.With().Str("source", src.ID).Logger()

	if src.RateLimitRequests > 0 &&
		!o.limiter.Allow(src.ID, src.RateLimitRequests, src.RateLimitWindow) {
		log.Debug().Msg("rate budget exhausted, deferring source")
		stats.SourcesSkipped++
		return stats
	}

	fetchStart := time.Now()
	candidates, err := o.fetchCandidates(ctx, src)
	elapsed := time.Since(fetchStart)

	if err != nil {
		stats.SourcesFailed++
		metrics.Global.IncrementFetchFailures()
		log.Warn().Err(err).Bool("permanent", feed.IsPermanent(err)).Msg("source fetch failed")

		source.RecordOutcome(src, time.Now().UTC(), source.Outcome{
			Error:        err.Error(),
			ResponseTime: elapsed,
		})
		o.persistHealth(ctx, src, log)
		return stats
	}

	stats.SourcesFetched++
	stats.Extracted = len(candidates)
	metrics.Global.IncrementSourcesFetched()
	metrics.Global.AddArticlesExtracted(len(candidates))

	accepted := 0
	for i := range candidates {
		cand := &candidates[i]
		if !classify.Apply(cand, src) {
			stats.Rejected++
			metrics.Global.IncrementEntriesSkipped()
			continue
		}

		// Feed entries often carry only a teaser; pull the full body
		// from the article page before it is fingerprinted and stored.
		if src.Kind != source.KindScrape && len(cand.Content) < stubContentChars {
			o.scraper.Backfill(ctx, cand, src.Endpoint.BodySelector, src.RequestDelay)
		}

		status, _, err := o.articles.Upsert(ctx, cand)
		if err != nil {
			log.Warn().Err(err).Str("url", cand.URL).Msg("article upsert failed")
			continue
		}
		switch status {
		case store.StatusInserted:
			stats.Inserted++
			accepted++
			metrics.Global.IncrementArticlesInserted()
		case store.StatusDuplicate:
			stats.Duplicates++
			metrics.Global.IncrementDuplicatesFiltered()
		}
	}

	// Zero usable articles is still a successful fetch.
	source.RecordOutcome(src, time.Now().UTC(), source.Outcome{
		Success:      true,
		ArticleCount: accepted,
		ResponseTime: elapsed,
	})
	o.persistHealth(ctx, src, log)

	log.Info().
		Int("extracted", len(candidates)).
		Int("inserted", stats.Inserted).
		Int("duplicates", stats.Duplicates).
		Int("rejected", stats.Rejected).
		Msg("source ingested")

	return stats
}

func (o *Orchestrator) fetchCandidates(ctx context.Context, src *source.Source) ([]article.Candidate, error) {
	switch src.Kind {
	case source.KindScrape:
		return o.scraper.ScrapeSource(ctx, src)
	default:
		// Feed and API sources both serve entry documents over HTTP.
		raw, err := o.fetcher.FetchWithDelay(ctx, src.FetchURL(), src.RequestDelay)
		if err != nil {
			return nil, err
		}
		return o.extractor.Extract(raw, src, src.MaxArticlesPerFetch)
	}
}

func (o *Orchestrator) persistHealth(ctx context.Context, src *source.Source, log zerolog.Logger) {
	if err := o.registry.UpdateHealth(ctx, src); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Warn().Err(err).Msg("health update failed")
	}
}

func (o *Orchestrator) acquire(sourceID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[sourceID] {
		return false
	}
	o.inFlight[sourceID] = true
	return true
}

func (o *Orchestrator) release(sourceID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, sourceID)
}

func (s *CycleStats) merge(other CycleStats) {
	s.SourcesFetched += other.SourcesFetched
	s.SourcesFailed += other.SourcesFailed
	s.SourcesSkipped += other.SourcesSkipped
	s.Extracted += other.Extracted
	s.Inserted += other.Inserted
	s.Duplicates += other.Duplicates
	s.Rejected += other.Rejected
}
