package summarize

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ednews/internal/article"
	"ednews/internal/metrics"
	"ednews/internal/store"
)

// Result is one article's summarization outcome.
type Result struct {
	Summary string
	Err     error
}

// BatchOptions bounds batch shape and wall time.
type BatchOptions struct {
	BatchSize    int
	ItemTimeout  time.Duration
	BatchTimeout time.Duration
}

func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		BatchSize:    4,
		ItemTimeout:  2 * time.Minute,
		BatchTimeout: 15 * time.Minute,
	}
}

// Batcher runs summarization over article sets: fixed-size batches executed
// one after another, items within a batch concurrent, every failure confined
// to its own slot.
type Batcher struct {
	router *Router
	opts   BatchOptions
	log    zerolog.Logger
}

func NewBatcher(router *Router, opts BatchOptions, log zerolog.Logger) *Batcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchOptions().BatchSize
	}
	return &Batcher{router: router, opts: opts, log: log}
}

// SummarizeBatch summarizes articles under modelKey. The returned map has
// exactly one entry per input article ID; articles never attempted because
// the overall deadline expired get a failure entry rather than being
// omitted.
func (b *Batcher) SummarizeBatch(ctx context.Context, articles []*article.Article, modelKey string) map[string]Result {
	results := make(map[string]Result, len(articles))
	if len(articles) == 0 {
		return results
	}

	if b.opts.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.BatchTimeout)
		defer cancel()
	}

	var mu sync.Mutex
	for start := 0; start < len(articles); start += b.opts.BatchSize {
		end := start + b.opts.BatchSize
		if end > len(articles) {
			end = len(articles)
		}
		batch := articles[start:end]

		if ctx.Err() != nil {
			break
		}

		var wg sync.WaitGroup
		for _, art := range batch {
			wg.Add(1)
			go func(art *article.Article) {
				defer wg.Done()
				res := b.summarizeOne(ctx, art, modelKey)
				mu.Lock()
				results[art.ID] = res
				mu.Unlock()
			}(art)
		}
		wg.Wait()

		b.log.Info().
			Str("model", modelKey).
			Int("batch_size", len(batch)).
			Int("done", end).
			Int("total", len(articles)).
			Msg("summarization batch complete")
	}

	// Back-fill anything never attempted so the contract of one entry per
	// input holds even after an orchestration-level stop.
	for _, art := range articles {
		if _, ok := results[art.ID]; !ok {
			results[art.ID] = Result{Err: fmt.Errorf("not attempted: %w", context.Cause(ctx))}
		}
	}

	return results
}

// summarizeOne bounds a single item's latency and converts panics into that
// item's failure.
func (b *Batcher) summarizeOne(ctx context.Context, art *article.Article, modelKey string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: fmt.Errorf("summarization panic: %v", r)}
		}
	}()

	if b.opts.ItemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.ItemTimeout)
		defer cancel()
	}

	summary, err := b.router.Summarize(ctx, art.Content, art.Title, modelKey, art.Language)
	if err != nil {
		return Result{Err: err}
	}
	return Result{Summary: summary}
}

// RunPending summarizes articles that have no summary yet and persists the
// successes. Returns how many summaries were saved.
func (b *Batcher) RunPending(ctx context.Context, articles store.ArticleStore, modelKey string, limit int) (int, error) {
	pending, err := articles.FindMissingSummary(ctx, modelKey, limit)
	if err != nil {
		return 0, fmt.Errorf("list pending articles: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	results := b.SummarizeBatch(ctx, pending, modelKey)

	saved := 0
	var errs []error
	for _, art := range pending {
		res := results[art.ID]
		if res.Err != nil {
			metrics.Global.IncrementSummaryFailures()
			b.log.Warn().Err(res.Err).Str("article", art.ID).Msg("summarization failed")
			continue
		}
		if err := articles.SaveSummary(ctx, art.ID, res.Summary, modelKey); err != nil {
			errs = append(errs, fmt.Errorf("save summary %s: %w", art.ID, err))
			continue
		}
		metrics.Global.IncrementSummariesGenerated()
		saved++
	}

	b.log.Info().
		Str("model", modelKey).
		Int("pending", len(pending)).
		Int("saved", saved).
		Msg("pending summarization run complete")

	return saved, errors.Join(errs...)
}
