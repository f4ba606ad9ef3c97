package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ednews/internal/cache"
	"ednews/internal/metrics"
	"ednews/internal/ratelimit"
)

// minContentChars rejects stubs before any backend call.
const minContentChars = 100

var (
	ErrUnknownModel    = errors.New("unknown summarization model")
	ErrContentTooShort = errors.New("article content too short for summarization")
	// ErrEmptyResult marks a backend that answered but produced nothing,
	// as opposed to a transport failure.
	ErrEmptyResult        = errors.New("empty result from backend")
	ErrBackendUnavailable = errors.New("no backend configured for model")
	ErrRateLimited        = errors.New("remote summarization budget exhausted")
)

// Backend serves summarization calls for one backend kind.
type Backend interface {
	Summarize(ctx context.Context, m Model, input, language string) (string, error)
	Close() error
}

// RouterOptions tunes caching and the remote call budget.
type RouterOptions struct {
	CacheTTL time.Duration
	// CleanupInterval paces eviction of expired cache entries.
	CleanupInterval time.Duration
	// RemoteBudget calls per RemoteWindow across all remote models.
	// Zero disables the budget.
	RemoteBudget int
	RemoteWindow time.Duration
}

func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		CacheTTL:        24 * time.Hour,
		CleanupInterval: time.Hour,
		RemoteBudget:    60,
		RemoteWindow:    time.Minute,
	}
}

// Router validates and prepares input, dispatches to the backend owning the
// requested model, and cleans the output. Results are cached by content and
// model so re-runs over the same articles skip backend calls.
type Router struct {
	models  map[string]Model
	local   Backend
	remote  Backend
	cache   *cache.Cache
	limiter *ratelimit.Limiter
	opts    RouterOptions
	log     zerolog.Logger

	stopOnce    sync.Once
	stopJanitor chan struct{}
}

// NewRouter builds a router over the default model table. Either backend may
// be nil; models of that kind then fail with ErrBackendUnavailable.
func NewRouter(local, remote Backend, opts RouterOptions, log zerolog.Logger) *Router {
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultRouterOptions().CleanupInterval
	}
	r := &Router{
		models:      DefaultModels(),
		local:       local,
		remote:      remote,
		cache:       cache.New(),
		limiter:     ratelimit.New(),
		opts:        opts,
		log:         log,
		stopJanitor: make(chan struct{}),
	}
	go r.janitor()
	return r
}

// janitor evicts expired summaries until Close.
func (r *Router) janitor() {
	ticker := time.NewTicker(r.opts.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopJanitor:
			return
		case <-ticker.C:
			r.cache.Cleanup()
		}
	}
}

// Models lists the configured model table.
func (r *Router) Models() []Model {
	out := make([]Model, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	return out
}

// Summarize produces a cleaned summary of content under the named model.
// Unknown models and short content are rejected before any backend call.
func (r *Router) Summarize(ctx context.Context, content, title, modelKey, language string) (string, error) {
	m, ok := r.models[modelKey]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, modelKey)
	}
	if len(strings.TrimSpace(content)) < minContentChars {
		return "", ErrContentTooShort
	}

	input := prepareInput(title, content, m)

	cacheKey := cache.Key(input, m.Key)
	if cached, ok := r.cache.Get(cacheKey); ok {
		metrics.Global.IncrementSummaryCacheHits()
		return cached, nil
	}

	backend, err := r.backendFor(m)
	if err != nil {
		return "", err
	}
	if m.Kind == KindRemote && r.opts.RemoteBudget > 0 {
		if !r.limiter.Allow("summarize:remote", r.opts.RemoteBudget, r.opts.RemoteWindow) {
			return "", ErrRateLimited
		}
	}

	raw, err := backend.Summarize(ctx, m, input, language)
	if err != nil {
		return "", fmt.Errorf("model %s: %w", m.Key, err)
	}

	summary := postProcess(raw)
	if summary == "" {
		return "", fmt.Errorf("model %s: %w", m.Key, ErrEmptyResult)
	}

	r.cache.Set(cacheKey, summary, r.opts.CacheTTL)
	r.log.Debug().Str("model", m.Key).Int("summary_chars", len(summary)).Msg("summary generated")
	return summary, nil
}

func (r *Router) backendFor(m Model) (Backend, error) {
	var backend Backend
	switch m.Kind {
	case KindRemote:
		backend = r.remote
	default:
		backend = r.local
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: %s (%s)", ErrBackendUnavailable, m.Key, m.Kind)
	}
	return backend, nil
}

// Close stops the cache janitor and tears down both backends.
func (r *Router) Close() error {
	r.stopOnce.Do(func() { close(r.stopJanitor) })
	var errs []error
	for _, b := range []Backend{r.local, r.remote} {
		if b == nil {
			continue
		}
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
