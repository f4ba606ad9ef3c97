package store

import (
	"context"
	"sync"
	"time"

	"ednews/internal/source"
)

// HealthSink receives health updates for durable storage.
type HealthSink interface {
	UpdateHealth(ctx context.Context, src *source.Source) error
}

// Registry is the SourceRegistry over the configured source list. Health
// mutations are applied in memory and, when a sink is attached, persisted.
type Registry struct {
	mu      sync.Mutex
	sources []*source.Source
	sink    HealthSink
}

// NewRegistry builds a registry over the configured sources. sink may be nil
// for runs without durable health state.
func NewRegistry(sources []*source.Source, sink HealthSink) *Registry {
	return &Registry{sources: sources, sink: sink}
}

func (r *Registry) ListDueSources(ctx context.Context, now time.Time) ([]*source.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []*source.Source
	for _, src := range r.sources {
		if source.ShouldFetch(src, now) {
			due = append(due, src)
		}
	}
	return due, nil
}

func (r *Registry) UpdateHealth(ctx context.Context, src *source.Source) error {
	r.mu.Lock()
	sink := r.sink
	r.mu.Unlock()

	if sink != nil {
		return sink.UpdateHealth(ctx, src)
	}
	return nil
}

// All returns the configured sources regardless of due state.
func (r *Registry) All() []*source.Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*source.Source, len(r.sources))
	copy(out, r.sources)
	return out
}
