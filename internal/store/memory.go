package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ednews/internal/article"
	"ednews/internal/source"
)

// MemoryStore keeps sources and articles in process memory. It backs tests
// and single-node runs without a database, and is the reference for the
// upsert atomicity the Postgres store provides via ON CONFLICT.
type MemoryStore struct {
	mu            sync.Mutex
	sources       map[string]*source.Source
	articles      map[string]*article.Article // by ID
	byFingerprint map[string]string           // fingerprint -> ID
	order         []string                    // insertion order of IDs
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sources:       make(map[string]*source.Source),
		articles:      make(map[string]*article.Article),
		byFingerprint: make(map[string]string),
	}
}

// AddSource registers a source. Later registrations with the same ID replace
// the earlier one.
func (m *MemoryStore) AddSource(src *source.Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[src.ID] = src
}

func (m *MemoryStore) ListDueSources(ctx context.Context, now time.Time) ([]*source.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []*source.Source
	for _, src := range m.sources {
		if source.ShouldFetch(src, now) {
			due = append(due, src)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due, nil
}

func (m *MemoryStore) UpdateHealth(ctx context.Context, src *source.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[src.ID]; !ok {
		return ErrNotFound
	}
	m.sources[src.ID] = src
	return nil
}

func (m *MemoryStore) FindByFingerprint(ctx context.Context, fingerprint string) (*article.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byFingerprint[fingerprint]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *m.articles[id]
	return &copied, nil
}

func (m *MemoryStore) Upsert(ctx context.Context, cand *article.Candidate) (UpsertStatus, *article.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byFingerprint[cand.Fingerprint]; ok {
		copied := *m.articles[id]
		copied.IsDuplicate = true
		copied.DuplicateOf = id
		return StatusDuplicate, &copied, nil
	}

	art := &article.Article{
		ID:          uuid.NewString(),
		Title:       cand.Title,
		URL:         cand.URL,
		Content:     cand.Content,
		Excerpt:     cand.Excerpt,
		Author:      cand.Author,
		Category:    cand.Category,
		Published:   cand.Published,
		Fetched:     time.Now().UTC(),
		Language:    cand.Language,
		WordCount:   cand.WordCount,
		ImageURL:    cand.ImageURL,
		SourceID:    cand.SourceID,
		Fingerprint: cand.Fingerprint,
		IsEditorial: cand.IsEditorial,
		IsOpinion:   cand.IsOpinion,
	}
	m.articles[art.ID] = art
	m.byFingerprint[art.Fingerprint] = art.ID
	m.order = append(m.order, art.ID)

	copied := *art
	return StatusInserted, &copied, nil
}

func (m *MemoryStore) FindMissingSummary(ctx context.Context, modelKey string, limit int) ([]*article.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*article.Article
	for _, id := range m.order {
		art := m.articles[id]
		if art.IsSummaryGenerated {
			continue
		}
		if modelKey != "" && art.SummaryModel != "" && art.SummaryModel != modelKey {
			continue
		}
		copied := *art
		out = append(out, &copied)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) SaveSummary(ctx context.Context, articleID, summary, modelKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	art, ok := m.articles[articleID]
	if !ok {
		return ErrNotFound
	}
	art.Summary = summary
	art.SummaryModel = modelKey
	art.IsSummaryGenerated = true
	return nil
}
