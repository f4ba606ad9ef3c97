// Package store defines the persistence contracts the pipeline consumes:
// a registry of sources and their health, and an article store with
// fingerprint-based duplicate handling.
package store

import (
	"context"
	"errors"
	"time"

	"ednews/internal/article"
	"ednews/internal/source"
)

// UpsertStatus reports what an article upsert did.
type UpsertStatus int

const (
	StatusInserted UpsertStatus = iota
	StatusDuplicate
)

var ErrNotFound = errors.New("store: not found")

// SourceRegistry exposes due sources and accepts health updates.
type SourceRegistry interface {
	// ListDueSources returns active sources whose fetch interval has
	// elapsed (or that have never been fetched).
	ListDueSources(ctx context.Context, now time.Time) ([]*source.Source, error)
	// UpdateHealth persists the mutated health/stat fields of src.
	UpdateHealth(ctx context.Context, src *source.Source) error
}

// ArticleStore persists articles keyed by content fingerprint. Upsert must
// be atomic per fingerprint: two concurrent upserts of the same content
// yield one insert and one duplicate, never two inserts.
type ArticleStore interface {
	FindByFingerprint(ctx context.Context, fingerprint string) (*article.Article, error)
	// Upsert inserts cand as a new article, or reports it as a duplicate
	// of the existing article with the same fingerprint. The original is
	// never overwritten.
	Upsert(ctx context.Context, cand *article.Candidate) (UpsertStatus, *article.Article, error)
	// FindMissingSummary lists articles without a generated summary.
	// modelKey narrows to articles previously attempted with that model;
	// empty means any.
	FindMissingSummary(ctx context.Context, modelKey string, limit int) ([]*article.Article, error)
	SaveSummary(ctx context.Context, articleID, summary, modelKey string) error
}
