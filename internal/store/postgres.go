package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"ednews/internal/article"
	"ednews/internal/source"
)

// PostgresStore implements SourceRegistry and ArticleStore on PostgreSQL.
// Duplicate handling leans on the unique fingerprint index plus
// ON CONFLICT DO NOTHING, so concurrent upserts of the same content race
// safely inside the database.
type PostgresStore struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	log zerolog.Logger
}

func NewPostgresStore(connectionString string, log zerolog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		log: log,
	}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	log.Info().Msg("postgres store connected")
	return s, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL DEFAULT 'healthy',
		consecutive_errors INTEGER NOT NULL DEFAULT 0,
		last_fetched TIMESTAMPTZ,
		last_success TIMESTAMPTZ,
		last_error TEXT NOT NULL DEFAULT '',
		total_successes INTEGER NOT NULL DEFAULT 0,
		total_failures INTEGER NOT NULL DEFAULT 0,
		total_articles_fetched INTEGER NOT NULL DEFAULT 0,
		avg_articles_per_fetch DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_response_time DOUBLE PRECISION NOT NULL DEFAULT 0,
		success_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS articles (
		id UUID PRIMARY KEY,
		fingerprint VARCHAR(64) UNIQUE NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		excerpt TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		published TIMESTAMPTZ NOT NULL,
		fetched TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		language VARCHAR(8) NOT NULL DEFAULT 'en',
		word_count INTEGER NOT NULL DEFAULT 0,
		image_url TEXT NOT NULL DEFAULT '',
		source_id TEXT NOT NULL,
		is_editorial BOOLEAN NOT NULL DEFAULT FALSE,
		is_opinion BOOLEAN NOT NULL DEFAULT FALSE,
		summary TEXT NOT NULL DEFAULT '',
		summary_model TEXT NOT NULL DEFAULT '',
		is_summary_generated BOOLEAN NOT NULL DEFAULT FALSE,
		view_count INTEGER NOT NULL DEFAULT 0,
		share_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_articles_fingerprint ON articles(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source_id);
	CREATE INDEX IF NOT EXISTS idx_articles_pending_summary ON articles(is_summary_generated) WHERE NOT is_summary_generated;
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// SyncSources makes sure every configured source has a health row, without
// touching the health fields of rows that already exist.
func (s *PostgresStore) SyncSources(ctx context.Context, sources []*source.Source) error {
	for _, src := range sources {
		query, args, err := s.sb.Insert("sources").
			Columns("id").
			Values(src.ID).
			Suffix("ON CONFLICT (id) DO NOTHING").
			ToSql()
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("sync source %s: %w", src.ID, err)
		}
	}
	return nil
}

// LoadHealth merges persisted health rows into the configured sources. IDs
// without a row keep their zero-value health state.
func (s *PostgresStore) LoadHealth(ctx context.Context, sources []*source.Source) error {
	byID := make(map[string]*source.Source, len(sources))
	ids := make([]string, 0, len(sources))
	for _, src := range sources {
		byID[src.ID] = src
		ids = append(ids, src.ID)
	}

	query, args, err := s.sb.Select(
		"id", "status", "consecutive_errors", "last_fetched", "last_success",
		"last_error", "total_successes", "total_failures", "total_articles_fetched",
		"avg_articles_per_fetch", "avg_response_time", "success_rate").
		From("sources").
		Where("id = ANY(?)", pq.StringArray(ids)).
		ToSql()
	if err != nil {
		return err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("load health: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, status, lastError  string
			lastFetched, lastSucc  sql.NullTime
			consecutiveErrors      int
			succ, fail, totalArts  int
			avgArts, avgRT, sRate  float64
		)
		if err := rows.Scan(&id, &status, &consecutiveErrors, &lastFetched, &lastSucc,
			&lastError, &succ, &fail, &totalArts, &avgArts, &avgRT, &sRate); err != nil {
			return fmt.Errorf("scan health row: %w", err)
		}
		src, ok := byID[id]
		if !ok {
			continue
		}
		src.Status = source.HealthStatus(status)
		src.ConsecutiveErrors = consecutiveErrors
		if lastFetched.Valid {
			src.LastFetched = lastFetched.Time
		}
		if lastSucc.Valid {
			src.LastSuccess = lastSucc.Time
		}
		src.LastError = lastError
		src.TotalSuccesses = succ
		src.TotalFailures = fail
		src.TotalArticlesFetched = totalArts
		src.AvgArticlesPerFetch = avgArts
		src.AvgResponseTime = avgRT
		src.SuccessRate = sRate
	}
	return rows.Err()
}

// UpdateHealth persists the health row for src. Sources themselves live in
// configuration; pair this with a Registry for ListDueSources.
func (s *PostgresStore) UpdateHealth(ctx context.Context, src *source.Source) error {
	builder := s.sb.Update("sources").
		Set("status", string(src.Status)).
		Set("consecutive_errors", src.ConsecutiveErrors).
		Set("last_error", src.LastError).
		Set("total_successes", src.TotalSuccesses).
		Set("total_failures", src.TotalFailures).
		Set("total_articles_fetched", src.TotalArticlesFetched).
		Set("avg_articles_per_fetch", src.AvgArticlesPerFetch).
		Set("avg_response_time", src.AvgResponseTime).
		Set("success_rate", src.SuccessRate).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": src.ID})
	if !src.LastFetched.IsZero() {
		builder = builder.Set("last_fetched", src.LastFetched)
	}
	if !src.LastSuccess.IsZero() {
		builder = builder.Set("last_success", src.LastSuccess)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update health %s: %w", src.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

var articleColumns = []string{
	"id", "fingerprint", "title", "url", "content", "excerpt", "author",
	"category", "published", "fetched", "language", "word_count", "image_url",
	"source_id", "is_editorial", "is_opinion", "summary", "summary_model",
	"is_summary_generated", "view_count", "share_count",
}

func (s *PostgresStore) FindByFingerprint(ctx context.Context, fingerprint string) (*article.Article, error) {
	query, args, err := s.sb.Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"fingerprint": fingerprint}).
		ToSql()
	if err != nil {
		return nil, err
	}
	art, err := s.scanArticle(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find by fingerprint: %w", err)
	}
	return art, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, cand *article.Candidate) (UpsertStatus, *article.Article, error) {
	id := uuid.NewString()
	fetched := time.Now().UTC()

	query, args, err := s.sb.Insert("articles").
		Columns("id", "fingerprint", "title", "url", "content", "excerpt",
			"author", "category", "published", "fetched", "language",
			"word_count", "image_url", "source_id", "is_editorial", "is_opinion").
		Values(id, cand.Fingerprint, cand.Title, cand.URL, cand.Content, cand.Excerpt,
			cand.Author, cand.Category, cand.Published, fetched, cand.Language,
			cand.WordCount, cand.ImageURL, cand.SourceID, cand.IsEditorial, cand.IsOpinion).
		Suffix("ON CONFLICT (fingerprint) DO NOTHING").
		ToSql()
	if err != nil {
		return 0, nil, err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, nil, fmt.Errorf("insert article: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, nil, err
	}

	existing, err := s.FindByFingerprint(ctx, cand.Fingerprint)
	if err != nil {
		return 0, nil, err
	}

	if inserted == 0 {
		dup := *existing
		dup.IsDuplicate = true
		dup.DuplicateOf = existing.ID
		return StatusDuplicate, &dup, nil
	}
	return StatusInserted, existing, nil
}

func (s *PostgresStore) FindMissingSummary(ctx context.Context, modelKey string, limit int) ([]*article.Article, error) {
	builder := s.sb.Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"is_summary_generated": false}).
		OrderBy("fetched ASC")
	if modelKey != "" {
		builder = builder.Where(sq.Or{
			sq.Eq{"summary_model": ""},
			sq.Eq{"summary_model": modelKey},
		})
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find missing summary: %w", err)
	}
	defer rows.Close()

	var out []*article.Article
	for rows.Next() {
		art, err := s.scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		out = append(out, art)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveSummary(ctx context.Context, articleID, summary, modelKey string) error {
	query, args, err := s.sb.Update("articles").
		Set("summary", summary).
		Set("summary_model", modelKey).
		Set("is_summary_generated", true).
		Where(sq.Eq{"id": articleID}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanArticle(row rowScanner) (*article.Article, error) {
	var art article.Article
	err := row.Scan(
		&art.ID, &art.Fingerprint, &art.Title, &art.URL, &art.Content,
		&art.Excerpt, &art.Author, &art.Category, &art.Published, &art.Fetched,
		&art.Language, &art.WordCount, &art.ImageURL, &art.SourceID,
		&art.IsEditorial, &art.IsOpinion, &art.Summary, &art.SummaryModel,
		&art.IsSummaryGenerated, &art.ViewCount, &art.ShareCount,
	)
	if err != nil {
		return nil, err
	}
	return &art, nil
}
