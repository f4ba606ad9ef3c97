package summarize

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ednews/internal/article"
	"ednews/internal/store"
)

func testArticles(n int) []*article.Article {
	arts := make([]*article.Article, n)
	for i := 0; i < n; i++ {
		arts[i] = &article.Article{
			ID:       fmt.Sprintf("art-%02d", i),
			Title:    fmt.Sprintf("Editorial %d", i),
			Content:  strings.Repeat(fmt.Sprintf("Argument %d repeated for body length. ", i), 5),
			Language: "en",
		}
	}
	return arts
}

func TestSummarizeBatchCoversEveryArticle(t *testing.T) {
	backend := &fakeBackend{}
	b := NewBatcher(newTestRouter(backend, nil), BatchOptions{BatchSize: 4}, zerolog.Nop())

	arts := testArticles(10)
	results := b.SummarizeBatch(context.Background(), arts, "t5-small")

	if len(results) != 10 {
		t.Fatalf("result entries = %d, want exactly 10", len(results))
	}
	for _, art := range arts {
		res, ok := results[art.ID]
		if !ok {
			t.Errorf("article %s missing from results", art.ID)
			continue
		}
		if res.Err != nil {
			t.Errorf("article %s failed: %v", art.ID, res.Err)
		}
	}
}

func TestSummarizeBatchIsolatesItemFailure(t *testing.T) {
	backend := &fakeBackend{respond: func(m Model, input string) (string, error) {
		if strings.Contains(input, "Argument 3") {
			return "", fmt.Errorf("backend blew up")
		}
		return "A fine summary of the piece", nil
	}}
	b := NewBatcher(newTestRouter(backend, nil), BatchOptions{BatchSize: 4}, zerolog.Nop())

	arts := testArticles(10)
	results := b.SummarizeBatch(context.Background(), arts, "t5-small")

	if len(results) != 10 {
		t.Fatalf("result entries = %d, want 10", len(results))
	}

	successes, failures := 0, 0
	for _, res := range results {
		if res.Err != nil {
			failures++
		} else {
			successes++
		}
	}
	if successes != 9 || failures != 1 {
		t.Errorf("got %d successes and %d failures, want 9 and 1", successes, failures)
	}
	if results["art-03"].Err == nil {
		t.Error("the failing article must carry the failure")
	}
}

func TestSummarizeBatchCapturesPanic(t *testing.T) {
	backend := &fakeBackend{respond: func(m Model, input string) (string, error) {
		if strings.Contains(input, "Argument 1") {
			panic("model crashed")
		}
		return "A fine summary of the piece", nil
	}}
	b := NewBatcher(newTestRouter(backend, nil), BatchOptions{BatchSize: 2}, zerolog.Nop())

	arts := testArticles(4)
	results := b.SummarizeBatch(context.Background(), arts, "t5-small")

	if len(results) != 4 {
		t.Fatalf("result entries = %d, want 4", len(results))
	}
	if results["art-01"].Err == nil || !strings.Contains(results["art-01"].Err.Error(), "panic") {
		t.Errorf("panicking item err = %v, want captured panic", results["art-01"].Err)
	}
	if results["art-00"].Err != nil || results["art-02"].Err != nil {
		t.Error("panic leaked beyond its own slot")
	}
}

func TestSummarizeBatchBackfillsOnTimeout(t *testing.T) {
	backend := &fakeBackend{respond: func(m Model, input string) (string, error) {
		time.Sleep(50 * time.Millisecond)
		return "A fine summary of the piece", nil
	}}
	b := NewBatcher(newTestRouter(backend, nil), BatchOptions{BatchSize: 2, BatchTimeout: 60 * time.Millisecond}, zerolog.Nop())

	arts := testArticles(8)
	results := b.SummarizeBatch(context.Background(), arts, "t5-small")

	if len(results) != 8 {
		t.Fatalf("result entries = %d, want 8 even after deadline", len(results))
	}
	backfilled := 0
	for _, res := range results {
		if res.Err != nil && strings.Contains(res.Err.Error(), "not attempted") {
			backfilled++
		}
	}
	if backfilled == 0 {
		t.Error("expected unattempted articles to be backfilled with failures")
	}
}

func TestSummarizeBatchEmptyInput(t *testing.T) {
	b := NewBatcher(newTestRouter(&fakeBackend{}, nil), DefaultBatchOptions(), zerolog.Nop())
	if results := b.SummarizeBatch(context.Background(), nil, "t5-small"); len(results) != 0 {
		t.Errorf("empty input produced %d results", len(results))
	}
}

func TestRunPendingSavesSuccesses(t *testing.T) {
	backend := &fakeBackend{respond: func(m Model, input string) (string, error) {
		if strings.Contains(input, "Poison") {
			return "", fmt.Errorf("backend rejected input")
		}
		return "Saved summary text", nil
	}}
	b := NewBatcher(newTestRouter(backend, nil), BatchOptions{BatchSize: 4}, zerolog.Nop())

	mem := store.NewMemoryStore()
	ctx := context.Background()
	body := strings.Repeat("A long enough body for summarization to proceed. ", 5)
	mem.Upsert(ctx, &article.Candidate{Title: "Good", Content: body, Fingerprint: article.Fingerprint("Good", body)})
	poison := "Poison " + body
	mem.Upsert(ctx, &article.Candidate{Title: "Bad", Content: poison, Fingerprint: article.Fingerprint("Bad", poison)})

	saved, err := b.RunPending(ctx, mem, "t5-small", 0)
	if err != nil {
		t.Fatalf("RunPending: %v", err)
	}
	if saved != 1 {
		t.Errorf("saved = %d, want 1", saved)
	}

	pending, _ := mem.FindMissingSummary(ctx, "", 0)
	if len(pending) != 1 || pending[0].Title != "Bad" {
		t.Errorf("pending after run = %+v, want only the failed article", pending)
	}
}
