package summarize

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeBackend scripts responses per input and counts calls.
type fakeBackend struct {
	mu      sync.Mutex
	calls   int
	respond func(m Model, input string) (string, error)
}

func (f *fakeBackend) Summarize(ctx context.Context, m Model, input, language string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(m, input)
	}
	return "A fine summary of the piece", nil
}

func (f *fakeBackend) Close() error { return nil }

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func longContent() string {
	return strings.Repeat("The board argues that fiscal restraint matters. ", 10)
}

func newTestRouter(local, remote Backend) *Router {
	opts := DefaultRouterOptions()
	opts.RemoteBudget = 0
	return NewRouter(local, remote, opts, zerolog.Nop())
}

func TestSummarizeUnknownModel(t *testing.T) {
	r := newTestRouter(&fakeBackend{}, nil)

	_, err := r.Summarize(context.Background(), longContent(), "Title", "no-such-model", "en")
	if !errors.Is(err, ErrUnknownModel) {
		t.Errorf("err = %v, want ErrUnknownModel", err)
	}
}

func TestSummarizeContentTooShort(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRouter(backend, nil)

	_, err := r.Summarize(context.Background(), "Too short.", "Title", "t5-small", "en")
	if !errors.Is(err, ErrContentTooShort) {
		t.Errorf("err = %v, want ErrContentTooShort", err)
	}
	if backend.callCount() != 0 {
		t.Error("backend called despite pre-call rejection")
	}
}

func TestSummarizeRoutesByModelKind(t *testing.T) {
	local := &fakeBackend{}
	remote := &fakeBackend{}
	r := newTestRouter(local, remote)
	ctx := context.Background()

	if _, err := r.Summarize(ctx, longContent(), "T", "bart-large-cnn", "en"); err != nil {
		t.Fatalf("local model: %v", err)
	}
	if local.callCount() != 1 || remote.callCount() != 0 {
		t.Errorf("local model routed wrong: local=%d remote=%d", local.callCount(), remote.callCount())
	}

	if _, err := r.Summarize(ctx, longContent()+"x", "T", "gemini-1.5-flash", "en"); err != nil {
		t.Fatalf("remote model: %v", err)
	}
	if remote.callCount() != 1 {
		t.Errorf("remote model not routed to remote backend")
	}
}

func TestSummarizeMissingBackend(t *testing.T) {
	r := newTestRouter(nil, nil)

	_, err := r.Summarize(context.Background(), longContent(), "T", "t5-small", "en")
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("err = %v, want ErrBackendUnavailable", err)
	}
}

func TestSummarizeCachesByContentAndModel(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRouter(backend, nil)
	ctx := context.Background()

	first, err := r.Summarize(ctx, longContent(), "T", "t5-small", "en")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	second, err := r.Summarize(ctx, longContent(), "T", "t5-small", "en")
	if err != nil {
		t.Fatalf("Summarize cached: %v", err)
	}
	if first != second {
		t.Errorf("cached summary differs: %q vs %q", first, second)
	}
	if backend.callCount() != 1 {
		t.Errorf("backend calls = %d, want 1 (second hit served from cache)", backend.callCount())
	}

	// A different model key misses the cache.
	if _, err := r.Summarize(ctx, longContent(), "T", "pegasus-xsum", "en"); err != nil {
		t.Fatalf("Summarize other model: %v", err)
	}
	if backend.callCount() != 2 {
		t.Errorf("backend calls = %d, want 2", backend.callCount())
	}
}

func TestRouterJanitorEvictsExpiredSummaries(t *testing.T) {
	opts := DefaultRouterOptions()
	opts.RemoteBudget = 0
	opts.CacheTTL = 5 * time.Millisecond
	opts.CleanupInterval = 5 * time.Millisecond
	r := NewRouter(&fakeBackend{}, nil, opts, zerolog.Nop())
	defer r.Close()

	if _, err := r.Summarize(context.Background(), longContent(), "T", "t5-small", "en"); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if r.cache.Len() != 1 {
		t.Fatalf("cache entries = %d, want 1", r.cache.Len())
	}

	deadline := time.Now().Add(2 * time.Second)
	for r.cache.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expired summary never evicted")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRouterCloseIdempotent(t *testing.T) {
	r := newTestRouter(&fakeBackend{}, nil)

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestSummarizeEmptyBackendResult(t *testing.T) {
	backend := &fakeBackend{respond: func(Model, string) (string, error) { return "   ", nil }}
	r := newTestRouter(backend, nil)

	_, err := r.Summarize(context.Background(), longContent(), "T", "t5-small", "en")
	if !errors.Is(err, ErrEmptyResult) {
		t.Errorf("err = %v, want ErrEmptyResult", err)
	}
}

func TestPrepareInputTruncatesToWordBudget(t *testing.T) {
	m := Model{Key: "tiny", MaxInputWords: 10}
	words := strings.Repeat("word ", 50)

	input := prepareInput("Title here", words, m)
	if got := len(strings.Fields(input)); got != 10 {
		t.Errorf("prepared input = %d words, want 10", got)
	}
	if !strings.HasPrefix(input, "Title here") {
		t.Errorf("title not leading the input: %q", input)
	}
}

func TestPrepareInputStripsNoise(t *testing.T) {
	m := Model{Key: "m", MaxInputWords: 1000}
	content := "The argument stands [citation needed] as made (Reuters) today. Read more: elsewhere"

	input := prepareInput("", content, m)
	for _, junk := range []string{"[citation needed]", "(Reuters)", "Read more"} {
		if strings.Contains(input, junk) {
			t.Errorf("noise %q survived: %q", junk, input)
		}
	}
	if !strings.Contains(input, "The argument stands") {
		t.Errorf("real content lost: %q", input)
	}
}

func TestPostProcess(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Summary: The point stands.", "The point stands."},
		{"In conclusion, it  works", "it works."},
		{"Already terminal!", "Already terminal!"},
		{"  spaced   out  ", "spaced out."},
		{"", ""},
	}
	for _, tc := range cases {
		if got := postProcess(tc.in); got != tc.want {
			t.Errorf("postProcess(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildPromptLanguageFallback(t *testing.T) {
	hi := BuildPrompt("content", "hi")
	en := BuildPrompt("content", "en")
	unknown := BuildPrompt("content", "xx")

	if hi == en {
		t.Error("hi prompt identical to en prompt")
	}
	if unknown != en {
		t.Error("unknown language must fall back to the English template")
	}
	if !strings.Contains(en, "content") {
		t.Error("content not interpolated into prompt")
	}
}
