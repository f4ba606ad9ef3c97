package source

import (
	"testing"
	"time"
)

func newTestSource() *Source {
	return &Source{
		ID:            "test",
		Kind:          KindFeed,
		Active:        true,
		FetchInterval: time.Hour,
		Status:        StatusHealthy,
	}
}

func TestShouldFetchNeverFetched(t *testing.T) {
	s := newTestSource()
	if !ShouldFetch(s, time.Now()) {
		t.Fatal("expected never-fetched active source to be due")
	}
}

func TestShouldFetchInactive(t *testing.T) {
	s := newTestSource()
	s.Active = false
	if ShouldFetch(s, time.Now()) {
		t.Fatal("inactive source must never be due")
	}
}

func TestShouldFetchRespectsInterval(t *testing.T) {
	s := newTestSource()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	RecordOutcome(s, now, Outcome{Success: true, ArticleCount: 3})

	if ShouldFetch(s, now) {
		t.Error("source due immediately after a successful outcome")
	}
	if ShouldFetch(s, now.Add(59*time.Minute)) {
		t.Error("source due before the fetch interval elapsed")
	}
	if !ShouldFetch(s, now.Add(time.Hour)) {
		t.Error("source not due after the fetch interval elapsed")
	}
}

func TestStatusTransitions(t *testing.T) {
	now := time.Now()

	s := newTestSource()
	for i := 1; i <= 5; i++ {
		RecordOutcome(s, now, Outcome{Success: false, Error: "timeout"})

		var want HealthStatus
		switch {
		case i >= 5:
			want = StatusError
		case i >= 2:
			want = StatusWarning
		default:
			want = StatusHealthy // single error keeps prior categorization
		}
		if s.Status != want {
			t.Errorf("after %d failures: status = %s, want %s", i, s.Status, want)
		}
	}

	RecordOutcome(s, now, Outcome{Success: true})
	if s.ConsecutiveErrors != 0 {
		t.Errorf("consecutive errors = %d after success, want 0", s.ConsecutiveErrors)
	}
	if s.Status != StatusHealthy {
		t.Errorf("status = %s after success, want healthy", s.Status)
	}
	if s.LastError != "" {
		t.Errorf("last error not cleared: %q", s.LastError)
	}
}

func TestSingleErrorKeepsWarning(t *testing.T) {
	now := time.Now()

	s := newTestSource()
	RecordOutcome(s, now, Outcome{Success: false, Error: "x"})
	RecordOutcome(s, now, Outcome{Success: false, Error: "x"})
	if s.Status != StatusWarning {
		t.Fatalf("status = %s, want warning", s.Status)
	}

	RecordOutcome(s, now, Outcome{Success: true})
	RecordOutcome(s, now, Outcome{Success: false, Error: "x"})
	if s.Status != StatusHealthy {
		t.Errorf("one error after recovery: status = %s, want healthy (unchanged)", s.Status)
	}
}

func TestFetchStats(t *testing.T) {
	now := time.Now()

	s := newTestSource()
	RecordOutcome(s, now, Outcome{Success: true, ArticleCount: 10, ResponseTime: time.Second})
	RecordOutcome(s, now, Outcome{Success: false, Error: "boom"})
	RecordOutcome(s, now, Outcome{Success: true, ArticleCount: 5, ResponseTime: 2 * time.Second})

	if got := s.Attempts(); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}
	if want := 15.0 / 3.0; s.AvgArticlesPerFetch != want {
		t.Errorf("avg articles per fetch = %f, want %f", s.AvgArticlesPerFetch, want)
	}
	if want := 2.0 / 3.0; s.SuccessRate != want {
		t.Errorf("success rate = %f, want %f", s.SuccessRate, want)
	}
	// EWMA: 1.0*0.8 + 2.0*0.2 = 1.2
	if want := 1.2; !closeTo(s.AvgResponseTime, want) {
		t.Errorf("avg response time = %f, want %f", s.AvgResponseTime, want)
	}
}

func TestRecordOutcomeDeterministic(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	outcomes := []Outcome{
		{Success: true, ArticleCount: 4, ResponseTime: 500 * time.Millisecond},
		{Success: false, Error: "503"},
		{Success: false, Error: "timeout"},
		{Success: true, ArticleCount: 2, ResponseTime: time.Second},
	}

	a, b := newTestSource(), newTestSource()
	for _, out := range outcomes {
		RecordOutcome(a, now, out)
		RecordOutcome(b, now, out)
	}

	if a.Status != b.Status || a.ConsecutiveErrors != b.ConsecutiveErrors ||
		a.SuccessRate != b.SuccessRate || a.AvgArticlesPerFetch != b.AvgArticlesPerFetch ||
		a.AvgResponseTime != b.AvgResponseTime {
		t.Errorf("identical outcome sequences diverged: %+v vs %+v", a, b)
	}
}

func closeTo(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
