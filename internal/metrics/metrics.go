package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Ingestion counters
	SourcesFetched     int64
	FetchFailures      int64
	ArticlesExtracted  int64
	ArticlesInserted   int64
	DuplicatesFiltered int64
	EntriesSkipped     int64

	// Summarization counters
	SummariesGenerated int64
	SummaryFailures    int64
	SummaryCacheHits   int64

	// Timings
	LastCycleTime    time.Duration
	TotalCycleTime   time.Duration
	CycleCount       int64
	AverageCycleTime time.Duration

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) IncrementSourcesFetched() { m.add(&m.SourcesFetched) }
func (m *Metrics) IncrementFetchFailures()  { m.add(&m.FetchFailures) }

func (m *Metrics) AddArticlesExtracted(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesExtracted += int64(n)
}

func (m *Metrics) IncrementArticlesInserted()   { m.add(&m.ArticlesInserted) }
func (m *Metrics) IncrementDuplicatesFiltered() { m.add(&m.DuplicatesFiltered) }
func (m *Metrics) IncrementEntriesSkipped()     { m.add(&m.EntriesSkipped) }
func (m *Metrics) IncrementSummariesGenerated() { m.add(&m.SummariesGenerated) }
func (m *Metrics) IncrementSummaryFailures()    { m.add(&m.SummaryFailures) }
func (m *Metrics) IncrementSummaryCacheHits()   { m.add(&m.SummaryCacheHits) }

func (m *Metrics) add(counter *int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*counter++
}

func (m *Metrics) RecordCycleTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastCycleTime = duration
	m.TotalCycleTime += duration
	m.CycleCount++
	m.AverageCycleTime = m.TotalCycleTime / time.Duration(m.CycleCount)
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"sources_fetched":      m.SourcesFetched,
		"fetch_failures":       m.FetchFailures,
		"articles_extracted":   m.ArticlesExtracted,
		"articles_inserted":    m.ArticlesInserted,
		"duplicates_filtered":  m.DuplicatesFiltered,
		"entries_skipped":      m.EntriesSkipped,
		"summaries_generated":  m.SummariesGenerated,
		"summary_failures":     m.SummaryFailures,
		"summary_cache_hits":   m.SummaryCacheHits,
		"last_cycle_time_ms":   m.LastCycleTime.Milliseconds(),
		"avg_cycle_time_ms":    m.AverageCycleTime.Milliseconds(),
		"last_run_time":        m.LastRunTime.Format(time.RFC3339),
		"last_error_time":      m.LastErrorTime.Format(time.RFC3339),
		"last_error":           m.LastError,
		"is_healthy":           m.IsHealthy,
	}
}
