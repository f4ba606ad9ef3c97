package source

import "time"

// responseTimeWeight is the EWMA weight given to the newest sample.
const responseTimeWeight = 0.2

// Outcome is the result of one fetch attempt against a source.
type Outcome struct {
	Success      bool
	Error        string
	ArticleCount int
	ResponseTime time.Duration
}

// ShouldFetch reports whether the source is due: it must be active and either
// never fetched or past its fetch interval.
func ShouldFetch(s *Source, now time.Time) bool {
	if !s.Active {
		return false
	}
	if s.LastFetched.IsZero() {
		return true
	}
	return now.Sub(s.LastFetched) >= s.FetchInterval
}

// RecordOutcome folds one fetch outcome into the source's health state.
// Pure with respect to its inputs; no I/O.
func RecordOutcome(s *Source, now time.Time, out Outcome) {
	if out.Success {
		s.TotalSuccesses++
		s.ConsecutiveErrors = 0
		s.LastError = ""
		s.LastFetched = now
		s.LastSuccess = now
		s.TotalArticlesFetched += out.ArticleCount
	} else {
		s.TotalFailures++
		s.ConsecutiveErrors++
		s.LastError = out.Error
	}

	s.Status = statusFor(s.ConsecutiveErrors, s.Status)

	attempts := s.Attempts()
	if attempts > 0 {
		s.SuccessRate = float64(s.TotalSuccesses) / float64(attempts)
		s.AvgArticlesPerFetch = float64(s.TotalArticlesFetched) / float64(attempts)
	}

	if out.ResponseTime > 0 {
		sample := out.ResponseTime.Seconds()
		if s.AvgResponseTime == 0 {
			s.AvgResponseTime = sample
		} else {
			s.AvgResponseTime = s.AvgResponseTime*(1-responseTimeWeight) + sample*responseTimeWeight
		}
	}
}

// statusFor maps a consecutive-error count onto a health status. A single
// error leaves the previous categorization in place; two or more degrade it.
func statusFor(consecutiveErrors int, prev HealthStatus) HealthStatus {
	switch {
	case consecutiveErrors == 0:
		return StatusHealthy
	case consecutiveErrors >= 5:
		return StatusError
	case consecutiveErrors >= 2:
		return StatusWarning
	default:
		if prev == "" {
			return StatusHealthy
		}
		return prev
	}
}
