package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FetchError is the terminal failure of a fetch, carrying the last
// underlying cause. Permanent errors (4xx, misconfiguration) are never
// retried; transient ones (timeouts, connection errors, 5xx) are retried up
// to the configured limit.
type FetchError struct {
	URL       string
	Attempts  int
	Status    int
	Permanent bool
	Err       error
}

func (e *FetchError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("fetch %s: %s failure after %d attempt(s): %v", e.URL, kind, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsPermanent reports whether err is a fetch failure that retrying cannot fix.
func IsPermanent(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Permanent
}

// FetcherOptions tune retry and courtesy-throttling behavior.
type FetcherOptions struct {
	Timeout    time.Duration
	MaxRetries int
	// BaseDelay is the first backoff delay; it doubles on each retry.
	BaseDelay time.Duration
	// RequestDelay is applied before every attempt, not only retries.
	RequestDelay time.Duration
	UserAgent    string
}

func DefaultFetcherOptions() FetcherOptions {
	return FetcherOptions{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		BaseDelay:  time.Second,
		UserAgent:  "ednews/1.0 (+https://github.com/ednews/ednews)",
	}
}

// Fetcher retrieves raw feed bytes over HTTP.
type Fetcher struct {
	client *http.Client
	opts   FetcherOptions
}

func NewFetcher(opts FetcherOptions) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

// Fetch retrieves url, retrying transport-level failures and 5xx responses
// with exponential backoff. 4xx responses fail immediately.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f.FetchWithDelay(ctx, url, f.opts.RequestDelay)
}

// FetchWithDelay is Fetch with a caller-supplied courtesy delay, letting
// sources carry their own pacing policy instead of the fetcher-wide default.
func (f *Fetcher) FetchWithDelay(ctx context.Context, url string, requestDelay time.Duration) ([]byte, error) {
	attempts := f.opts.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	delay := f.opts.BaseDelay
	var lastErr error
	var lastStatus int

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, &FetchError{URL: url, Attempts: attempt - 1, Err: ctx.Err()}
			case <-time.After(delay):
			}
			delay *= 2
		}

		// Courtesy delay before every attempt.
		if requestDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, &FetchError{URL: url, Attempts: attempt - 1, Err: ctx.Err()}
			case <-time.After(requestDelay):
			}
		}

		body, status, err := f.doRequest(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		lastStatus = status

		if status >= 400 && status < 500 {
			return nil, &FetchError{URL: url, Attempts: attempt, Status: status, Permanent: true, Err: err}
		}
	}

	return nil, &FetchError{URL: url, Attempts: attempts, Status: lastStatus, Err: lastErr}
}

func (f *Fetcher) doRequest(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		// Malformed URL: treat as a client error, not worth retrying.
		return nil, http.StatusBadRequest, err
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading body: %w", err)
	}
	return body, resp.StatusCode, nil
}
