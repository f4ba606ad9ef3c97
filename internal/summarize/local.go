package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LocalBackend talks to a local inference service over HTTP. Models are
// loaded lazily on first use and tracked in a registry so Close can unload
// everything the process warmed up.
type LocalBackend struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger

	mu     sync.Mutex
	loaded map[string]bool
}

func NewLocalBackend(baseURL string, timeout time.Duration, log zerolog.Logger) *LocalBackend {
	if baseURL == "" {
		baseURL = "http://localhost:8090"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &LocalBackend{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
		loaded:     make(map[string]bool),
	}
}

// IsAvailable checks whether the inference service answers.
func (b *LocalBackend) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (b *LocalBackend) Summarize(ctx context.Context, m Model, input, language string) (string, error) {
	if err := b.ensureLoaded(ctx, m); err != nil {
		return "", err
	}

	reqBody := map[string]any{
		"model":      m.Name,
		"text":       input,
		"max_length": m.MaxOutput,
		"min_length": m.MinOutput,
	}

	var result struct {
		Summary string `json:"summary"`
	}
	if err := b.post(ctx, "/summarize", reqBody, &result); err != nil {
		return "", err
	}
	if result.Summary == "" {
		return "", ErrEmptyResult
	}
	return result.Summary, nil
}

// ensureLoaded asks the service to load the model the first time it is used.
func (b *LocalBackend) ensureLoaded(ctx context.Context, m Model) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.loaded[m.Name] {
		return nil
	}
	if err := b.post(ctx, "/models/load", map[string]any{"model": m.Name}, nil); err != nil {
		return fmt.Errorf("load model %s: %w", m.Name, err)
	}
	b.loaded[m.Name] = true
	b.log.Info().Str("model", m.Name).Msg("local model loaded")
	return nil
}

// Close unloads every model this backend warmed up. Unload failures are
// logged, not returned, since the service reclaims memory on restart anyway.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for name := range b.loaded {
		if err := b.post(ctx, "/models/unload", map[string]any{"model": name}, nil); err != nil {
			b.log.Warn().Err(err).Str("model", name).Msg("model unload failed")
		}
		delete(b.loaded, name)
	}
	return nil
}

func (b *LocalBackend) post(ctx context.Context, path string, body map[string]any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("inference service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("inference service %s: status %d: %s", path, resp.StatusCode, bytes.TrimSpace(payload))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
