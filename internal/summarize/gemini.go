package summarize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"ednews/internal/retry"
)

// GeminiBackend serves remote models through the Gemini API.
type GeminiBackend struct {
	client *genai.Client
	retry  retry.Config
	log    zerolog.Logger
}

func NewGeminiBackend(ctx context.Context, apiKey string, log zerolog.Logger) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini backend: missing API key")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiBackend{
		client: client,
		retry:  retry.Config{MaxAttempts: 2, Delay: 2 * time.Second, Backoff: true},
		log:    log,
	}, nil
}

func (g *GeminiBackend) Summarize(ctx context.Context, m Model, input, language string) (string, error) {
	model := g.client.GenerativeModel(m.Name)
	model.SetTemperature(0.3)
	model.SetTopP(1.0)
	model.SetMaxOutputTokens(int32(m.MaxOutput))
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SystemInstruction(language))},
	}

	prompt := BuildPrompt(input, language)

	var resp *genai.GenerateContentResponse
	err := retry.WithRetry(ctx, g.retry, func() error {
		var callErr error
		resp, callErr = model.GenerateContent(ctx, genai.Text(prompt))
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return "", ErrEmptyResult
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

func (g *GeminiBackend) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
