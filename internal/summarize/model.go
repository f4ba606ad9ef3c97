// Package summarize routes article summarization to local-inference and
// remote-API backends, keyed by model name, with shared input preparation
// and output cleanup.
package summarize

import (
	"regexp"
	"strings"
)

// BackendKind selects which backend serves a model.
type BackendKind string

const (
	KindLocal  BackendKind = "local"
	KindRemote BackendKind = "remote"
)

// Model describes one summarization model and its length bounds. Input is
// bounded in words, output in backend-native tokens.
type Model struct {
	Key           string
	Name          string
	Kind          BackendKind
	MaxInputWords int
	MaxOutput     int
	MinOutput     int
}

// DefaultModels is the router's built-in model table.
func DefaultModels() map[string]Model {
	models := []Model{
		{Key: "bart-large-cnn", Name: "facebook/bart-large-cnn", Kind: KindLocal, MaxInputWords: 1024, MaxOutput: 150, MinOutput: 50},
		{Key: "pegasus-xsum", Name: "google/pegasus-xsum", Kind: KindLocal, MaxInputWords: 512, MaxOutput: 128, MinOutput: 32},
		{Key: "t5-small", Name: "t5-small", Kind: KindLocal, MaxInputWords: 512, MaxOutput: 150, MinOutput: 50},
		{Key: "gemini-1.5-flash", Name: "gemini-1.5-flash", Kind: KindRemote, MaxInputWords: 4000, MaxOutput: 200, MinOutput: 50},
		{Key: "gemini-1.5-pro", Name: "gemini-1.5-pro", Kind: KindRemote, MaxInputWords: 8000, MaxOutput: 300, MinOutput: 50},
	}

	table := make(map[string]Model, len(models))
	for _, m := range models {
		table[m.Key] = m
	}
	return table
}

var wsRe = regexp.MustCompile(`\s+`)

// Noise stripped from bodies before summarization: bracketed citations, wire
// agency tags, and trailing engagement boilerplate.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\[[^\]]*\]`),
	regexp.MustCompile(`(?i)\(Reuters\)`),
	regexp.MustCompile(`(?i)\(AP\)`),
	regexp.MustCompile(`(?i)\(PTI\)`),
	regexp.MustCompile(`(?i)Read more:.*`),
	regexp.MustCompile(`(?i)Also read:.*`),
	regexp.MustCompile(`(?i)Click here.*`),
	regexp.MustCompile(`(?i)Subscribe.*`),
}

// Leading phrases models tend to emit that carry no content.
var summaryArtifacts = []string{
	"Summary:",
	"In summary,",
	"To summarize,",
	"In conclusion,",
}

// prepareInput concatenates title and cleaned body, then truncates to the
// model's input word budget.
func prepareInput(title, content string, m Model) string {
	cleaned := cleanContent(content)

	full := cleaned
	if title != "" {
		full = title + "\n\n" + cleaned
	}

	words := strings.Fields(full)
	if len(words) > m.MaxInputWords {
		words = words[:m.MaxInputWords]
	}
	return strings.Join(words, " ")
}

func cleanContent(content string) string {
	content = wsRe.ReplaceAllString(content, " ")
	for _, pattern := range noisePatterns {
		content = pattern.ReplaceAllString(content, "")
	}
	return strings.TrimSpace(content)
}

// postProcess strips leading artifacts, collapses whitespace, and guarantees
// terminal punctuation.
func postProcess(summary string) string {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return ""
	}

	for _, artifact := range summaryArtifacts {
		if len(summary) >= len(artifact) && strings.EqualFold(summary[:len(artifact)], artifact) {
			summary = strings.TrimSpace(summary[len(artifact):])
		}
	}

	summary = wsRe.ReplaceAllString(summary, " ")
	if summary != "" && !strings.ContainsAny(summary[len(summary)-1:], ".!?") {
		summary += "."
	}
	return summary
}
