package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ednews/internal/source"
)

// SourcesConfig is the YAML catalog structure:
//
// sources:
//   - id: hindu-editorial
//     kind: feed
//     endpoint:
//       feed_url: https://...
type SourcesConfig struct {
	Sources []*source.Source `yaml:"sources"`
}

// LoadSources reads the source catalog from a YAML file and applies
// per-source defaults.
func LoadSources(path string) ([]*source.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg SourcesConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	seen := make(map[string]bool, len(cfg.Sources))
	for _, src := range cfg.Sources {
		if src.ID == "" {
			return nil, fmt.Errorf("%s: source without id", path)
		}
		if seen[src.ID] {
			return nil, fmt.Errorf("%s: duplicate source id %q", path, src.ID)
		}
		seen[src.ID] = true

		applyDefaults(src)
		if src.FetchURL() == "" {
			return nil, fmt.Errorf("%s: source %q has no endpoint URL for kind %q", path, src.ID, src.Kind)
		}
	}

	return cfg.Sources, nil
}

func applyDefaults(src *source.Source) {
	if src.Kind == "" {
		src.Kind = source.KindFeed
	}
	if src.Language == "" {
		src.Language = "en"
	}
	if src.FetchInterval <= 0 {
		src.FetchInterval = 30 * time.Minute
	}
	if src.MaxArticlesPerFetch <= 0 {
		src.MaxArticlesPerFetch = 20
	}
	if src.Status == "" {
		src.Status = source.StatusHealthy
	}
}
