package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ednews/internal/config"
	"ednews/internal/feed"
	"ednews/internal/ingest"
	"ednews/internal/logger"
	"ednews/internal/metrics"
	"ednews/internal/scraper"
	"ednews/internal/store"
	"ednews/internal/summarize"
)

func main() {
	_ = godotenv.Load()
	logger.Init()
	log := logger.With("main")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration invalid")
	}

	sources, err := config.LoadSources(cfg.SourcesConfigPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.SourcesConfigPath).Msg("source catalog unreadable")
	}
	log.Info().Int("sources", len(sources)).Msg("source catalog loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: Postgres when configured, otherwise in-process.
	var (
		articles store.ArticleStore
		sink     store.HealthSink
	)
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(cfg.DatabaseURL, logger.With("store"))
		if err != nil {
			log.Fatal().Err(err).Msg("postgres unavailable")
		}
		defer pg.Close()
		if err := pg.SyncSources(ctx, sources); err != nil {
			log.Fatal().Err(err).Msg("source sync failed")
		}
		if err := pg.LoadHealth(ctx, sources); err != nil {
			log.Warn().Err(err).Msg("health restore failed, starting fresh")
		}
		articles = pg
		sink = pg
	} else {
		log.Warn().Msg("DATABASE_URL not set, using in-memory store")
		mem := store.NewMemoryStore()
		for _, src := range sources {
			mem.AddSource(src)
		}
		articles = mem
	}
	registry := store.NewRegistry(sources, sink)

	// Ingestion pipeline.
	fetchOpts := feed.DefaultFetcherOptions()
	fetchOpts.Timeout = cfg.FetchTimeout
	fetchOpts.MaxRetries = cfg.RetryAttempts
	fetchOpts.BaseDelay = cfg.RetryDelay
	fetcher := feed.NewFetcher(fetchOpts)

	orchestrator := ingest.NewOrchestrator(
		registry,
		articles,
		fetcher,
		feed.NewExtractor(logger.With("extract")),
		scraper.New(fetcher, logger.With("scraper")),
		ingest.Options{MaxConcurrentSources: cfg.MaxConcurrentSources},
		logger.With("ingest"),
	)

	// Summarization.
	var remote summarize.Backend
	if cfg.GeminiAPIKey != "" {
		gemini, err := summarize.NewGeminiBackend(ctx, cfg.GeminiAPIKey, logger.With("gemini"))
		if err != nil {
			log.Fatal().Err(err).Msg("gemini backend init failed")
		}
		remote = gemini
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, remote models disabled")
	}
	local := summarize.NewLocalBackend(cfg.LocalInferenceURL, 0, logger.With("local-model"))
	checkCtx, cancelCheck := context.WithTimeout(ctx, 5*time.Second)
	if !local.IsAvailable(checkCtx) {
		log.Warn().Str("url", cfg.LocalInferenceURL).Msg("local inference service unreachable, local models will fail until it comes up")
	}
	cancelCheck()

	router := summarize.NewRouter(local, remote, summarize.RouterOptions{
		CacheTTL:     cfg.SummaryCacheTTL,
		RemoteBudget: cfg.MaxRemoteRequests,
		RemoteWindow: time.Minute,
	}, logger.With("summarize"))
	defer router.Close()

	batcher := summarize.NewBatcher(router, summarize.BatchOptions{
		BatchSize:    cfg.SummaryBatchSize,
		ItemTimeout:  cfg.SummaryItemTimeout,
		BatchTimeout: cfg.SummaryBatchTimeout,
	}, logger.With("summarize"))

	go startMonitoringServer(cfg.MonitorAddr)

	runPipeline(ctx, cfg, orchestrator, batcher, articles)
	log.Info().Msg("shutdown complete")
}

// runPipeline alternates ingestion cycles and pending-summary runs until the
// context is cancelled.
func runPipeline(
	ctx context.Context,
	cfg *config.Config,
	orchestrator *ingest.Orchestrator,
	batcher *summarize.Batcher,
	articles store.ArticleStore,
) {
	log := logger.With("pipeline")

	runOnce := func() {
		stats, err := orchestrator.RunCycle(ctx, time.Now().UTC())
		if err != nil {
			metrics.Global.SetError(err.Error())
			log.Error().Err(err).Msg("ingestion cycle failed")
			return
		}
		if stats.Inserted > 0 || stats.SourcesFetched > 0 {
			if _, err := batcher.RunPending(ctx, articles, cfg.DefaultSummaryModel, 0); err != nil {
				log.Warn().Err(err).Msg("summary persistence had failures")
			}
		}
	}

	runOnce()

	ticker := time.NewTicker(cfg.IngestInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

func startMonitoringServer(addr string) {
	log := logger.With("monitor")

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/metrics", metricsHandler)

	log.Info().Str("addr", addr).Msg("monitoring server listening")
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Error().Err(err).Msg("monitoring server stopped")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	if !stats["is_healthy"].(bool) {
		status = "error"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response := map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metrics.Global.GetStats())
}
