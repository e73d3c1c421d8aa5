package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/arodionov/vacpipe/internal/config"
	"github.com/arodionov/vacpipe/internal/hh"
	"github.com/arodionov/vacpipe/internal/keyphrase"
	"github.com/arodionov/vacpipe/internal/model"
	"github.com/arodionov/vacpipe/internal/pipeline"
	"github.com/arodionov/vacpipe/internal/ratelimit"
	"github.com/arodionov/vacpipe/internal/rates"
	"github.com/arodionov/vacpipe/internal/store"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "vacpipe",
	Short: "Vacancy pipeline — fetch, normalize, enrich",
	Long:  "Vacpipe ingests vacancy listings into SQLite, converts salaries to a single currency, and extracts ranked keyphrases from posting text.",
	// Default to `run` so that `vacpipe` with no args executes the full pipeline.
	RunE: runRun,
	// Errors are logged where they happen; keep cobra from re-printing them
	// with a usage dump.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: VACPIPE_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > VACPIPE_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("VACPIPE_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupEmbedder(cfg *config.Config, logger *slog.Logger) keyphrase.Embedder {
	emb := cfg.Enrich.Embeddings
	if emb.Enabled {
		logger.Info("using embeddings API", "base_url", emb.BaseURL, "model", emb.Model)
		client := &http.Client{Timeout: emb.Timeout}
		return keyphrase.NewHTTPEmbedder(emb.BaseURL, emb.APIKey, emb.Model, client)
	}
	logger.Info("using built-in hash embedder")
	return keyphrase.NewHashEmbedder()
}

// buildPipeline wires every stage from config. The returned store is owned by
// the caller, which must Close it.
func buildPipeline(cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, *store.SQLiteStore, error) {
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return nil, nil, err
	}

	pacer := ratelimit.NewPacer(cfg.HH.PageDelay)
	hhClient := &http.Client{Timeout: cfg.HH.Timeout}
	fetcher := hh.NewFetcher(cfg.HH.BaseURL, cfg.HH.UserAgent, hh.Query{
		Text:           cfg.Search.Text,
		Area:           cfg.Search.Area,
		Specialization: cfg.Search.Specialization,
		PerPage:        cfg.Search.PerPage,
		MaxPages:       cfg.Search.MaxPages,
	}, hhClient, pacer, logger)

	ratesClient := rates.NewClient(cfg.Rates.BaseURL, &http.Client{Timeout: cfg.Rates.Timeout}, pacer, logger)
	converter := rates.NewNormalizer(rates.NewCachingSource(ratesClient), cfg.Rates.TargetCurrency)

	extractor := keyphrase.NewExtractor(setupEmbedder(cfg, logger), cfg.Enrich.TopN, cfg.Enrich.NgramMax)

	p := pipeline.New(st, fetcher, converter, extractor, cfg.Enrich.Workers, logger)
	return p, st, nil
}

// runStage executes a single pipeline stage with the shared setup: config,
// logger, store with schema, signal-aware context. Used by the ingest,
// normalize and enrich subcommands.
func runStage(name string, stage func(context.Context, *pipeline.Pipeline, *model.Report) error) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	p, st, err := buildPipeline(cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := st.EnsureSchema(ctx); err != nil {
		logger.Error("failed to create schema", "error", err)
		return err
	}

	report := model.Report{Status: model.StatusSuccess}
	stageErr := stage(ctx, p, &report)
	if stageErr != nil {
		logger.Error("stage failed", "stage", name, "error", stageErr)
	}

	logger.Info("stage complete",
		"stage", name,
		"pages", report.PagesFetched,
		"fetched", report.Fetched,
		"inserted", report.Inserted,
		"duplicates", report.DuplicatesSkipped,
		"normalized", report.Normalized,
		"enriched", report.Enriched,
		"failures", len(report.Failures),
	)
	for _, f := range report.Failures {
		logger.Warn("record failed", "stage", f.Stage, "vacancy", f.VacancyID, "error", f.Err)
	}
	return stageErr
}
