package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/arodionov/vacpipe/internal/model"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: ingest, normalize, enrich",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	logger.Info("config loaded",
		"search", cfg.Search.Text,
		"area", cfg.Search.Area,
		"max_pages", cfg.Search.MaxPages,
		"target_currency", cfg.Rates.TargetCurrency,
		"store", cfg.Store.Path,
	)

	p, st, err := buildPipeline(cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report := p.Run(ctx)
	if report.Status == model.StatusFailure {
		return fmt.Errorf("pipeline run failed")
	}
	return nil
}
