package main

import (
	"context"

	"github.com/arodionov/vacpipe/internal/model"
	"github.com/arodionov/vacpipe/internal/pipeline"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch vacancy listings and persist new ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage("ingest", func(ctx context.Context, p *pipeline.Pipeline, r *model.Report) error {
			return p.Ingest(ctx, r)
		})
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
