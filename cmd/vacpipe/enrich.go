package main

import (
	"context"

	"github.com/arodionov/vacpipe/internal/model"
	"github.com/arodionov/vacpipe/internal/pipeline"
	"github.com/spf13/cobra"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Extract keyphrases for vacancies that lack them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage("enrich", func(ctx context.Context, p *pipeline.Pipeline, r *model.Report) error {
			return p.Enrich(ctx, r)
		})
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}
