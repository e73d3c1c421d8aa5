package main

import (
	"context"

	"github.com/arodionov/vacpipe/internal/model"
	"github.com/arodionov/vacpipe/internal/pipeline"
	"github.com/spf13/cobra"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Convert stored salaries to the target currency and clean text",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage("normalize", func(ctx context.Context, p *pipeline.Pipeline, r *model.Report) error {
			return p.Normalize(ctx, r)
		})
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}
