package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"plantmerge/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Rebuild the output directory from the configured datasets",
		Long: "Reset the output directory and fill it with plantNNNNN_dayDD.png sequences.\n" +
			"Every run starts numbering from 1, so previous output is replaced.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			summary, err := pipeline.Run(signalCtx, cfg, logger, pipeline.Options{DryRun: dryRun})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderSummary(summary, shouldColorize(out)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan and report without touching the output directory")
	cmd.Flags().StringVar(&ctx.overrides.SourceRoot, "source-root", "", "Override paths.source_root")
	cmd.Flags().StringVar(&ctx.overrides.OutputDir, "output", "", "Override paths.output_dir")
	return cmd
}
