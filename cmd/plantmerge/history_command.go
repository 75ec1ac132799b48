package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"plantmerge/internal/manifest"
	"plantmerge/internal/sequence"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded merge runs, or the groups of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Manifest.Enabled {
				return errors.New("manifest is disabled (set manifest.enabled = true)")
			}
			store, err := manifest.Open(cfg.Manifest.Path)
			if err != nil {
				return fmt.Errorf("open manifest: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if len(args) == 1 {
				return showRun(cmd, store, strings.TrimSpace(args[0]), colorize)
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRunsTable(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

func showRun(cmd *cobra.Command, store *manifest.Store, id string, colorize bool) error {
	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		if errors.Is(err, manifest.ErrRunNotFound) {
			return fmt.Errorf("run %s not found", id)
		}
		return err
	}
	groups, err := store.ListGroups(cmd.Context(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, line := range renderSectionHeader("Run "+run.ID, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Status", runStatusKind(run.Status), string(run.Status), colorize))
	fmt.Fprintln(out, renderStatusLine("Started", statusInfo, run.StartedAt.Local().Format(time.DateTime), colorize))
	if run.FinishedAt != nil {
		fmt.Fprintln(out, renderStatusLine("Duration", statusInfo, run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String(), colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Output", statusInfo, run.OutputDir, colorize))
	fmt.Fprintln(out, renderStatusLine("Totals", statusInfo,
		fmt.Sprintf("%d groups, %d files, %s", run.TotalGroups, run.TotalFiles, humanize.Bytes(uint64(run.TotalBytes))), colorize))
	if run.Error != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, run.Error, colorize))
	}
	if len(groups) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{
			strconv.Itoa(g.GroupID),
			strings.TrimSuffix(sequence.OutputName(g.GroupID, 1), "_day01"+sequence.OutputExt),
			g.Dataset,
			g.Folder,
		})
	}
	fmt.Fprintln(out, renderTable([]string{"Group", "Prefix", "Dataset", "Folder"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}))
	return nil
}

func renderRunsTable(runs []*manifest.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			humanize.Time(run.StartedAt),
			string(run.Status),
			strconv.Itoa(run.TotalGroups),
			strconv.Itoa(run.TotalFiles),
			humanize.Bytes(uint64(run.TotalBytes)),
		})
	}
	headers := []string{"Run", "Started", "Status", "Groups", "Files", "Size"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight}
	return renderTable(headers, rows, aligns)
}

func runStatusKind(status manifest.RunStatus) statusKind {
	switch status {
	case manifest.RunStatusCompleted:
		return statusOK
	case manifest.RunStatusFailed:
		return statusError
	default:
		return statusWarn
	}
}
