package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"plantmerge/internal/config"
	"plantmerge/internal/fileutil"
	"plantmerge/internal/logging"
	"plantmerge/internal/manifest"
	"plantmerge/internal/preflight"
	"plantmerge/internal/sequence"
)

// Options tunes a single run.
type Options struct {
	// DryRun plans and reports without resetting the output or copying.
	DryRun bool
	// Copier overrides the copy implementation. Defaults to
	// sequence.FileCopier honoring cfg.Copy.Verify.
	Copier sequence.Copier
}

// DatasetSummary reports what one dataset contributed.
type DatasetSummary struct {
	Label   string
	Root    string
	Folders int
	Groups  int
	Files   int
	Bytes   int64
	FirstID int // 0 when the dataset produced no groups
	LastID  int
}

// Summary reports the outcome of a run.
type Summary struct {
	RunID       string
	OutputDir   string
	DryRun      bool
	Datasets    []DatasetSummary
	TotalGroups int
	TotalFiles  int
	TotalBytes  int64
	NextID      int
	Duration    time.Duration
}

// Run executes a merge run for cfg. Nothing under the output directory is
// touched until every dataset has been planned and the free-space check has
// passed. A copy failure aborts the run; files copied before it remain.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*Summary, error) {
	if cfg == nil {
		return nil, errors.New("pipeline: nil config")
	}
	started := time.Now()
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "pipeline"))

	if err := checkRoots(cfg); err != nil {
		return nil, err
	}

	p, err := buildPlan(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	summary := summarize(p, runID, cfg.Paths.OutputDir, opts.DryRun)

	space, err := preflight.CheckFreeSpace(cfg.Paths.OutputDir, uint64(summary.TotalBytes))
	if err != nil {
		return nil, err
	}
	logger.Info("plan ready",
		logging.Int("groups", summary.TotalGroups),
		logging.Int("files", summary.TotalFiles),
		logging.Int64("bytes", summary.TotalBytes),
		logging.Bool("dry_run", opts.DryRun),
		logging.String("space", space.Detail),
	)

	if opts.DryRun {
		summary.Duration = time.Since(started)
		logger.Info("dry run complete, output untouched", logging.String("output", cfg.Paths.OutputDir))
		return summary, nil
	}

	lock, err := acquireOutputLock(cfg.Paths.OutputDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release output lock", logging.Error(err))
		}
	}()

	var store *manifest.Store
	if cfg.Manifest.Enabled {
		store, err = manifest.Open(cfg.Manifest.Path)
		if err != nil {
			return nil, fmt.Errorf("open manifest: %w", err)
		}
		defer store.Close()
		if _, err := store.BeginRun(ctx, runID, cfg.Paths.OutputDir); err != nil {
			return nil, err
		}
	}

	runErr := materialize(ctx, cfg, p, store, opts, logger)
	if store != nil {
		totals := manifest.RunTotals{Groups: summary.TotalGroups, Files: summary.TotalFiles, Bytes: summary.TotalBytes}
		if finishErr := store.FinishRun(context.WithoutCancel(ctx), runID, totals, runErr); finishErr != nil {
			logger.Warn("failed to finalize manifest run", logging.Error(finishErr))
		}
	}
	if runErr != nil {
		return nil, runErr
	}

	summary.Duration = time.Since(started)
	logger.Info("merge complete",
		logging.Int("total_groups", summary.TotalGroups),
		logging.Int("next_id", summary.NextID),
		logging.String("output", cfg.Paths.OutputDir),
		logging.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func materialize(ctx context.Context, cfg *config.Config, p plan, store *manifest.Store, opts Options, logger *slog.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fileutil.ResetDir(cfg.Paths.OutputDir); err != nil {
		return err
	}
	logger.Info("output directory reset", logging.String("output", cfg.Paths.OutputDir))

	copier := opts.Copier
	if copier == nil {
		copier = sequence.FileCopier{Verify: cfg.Copy.Verify}
	}

	runID, _ := logging.RunIDFromContext(ctx)
	for _, ds := range p.Datasets {
		dsLogger := datasetLogger(logger, ds.Label)
		for _, g := range ds.Groups {
			if err := ctx.Err(); err != nil {
				return err
			}
			artifacts, err := sequence.Materialize(g, cfg.Paths.OutputDir, copier)
			if err != nil {
				dsLogger.Error("group copy failed", logging.Int("group", g.ID), logging.Error(err))
				return err
			}
			if store != nil {
				if err := store.RecordGroup(ctx, manifestGroup(runID, ds.Label, g), manifestArtifacts(artifacts)); err != nil {
					return fmt.Errorf("record group %d: %w", g.ID, err)
				}
			}
			dsLogger.Debug("group copied", logging.Int("group", g.ID), logging.String("folder", g.Folder))
		}
		dsLogger.Info("dataset copied", logging.Int("groups", len(ds.Groups)))
	}
	return nil
}

func summarize(p plan, runID, outputDir string, dryRun bool) *Summary {
	s := &Summary{
		RunID:     runID,
		OutputDir: outputDir,
		DryRun:    dryRun,
		NextID:    p.NextID,
	}
	for _, ds := range p.Datasets {
		d := DatasetSummary{
			Label:   ds.Label,
			Root:    ds.Root,
			Folders: ds.Folders,
			Groups:  len(ds.Groups),
			Bytes:   ds.Bytes,
		}
		for _, g := range ds.Groups {
			d.Files += len(g.Members)
		}
		if n := len(ds.Groups); n > 0 {
			d.FirstID = ds.Groups[0].ID
			d.LastID = ds.Groups[n-1].ID
		}
		s.Datasets = append(s.Datasets, d)
		s.TotalFiles += d.Files
		s.TotalBytes += d.Bytes
	}
	s.TotalGroups = p.NextID - 1
	return s
}

func manifestGroup(runID, dataset string, g sequence.Group) manifest.Group {
	return manifest.Group{RunID: runID, GroupID: g.ID, Dataset: dataset, Folder: g.Folder}
}

func manifestArtifacts(artifacts []sequence.Artifact) []manifest.Artifact {
	out := make([]manifest.Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, manifest.Artifact{
			GroupID:    a.GroupID,
			Day:        a.Day,
			SourcePath: a.Source,
			OutputName: a.Output,
			Size:       a.Size,
			SHA256:     a.SHA256,
		})
	}
	return out
}
