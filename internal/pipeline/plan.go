package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"plantmerge/internal/config"
	"plantmerge/internal/discover"
	"plantmerge/internal/logging"
	"plantmerge/internal/selection"
	"plantmerge/internal/sequence"
)

// datasetPlan holds the groups one dataset contributes.
type datasetPlan struct {
	Label   string
	Root    string
	Folders int
	Groups  []sequence.Group
	Bytes   int64
}

// plan is the full ordered set of groups for a run.
type plan struct {
	Datasets []datasetPlan
	NextID   int
}

// checkRoots fails on the first dataset root that is missing or not a directory.
func checkRoots(cfg *config.Config) error {
	for _, ds := range cfg.Datasets {
		if err := discover.CheckRoot(cfg.DatasetRoot(ds)); err != nil {
			return fmt.Errorf("dataset %s: %w", ds.Label, err)
		}
	}
	return nil
}

// buildPlan walks every dataset in configured order and numbers complete
// groups from 1.
func buildPlan(ctx context.Context, cfg *config.Config, logger *slog.Logger) (plan, error) {
	result := plan{NextID: 1}
	for _, ds := range cfg.Datasets {
		if err := ctx.Err(); err != nil {
			return plan{}, err
		}
		dsLogger := datasetLogger(logger, ds.Label)

		dp, next, err := planDataset(cfg, ds, result.NextID, dsLogger)
		if err != nil {
			return plan{}, fmt.Errorf("dataset %s: %w", ds.Label, err)
		}
		dsLogger.Info("dataset planned",
			logging.Int("groups", len(dp.Groups)),
			logging.Int("next_id", next),
		)
		result.Datasets = append(result.Datasets, dp)
		result.NextID = next
	}
	return result, nil
}

func datasetLogger(logger *slog.Logger, label string) *slog.Logger {
	return logger.With(logging.String(logging.FieldDataset, label))
}

func planDataset(cfg *config.Config, ds config.Dataset, nextID int, logger *slog.Logger) (datasetPlan, int, error) {
	root := cfg.DatasetRoot(ds)
	dp := datasetPlan{Label: ds.Label, Root: root}

	folders, err := discover.FindFolders(root, cfg.Selection.TargetFolder, logger)
	if err != nil {
		return dp, nextID, err
	}
	dp.Folders = len(folders)
	logger.Info("folders located",
		logging.Int("folders", len(folders)),
		logging.String("root", root),
	)

	rule := selection.RuleFor(cfg.Selection, ds)
	for _, folder := range folders {
		names, err := discover.ListFiles(folder)
		if err != nil {
			return dp, nextID, err
		}
		selected := rule.Select(names)

		var groups []sequence.Group
		groups, nextID = sequence.Plan(folder, selected, cfg.Grouping.ChunkSize, nextID)
		logger.Debug("folder planned",
			logging.String("folder", folder),
			logging.Int("files", len(names)),
			logging.Int("selected", len(selected)),
			logging.Int("groups", len(groups)),
		)
		for _, g := range groups {
			size, err := groupBytes(g)
			if err != nil {
				return dp, nextID, err
			}
			dp.Bytes += size
		}
		dp.Groups = append(dp.Groups, groups...)
	}
	return dp, nextID, nil
}

func groupBytes(g sequence.Group) (int64, error) {
	var total int64
	for _, m := range g.Members {
		info, err := os.Stat(m.Source)
		if err != nil {
			return 0, fmt.Errorf("stat %s: %w", m.Source, err)
		}
		total += info.Size()
	}
	return total, nil
}
