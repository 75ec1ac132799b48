package manifest_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"plantmerge/internal/manifest"
	"plantmerge/internal/testsupport"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenManifest(t, cfg)

	ctx := context.Background()
	run := testsupport.BeginRun(t, store, "run-1", cfg.Paths.OutputDir)
	if run.Status != manifest.RunStatusRunning {
		t.Fatalf("expected running status, got %s", run.Status)
	}

	fetched, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if fetched.OutputDir != cfg.Paths.OutputDir || fetched.FinishedAt != nil {
		t.Fatalf("unexpected fetched run: %#v", fetched)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := manifest.Open(cfg.Manifest.Path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	testsupport.BeginRun(t, first, "run-a", "/out")
	first.Close()

	second := testsupport.MustOpenManifest(t, cfg)
	if _, err := second.GetRun(context.Background(), "run-a"); err != nil {
		t.Fatalf("expected run to survive reopen: %v", err)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := manifest.Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestRecordGroupAndFinishRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenManifest(t, cfg)
	ctx := context.Background()
	testsupport.BeginRun(t, store, "run-1", cfg.Paths.OutputDir)

	for id := 1; id <= 2; id++ {
		var artifacts []manifest.Artifact
		for day := 1; day <= 3; day++ {
			artifacts = append(artifacts, manifest.Artifact{
				GroupID:    id,
				Day:        day,
				SourcePath: fmt.Sprintf("/data/plant_ds1/p%d/segmented_images/img_%d_RGB1.png", id, day),
				OutputName: fmt.Sprintf("plant%05d_day%02d.png", id, day),
				Size:       10,
				SHA256:     "abc",
			})
		}
		group := manifest.Group{RunID: "run-1", GroupID: id, Dataset: "DS1", Folder: "/data/plant_ds1/p"}
		if err := store.RecordGroup(ctx, group, artifacts); err != nil {
			t.Fatalf("RecordGroup %d: %v", id, err)
		}
	}

	if err := store.FinishRun(ctx, "run-1", manifest.RunTotals{Groups: 2, Files: 6, Bytes: 60}, nil); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	run, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != manifest.RunStatusCompleted || run.TotalGroups != 2 || run.TotalFiles != 6 || run.TotalBytes != 60 {
		t.Fatalf("unexpected run totals: %#v", run)
	}
	if run.FinishedAt == nil || run.Error != "" {
		t.Fatalf("expected finished run without error: %#v", run)
	}

	groups, err := store.ListGroups(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListGroups: %v", err)
	}
	if len(groups) != 2 || groups[0].GroupID != 1 || groups[1].GroupID != 2 {
		t.Fatalf("unexpected groups: %#v", groups)
	}

	artifacts, err := store.ListArtifacts(ctx, "run-1", 2)
	if err != nil {
		t.Fatalf("ListArtifacts: %v", err)
	}
	if len(artifacts) != 3 || artifacts[0].OutputName != "plant00002_day01.png" || artifacts[2].Day != 3 {
		t.Fatalf("unexpected artifacts: %#v", artifacts)
	}
}

func TestRecordGroupRollsBackOnDuplicate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenManifest(t, cfg)
	ctx := context.Background()
	testsupport.BeginRun(t, store, "run-1", "/out")

	dup := []manifest.Artifact{
		{Day: 1, SourcePath: "/a", OutputName: "plant00001_day01.png", SHA256: "x"},
		{Day: 1, SourcePath: "/b", OutputName: "plant00001_day01.png", SHA256: "y"},
	}
	if err := store.RecordGroup(ctx, manifest.Group{RunID: "run-1", GroupID: 1, Dataset: "DS1", Folder: "/f"}, dup); err == nil {
		t.Fatal("expected duplicate day to fail")
	}
	groups, err := store.ListGroups(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListGroups: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("expected group insert to roll back, got %#v", groups)
	}
}

func TestFinishRunRecordsFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenManifest(t, cfg)
	ctx := context.Background()
	testsupport.BeginRun(t, store, "run-1", "/out")

	if err := store.FinishRun(ctx, "run-1", manifest.RunTotals{}, errors.New("copy failed")); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	run, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != manifest.RunStatusFailed || run.Error != "copy failed" {
		t.Fatalf("unexpected failed run: %#v", run)
	}
}

func TestUnknownRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenManifest(t, cfg)
	ctx := context.Background()

	if _, err := store.GetRun(ctx, "missing"); !errors.Is(err, manifest.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if err := store.FinishRun(ctx, "missing", manifest.RunTotals{}, nil); !errors.Is(err, manifest.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenManifest(t, cfg)
	ctx := context.Background()

	for _, id := range []string{"run-a", "run-b", "run-c"} {
		testsupport.BeginRun(t, store, id, "/out")
	}
	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-c" || runs[1].ID != "run-b" {
		t.Fatalf("unexpected runs order: %v", runIDs(runs))
	}
	all, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected all runs, got %d", len(all))
	}
}

func runIDs(runs []*manifest.Run) []string {
	ids := make([]string, 0, len(runs))
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	return ids
}
