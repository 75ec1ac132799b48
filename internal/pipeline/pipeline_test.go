package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"

	"plantmerge/internal/config"
	"plantmerge/internal/discover"
	"plantmerge/internal/fileutil"
	"plantmerge/internal/manifest"
	"plantmerge/internal/sequence"
	"plantmerge/internal/testsupport"
)

// seedDatasets lays out DS1 with 25 images at noon in one folder and DS2 with
// one folder holding 10 kept and 5 out-of-window images plus a folder too
// short to form a group.
func seedDatasets(t *testing.T, cfg *config.Config) {
	t.Helper()
	ds1 := cfg.DatasetRoot(cfg.Datasets[0])
	ds2 := cfg.DatasetRoot(cfg.Datasets[1])

	testsupport.WriteSegment(t, ds1, "plot_a", testsupport.ImageNames("A", 25, 12)...)
	testsupport.MkdirAll(t, filepath.Join(ds1, "plot_a", "raw_images"))

	names := append(testsupport.ImageNames("B", 10, 13), testsupport.ImageNames("C", 5, 15)...)
	testsupport.WriteSegment(t, ds2, "plot_b", names...)
	testsupport.WriteSegment(t, ds2, "plot_c", testsupport.ImageNames("D", 9, 17)...)
}

func readTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	tree := make(map[string]string, len(entries))
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		tree[e.Name()] = string(data)
	}
	return tree
}

func TestRunMergesDatasetsWithContiguousIDs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedDatasets(t, cfg)

	summary, err := Run(context.Background(), cfg, nil, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.TotalGroups != 3 || summary.NextID != 4 || summary.TotalFiles != 30 {
		t.Fatalf("unexpected totals: %+v", summary)
	}

	ds1, ds2 := summary.Datasets[0], summary.Datasets[1]
	if ds1.Label != "DS1" || ds1.Folders != 1 || ds1.Groups != 2 || ds1.FirstID != 1 || ds1.LastID != 2 {
		t.Fatalf("unexpected DS1 summary: %+v", ds1)
	}
	if ds2.Label != "DS2" || ds2.Folders != 2 || ds2.Groups != 1 || ds2.FirstID != 3 || ds2.LastID != 3 {
		t.Fatalf("unexpected DS2 summary: %+v", ds2)
	}

	tree := readTree(t, cfg.Paths.OutputDir)
	if len(tree) != 30 {
		t.Fatalf("expected 30 output files, got %d", len(tree))
	}
	var copied int64
	for _, content := range tree {
		copied += int64(len(content))
	}
	if summary.TotalBytes != copied || ds1.Bytes+ds2.Bytes != copied {
		t.Fatalf("expected %d planned bytes, got total %d (DS1 %d, DS2 %d)", copied, summary.TotalBytes, ds1.Bytes, ds2.Bytes)
	}
	checks := map[string]string{
		sequence.OutputName(1, 1):  testsupport.ImageName("A", 1, 12),
		sequence.OutputName(1, 10): testsupport.ImageName("A", 10, 12),
		sequence.OutputName(2, 1):  testsupport.ImageName("A", 11, 12),
		sequence.OutputName(3, 1):  testsupport.ImageName("B", 1, 13),
		sequence.OutputName(3, 10): testsupport.ImageName("B", 10, 13),
	}
	for name, want := range checks {
		if tree[name] != want {
			t.Fatalf("%s: content %q, want %q", name, tree[name], want)
		}
	}
	if _, ok := tree[sequence.OutputName(4, 1)]; ok {
		t.Fatal("short folder must not produce a group")
	}
}

func TestRunRecordsManifest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedDatasets(t, cfg)

	summary, err := Run(context.Background(), cfg, nil, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	store := testsupport.MustOpenManifest(t, cfg)
	ctx := context.Background()
	run, err := store.GetRun(ctx, summary.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != manifest.RunStatusCompleted || run.TotalGroups != 3 || run.TotalFiles != 30 {
		t.Fatalf("unexpected run record: %#v", run)
	}
	groups, err := store.ListGroups(ctx, summary.RunID)
	if err != nil {
		t.Fatalf("ListGroups: %v", err)
	}
	if len(groups) != 3 || groups[2].Dataset != "DS2" {
		t.Fatalf("unexpected groups: %#v", groups)
	}
	artifacts, err := store.ListArtifacts(ctx, summary.RunID, 3)
	if err != nil {
		t.Fatalf("ListArtifacts: %v", err)
	}
	if len(artifacts) != 10 || filepath.Base(artifacts[0].SourcePath) != testsupport.ImageName("B", 1, 13) {
		t.Fatalf("unexpected artifacts: %#v", artifacts)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, filepath.Base(cfg.Manifest.Path))); !os.IsNotExist(err) {
		t.Fatal("manifest must live outside the output directory")
	}
}

func TestRunWithoutManifest(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutManifest())
	seedDatasets(t, cfg)

	if _, err := Run(context.Background(), cfg, nil, Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(cfg.Manifest.Path); !os.IsNotExist(err) {
		t.Fatalf("expected no manifest database, stat err=%v", err)
	}
}

func TestRunIsRepeatable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedDatasets(t, cfg)

	if _, err := Run(context.Background(), cfg, nil, Options{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := readTree(t, cfg.Paths.OutputDir)
	if _, err := Run(context.Background(), cfg, nil, Options{}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second := readTree(t, cfg.Paths.OutputDir)

	if len(first) != len(second) {
		t.Fatalf("file count changed: %d vs %d", len(first), len(second))
	}
	for name, content := range first {
		if second[name] != content {
			t.Fatalf("%s changed between runs", name)
		}
	}
}

func TestRunClearsStaleOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedDatasets(t, cfg)
	stale := filepath.Join(cfg.Paths.OutputDir, "plant00099_day01.png")
	testsupport.WriteFile(t, stale, 4)
	testsupport.MkdirAll(t, filepath.Join(cfg.Paths.OutputDir, "leftover"))

	if _, err := Run(context.Background(), cfg, nil, Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("expected stale file to be removed")
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "leftover")); !os.IsNotExist(err) {
		t.Fatal("expected stale directory to be removed")
	}
}

func TestRunEmptyDatasetContributesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.MkdirAll(t, cfg.DatasetRoot(cfg.Datasets[0]))
	testsupport.WriteSegment(t, cfg.DatasetRoot(cfg.Datasets[1]), "p", testsupport.ImageNames("E", 10, 11)...)

	summary, err := Run(context.Background(), cfg, nil, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Datasets[0].Groups != 0 || summary.Datasets[0].FirstID != 0 {
		t.Fatalf("expected empty DS1, got %+v", summary.Datasets[0])
	}
	if summary.Datasets[1].FirstID != 1 || summary.TotalGroups != 1 {
		t.Fatalf("expected DS2 to start at id 1, got %+v", summary)
	}
}

func TestRunNestedFoldersInSortedOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDatasets(config.Dataset{Name: "plant_ds1", Label: "DS1"}))
	root := cfg.DatasetRoot(cfg.Datasets[0])
	testsupport.WriteSegment(t, root, "b", testsupport.ImageNames("B", 10, 12)...)
	testsupport.WriteSegment(t, root, filepath.Join("a", "deep"), testsupport.ImageNames("A", 10, 12)...)

	if _, err := Run(context.Background(), cfg, nil, Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	tree := readTree(t, cfg.Paths.OutputDir)
	if tree[sequence.OutputName(1, 1)] != testsupport.ImageName("A", 1, 12) {
		t.Fatalf("expected a/deep to be numbered first, got %q", tree[sequence.OutputName(1, 1)])
	}
	if tree[sequence.OutputName(2, 1)] != testsupport.ImageName("B", 1, 12) {
		t.Fatalf("expected b to be numbered second, got %q", tree[sequence.OutputName(2, 1)])
	}
}

func TestRunMissingRootLeavesOutputUntouched(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteSegment(t, cfg.DatasetRoot(cfg.Datasets[0]), "p", testsupport.ImageNames("A", 10, 12)...)
	previous := filepath.Join(cfg.Paths.OutputDir, sequence.OutputName(1, 1))
	testsupport.WriteFile(t, previous, 8)

	_, err := Run(context.Background(), cfg, nil, Options{})
	if !errors.Is(err, discover.ErrDatasetRootMissing) {
		t.Fatalf("expected ErrDatasetRootMissing, got %v", err)
	}
	if _, err := os.Stat(previous); err != nil {
		t.Fatalf("previous output must survive a configuration error: %v", err)
	}
}

func TestRunDryRunCopiesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedDatasets(t, cfg)

	summary, err := Run(context.Background(), cfg, nil, Options{DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.DryRun || summary.TotalGroups != 3 {
		t.Fatalf("unexpected dry-run summary: %+v", summary)
	}
	if summary.TotalBytes == 0 {
		t.Fatal("expected planned bytes to be reported")
	}
	if _, err := os.Stat(cfg.Paths.OutputDir); !os.IsNotExist(err) {
		t.Fatalf("dry run must not create output, stat err=%v", err)
	}
	if _, err := os.Stat(cfg.Manifest.Path); !os.IsNotExist(err) {
		t.Fatalf("dry run must not write the manifest, stat err=%v", err)
	}
}

func TestRunRefusesLockedOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedDatasets(t, cfg)
	previous := filepath.Join(cfg.Paths.OutputDir, "keep.png")
	testsupport.WriteFile(t, previous, 2)

	held := flock.New(LockPath(cfg.Paths.OutputDir))
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("hold lock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	if _, err := Run(context.Background(), cfg, nil, Options{}); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if _, err := os.Stat(previous); err != nil {
		t.Fatalf("locked run must not reset output: %v", err)
	}
}

func TestLockPathIsSibling(t *testing.T) {
	if got := LockPath("/srv/merged/"); got != "/srv/.merged.lock" {
		t.Fatalf("unexpected lock path %q", got)
	}
}

type failingCopier struct {
	failAt int
	calls  int
}

func (f *failingCopier) Copy(src, dst string) (fileutil.CopyResult, error) {
	f.calls++
	if f.calls == f.failAt {
		return fileutil.CopyResult{}, os.ErrPermission
	}
	return fileutil.CopyFilePreserve(src, dst, false)
}

func TestRunCopyFailureAborts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedDatasets(t, cfg)
	copier := &failingCopier{failAt: 13}

	_, err := Run(context.Background(), cfg, nil, Options{Copier: copier})
	if !errors.Is(err, os.ErrPermission) {
		t.Fatalf("expected copy error, got %v", err)
	}
	if copier.calls != 13 {
		t.Fatalf("expected run to stop at the failing copy, got %d calls", copier.calls)
	}
	tree := readTree(t, cfg.Paths.OutputDir)
	if len(tree) != 12 {
		t.Fatalf("expected the 12 earlier copies to remain, got %d", len(tree))
	}

	store := testsupport.MustOpenManifest(t, cfg)
	runs, err := store.ListRuns(context.Background(), 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns: %v (%d runs)", err, len(runs))
	}
	if runs[0].Status != manifest.RunStatusFailed || runs[0].Error == "" {
		t.Fatalf("expected failed run record, got %#v", runs[0])
	}
	groups, err := store.ListGroups(context.Background(), runs[0].ID)
	if err != nil {
		t.Fatalf("ListGroups: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected only the completed group to be recorded, got %d", len(groups))
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedDatasets(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Run(ctx, cfg, nil, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(cfg.Paths.OutputDir); !os.IsNotExist(err) {
		t.Fatal("cancelled run must not touch output")
	}
}
