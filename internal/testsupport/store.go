package testsupport

import (
	"context"
	"testing"

	"plantmerge/internal/config"
	"plantmerge/internal/manifest"
)

// MustOpenManifest opens the manifest store named by cfg and registers cleanup.
func MustOpenManifest(t testing.TB, cfg *config.Config) *manifest.Store {
	t.Helper()

	store, err := manifest.Open(cfg.Manifest.Path)
	if err != nil {
		t.Fatalf("manifest.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// BeginRun inserts a running record for tests.
func BeginRun(t testing.TB, store *manifest.Store, id, outputDir string) *manifest.Run {
	t.Helper()

	run, err := store.BeginRun(context.Background(), id, outputDir)
	if err != nil {
		t.Fatalf("store.BeginRun: %v", err)
	}
	return run
}
