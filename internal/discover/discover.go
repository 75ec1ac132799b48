package discover

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"plantmerge/internal/logging"
)

// ErrDatasetRootMissing reports a configured dataset root that does not exist
// or is not a directory.
var ErrDatasetRootMissing = errors.New("dataset root missing")

// CheckRoot verifies root exists and is a directory.
func CheckRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrDatasetRootMissing, root)
		}
		return fmt.Errorf("stat dataset root %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrDatasetRootMissing, root)
	}
	return nil
}

// FindFolders walks root (root included, no depth limit) and returns every
// directory whose base name equals name, sorted by full path. Symlinked
// directories are not followed. Subdirectories that cannot be read are
// skipped with a warning.
func FindFolders(root, name string, logger *slog.Logger) ([]string, error) {
	root = filepath.Clean(root)
	if err := CheckRoot(root); err != nil {
		return nil, err
	}
	logger = logging.NewComponentLogger(logger, "discover")

	// WalkDir does not descend into a symlinked root, so walk its target and
	// report paths under the configured root.
	walkRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("resolve dataset root %s: %w", root, err)
	}

	var folders []string
	err = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if rel, relErr := filepath.Rel(walkRoot, path); relErr == nil {
			path = filepath.Join(root, rel)
		}
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn("skipping unreadable path",
				logging.String("path", path),
				logging.Error(err),
			)
			if d != nil && d.IsDir() {
				// The directory itself was reported before its listing failed.
				if n := len(folders); n > 0 && folders[n-1] == path {
					folders = folders[:n-1]
				}
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() && filepath.Base(path) == name {
			folders = append(folders, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(folders)
	return folders, nil
}

// ListFiles returns the names of the files directly inside dir, sorted
// lexicographically. Symlinks are kept when they resolve to a regular file.
// Filenames carry a timestamp-like prefix, so this order is the temporal
// order of the images.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		switch {
		case entry.Type().IsRegular():
			names = append(names, entry.Name())
		case entry.Type()&fs.ModeSymlink != 0:
			if info, err := os.Stat(filepath.Join(dir, entry.Name())); err == nil && info.Mode().IsRegular() {
				names = append(names, entry.Name())
			}
		}
	}
	sort.Strings(names)
	return names, nil
}
