package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable. It does not touch the
// filesystem beyond resolving the home directory; dataset root existence is
// checked by the pipeline preflight.
func (c *Config) Validate() error {
	if err := c.validateDatasets(); err != nil {
		return err
	}
	if err := c.validateSelection(); err != nil {
		return err
	}
	if err := c.validateGrouping(); err != nil {
		return err
	}
	if err := c.validateOutputDir(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateManifest()
}

func (c *Config) validateDatasets() error {
	if len(c.Datasets) == 0 {
		return errors.New("at least one [[datasets]] entry is required")
	}
	labels := make(map[string]struct{}, len(c.Datasets))
	for i, ds := range c.Datasets {
		if ds.Name == "" && ds.Root == "" {
			return fmt.Errorf("datasets[%d]: name or root must be set", i)
		}
		if ds.Root == "" && c.Paths.SourceRoot == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("paths.source_root is required for dataset %q. Set PLANTMERGE_SOURCE_ROOT or edit %s (create with 'plantmerge config init')", ds.Label, defaultPath)
		}
		if _, dup := labels[ds.Label]; dup {
			return fmt.Errorf("datasets[%d]: duplicate label %q", i, ds.Label)
		}
		labels[ds.Label] = struct{}{}
	}
	return nil
}

func (c *Config) validateSelection() error {
	s := c.Selection
	if strings.ContainsAny(s.TargetFolder, `/\`) {
		return fmt.Errorf("selection.target_folder must be a bare directory name, got %q", s.TargetFolder)
	}
	if s.HourMargin < 0 {
		return errors.New("selection.hour_margin must be >= 0")
	}
	if s.HourField < 0 {
		return errors.New("selection.hour_field must be >= 0")
	}
	for _, h := range s.KeepHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("selection.keep_hours: %d is not an hour of day (0-23)", h)
		}
	}
	if len(s.KeepHours) == 0 {
		for _, ds := range c.Datasets {
			if ds.TimeFilter {
				return fmt.Errorf("selection.keep_hours must not be empty when dataset %q uses time_filter", ds.Label)
			}
		}
	}
	return nil
}

func (c *Config) validateGrouping() error {
	if c.Grouping.ChunkSize < 1 {
		return errors.New("grouping.chunk_size must be positive")
	}
	if c.Grouping.ChunkSize > 99 {
		return errors.New("grouping.chunk_size must be <= 99 (day index is two digits)")
	}
	return nil
}

// validateOutputDir guards the destructive reset: the output directory must be
// explicit and must not overlap the filesystem root, the home directory, or
// any source tree, and must not contain the log directory.
func (c *Config) validateOutputDir() error {
	out := c.Paths.OutputDir
	if out == "" {
		return errors.New("paths.output_dir is required. Set PLANTMERGE_OUTPUT_DIR or pass --output")
	}
	if out == filepath.Dir(out) {
		return fmt.Errorf("paths.output_dir %q must not be a filesystem root", out)
	}
	if home, err := os.UserHomeDir(); err == nil && filepath.Clean(home) == out {
		return fmt.Errorf("paths.output_dir %q must not be the home directory", out)
	}

	roots := make([]string, 0, len(c.Datasets)+1)
	if c.Paths.SourceRoot != "" {
		roots = append(roots, c.Paths.SourceRoot)
	}
	for _, ds := range c.Datasets {
		roots = append(roots, c.DatasetRoot(ds))
	}
	for _, root := range roots {
		if overlaps(out, root) {
			return fmt.Errorf("paths.output_dir %q overlaps source tree %q", out, root)
		}
	}
	// The reset would delete the open log file.
	if c.Paths.LogDir != "" && isWithin(c.Paths.LogDir, out) {
		return fmt.Errorf("paths.log_dir %q must live outside paths.output_dir", c.Paths.LogDir)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateManifest() error {
	if !c.Manifest.Enabled {
		return nil
	}
	if c.Manifest.Path == "" {
		return errors.New("manifest.path must be set when manifest.enabled is true")
	}
	if isWithin(c.Manifest.Path, c.Paths.OutputDir) {
		return fmt.Errorf("manifest.path %q must live outside paths.output_dir", c.Manifest.Path)
	}
	return nil
}

// overlaps reports whether a equals b or one contains the other.
func overlaps(a, b string) bool {
	return isWithin(a, b) || isWithin(b, a)
}

// isWithin reports whether path equals dir or lies beneath it.
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
