package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeDatasets(); err != nil {
		return err
	}
	c.normalizeSelection()
	c.normalizeLogging()
	return c.normalizeManifest()
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.SourceRoot) == "" {
		if value, ok := os.LookupEnv("PLANTMERGE_SOURCE_ROOT"); ok {
			c.Paths.SourceRoot = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		if value, ok := os.LookupEnv("PLANTMERGE_OUTPUT_DIR"); ok {
			c.Paths.OutputDir = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}

	var err error
	if c.Paths.SourceRoot, err = expandPath(strings.TrimSpace(c.Paths.SourceRoot)); err != nil {
		return fmt.Errorf("paths.source_root: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDatasets() error {
	for i := range c.Datasets {
		ds := &c.Datasets[i]
		ds.Name = strings.TrimSpace(ds.Name)
		ds.Label = strings.TrimSpace(ds.Label)
		if ds.Label == "" {
			ds.Label = ds.Name
		}
		if root := strings.TrimSpace(ds.Root); root != "" {
			expanded, err := expandPath(root)
			if err != nil {
				return fmt.Errorf("datasets[%d].root: %w", i, err)
			}
			ds.Root = expanded
		}
	}
	return nil
}

func (c *Config) normalizeSelection() {
	c.Selection.TargetFolder = strings.TrimSpace(c.Selection.TargetFolder)
	if c.Selection.TargetFolder == "" {
		c.Selection.TargetFolder = defaultTargetFolder
	}
	// Extensions are matched as case-sensitive suffixes, so only whitespace is trimmed.
	exts := make([]string, 0, len(c.Selection.Extensions))
	seen := make(map[string]struct{}, len(c.Selection.Extensions))
	for _, ext := range c.Selection.Extensions {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = defaultExtensions()
	}
	c.Selection.Extensions = exts
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeManifest() error {
	if strings.TrimSpace(c.Manifest.Path) == "" {
		c.Manifest.Path = defaultManifestPath
	}
	var err error
	if c.Manifest.Path, err = expandPath(strings.TrimSpace(c.Manifest.Path)); err != nil {
		return fmt.Errorf("manifest.path: %w", err)
	}
	return nil
}
