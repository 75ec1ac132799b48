package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the source, output, and log directory configuration.
type Paths struct {
	SourceRoot string `toml:"source_root"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
}

// Dataset describes one top-level source tree and its filter variant.
type Dataset struct {
	// Name is the subdirectory under paths.source_root.
	Name string `toml:"name"`
	// Label is used in logs, summaries, and the manifest (e.g. "DS1").
	Label string `toml:"label"`
	// TimeFilter enables the hour-of-day window check for this dataset.
	TimeFilter bool `toml:"time_filter"`
	// Root overrides source_root/name when set.
	Root string `toml:"root"`
}

// Selection contains the per-file selection rules.
type Selection struct {
	TargetFolder    string   `toml:"target_folder"`
	RequiredKeyword string   `toml:"required_keyword"`
	Extensions      []string `toml:"extensions"`
	KeepHours       []int    `toml:"keep_hours"`
	HourMargin      int      `toml:"hour_margin"`
	HourField       int      `toml:"hour_field"`
}

// Grouping contains the sequence chunking settings.
type Grouping struct {
	ChunkSize int `toml:"chunk_size"`
}

// Copy controls how images are copied into the output directory.
type Copy struct {
	Verify bool `toml:"verify"`
}

// Manifest contains configuration for the provenance database.
type Manifest struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for plantmerge.
//
// Configuration sections:
//   - Paths: source root, output directory, log directory
//   - Datasets: ordered dataset trees and their filter variant
//   - Selection: folder name, filename keyword, extensions, hour windows
//   - Grouping: images per sequence group
//   - Copy: copy verification
//   - Manifest: sqlite provenance database
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Datasets  []Dataset `toml:"datasets"`
	Selection Selection `toml:"selection"`
	Grouping  Grouping  `toml:"grouping"`
	Copy      Copy      `toml:"copy"`
	Manifest  Manifest  `toml:"manifest"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Overrides replaces path settings after the file is decoded and before
// normalization, so command-line flags win over both the file and the
// environment.
type Overrides struct {
	SourceRoot string
	OutputDir  string
}

func (o Overrides) apply(cfg *Config) {
	if v := strings.TrimSpace(o.SourceRoot); v != "" {
		cfg.Paths.SourceRoot = v
	}
	if v := strings.TrimSpace(o.OutputDir); v != "" {
		cfg.Paths.OutputDir = v
	}
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	return LoadWithOverrides(path, Overrides{})
}

// LoadWithOverrides behaves like Load and applies ov before validation.
func LoadWithOverrides(path string, ov Overrides) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// A file that declares [[datasets]] replaces the default list.
		cfg.Datasets = nil
		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
		if len(cfg.Datasets) == 0 {
			cfg.Datasets = defaultDatasets()
		}
	}

	ov.apply(&cfg)

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("plantmerge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// DatasetRoot returns the absolute root directory of the dataset.
func (c *Config) DatasetRoot(ds Dataset) string {
	if strings.TrimSpace(ds.Root) != "" {
		return ds.Root
	}
	return filepath.Join(c.Paths.SourceRoot, ds.Name)
}

// EnsureDirectories creates the log directory and the manifest parent directory.
// The output directory is deliberately left alone; the pipeline owns its lifecycle.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir}
	if c.Manifest.Enabled && strings.TrimSpace(c.Manifest.Path) != "" {
		dirs = append(dirs, filepath.Dir(c.Manifest.Path))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
