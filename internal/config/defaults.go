package config

const (
	defaultConfigPath      = "~/.config/plantmerge/config.toml"
	defaultLogDir          = "~/.local/share/plantmerge/logs"
	defaultManifestPath    = "~/.local/share/plantmerge/manifest.db"
	defaultTargetFolder    = "segmented_images"
	defaultRequiredKeyword = "RGB1"
	defaultHourMargin      = 1
	defaultHourField       = 4
	defaultChunkSize       = 10
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

func defaultExtensions() []string {
	return []string{".png", ".jpg"}
}

func defaultKeepHours() []int {
	return []int{12, 17}
}

func defaultDatasets() []Dataset {
	return []Dataset{
		{Name: "plant_ds1", Label: "DS1"},
		{Name: "plant_ds2", Label: "DS2", TimeFilter: true},
	}
}

// Default returns a Config populated with repository defaults. Source root and
// output directory have no default: the output directory is wiped on every
// run, so it must be configured explicitly.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Datasets: defaultDatasets(),
		Selection: Selection{
			TargetFolder:    defaultTargetFolder,
			RequiredKeyword: defaultRequiredKeyword,
			Extensions:      defaultExtensions(),
			KeepHours:       defaultKeepHours(),
			HourMargin:      defaultHourMargin,
			HourField:       defaultHourField,
		},
		Grouping: Grouping{
			ChunkSize: defaultChunkSize,
		},
		Copy: Copy{
			Verify: true,
		},
		Manifest: Manifest{
			Enabled: true,
			Path:    defaultManifestPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
