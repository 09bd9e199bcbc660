package config

// DefaultConfig returns configuration with sensible defaults.
// These defaults are used when no config file exists or when the config
// file is missing specific fields.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Languages: []string{"python"},
			Exclude: []string{
				".venv/**",
				"venv/**",
				"**/__pycache__/**",
				"**/*_test.py",
				"**/test_*.py",
				"**/testdata/**",
			},
		},
		Database: DatabaseConfig{
			Path: ".cx/cmm.db",
		},
		LSP: LSPConfig{
			Command: []string{"pyright-langserver", "--stdio"},
		},
	}
}

// Merge merges loaded config with defaults.
// Values from loaded config take precedence over defaults.
// Returns a new Config with merged values.
func Merge(loaded, defaults *Config) *Config {
	return &Config{
		Scan:     mergeScanConfig(loaded.Scan, defaults.Scan),
		Database: mergeDatabaseConfig(loaded.Database, defaults.Database),
		LSP:      mergeLSPConfig(loaded.LSP, defaults.LSP),
	}
}

func mergeScanConfig(loaded, defaults ScanConfig) ScanConfig {
	result := defaults
	if len(loaded.Languages) > 0 {
		result.Languages = loaded.Languages
	}
	if len(loaded.Exclude) > 0 {
		result.Exclude = loaded.Exclude
	}
	return result
}

func mergeDatabaseConfig(loaded, defaults DatabaseConfig) DatabaseConfig {
	result := defaults
	if loaded.Path != "" {
		result.Path = loaded.Path
	}
	return result
}

func mergeLSPConfig(loaded, defaults LSPConfig) LSPConfig {
	result := defaults
	if len(loaded.Command) > 0 {
		result.Command = loaded.Command
	}
	return result
}
