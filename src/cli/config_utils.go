package cli

import (
	"os"
	"path/filepath"

	"graph-context/src/config"
	"graph-context/src/internal/common"
)

// DefaultConfigPath is where the CLI looks for configuration when --config is
// not given.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".graph-context", "config.yaml")
}

// LoadConfigWithFallback loads the given config file, or the default path, or
// falls back to built-in defaults. A missing or broken config file is never
// fatal for the CLI.
func LoadConfigWithFallback(path string) *config.Config {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		if explicit {
			common.CLILogger.Warn("cannot load %s, using defaults: %v", path, err)
		}
		return config.GetDefaultConfig()
	}
	return cfg
}
