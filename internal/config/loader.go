package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load loads the configuration from the specified path or searches default
// locations. When no configuration file exists anywhere, the built-in
// defaults are returned, so a configuration file is never required.
func Load(configPath string) (*Config, error) {
	cfgFile, err := findConfigFile(configPath)
	if err != nil {
		if configPath == "" && os.IsNotExist(err) {
			// No config anywhere: run on defaults
			cfg := &Config{}
			cfg.defaults()
			return cfg, validate(cfg)
		}
		return nil, err
	}

	data, err := os.ReadFile(cfgFile)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Store config directory for relative path resolution
	cfg.ConfigDir = filepath.Dir(cfgFile)

	cfg.defaults()

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// findConfigFile searches for the configuration file in standard locations
func findConfigFile(explicitPath string) (string, error) {
	// If explicit path provided, use it
	if explicitPath != "" {
		if !fileExists(explicitPath) {
			return "", os.ErrNotExist
		}
		return explicitPath, nil
	}

	// Try standard locations by priority
	candidates := []string{}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "masterflatmaker", "config.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "masterflatmaker", "config.yaml"))
	}
	candidates = append(candidates, "/etc/masterflatmaker/config.yaml")

	// Find first existing file
	for _, file := range candidates {
		if fileExists(file) {
			return file, nil
		}
	}

	return "", os.ErrNotExist
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
