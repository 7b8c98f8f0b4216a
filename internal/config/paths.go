package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file and beats the search path
	EnvConfigPath = "INVENTORIUM_CONFIG"
	// ConfigFileName is the file looked for in the working directory
	ConfigFileName = "inventorium.yaml"
	// ConfigDirName is the directory used under XDG config homes and /etc
	ConfigDirName = "inventorium"
)

// searchPaths lists the candidate config locations in priority order:
// working directory, $XDG_CONFIG_HOME, ~/.config, then system-wide.
func searchPaths() []string {
	paths := []string{ConfigFileName}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, ConfigDirName, "config.yaml"))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", ConfigDirName, "config.yaml"))
	}
	return append(paths, filepath.Join("/etc", ConfigDirName, "config.yaml"))
}

// FindConfigPath resolves the config file location. $INVENTORIUM_CONFIG wins
// when it names an existing file; otherwise the first existing search-path
// candidate is used. Returns "" when no config file exists anywhere.
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" && fileExists(path) {
		return path
	}

	for _, path := range searchPaths() {
		if !fileExists(path) {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}

	return ""
}

// DefaultConfigPath returns where a new config file should be written:
// $XDG_CONFIG_HOME when set, else ~/.config, else the working directory.
func DefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, ConfigDirName, "config.yaml")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", ConfigDirName, "config.yaml")
	}
	return ConfigFileName
}

// EnsureConfigDir creates the directory holding the config file if needed
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
