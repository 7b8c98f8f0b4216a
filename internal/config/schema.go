package config

// Config is the root configuration structure
type Config struct {
	Version   int             `yaml:"version"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Sources   []string        `yaml:"sources,omitempty"`
	Localhost LocalhostConfig `yaml:"localhost"`
	Watch     bool            `yaml:"watch"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig holds the snapshot database settings. An empty path
// disables persistence.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LocalhostConfig controls the implicit-localhost factory
type LocalhostConfig struct {
	// Aliases lists the names recognized as the local machine. Empty
	// means the builtin defaults.
	Aliases []string `yaml:"aliases,omitempty"`
}
