package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GameDir  string // directory with .hcl game definitions
	GameName string // which defined game to import against; optional when only one is defined
	Profile  string // import profile name
	Assets   []string

	LogFormat  string
	LogLevel   string
	StatusPort int
	Workers    int
	Strict     bool
}

// NewConfig validates a Config and applies defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GameDir == "" {
		return nil, errors.New("GameDir is a required configuration field and cannot be empty")
	}
	if len(cfg.Assets) == 0 {
		return nil, errors.New("at least one asset path is required")
	}
	if cfg.Profile == "" {
		cfg.Profile = "default"
	}

	return &cfg, nil
}
