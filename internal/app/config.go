package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ScenePath string // hcl files

	LogFormat   string
	LogLevel    string
	DebugPort   int
	WorkerCount int
	Repeat      int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ScenePath == "" {
		return nil, errors.New("ScenePath is a required configuration field and cannot be empty")
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	if cfg.Repeat < 1 {
		cfg.Repeat = 1
	}
	return &cfg, nil
}
