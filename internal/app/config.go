package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// CatalogPath points at the versioned catalog configuration source (a
	// directory tree or single .hcl file). There is no implicit default
	// catalog.
	CatalogPath string
	// SignalsPath points at the analyzer's feature-signal document.
	SignalsPath string
	// OutPath, when set, receives the plan document instead of stdout.
	OutPath string
	// PreviousPlanPath is the persisted plan to diff against.
	PreviousPlanPath string

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.CatalogPath == "" {
		return nil, errors.New("CatalogPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
