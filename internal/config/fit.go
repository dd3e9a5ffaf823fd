package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FitConfig holds the estimator hyperparameters loadable from a JSON file.
// All fields are pointers so a partial config file only overrides what it
// names; the Get* accessors supply defaults for the rest.
type FitConfig struct {
	Classes   *int     `json:"classes,omitempty"`
	Abstains  *bool    `json:"abstains,omitempty"`
	LearnRate *float64 `json:"learn_rate,omitempty"`
	MaxIter   *int     `json:"max_iter,omitempty"`
	Verbose   *bool    `json:"verbose,omitempty"`
}

// EmptyFitConfig returns a FitConfig with every field unset.
func EmptyFitConfig() *FitConfig {
	return &FitConfig{}
}

// LoadFitConfig loads a FitConfig from a JSON file. The path must carry a
// .json extension and the file must be under 1MB. Fields omitted from the
// file keep their defaults, so partial configs are safe.
func LoadFitConfig(path string) (*FitConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyFitConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that any set values are usable.
func (c *FitConfig) Validate() error {
	if c.Classes != nil && *c.Classes < 2 {
		return fmt.Errorf("classes must be >= 2, got %d", *c.Classes)
	}
	if c.LearnRate != nil && *c.LearnRate <= 0 {
		return fmt.Errorf("learn_rate must be positive, got %f", *c.LearnRate)
	}
	if c.MaxIter != nil && *c.MaxIter <= 0 {
		return fmt.Errorf("max_iter must be positive, got %d", *c.MaxIter)
	}
	return nil
}

// GetClasses returns the configured class count, defaulting to 2.
func (c *FitConfig) GetClasses() int {
	if c.Classes == nil {
		return 2
	}
	return *c.Classes
}

// GetAbstains reports whether 0 is a legal emitted value. Defaults to true.
func (c *FitConfig) GetAbstains() bool {
	if c.Abstains == nil {
		return true
	}
	return *c.Abstains
}

// GetLearnRate returns the objective scale hint, defaulting to 1.
func (c *FitConfig) GetLearnRate() float64 {
	if c.LearnRate == nil {
		return 1
	}
	return *c.LearnRate
}

// GetMaxIter returns the optimizer iteration cap, defaulting to 1000.
func (c *FitConfig) GetMaxIter() int {
	if c.MaxIter == nil {
		return 1000
	}
	return *c.MaxIter
}

// GetVerbose reports whether per-iteration loss logging is on. Defaults to false.
func (c *FitConfig) GetVerbose() bool {
	if c.Verbose == nil {
		return false
	}
	return *c.Verbose
}
