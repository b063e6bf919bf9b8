package driver

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML configuration file. Values fill in
// whatever the command line left unset; flags always win.
type FileConfig struct {
	ImportDirs []string `yaml:"import_dirs"`
	Extensions []string `yaml:"extensions"`
	Jobs       int      `yaml:"jobs"`
}

// LoadFileConfig reads and parses a YAML config file.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &fc, nil
}

// Apply merges file values under any fields already set on cfg.
func (fc *FileConfig) Apply(cfg *Config) {
	if len(cfg.ImportDirs) == 0 {
		cfg.ImportDirs = fc.ImportDirs
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = fc.Extensions
	}
	if cfg.Jobs == 0 {
		cfg.Jobs = fc.Jobs
	}
}
