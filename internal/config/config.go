package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/embeddedkit/isogen/internal/resolver"
)

// Config is the top-level configuration for isogen
type Config struct {
	// Output is the domain file written after a successful run
	Output string `json:"output,omitempty"`

	// ExcludeMemory drops nodeid-less memory entries from the device catalog
	ExcludeMemory bool `json:"excludeMemory,omitempty"`

	// Permissive downgrades duplicate catalog names to warnings
	Permissive bool `json:"permissive,omitempty"`

	// Verbose raises the log level: 0 warnings, 1 info, 2 debug
	Verbose int `json:"verbose,omitempty"`

	// CpuPatterns overrides the built-in CPU classification table
	CpuPatterns []resolver.CpuPattern `json:"cpuPatterns,omitempty"`

	// MemoryPatterns overrides the built-in memory classification table
	MemoryPatterns []resolver.MemoryPattern `json:"memoryPatterns,omitempty"`
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Output:         "domains.yaml",
		CpuPatterns:    resolver.DefaultCpuPatterns(),
		MemoryPatterns: resolver.DefaultMemoryPatterns(),
	}
}

// Load finds and loads the configuration file
// Search order:
//  1. ./isogen.json (current working directory)
//  2. ./.isogen.json (current working directory)
//  3. ~/.config/isogen/config.json
//
// Returns DefaultConfig if no config file is found
func Load() (*Config, error) {
	cwd, _ := os.Getwd()

	searchPaths := []string{
		filepath.Join(cwd, "isogen.json"),
		filepath.Join(cwd, ".isogen.json"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "isogen", "config.json"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return DefaultConfig(), nil
}

// LoadFile loads configuration from a specific file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if c.Output == "" {
		c.Output = "domains.yaml"
	}
	if len(c.CpuPatterns) == 0 {
		c.CpuPatterns = resolver.DefaultCpuPatterns()
	}
	if len(c.MemoryPatterns) == 0 {
		c.MemoryPatterns = resolver.DefaultMemoryPatterns()
	}
}

// Save writes the configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
