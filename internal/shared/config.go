package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API    APIConfig    `toml:"api"`
	Batch  BatchConfig  `toml:"batch"`
	Prompt PromptConfig `toml:"prompt"`
}

// APIConfig contains OpenAI API client settings. The credential itself is
// never part of the config file; it is read from OPENAI_API_KEY only.
type APIConfig struct {
	BaseURL        string  `toml:"base_url"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RateLimit      float64 `toml:"rate_limit"`
}

// BatchConfig contains batch-creation defaults and the log directory.
type BatchConfig struct {
	Endpoint         string `toml:"endpoint"`
	CompletionWindow string `toml:"completion_window"`
	LogsDir          string `toml:"logs_dir"`
}

// PromptConfig contains default prompt identifiers for the converter.
type PromptConfig struct {
	ID      string `toml:"id"`
	Version string `toml:"version"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidConfig)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
