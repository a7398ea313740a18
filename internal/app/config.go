package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	DocumentPath string   `yaml:"document" validate:"required"`
	ClassesPaths []string `yaml:"classes" validate:"dive,required"` // .hcl files or directories
	LibraryPath  string   `yaml:"library"`                          // base for relative imports; defaults to the document's directory

	LogFormat string `yaml:"log_format" validate:"oneof=text json"`
	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

var configValidate = validator.New()

// DefaultConfig returns the settings used when neither a config file nor a
// flag provides one.
func DefaultConfig() Config {
	return Config{
		LogFormat: "text",
		LogLevel:  "info",
	}
}

// LoadConfigFile overlays the YAML file at path onto cfg. Keys missing from
// the file keep their current value.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// NewConfig normalizes and validates cfg.
func NewConfig(cfg Config) (*Config, error) {
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if err := configValidate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
