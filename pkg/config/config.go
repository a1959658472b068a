package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/medassureai/artifact-gateway/envloader"
)

// Load fills cfg from the process environment and validates it. Call
// ApplyFile first when a YAML overrides file is in play.
func Load(cfg any) error {
	if err := envloader.Load(cfg); err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	return NewValidator().Validate(cfg)
}

// ApplyFile reads a YAML file of KEY: value pairs, expands ${VAR} references
// against the current environment, and applies each pair as an environment
// variable unless it is already set. The environment always wins over the
// file, so deployments can override a checked-in config.
func ApplyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(raw))

	var pairs map[string]string
	if err := yaml.Unmarshal([]byte(expanded), &pairs); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	for key, value := range pairs {
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("config file %s: set %s: %w", path, key, err)
		}
	}
	return nil
}
