package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvMongoURI           = "MONGODB_CONNECTION_STRING"
	EnvGoogleClientID     = "GOOGLE_OAUTH_CLIENT_ID"
	EnvGoogleClientSecret = "GOOGLE_OAUTH_CLIENT_SECRET"
	EnvOpenAIKey          = "OPENAI_API_KEY"
	EnvGitHubToken        = "GITHUB_TOKEN"
	EnvColabEnabled       = "NBHARVEST_COLAB_ENABLED"
)

// Load builds a configuration from defaults, the YAML file at path and the
// environment, in that order, then validates it. An empty path skips the file.
// ${VAR} references inside the file are expanded before parsing.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings from the environment. Unset variables leave
// the current value alone.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvMongoURI, &c.Storage.URI)
	set(EnvGoogleClientID, &c.Google.ClientID)
	set(EnvGoogleClientSecret, &c.Google.ClientSecret)
	set(EnvOpenAIKey, &c.AI.APIKey)
	set(EnvGitHubToken, &c.GitHub.Token)

	if v, ok := lookup(EnvColabEnabled); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvColabEnabled, err)
		}
		c.Google.ColabEnabled = enabled
	}
	return nil
}

// LoadDotEnv reads KEY=VALUE pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
