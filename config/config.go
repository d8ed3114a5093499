// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/poiesic/nbharvest/ai"
	"github.com/poiesic/nbharvest/auth"
	"github.com/poiesic/nbharvest/export"
	"github.com/poiesic/nbharvest/ingestion"
	"github.com/poiesic/nbharvest/storage/mongo"
)

// Storage backends.
const (
	BackendBadger = "badger"
	BackendMongo  = "mongo"
)

// DefaultBadgerPath is the embedded store location when none is configured.
const DefaultBadgerPath = "nbharvest.db"

// Config is the complete harvester configuration.
type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	AI         AIConfig         `yaml:"ai"`
	Google     GoogleConfig     `yaml:"google"`
	GitHub     GitHubConfig     `yaml:"github"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Export     ExportConfig     `yaml:"export"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.AI.Validate(); err != nil {
		return fmt.Errorf("ai: %w", err)
	}
	if err := c.Google.Validate(); err != nil {
		return fmt.Errorf("google: %w", err)
	}
	if err := c.GitHub.Validate(); err != nil {
		return fmt.Errorf("github: %w", err)
	}
	if err := c.Enrichment.Validate(); err != nil {
		return fmt.Errorf("enrichment: %w", err)
	}
	if err := c.Export.Validate(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// StorageConfig selects and configures the notebook store.
// An empty backend resolves to mongo when a URI is set and badger otherwise.
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	URI         string `yaml:"uri"`
	Database    string `yaml:"database"`
	Collection  string `yaml:"collection"`
	VectorIndex string `yaml:"vector_index"`
}

// ResolvedBackend returns the backend that will actually be opened.
func (c *StorageConfig) ResolvedBackend() string {
	if c.Backend != "" {
		return c.Backend
	}
	if c.URI != "" {
		return BackendMongo
	}
	return BackendBadger
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	backend := c.ResolvedBackend()
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.In(BackendBadger, BackendMongo)),
		validation.Field(&c.Path, validation.When(backend == BackendBadger, validation.Required)),
		validation.Field(&c.URI, validation.When(backend == BackendMongo, validation.Required)),
		validation.Field(&c.Database, validation.When(backend == BackendMongo, validation.Required)),
		validation.Field(&c.Collection, validation.When(backend == BackendMongo, validation.Required)),
	)
}

// AIConfig configures the completion and embedding endpoints.
// Host applies to both unless a service-specific host is set.
type AIConfig struct {
	Host            string `yaml:"host"`
	EmbeddingHost   string `yaml:"embedding_host"`
	ClassifierHost  string `yaml:"classifier_host"`
	EmbeddingModel  string `yaml:"embedding_model"`
	ClassifierModel string `yaml:"classifier_model"`
	APIKey          string `yaml:"api_key"`
	MaxTokens       int    `yaml:"max_tokens"`
}

// Validate validates the AI configuration. The API key is checked when a
// provider is created, since only some commands need one.
func (c *AIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.EmbeddingModel, validation.Required),
		validation.Field(&c.ClassifierModel, validation.Required),
		validation.Field(&c.MaxTokens, validation.Required, validation.Min(1)),
	)
}

// ProviderConfig converts to the ai package configuration.
func (c *AIConfig) ProviderConfig() *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithEmbeddingModel(c.EmbeddingModel),
		ai.WithClassifierModel(c.ClassifierModel),
		ai.WithAPIKey(c.APIKey),
		ai.WithMaxTokens(c.MaxTokens),
	}
	if c.Host != "" {
		opts = append(opts, ai.WithHost(c.Host))
	}
	if c.EmbeddingHost != "" {
		opts = append(opts, ai.WithEmbeddingHost(c.EmbeddingHost))
	}
	if c.ClassifierHost != "" {
		opts = append(opts, ai.WithClassifierHost(c.ClassifierHost))
	}
	return ai.NewConfig(opts...)
}

// GoogleConfig holds the OAuth client used for Colab access.
type GoogleConfig struct {
	ColabEnabled bool   `yaml:"colab_enabled"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	TokenFile    string `yaml:"token_file"`
}

// Validate validates the Google configuration.
func (c *GoogleConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ClientID, validation.When(c.ColabEnabled, validation.Required)),
		validation.Field(&c.ClientSecret, validation.When(c.ColabEnabled, validation.Required)),
		validation.Field(&c.TokenFile, validation.Required),
	)
}

// GitHubConfig configures GitHub downloads.
type GitHubConfig struct {
	Token     string  `yaml:"token"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second, 0 disables limiting
	Burst     int     `yaml:"burst"`
}

// Validate validates the GitHub configuration.
func (c *GitHubConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RateLimit, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.Min(0)),
	)
}

// EnrichmentConfig configures the enrichment pass.
type EnrichmentConfig struct {
	Workers int `yaml:"workers"`
}

// Validate validates the enrichment configuration.
func (c *EnrichmentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(64)),
	)
}

// ExportConfig configures the export command.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// NewDefaultConfig returns a Config with sensible default values.
func NewDefaultConfig() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		Storage: StorageConfig{
			Path:        DefaultBadgerPath,
			Database:    mongo.DefaultDatabase,
			Collection:  mongo.DefaultCollection,
			VectorIndex: mongo.DefaultVectorIndex,
		},
		AI: AIConfig{
			Host:            ai.DefaultHost,
			EmbeddingModel:  aiDefaults.EmbeddingModel,
			ClassifierModel: aiDefaults.ClassifierModel,
			MaxTokens:       aiDefaults.MaxTokens,
		},
		Google: GoogleConfig{
			TokenFile: auth.DefaultTokenFile,
		},
		GitHub: GitHubConfig{
			RateLimit: ingestion.DefaultGitHubRate,
			Burst:     1,
		},
		Enrichment: EnrichmentConfig{
			Workers: 1,
		},
		Export: ExportConfig{
			Dir: export.DefaultDir,
		},
	}
}
