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

package nbharvest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/poiesic/nbharvest/ai"
	"github.com/poiesic/nbharvest/ai/openai"
	"github.com/poiesic/nbharvest/auth"
	"github.com/poiesic/nbharvest/config"
	"github.com/poiesic/nbharvest/enrichment"
	"github.com/poiesic/nbharvest/export"
	"github.com/poiesic/nbharvest/ingestion"
	"github.com/poiesic/nbharvest/reembed"
	"github.com/poiesic/nbharvest/search"
	"github.com/poiesic/nbharvest/storage"
	"github.com/poiesic/nbharvest/storage/badger"
	"github.com/poiesic/nbharvest/storage/mongo"
	"golang.org/x/oauth2"
)

// Harvester owns the notebook store and hands out the pipelines that work on it.
type Harvester struct {
	cfg    *config.Config
	repo   storage.NotebookRepository
	base   *slog.Logger // handed to components, which tag their own name
	logger *slog.Logger

	mu          sync.Mutex
	provider    ai.AIProvider
	ownProvider bool
	tokenSource oauth2.TokenSource
}

// HarvesterOption configures a Harvester.
type HarvesterOption func(*harvesterOptions)

type harvesterOptions struct {
	repo        storage.NotebookRepository
	provider    ai.AIProvider
	tokenSource oauth2.TokenSource
	logger      *slog.Logger
}

// WithRepository uses repo instead of opening the configured store.
// The harvester takes ownership and closes it.
func WithRepository(repo storage.NotebookRepository) HarvesterOption {
	return func(o *harvesterOptions) {
		o.repo = repo
	}
}

// WithProvider uses provider instead of building one from the AI settings.
// The caller keeps ownership.
func WithProvider(provider ai.AIProvider) HarvesterOption {
	return func(o *harvesterOptions) {
		o.provider = provider
	}
}

// WithTokenSource supplies Google credentials instead of the token file.
func WithTokenSource(ts oauth2.TokenSource) HarvesterOption {
	return func(o *harvesterOptions) {
		o.tokenSource = ts
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) HarvesterOption {
	return func(o *harvesterOptions) {
		o.logger = logger
	}
}

// OpenRepository opens the store selected by cfg.
func OpenRepository(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.NotebookRepository, error) {
	switch backend := cfg.ResolvedBackend(); backend {
	case config.BackendBadger:
		return badger.NewRepository(cfg.Path)
	case config.BackendMongo:
		opts := []mongo.Option{mongo.WithLogger(logger)}
		if cfg.Database != "" {
			opts = append(opts, mongo.WithDatabase(cfg.Database))
		}
		if cfg.Collection != "" {
			opts = append(opts, mongo.WithCollection(cfg.Collection))
		}
		if cfg.VectorIndex != "" {
			opts = append(opts, mongo.WithVectorIndex(cfg.VectorIndex))
		}
		return mongo.NewRepository(ctx, cfg.URI, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownBackend, backend)
	}
}

// Open validates cfg and opens the notebook store. The AI provider is
// created on first use, so commands that never call a model run without
// an API key.
func Open(ctx context.Context, cfg *config.Config, opts ...HarvesterOption) (*Harvester, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &harvesterOptions{}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}

	repo := options.repo
	if repo == nil {
		var err error
		repo, err = OpenRepository(ctx, cfg.Storage, logger)
		if err != nil {
			return nil, err
		}
	}

	return &Harvester{
		cfg:         cfg,
		repo:        repo,
		base:        logger,
		logger:      logger.With("component", "harvester"),
		provider:    options.provider,
		tokenSource: options.tokenSource,
	}, nil
}

// Close releases the provider, if the harvester created it, and the store.
func (h *Harvester) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.provider != nil && h.ownProvider {
		if err := h.provider.Close(); err != nil {
			h.logger.Error("error closing AI provider", "err", err)
		}
		h.provider = nil
	}

	if err := h.repo.Close(); err != nil {
		h.logger.Error("error closing notebook repository", "err", err)
		return err
	}
	return nil
}

// Config returns the configuration the harvester was opened with.
func (h *Harvester) Config() *config.Config {
	return h.cfg
}

// Repository returns the notebook store.
func (h *Harvester) Repository() storage.NotebookRepository {
	return h.repo
}

// Provider returns the AI provider, creating it on first call.
func (h *Harvester) Provider() (ai.AIProvider, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.provider != nil {
		return h.provider, nil
	}
	provider, err := openai.NewProvider(h.cfg.AI.ProviderConfig())
	if err != nil {
		return nil, fmt.Errorf("create AI provider: %w", err)
	}
	h.provider = provider
	h.ownProvider = true
	return provider, nil
}

// OAuthConfig returns the Google client configuration.
func (h *Harvester) OAuthConfig() (*oauth2.Config, error) {
	return auth.OAuthConfig(h.cfg.Google.ClientID, h.cfg.Google.ClientSecret)
}

// Authorize runs the browser consent flow and stores the resulting token.
func (h *Harvester) Authorize(ctx context.Context, open func(string) error) error {
	oc, err := h.OAuthConfig()
	if err != nil {
		return err
	}
	_, err = auth.Authorize(ctx, oc, h.cfg.Google.TokenFile, open)
	return err
}

func (h *Harvester) colabFetcher(ctx context.Context) (ingestion.Fetcher, error) {
	if !h.cfg.Google.ColabEnabled {
		return nil, nil
	}
	ts := h.tokenSource
	if ts == nil {
		oc, err := h.OAuthConfig()
		if err != nil {
			return nil, err
		}
		ts, err = auth.TokenSource(ctx, oc, h.cfg.Google.TokenFile)
		if err != nil {
			return nil, err
		}
	}
	return ingestion.NewColabFetcher(ctx, ts)
}

// NewIngestionPipeline builds a pipeline with a GitHub fetcher and, when
// Colab is enabled, a Drive-backed Colab fetcher.
func (h *Harvester) NewIngestionPipeline(ctx context.Context, opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	ghOpts := []ingestion.GitHubOption{
		ingestion.WithRateLimit(h.cfg.GitHub.RateLimit, h.cfg.GitHub.Burst),
	}
	if h.cfg.GitHub.Token != "" {
		ghOpts = append(ghOpts, ingestion.WithGitHubToken(ctx, h.cfg.GitHub.Token))
	}
	github, err := ingestion.NewGitHubFetcher(ghOpts...)
	if err != nil {
		return nil, err
	}

	base := []ingestion.Option{
		ingestion.WithGitHubFetcher(github),
		ingestion.WithLogger(h.base),
	}
	colab, err := h.colabFetcher(ctx)
	if err != nil {
		return nil, fmt.Errorf("colab: %w", err)
	}
	if colab != nil {
		base = append(base, ingestion.WithColabFetcher(colab))
	}
	return ingestion.NewPipeline(h.repo, append(base, opts...)...)
}

// NewEnricher builds an enricher using the configured worker count.
// Callers must Release it.
func (h *Harvester) NewEnricher(opts ...enrichment.Option) (*enrichment.Enricher, error) {
	provider, err := h.Provider()
	if err != nil {
		return nil, err
	}
	base := []enrichment.Option{
		enrichment.WithWorkers(h.cfg.Enrichment.Workers),
		enrichment.WithLogger(h.base),
	}
	return enrichment.NewEnricher(h.repo, provider, append(base, opts...)...)
}

// NewSearcher builds a searcher over the store.
func (h *Harvester) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	provider, err := h.Provider()
	if err != nil {
		return nil, err
	}
	return search.NewSearcher(h.repo, provider, append([]search.Option{search.WithLogger(h.base)}, opts...)...)
}

// NewExporter builds an exporter writing to the configured directory.
func (h *Harvester) NewExporter(opts ...export.Option) (*export.Exporter, error) {
	base := []export.Option{
		export.WithDir(h.cfg.Export.Dir),
		export.WithLogger(h.base),
	}
	return export.NewExporter(h.repo, append(base, opts...)...)
}

// NewReembedder builds a reembedder. A nil cfg uses reembed.DefaultConfig.
func (h *Harvester) NewReembedder(cfg *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	provider, err := h.Provider()
	if err != nil {
		return nil, err
	}
	return reembed.NewReembedder(h.repo, provider.Embedder(), cfg, progress), nil
}

// Stats reports collection counts.
func (h *Harvester) Stats(ctx context.Context) (*storage.Stats, error) {
	return h.repo.Stats(ctx)
}
