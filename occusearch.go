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


package occusearch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/occusearch/ai"
	"github.com/poiesic/occusearch/ai/openai"
	"github.com/poiesic/occusearch/catalog"
	"github.com/poiesic/occusearch/config"
	"github.com/poiesic/occusearch/core"
	"github.com/poiesic/occusearch/index"
	"github.com/poiesic/occusearch/reembed"
	"github.com/poiesic/occusearch/search"
	"github.com/poiesic/occusearch/storage/badger"
)

// Engine wires a catalog, an embedding provider and an optional persistent
// vector cache into a ready-to-query search service.
type Engine struct {
	config     *config.Config
	index      *index.Index
	controller *search.Controller
	service    *search.Service
	backend    *badger.Backend
	vectors    *badger.VectorRepository
	db         *sql.DB
	logger     *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	source  catalog.Source
	acquire search.AcquireFunc
	monitor search.SearchMonitor
	logger  *slog.Logger
}

// WithSource replaces the catalog source derived from the configuration.
func WithSource(source catalog.Source) EngineOption {
	return func(o *engineOptions) {
		o.source = source
	}
}

// WithAcquire replaces the OpenAI-compatible provider derived from the
// configuration.
func WithAcquire(acquire search.AcquireFunc) EngineOption {
	return func(o *engineOptions) {
		o.acquire = acquire
	}
}

// WithMonitor attaches a SearchMonitor to every search.
func WithMonitor(monitor search.SearchMonitor) EngineOption {
	return func(o *engineOptions) {
		o.monitor = monitor
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// NewEngine loads the catalog, probes the embedding provider once and
// builds the search service. A provider that cannot be reached is not an
// error: the engine serves fallback searches instead.
func NewEngine(ctx context.Context, cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Apply options
	options := &engineOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	e := &Engine{
		config: cfg,
		logger: options.logger.With("component", "engine"),
	}

	source := options.source
	if source == nil {
		var err error
		source, err = e.openSource()
		if err != nil {
			e.Close()
			return nil, err
		}
	}

	entries, err := source.Load(ctx)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	e.controller = search.NewController(
		search.WithProbeTimeout(cfg.Embedding.ProbeTimeout.Duration),
		search.WithControllerLogger(options.logger.With("component", "controller")),
	)
	acquire := options.acquire
	if acquire == nil && !cfg.Embedding.Disabled {
		aiConfig := cfg.AIConfig()
		acquire = func(ctx context.Context) (ai.AIProvider, error) {
			return openai.NewProvider(aiConfig)
		}
	}
	if err := e.controller.Probe(ctx, acquire); err != nil {
		e.logger.Info("starting in fallback mode", "reason", err)
	}

	indexOpts := []index.Option{
		index.WithLogger(options.logger.With("component", "index")),
		index.WithEmbedTimeout(cfg.Embedding.EmbedTimeout.Duration),
	}
	if cfg.Cache.Path != "" && e.controller.Embedder() != nil {
		if err := e.openCache(); err != nil {
			e.Close()
			return nil, err
		}
		indexOpts = append(indexOpts, index.WithVectorCache(e.vectors))
	}

	e.index, err = index.Load(entries, e.controller.Embedder(), indexOpts...)
	if err != nil {
		e.Close()
		return nil, err
	}

	rankerOpts := []search.Option{
		search.WithLogger(options.logger.With("component", "ranker")),
		search.WithWeights(search.Weights{
			Semantic: cfg.Search.SemanticWeight,
			Lexical:  cfg.Search.LexicalWeight,
		}),
		search.WithEmbedTimeout(cfg.Embedding.EmbedTimeout.Duration),
	}
	serviceOpts := []search.ServiceOption{
		search.WithServiceLogger(options.logger.With("component", "search-service")),
	}
	if options.monitor != nil {
		serviceOpts = append(serviceOpts, search.WithMonitor(options.monitor))
	}
	e.service, err = search.NewService(e.controller, e.index, rankerOpts, serviceOpts...)
	if err != nil {
		e.Close()
		return nil, err
	}

	e.logger.Info("engine ready", "entries", e.index.Len(), "mode", e.Mode())
	return e, nil
}

func (e *Engine) openSource() (catalog.Source, error) {
	cfg := e.config
	columns := catalog.Columns{Title: cfg.Catalog.TitleColumn, Code: cfg.Catalog.CodeColumn}

	switch cfg.CatalogFormat() {
	case config.FormatControl:
		return catalog.NewControlFileSource(cfg.Catalog.Path, columns), nil
	case config.FormatSQL:
		db, err := sql.Open(cfg.Catalog.Driver, cfg.Catalog.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening catalog database: %w", err)
		}
		e.db = db
		return catalog.NewSQLSource(db, cfg.Catalog.Query)
	default:
		return catalog.NewCSVSource(cfg.Catalog.Path,
			catalog.WithDelimiter(cfg.Delimiter()),
			catalog.WithColumns(columns),
		), nil
	}
}

func (e *Engine) openCache() error {
	backend, err := badger.OpenBackend(e.config.Cache.Path, false)
	if err != nil {
		return fmt.Errorf("opening vector cache: %w", err)
	}
	vectors, err := badger.NewVectorRepository(backend)
	if err != nil {
		backend.Close()
		return err
	}
	e.backend = backend
	e.vectors = vectors
	return nil
}

// Search ranks the catalog against text. See search.Service.Search.
func (e *Engine) Search(ctx context.Context, text string, topK int) (*core.Response, error) {
	return e.service.Search(ctx, text, topK)
}

// Handle is Search without an error return. See search.Service.Handle.
func (e *Engine) Handle(ctx context.Context, text string, topK int) *core.Response {
	return e.service.Handle(ctx, text, topK)
}

// DefaultTopK returns the configured number of results per search.
func (e *Engine) DefaultTopK() int {
	return e.config.Search.TopK
}

// Mode returns the mode fixed by the startup probe.
func (e *Engine) Mode() core.Mode {
	return e.controller.CurrentMode()
}

// State returns the controller state.
func (e *Engine) State() search.State {
	return e.controller.State()
}

// Index returns the loaded catalog index.
func (e *Engine) Index() *index.Index {
	return e.index
}

// Warm embeds every catalog title that has no embedding yet, writing
// progress to w. It requires hybrid mode.
func (e *Engine) Warm(ctx context.Context, w io.Writer, cfg *reembed.Config) (*reembed.Stats, error) {
	embedder := e.controller.Embedder()
	if embedder == nil {
		return nil, fmt.Errorf("%w: warm-up requires an embedding provider", core.ErrProviderUnavailable)
	}
	if cfg == nil {
		cfg = reembed.DefaultConfig()
		cfg.BatchSize = e.config.Embedding.BatchSize
	}

	r, err := reembed.NewReembedder(e.index, embedder, cfg, w)
	if err != nil {
		return nil, err
	}
	defer r.Release()
	return r.Run(ctx)
}

// CachedVectors returns the number of vectors persisted for the active model.
// It is zero when no persistent cache is open.
func (e *Engine) CachedVectors(ctx context.Context) (int, error) {
	if e.vectors == nil {
		return 0, nil
	}
	return e.vectors.CountVectors(ctx, e.index.ModelID())
}

// PurgeCache removes the persisted vectors of the active model.
func (e *Engine) PurgeCache(ctx context.Context) (int, error) {
	if e.vectors == nil {
		return 0, nil
	}
	return e.vectors.PurgeModel(ctx, e.index.ModelID())
}

// Close releases the provider, the cache and the catalog database.
func (e *Engine) Close() error {
	var errs []error

	// Close AI provider first
	if e.controller != nil {
		if err := e.controller.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if e.index != nil {
		e.index.Shutdown()
	}
	if e.backend != nil {
		if err := e.backend.Close(); err != nil {
			e.logger.Error("error closing vector cache", "err", err)
			errs = append(errs, err)
		}
		e.backend = nil
		e.vectors = nil
	}
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			e.logger.Error("error closing catalog database", "err", err)
			errs = append(errs, err)
		}
		e.db = nil
	}
	return errors.Join(errs...)
}
