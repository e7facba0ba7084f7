// Package pipeline wires extraction, persistence, vector indexing and the
// validation orchestrator into the complete document workflow used by the
// CLI and the HTTP API.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/prasadk/complyscan/internal/cache"
	"github.com/prasadk/complyscan/internal/extract"
	"github.com/prasadk/complyscan/internal/llm"
	"github.com/prasadk/complyscan/internal/model"
	"github.com/prasadk/complyscan/internal/relevance"
	"github.com/prasadk/complyscan/internal/rules"
	"github.com/prasadk/complyscan/internal/store"
	"github.com/prasadk/complyscan/internal/validate"
	"github.com/prasadk/complyscan/internal/vector"
	"github.com/prasadk/complyscan/internal/worker"
)

// Pipeline orchestrates the complete ingestion and validation process
type Pipeline struct {
	extractor    *extract.Extractor
	store        *store.Store
	ruleStore    *rules.Store
	index        *vector.Index // nil when vector search is disabled
	orchestrator *validate.Orchestrator
	renderer     *Renderer
	config       *model.Config
	logger       *slog.Logger
}

// New builds a pipeline from configuration. The vector index is optional:
// when disabled (or unreachable) validation proceeds on keyword relevance
// alone.
func New(ctx context.Context, cfg *model.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ruleStore, err := rules.Load(cfg.Rules.Dir)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	runStore, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		runStore.Close()
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}

	verdictCache, err := cache.New(cfg.Cache)
	if err != nil {
		runStore.Close()
		return nil, fmt.Errorf("create cache: %w", err)
	}

	var index *vector.Index
	var searcher relevance.Searcher
	if cfg.Vector.Enabled {
		embedder, err := vector.NewOllamaEmbedder(cfg.Vector.OllamaHost, cfg.Vector.EmbedModel)
		if err != nil {
			runStore.Close()
			return nil, fmt.Errorf("create embedder: %w", err)
		}
		index, err = vector.NewIndex(ctx, cfg.Vector.PostgresURL, embedder, cfg.Vector.Dimensions)
		if err != nil {
			runStore.Close()
			return nil, fmt.Errorf("connect vector index: %w", err)
		}
		searcher = index
	}

	var limiter *worker.Limiter
	if cfg.LLM.RequestsPerSecond > 0 {
		limiter = worker.NewLimiter(cfg.LLM.RequestsPerSecond, cfg.LLM.Burst)
	}

	filter := relevance.NewFilter(searcher, cfg.Validation.MaxSegments, cfg.Validation.SimilarityTopK, logger)
	orchestrator := validate.New(ruleStore, runStore, provider, filter, verdictCache, limiter, cfg.Validation, logger)

	return &Pipeline{
		extractor:    extract.NewExtractor(),
		store:        runStore,
		ruleStore:    ruleStore,
		index:        index,
		orchestrator: orchestrator,
		renderer:     NewRenderer(cfg.Output.IncludeFooter),
		config:       cfg,
		logger:       logger,
	}, nil
}

// Close releases the store and vector connections
func (p *Pipeline) Close() error {
	if p.index != nil {
		p.index.Close()
	}
	return p.store.Close()
}

// Store exposes the run store for the HTTP API
func (p *Pipeline) Store() *store.Store {
	return p.store
}

// Rules exposes the rule store for the HTTP API
func (p *Pipeline) Rules() *rules.Store {
	return p.ruleStore
}

// Search runs a semantic query over the indexed segments. Fails when
// vector search is disabled.
func (p *Pipeline) Search(ctx context.Context, documentID, query string, k int) ([]model.ScoredSegment, error) {
	if p.index == nil {
		return nil, fmt.Errorf("vector search is disabled; enable it in the configuration")
	}
	return p.index.SimilaritySearch(ctx, documentID, query, k)
}

// Ingest extracts, segments and registers a document. documentID may be
// empty, in which case a new id is assigned. Re-ingesting an existing id
// replaces its segments and invalidates cached verdicts via the content
// hash in the cache key.
func (p *Pipeline) Ingest(ctx context.Context, path, documentID string) (*model.Document, error) {
	if documentID == "" {
		documentID = uuid.NewString()
	}

	segments, err := p.extractor.Extract(path, documentID)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}

	doc := model.Document{
		ID:           documentID,
		Name:         filepath.Base(path),
		SegmentCount: len(segments),
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.store.SaveDocument(ctx, doc, segments); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	if p.index != nil {
		if err := p.index.IndexSegments(ctx, documentID, segments); err != nil {
			// Keyword relevance still works without the index
			p.logger.Warn("vector indexing failed, semantic search unavailable for document",
				"document_id", documentID, "error", err)
		}
	}

	p.logger.Info("document ingested",
		"document_id", documentID,
		"name", doc.Name,
		"segments", len(segments))
	return &doc, nil
}

// Validate runs a framework's rules against an ingested document and
// persists the resulting run.
func (p *Pipeline) Validate(ctx context.Context, documentID, framework string) (*model.ValidationRun, error) {
	run, err := p.orchestrator.Validate(ctx, documentID, framework)
	if err != nil {
		return nil, err
	}
	if err := p.store.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}
	return run, nil
}

// RenderReport renders the run to the specified outputs and prints a
// summary to stdout.
func (p *Pipeline) RenderReport(run *model.ValidationRun, jsonPath, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(run, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(run, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	p.renderer.RenderSummary(run)
	return nil
}
