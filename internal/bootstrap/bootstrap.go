// Package bootstrap wires configuration, infrastructure adapters, and use
// cases into a runnable application for both the API and the worker binaries.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/atlashist/archive-assistant/internal/adapters/http"
	"github.com/atlashist/archive-assistant/internal/config"
	"github.com/atlashist/archive-assistant/internal/core/usecase"
	"github.com/atlashist/archive-assistant/internal/infrastructure/chunking"
	"github.com/atlashist/archive-assistant/internal/infrastructure/extractor"
	"github.com/atlashist/archive-assistant/internal/infrastructure/llm/ollama"
	natsqueue "github.com/atlashist/archive-assistant/internal/infrastructure/queue/nats"
	"github.com/atlashist/archive-assistant/internal/infrastructure/registry"
	"github.com/atlashist/archive-assistant/internal/infrastructure/repository/postgres"
	"github.com/atlashist/archive-assistant/internal/infrastructure/resilience"
	"github.com/atlashist/archive-assistant/internal/infrastructure/storage/localfs"
	"github.com/atlashist/archive-assistant/internal/infrastructure/vector/qdrant"
	"github.com/atlashist/archive-assistant/internal/observability/logging"
	"github.com/atlashist/archive-assistant/internal/observability/metrics"
)

// App holds every wired component. Both binaries build the same App and use
// the parts they need.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Registry *registry.Registry

	DB        *sql.DB
	Queue     *natsqueue.Queue
	Documents *postgres.DocumentRepository

	RetrieveUC *usecase.RetrieveUseCase
	QueryUC    *usecase.QueryUseCase
	IngestUC   *usecase.IngestDocumentUseCase
	ProcessUC  *usecase.ProcessDocumentUseCase

	HTTPMetrics   *metrics.HTTPServerMetrics
	WorkerMetrics *metrics.WorkerMetrics
	Router        *httpadapter.Router
}

type role int

const (
	roleAPI role = iota
	roleWorker
)

// NewAPI wires the HTTP-facing application: retrieval, answering, and
// document upload.
func NewAPI(ctx context.Context, cfg config.Config) (*App, error) {
	return build(ctx, cfg, roleAPI)
}

// NewWorker wires the queue consumer that extracts, chunks, embeds, and
// indexes uploaded documents.
func NewWorker(ctx context.Context, cfg config.Config) (*App, error) {
	return build(ctx, cfg, roleWorker)
}

func build(ctx context.Context, cfg config.Config, r role) (*App, error) {
	serviceName := "api"
	if r == roleWorker {
		serviceName = "worker"
	}
	logger := logging.NewJSONLogger("archive-assistant-"+serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	corpora, err := registry.LoadFile(cfg.CorpusRegistryPath)
	if err != nil {
		return nil, fmt.Errorf("load corpus registry: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	store, err := localfs.New(cfg.StoragePath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	vectorStore := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, qdrant.WithResilienceExecutor(executor))

	llmClient := ollama.New(
		cfg.OllamaURL,
		cfg.OllamaGenModel,
		cfg.OllamaEmbedModel,
		ollama.WithResilienceExecutor(executor),
	)
	embedder := ollama.NewEmbedder(llmClient)
	generator := ollama.NewGenerator(llmClient)

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Registry:  corpora,
		DB:        db,
		Queue:     queue,
		Documents: repo,
	}

	retrievalCfg := usecase.RetrievalConfig{
		RRFK:          cfg.RetrievalRRFK,
		PerCorpusK:    cfg.RetrievalPerCorpusK,
		AllCorpusK:    cfg.RetrievalAllCorpusK,
		MaxConcurrent: cfg.RetrievalMaxConcurrent,
		SourceTimeout: cfg.RetrievalSourceTimeout,
		QueryDeadline: cfg.RetrievalDeadline,
		Weights: usecase.RerankWeights{
			ExactPhrase:      cfg.RerankExactPhraseWeight,
			KeywordFrequency: cfg.RerankKeywordFreqWeight,
			KeywordProximity: cfg.RerankProximityWeight,
			MetadataBoost:    cfg.RerankMetadataBoostWeight,
			SemanticAnchor:   cfg.RerankSemanticAnchor,
		},
	}

	switch r {
	case roleAPI:
		app.HTTPMetrics = metrics.NewHTTPServerMetrics(serviceName)
		retrievalMetrics := metrics.NewRetrievalMetrics(serviceName, app.HTTPMetrics.Registry())

		retrieveUC, err := usecase.NewRetrieveUseCase(vectorStore, vectorStore, corpora, retrievalMetrics, retrievalCfg)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.RetrieveUC = retrieveUC
		app.QueryUC = usecase.NewQueryUseCase(embedder, retrieveUC, generator, cfg.RetrievalFinalK)
		app.IngestUC = usecase.NewIngestDocumentUseCase(repo, store, queue, corpora)

		app.Router = httpadapter.NewRouter(
			app.IngestUC,
			app.QueryUC,
			repo,
			corpora,
			app.HTTPMetrics,
			httpadapter.Config{
				RateLimitRPS:   cfg.APIRateLimitRPS,
				RateLimitBurst: cfg.APIRateLimitBurst,
			},
		)

	case roleWorker:
		app.WorkerMetrics = metrics.NewWorkerMetrics(serviceName)
		splitter := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
		texts := extractor.New(store)
		app.ProcessUC = usecase.NewProcessDocumentUseCase(repo, texts, splitter, embedder, vectorStore)
	}

	return app, nil
}

// Close releases connections and worker pools. Safe on a partially built App.
func (a *App) Close() {
	if a.RetrieveUC != nil {
		a.RetrieveUC.Release()
	}
	if a.Queue != nil {
		a.Queue.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
