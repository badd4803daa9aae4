// Package bootstrap wires configuration, infrastructure adapters, and
// usecases into a runnable application.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/intelliject/intelliject/internal/config"
	"github.com/intelliject/intelliject/internal/core/ports"
	"github.com/intelliject/intelliject/internal/core/usecase"
	"github.com/intelliject/intelliject/internal/infrastructure/chunking"
	"github.com/intelliject/intelliject/internal/infrastructure/extractor/pdftext"
	"github.com/intelliject/intelliject/internal/infrastructure/index/hnswindex"
	"github.com/intelliject/intelliject/internal/infrastructure/llm/ollama"
	natsqueue "github.com/intelliject/intelliject/internal/infrastructure/queue/nats"
	"github.com/intelliject/intelliject/internal/infrastructure/repository/postgres"
	"github.com/intelliject/intelliject/internal/infrastructure/resilience"
	"github.com/intelliject/intelliject/internal/infrastructure/textspan"
	"github.com/intelliject/intelliject/internal/observability/logging"
	"github.com/intelliject/intelliject/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Registry *hnswindex.Registry
	Metrics  *metrics.PipelineMetrics

	Corpus    ports.CorpusStore
	History   ports.HistoryStore
	Events    ports.CorpusEvents
	Extractor ports.DocumentExtractor

	Indexer  ports.CorpusIndexer
	Pipeline ports.Pipeline

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	corpus := postgres.NewPYQRepository(db)
	if err := corpus.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure corpus schema: %w", err)
	}
	history := postgres.NewHistoryRepository(db)
	if err := history.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure history schema: %w", err)
	}

	policy := resilience.DefaultPolicy()
	if cfg.RetryMaxAttempts > 0 {
		policy.MaxAttempts = cfg.RetryMaxAttempts
	}
	executor := resilience.NewExecutor(policy)

	events, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSTopic, natsqueue.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init corpus events: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor, cfg.OllamaRPS)
	embedder := ollama.NewEmbedder(ollamaClient)
	classifier := ollama.NewClassifier(ollamaClient)
	answerExtractor := ollama.NewExtractor(ollamaClient)

	registry := hnswindex.NewRegistry()
	builder := hnswindex.NewBuilder(cfg.IndexM, cfg.IndexEfSearch)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	spanLocator := textspan.NewLocator(cfg.MinOverlap)
	docExtractor := pdftext.New()

	indexer := usecase.NewIndexUseCase(corpus, embedder, builder, registry, logger)
	retriever := usecase.NewRetrieveUseCase(registry, embedder, chunker)
	annotator := usecase.NewAnnotateUseCase(classifier, answerExtractor, spanLocator,
		cfg.LocateConcurrency, cfg.MinSubTopicConfidence, cfg.MinAnswerConfidence)
	pipeline := usecase.NewPipelineUseCase(retriever, annotator, registry, cfg.TopK, cfg.MinScore, logger)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Registry:  registry,
		Metrics:   metrics.NewPipelineMetrics(service),
		Corpus:    corpus,
		History:   history,
		Events:    events,
		Extractor: docExtractor,
		Indexer:   indexer,
		Pipeline:  pipeline,
		closeFn: func() {
			events.Close()
			_ = db.Close()
		},
	}, nil
}

// WarmIndexes builds the configured subjects' indexes at startup. Failures
// are logged and skipped: a subject with no corpus yet should not block the
// process from serving the others.
func (a *App) WarmIndexes(ctx context.Context) {
	for _, subject := range a.Config.Subjects {
		start := time.Now()
		index, err := a.Indexer.Rebuild(ctx, subject)
		if err != nil {
			a.Logger.Warn("index_warmup_failed", "subject", subject, "error", err)
			continue
		}
		a.Metrics.RecordIndexRebuild("warmup", subject, "ok", index.Len(), time.Since(start))
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
