package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/rueidis"

	"github.com/deckhaven/cardsearch/internal/config"
	"github.com/deckhaven/cardsearch/internal/core/ports"
	"github.com/deckhaven/cardsearch/internal/core/usecase"
	"github.com/deckhaven/cardsearch/internal/infrastructure/cache/redisemb"
	"github.com/deckhaven/cardsearch/internal/infrastructure/llm/ollama"
	"github.com/deckhaven/cardsearch/internal/infrastructure/llm/openaiapi"
	natsqueue "github.com/deckhaven/cardsearch/internal/infrastructure/queue/nats"
	"github.com/deckhaven/cardsearch/internal/infrastructure/repository/postgres"
	"github.com/deckhaven/cardsearch/internal/infrastructure/resilience"
	"github.com/deckhaven/cardsearch/internal/infrastructure/taxonomy"
	"github.com/deckhaven/cardsearch/internal/infrastructure/vector/qdrant"
)

// Options carries wiring that only some processes provide. The API process
// hands in its embedding-cache counter; the worker runs without one.
type Options struct {
	EmbeddingCacheCounter *prometheus.CounterVec
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue *natsqueue.Queue

	Cards     ports.CardRepository
	Tags      ports.CardTagStore
	Jobs      ports.ExtractionJobStore
	Review    ports.ReviewQueueStore
	SearchUC  *usecase.SearchUseCase
	ExtractUC *usecase.ExtractionOrchestrator
	BatchUC   *usecase.BatchExtractionUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	cards := postgres.NewCardRepository(db)
	filters := postgres.NewFilterStore(db)
	tagRepo := postgres.NewTagRepository(db)
	cardTags := postgres.NewCardTagStore(db, cfg.ReviewThreshold)
	review := postgres.NewReviewQueueStore(db)
	jobs := postgres.NewJobRepository(db)

	if err := seedTaxonomy(ctx, cfg.TaxonomyPath, tagRepo, logger); err != nil {
		return nil, err
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)

	queue, err := natsqueue.New(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		Executor: executor,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init job queue: %w", err)
	}

	generator, embedder, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	var redisClient rueidis.Client
	if cfg.EmbedCacheEnabled {
		redisClient, err = rueidis.NewClient(rueidis.ClientOption{
			InitAddress: []string{cfg.RedisAddr},
		})
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		embedder = redisemb.New(embedder, redisClient, cfg.EmbedCacheTTL, opts.EmbeddingCacheCounter, logger)
	}

	vector := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, executor)
	classifier := usecase.NewQueryClassifier(cards)

	searchUC := usecase.NewSearchUseCase(cards, filters, vector, embedder, classifier, usecase.SearchConfig{
		DefaultLimit:   cfg.SearchDefaultLimit,
		MaxLimit:       cfg.SearchMaxLimit,
		CandidateLimit: cfg.SearchCandidateLimit,
		VectorTopK:     cfg.SearchVectorTopK,
	})
	extractUC := usecase.NewExtractionOrchestrator(cards, tagRepo, generator, cardTags, usecase.ExtractionConfig{
		MaxRetries:      cfg.ExtractMaxRetries,
		DefaultWait:     cfg.ExtractDefaultWait,
		WaitBuffer:      cfg.ExtractWaitBuffer,
		InheritDiscount: cfg.ExtractInheritDiscount,
	}, logger)
	batchUC := usecase.NewBatchExtractionUseCase(jobs, cards, extractUC, queue, usecase.BatchConfig{
		Workers:        cfg.BatchWorkers,
		CallsPerMinute: cfg.BatchCallsPerMinute,
		MaxCards:       cfg.BatchMaxCards,
	}, logger)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue: queue,

		Cards:     cards,
		Tags:      cardTags,
		Jobs:      jobs,
		Review:    review,
		SearchUC:  searchUC,
		ExtractUC: extractUC,
		BatchUC:   batchUC,

		closeFn: func() {
			queue.Close()
			if redisClient != nil {
				redisClient.Close()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func buildProvider(cfg config.Config) (ports.TagGenerator, ports.Embedder, error) {
	switch cfg.LLMProvider {
	case "", "ollama":
		client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel)
		return ollama.NewTagGenerator(client), ollama.NewEmbedder(client), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, nil, fmt.Errorf("LLM_PROVIDER=openai requires OPENAI_API_KEY")
		}
		client := openaiapi.New(openaiapi.Config{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			GenModel:   cfg.OpenAIGenModel,
			EmbedModel: cfg.OpenAIEmbedModel,
		})
		return client, client, nil
	default:
		return nil, nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}

// seedTaxonomy loads the YAML taxonomy and upserts it. A missing file is not
// fatal: the taxonomy may already be in the database from a previous deploy.
func seedTaxonomy(ctx context.Context, path string, repo *postgres.TagRepository, logger *slog.Logger) error {
	tags, err := taxonomy.LoadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("taxonomy_seed_skipped", "path", path, "error", err)
			return nil
		}
		return fmt.Errorf("load taxonomy: %w", err)
	}
	if err := repo.UpsertTags(ctx, tags); err != nil {
		return fmt.Errorf("seed taxonomy: %w", err)
	}
	logger.Info("taxonomy_seeded", "path", path, "tags", len(tags))
	return nil
}
