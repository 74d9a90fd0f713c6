package ports

import (
	"context"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

// CardRepository reads card records and the name index used by the
// classifier's exact-match rule.
type CardRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Card, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Card, error)
	NameExists(ctx context.Context, normalized string) (bool, error)
	ListIDsForExtraction(ctx context.Context, limit int) ([]string, error)
}

// FilterStore evaluates structured predicates and substring text search over
// the card corpus. Predicate evaluation over explicit candidate ids must be
// preferred; a nil candidate set means a bounded corpus-level query.
type FilterStore interface {
	EvaluatePredicates(ctx context.Context, candidateIDs []string, p domain.Predicates, limit int) ([]string, error)
	TextSearch(ctx context.Context, term string, limit int) ([]domain.Card, error)
}

// VectorIndex performs approximate nearest-neighbor retrieval over card
// embeddings. Distances are cosine distances.
type VectorIndex interface {
	NearestNeighbors(ctx context.Context, vector []float32, k int) ([]domain.Neighbor, error)
}

// Embedder builds a query embedding.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// TagGenerator calls the external text-generation capability for one card.
// Rate limiting surfaces as *domain.RateLimitError; malformed output as
// domain.ErrParse.
type TagGenerator interface {
	GenerateTags(ctx context.Context, card *domain.Card, taxonomy []domain.Tag) ([]domain.ExtractedTag, error)
	Model() string
}

// TagTaxonomy reads the immutable tag taxonomy.
type TagTaxonomy interface {
	ListTags(ctx context.Context) ([]domain.Tag, error)
}

// CardTagStore persists card/tag associations. ReplaceForCard is atomic with
// the confidence recompute and review-queue maintenance: a concurrent reader
// never observes the card cache inconsistent with the tag rows.
type CardTagStore interface {
	ReplaceForCard(ctx context.Context, cardID string, tags []domain.CardTag) error
	ListForCard(ctx context.Context, cardID string) ([]domain.CardTag, error)
}

// ReviewQueueStore reads pending review entries; writes happen inside the
// CardTagStore transaction.
type ReviewQueueStore interface {
	ListPending(ctx context.Context, limit int) ([]domain.ReviewQueueEntry, error)
}

// ExtractionJobStore persists bulk-run bookkeeping.
type ExtractionJobStore interface {
	Create(ctx context.Context, job *domain.ExtractionJob) error
	GetByID(ctx context.Context, id string) (*domain.ExtractionJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.JobStatus) error
	UpdateTotal(ctx context.Context, id string, total int) error
	UpdateProgress(ctx context.Context, id string, processed, failed int) error
}

// JobQueue carries extraction job ids from the API to the worker.
type JobQueue interface {
	PublishJob(ctx context.Context, jobID string) error
	SubscribeJobs(ctx context.Context, handler func(context.Context, string) error) error
}
