package ports

import (
	"context"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

// CardSearcher is the inbound contract for hybrid card search.
type CardSearcher interface {
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error)
}

// TagExtractor is the inbound contract for single-card tag extraction.
type TagExtractor interface {
	ExtractCard(ctx context.Context, cardID string) ([]domain.CardTag, error)
}

// BatchExtractor runs one persisted extraction job to completion or pause.
type BatchExtractor interface {
	RunJob(ctx context.Context, jobID string) error
}

// ReviewQueueReader exposes the pending review worklist.
type ReviewQueueReader interface {
	ListPending(ctx context.Context, limit int) ([]domain.ReviewQueueEntry, error)
}
