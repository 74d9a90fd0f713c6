package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

// ReviewQueueStore reads the pending review worklist. Writes happen inside
// the CardTagStore transaction.
type ReviewQueueStore struct {
	db *sql.DB
}

func NewReviewQueueStore(db *sql.DB) *ReviewQueueStore {
	return &ReviewQueueStore{db: db}
}

func (s *ReviewQueueStore) ListPending(ctx context.Context, limit int) ([]domain.ReviewQueueEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	// Cleared cards keep their review_queue row for the audit trail; the
	// worklist shows only cards still flagged.
	rows, err := s.db.QueryContext(ctx, `
SELECT rq.card_id, rq.reason, rq.priority, rq.created_at, rq.updated_at
FROM review_queue rq
JOIN cards c ON c.id = rq.card_id
WHERE c.needs_review
ORDER BY rq.priority DESC, rq.updated_at
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list review queue: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ReviewQueueEntry, 0, limit)
	for rows.Next() {
		var e domain.ReviewQueueEntry
		if err := rows.Scan(&e.CardID, &e.Reason, &e.Priority, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan review entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review entries: %w", err)
	}
	return out, nil
}
