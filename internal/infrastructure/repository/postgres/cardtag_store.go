package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

// CardTagStore persists card/tag associations and maintains the card's tag
// cache and review-queue entry inside the same transaction, so the invariant
// (cache == fresh recompute over current rows) survives crashes and
// concurrent readers.
type CardTagStore struct {
	db        *sql.DB
	threshold float64
}

func NewCardTagStore(db *sql.DB, reviewThreshold float64) *CardTagStore {
	if reviewThreshold <= 0 || reviewThreshold > 1 {
		reviewThreshold = 0.7
	}
	return &CardTagStore{db: db, threshold: reviewThreshold}
}

// ReplaceForCard overwrites the card's tag rows. Idempotent: re-running the
// same extraction leaves exactly one row per tag. The ON CONFLICT clause is
// the uniqueness invariant under concurrent writers.
func (s *CardTagStore) ReplaceForCard(ctx context.Context, cardID string, tags []domain.CardTag) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tag tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM card_tags WHERE card_id = $1`, cardID); err != nil {
		return fmt.Errorf("clear card tags: %w", err)
	}

	for _, t := range tags {
		_, err := tx.ExecContext(ctx, `
INSERT INTO card_tags (card_id, tag_name, confidence, source, model, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (card_id, tag_name) DO UPDATE
SET confidence = EXCLUDED.confidence, source = EXCLUDED.source, model = EXCLUDED.model, created_at = EXCLUDED.created_at
`, cardID, t.TagName, t.Confidence, string(t.Source), t.Model, t.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert card tag %s: %w", t.TagName, err)
		}
	}

	if err := s.maintainWithinTx(ctx, tx, cardID, tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tag tx: %w", err)
	}
	return nil
}

// maintainWithinTx is the confidence maintainer: an explicit, synchronous
// recompute in the mutating transaction rather than a database trigger.
func (s *CardTagStore) maintainWithinTx(ctx context.Context, tx *sql.Tx, cardID string, tags []domain.CardTag) error {
	summary := domain.SummarizeCardTags(tags, s.threshold)

	namesJSON, err := json.Marshal(summary.TagNames)
	if err != nil {
		return fmt.Errorf("marshal tag names: %w", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
UPDATE cards
SET tag_names = $2, tag_confidence_avg = $3, needs_review = $4, updated_at = $5
WHERE id = $1
`, cardID, namesJSON, summary.ConfidenceAvg, summary.NeedsReview, now); err != nil {
		return fmt.Errorf("update card tag cache: %w", err)
	}

	// When review clears, the entry stays for manual resolution; it is only
	// never re-created.
	if !summary.NeedsReview {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO review_queue (card_id, reason, priority, created_at, updated_at)
VALUES ($1,$2,$3,$4,$4)
ON CONFLICT (card_id) DO UPDATE
SET reason = EXCLUDED.reason, priority = EXCLUDED.priority, updated_at = EXCLUDED.updated_at
`, cardID, summary.ReviewReason, summary.Priority, now); err != nil {
		return fmt.Errorf("upsert review entry: %w", err)
	}
	return nil
}

func (s *CardTagStore) ListForCard(ctx context.Context, cardID string) ([]domain.CardTag, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT card_id, tag_name, confidence, source, model, created_at
FROM card_tags
WHERE card_id = $1
ORDER BY tag_name
`, cardID)
	if err != nil {
		return nil, fmt.Errorf("list card tags: %w", err)
	}
	defer rows.Close()

	out := make([]domain.CardTag, 0)
	for rows.Next() {
		var (
			t      domain.CardTag
			source string
		)
		if err := rows.Scan(&t.CardID, &t.TagName, &t.Confidence, &source, &t.Model, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan card tag: %w", err)
		}
		t.Source = domain.TagSource(source)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate card tags: %w", err)
	}
	return out, nil
}
