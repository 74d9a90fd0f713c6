package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

const cardColumns = `id, name, mana_cost, cmc, type_line, oracle_text, keywords, colors, rarity, power, toughness, released_at, tag_names, tag_confidence_avg, needs_review, created_at, updated_at`

type CardRepository struct {
	db *sql.DB
}

func NewCardRepository(db *sql.DB) *CardRepository {
	return &CardRepository{db: db}
}

func (r *CardRepository) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+cardColumns+`
FROM cards
WHERE id = $1
`, id)

	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrCardNotFound, "get card", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get card by id: %w", err)
	}
	return &card, nil
}

func (r *CardRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Card, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT `+cardColumns+`
FROM cards
WHERE id = ANY($1)
`, ids)
	if err != nil {
		return nil, fmt.Errorf("get cards by ids: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Card, 0, len(ids))
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		out = append(out, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return out, nil
}

func (r *CardRepository) NameExists(ctx context.Context, normalized string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
SELECT EXISTS (SELECT 1 FROM cards WHERE LOWER(name) = $1)
`, normalized).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check card name: %w", err)
	}
	return exists, nil
}

// ListIDsForExtraction returns untagged cards first, oldest first, so a bulk
// run covers the corpus before revisiting anything.
func (r *CardRepository) ListIDsForExtraction(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT c.id
FROM cards c
LEFT JOIN card_tags ct ON ct.card_id = c.id
WHERE ct.card_id IS NULL
ORDER BY c.created_at
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list cards for extraction: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan card id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate card ids: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (domain.Card, error) {
	var (
		card        domain.Card
		keywordsRaw []byte
		colorsRaw   []byte
		tagNamesRaw []byte
	)
	err := row.Scan(
		&card.ID, &card.Name, &card.ManaCost, &card.CMC, &card.TypeLine, &card.OracleText,
		&keywordsRaw, &colorsRaw, &card.Rarity, &card.Power, &card.Toughness,
		&card.ReleasedAt, &tagNamesRaw, &card.TagConfidenceAvg, &card.NeedsReview,
		&card.CreatedAt, &card.UpdatedAt,
	)
	if err != nil {
		return domain.Card{}, err
	}

	if err := json.Unmarshal(keywordsRaw, &card.Keywords); err != nil {
		return domain.Card{}, fmt.Errorf("unmarshal keywords: %w", err)
	}
	if err := json.Unmarshal(colorsRaw, &card.Colors); err != nil {
		return domain.Card{}, fmt.Errorf("unmarshal colors: %w", err)
	}
	if err := json.Unmarshal(tagNamesRaw, &card.TagNames); err != nil {
		return domain.Card{}, fmt.Errorf("unmarshal tag names: %w", err)
	}
	return card, nil
}
