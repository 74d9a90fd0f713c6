package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

// FilterStore evaluates structured predicates and substring text search over
// the card corpus.
type FilterStore struct {
	db *sql.DB
}

func NewFilterStore(db *sql.DB) *FilterStore {
	return &FilterStore{db: db}
}

// EvaluatePredicates returns the card ids satisfying the predicate
// conjunction. With candidateIDs set, evaluation is restricted to that set
// and the caller re-applies its own ordering; with nil it is a bounded
// corpus query ordered by newest printing.
func (s *FilterStore) EvaluatePredicates(
	ctx context.Context,
	candidateIDs []string,
	p domain.Predicates,
	limit int,
) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}

	conds := make([]string, 0, 10)
	args := make([]any, 0, 10)
	if candidateIDs != nil {
		conds = append(conds, "id = ANY($1)")
		args = append(args, candidateIDs)
	}

	predConds, predArgs, err := buildPredicateConditions(p, len(args)+1)
	if err != nil {
		return nil, err
	}
	conds = append(conds, predConds...)
	args = append(args, predArgs...)

	if len(conds) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
SELECT id
FROM cards
WHERE %s
ORDER BY released_at DESC, id
LIMIT $%d
`, strings.Join(conds, " AND "), len(args)+1)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("evaluate predicates: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan predicate match: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate predicate matches: %w", err)
	}
	return out, nil
}

// TextSearch matches the lowercase term against name, oracle text and type
// line by substring. Name matches order ahead of text mentions so a card
// whose name equals the term survives the candidate window even when many
// newer cards merely reference it in oracle text.
func (s *FilterStore) TextSearch(ctx context.Context, term string, limit int) ([]domain.Card, error) {
	if limit <= 0 {
		limit = 100
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT `+cardColumns+`
FROM cards
WHERE LOWER(name) LIKE '%' || $1 || '%'
   OR LOWER(oracle_text) LIKE '%' || $1 || '%'
   OR LOWER(type_line) LIKE '%' || $1 || '%'
ORDER BY (LOWER(name) = $1) DESC,
         (LOWER(name) LIKE $1 || '%') DESC,
         (LOWER(name) LIKE '%' || $1 || '%') DESC,
         released_at DESC, id
LIMIT $2
`, term, limit)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Card, 0, limit)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan text match: %w", err)
		}
		out = append(out, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate text matches: %w", err)
	}
	return out, nil
}
