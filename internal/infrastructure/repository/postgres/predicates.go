package postgres

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

// buildPredicateConditions renders the recognized predicate set as a
// parameterized SQL conjunction. Every value travels as a bind parameter so
// predicate evaluation stays injection-free regardless of what the parser
// extracted from user text. Placeholders start at $startIndex.
func buildPredicateConditions(p domain.Predicates, startIndex int) ([]string, []any, error) {
	conds := make([]string, 0, 8)
	args := make([]any, 0, 8)

	next := func() int { return startIndex + len(args) }

	for _, color := range p.Colors {
		value, err := jsonArray([]string{color})
		if err != nil {
			return nil, nil, err
		}
		conds = append(conds, fmt.Sprintf("colors @> $%d::jsonb", next()))
		args = append(args, value)
	}
	for _, color := range p.ExcludeColors {
		value, err := jsonArray([]string{color})
		if err != nil {
			return nil, nil, err
		}
		conds = append(conds, fmt.Sprintf("NOT colors @> $%d::jsonb", next()))
		args = append(args, value)
	}
	if len(p.OnlyColors) > 0 {
		value, err := jsonArray(p.OnlyColors)
		if err != nil {
			return nil, nil, err
		}
		conds = append(conds, fmt.Sprintf("colors <@ $%d::jsonb", next()))
		args = append(args, value)
	}

	if p.Cost != nil {
		conds = append(conds, fmt.Sprintf("cmc %s $%d", comparatorSQL(p.Cost.Op), next()))
		args = append(args, p.Cost.Value)
	}
	if p.Power != nil {
		conds = append(conds, fmt.Sprintf("power %s $%d", comparatorSQL(p.Power.Op), next()))
		args = append(args, p.Power.Value)
	}
	if p.Toughness != nil {
		conds = append(conds, fmt.Sprintf("toughness %s $%d", comparatorSQL(p.Toughness.Op), next()))
		args = append(args, p.Toughness.Value)
	}

	if p.Rarity != "" {
		conds = append(conds, fmt.Sprintf("rarity = $%d", next()))
		args = append(args, strings.ToLower(p.Rarity))
	}

	for _, kw := range p.Keywords {
		value, err := jsonArray([]string{kw})
		if err != nil {
			return nil, nil, err
		}
		conds = append(conds, fmt.Sprintf("keywords @> $%d::jsonb", next()))
		args = append(args, value)
	}
	for _, kw := range p.ExcludeKeywords {
		value, err := jsonArray([]string{kw})
		if err != nil {
			return nil, nil, err
		}
		conds = append(conds, fmt.Sprintf("NOT keywords @> $%d::jsonb", next()))
		args = append(args, value)
	}

	return conds, args, nil
}

// comparatorSQL allowlists the comparator token; the operator itself is the
// only piece spliced into SQL text.
func comparatorSQL(op domain.Comparator) string {
	switch op {
	case domain.CmpGT, domain.CmpLT, domain.CmpGE, domain.CmpLE, domain.CmpEQ:
		return string(op)
	default:
		return "="
	}
}

func jsonArray(values []string) (string, error) {
	raw, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("marshal predicate value: %w", err)
	}
	return string(raw), nil
}
