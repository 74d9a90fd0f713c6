package postgres

import (
	"strings"
	"testing"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

func TestBuildPredicateConditionsAllValuesBound(t *testing.T) {
	p := domain.Predicates{
		Colors:          []string{"Red"},
		ExcludeColors:   []string{"Black"},
		OnlyColors:      []string{"White", "Blue"},
		Cost:            &domain.NumericPredicate{Op: domain.CmpGT, Value: 3},
		Power:           &domain.NumericPredicate{Op: domain.CmpGE, Value: 4},
		Rarity:          "Rare",
		Keywords:        []string{"flying"},
		ExcludeKeywords: []string{"trample"},
	}

	conds, args, err := buildPredicateConditions(p, 2)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(conds) != len(args) {
		t.Fatalf("every condition needs exactly one bind arg: %d conds, %d args", len(conds), len(args))
	}

	joined := strings.Join(conds, " AND ")
	for _, want := range []string{
		"colors @> $2::jsonb",
		"NOT colors @> $3::jsonb",
		"colors <@ $4::jsonb",
		"cmc > $5",
		"power >= $6",
		"rarity = $7",
		"keywords @> $8::jsonb",
		"NOT keywords @> $9::jsonb",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing condition %q in %q", want, joined)
		}
	}

	// User-derived text must only appear as bind values, never in SQL text.
	for _, fragment := range []string{"Red", "Black", "flying", "trample", "Rare"} {
		if strings.Contains(joined, fragment) {
			t.Fatalf("value %q leaked into SQL text: %q", fragment, joined)
		}
	}
	if args[5] != "rare" {
		t.Fatalf("rarity must be lowercased for comparison, got %v", args[5])
	}
}

func TestBuildPredicateConditionsUnknownComparatorFallsBack(t *testing.T) {
	p := domain.Predicates{
		Cost: &domain.NumericPredicate{Op: domain.Comparator("; DROP TABLE cards"), Value: 1},
	}
	conds, _, err := buildPredicateConditions(p, 1)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(conds) != 1 || conds[0] != "cmc = $1" {
		t.Fatalf("unknown comparator must fall back to equality, got %v", conds)
	}
}

func TestBuildPredicateConditionsEmpty(t *testing.T) {
	conds, args, err := buildPredicateConditions(domain.Predicates{}, 1)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(conds) != 0 || len(args) != 0 {
		t.Fatalf("empty predicates must produce no conditions, got %v %v", conds, args)
	}
}
