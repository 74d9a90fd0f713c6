package usecase

import (
	"reflect"
	"testing"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

func TestParseAdvancedQueryFullScenario(t *testing.T) {
	parsed := ParseAdvancedQuery("zombies but not black more than 3 mana")

	if parsed.Predicates.Cost == nil {
		t.Fatalf("expected cost predicate")
	}
	if parsed.Predicates.Cost.Op != domain.CmpGT || parsed.Predicates.Cost.Value != 3 {
		t.Fatalf("expected cost > 3, got %s %d", parsed.Predicates.Cost.Op, parsed.Predicates.Cost.Value)
	}
	if !reflect.DeepEqual(parsed.Predicates.ExcludeColors, []string{"Black"}) {
		t.Fatalf("expected excluded color Black, got %v", parsed.Predicates.ExcludeColors)
	}
	if parsed.PositiveTerms != "zombies" {
		t.Fatalf("expected residual term 'zombies', got %q", parsed.PositiveTerms)
	}
	if len(parsed.Exclusions) == 0 {
		t.Fatalf("negations must be recorded in Exclusions")
	}
}

func TestParseAdvancedQuerySymbolicComparators(t *testing.T) {
	parsed := ParseAdvancedQuery("power >= 4 toughness < 2 cmc = 3")

	if parsed.Predicates.Power == nil || parsed.Predicates.Power.Op != domain.CmpGE || parsed.Predicates.Power.Value != 4 {
		t.Fatalf("expected power >= 4, got %+v", parsed.Predicates.Power)
	}
	if parsed.Predicates.Toughness == nil || parsed.Predicates.Toughness.Op != domain.CmpLT || parsed.Predicates.Toughness.Value != 2 {
		t.Fatalf("expected toughness < 2, got %+v", parsed.Predicates.Toughness)
	}
	if parsed.Predicates.Cost == nil || parsed.Predicates.Cost.Op != domain.CmpEQ || parsed.Predicates.Cost.Value != 3 {
		t.Fatalf("expected cmc = 3, got %+v", parsed.Predicates.Cost)
	}
}

func TestParseAdvancedQueryNumberWords(t *testing.T) {
	parsed := ParseAdvancedQuery("dragons with at least five power")

	if parsed.Predicates.Power == nil || parsed.Predicates.Power.Op != domain.CmpGE || parsed.Predicates.Power.Value != 5 {
		t.Fatalf("expected power >= 5 from 'at least five power', got %+v", parsed.Predicates.Power)
	}
	if parsed.PositiveTerms != "dragons" {
		t.Fatalf("expected residual 'dragons', got %q", parsed.PositiveTerms)
	}
}

func TestParseAdvancedQueryOrLessSuffix(t *testing.T) {
	parsed := ParseAdvancedQuery("counterspells 2 mana or less")

	if parsed.Predicates.Cost == nil || parsed.Predicates.Cost.Op != domain.CmpLE || parsed.Predicates.Cost.Value != 2 {
		t.Fatalf("expected cost <= 2, got %+v", parsed.Predicates.Cost)
	}
	if parsed.PositiveTerms != "counterspells" {
		t.Fatalf("expected residual 'counterspells', got %q", parsed.PositiveTerms)
	}
}

func TestParseAdvancedQueryOnlyColors(t *testing.T) {
	parsed := ParseAdvancedQuery("only white and blue angels")

	if !reflect.DeepEqual(parsed.Predicates.OnlyColors, []string{"White", "Blue"}) {
		t.Fatalf("expected OnlyColors [White Blue], got %v", parsed.Predicates.OnlyColors)
	}
	if len(parsed.Predicates.Colors) != 0 {
		t.Fatalf("only-colors must not also populate Colors, got %v", parsed.Predicates.Colors)
	}
	if parsed.PositiveTerms != "angels" {
		t.Fatalf("expected residual 'angels', got %q", parsed.PositiveTerms)
	}
}

func TestParseAdvancedQueryKeywordAndRarity(t *testing.T) {
	parsed := ParseAdvancedQuery("rare creatures with flying without trample")

	if !reflect.DeepEqual(parsed.Predicates.Keywords, []string{"flying"}) {
		t.Fatalf("expected keyword flying, got %v", parsed.Predicates.Keywords)
	}
	if !reflect.DeepEqual(parsed.Predicates.ExcludeKeywords, []string{"trample"}) {
		t.Fatalf("expected excluded keyword trample, got %v", parsed.Predicates.ExcludeKeywords)
	}
	if parsed.Predicates.Rarity != "rare" {
		t.Fatalf("expected rarity rare, got %q", parsed.Predicates.Rarity)
	}
}

func TestParseAdvancedQueryInclusionColors(t *testing.T) {
	parsed := ParseAdvancedQuery("red and green dinosaurs")

	if !reflect.DeepEqual(parsed.Predicates.Colors, []string{"Red", "Green"}) {
		t.Fatalf("expected colors [Red Green], got %v", parsed.Predicates.Colors)
	}
	if parsed.PositiveTerms != "dinosaurs" {
		t.Fatalf("expected residual 'dinosaurs', got %q", parsed.PositiveTerms)
	}
}

func TestParseAdvancedQueryFreeTextNegation(t *testing.T) {
	parsed := ParseAdvancedQuery("board wipes but not expensive ones")

	if len(parsed.Exclusions) == 0 {
		t.Fatalf("expected free-text exclusion recorded")
	}
	if !parsed.Predicates.IsEmpty() {
		t.Fatalf("free-text negation must not create structured predicates, got %+v", parsed.Predicates)
	}
}
