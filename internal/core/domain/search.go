package domain

// QueryRoute is the classifier's routing decision for a raw query.
type QueryRoute string

const (
	RouteExact    QueryRoute = "exact"
	RouteKeyword  QueryRoute = "keyword"
	RouteSemantic QueryRoute = "semantic"
	RouteAdvanced QueryRoute = "advanced"
)

// SearchMode is the caller-facing mode parameter. ModeAuto defers routing to
// the classifier.
type SearchMode string

const (
	ModeAuto     SearchMode = "auto"
	ModeKeyword  SearchMode = "keyword"
	ModeSemantic SearchMode = "semantic"
	ModeAdvanced SearchMode = "advanced"
)

// Comparator is a numeric filter operator.
type Comparator string

const (
	CmpGT Comparator = ">"
	CmpLT Comparator = "<"
	CmpGE Comparator = ">="
	CmpLE Comparator = "<="
	CmpEQ Comparator = "="
)

// NumericPredicate compares a numeric card attribute against a value.
type NumericPredicate struct {
	Op    Comparator `json:"op"`
	Value int        `json:"value"`
}

// Predicates is the structured filter set extracted from an advanced query.
// All recognized predicates are combined as a conjunction.
type Predicates struct {
	Colors          []string          `json:"colors,omitempty"`
	ExcludeColors   []string          `json:"exclude_colors,omitempty"`
	OnlyColors      []string          `json:"only_colors,omitempty"`
	Cost            *NumericPredicate `json:"cost,omitempty"`
	Power           *NumericPredicate `json:"power,omitempty"`
	Toughness       *NumericPredicate `json:"toughness,omitempty"`
	Rarity          string            `json:"rarity,omitempty"`
	Keywords        []string          `json:"keywords,omitempty"`
	ExcludeKeywords []string          `json:"exclude_keywords,omitempty"`
}

// IsEmpty reports whether no structured predicate was recognized.
func (p Predicates) IsEmpty() bool {
	return len(p.Colors) == 0 && len(p.ExcludeColors) == 0 && len(p.OnlyColors) == 0 &&
		p.Cost == nil && p.Power == nil && p.Toughness == nil &&
		p.Rarity == "" && len(p.Keywords) == 0 && len(p.ExcludeKeywords) == 0
}

// ParsedQuery is the filter parser output. Ephemeral: consumed by the fusion
// stage and discarded, never persisted.
type ParsedQuery struct {
	PositiveTerms string     `json:"positive_terms"`
	Exclusions    []string   `json:"exclusions,omitempty"`
	Predicates    Predicates `json:"predicates"`
}

// RankedCard is one scored search result. Score is exactly 1.0 for exact
// name matches.
type RankedCard struct {
	Card  Card    `json:"card"`
	Score float64 `json:"score"`
}

// SearchRequest is the inbound search contract.
type SearchRequest struct {
	Query     string     `json:"query"`
	Mode      SearchMode `json:"mode"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
	Threshold *float64   `json:"threshold,omitempty"`
}

// SearchResult is one ranked, deduplicated, paginated result page.
type SearchResult struct {
	Cards   []RankedCard `json:"cards"`
	HasMore bool         `json:"has_more"`
	Route   QueryRoute   `json:"route"`
	Parsed  *ParsedQuery `json:"parsed,omitempty"`
}

// Neighbor is one nearest-neighbor hit from the vector index.
type Neighbor struct {
	CardID   string  `json:"card_id"`
	Distance float64 `json:"distance"`
}
