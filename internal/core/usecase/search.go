package usecase

import (
	"context"
	"errors"

	"github.com/deckhaven/cardsearch/internal/core/domain"
	"github.com/deckhaven/cardsearch/internal/core/ports"
)

// SearchConfig tunes candidate bounds. CandidateLimit caps the retrieval
// superset fetched before predicate evaluation; it trades recall for latency
// and is configuration, not contract.
type SearchConfig struct {
	DefaultLimit   int
	MaxLimit       int
	CandidateLimit int
	VectorTopK     int
}

func (c SearchConfig) normalize() SearchConfig {
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 20
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = 100
	}
	if c.CandidateLimit <= 0 {
		c.CandidateLimit = 100
	}
	if c.VectorTopK <= 0 {
		c.VectorTopK = c.CandidateLimit
	}
	return c
}

// SearchUseCase executes the classifier decision: retrieve a candidate set,
// apply structured predicates, boost name matches, then deduplicate and
// paginate. Requests are stateless and read-only.
type SearchUseCase struct {
	cards      ports.CardRepository
	filters    ports.FilterStore
	vector     ports.VectorIndex
	embedder   ports.Embedder
	classifier *QueryClassifier
	cfg        SearchConfig
}

func NewSearchUseCase(
	cards ports.CardRepository,
	filters ports.FilterStore,
	vector ports.VectorIndex,
	embedder ports.Embedder,
	classifier *QueryClassifier,
	cfg SearchConfig,
) *SearchUseCase {
	return &SearchUseCase{
		cards:      cards,
		filters:    filters,
		vector:     vector,
		embedder:   embedder,
		classifier: classifier,
		cfg:        cfg.normalize(),
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
	if req.Limit <= 0 {
		req.Limit = uc.cfg.DefaultLimit
	}
	if req.Limit > uc.cfg.MaxLimit {
		req.Limit = uc.cfg.MaxLimit
	}

	route, err := uc.resolveRoute(ctx, req)
	if err != nil {
		return nil, err
	}

	var (
		cands  []rankedCandidate
		parsed *domain.ParsedQuery
	)
	switch route {
	case domain.RouteExact, domain.RouteKeyword:
		cands, err = uc.textCandidates(ctx, req.Query)
	case domain.RouteSemantic:
		cands, err = uc.semanticCandidates(ctx, req.Query)
	case domain.RouteAdvanced:
		cands, parsed, err = uc.advancedCandidates(ctx, req.Query)
	}
	if err != nil {
		return nil, err
	}

	cands = applyThreshold(cands, req.Threshold)
	cands = dedupeByName(cands)
	page, hasMore := paginate(cands, req.Limit, req.Offset)

	return &domain.SearchResult{
		Cards:   page,
		HasMore: hasMore,
		Route:   route,
		Parsed:  parsed,
	}, nil
}

func (uc *SearchUseCase) resolveRoute(ctx context.Context, req domain.SearchRequest) (domain.QueryRoute, error) {
	switch req.Mode {
	case domain.ModeKeyword:
		if emptyQuery(req.Query) {
			return "", domain.WrapError(domain.ErrInvalidQuery, "search", errors.New("empty query"))
		}
		return domain.RouteKeyword, nil
	case domain.ModeSemantic:
		if emptyQuery(req.Query) {
			return "", domain.WrapError(domain.ErrInvalidQuery, "search", errors.New("empty query"))
		}
		return domain.RouteSemantic, nil
	case domain.ModeAdvanced:
		if emptyQuery(req.Query) {
			return "", domain.WrapError(domain.ErrInvalidQuery, "search", errors.New("empty query"))
		}
		return domain.RouteAdvanced, nil
	default:
		return uc.classifier.Classify(ctx, req.Query)
	}
}

func emptyQuery(q string) bool {
	return normalizeQueryText(q) == ""
}

func (uc *SearchUseCase) textCandidates(ctx context.Context, query string) ([]rankedCandidate, error) {
	cards, err := uc.filters.TextSearch(ctx, normalizeQueryText(query), uc.cfg.CandidateLimit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrSearchUnavailable, "text search", err)
	}
	return rankTextMatches(query, cards), nil
}

func (uc *SearchUseCase) semanticCandidates(ctx context.Context, query string) ([]rankedCandidate, error) {
	vec, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, domain.WrapError(domain.ErrSearchUnavailable, "embed query", err)
	}

	neighbors, err := uc.vector.NearestNeighbors(ctx, vec, uc.cfg.VectorTopK)
	if err != nil {
		return nil, domain.WrapError(domain.ErrSearchUnavailable, "nearest neighbors", err)
	}
	return uc.neighborCandidates(ctx, neighbors)
}

func (uc *SearchUseCase) neighborCandidates(ctx context.Context, neighbors []domain.Neighbor) ([]rankedCandidate, error) {
	if len(neighbors) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		ids = append(ids, n.CardID)
	}
	cards, err := uc.cards.GetByIDs(ctx, ids)
	if err != nil {
		return nil, domain.WrapError(domain.ErrSearchUnavailable, "fetch neighbor cards", err)
	}

	byID := make(map[string]domain.Card, len(cards))
	for _, c := range cards {
		byID[c.ID] = c
	}

	out := make([]rankedCandidate, 0, len(neighbors))
	for _, n := range neighbors {
		card, ok := byID[n.CardID]
		if !ok {
			continue
		}
		out = append(out, rankedCandidate{
			card:  card,
			score: 1 - n.Distance,
			class: rankContains,
		})
	}
	return out, nil
}

// advancedCandidates narrows first, filters second: retrieval for the
// positive terms bounds the candidate set before predicates run. Evaluating
// predicates over the full corpus first is a performance anti-pattern, so the
// only corpus-level predicate query is the bounded terms-free case.
func (uc *SearchUseCase) advancedCandidates(ctx context.Context, query string) ([]rankedCandidate, *domain.ParsedQuery, error) {
	parsed := ParseAdvancedQuery(query)

	if parsed.PositiveTerms == "" {
		cands, err := uc.filterOnlyCandidates(ctx, parsed.Predicates)
		return cands, &parsed, err
	}

	cands, err := uc.textCandidates(ctx, parsed.PositiveTerms)
	if err != nil {
		return nil, nil, err
	}
	if len(cands) == 0 {
		cands, err = uc.semanticCandidates(ctx, parsed.PositiveTerms)
		if err != nil {
			return nil, nil, err
		}
	}
	if parsed.Predicates.IsEmpty() || len(cands) == 0 {
		return cands, &parsed, nil
	}

	ids := make([]string, 0, len(cands))
	for _, c := range cands {
		ids = append(ids, c.card.ID)
	}
	kept, err := uc.filters.EvaluatePredicates(ctx, ids, parsed.Predicates, uc.cfg.CandidateLimit)
	if err != nil {
		return nil, nil, domain.WrapError(domain.ErrSearchUnavailable, "evaluate predicates", err)
	}

	keep := make(map[string]bool, len(kept))
	for _, id := range kept {
		keep[id] = true
	}

	// Preserve the original relevance ordering of the retrieval stage.
	filtered := cands[:0]
	for _, c := range cands {
		if keep[c.card.ID] {
			filtered = append(filtered, c)
		}
	}
	return filtered, &parsed, nil
}

func (uc *SearchUseCase) filterOnlyCandidates(ctx context.Context, p domain.Predicates) ([]rankedCandidate, error) {
	if p.IsEmpty() {
		return nil, nil
	}
	ids, err := uc.filters.EvaluatePredicates(ctx, nil, p, uc.cfg.CandidateLimit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrSearchUnavailable, "evaluate predicates", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cards, err := uc.cards.GetByIDs(ctx, ids)
	if err != nil {
		return nil, domain.WrapError(domain.ErrSearchUnavailable, "fetch filtered cards", err)
	}

	out := make([]rankedCandidate, 0, len(cards))
	for _, card := range cards {
		// Every match fully satisfies the predicate conjunction.
		out = append(out, rankedCandidate{card: card, score: 1.0, class: rankContains})
	}
	sortCandidates(out)
	return out, nil
}

var _ ports.CardSearcher = (*SearchUseCase)(nil)
