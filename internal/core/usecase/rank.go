package usecase

import (
	"sort"
	"strings"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

// Rank classes in strict priority order. Exact and prefix matches both score
// 1.0 but the class keeps exact matches ahead.
const (
	rankExact    = 3
	rankPrefix   = 2
	rankContains = 1
)

type rankedCandidate struct {
	card  domain.Card
	score float64
	class int
}

// rankTextMatches assigns rank classes and scores to name/text matches:
// exact name (1.0) > name-starts-with (1.0) > containment (match quality).
func rankTextMatches(query string, cards []domain.Card) []rankedCandidate {
	q := normalizeQueryText(query)
	out := make([]rankedCandidate, 0, len(cards))
	for _, card := range cards {
		name := strings.ToLower(card.Name)
		c := rankedCandidate{card: card}
		switch {
		case name == q:
			c.class = rankExact
			c.score = 1.0
		case strings.HasPrefix(name, q):
			c.class = rankPrefix
			c.score = 1.0
		case strings.Contains(name, q):
			c.class = rankContains
			c.score = containmentScore(len(q), len(name))
		default:
			// Text containment: matched oracle text or type line.
			c.class = rankContains
			c.score = 0.5
		}
		out = append(out, c)
	}
	sortCandidates(out)
	return out
}

// containmentScore derives match quality from how much of the name the query
// covers, kept strictly below the exact/prefix score.
func containmentScore(queryLen, nameLen int) float64 {
	if nameLen <= 0 {
		return 0.5
	}
	s := 0.5 + 0.49*float64(queryLen)/float64(nameLen)
	if s > 0.99 {
		s = 0.99
	}
	return s
}

// sortCandidates orders by rank class, then score, then a deterministic
// secondary order (newest printing, then id) so duplicate names are stable.
func sortCandidates(cands []rankedCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].class != cands[j].class {
			return cands[i].class > cands[j].class
		}
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		if !cands[i].card.ReleasedAt.Equal(cands[j].card.ReleasedAt) {
			return cands[i].card.ReleasedAt.After(cands[j].card.ReleasedAt)
		}
		return cands[i].card.ID < cands[j].card.ID
	})
}

// applyThreshold drops candidates scoring below the similarity threshold.
// Raising the threshold can only shrink or preserve the set, never grow it.
func applyThreshold(cands []rankedCandidate, threshold *float64) []rankedCandidate {
	if threshold == nil {
		return cands
	}
	out := cands[:0]
	for _, c := range cands {
		if c.score >= *threshold {
			out = append(out, c)
		}
	}
	return out
}

// dedupeByName collapses multiple printings of the same card name into one
// representative: the latest printing, carrying the highest score and rank
// class seen among the duplicates.
func dedupeByName(cands []rankedCandidate) []rankedCandidate {
	type slot struct {
		index int
		cand  rankedCandidate
	}
	byName := make(map[string]slot, len(cands))
	order := make([]string, 0, len(cands))

	for _, c := range cands {
		key := strings.ToLower(c.card.Name)
		existing, ok := byName[key]
		if !ok {
			byName[key] = slot{index: len(order), cand: c}
			order = append(order, key)
			continue
		}
		merged := existing.cand
		if c.card.ReleasedAt.After(merged.card.ReleasedAt) {
			merged.card = c.card
		}
		if c.score > merged.score {
			merged.score = c.score
		}
		if c.class > merged.class {
			merged.class = c.class
		}
		existing.cand = merged
		byName[key] = existing
	}

	out := make([]rankedCandidate, 0, len(order))
	for _, key := range order {
		out = append(out, byName[key].cand)
	}
	sortCandidates(out)
	return out
}

// paginate slices one result page and reports whether more rows remain.
func paginate(cands []rankedCandidate, limit, offset int) ([]domain.RankedCard, bool) {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(cands) {
		return []domain.RankedCard{}, false
	}
	end := offset + limit
	hasMore := false
	if end < len(cands) {
		hasMore = true
	} else {
		end = len(cands)
	}

	page := make([]domain.RankedCard, 0, end-offset)
	for _, c := range cands[offset:end] {
		page = append(page, domain.RankedCard{Card: c.card, Score: c.score})
	}
	return page, hasMore
}
