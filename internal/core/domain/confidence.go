package domain

import "sort"

// TagSummary is the recomputed cache state for one card's tag rows. The
// invariant: a card's stored TagNames/TagConfidenceAvg/NeedsReview always
// equal a fresh SummarizeCardTags over its current CardTag rows.
type TagSummary struct {
	TagNames      []string
	ConfidenceAvg *float64
	NeedsReview   bool
	ReviewReason  string
	Priority      int
}

// SummarizeCardTags recomputes the tag cache for one card. NeedsReview is
// true iff the average confidence is below threshold or any single tag is.
// Priority grows with the confidence deficit, clamped to [1, 100].
func SummarizeCardTags(tags []CardTag, threshold float64) TagSummary {
	if len(tags) == 0 {
		return TagSummary{TagNames: []string{}}
	}

	names := make([]string, 0, len(tags))
	sum := 0.0
	anyLow := false
	for _, t := range tags {
		names = append(names, t.TagName)
		sum += t.Confidence
		if t.Confidence < threshold {
			anyLow = true
		}
	}
	sort.Strings(names)

	avg := sum / float64(len(tags))
	summary := TagSummary{
		TagNames:      names,
		ConfidenceAvg: &avg,
	}

	switch {
	case avg < threshold:
		summary.NeedsReview = true
		summary.ReviewReason = ReviewReasonLowAverage
		summary.Priority = deficitPriority(threshold - avg)
	case anyLow:
		summary.NeedsReview = true
		summary.ReviewReason = ReviewReasonLowTag
		summary.Priority = lowestTagPriority(tags, threshold)
	}
	return summary
}

func deficitPriority(deficit float64) int {
	p := int(deficit * 100)
	if p < 1 {
		p = 1
	}
	if p > 100 {
		p = 100
	}
	return p
}

func lowestTagPriority(tags []CardTag, threshold float64) int {
	lowest := threshold
	for _, t := range tags {
		if t.Confidence < lowest {
			lowest = t.Confidence
		}
	}
	return deficitPriority(threshold - lowest)
}

// InheritParentTags expands extracted tags with their taxonomy ancestors at
// discounted confidence. A direct assignment always wins over an inherited
// one; among inherited candidates the strongest survives. The taxonomy graph
// is treated as read-only; cycles are cut by refusing to revisit a name.
func InheritParentTags(tags []ExtractedTag, taxonomy map[string]Tag, discount float64) []ExtractedTag {
	if discount <= 0 || discount > 1 {
		discount = 1
	}

	direct := make(map[string]float64, len(tags))
	for _, t := range tags {
		if current, ok := direct[t.Name]; !ok || t.Confidence > current {
			direct[t.Name] = t.Confidence
		}
	}

	inherited := make(map[string]float64)
	for _, t := range tags {
		confidence := t.Confidence
		seen := map[string]bool{t.Name: true}
		node, ok := taxonomy[t.Name]
		for ok && node.ParentName != "" && !seen[node.ParentName] {
			seen[node.ParentName] = true
			confidence *= discount
			parent := node.ParentName
			if current, exists := inherited[parent]; !exists || confidence > current {
				inherited[parent] = confidence
			}
			node, ok = taxonomy[parent]
		}
	}

	out := make([]ExtractedTag, 0, len(direct)+len(inherited))
	for name, confidence := range direct {
		out = append(out, ExtractedTag{Name: name, Confidence: confidence})
	}
	for name, confidence := range inherited {
		if _, isDirect := direct[name]; isDirect {
			continue
		}
		out = append(out, ExtractedTag{Name: name, Confidence: confidence})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
