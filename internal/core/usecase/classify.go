package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

// NameIndex is the read-only card-name lookup the exact-match rule needs.
type NameIndex interface {
	NameExists(ctx context.Context, normalized string) (bool, error)
}

// QueryClassifier routes raw query text to exactly one retrieval strategy.
// Classification is deterministic and side-effect-free: the only external
// state it consults is the read-only name index.
type QueryClassifier struct {
	names NameIndex
}

func NewQueryClassifier(names NameIndex) *QueryClassifier {
	return &QueryClassifier{names: names}
}

var comparatorPattern = regexp.MustCompile(`(?i)(>=|<=|>|<|=|\bmore than\b|\bless than\b|\bfewer than\b|\bat least\b|\bat most\b|\bor less\b|\bor more\b|\bor fewer\b|\bexactly\b)`)

var numericThresholdPattern = regexp.MustCompile(`(?i)\b(\d+|one|two|three|four|five|six|seven|eight|nine|ten)\s+(mana|cmc|power|toughness)\b|\b(mana|cmc|cost|power|toughness)\s*(>=|<=|>|<|=)?\s*\d+`)

var exclusionPattern = regexp.MustCompile(`(?i)\b(not|without|except)\b`)

var connectiveWords = map[string]bool{
	"that": true, "which": true, "what": true, "how": true, "when": true,
	"where": true, "why": true, "who": true, "does": true, "do": true,
	"is": true, "are": true, "can": true, "could": true, "would": true,
	"show": true, "find": true, "give": true, "me": true, "all": true,
	"some": true, "any": true, "like": true, "similar": true,
}

// Classify applies the routing rules in strict precedence order:
// exact known name, then structured-filter syntax, then short name-like
// text, then semantic. Ties between advanced and keyword resolve to
// advanced whenever a comparator or exclusion token is present.
func (c *QueryClassifier) Classify(ctx context.Context, query string) (domain.QueryRoute, error) {
	text := strings.TrimSpace(query)
	if text == "" {
		return "", domain.WrapError(domain.ErrInvalidQuery, "classify query", errors.New("empty query"))
	}

	normalized := normalizeQueryText(text)
	exists, err := c.names.NameExists(ctx, normalized)
	if err != nil {
		return "", fmt.Errorf("check exact name: %w", err)
	}
	if exists {
		return domain.RouteExact, nil
	}

	if hasFilterSyntax(text) {
		return domain.RouteAdvanced, nil
	}

	words := strings.Fields(text)
	if len(words) <= 4 && isNameLike(words) {
		return domain.RouteKeyword, nil
	}

	return domain.RouteSemantic, nil
}

func normalizeQueryText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// hasFilterSyntax detects structured-filter queries: numeric comparators,
// explicit thresholds, color/rarity tokens, or negation markers.
func hasFilterSyntax(text string) bool {
	if exclusionPattern.MatchString(text) {
		return true
	}
	if comparatorPattern.MatchString(text) && numericThresholdPattern.MatchString(text) {
		return true
	}
	if numericThresholdPattern.MatchString(text) {
		return true
	}

	lower := strings.ToLower(text)
	for _, token := range strings.Fields(lower) {
		if colorNames[token] || rarityNames[strings.TrimSuffix(token, "s")] {
			return true
		}
	}
	return false
}

// isNameLike reports whether a short query looks like a card name: free of
// natural-language connective words. Title-casing is a strong hint but not
// required, so "lightning bolt" routes the same as "Lightning Bolt".
func isNameLike(words []string) bool {
	for _, w := range words {
		if connectiveWords[strings.ToLower(w)] {
			return false
		}
	}
	return true
}
