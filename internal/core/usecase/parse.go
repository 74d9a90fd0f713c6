package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

// colorNames maps lowercase color tokens to their canonical form.
var colorNames = map[string]bool{
	"white": true, "blue": true, "black": true, "red": true, "green": true,
	"colorless": true,
}

var rarityNames = map[string]bool{
	"common": true, "uncommon": true, "rare": true, "mythic": true,
}

// keywordNames are the mechanic keywords the parser recognizes after
// "with"/"has"/"without"/"no".
var keywordNames = map[string]bool{
	"flying": true, "trample": true, "haste": true, "lifelink": true,
	"deathtouch": true, "vigilance": true, "reach": true, "menace": true,
	"flash": true, "hexproof": true, "defender": true, "indestructible": true,
	"first strike": true, "double strike": true, "ward": true,
}

var numberWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

const numberToken = `(\d+|zero|one|two|three|four|five|six|seven|eight|nine|ten)`

var (
	// Symbolic forms: "cmc > 3", "power >= 2", "mana cost = 5".
	symbolicCmpRe = regexp.MustCompile(`\b(cmc|mana cost|mana|cost|power|toughness)\s*(>=|<=|>|<|=)\s*` + numberToken + `\b`)

	// Phrase forms around a numeric attribute.
	morePhraseRe    = regexp.MustCompile(`\b(?:more than|greater than|over) ` + numberToken + ` (mana|cmc|power|toughness)\b`)
	lessPhraseRe    = regexp.MustCompile(`\b(?:less than|fewer than|under) ` + numberToken + ` (mana|cmc|power|toughness)\b`)
	atLeastPhraseRe = regexp.MustCompile(`\b(?:at least) ` + numberToken + ` (mana|cmc|power|toughness)\b`)
	atMostPhraseRe  = regexp.MustCompile(`\b(?:at most) ` + numberToken + ` (mana|cmc|power|toughness)\b`)
	exactPhraseRe   = regexp.MustCompile(`\b(?:exactly) ` + numberToken + ` (mana|cmc|power|toughness)\b`)
	orLessSuffixRe  = regexp.MustCompile(`\b` + numberToken + ` (mana|cmc|power|toughness) or (?:less|fewer)\b`)
	orMoreSuffixRe  = regexp.MustCompile(`\b` + numberToken + ` (mana|cmc|power|toughness) or (?:more|greater)\b`)

	onlyColorsRe = regexp.MustCompile(`\bonly ((?:(?:white|blue|black|red|green)(?:,? and | |, )?)+)\b`)
	negationRe   = regexp.MustCompile(`\b(?:not|without|no|except) ([a-z][a-z ]*?)(?:\b(?:and|or|but|with|that|cards?)\b|$)`)
	withRe       = regexp.MustCompile(`\b(?:with|has|have|having) ((?:first |double )?[a-z]+)\b`)
)

// ParseAdvancedQuery converts free text into a structured predicate set plus
// a residual free-text term. Parsing is best-effort and non-exclusive:
// unmatched phrases never fail, they degrade to positive terms for the
// keyword/semantic stage.
func ParseAdvancedQuery(query string) domain.ParsedQuery {
	text := " " + strings.Join(strings.Fields(strings.ToLower(query)), " ") + " "
	parsed := domain.ParsedQuery{}

	text = extractNumericPredicates(text, &parsed.Predicates)
	text = extractOnlyColors(text, &parsed.Predicates)
	text = extractNegations(text, &parsed)
	text = extractKeywords(text, &parsed.Predicates)
	text = extractRarity(text, &parsed.Predicates)
	text = extractInclusionColors(text, &parsed.Predicates)

	parsed.PositiveTerms = residualTerms(text)
	return parsed
}

func extractNumericPredicates(text string, p *domain.Predicates) string {
	text = symbolicCmpRe.ReplaceAllStringFunc(text, func(m string) string {
		parts := symbolicCmpRe.FindStringSubmatch(m)
		assignNumeric(p, parts[1], domain.Comparator(parts[2]), parts[3])
		return " "
	})

	for _, rule := range []struct {
		re *regexp.Regexp
		op domain.Comparator
	}{
		{morePhraseRe, domain.CmpGT},
		{lessPhraseRe, domain.CmpLT},
		{atLeastPhraseRe, domain.CmpGE},
		{atMostPhraseRe, domain.CmpLE},
		{exactPhraseRe, domain.CmpEQ},
		{orLessSuffixRe, domain.CmpLE},
		{orMoreSuffixRe, domain.CmpGE},
	} {
		re, op := rule.re, rule.op
		text = re.ReplaceAllStringFunc(text, func(m string) string {
			parts := re.FindStringSubmatch(m)
			assignNumeric(p, parts[2], op, parts[1])
			return " "
		})
	}
	return text
}

func assignNumeric(p *domain.Predicates, attribute string, op domain.Comparator, raw string) {
	value, ok := parseNumber(raw)
	if !ok {
		return
	}
	pred := &domain.NumericPredicate{Op: op, Value: value}
	switch attribute {
	case "power":
		p.Power = pred
	case "toughness":
		p.Toughness = pred
	default: // cmc, mana, mana cost, cost
		p.Cost = pred
	}
}

func parseNumber(raw string) (int, bool) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, true
	}
	n, ok := numberWords[raw]
	return n, ok
}

func extractOnlyColors(text string, p *domain.Predicates) string {
	return onlyColorsRe.ReplaceAllStringFunc(text, func(m string) string {
		parts := onlyColorsRe.FindStringSubmatch(m)
		for _, token := range strings.FieldsFunc(parts[1], func(r rune) bool { return r == ' ' || r == ',' }) {
			if colorNames[token] && token != "colorless" {
				p.OnlyColors = append(p.OnlyColors, canonicalColor(token))
			}
		}
		return " "
	})
}

func extractNegations(text string, parsed *domain.ParsedQuery) string {
	return negationRe.ReplaceAllStringFunc(text, func(m string) string {
		parts := negationRe.FindStringSubmatch(m)
		target := strings.TrimSpace(parts[1])
		if target == "" {
			return " "
		}

		// The tail group may have swallowed a trailing connective; the
		// target itself is the first recognized token sequence.
		switch {
		case colorNames[target]:
			parsed.Predicates.ExcludeColors = append(parsed.Predicates.ExcludeColors, canonicalColor(target))
		case keywordNames[target]:
			parsed.Predicates.ExcludeKeywords = append(parsed.Predicates.ExcludeKeywords, target)
		default:
			first := strings.Fields(target)[0]
			if colorNames[first] {
				parsed.Predicates.ExcludeColors = append(parsed.Predicates.ExcludeColors, canonicalColor(first))
				parsed.Exclusions = append(parsed.Exclusions, first)
				return " " + strings.TrimPrefix(target, first) + " "
			}
			if keywordNames[first] {
				parsed.Predicates.ExcludeKeywords = append(parsed.Predicates.ExcludeKeywords, first)
				parsed.Exclusions = append(parsed.Exclusions, first)
				return " " + strings.TrimPrefix(target, first) + " "
			}
			parsed.Exclusions = append(parsed.Exclusions, target)
			return " "
		}
		parsed.Exclusions = append(parsed.Exclusions, target)
		return " "
	})
}

func extractKeywords(text string, p *domain.Predicates) string {
	return withRe.ReplaceAllStringFunc(text, func(m string) string {
		parts := withRe.FindStringSubmatch(m)
		kw := strings.TrimSpace(parts[1])
		if keywordNames[kw] {
			p.Keywords = append(p.Keywords, kw)
			return " "
		}
		return m
	})
}

func extractRarity(text string, p *domain.Predicates) string {
	for rarity := range rarityNames {
		token := " " + rarity + " "
		if strings.Contains(text, token) {
			p.Rarity = rarity
			text = strings.Replace(text, token, " ", 1)
			break
		}
	}
	return text
}

func extractInclusionColors(text string, p *domain.Predicates) string {
	fields := strings.Fields(text)
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		if colorNames[f] && f != "colorless" {
			p.Colors = append(p.Colors, canonicalColor(f))
			continue
		}
		kept = append(kept, f)
	}
	return " " + strings.Join(kept, " ") + " "
}

var fillerWords = map[string]bool{
	"but": true, "and": true, "or": true, "the": true, "a": true, "an": true,
	"cards": true, "card": true, "that": true, "is": true, "are": true,
	"with": true, "mana": true, "cmc": true, "cost": true,
}

func residualTerms(text string) string {
	fields := strings.Fields(text)
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		if fillerWords[f] {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

func canonicalColor(token string) string {
	return strings.ToUpper(token[:1]) + token[1:]
}
