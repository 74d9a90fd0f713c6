package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

// TagGenerator extracts semantic tags for one card via the Ollama generate
// API. Rate limiting surfaces as *domain.RateLimitError; structurally invalid
// output as domain.ErrParse.
type TagGenerator struct {
	client *Client
}

func NewTagGenerator(client *Client) *TagGenerator {
	return &TagGenerator{client: client}
}

func (g *TagGenerator) Model() string { return g.client.genModel }

func (g *TagGenerator) GenerateTags(
	ctx context.Context,
	card *domain.Card,
	taxonomy []domain.Tag,
) ([]domain.ExtractedTag, error) {
	respText, err := g.client.generateJSON(ctx, buildTagPrompt(card, taxonomy))
	if err != nil {
		return nil, err
	}
	return parseTagResponse(respText)
}

func parseTagResponse(raw string) ([]domain.ExtractedTag, error) {
	var result struct {
		Tags []domain.ExtractedTag `json:"tags"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &result); err != nil {
		return nil, domain.WrapError(domain.ErrParse, "parse tag json", err)
	}
	if result.Tags == nil {
		return nil, domain.WrapError(domain.ErrParse, "parse tag json", fmt.Errorf("missing tags field"))
	}
	for _, t := range result.Tags {
		if t.Name == "" {
			return nil, domain.WrapError(domain.ErrParse, "parse tag json", fmt.Errorf("empty tag name"))
		}
		if t.Confidence < 0 || t.Confidence > 1 {
			return nil, domain.WrapError(domain.ErrParse, "parse tag json",
				fmt.Errorf("confidence %v out of range for tag %s", t.Confidence, t.Name))
		}
	}
	return result.Tags, nil
}

func buildTagPrompt(card *domain.Card, taxonomy []domain.Tag) string {
	names := make([]string, 0, len(taxonomy))
	for _, t := range taxonomy {
		names = append(names, t.Name)
	}

	return fmt.Sprintf(`You are a trading card tagger.
Return a strict JSON object with one key:
tags (array of objects with keys name (string) and confidence (number from 0 to 1)).
Use only tag names from the allowed list. No markdown, no extra keys.

Allowed tags:
%s

Card name: %s
Type: %s
Text:
%s
`, strings.Join(names, ", "), card.Name, card.TypeLine, card.OracleText)
}
