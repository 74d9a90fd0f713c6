package openaiapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

// Config holds the OpenAI-compatible provider settings (OpenAI proper or any
// compatible gateway via BaseURL).
type Config struct {
	APIKey     string
	BaseURL    string
	GenModel   string
	EmbedModel string
}

// Client adapts an OpenAI-compatible API to the tag-generation and embedding
// ports.
type Client struct {
	api        *openai.Client
	genModel   string
	embedModel string
}

func New(cfg Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:        openai.NewClientWithConfig(clientCfg),
		genModel:   cfg.GenModel,
		embedModel: cfg.EmbedModel,
	}
}

func (c *Client) Model() string { return c.genModel }

func (c *Client) GenerateTags(
	ctx context.Context,
	card *domain.Card,
	taxonomy []domain.Tag,
) ([]domain.ExtractedTag, error) {
	names := make([]string, 0, len(taxonomy))
	for _, t := range taxonomy {
		names = append(names, t.Name)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.genModel,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You are a trading card tagger. Return a JSON object {\"tags\":[{\"name\":string,\"confidence\":number}]} " +
					"using only tag names from the allowed list. Confidence is between 0 and 1.",
			},
			{
				Role: openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Allowed tags: %s\n\nCard name: %s\nType: %s\nText:\n%s",
					strings.Join(names, ", "), card.Name, card.TypeLine, card.OracleText),
			},
		},
	})
	if err != nil {
		return nil, mapAPIError("generate tags", err)
	}
	if len(resp.Choices) == 0 {
		return nil, domain.WrapError(domain.ErrParse, "generate tags", fmt.Errorf("empty choices"))
	}

	return parseTagPayload(resp.Choices[0].Message.Content)
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embedModel),
	})
	if err != nil {
		return nil, mapAPIError("embed query", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

func parseTagPayload(raw string) ([]domain.ExtractedTag, error) {
	var result struct {
		Tags []domain.ExtractedTag `json:"tags"`
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
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

// mapAPIError translates client errors into the domain taxonomy. The SDK does
// not expose response headers, so a 429 carries no wait hint and the
// orchestrator applies its default wait.
func mapAPIError(operation string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return &domain.RateLimitError{}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return &domain.RateLimitError{}
	}
	return fmt.Errorf("%s: %w", operation, err)
}
